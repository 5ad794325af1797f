package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/records/memory"
	"tally/internal/services"
)

// Wednesday: the WEEK block is May 13..19, 2024
func fixedNow() time.Time { return time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewWithClock(fixedNow)
	svc := services.NewExpenseService(store, nil).WithClock(fixedNow)
	srv, err := NewServer("127.0.0.1:0", svc, log.New(log.Config{Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, store
}

func do(srv *Server, method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func seed(t *testing.T, store *memory.Store, amount, category, date string) int64 {
	t.Helper()
	id, err := store.Create(context.Background(), core.ExpenseInput{
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Date:     date,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(srv, http.MethodGet, "/", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<h1>Tally</h1>") || !strings.Contains(body, "No expenses") {
		t.Fatalf("index body missing heading or empty state: %s", body)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("middleware headers missing: %v", rr.Header())
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, nil, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := do(srv, http.MethodGet, "/static/style.css", nil, false); rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
}

func TestIndexRejectsUnknownWindow(t *testing.T) {
	srv, _ := newTestServer(t)

	if rr := do(srv, http.MethodGet, "/?window=YEAR", nil, false); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestIndexFiltersByWindow(t *testing.T) {
	srv, store := newTestServer(t)
	seed(t, store, "30", "Rent", "2024-04-20")
	seed(t, store, "7.5", "Books", "2024-05-08")
	seed(t, store, "2.5", "Coffee", "2024-05-14")

	tests := []struct {
		window  string
		visible []string
		hidden  []string
		total   string
	}{
		{"WEEK", []string{"Coffee"}, []string{"Books", "Rent"}, "$2.50"},
		{"MONTH", []string{"Coffee", "Books"}, []string{"Rent"}, "$10.00"},
		{"", []string{"Coffee", "Books", "Rent"}, nil, "$40.00"},
	}

	for _, tt := range tests {
		t.Run("window_"+tt.window, func(t *testing.T) {
			rr := do(srv, http.MethodGet, "/?window="+tt.window, nil, false)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			body := rr.Body.String()
			for _, name := range tt.visible {
				if !strings.Contains(body, name) {
					t.Errorf("%s missing from %s window", name, tt.window)
				}
			}
			for _, name := range tt.hidden {
				if strings.Contains(body, name) {
					t.Errorf("%s should not appear in %s window", name, tt.window)
				}
			}
			if !strings.Contains(body, tt.total) {
				t.Errorf("total %s missing", tt.total)
			}
		})
	}
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	if rr := do(srv, http.MethodGet, "/expenses", nil, false); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	rr := do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"abc"}, "category": {"Food"}}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `value="abc"`) || !strings.Contains(rr.Body.String(), "Amount must be") {
		t.Fatalf("rejected form input should be kept with a message: %s", rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"5"}, "category": {"  "}}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if list, _ := store.List(ctx); len(list) != 0 {
		t.Fatalf("rejected input must not be stored, got %d records", len(list))
	}

	rr = do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"12,50"}, "category": {"Food"}, "note": {"lunch"}, "window": {"WEEK"}}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/?window=WEEK" {
		t.Fatalf("Location = %q", loc)
	}

	list, _ := store.List(ctx)
	if len(list) != 1 || list[0].Date != "2024-05-15" || list[0].Note != "lunch" {
		t.Fatalf("unexpected records %+v", list)
	}
}

func TestCreateExpenseHTMX(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"12.5"}, "category": {"Food"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, `"expense:created"`) {
		t.Fatalf("HX-Trigger = %q", trigger)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `id="screen"`) || !strings.Contains(body, "$12.50") {
		t.Fatalf("expected refreshed screen fragment: %s", body)
	}

	rr = do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"0"}, "category": {"Food"}}, true)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), `class="error"`) {
		t.Fatalf("expected 422 error fragment, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCreateExpenseJSON(t *testing.T) {
	srv, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount": 4.2, "category": "Taxi"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	list, _ := store.List(context.Background())
	if len(list) != 1 || !list[0].Amount.Equal(decimal.RequireFromString("4.2")) {
		t.Fatalf("unexpected records %+v", list)
	}
}

func TestEditSaveAndDelete(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	id := seed(t, store, "10", "Food", "2024-05-15")
	base := "/expenses/" + strconv.FormatInt(id, 10)

	rr := do(srv, http.MethodGet, base+"/edit?window=MONTH", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("edit status=%d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, `value="2024-05-15"`) || !strings.Contains(body, `value="MONTH"`) {
		t.Fatalf("edit form not seeded: %s", body)
	}

	if rr := do(srv, http.MethodGet, "/expenses/999/edit", nil, false); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/expenses/abc/edit", nil, false); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for bad id, got %d", rr.Code)
	}

	rr = do(srv, http.MethodPost, base, url.Values{"amount": {"11.75"}, "category": {"Food"}, "date": {""}}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `value="11.75"`) {
		t.Fatalf("draft should stay on screen: %s", rr.Body.String())
	}
	if got, _ := store.Get(ctx, id); !got.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("rejected draft must not be written, got %s", got.Amount)
	}

	form := url.Values{"amount": {"11.75"}, "category": {"Groceries"}, "note": {"market"}, "date": {"2024-05-02"}, "window": {"MONTH"}}
	for i := 0; i < 2; i++ {
		rr = do(srv, http.MethodPost, base, form, false)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("save #%d: expected 303, got %d", i, rr.Code)
		}
	}
	got, _ := store.Get(ctx, id)
	if got.Category != "Groceries" || got.Date != "2024-05-02" || !got.Amount.Equal(decimal.RequireFromString("11.75")) {
		t.Fatalf("unexpected record after save %+v", got)
	}

	rr = do(srv, http.MethodPost, base+"/delete", url.Values{"window": {"WEEK"}}, true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), `"expense:deleted"`) {
		t.Fatalf("htmx delete: %d %q", rr.Code, rr.Header().Get("HX-Trigger"))
	}
	if rr := do(srv, http.MethodPost, base+"/delete", url.Values{}, false); rr.Code != http.StatusSeeOther {
		t.Fatalf("second delete should be a no-op, got %d", rr.Code)
	}
	if list, _ := store.List(ctx); len(list) != 0 {
		t.Fatalf("expected empty store, got %d", len(list))
	}
}

var errDisk = errors.New("disk I/O error")

type brokenStore struct{}

func (brokenStore) Initialize(context.Context) error                        { return errDisk }
func (brokenStore) List(context.Context) ([]core.Expense, error)            { return nil, errDisk }
func (brokenStore) Create(context.Context, core.ExpenseInput) (int64, error) { return 0, errDisk }
func (brokenStore) Update(context.Context, int64, core.ExpenseInput) error  { return errDisk }
func (brokenStore) Delete(context.Context, int64) error                     { return errDisk }
func (brokenStore) Close() error                                            { return nil }

func TestStorageFailures(t *testing.T) {
	svc := services.NewExpenseService(brokenStore{}, nil).WithClock(fixedNow)
	srv, err := NewServer("127.0.0.1:0", svc, log.New(log.Config{Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	if rr := do(srv, http.MethodGet, "/", nil, false); rr.Code != http.StatusInternalServerError {
		t.Fatalf("index: expected 500, got %d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/readyz", nil, false); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: expected 503, got %d", rr.Code)
	}
	if rr := do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"1"}, "category": {"A"}}, false); rr.Code != http.StatusInternalServerError {
		t.Fatalf("create: expected 500, got %d", rr.Code)
	}
	if rr := do(srv, http.MethodPost, "/expenses/1/delete", url.Values{}, false); rr.Code != http.StatusInternalServerError {
		t.Fatalf("delete: expected 500, got %d", rr.Code)
	}
}

func TestScreenFormsSubmitInBackground(t *testing.T) {
	srv, store := newTestServer(t)
	id := seed(t, store, "10", "Food", "2024-05-15")

	rr := do(srv, http.MethodGet, "/static/app.js", nil, false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"HX-Request": "true"`) {
		t.Fatalf("form script not served: %d", rr.Code)
	}

	index := do(srv, http.MethodGet, "/", nil, false).Body.String()
	edit := do(srv, http.MethodGet, "/expenses/"+strconv.FormatInt(id, 10)+"/edit", nil, false).Body.String()
	for name, body := range map[string]string{"index": index, "edit": edit} {
		if !strings.Contains(body, `<script src="/static/app.js" defer></script>`) {
			t.Errorf("%s page does not load the form script", name)
		}
		if !strings.Contains(body, `id="notice"`) {
			t.Errorf("%s page has no notification area", name)
		}
	}
	for _, want := range []string{
		`action="/expenses" class="add-expense" data-async="screen" data-reset`,
		`action="/expenses/` + strconv.FormatInt(id, 10) + `/delete" data-async="screen"`,
	} {
		if !strings.Contains(index, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if !strings.Contains(edit, `data-async="page"`) {
		t.Errorf("edit form is not submitted in the background")
	}
}

func TestStorageFailureNotifiesHTMXClients(t *testing.T) {
	svc := services.NewExpenseService(brokenStore{}, nil).WithClock(fixedNow)
	srv, err := NewServer("127.0.0.1:0", svc, log.New(log.Config{Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	rr := do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"1"}, "category": {"A"}}, true)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"type":"error"`) || !strings.Contains(trigger, "Failed to save expense") {
		t.Fatalf("HX-Trigger = %q", trigger)
	}

	rr = do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"1"}, "category": {"A"}}, false)
	if rr.Header().Get("HX-Trigger") != "" {
		t.Fatalf("plain form got HX-Trigger %q", rr.Header().Get("HX-Trigger"))
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	srv, store := newTestServer(t)
	id := seed(t, store, "10", "Food", "2024-05-15")
	note := strings.Repeat("x", maxBodyBytes)

	rr := do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"5"}, "category": {"Food"}, "note": {note}}, false)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("create: expected 413, got %d", rr.Code)
	}
	base := "/expenses/" + strconv.FormatInt(id, 10)
	rr = do(srv, http.MethodPost, base, url.Values{"amount": {"5"}, "category": {"Food"}, "date": {"2024-05-15"}, "note": {note}}, false)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("save: expected 413, got %d", rr.Code)
	}
	rr = do(srv, http.MethodPost, base+"/delete", url.Values{"window": {note}}, false)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("delete: expected 413, got %d", rr.Code)
	}

	list, _ := store.List(context.Background())
	if len(list) != 1 || !list[0].Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("oversized requests must not write: %+v", list)
	}
}
