package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/services"
)

type screenPage struct {
	View    services.ScreenView
	Windows []core.Window
	// Add form input kept after a rejected submit
	Form  core.Draft
	Error string
}

type editPage struct {
	ID     int64
	Window core.Window
	Draft  core.Draft
	Error  string
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

// handleReady lists the store to prove it is reachable
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "store": "ok"}
	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}
	if _, err := s.screen.Screen(ctx, core.WindowAll); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
		"requests":  s.trace.GetMetrics().TotalRequests,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	window, err := core.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		BadRequestError("Unknown window filter").Write(w)
		return
	}
	s.renderScreen(w, r, http.StatusOK, window, core.Draft{}, "")
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		badBody(w, err)
		return
	}
	window := parseWindowParam(p.Get("window"))
	form := core.Draft{Amount: p.Get("amount"), Category: p.Get("category"), Note: p.Get("note")}

	ctx := r.Context()
	if err := s.screen.Add(ctx, form.Amount, form.Category, form.Note); err != nil {
		if core.IsValidationError(err) {
			log.FromContext(ctx).WarnContext(ctx, "Rejected expense", log.FieldError, err)
			if isHTMX(r) {
				UnprocessableEntityError(validationMessage(err)).Write(w)
				return
			}
			s.renderScreen(w, r, http.StatusUnprocessableEntity, window, form, validationMessage(err))
			return
		}
		s.storageFailure(w, r, "Failed to save expense", log.OpCreate, err)
		return
	}

	s.respondChanged(w, r, window, EventExpenseCreated, "Expense added")
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		NotFoundError("Expense not found").Write(w)
		return
	}
	window := parseWindowParam(r.URL.Query().Get("window"))

	draft, err := s.screen.Draft(r.Context(), id)
	if errors.Is(err, core.ErrExpenseNotFound) {
		NotFoundError("Expense not found").Write(w)
		return
	}
	if err != nil {
		s.storageFailure(w, r, "Failed to load expense", log.OpList, err)
		return
	}

	s.render(w, r, http.StatusOK, "edit.html", editPage{ID: id, Window: window, Draft: draft})
}

func (s *Server) handleSaveExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		NotFoundError("Expense not found").Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		badBody(w, err)
		return
	}
	window := parseWindowParam(p.Get("window"))
	draft := core.Draft{
		Amount:   p.Get("amount"),
		Category: p.Get("category"),
		Note:     p.Get("note"),
		Date:     p.Get("date"),
	}

	ctx := r.Context()
	if err := s.screen.Save(ctx, id, draft); err != nil {
		if core.IsValidationError(err) {
			log.FromContext(ctx).WarnContext(ctx, "Rejected expense update",
				log.FieldExpenseID, id, log.FieldError, err)
			if isHTMX(r) {
				UnprocessableEntityError(validationMessage(err)).Write(w)
				return
			}
			// The draft stays on screen so the user can fix it
			s.render(w, r, http.StatusUnprocessableEntity, "edit.html",
				editPage{ID: id, Window: window, Draft: draft, Error: validationMessage(err)})
			return
		}
		s.storageFailure(w, r, "Failed to update expense", log.OpUpdate, err)
		return
	}

	s.respondChanged(w, r, window, EventExpenseUpdated, "Expense saved")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		NotFoundError("Expense not found").Write(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		badBody(w, err)
		return
	}
	window := parseWindowParam(r.Form.Get("window"))

	if err := s.screen.Remove(r.Context(), id); err != nil {
		s.storageFailure(w, r, "Failed to delete expense", log.OpDelete, err)
		return
	}

	s.respondChanged(w, r, window, EventExpenseDeleted, "Expense deleted")
}

// respondChanged answers a successful mutation. HTMX clients get the
// refreshed screen fragment, plain forms are redirected back to the list.
func (s *Server) respondChanged(w http.ResponseWriter, r *http.Request, window core.Window, event, message string) {
	if !isHTMX(r) {
		http.Redirect(w, r, screenURL(window), http.StatusSeeOther)
		return
	}

	view, err := s.screen.Screen(r.Context(), window)
	if err != nil {
		s.storageFailure(w, r, "Failed to reload expenses", log.OpList, err)
		return
	}
	body, err := s.execute("screen", screenPage{View: view, Windows: core.Windows})
	if err != nil {
		s.renderFailure(w, r, "screen", err)
		return
	}

	NewHTMXResponse().
		TriggerExpenseEvent(event, window).
		TriggerFormReset().
		TriggerSuccessNotification(message).
		BodyHTML(string(body)).
		Write(w)
}

func (s *Server) renderScreen(w http.ResponseWriter, r *http.Request, status int, window core.Window, form core.Draft, errMsg string) {
	view, err := s.screen.Screen(r.Context(), window)
	if err != nil {
		s.storageFailure(w, r, "Failed to list expenses", log.OpList, err)
		return
	}
	s.render(w, r, status, "index.html", screenPage{
		View:    view,
		Windows: core.Windows,
		Form:    form,
		Error:   errMsg,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.execute(name, data)
	if err != nil {
		s.renderFailure(w, r, name, err)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(string(body)).Write(w)
}

// execute renders into a buffer so a failing template never leaves a half-written page.
func (s *Server) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// badBody answers a request body that could not be read or parsed.
func badBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		ErrorResponse(http.StatusRequestEntityTooLarge, "Request too large").Write(w)
		return
	}
	BadRequestError("Malformed request").Write(w)
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, name string, err error) {
	ctx := r.Context()
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Template execution failed", err, log.OpRender, nil)
	InternalServerError("Error rendering page").Write(w)
}

func (s *Server) storageFailure(w http.ResponseWriter, r *http.Request, msg, op string, err error) {
	ctx := r.Context()
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, msg, err, op, nil)
	resp := InternalServerError("Storage error")
	if isHTMX(r) {
		resp.TriggerErrorNotification(msg)
	}
	resp.Write(w)
}
