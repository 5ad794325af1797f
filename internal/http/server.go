package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
	appweb "tally/web"
)

// ExpenseScreen is what the handlers need from the expense service.
type ExpenseScreen interface {
	Add(ctx context.Context, amountText, category, note string) error
	Draft(ctx context.Context, id int64) (core.Draft, error)
	Save(ctx context.Context, id int64, d core.Draft) error
	Remove(ctx context.Context, id int64) error
	Screen(ctx context.Context, w core.Window) (services.ScreenView, error)
}

// Server serves the expense screen on the loopback interface.
type Server struct {
	http.Server
	screen    ExpenseScreen
	templates *template.Template
	trace     *trace.Middleware
	logger    *log.Logger
	startedAt time.Time
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, screen ExpenseScreen, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		screen:    screen,
		templates: t,
		trace:     trace.NewMiddleware(logger),
		logger:    logger,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /expenses/{id}/edit", s.handleEditExpense)
	mux.HandleFunc("POST /expenses/{id}", s.handleSaveExpense)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpense)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.GetRequestID)(handler)
	handler = s.trace.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"money": core.FormatAmount,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	return s.Server.Shutdown(ctx)
}
