package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "outlay/internal/log"
	"outlay/internal/middleware/ratelimit"
	"outlay/internal/middleware/security"
	"outlay/internal/middleware/trace"
	"outlay/internal/services"
	appweb "outlay/web"
)

// pageFiles are rendered inside layout.html; partials.html is shared by all.
var pageFiles = []string{"dashboard.html", "expenses.html", "expense_form.html", "settings.html"}

// Options wires a Server to its services.
type Options struct {
	Addr               string
	Expenses           *services.ExpenseService
	Settings           *services.SettingsService
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Ready is consulted by /readyz; nil means always ready.
	Ready func(context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server
	pages    map[string]*template.Template
	expenses *services.ExpenseService
	settings *services.SettingsService
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	ready    func(context.Context) error
	now      func() time.Time
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Expenses == nil || opts.Settings == nil {
		return nil, fmt.Errorf("new server: expense and settings services are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	pages, err := parsePages(appweb.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	s := &Server{
		pages:    pages,
		expenses: opts.Expenses,
		settings: opts.Settings,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		ready:    opts.Ready,
		now:      opts.Now,
		started:  opts.Now(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limitWrites(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleDashboard)

	mux.HandleFunc("GET /expenses", s.handleExpenseList)
	mux.HandleFunc("GET /ui/expenses", s.handleExpenseListPartial)
	mux.HandleFunc("GET /expenses/new", s.handleNewExpenseForm)
	mux.HandleFunc("GET /expenses/{id}/edit", s.handleEditExpenseForm)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /settings", s.handleSettings)
	mux.HandleFunc("POST /settings/theme", s.handleSetTheme)
	mux.HandleFunc("POST /settings/currency", s.handleSetCurrency)
	mux.HandleFunc("POST /settings/limit", s.handleSetLimit)
	mux.HandleFunc("POST /settings/delete-all", s.handleDeleteAllExpenses)

	mux.HandleFunc("GET /categories", s.handleCategoryOptions)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("POST /categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("POST /categories/{id}/delete", s.handleDeleteCategory)

	mux.HandleFunc("GET /events", s.handleEvents)
}

// limitWrites rate limits state-changing requests only; reads and the event
// stream are not counted.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, nil)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(templateFuncs()).ParseFS(fsys, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		t, err := template.Must(base.Clone()).ParseFS(fsys, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Shutdown stops background work and then the HTTP server. Safe to call more
// than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics exposes request and security counters for /readyz.
func (s *Server) Metrics() map[string]interface{} {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()
	return map[string]interface{}{
		"requests_total":      tm.TotalRequests,
		"server_errors":       tm.ServerErrors,
		"avg_response_micros": tm.AverageResponseTime,
		"rate_limited":        rm.TotalHits,
		"rate_limit_clients":  rm.ClientCount,
		"suspicious_requests": dm.SuspiciousRequests,
		"blocked_requests":    dm.BlockedRequests,
	}
}
