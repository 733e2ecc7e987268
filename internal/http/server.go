package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"timebill/internal/log"
	"timebill/internal/middleware/ratelimit"
	"timebill/internal/middleware/security"
	"timebill/internal/middleware/trace"
	"timebill/internal/services"
	appweb "timebill/web"
)

// Options wires the server to its services and request policies.
type Options struct {
	Addr     string
	Entries  *services.EntryService
	Invoices *services.InvoiceService

	// Ready reports whether the backing store is reachable. Optional.
	Ready func(ctx context.Context) error

	Logger             *log.Logger
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	templates *template.Template
	entries   *services.EntryService
	invoices  *services.InvoiceService
	ready     func(ctx context.Context) error
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	detector  *security.Detector
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDefault()
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		templates: t,
		entries:   opts.Entries,
		invoices:  opts.Invoices,
		ready:     opts.Ready,
		logger:    logger.WithComponent(log.ComponentHTTP),
		tracer:    trace.NewMiddleware(logger, detector.ExtractClientIP),
		detector:  detector,
	}

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static files: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	pages := func(h http.HandlerFunc) http.Handler { return security.NoStoreMiddleware(h) }
	mux.Handle("GET /health", pages(s.handleHealth))
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /{$}", pages(s.handleIndex))
	mux.Handle("POST /log_time", pages(s.handleLogTime))
	mux.Handle("GET /dashboard", pages(s.handleDashboard))
	mux.Handle("POST /edit_time", pages(s.handleEditTime))
	mux.Handle("POST /delete_time", pages(s.handleDeleteTime))
	mux.Handle("GET /invoice", pages(s.handleInvoiceForm))
	mux.Handle("POST /generate_invoice", pages(s.handleGenerateInvoice))

	var handler http.Handler = mux
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		handler = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(handler)
	}
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s, nil
}

// parseTemplates loads the embedded page templates at startup.
func parseTemplates() (*template.Template, error) {
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// metrics snapshots the request counters kept by the middleware chain.
func (s *Server) metrics() map[string]int64 {
	tm := s.tracer.GetMetrics()
	m := map[string]int64{
		"requests_total":      tm.TotalRequests,
		"last_duration_us":    tm.LastDuration,
		"suspicious_requests": s.detector.GetMetrics().SuspiciousRequests,
	}
	if s.limiter != nil {
		rm := s.limiter.GetMetrics()
		m["rate_limited"] = rm.Rejected
		m["rate_limit_clients"] = rm.ClientCount
	}
	return m
}

// Shutdown stops accepting requests and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}
