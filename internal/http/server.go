package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/flow"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
	appweb "bilancio/web"
)

// Options wires the server to its collaborators. Store is required; a nil
// Publisher or Importer disables events or spreadsheet import.
type Options struct {
	Store     storage.Store
	Publisher services.Publisher
	Importer  sheets.EntrySource
	Params    flow.Params
	Logger    *applog.Logger

	RateLimitPerMinute int
	MetricsEnabled     bool
	SessionTTL         time.Duration
	SessionMax         int
	CanvasWidth        int
	CanvasHeight       int

	// Ready, when set, is part of the readiness check.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	templates *template.Template
	store     storage.Store
	budgets   *services.BudgetService
	importer  sheets.EntrySource
	params    flow.Params
	logger    *applog.Logger
	structLog *applog.StructuredLogger
	ready     func(ctx context.Context) error

	sessions     *sessionStore
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter
	detector     *security.Detector

	metricsEnabled bool
	canvasWidth    int
	canvasHeight   int
	startedAt      time.Time
	now            func() time.Time
	shutdownOnce   sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. Call Shutdown to stop background cleanup.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.SessionMax <= 0 {
		opts.SessionMax = 256
	}
	if opts.CanvasWidth <= 0 || opts.CanvasHeight <= 0 {
		opts.CanvasWidth, opts.CanvasHeight = 960, 540
	}
	if opts.Params.NodeWidth == 0 {
		opts.Params = flow.DefaultParams()
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:          opts.Store,
		budgets:        services.NewBudgetService(opts.Store, opts.Publisher, opts.Logger),
		importer:       opts.Importer,
		params:         opts.Params,
		logger:         logger,
		structLog:      applog.NewStructuredLogger(logger),
		ready:          opts.Ready,
		cacheManager:   cache.NewManager(logger.Logger),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		metricsEnabled: opts.MetricsEnabled,
		canvasWidth:    opts.CanvasWidth,
		canvasHeight:   opts.CanvasHeight,
		startedAt:      time.Now(),
		now:            time.Now,
	}
	s.sessions = newSessionStore(opts.SessionMax, opts.SessionTTL, opts.Params, func() time.Time { return s.now() })
	s.cacheManager.Register("diagram_sessions", s.sessions.cache)
	s.cacheManager.StartCleanup(time.Minute)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	s.Handler = s.routes()
	return s
}

var templateFuncs = template.FuncMap{
	"amount":     core.FormatAmount,
	"date":       func(t time.Time) string { return t.Local().Format("2 Jan 2006 15:04") },
	"blankEntry": func() core.RawEntry { return core.RawEntry{} },
	"dict":       dict,
}

// dict builds a map from alternating keys and values so a template can pass
// several values to a sub-template.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Handle("/static/*", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.Get("/", s.handleIndex)
	r.With(limit).Post("/budgets", s.handleCreateBudget)
	r.Route("/budgets/{id}", func(r chi.Router) {
		r.Get("/", s.handleBudgetPage)
		r.Post("/entries", s.handleSaveEntries)
		r.Post("/delete", s.handleDeleteBudget)
		r.With(limit).Post("/import", s.handleImport)
		r.Get("/diagram.svg", s.handleDiagramSVG)
		r.Get("/snapshot.svg", s.handleSnapshotSVG)
	})

	r.Route("/api", func(r chi.Router) {
		r.With(limit).Post("/render", s.handleAPIRender)
		r.With(limit).Post("/diagrams", s.handleCreateSession)
		r.Route("/diagrams/{sid}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/pointer", s.handleSessionPointer)
			r.Post("/tick", s.handleSessionTick)
			r.Post("/click", s.handleSessionClick)
			r.Post("/view", s.handleSessionView)
		})
	})

	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "" && isAPI(r) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, try again in a minute.").Write(w)
}

func isAPI(r *http.Request) bool {
	return len(r.URL.Path) >= 5 && r.URL.Path[:5] == "/api/"
}

// Shutdown stops background goroutines, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
