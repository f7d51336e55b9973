// Package api serves the contact form HTTP endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/shineum/contact-api/internal/mailer"
	"github.com/shineum/contact-api/internal/stats"
)

// Routes served by Handler.
const (
	ContactPath = "/api/contact"
	HealthPath  = "/api/health"
)

// Defaults applied by New when Options leaves them unset.
const (
	// DefaultServiceName is reported by the health endpoint.
	DefaultServiceName = "contact-api"

	// DefaultMaxBodyBytes caps the contact request body.
	DefaultMaxBodyBytes = 10000
)

// Limiter decides whether a client may submit another request.
type Limiter interface {
	Allow(id string) bool
}

// Dispatcher delivers a validated submission.
type Dispatcher interface {
	Send(ctx context.Context, name, email, phone, message string) mailer.Outcome
}

// Options configures a Handler. Limiter and Dispatcher are required.
type Options struct {
	Limiter    Limiter
	Dispatcher Dispatcher
	// Recorder receives one event per contact request outcome. Nil disables stats.
	Recorder stats.Recorder
	Logger   *slog.Logger

	// AllowedOrigins is only consulted when EnforceAllowlist is set.
	// Otherwise the request Origin is echoed back unchanged.
	AllowedOrigins   []string
	EnforceAllowlist bool

	// MaxBodyBytes caps the request body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	ServiceName  string
}

// Handler routes contact API requests.
type Handler struct {
	limiter    Limiter
	dispatcher Dispatcher
	recorder   stats.Recorder
	logger     *slog.Logger

	allowed     map[string]bool
	enforceCORS bool
	maxBody     int64
	service     string

	// throttleLog samples rate limit warnings so a flood of rejections does
	// not flood the log.
	throttleLog *rate.Sometimes

	router chi.Router
}

// New builds a Handler from opts.
func New(opts Options) *Handler {
	h := &Handler{
		limiter:     opts.Limiter,
		dispatcher:  opts.Dispatcher,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
		allowed:     make(map[string]bool, len(opts.AllowedOrigins)),
		enforceCORS: opts.EnforceAllowlist,
		maxBody:     opts.MaxBodyBytes,
		service:     opts.ServiceName,
		throttleLog: &rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
	if h.recorder == nil {
		h.recorder = stats.Nop{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	if h.service == "" {
		h.service = DefaultServiceName
	}
	for _, o := range opts.AllowedOrigins {
		h.allowed[o] = true
	}

	r := chi.NewRouter()
	r.Use(h.requestID, h.accessLog, h.recoverer, h.cors, h.preflight)
	r.Post(ContactPath, h.handleContact)
	r.Get(HealthPath, h.handleHealth)
	r.NotFound(h.handleNotFound)
	r.MethodNotAllowed(h.handleNotFound)
	h.router = r

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: statusOK, Service: h.service})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, msgNotFound)
}

// record stores a stats event without letting a slow or broken store
// affect the response.
func (h *Handler) record(ctx context.Context, o stats.Outcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	if err := h.recorder.Record(ctx, stats.Event{Outcome: o, At: time.Now()}); err != nil {
		h.logger.DebugContext(ctx, "failed to record stats", "event", string(o), "error", err)
	}
}
