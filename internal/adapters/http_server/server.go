package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Timeout        time.Duration
	AllowedOrigins []string
	RatePerMinute  int // per client IP; 0 disables
}

type Server struct {
	mux     *chi.Mux
	timeout time.Duration
}

func New(opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	m := chi.NewRouter()

	// all middlewares go before any routes are added. Observe wraps the
	// per-route Timeout so a timed-out request is logged with its 503.
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(Observe(log.Logger))
	m.Use(chimw.Recoverer)
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", webhookSecretHeader},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: true,
	}))
	if opts.RatePerMinute > 0 {
		m.Use(httprate.LimitByIP(opts.RatePerMinute, time.Minute))
	}

	return &Server{mux: m, timeout: opts.Timeout}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.With(Timeout(s.timeout)).Handle(path, h)
}
