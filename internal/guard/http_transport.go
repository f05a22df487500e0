// Package guard provides the portal HTTP transport.
package guard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPTransport serves the portal surface with the defense pipeline mounted
// in front of every route.
type HTTPTransport struct {
	addr         string
	srv          *http.Server
	guard        *Guard
	cors         *CORSPolicy
	credentials  CredentialChecker
	inflight     *InFlight
	appReady     func() bool
	logger       Logger
	enableAuth   bool
	adminToken   string
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
	maxBody      int64
	mu           sync.Mutex
}

// NewHTTPTransport constructs a transport for the guard.
func NewHTTPTransport(g *Guard, ready func() bool) (*HTTPTransport, error) {
	if g == nil || g.cfg == nil {
		return nil, errors.New("guard is required")
	}
	if ready == nil {
		ready = func() bool { return false }
	}
	cfg := g.cfg
	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &StdLogger{}
	}
	credentials := cfg.Credentials
	if credentials == nil {
		// The account store is an external collaborator; without one every
		// credential check fails closed.
		credentials = CredentialCheckerFunc(func(ctx context.Context, username, password string) (bool, error) {
			return false, nil
		})
	}
	return &HTTPTransport{
		addr:         addr,
		guard:        g,
		cors:         NewCORSPolicy(cfg.AllowedOrigins),
		credentials:  credentials,
		inflight:     NewInFlight(),
		appReady:     ready,
		logger:       logger,
		enableAuth:   cfg.EnableAdminAuth,
		adminToken:   cfg.AdminToken,
		readTimeout:  cfg.HTTPReadTimeout,
		writeTimeout: cfg.HTTPWriteTimeout,
		idleTimeout:  cfg.HTTPIdleTimeout,
		maxBody:      cfg.MaxBodyBytes,
	}, nil
}

// Handler builds the portal router: health probes outside the pipeline,
// everything else behind the full middleware chain.
func (t *HTTPTransport) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", t.handleHealth)
	r.Get("/readyz", t.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(t.inflightMiddleware)
		r.Use(t.guard.SecurityHeaders())
		r.Use(t.cors.Middleware())
		r.Use(t.guard.RateLimit())
		r.Use(t.guard.SanitizeInput())
		r.Use(t.guard.ThreatScan())

		r.Route("/v1/auth", func(r chi.Router) {
			r.Use(t.guard.AuthRateLimit())
			r.Post("/login", t.handleLogin)
		})

		r.Get("/v1/portal/ping", t.handlePing)

		r.Route("/v1/admin", func(r chi.Router) {
			r.Get("/blocked", t.handleBlockedList)
			r.Post("/blocked", t.handleBlock)
			r.Delete("/blocked", t.handleUnblock)
			r.Get("/trusted", t.handleTrustedList)
			r.Post("/trusted", t.handleTrust)
			r.Delete("/trusted", t.handleUntrust)
			r.Get("/metrics", t.handleMetrics)
		})
	})

	return r
}

// Start begins serving HTTP requests.
func (t *HTTPTransport) Start() error {
	if t == nil {
		return errors.New("http transport is nil")
	}
	t.mu.Lock()
	if t.srv == nil {
		t.srv = &http.Server{
			Addr:         t.addr,
			Handler:      t.Handler(),
			ReadTimeout:  t.readTimeout,
			WriteTimeout: t.writeTimeout,
			IdleTimeout:  t.idleTimeout,
		}
	}
	srv := t.srv
	t.mu.Unlock()

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown refuses new requests, waits for in flight ones, then stops the
// server.
func (t *HTTPTransport) Shutdown(ctx context.Context) error {
	if t == nil {
		return errors.New("http transport is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t.inflight.Close()
	if err := t.inflight.Wait(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	srv := t.srv
	t.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (t *HTTPTransport) inflightMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.inflight.Begin() {
			writeJSON(w, http.StatusServiceUnavailable, httpErrorResponse{Error: "shutting down"})
			return
		}
		defer t.inflight.End()
		next.ServeHTTP(w, r)
	})
}
