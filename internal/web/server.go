package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rs/cors"

	"github.com/digkill/ecowriter/internal/service"
	"github.com/digkill/ecowriter/internal/workflow"
)

type Options struct {
	Addr              string
	AllowedOrigins    []string
	SessionKey        []byte
	CookieSecure      bool
	MaxUploadBytes    int64
	RequestTimeout    time.Duration
	GenerationTimeout time.Duration
}

// Server is the public API used by the single page app.
type Server struct {
	opts      Options
	log       *slog.Logger
	generator workflow.Generator
	submitter workflow.ProofSubmitter
	plans     *service.PlanService
	sessions  *workflow.Sessions
	cookies   *sessions.CookieStore
	handler   http.Handler
}

func NewServer(opts Options, log *slog.Logger, generator workflow.Generator, submitter workflow.ProofSubmitter, plans *service.PlanService, controllers *workflow.Sessions) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	cookies := sessions.NewCookieStore(opts.SessionKey)
	cookies.Options.HttpOnly = true
	cookies.Options.Secure = opts.CookieSecure
	cookies.Options.SameSite = http.SameSiteLaxMode
	cookies.Options.Path = "/"

	s := &Server{
		opts:      opts,
		log:       log,
		generator: generator,
		submitter: submitter,
		plans:     plans,
		sessions:  controllers,
		cookies:   cookies,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/plans", s.handleListPlans)
		r.Get("/plans/{id}/payment", s.handlePaymentInstructions)
		r.Post("/generate", s.handleGenerate)
		r.Post("/payments/submit", s.handleSubmitPayment)

		r.Route("/session", func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Get("/", s.handleState)
			r.Post("/start", s.handleStart)
			r.Post("/plan", s.handleSelectPlan)
			r.Post("/submit", s.handleSessionSubmit)
			r.Post("/back", s.handleBack)
			r.Post("/reset", s.handleReset)
			r.Post("/regenerate", s.handleRegenerate)
			r.Post("/payment", s.handleSessionPayment)
			r.Post("/payment/close", s.handleClosePayment)
			r.Post("/payment/dismiss", s.handleDismissPayment)
			r.Get("/export", s.handleExport)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	s.handler = c.Handler(r)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.opts.RequestTimeout,
		WriteTimeout:      s.opts.RequestTimeout + s.opts.GenerationTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("app shutdown error", "err", err)
		}
	}()

	s.log.Info("app server listening", "addr", s.opts.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("app listen: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
