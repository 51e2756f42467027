package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/digkill/ecowriter/internal/models"
	"github.com/digkill/ecowriter/internal/service"
)

type PaymentReviewer interface {
	List(ctx context.Context) ([]models.Payment, error)
	Review(ctx context.Context, input service.ReviewInput) (*models.Payment, error)
}

type Server struct {
	addr         string
	username     string
	passwordHash []byte
	log          *slog.Logger
	payments     PaymentReviewer
	router       *chi.Mux
}

func NewServer(addr, username, passwordHash string, log *slog.Logger, payments PaymentReviewer) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:         addr,
		username:     username,
		passwordHash: []byte(passwordHash),
		log:          log,
		payments:     payments,
		router:       r,
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/api/admin/payments", s.handleListPayments)
		protected.Patch("/api/admin/payments", s.handleReviewPayment)
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin panel listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.payments.List(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

// reviewRequest accepts the id as a JSON number or a numeric string.
type reviewRequest struct {
	ID        json.RawMessage `json:"id"`
	Action    string          `json:"action"`
	AdminNote *string         `json:"adminNote"`
}

func (s *Server) handleReviewPayment(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	id, err := parseID(req.ID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	payment, err := s.payments.Review(r.Context(), service.ReviewInput{
		ID:        id,
		Action:    service.ReviewAction(strings.ToLower(strings.TrimSpace(req.Action))),
		AdminNote: req.AdminNote,
	})
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidAction):
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	case errors.Is(err, service.ErrPaymentNotFound):
		s.writeError(w, http.StatusNotFound, "Payment not found")
		return
	case err != nil:
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || !s.authorized(user, pass) {
				w.Header().Set("WWW-Authenticate", `Basic realm="ecowriter-admin"`)
				s.writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) authorized(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(pass)) == nil
	return userOK && passOK
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	s.writeError(w, http.StatusInternalServerError, "Server error")
}

// parseID yields 0 for an absent id so the service reports it as invalid.
func parseID(raw json.RawMessage) (int64, error) {
	value := strings.TrimSpace(string(raw))
	if value == "" || value == "null" {
		return 0, nil
	}
	if unquoted, err := strconv.Unquote(value); err == nil {
		value = strings.TrimSpace(unquoted)
	}
	return strconv.ParseInt(value, 10, 64)
}
