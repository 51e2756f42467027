package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/digkill/ecowriter/internal/service"
	"github.com/digkill/ecowriter/internal/workflow"
)

const (
	sessionCookieName = "ecowriter-session"
	sessionIDKey      = "sid"
)

type ctxKey int

const controllerKey ctxKey = iota

// sessionMiddleware binds the request to the caller's controller, issuing a
// new session id when the cookie is missing or cannot be decoded.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.cookies.Get(r, sessionCookieName)
		if err != nil {
			s.log.Debug("discarding unreadable session cookie", "err", err)
		}
		id, _ := session.Values[sessionIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			session.Values[sessionIDKey] = id
			if err := session.Save(r, w); err != nil {
				s.log.Error("save session", "err", err)
				writeError(w, http.StatusInternalServerError, "session unavailable")
				return
			}
		}
		ctx := context.WithValue(r.Context(), controllerKey, s.sessions.Get(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func controllerFrom(r *http.Request) *workflow.Controller {
	return r.Context().Value(controllerKey).(*workflow.Controller)
}

type stateError struct {
	Error string            `json:"error"`
	State workflow.Snapshot `json:"state"`
}

func (s *Server) writeState(w http.ResponseWriter, state workflow.Snapshot, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, state)
		return
	}
	status := http.StatusInternalServerError
	message := err.Error()
	switch {
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrScreenshotRequired),
		errors.Is(err, service.ErrInvalidProof):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSubmission):
		status = http.StatusBadGateway
		message = "Payment submission failed. Please try again."
	default:
		s.log.Error("session handler error", "err", err)
		message = "Server error"
	}
	writeJSON(w, status, stateError{Error: message, State: state})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, controllerFrom(r).State())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	state, err := controllerFrom(r).Start()
	s.writeState(w, state, err)
}

type selectPlanRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	var req selectPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	state, err := controllerFrom(r).SelectPlan(req.Plan)
	s.writeState(w, state, err)
}

func (s *Server) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeProduct(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := controllerFrom(r).Submit(r.Context(), req)
	s.writeState(w, state, err)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	state, err := controllerFrom(r).Back()
	s.writeState(w, state, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := controllerFrom(r).Reset()
	s.writeState(w, state, err)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	state, err := controllerFrom(r).Regenerate(r.Context())
	s.writeState(w, state, err)
}

func (s *Server) handleSessionPayment(w http.ResponseWriter, r *http.Request) {
	proof, err := s.parseProof(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := controllerFrom(r).SubmitProof(r.Context(), proof)
	s.writeState(w, state, err)
}

func (s *Server) handleClosePayment(w http.ResponseWriter, r *http.Request) {
	state, err := controllerFrom(r).ClosePayment()
	s.writeState(w, state, err)
}

func (s *Server) handleDismissPayment(w http.ResponseWriter, r *http.Request) {
	state, err := controllerFrom(r).DismissSuccess()
	s.writeState(w, state, err)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := controllerFrom(r).Export()
	if errors.Is(err, workflow.ErrNoContent) {
		writeError(w, http.StatusConflict, "nothing to export")
		return
	}
	if err != nil {
		s.log.Error("export content", "err", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+workflow.ExportFilename+`"`)
	_, _ = w.Write(data)
}
