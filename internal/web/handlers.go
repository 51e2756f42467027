package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/ecowriter/internal/models"
	"github.com/digkill/ecowriter/internal/service"
	"github.com/digkill/ecowriter/internal/workflow"
)

func (s *Server) handleListPlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plans": s.plans.List()})
}

func (s *Server) handlePaymentInstructions(w http.ResponseWriter, r *http.Request) {
	instructions, err := s.plans.PaymentInstructions(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, instructions)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeProduct(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content, err := s.generator.Generate(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, workflow.GenerationFailedNotice)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	proof, err := s.parseProof(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, service.Ack{Message: err.Error()})
		return
	}
	ack, err := s.submitter.Submit(r.Context(), proof)
	if err != nil {
		status := proofErrorStatus(err)
		message := err.Error()
		if status >= http.StatusInternalServerError {
			message = "Payment submission failed. Please try again."
		}
		writeJSON(w, status, service.Ack{Message: message})
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func proofErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrScreenshotRequired),
		errors.Is(err, service.ErrInvalidProof),
		errors.Is(err, service.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSubmission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decodeProduct(w http.ResponseWriter, r *http.Request) (models.ProductRequest, error) {
	var req models.ProductRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.ProductRequest{}, errors.New("invalid json")
	}
	return req, nil
}

// parseProof reads the multipart payment form. A missing screenshot is left
// nil for the service to reject.
func (s *Server) parseProof(w http.ResponseWriter, r *http.Request) (service.ProofSubmission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		return service.ProofSubmission{}, errors.New("invalid multipart form")
	}
	proof := service.ProofSubmission{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		UPIID:    r.FormValue("upiId"),
		TxnID:    r.FormValue("txnId"),
		PlanName: r.FormValue("planName"),
		Amount:   r.FormValue("amount"),
	}

	file, header, err := r.FormFile("screenshot")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return proof, nil
	case err != nil:
		return service.ProofSubmission{}, errors.New("invalid screenshot upload")
	}
	defer file.Close()

	screenshot, err := readScreenshot(file, header)
	if err != nil {
		return service.ProofSubmission{}, err
	}
	proof.Screenshot = screenshot
	return proof, nil
}

func readScreenshot(file multipart.File, header *multipart.FileHeader) (*service.Screenshot, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("read screenshot")
	}
	if len(data) == 0 {
		return nil, nil
	}
	contentType := header.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = ""
	}
	return &service.Screenshot{Data: data, ContentType: contentType, Filename: header.Filename}, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
