package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/ecowriter/internal/models"
	"github.com/digkill/ecowriter/internal/storage"
)

var (
	ErrSubmission         = errors.New("payment submission failed")
	ErrScreenshotRequired = errors.New("payment screenshot required")
	ErrInvalidProof       = errors.New("invalid payment proof")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrInvalidAction      = errors.New("invalid review action")
	ErrInvalidRequest     = errors.New("invalid request")
)

type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
)

type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context) ([]models.Payment, error)
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	UpdateReview(ctx context.Context, payment *models.Payment) error
}

type ScreenshotStorage interface {
	Put(ctx context.Context, proof storage.Proof) (string, error)
}

// Notifier is told about payment lifecycle events. Failures never block the caller.
type Notifier interface {
	PaymentSubmitted(ctx context.Context, payment models.Payment) error
	PaymentReviewed(ctx context.Context, payment models.Payment) error
}

type Screenshot struct {
	Data        []byte
	ContentType string
	Filename    string
}

type ProofSubmission struct {
	Name       string
	Email      string
	UPIID      string
	TxnID      string
	PlanName   string
	Amount     string
	Screenshot *Screenshot
}

type Ack struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID int64  `json:"paymentId,omitempty"`
}

type ReviewInput struct {
	ID        int64
	Action    ReviewAction
	AdminNote *string
}

type PaymentService struct {
	log                *slog.Logger
	payments           PaymentStore
	plans              *PlanService
	storage            ScreenshotStorage
	notifier           Notifier
	screenshotMaxWidth uint
	now                func() time.Time
}

func NewPaymentService(log *slog.Logger, payments PaymentStore, plans *PlanService, storage ScreenshotStorage, notifier Notifier, screenshotMaxWidth int) *PaymentService {
	if screenshotMaxWidth < 0 {
		screenshotMaxWidth = 0
	}
	return &PaymentService{
		log:                log,
		payments:           payments,
		plans:              plans,
		storage:            storage,
		notifier:           notifier,
		screenshotMaxWidth: uint(screenshotMaxWidth),
		now:                time.Now,
	}
}

// Submit stores a pending payment proof. Identical submissions create
// separate records; deduplication is up to the reviewer.
func (s *PaymentService) Submit(ctx context.Context, proof ProofSubmission) (*Ack, error) {
	if proof.Screenshot == nil || len(proof.Screenshot.Data) == 0 {
		return nil, ErrScreenshotRequired
	}
	var missing []string
	if strings.TrimSpace(proof.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(proof.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(proof.UPIID) == "" {
		missing = append(missing, "upiId")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidProof, strings.Join(missing, ", "))
	}

	plan, err := s.plans.FindPaid(proof.PlanName)
	if err != nil {
		return nil, err
	}
	if proof.Amount != "" && proof.Amount != plan.Price {
		s.log.Warn("submitted amount differs from plan price", "plan", plan.ID, "submitted", proof.Amount, "price", plan.Price)
	}

	data, contentType := proof.Screenshot.Data, proof.Screenshot.ContentType
	normalized, normalizedType, err := storage.NormalizeImage(data, s.screenshotMaxWidth)
	if err != nil {
		s.log.Warn("screenshot kept as uploaded", "filename", proof.Screenshot.Filename, "err", err)
		if contentType == "" {
			contentType = storage.DetectContentType(data)
		}
	} else {
		data, contentType = normalized, normalizedType
	}

	screenshotURL, err := s.storage.Put(ctx, storage.Proof{
		Plan:        string(plan.ID),
		Filename:    proof.Screenshot.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		s.log.Error("upload payment screenshot", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	payment := &models.Payment{
		Name:          strings.TrimSpace(proof.Name),
		Email:         strings.TrimSpace(proof.Email),
		UPIID:         strings.TrimSpace(proof.UPIID),
		TransactionID: strings.TrimSpace(proof.TxnID),
		Amount:        plan.PriceMinorUnits,
		Currency:      plan.Currency,
		Plan:          plan.ID,
		ScreenshotURL: screenshotURL,
		Status:        models.PaymentPending,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		s.log.Error("record payment proof", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	s.log.Info("payment proof submitted", "payment_id", payment.ID, "plan", payment.Plan, "email", payment.Email)
	if err := s.notifier.PaymentSubmitted(ctx, *payment); err != nil {
		s.log.Error("notify payment submitted", "payment_id", payment.ID, "err", err)
	}

	return &Ack{
		Success:   true,
		Message:   "Payment submitted successfully",
		PaymentID: payment.ID,
	}, nil
}

// List returns every payment, newest first.
func (s *PaymentService) List(ctx context.Context) ([]models.Payment, error) {
	payments, err := s.payments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Review approves or rejects a payment. Concurrent reviews are not
// coordinated: the last write wins.
func (s *PaymentService) Review(ctx context.Context, input ReviewInput) (*models.Payment, error) {
	if input.ID <= 0 {
		return nil, fmt.Errorf("%w: id required", ErrInvalidRequest)
	}
	if input.Action != ActionApprove && input.Action != ActionReject {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, input.Action)
	}

	payment, err := s.payments.GetByID(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	switch input.Action {
	case ActionApprove:
		verifiedAt := s.now().UTC()
		payment.Status = models.PaymentApproved
		payment.VerifiedAt = &verifiedAt
	case ActionReject:
		payment.Status = models.PaymentRejected
		payment.VerifiedAt = nil
	}
	if input.AdminNote != nil && *input.AdminNote != "" {
		payment.AdminNote = *input.AdminNote
	}

	if err := s.payments.UpdateReview(ctx, payment); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	s.log.Info("payment reviewed", "payment_id", payment.ID, "status", payment.Status)
	if err := s.notifier.PaymentReviewed(ctx, *payment); err != nil {
		s.log.Error("notify payment reviewed", "payment_id", payment.ID, "err", err)
	}
	return payment, nil
}
