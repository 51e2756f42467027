package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/digkill/ecowriter/internal/models"
	"github.com/digkill/ecowriter/internal/service"
)

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrNoContent          = errors.New("no generated content")
	ErrSubmissionInFlight = errors.New("payment submission in progress")
)

const (
	GenerationFailedNotice = "Something went wrong with the AI. Please try again."
	ExportFilename         = "product-description.json"
)

type Generator interface {
	Generate(ctx context.Context, req models.ProductRequest) (*models.GeneratedContent, error)
}

type ProofSubmitter interface {
	Submit(ctx context.Context, proof service.ProofSubmission) (*service.Ack, error)
}

type PlanCatalog interface {
	Find(name string) (models.Plan, bool)
}

// Controller holds one user's state. The lock is never held while the
// generator or the submitter runs; Loading and the in-flight flag keep other
// events out meanwhile.
type Controller struct {
	log       *slog.Logger
	generator Generator
	submitter ProofSubmitter
	plans     PlanCatalog

	mu         sync.Mutex
	view       View
	modal      Modal
	request    *models.ProductRequest
	submitting bool
}

func NewController(log *slog.Logger, generator Generator, submitter ProofSubmitter, plans PlanCatalog) *Controller {
	return &Controller{
		log:       log,
		generator: generator,
		submitter: submitter,
		plans:     plans,
		view:      LandingView{},
		modal:     PaymentClosed{},
	}
}

func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	view := c.view
	if results, ok := view.(ResultsView); ok {
		view = ResultsView{Content: cloneContent(results.Content)}
	}
	modal := c.modal
	if open, ok := modal.(PaymentOpen); ok {
		modal = PaymentOpen{Plan: clonePlan(open.Plan), Step: open.Step}
	}
	return Snapshot{View: view, Modal: modal}
}

func (c *Controller) invalid(event string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, c.view.viewName())
}

func (c *Controller) modalOpenLocked() bool {
	_, open := c.modal.(PaymentOpen)
	return open
}

func (c *Controller) Start() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.view.(LandingView); !ok || c.modalOpenLocked() {
		return c.snapshotLocked(), c.invalid("start")
	}
	c.view = FormView{}
	return c.snapshotLocked(), nil
}

// SelectPlan moves straight to the form for the free tier and opens the
// payment modal over the landing page for anything priced.
func (c *Controller) SelectPlan(name string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.view.(LandingView); !ok || c.modalOpenLocked() {
		return c.snapshotLocked(), c.invalid("select plan")
	}
	plan, ok := c.plans.Find(name)
	if !ok {
		return c.snapshotLocked(), fmt.Errorf("%w: unknown plan %q", service.ErrInvalidPlan, name)
	}
	if plan.Free() {
		c.view = FormView{}
	} else {
		c.modal = PaymentOpen{Plan: plan, Step: StepPay}
	}
	return c.snapshotLocked(), nil
}

// Submit generates copy for req. A failed generation lands back on the form
// with a notice and is not returned as an error; invalid input is.
func (c *Controller) Submit(ctx context.Context, req models.ProductRequest) (Snapshot, error) {
	c.mu.Lock()
	if _, ok := c.view.(FormView); !ok {
		defer c.mu.Unlock()
		return c.snapshotLocked(), c.invalid("submit")
	}
	stored := req
	c.request = &stored
	c.view = LoadingView{Request: req}
	c.mu.Unlock()

	return c.generate(ctx, req)
}

// Regenerate re-issues the stored request as is, or returns to the form when
// there is none.
func (c *Controller) Regenerate(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if _, ok := c.view.(ResultsView); !ok {
		defer c.mu.Unlock()
		return c.snapshotLocked(), c.invalid("regenerate")
	}
	if c.request == nil {
		defer c.mu.Unlock()
		c.view = FormView{}
		return c.snapshotLocked(), nil
	}
	req := *c.request
	c.view = LoadingView{Request: req}
	c.mu.Unlock()

	return c.generate(ctx, req)
}

func (c *Controller) generate(ctx context.Context, req models.ProductRequest) (Snapshot, error) {
	content, err := c.generator.Generate(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case errors.Is(err, service.ErrInvalidProduct):
		c.view = FormView{Notice: err.Error()}
		return c.snapshotLocked(), err
	case err != nil:
		c.log.Warn("generation failed, back to form", "product", req.ProductName, "err", err)
		c.view = FormView{Notice: GenerationFailedNotice}
		return c.snapshotLocked(), nil
	case content == nil:
		c.view = FormView{Notice: GenerationFailedNotice}
		return c.snapshotLocked(), nil
	}
	c.view = ResultsView{Content: cloneContent(*content)}
	return c.snapshotLocked(), nil
}

func (c *Controller) Back() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.view.(ResultsView); !ok {
		return c.snapshotLocked(), c.invalid("back")
	}
	c.view = FormView{}
	return c.snapshotLocked(), nil
}

// Reset returns home from the form or the results, forgetting the request.
func (c *Controller) Reset() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.view.(type) {
	case FormView, ResultsView:
	default:
		return c.snapshotLocked(), c.invalid("reset")
	}
	c.view = LandingView{}
	c.request = nil
	return c.snapshotLocked(), nil
}

// SubmitProof sends a payment proof for the plan shown in the modal. On
// failure the modal stays on the pay step so the user can retry.
func (c *Controller) SubmitProof(ctx context.Context, proof service.ProofSubmission) (Snapshot, error) {
	c.mu.Lock()
	open, ok := c.modal.(PaymentOpen)
	switch {
	case c.submitting:
		defer c.mu.Unlock()
		return c.snapshotLocked(), ErrSubmissionInFlight
	case !ok || open.Step != StepPay:
		defer c.mu.Unlock()
		return c.snapshotLocked(), fmt.Errorf("%w: submit proof without open payment", ErrInvalidTransition)
	case proof.Screenshot == nil || len(proof.Screenshot.Data) == 0:
		defer c.mu.Unlock()
		return c.snapshotLocked(), service.ErrScreenshotRequired
	}
	proof.PlanName = open.Plan.Name
	c.submitting = true
	c.mu.Unlock()

	_, err := c.submitter.Submit(ctx, proof)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		return c.snapshotLocked(), err
	}
	c.modal = PaymentOpen{Plan: open.Plan, Step: StepSuccess}
	return c.snapshotLocked(), nil
}

func (c *Controller) DismissSuccess() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if open, ok := c.modal.(PaymentOpen); !ok || open.Step != StepSuccess {
		return c.snapshotLocked(), fmt.Errorf("%w: nothing to dismiss", ErrInvalidTransition)
	}
	c.modal = PaymentClosed{}
	return c.snapshotLocked(), nil
}

func (c *Controller) ClosePayment() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return c.snapshotLocked(), ErrSubmissionInFlight
	}
	if !c.modalOpenLocked() {
		return c.snapshotLocked(), fmt.Errorf("%w: payment is not open", ErrInvalidTransition)
	}
	c.modal = PaymentClosed{}
	return c.snapshotLocked(), nil
}

// Export renders the current results as the downloadable JSON document.
func (c *Controller) Export() ([]byte, error) {
	c.mu.Lock()
	results, ok := c.view.(ResultsView)
	c.mu.Unlock()
	if !ok {
		return nil, ErrNoContent
	}
	data, err := json.MarshalIndent(results.Content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return data, nil
}
