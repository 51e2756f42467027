// Package workflow drives a single user's way through the app: landing page,
// product form, generation, results and the payment modal layered on top.
package workflow

import (
	"encoding/json"

	"github.com/digkill/ecowriter/internal/models"
)

// View is the one active screen. Each variant carries only what it renders.
type View interface {
	viewName() string
}

type LandingView struct{}

// FormView is the product form. Notice is set after a failed generation.
type FormView struct {
	Notice string
}

// LoadingView is shown while Request is being generated.
type LoadingView struct {
	Request models.ProductRequest
}

type ResultsView struct {
	Content models.GeneratedContent
}

func (LandingView) viewName() string { return "landing" }
func (FormView) viewName() string    { return "form" }
func (LoadingView) viewName() string { return "loading" }
func (ResultsView) viewName() string { return "results" }

// Modal is the payment overlay.
type Modal interface {
	modalName() string
}

type PaymentStep string

const (
	StepPay     PaymentStep = "pay"
	StepSuccess PaymentStep = "success"
)

type PaymentClosed struct{}

type PaymentOpen struct {
	Plan models.Plan
	Step PaymentStep
}

func (PaymentClosed) modalName() string { return "closed" }
func (PaymentOpen) modalName() string   { return "open" }

// Snapshot is a copy of the controller state safe to hand to renderers.
type Snapshot struct {
	View  View
	Modal Modal
}

type modalJSON struct {
	Open bool         `json:"open"`
	Plan *models.Plan `json:"plan,omitempty"`
	Step PaymentStep  `json:"step,omitempty"`
}

type snapshotJSON struct {
	View    string                   `json:"view"`
	Notice  string                   `json:"notice,omitempty"`
	Request *models.ProductRequest   `json:"request,omitempty"`
	Content *models.GeneratedContent `json:"content,omitempty"`
	Modal   modalJSON                `json:"modal"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{View: s.View.viewName()}
	switch v := s.View.(type) {
	case FormView:
		out.Notice = v.Notice
	case LoadingView:
		req := v.Request
		req.Image = ""
		out.Request = &req
	case ResultsView:
		content := v.Content
		out.Content = &content
	}
	if open, ok := s.Modal.(PaymentOpen); ok {
		plan := open.Plan
		out.Modal = modalJSON{Open: true, Plan: &plan, Step: open.Step}
	}
	return json.Marshal(out)
}

func cloneContent(c models.GeneratedContent) models.GeneratedContent {
	c.Bullets = append([]string(nil), c.Bullets...)
	c.SEOKeywords = append([]string(nil), c.SEOKeywords...)
	return c
}

func clonePlan(p models.Plan) models.Plan {
	p.Features = append([]string(nil), p.Features...)
	return p
}
