package service

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/digkill/ecowriter/internal/config"
	"github.com/digkill/ecowriter/internal/models"
)

var ErrInvalidPlan = errors.New("invalid plan")

type PlanService struct {
	plans     []models.Plan
	payeeID   string
	payeeName string
	currency  string
}

// PaymentInstructions tells the buyer where to send a UPI payment for a plan.
type PaymentInstructions struct {
	Plan      models.Plan `json:"plan"`
	PayeeID   string      `json:"payeeId"`
	PayeeName string      `json:"payeeName"`
	UPILink   string      `json:"upiLink"`
	QRCodeURL string      `json:"qrCodeUrl"`
}

func NewPlanService(cfg config.Config) *PlanService {
	currency := cfg.PaymentCurrency
	if currency == "" {
		currency = "INR"
	}
	symbol := currencySymbol(currency)
	return &PlanService{
		payeeID:   cfg.UPIPayeeID,
		payeeName: cfg.UPIPayeeName,
		currency:  currency,
		plans: []models.Plan{
			{
				ID:              models.PlanFree,
				Name:            "Free",
				Price:           formatPrice(symbol, 0),
				Currency:        currency,
				PriceMinorUnits: 0,
				Features:        []string{"10 Generations/mo", "Basic SEO", "Standard Support"},
			},
			{
				ID:              models.PlanPro,
				Name:            "Pro",
				Price:           formatPrice(symbol, cfg.ProPriceMinor),
				Period:          "/mo",
				Currency:        currency,
				PriceMinorUnits: cfg.ProPriceMinor,
				Features:        []string{"Unlimited Generations", "All Platforms (Insta, Shopify...)", "Save Projects", "Priority Support"},
			},
			{
				ID:              models.PlanBusiness,
				Name:            "Business",
				Price:           formatPrice(symbol, cfg.BusinessPriceMinor),
				Period:          "/mo",
				Currency:        currency,
				PriceMinorUnits: cfg.BusinessPriceMinor,
				Features:        []string{"Bulk CSV Generator", "API Access", "Team Accounts", "Brand Tone Presets"},
			},
		},
	}
}

func (s *PlanService) List() []models.Plan {
	out := make([]models.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

// Find resolves a plan by id or display name, case-insensitively.
func (s *PlanService) Find(name string) (models.Plan, bool) {
	name = strings.TrimSpace(name)
	for _, plan := range s.plans {
		if strings.EqualFold(string(plan.ID), name) || strings.EqualFold(plan.Name, name) {
			return plan, true
		}
	}
	return models.Plan{}, false
}

// FindPaid is Find restricted to plans that require a payment proof.
func (s *PlanService) FindPaid(name string) (models.Plan, error) {
	plan, ok := s.Find(name)
	if !ok {
		return models.Plan{}, fmt.Errorf("%w: unknown plan %q", ErrInvalidPlan, name)
	}
	if plan.Free() {
		return models.Plan{}, fmt.Errorf("%w: %s plan needs no payment", ErrInvalidPlan, plan.Name)
	}
	return plan, nil
}

func (s *PlanService) PaymentInstructions(name string) (*PaymentInstructions, error) {
	plan, err := s.FindPaid(name)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("pa", s.payeeID)
	params.Set("pn", s.payeeName)
	params.Set("am", formatAmount(plan.PriceMinorUnits))
	params.Set("cu", s.currency)
	params.Set("tn", "ECOWRITER "+plan.Name)
	link := "upi://pay?" + params.Encode()

	qr := url.Values{}
	qr.Set("size", "200x200")
	qr.Set("data", link)

	return &PaymentInstructions{
		Plan:      plan,
		PayeeID:   s.payeeID,
		PayeeName: s.payeeName,
		UPILink:   link,
		QRCodeURL: "https://api.qrserver.com/v1/create-qr-code/?" + qr.Encode(),
	}, nil
}

func currencySymbol(currency string) string {
	switch strings.ToUpper(currency) {
	case "INR":
		return "₹"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	default:
		return strings.ToUpper(currency) + " "
	}
}

func formatPrice(symbol string, minor int) string {
	if minor%100 == 0 {
		return symbol + strconv.Itoa(minor/100)
	}
	return symbol + formatAmount(minor)
}

func formatAmount(minor int) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
