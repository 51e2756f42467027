package models

import "time"

type Tone string

const (
	ToneProfessional Tone = "Professional"
	ToneLuxury       Tone = "Luxury"
	ToneFunny        Tone = "Funny"
	ToneMinimalist   Tone = "Minimalist"
	ToneEmotional    Tone = "Emotional"
	ToneSalesy       Tone = "Salesy"
)

var Tones = []Tone{ToneProfessional, ToneLuxury, ToneFunny, ToneMinimalist, ToneEmotional, ToneSalesy}

func (t Tone) Valid() bool {
	for _, known := range Tones {
		if t == known {
			return true
		}
	}
	return false
}

// ProductRequest is the product form as submitted. Image, when set, is a data URI.
type ProductRequest struct {
	ProductName string `json:"productName"`
	Category    string `json:"category"`
	Features    string `json:"features"`
	Brand       string `json:"brand"`
	Tone        Tone   `json:"tone"`
	Audience    string `json:"audience"`
	Image       string `json:"image,omitempty"`
}

type PlatformCopy struct {
	Amazon           string `json:"amazon"`
	Meesho           string `json:"meesho"`
	Shopify          string `json:"shopify"`
	InstagramCaption string `json:"instagram_caption"`
	WhatsAppMessage  string `json:"whatsapp_message"`
}

type GeneratedContent struct {
	Title           string       `json:"title"`
	Bullets         []string     `json:"bullets"`
	LongDescription string       `json:"long_description"`
	PlatformCopy    PlatformCopy `json:"platform_copy"`
	SEOKeywords     []string     `json:"seo_keywords"`
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

type PlanID string

const (
	PlanFree     PlanID = "free"
	PlanPro      PlanID = "pro"
	PlanBusiness PlanID = "business"
)

// Payment is a manually verified UPI payment proof. Amount is in minor units.
type Payment struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	UPIID         string        `json:"upiId"`
	TransactionID string        `json:"transactionId,omitempty"`
	Amount        int           `json:"amount"`
	Currency      string        `json:"currency"`
	Plan          PlanID        `json:"plan"`
	ScreenshotURL string        `json:"screenshotUrl"`
	Status        PaymentStatus `json:"status"`
	AdminNote     string        `json:"adminNote,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	VerifiedAt    *time.Time    `json:"verifiedAt"`
}

type Plan struct {
	ID              PlanID   `json:"id"`
	Name            string   `json:"name"`
	Price           string   `json:"price"`
	Period          string   `json:"period,omitempty"`
	Currency        string   `json:"currency"`
	PriceMinorUnits int      `json:"priceMinorUnits"`
	Features        []string `json:"features"`
}

// Free reports whether selecting the plan needs no payment.
func (p Plan) Free() bool {
	return p.PriceMinorUnits == 0
}
