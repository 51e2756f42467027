package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/digkill/ecowriter/internal/llm"
	"github.com/digkill/ecowriter/internal/models"
)

const earbudsCopy = `{
  "title": "AuraSound Wireless Earbuds",
  "bullets": ["Active noise cancelling", "24h battery", "Sweat proof", "Ergonomic fit", "Fast pairing"],
  "long_description": "Premium sound, all day.",
  "platform_copy": {
    "amazon": "amazon copy",
    "meesho": "meesho copy",
    "shopify": "shopify copy",
    "instagram_caption": "insta copy",
    "whatsapp_message": "whatsapp copy"
  },
  "seo_keywords": ["wireless earbuds", "anc earbuds"]
}`

type stubModel struct {
	text    string
	err     error
	prompts []llm.Prompt
}

func (m *stubModel) GenerateJSON(_ context.Context, prompt llm.Prompt) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.text, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func earbudsRequest() models.ProductRequest {
	return models.ProductRequest{
		ProductName: "Wireless Earbuds",
		Category:    "Electronics",
		Tone:        models.ToneLuxury,
		Features:    "Noise cancelling, 24h battery",
	}
}

func TestGenerateParsesSchemaConformingOutput(t *testing.T) {
	model := &stubModel{text: earbudsCopy}
	svc := NewGenerationService(discardLogger(), model)

	content, err := svc.Generate(context.Background(), earbudsRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Title != "AuraSound Wireless Earbuds" {
		t.Fatalf("unexpected title %q", content.Title)
	}
	want := []string{"Active noise cancelling", "24h battery", "Sweat proof", "Ergonomic fit", "Fast pairing"}
	if len(content.Bullets) != len(want) {
		t.Fatalf("expected %d bullets, got %v", len(want), content.Bullets)
	}
	for i := range want {
		if content.Bullets[i] != want[i] {
			t.Fatalf("bullet %d: expected %q, got %q", i, want[i], content.Bullets[i])
		}
	}
	if content.PlatformCopy.WhatsAppMessage != "whatsapp copy" || content.PlatformCopy.InstagramCaption != "insta copy" {
		t.Fatalf("platform copy not decoded: %+v", content.PlatformCopy)
	}
	if len(content.SEOKeywords) != 2 {
		t.Fatalf("unexpected keywords %v", content.SEOKeywords)
	}
}

func TestGeneratePromptEmbedsEveryField(t *testing.T) {
	model := &stubModel{text: earbudsCopy}
	svc := NewGenerationService(discardLogger(), model)

	req := earbudsRequest()
	req.Brand = "AuraSound"
	req.Audience = "Commuters"
	if _, err := svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := model.prompts[0]
	for _, fragment := range []string{"Wireless Earbuds", "Electronics", "AuraSound", "Commuters", "Luxury", "Noise cancelling, 24h battery"} {
		if !strings.Contains(prompt.Text, fragment) {
			t.Fatalf("prompt missing %q:\n%s", fragment, prompt.Text)
		}
	}
	if prompt.Schema == nil || prompt.System == "" {
		t.Fatal("expected schema and system instruction")
	}
	if prompt.Image != nil {
		t.Fatal("no image expected")
	}
}

func TestGenerateDefaultsBrandAudienceAndTone(t *testing.T) {
	model := &stubModel{text: earbudsCopy}
	svc := NewGenerationService(discardLogger(), model)

	req := earbudsRequest()
	req.Tone = ""
	if _, err := svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := model.prompts[0].Text
	for _, fragment := range []string{"Brand: Generic", "Target Audience: General", "Tone: Professional"} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("prompt missing %q", fragment)
		}
	}
}

func TestGenerateDecomposesImage(t *testing.T) {
	model := &stubModel{text: earbudsCopy}
	svc := NewGenerationService(discardLogger(), model)

	req := earbudsRequest()
	req.Image = "data:image/jpeg;base64,aGVsbG8="
	if _, err := svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := model.prompts[0]
	if prompt.Image == nil || prompt.Image.MIMEType != "image/jpeg" || string(prompt.Image.Data) != "hello" {
		t.Fatalf("image not decomposed: %+v", prompt.Image)
	}
	if !strings.Contains(prompt.Text, "attached product image") {
		t.Fatal("expected image hint in prompt")
	}
}

func TestGenerateIgnoresNonDataURIImage(t *testing.T) {
	model := &stubModel{text: earbudsCopy}
	svc := NewGenerationService(discardLogger(), model)

	req := earbudsRequest()
	req.Image = "https://cdn.example.com/earbuds.png"
	if _, err := svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.prompts[0].Image != nil {
		t.Fatal("expected image to be dropped")
	}
}

func TestGenerateValidatesInput(t *testing.T) {
	cases := map[string]func(*models.ProductRequest){
		"missing name":     func(r *models.ProductRequest) { r.ProductName = " " },
		"missing category": func(r *models.ProductRequest) { r.Category = "" },
		"missing features": func(r *models.ProductRequest) { r.Features = "" },
		"unknown tone":     func(r *models.ProductRequest) { r.Tone = "Sarcastic" },
		"broken image":     func(r *models.ProductRequest) { r.Image = "data:image/png;base64,%%%" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			model := &stubModel{text: earbudsCopy}
			svc := NewGenerationService(discardLogger(), model)
			req := earbudsRequest()
			mutate(&req)
			_, err := svc.Generate(context.Background(), req)
			if !errors.Is(err, ErrInvalidProduct) {
				t.Fatalf("expected ErrInvalidProduct, got %v", err)
			}
			if len(model.prompts) != 0 {
				t.Fatal("model must not be called for invalid input")
			}
		})
	}
}

func TestGenerateFailures(t *testing.T) {
	cases := map[string]*stubModel{
		"transport":      {err: errors.New("connection reset")},
		"empty":          {text: "   "},
		"malformed":      {text: `{"title": "x"`},
		"missing fields": {text: `{"title": "x", "bullets": []}`},
	}
	for name, model := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewGenerationService(discardLogger(), model)
			content, err := svc.Generate(context.Background(), earbudsRequest())
			if !errors.Is(err, ErrGeneration) {
				t.Fatalf("expected ErrGeneration, got %v", err)
			}
			if content != nil {
				t.Fatal("no partial content expected")
			}
		})
	}
}
