package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/ecowriter/internal/llm"
	"github.com/digkill/ecowriter/internal/models"
)

var (
	ErrGeneration     = errors.New("generation failed")
	ErrInvalidProduct = errors.New("invalid product request")
)

const systemInstruction = "You are ECOWRITER, an elite AI copywriter for e-commerce. You write persuasive, SEO-friendly, and platform-specific content."

type GenerationService struct {
	log    *slog.Logger
	model  llm.TextModel
	schema *llm.Schema
}

func NewGenerationService(log *slog.Logger, model llm.TextModel) *GenerationService {
	return &GenerationService{
		log:    log,
		model:  model,
		schema: llm.ProductCopy(),
	}
}

// Generate asks the model for a full listing. Any provider failure, empty
// answer or document that does not match the copy schema is ErrGeneration.
func (s *GenerationService) Generate(ctx context.Context, req models.ProductRequest) (*models.GeneratedContent, error) {
	prompt, err := s.buildPrompt(req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	raw, err := s.model.GenerateJSON(ctx, prompt)
	if err != nil {
		s.log.Error("copy generation failed", "product", req.ProductName, "tone", req.Tone, "elapsed", time.Since(started), "err", err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		s.log.Error("copy generation returned empty text", "product", req.ProductName)
		return nil, fmt.Errorf("%w: empty response", ErrGeneration)
	}
	if err := s.schema.CheckRequired([]byte(raw)); err != nil {
		s.log.Error("copy generation returned invalid document", "product", req.ProductName, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	var content models.GeneratedContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("%w: decode content: %v", ErrGeneration, err)
	}

	s.log.Info("copy generated", "product", req.ProductName, "tone", req.Tone, "with_image", prompt.Image != nil, "elapsed", time.Since(started))
	return &content, nil
}

func (s *GenerationService) buildPrompt(req models.ProductRequest) (llm.Prompt, error) {
	var missing []string
	if strings.TrimSpace(req.ProductName) == "" {
		missing = append(missing, "productName")
	}
	if strings.TrimSpace(req.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(req.Features) == "" {
		missing = append(missing, "features")
	}
	if len(missing) > 0 {
		return llm.Prompt{}, fmt.Errorf("%w: missing %s", ErrInvalidProduct, strings.Join(missing, ", "))
	}

	tone := req.Tone
	if tone == "" {
		tone = models.ToneProfessional
	}
	if !tone.Valid() {
		return llm.Prompt{}, fmt.Errorf("%w: unknown tone %q", ErrInvalidProduct, req.Tone)
	}

	var image *llm.InlineData
	if req.Image != "" {
		parsed, err := llm.ParseDataURI(req.Image)
		switch {
		case errors.Is(err, llm.ErrNotDataURI):
			s.log.Warn("ignoring product image that is not a data uri", "product", req.ProductName)
		case err != nil:
			return llm.Prompt{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
		default:
			image = parsed
		}
	}

	brand := strings.TrimSpace(req.Brand)
	if brand == "" {
		brand = "Generic"
	}
	audience := strings.TrimSpace(req.Audience)
	if audience == "" {
		audience = "General"
	}

	var b strings.Builder
	b.WriteString("Act as an expert e-commerce copywriter.\n")
	b.WriteString("Generate a high-converting product listing based on the following details:\n\n")
	fmt.Fprintf(&b, "Product Name: %s\n", req.ProductName)
	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	fmt.Fprintf(&b, "Brand: %s\n", brand)
	fmt.Fprintf(&b, "Target Audience: %s\n", audience)
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	fmt.Fprintf(&b, "Key Features/Notes: %s\n\n", req.Features)
	b.WriteString("The output MUST be valid JSON adhering strictly to the schema provided.\n")
	b.WriteString("Ensure the content is optimized for SEO and conversion.")
	if image != nil {
		b.WriteString("\n\nAlso consider the visual details from the attached product image to enhance the description.")
	}

	return llm.Prompt{
		System: systemInstruction,
		Text:   b.String(),
		Image:  image,
		Schema: s.schema,
	}, nil
}
