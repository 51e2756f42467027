package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/digkill/ecowriter/internal/llm"
)

var ErrEmptyResponse = errors.New("empty response from model")

type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *slog.Logger
}

func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Client{
		client:  client,
		model:   model,
		timeout: timeout,
		log:     log,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateJSON sends one request with the prompt text, an optional inline
// image and a response schema the model must satisfy. It returns the raw text.
func (c *Client) GenerateJSON(ctx context.Context, prompt llm.Prompt) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(c.model)
	if prompt.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
	}
	if prompt.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toGenaiSchema(prompt.Schema)
	}

	parts := []genai.Part{genai.Text(prompt.Text)}
	if prompt.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: prompt.Image.MIMEType, Data: prompt.Image.Data})
	}

	started := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		if c.log != nil {
			c.log.Error("gemini generate failed", "model", c.model, "elapsed", time.Since(started), "err", err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	if c.log != nil {
		c.log.Debug("gemini generate completed", "model", c.model, "elapsed", time.Since(started), "chars", len(text))
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

func toGenaiSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toGenaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func toGenaiType(t llm.Type) genai.Type {
	switch t {
	case llm.TypeString:
		return genai.TypeString
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeInteger:
		return genai.TypeInteger
	case llm.TypeBoolean:
		return genai.TypeBoolean
	case llm.TypeArray:
		return genai.TypeArray
	case llm.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
