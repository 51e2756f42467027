package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
)

var ErrNotDataURI = errors.New("not a base64 data uri")

// InlineData is binary content sent alongside the prompt text.
type InlineData struct {
	MIMEType string
	Data     []byte
}

type Prompt struct {
	System string
	Text   string
	Image  *InlineData
	Schema *Schema
}

// TextModel produces a JSON document conforming to Prompt.Schema.
type TextModel interface {
	GenerateJSON(ctx context.Context, prompt Prompt) (string, error)
}

var dataURIPattern = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

// ParseDataURI splits a "data:<mime>;base64,<payload>" string into its MIME
// type and decoded bytes.
func ParseDataURI(uri string) (*InlineData, error) {
	matches := dataURIPattern.FindStringSubmatch(uri)
	if len(matches) != 3 {
		return nil, ErrNotDataURI
	}
	data, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return nil, fmt.Errorf("decode data uri payload: %w", err)
	}
	return &InlineData{MIMEType: matches[1], Data: data}, nil
}
