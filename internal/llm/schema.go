// Package llm describes prompts and structured model output independently of
// any provider SDK. Clients translate them into their own representation.
package llm

import (
	"encoding/json"
	"fmt"
	"sort"
)

type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
}

func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

func ArrayOf(items *Schema, description string) *Schema {
	return &Schema{Type: TypeArray, Items: items, Description: description}
}

func Object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: properties, Required: required}
}

// PropertyNames returns the object's property names in a stable order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckRequired verifies that raw JSON carries every required key of s,
// descending into nested objects and checking top-level value kinds.
func (s *Schema) CheckRequired(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return s.check("$", doc)
}

func (s *Schema) check(path string, value any) error {
	switch s.Type {
	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object", path)
		}
		for _, key := range s.Required {
			child, present := obj[key]
			if !present || child == nil {
				return fmt.Errorf("%s.%s: required field missing", path, key)
			}
			if prop, ok := s.Properties[key]; ok {
				if err := prop.check(path+"."+key, child); err != nil {
					return err
				}
			}
		}
	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array", path)
		}
		if s.Items != nil {
			for i, item := range items {
				if err := s.Items.check(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
					return err
				}
			}
		}
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string", path)
		}
	case TypeNumber, TypeInteger:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s: expected number", path)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean", path)
		}
	}
	return nil
}
