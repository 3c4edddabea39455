// Package schema provides the static catalog of known settings.
//
// The schema maps each setting key to its default value, the backend
// area it lives in, and its data type. It is defined once at startup
// and never mutated; every other component resolves defaults and area
// assignments only through it.
package schema

import (
	"fmt"

	"github.com/confsync/confsync/internal/storage"
)

// Setting describes one configuration setting.
type Setting struct {
	// Key is the setting's flat key (e.g. "subtitleFontSize").
	Key string

	// Area is the backend area the setting lives in. Every key has
	// exactly one area assignment.
	Area storage.Area

	// Type is the setting's data type.
	Type Type

	// Default is the value used when the key is absent from storage.
	Default any

	// Description is human-readable documentation.
	Description string

	// Broadcast marks settings whose changes must reach other
	// execution contexts (e.g. loggingLevel).
	Broadcast bool

	// Enum lists allowed values for enum types.
	Enum []any

	// Tags for filtering/grouping settings.
	Tags []string
}

// Validate checks if a value is valid for this setting.
func (s *Setting) Validate(value any) error {
	if err := s.validateType(value); err != nil {
		return err
	}
	if len(s.Enum) > 0 && !containsValue(s.Enum, value) {
		return fmt.Errorf("value must be one of: %v", s.Enum)
	}
	return nil
}

// validateType checks if the value matches the expected type. Numeric
// values arrive from JSON decoding as float64, so integer settings
// accept both representations.
func (s *Setting) validateType(value any) error {
	switch s.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case TypeInt:
		switch v := value.(type) {
		case int, int64:
			// Valid
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case TypeFloat:
		switch value.(type) {
		case float32, float64, int, int64:
			// Valid
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case TypeEnum:
		// Enum membership checked separately
	}
	return nil
}

// Type represents the data type of a setting.
type Type uint8

const (
	// TypeString represents a string value.
	TypeString Type = iota
	// TypeInt represents an integer value.
	TypeInt
	// TypeFloat represents a floating-point value.
	TypeFloat
	// TypeBool represents a boolean value.
	TypeBool
	// TypeEnum represents a value from a fixed set.
	TypeEnum
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "number"
	case TypeBool:
		return "boolean"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// containsValue checks if a slice contains a value.
func containsValue(slice []any, value any) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}
