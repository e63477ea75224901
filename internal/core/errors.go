package core

import (
	"errors"
	"sort"
	"strings"
)

// Error kinds surfaced to callers. Storage adapters translate "no rows" into
// ErrNotFound; ownership failures are reported the same way so existence
// never leaks to other users.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrInsufficientData = errors.New("insufficient data")
	ErrConflict         = errors.New("conflict")
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidPeriod = errors.New("invalid period")
)

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError starts an empty field set.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// FieldError is a shortcut for a single failing field.
func FieldError(field, msg string) *ValidationError {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

// Add records the first message for field.
func (v *ValidationError) Add(field, msg string) {
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = msg
	}
}

// OrNil returns nil when no field failed.
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
