// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// Handlers use it for transport-shaped input (ids, enums) and services use it
// for business rules such as the content length measured after sanitization.
//
//	validator := &validate.Validator{}
//	validator.Required("content", content).MaxLen("content", content, 1000)
//	validator.OptionalUUID("parent_id", input.ParentID)
//	if err := validator.Err(); err != nil {
//	    return nil, err
//	}
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/polutek/tingtong/internal/platform/apperr"
)

var (
	// uuidPattern matches the hyphenated form in any case and version.
	uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// Validator accumulates failures; it is single-use and not safe for
// concurrent use.
type Validator struct {
	errs []apperr.FieldError
}

// # Rules

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the value has more than max runes.
//
// Content limits are user-facing, so "1000 characters" means 1000 runes and
// not 1000 bytes of UTF-8.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// UUID fails if the value is not a hyphenated UUID.
func (v *Validator) UUID(field, value string) *Validator {
	if !IsUUID(value) {
		v.add(field, "Must be a valid UUID")
	}
	return v
}

// OptionalUUID is [Validator.UUID] for nullable references such as parent_id.
// Nil and empty values pass.
func (v *Validator) OptionalUUID(field string, value *string) *Validator {
	if value != nil && *value != "" {
		v.UUID(field, *value)
	}
	return v
}

// OneOf fails unless value is exactly one of allowed. Matching is case-sensitive.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, candidate := range allowed {
		if value == candidate {
			return v
		}
	}
	v.add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// # Results

// Err returns a VALIDATION_ERROR carrying every collected failure, or nil.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// HasErrors reports whether any rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// IsUUID reports whether value is a hyphenated UUID.
func IsUUID(value string) bool {
	return uuidPattern.MatchString(value)
}
