// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package validation wraps go-playground/validator v10 behind a singleton
// with translated, API-friendly error messages.
//
// Example:
//
//	type EventsRequest struct {
//	    Limit int `validate:"min=1,max=200"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single field validation failure.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

func (e FieldError) Error() string { return e.Message }

// StructError collects every field failure from one validation pass.
type StructError struct {
	fields []FieldError
}

// Fields returns the individual field errors.
func (se *StructError) Fields() []FieldError { return se.fields }

func (se *StructError) Error() string {
	if len(se.fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(se.fields))
	for i, fe := range se.fields {
		messages[i] = fe.Message
	}
	return strings.Join(messages, "; ")
}

// APIError mirrors models.APIError to avoid an import cycle.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts the failures to the API's VALIDATION_ERROR format.
func (se *StructError) ToAPIError() *APIError {
	if len(se.fields) == 0 {
		return &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	}
	if len(se.fields) == 1 {
		fe := se.fields[0]
		return &APIError{
			Code:    "VALIDATION_ERROR",
			Message: fe.Message,
			Details: map[string]interface{}{"field": fe.Field, "tag": fe.Tag},
		}
	}

	fields := make([]map[string]interface{}, len(se.fields))
	messages := make([]string, len(se.fields))
	for i, fe := range se.fields {
		fields[i] = map[string]interface{}{"field": fe.Field, "tag": fe.Tag, "message": fe.Message}
		messages[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the singleton validator instance. Thread-safe; the
// instance caches struct metadata across calls.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates s, returning nil on success.
func ValidateStruct(s interface{}) *StructError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &StructError{fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translateError(fe),
		}
	}
	return &StructError{fields: fields}
}

var simpleTemplates = map[string]string{
	"required": "%s is required",
	"datetime": "%s must be a valid date/time in RFC3339 format",
	"numeric":  "%s must be numeric",
	"timezone": "%s must be a valid IANA timezone",
}

var paramTemplates = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if tmpl, ok := simpleTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	isString := fe.Kind().String() == "string"
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
