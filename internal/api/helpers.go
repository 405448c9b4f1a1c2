// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/clubsync/internal/logging"
	"github.com/tomtom215/clubsync/internal/models"
	"github.com/tomtom215/clubsync/internal/validation"
)

// sanitizeLogValue replaces control characters so attacker-supplied input
// cannot forge log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response envelope with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData wraps the payload in a success envelope.
func respondData(w http.ResponseWriter, status int, data interface{}, meta models.Metadata) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// validateRequest validates a struct and converts failures to the API
// error format.
func validateRequest(v interface{}) *models.APIError {
	structErr := validation.ValidateStruct(v)
	if structErr == nil {
		return nil
	}
	apiErr := structErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// getIntParam extracts an integer query parameter with a default.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getBoolParam extracts a boolean query parameter, false by default.
func getBoolParam(r *http.Request, key string) bool {
	value := r.URL.Query().Get(key)
	if value == "" {
		return false
	}
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

// getTimeParam parses an RFC3339 query parameter, nil when absent. The
// returned error message names the parameter.
func getTimeParam(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC3339, got %q", key, value)
	}
	return &t, nil
}

// parseCommaSeparated splits a comma-separated parameter into a trimmed
// slice, nil when empty.
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseCommaSeparatedInt64s splits a comma-separated parameter into int64s,
// skipping malformed entries.
func parseCommaSeparatedInt64s(value string) []int64 {
	if value == "" {
		return nil
	}
	var result []int64
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if num, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			result = append(result, num)
		}
	}
	return result
}
