// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordDBQuery tests database query metric recording
func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		duration  time.Duration
		err       error
	}{
		{
			name:      "successful SELECT query",
			operation: "SELECT",
			table:     "club_events",
			duration:  10 * time.Millisecond,
		},
		{
			name:      "successful upsert",
			operation: "INSERT",
			table:     "club_events",
			duration:  5 * time.Millisecond,
		},
		{
			name:      "failed query with short error",
			operation: "UPDATE",
			table:     "clubs",
			duration:  100 * time.Millisecond,
			err:       errors.New("connection refused"),
		},
		{
			name:      "failed query with long error - should truncate to 50 chars",
			operation: "DELETE",
			table:     "club_events",
			duration:  50 * time.Millisecond,
			err:       errors.New("this is a very long error message that exceeds fifty characters and should be truncated"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.CollectAndCount(DBQueryDuration)
			RecordDBQuery(tt.operation, tt.table, tt.duration, tt.err)
			after := testutil.CollectAndCount(DBQueryDuration)
			if after < before {
				t.Errorf("histogram series count decreased: %d -> %d", before, after)
			}
		})
	}
}

func TestRecordDBQueryTruncatesErrorLabel(t *testing.T) {
	longErr := errors.New(strings.Repeat("x", 200))
	RecordDBQuery("SELECT", "clubs", time.Millisecond, longErr)

	// The truncated label must exist; the full-length one must not.
	truncated := strings.Repeat("x", 50)
	v := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "clubs", truncated))
	if v < 1 {
		t.Errorf("expected truncated error label to be recorded, got %f", v)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/events", "200"))
	RecordAPIRequest("GET", "/api/v1/events", "200", 25*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/events", "200"))
	if after != before+1 {
		t.Errorf("expected counter to advance by 1, got %f -> %f", before, after)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	got := testutil.ToFloat64(APIActiveRequests)
	if got != base+1 {
		t.Errorf("expected gauge %f, got %f", base+1, got)
	}
}

func TestRecordSyncRun(t *testing.T) {
	added := testutil.ToFloat64(SyncEventsProcessed.WithLabelValues("added"))
	RecordSyncRun(2*time.Second, 3, 5, 1, 0)
	if got := testutil.ToFloat64(SyncEventsProcessed.WithLabelValues("added")); got != added+3 {
		t.Errorf("added counter: expected %f, got %f", added+3, got)
	}
	if got := testutil.ToFloat64(SyncLastSuccess); got == 0 {
		t.Error("expected last success timestamp to be set")
	}
}

func TestRecordSyncRunFailureSkipsLastSuccess(t *testing.T) {
	SyncLastSuccess.Set(42)
	RecordSyncRun(time.Second, 0, 0, 0, 2)
	if got := testutil.ToFloat64(SyncLastSuccess); got != 42 {
		t.Errorf("failed run must not update last success, got %f", got)
	}
}

func TestUpdateRateLimitGauges(t *testing.T) {
	UpdateRateLimitGauges(87, 412)
	if got := testutil.ToFloat64(RateLimitShortUsage); got != 87 {
		t.Errorf("short usage: expected 87, got %f", got)
	}
	if got := testutil.ToFloat64(RateLimitDailyUsage); got != 412 {
		t.Errorf("daily usage: expected 412, got %f", got)
	}
}
