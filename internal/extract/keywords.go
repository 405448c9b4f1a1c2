// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/clubsync/internal/models"
)

// rePace matches a per-kilometre pace like "5:30/km", "5:30 min/km" or
// "5:30 per km" in free text.
var rePace = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(?:/|min/|per\s+)km\b`)

// extractPace pulls the first per-km pace annotation out of free text,
// normalized to "M:SS/km".
func extractPace(text string) (string, bool) {
	if m := rePace.FindStringSubmatch(strings.ToLower(text)); m != nil {
		return m[1] + ":" + m[2] + "/km", true
	}
	return "", false
}

// categorizePace buckets a per-km pace by its minute component. No
// advertised pace means the run is open to everyone.
func categorizePace(pace *string) models.PaceCategory {
	if pace == nil {
		return models.PaceBeginner
	}
	idx := strings.IndexByte(*pace, ':')
	if idx <= 0 {
		return models.PaceBeginner
	}
	minutes, err := strconv.Atoi((*pace)[:idx])
	if err != nil {
		return models.PaceBeginner
	}
	switch {
	case minutes >= 6:
		return models.PaceBeginner
	case minutes == 5:
		return models.PaceIntermediate
	default:
		return models.PaceAdvanced
	}
}

var beginnerKeywords = []string{
	"beginner",
	"all paces",
	"all levels",
	"no drop",
	"no-drop",
	"social run",
}

var intervalKeywords = []string{
	"interval",
	"fartlek",
	"repeats",
	"tempo",
	"track workout",
	"track session",
	"speed work",
	"speedwork",
}

func hasBeginnerKeyword(text string) bool {
	return containsAny(text, beginnerKeywords)
}

func hasIntervalKeyword(text string) bool {
	return containsAny(text, intervalKeywords)
}

func containsAny(text string, keywords []string) bool {
	haystack := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// DeepLink builds the upstream web URL for a group event. The club segment
// is the club's upstream identifier, never a local row id.
func DeepLink(clubUpstreamID string, eventID int64) string {
	return fmt.Sprintf("https://www.strava.com/clubs/%s/group_events/%d", clubUpstreamID, eventID)
}
