package service

import (
	"fmt"
	"strings"
	"time"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts RFC3339 timestamps or zone-less layouts, which are
// interpreted in loc.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", value)
}

// parseOptionalTime maps nil to "not sent" and an empty string to "cleared".
func parseOptionalTime(value *string, loc *time.Location) (set bool, t *time.Time, err error) {
	if value == nil {
		return false, nil, nil
	}
	if strings.TrimSpace(*value) == "" {
		return true, nil, nil
	}
	parsed, err := parseTime(*value, loc)
	if err != nil {
		return true, nil, err
	}
	return true, &parsed, nil
}
