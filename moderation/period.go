package moderation

import "time"

// PeriodToken returns the monthly accounting bucket for t, e.g. "2025-01".
func PeriodToken(t time.Time) string {
	return t.UTC().Format("2006-01")
}
