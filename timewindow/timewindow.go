// Package timewindow computes the trailing date interval used by
// time-bounded upstream queries.
package timewindow

import "time"

// Window is a closed date interval [Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// Trailing30 returns the window covering the 30 days before now,
// ending at now.
func Trailing30(now time.Time) Window {
	return Window{
		Start: now.AddDate(0, 0, -30),
		End:   now,
	}
}

// FitbitRange returns the window bounds formatted as FitBit
// expects them (YYYY-MM-DD).
func (w Window) FitbitRange() (start, end string) {
	return w.Start.Format("2006-01-02"), w.End.Format("2006-01-02")
}

// GitHubSince returns the window start as an ISO-8601 timestamp
// for GitHub's history(since:) parameter.
func (w Window) GitHubSince() string {
	return w.Start.UTC().Format(time.RFC3339)
}
