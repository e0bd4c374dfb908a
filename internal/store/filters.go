package store

import (
	"time"

	"backend-journeylog/internal/journey"
)

// Filters narrows the visible journeys. Zero values match everything.
type Filters struct {
	From   string         `json:"from,omitempty"`
	To     string         `json:"to,omitempty"`
	Season journey.Season `json:"season,omitempty"`
}

// Apply returns the journeys matching f in their original order. Both date
// bounds are inclusive; a date-only To covers that whole day. With only From
// set, journeys on or after From match.
func (f Filters) Apply(journeys []journey.Journey) []journey.Journey {
	from, hasFrom := parseBound(f.From, false)
	to, hasTo := parseBound(f.To, true)

	out := make([]journey.Journey, 0, len(journeys))
	for _, j := range journeys {
		if hasFrom && j.Date.Before(from) {
			continue
		}
		if hasFrom && hasTo && j.Date.After(to) {
			continue
		}
		if f.Season != "" && j.Season != f.Season {
			continue
		}
		out = append(out, j)
	}
	return out
}

func parseBound(s string, end bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}
