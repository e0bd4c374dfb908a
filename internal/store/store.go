// Package store keeps the journey collection a client works on, with its load
// status and list filters. Readers get snapshots; nothing returned aliases
// the store's own state.
package store

import (
	"context"
	"sync"

	"backend-journeylog/internal/journey"
)

type Fetcher interface {
	UserJourneys(ctx context.Context, userID string) ([]journey.Journey, error)
}

type State struct {
	Journeys []journey.Journey `json:"journeys"`
	Current  *journey.Journey  `json:"current,omitempty"`
	Status   Status            `json:"status"`
	Error    string            `json:"error,omitempty"`
	Filters  Filters           `json:"filters"`
}

type Store struct {
	mu    sync.Mutex
	state State
	fetch Fetcher
}

func New(fetch Fetcher) *Store {
	return &Store{fetch: fetch, state: State{Status: StatusIdle}}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Load fetches the journeys of userID. A failure is kept as its message and
// returned; a Load while another is in flight fails with ErrInvalidTransition.
func (s *Store) Load(ctx context.Context, userID string) error {
	if err := s.advance(EventFetch, nil); err != nil {
		return err
	}

	journeys, err := s.fetch.UserJourneys(ctx, userID)
	if err != nil {
		_ = s.advance(EventFail, func(st *State) { st.Error = err.Error() })
		return err
	}
	return s.advance(EventSucceed, func(st *State) { st.Journeys = cloneAll(journeys) })
}

func (s *Store) advance(ev Event, apply func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Transition(s.state.Status, ev)
	if err != nil {
		return err
	}
	s.state.Status = next
	if ev == EventFetch {
		s.state.Error = ""
	}
	if apply != nil {
		apply(&s.state)
	}
	return nil
}

func (s *Store) SetCurrent(j journey.Journey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := j.Clone()
	s.state.Current = &c
}

func (s *Store) ResetCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Current = nil
}

// Reset drops the loaded journeys and the current one and returns to idle.
// Filters are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Status: StatusIdle, Filters: s.state.Filters}
}

func (s *Store) SetDateRange(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filters.From = from
	s.state.Filters.To = to
}

func (s *Store) SetSeason(season journey.Season) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filters.Season = season
}

func (s *Store) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filters = Filters{}
}

// Visible returns the loaded journeys that pass the current filters.
func (s *Store) Visible() []journey.Journey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.state.Filters.Apply(s.state.Journeys))
}

func (st State) clone() State {
	out := st
	out.Journeys = cloneAll(st.Journeys)
	if st.Current != nil {
		c := st.Current.Clone()
		out.Current = &c
	}
	return out
}

func cloneAll(journeys []journey.Journey) []journey.Journey {
	if journeys == nil {
		return nil
	}
	out := make([]journey.Journey, len(journeys))
	for i, j := range journeys {
		out[i] = j.Clone()
	}
	return out
}
