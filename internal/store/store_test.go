package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-journeylog/internal/journey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type fetcherFunc func(ctx context.Context, userID string) ([]journey.Journey, error)

func (f fetcherFunc) UserJourneys(ctx context.Context, userID string) ([]journey.Journey, error) {
	return f(ctx, userID)
}

func trip(id, date string, season journey.Season) journey.Journey {
	return journey.New(journey.Partial{"id": id, "title": id, "date": date, "season": string(season)}, now)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from Status
		ev   Event
		want Status
		ok   bool
	}{
		{StatusIdle, EventFetch, StatusLoading, true},
		{StatusLoading, EventSucceed, StatusSucceeded, true},
		{StatusLoading, EventFail, StatusFailed, true},
		{StatusFailed, EventFetch, StatusLoading, true},
		{StatusSucceeded, EventFetch, StatusLoading, true},
		{StatusIdle, EventSucceed, StatusIdle, false},
		{StatusLoading, EventFetch, StatusLoading, false},
		{StatusFailed, EventSucceed, StatusFailed, false},
		{StatusSucceeded, EventFail, StatusSucceeded, false},
	}
	for _, tt := range tests {
		got, err := Transition(tt.from, tt.ev)
		assert.Equal(t, tt.want, got, "%s on %s", tt.from, tt.ev)
		if tt.ok {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
}

func TestLoadSucceeds(t *testing.T) {
	s := New(fetcherFunc(func(_ context.Context, userID string) ([]journey.Journey, error) {
		assert.Equal(t, "u-1", userID)
		return []journey.Journey{trip("a", "2024-05-01", journey.SeasonSummer)}, nil
	}))
	assert.Equal(t, StatusIdle, s.Snapshot().Status)

	require.NoError(t, s.Load(context.Background(), "u-1"))
	st := s.Snapshot()
	assert.Equal(t, StatusSucceeded, st.Status)
	assert.Empty(t, st.Error)
	require.Len(t, st.Journeys, 1)
}

func TestLoadFailureKeepsMessageThenRetries(t *testing.T) {
	calls := 0
	s := New(fetcherFunc(func(context.Context, string) ([]journey.Journey, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("HTTP error! status: 500")
		}
		return []journey.Journey{}, nil
	}))

	err := s.Load(context.Background(), "u-1")
	require.Error(t, err)
	st := s.Snapshot()
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "HTTP error! status: 500", st.Error)

	require.NoError(t, s.Load(context.Background(), "u-1"))
	st = s.Snapshot()
	assert.Equal(t, StatusSucceeded, st.Status)
	assert.Empty(t, st.Error)
}

func TestLoadWhileLoadingIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := New(fetcherFunc(func(context.Context, string) ([]journey.Journey, error) {
		close(started)
		<-release
		return nil, nil
	}))

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), "u-1") }()
	<-started

	assert.ErrorIs(t, s.Load(context.Background(), "u-1"), ErrInvalidTransition)
	assert.Equal(t, StatusLoading, s.Snapshot().Status)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusSucceeded, s.Snapshot().Status)
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	s := New(fetcherFunc(func(context.Context, string) ([]journey.Journey, error) {
		return []journey.Journey{trip("a", "2024-05-01", journey.SeasonSummer)}, nil
	}))
	require.NoError(t, s.Load(context.Background(), "u-1"))

	st := s.Snapshot()
	st.Journeys[0].Title = "changed"
	assert.Equal(t, "a", s.Snapshot().Journeys[0].Title)

	s.SetCurrent(trip("b", "2024-05-02", journey.SeasonWinter))
	cur := s.Snapshot().Current
	require.NotNil(t, cur)
	cur.Title = "changed"
	assert.Equal(t, "b", s.Snapshot().Current.Title)

	s.ResetCurrent()
	assert.Nil(t, s.Snapshot().Current)
}

func TestResetKeepsFilters(t *testing.T) {
	s := New(fetcherFunc(func(context.Context, string) ([]journey.Journey, error) {
		return []journey.Journey{trip("a", "2024-05-01", journey.SeasonSummer)}, nil
	}))
	require.NoError(t, s.Load(context.Background(), "u-1"))
	s.SetSeason(journey.SeasonWinter)
	s.SetCurrent(trip("a", "2024-05-01", journey.SeasonSummer))

	s.Reset()
	st := s.Snapshot()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Nil(t, st.Journeys)
	assert.Nil(t, st.Current)
	assert.Equal(t, journey.SeasonWinter, st.Filters.Season)
}

func TestFiltersApply(t *testing.T) {
	journeys := []journey.Journey{
		trip("april", "2024-04-30", journey.SeasonWinter),
		trip("may", "2024-05-15", journey.SeasonSummer),
		trip("june", "2024-06-01T10:00:00Z", journey.SeasonSummer),
		trip("july", "2024-07-01", journey.SeasonWinter),
	}
	ids := func(js []journey.Journey) []string {
		out := []string{}
		for _, j := range js {
			out = append(out, j.ID)
		}
		return out
	}

	assert.Equal(t, []string{"april", "may", "june", "july"}, ids(Filters{}.Apply(journeys)))
	assert.Equal(t, []string{"may", "june"}, ids(Filters{From: "2024-05-01", To: "2024-06-01"}.Apply(journeys)))
	assert.Equal(t, []string{"june", "july"}, ids(Filters{From: "2024-06-01"}.Apply(journeys)))
	assert.Equal(t, []string{"april", "may", "june", "july"}, ids(Filters{To: "2024-05-01"}.Apply(journeys)))
	assert.Equal(t, []string{"april", "july"}, ids(Filters{Season: journey.SeasonWinter}.Apply(journeys)))
	assert.Equal(t, []string{"may"}, ids(Filters{From: "2024-05-01T00:00:00Z", To: "2024-05-31", Season: journey.SeasonSummer}.Apply(journeys)))
}

func TestStoreVisibleAndResetFilters(t *testing.T) {
	s := New(fetcherFunc(func(context.Context, string) ([]journey.Journey, error) {
		return []journey.Journey{
			trip("a", "2024-05-01", journey.SeasonSummer),
			trip("b", "2024-12-01", journey.SeasonWinter),
		}, nil
	}))
	require.NoError(t, s.Load(context.Background(), "u-1"))

	s.SetDateRange("2024-11-01", "2024-12-31")
	require.Len(t, s.Visible(), 1)
	assert.Equal(t, "b", s.Visible()[0].ID)

	s.ResetFilters()
	assert.Len(t, s.Visible(), 2)
	assert.Equal(t, Filters{}, s.Snapshot().Filters)
}
