package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"backend-journeylog/internal/db"
	"backend-journeylog/internal/gpx"
	"backend-journeylog/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// refreshConcurrency bounds the weather lookups of a bulk refresh.
const refreshConcurrency = 4

type Broadcaster interface {
	Publish(userID string, ev stream.Event)
}

// MeteoSource returns the forecast for a point on the day of date.
type MeteoSource interface {
	Lookup(ctx context.Context, at GeoPoint, date time.Time) (Meteo, error)
}

type Service struct {
	db     db.Querier
	events Broadcaster
	meteo  MeteoSource
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db db.Querier, events Broadcaster, meteo MeteoSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		events: events,
		meteo:  meteo,
		logger: logger,
		now:    time.Now,
	}
}

// Now is the clock used for defaults and meteo due checks.
func (s *Service) Now() time.Time {
	return s.now()
}

// List returns the journeys of a user, newest first. Rows whose document no
// longer decodes are skipped.
func (s *Service) List(ctx context.Context, userID string) ([]Journey, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, data
		FROM journeys WHERE user_id=$1
		ORDER BY date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	defer rows.Close()

	journeys := []Journey{}
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		j, ok, err := Decode(data)
		if err != nil || !ok {
			s.logger.Warn("skipping unreadable journey", "journey_id", id, "error", err)
			continue
		}
		journeys = append(journeys, j.WithID(id))
	}
	return journeys, rows.Err()
}

func (s *Service) Get(ctx context.Context, userID, id string) (Journey, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `
		SELECT data FROM journeys WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Journey{}, ErrNotFound
	}
	if err != nil {
		return Journey{}, fmt.Errorf("get journey: %w", err)
	}
	j, ok, err := Decode(data)
	if err != nil {
		return Journey{}, fmt.Errorf("decode journey %s: %w", id, err)
	}
	if !ok {
		return Journey{}, ErrNotFound
	}
	return j.WithID(id), nil
}

// Apply loads a stored journey and lays the fields of p over it. Fields p
// leaves out keep their stored value. Nothing is written.
func (s *Service) Apply(ctx context.Context, userID, id string, p Partial) (Journey, error) {
	stored, err := s.Get(ctx, userID, id)
	if err != nil {
		return Journey{}, err
	}
	merged := Merge(ToJSON(stored).Partial(), EncodePartial(p))
	return New(merged, s.now()).WithID(id), nil
}

// Save creates j when it has no id and updates it otherwise.
func (s *Service) Save(ctx context.Context, userID string, j Journey) (Journey, error) {
	if j.IsNew() {
		return s.Create(ctx, userID, j)
	}
	return s.Update(ctx, userID, j)
}

func (s *Service) Create(ctx context.Context, userID string, j Journey) (Journey, error) {
	j = j.WithID(uuid.NewString())
	data, err := json.Marshal(j)
	if err != nil {
		return Journey{}, err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO journeys (id, user_id, title, date, season, data)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, j.ID, userID, j.Title, j.Date, string(j.Season), data)
	if err != nil {
		return Journey{}, fmt.Errorf("create journey: %w", err)
	}
	s.publish(userID, stream.EventCreated, j.ID, data)
	return j, nil
}

func (s *Service) Update(ctx context.Context, userID string, j Journey) (Journey, error) {
	if j.IsNew() {
		return Journey{}, ErrNotFound
	}
	data, err := json.Marshal(j)
	if err != nil {
		return Journey{}, err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE journeys
		SET title=$3, date=$4, season=$5, data=$6, updated_at=now()
		WHERE id=$1 AND user_id=$2
	`, j.ID, userID, j.Title, j.Date, string(j.Season), data)
	if err != nil {
		return Journey{}, fmt.Errorf("update journey: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Journey{}, ErrNotFound
	}
	s.publish(userID, stream.EventUpdated, j.ID, data)
	return j, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM journeys WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete journey: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.publish(userID, stream.EventDeleted, id, nil)
	return nil
}

func (s *Service) AddPicture(ctx context.Context, userID, id, url string) (Journey, error) {
	j, err := s.Get(ctx, userID, id)
	if err != nil {
		return Journey{}, err
	}
	return s.Update(ctx, userID, j.AddPicture(url))
}

func (s *Service) AttachTrack(ctx context.Context, userID, id, url string, track gpx.Track) (Journey, error) {
	j, err := s.Get(ctx, userID, id)
	if err != nil {
		return Journey{}, err
	}
	return s.Update(ctx, userID, WithTrack(j, url, track))
}

// WithTrack references the uploaded track and fills what the journey does not
// know yet from it: unset itinerary points and invalid altitudes.
func WithTrack(j Journey, url string, track gpx.Track) Journey {
	it := j.Itinerary.WithGpx(url)
	if start, ok := track.Start(); ok && it.Start.IsZero() {
		it = it.WithStart(GeoPoint{Latitude: start.Lat, Longitude: start.Lon})
	}
	if end, ok := track.End(); ok && it.End.IsZero() {
		it = it.WithEnd(GeoPoint{Latitude: end.Lat, Longitude: end.Lon})
	}
	j = j.WithItinerary(it)

	if !j.Altitudes.IsValid() && track.HasElevation() {
		stats := track.Stats()
		j = j.WithAltitudes(Altitudes{
			Max:   stats.MaxElevation,
			Min:   stats.MinElevation,
			Total: stats.Gain,
		})
	}
	return j
}

// RefreshMeteo replaces the forecast of a journey with a fresh one for its
// end point. The avalanche risk is entered by hand and is kept.
func (s *Service) RefreshMeteo(ctx context.Context, userID, id string) (Journey, error) {
	j, err := s.Get(ctx, userID, id)
	if err != nil {
		return Journey{}, err
	}
	return s.refreshMeteo(ctx, userID, j)
}

func (s *Service) refreshMeteo(ctx context.Context, userID string, j Journey) (Journey, error) {
	if !j.ShouldUpdateMeteo(s.now()) {
		return Journey{}, ErrMeteoNotDue
	}
	if j.Itinerary.End.IsZero() {
		return Journey{}, ErrNoCoordinates
	}
	if s.meteo == nil {
		return Journey{}, errors.New("meteo source not configured")
	}
	m, err := s.meteo.Lookup(ctx, j.Itinerary.End, j.Date)
	if err != nil {
		return Journey{}, fmt.Errorf("meteo lookup: %w", err)
	}
	return s.Update(ctx, userID, j.WithMeteo(m.WithBera(j.Meteo.Bera)))
}

// RefreshUpcoming refreshes every due journey of a user. Failures are logged
// and skipped; the count of refreshed journeys is returned.
func (s *Service) RefreshUpcoming(ctx context.Context, userID string) (int, error) {
	journeys, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var refreshed atomic.Int64
	var g errgroup.Group
	g.SetLimit(refreshConcurrency)
	for _, j := range journeys {
		if !j.ShouldUpdateMeteo(now) || j.Itinerary.End.IsZero() {
			continue
		}
		j := j
		g.Go(func() error {
			if _, err := s.refreshMeteo(ctx, userID, j); err != nil {
				s.logger.Warn("meteo refresh failed", "journey_id", j.ID, "error", err)
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(refreshed.Load()), nil
}

func (s *Service) publish(userID, kind, id string, data []byte) {
	if s.events == nil {
		return
	}
	s.events.Publish(userID, stream.Event{Type: kind, JourneyID: id, Journey: data})
}
