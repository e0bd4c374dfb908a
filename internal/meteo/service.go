package meteo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backend-journeylog/internal/journey"
	"backend-journeylog/internal/shared/geo"
)

type Forecaster interface {
	Forecast(ctx context.Context, at journey.GeoPoint, date time.Time) (journey.Meteo, error)
}

// Service answers forecast lookups, going through the cache when one is
// configured. Cache failures are logged and never fail a lookup.
type Service struct {
	source Forecaster
	cache  *Cache
	logger *slog.Logger
}

func NewService(source Forecaster, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// CacheKey groups points about a kilometer apart so nearby journeys share a
// forecast.
func CacheKey(at journey.GeoPoint, date time.Time) string {
	return fmt.Sprintf("meteo:%.2f:%.2f:%s",
		geo.Round(at.Latitude, 2), geo.Round(at.Longitude, 2), date.UTC().Format(dayLayout))
}

func (s *Service) Lookup(ctx context.Context, at journey.GeoPoint, date time.Time) (journey.Meteo, error) {
	key := CacheKey(at, date)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("meteo cache read failed", "key", key, "error", err)
		}
		if cached != nil {
			return *cached, nil
		}
	}

	m, err := s.source.Forecast(ctx, at, date)
	if err != nil {
		return journey.Meteo{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, m); err != nil {
			s.logger.Warn("meteo cache write failed", "key", key, "error", err)
		}
	}
	return m, nil
}
