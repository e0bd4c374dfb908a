package meteo

import (
	"errors"
	"time"

	"backend-journeylog/internal/journey"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		lat := c.QueryFloat("latitude")
		lon := c.QueryFloat("longitude")
		at := journey.GeoPoint{Latitude: lat, Longitude: lon}
		if at.IsZero() || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude required")
		}

		date := time.Now().UTC()
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.Parse(dayLayout, raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			date = parsed
		}

		m, err := svc.Lookup(c.Context(), at, date)
		if errors.Is(err, ErrNoForecast) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(m)
	})
}
