package meteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"backend-journeylog/internal/httpclient"
	"backend-journeylog/internal/journey"
)

const (
	DefaultBaseURL = "https://api.open-meteo.com"
	dayLayout      = "2006-01-02"
)

var ErrNoForecast = errors.New("no forecast for this day")

// Client reads daily forecasts from the Open-Meteo API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = httpclient.New(httpclient.DefaultConfig())
	}
	return &Client{baseURL: baseURL, http: client}
}

type forecastResponse struct {
	Daily struct {
		Time          []string  `json:"time"`
		WeatherCode   []int     `json:"weather_code"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		WindSpeed     []float64 `json:"wind_speed_10m_max"`
		WindDirection []float64 `json:"wind_direction_10m_dominant"`
	} `json:"daily"`
	Hourly struct {
		Time          []string  `json:"time"`
		FreezingLevel []float64 `json:"freezing_level_height"`
	} `json:"hourly"`
}

// Forecast returns the forecast for the UTC day of date at a point.
func (c *Client) Forecast(ctx context.Context, at journey.GeoPoint, date time.Time) (journey.Meteo, error) {
	day := date.UTC().Format(dayLayout)
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', 4, 64))
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,wind_speed_10m_max,wind_direction_10m_dominant")
	q.Set("hourly", "freezing_level_height")
	q.Set("timezone", "UTC")
	q.Set("start_date", day)
	q.Set("end_date", day)
	rawURL := c.baseURL + "/v1/forecast?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return journey.Meteo{}, fmt.Errorf("creating forecast request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return journey.Meteo{}, fmt.Errorf("GET forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return journey.Meteo{}, fmt.Errorf("forecast returned status %d", resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return journey.Meteo{}, fmt.Errorf("decoding forecast: %w", err)
	}
	return body.meteo(day)
}

func (r forecastResponse) meteo(day string) (journey.Meteo, error) {
	i := -1
	for idx, t := range r.Daily.Time {
		if t == day {
			i = idx
			break
		}
	}
	if i < 0 {
		return journey.Meteo{}, ErrNoForecast
	}

	m := journey.NewMeteo(nil)
	if i < len(r.Daily.WeatherCode) {
		m.Sky = SkyFromWMO(r.Daily.WeatherCode[i])
	}
	if i < len(r.Daily.TempMin) && i < len(r.Daily.TempMax) {
		m.Temperature = journey.Temperature{Min: r.Daily.TempMin[i], Max: r.Daily.TempMax[i]}
	}
	if i < len(r.Daily.WindSpeed) && i < len(r.Daily.WindDirection) {
		m.Wind = journey.Wind{
			Direction: journey.WindDirectionFromDegrees(r.Daily.WindDirection[i]),
			Speed:     r.Daily.WindSpeed[i],
		}
	}
	m.Iso = r.freezingLevel(day)
	return m, nil
}

// freezingLevel takes the lowest hourly 0°C isotherm of the day as the night
// value and the highest as the day value.
func (r forecastResponse) freezingLevel(day string) journey.Iso {
	var iso journey.Iso
	seen := false
	for idx, t := range r.Hourly.Time {
		if idx >= len(r.Hourly.FreezingLevel) || len(t) < len(dayLayout) || t[:len(dayLayout)] != day {
			continue
		}
		v := r.Hourly.FreezingLevel[idx]
		if !seen {
			iso = journey.Iso{Night: v, Day: v}
			seen = true
			continue
		}
		if v < iso.Night {
			iso.Night = v
		}
		if v > iso.Day {
			iso.Day = v
		}
	}
	return iso
}

// SkyFromWMO maps a WMO weather interpretation code onto the sky conditions
// a journey can record.
func SkyFromWMO(code int) journey.SkyCondition {
	switch code {
	case 0, 1:
		return journey.SkySunny
	case 2:
		return journey.SkyPartlyCloudy
	case 3, 45, 48:
		return journey.SkyCloudy
	case 51, 53, 55, 56, 57, 61, 63, 66, 80, 81:
		return journey.SkyLightRain
	case 65, 67, 82, 95, 96, 99:
		return journey.SkyHeavyRain
	case 71, 73, 77, 85:
		return journey.SkyLightSnow
	case 75, 86:
		return journey.SkyHeavySnow
	}
	return journey.SkyCloudy
}
