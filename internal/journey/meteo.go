package journey

import (
	"math"
	"time"
)

type SkyCondition string

const (
	SkySunny        SkyCondition = "SUNNY"
	SkyPartlyCloudy SkyCondition = "PARTLY_CLOUDY"
	SkyCloudy       SkyCondition = "CLOUDY"
	SkyLightSnow    SkyCondition = "LIGHT_SNOW"
	SkyHeavySnow    SkyCondition = "HEAVY_SNOW"
	SkyLightRain    SkyCondition = "LIGHT_RAIN"
	SkyHeavyRain    SkyCondition = "HEAVY_RAIN"
)

var skyLabels = map[SkyCondition]string{
	SkySunny:        "Soleil",
	SkyPartlyCloudy: "Partiellement nuageux",
	SkyCloudy:       "Nuageux",
	SkyLightRain:    "Petite pluie",
	SkyHeavyRain:    "Grosse pluie",
	SkyLightSnow:    "Neige",
	SkyHeavySnow:    "Grosse neige",
}

// legacySky maps the older five-value sky set onto the current one.
var legacySky = map[string]SkyCondition{
	"SNOW": SkyLightSnow,
	"RAIN": SkyLightRain,
}

// ParseSkyCondition accepts current and legacy member names.
func ParseSkyCondition(s string) (SkyCondition, bool) {
	if _, ok := skyLabels[SkyCondition(s)]; ok {
		return SkyCondition(s), true
	}
	sky, ok := legacySky[s]
	return sky, ok
}

type WindDirection string

const (
	WindN  WindDirection = "N"
	WindNE WindDirection = "NE"
	WindE  WindDirection = "E"
	WindSE WindDirection = "SE"
	WindS  WindDirection = "S"
	WindSW WindDirection = "SW"
	WindW  WindDirection = "W"
	WindNW WindDirection = "NW"
)

// WindDirections lists the compass points clockwise from north.
var WindDirections = []WindDirection{WindN, WindNE, WindE, WindSE, WindS, WindSW, WindW, WindNW}

func ParseWindDirection(s string) (WindDirection, bool) {
	for _, dir := range WindDirections {
		if string(dir) == s {
			return dir, true
		}
	}
	return "", false
}

// WindDirectionFromDegrees rounds a bearing to the nearest compass point.
func WindDirectionFromDegrees(deg float64) WindDirection {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return WindDirections[int(math.Round(deg/45))%len(WindDirections)]
}

type Temperature struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func NewTemperature(p Partial) Temperature {
	var d decoder
	return d.temperature(p, "")
}

func (d *decoder) temperature(p Partial, path string) Temperature {
	return Temperature{
		Min: d.number(p, path, "min", "bottom"),
		Max: d.number(p, path, "max", "top"),
	}
}

func (t Temperature) partial() Partial {
	return Partial{"min": t.Min, "max": t.Max}
}

// Iso is the altitude of the 0°C isotherm in meters.
type Iso struct {
	Night float64 `json:"night"`
	Day   float64 `json:"day"`
}

func NewIso(p Partial) Iso {
	var d decoder
	return d.iso(p, "")
}

func (d *decoder) iso(p Partial, path string) Iso {
	return Iso{
		Night: d.number(p, path, "night"),
		Day:   d.number(p, path, "day"),
	}
}

func (i Iso) partial() Partial {
	return Partial{"night": i.Night, "day": i.Day}
}

type Wind struct {
	Direction WindDirection `json:"direction"`
	Speed     float64       `json:"speed"`
}

func NewWind(p Partial) Wind {
	var d decoder
	return d.wind(p, "")
}

func (d *decoder) wind(p Partial, path string) Wind {
	w := Wind{Direction: WindN, Speed: d.number(p, path, "speed")}
	if s, ok := d.word(p, path, "direction"); ok {
		if dir, ok := ParseWindDirection(s); ok {
			w.Direction = dir
		} else {
			d.report(join(path, "direction"), p["direction"])
		}
	}
	return w
}

// Rotation is the compass bearing of the wind direction in degrees.
func (w Wind) Rotation() float64 {
	for i, dir := range WindDirections {
		if dir == w.Direction {
			return float64(i) * 45
		}
	}
	return 0
}

func (w Wind) partial() Partial {
	return Partial{"direction": string(w.Direction), "speed": w.Speed}
}

const (
	beraMin = 0
	beraMax = 5

	// meteoHorizonDays is how far ahead a forecast is worth refreshing.
	meteoHorizonDays = 7
)

type Meteo struct {
	Sky         SkyCondition `json:"sky"`
	Temperature Temperature  `json:"temperature"`
	Iso         Iso          `json:"iso"`
	Wind        Wind         `json:"wind"`
	Bera        int          `json:"bera"`
}

func NewMeteo(p Partial) Meteo {
	var d decoder
	return d.meteo(p, "")
}

func (d *decoder) meteo(p Partial, path string) Meteo {
	m := Meteo{
		Sky:         SkySunny,
		Temperature: d.temperature(d.object(p, path, "temperature"), join(path, "temperature")),
		Iso:         d.iso(d.object(p, path, "iso"), join(path, "iso")),
		Wind:        d.wind(d.object(p, path, "wind"), join(path, "wind")),
		Bera:        d.integer(p, path, "bera"),
	}
	if s, ok := d.word(p, path, "sky"); ok {
		if sky, ok := ParseSkyCondition(s); ok {
			m.Sky = sky
		} else {
			d.report(join(path, "sky"), p["sky"])
		}
	}
	if m.Bera < beraMin || m.Bera > beraMax {
		d.report(join(path, "bera"), p["bera"])
		m.Bera = beraMin
	}
	return m
}

// DisplayName is the French label of the sky condition.
func (m Meteo) DisplayName() string {
	return skyLabels[m.Sky]
}

// ShouldUpdate reports whether a forecast refresh makes sense for an outing on
// journeyDate: strictly in the future and at most a week ahead, counted in
// whole days.
func (m Meteo) ShouldUpdate(journeyDate, now time.Time) bool {
	days := int(journeyDate.Sub(now) / (24 * time.Hour))
	return days > 0 && days <= meteoHorizonDays
}

func (m Meteo) WithBera(bera int) Meteo {
	if bera < beraMin || bera > beraMax {
		bera = beraMin
	}
	m.Bera = bera
	return m
}

func (m Meteo) partial() Partial {
	return Partial{
		"sky":         string(m.Sky),
		"temperature": m.Temperature.partial(),
		"iso":         m.Iso.partial(),
		"wind":        m.Wind.partial(),
		"bera":        m.Bera,
	}
}
