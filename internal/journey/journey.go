package journey

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("journey not found")
	ErrMeteoNotDue   = errors.New("meteo refresh is only available within a week before the journey")
	ErrNoCoordinates = errors.New("itinerary end point is not set")
)

type Season string

const (
	SeasonSummer Season = "SUMMER"
	SeasonWinter Season = "WINTER"
)

func ParseSeason(s string) (Season, bool) {
	switch Season(s) {
	case SeasonSummer, SeasonWinter:
		return Season(s), true
	}
	return "", false
}

// Journey is one recorded mountaineering outing. An empty ID marks a journey
// that has not been persisted yet.
type Journey struct {
	ID            string
	Title         string
	Date          time.Time
	Season        Season
	Members       []string
	Pictures      []string
	Itinerary     Itinerary
	Altitudes     Altitudes
	Meteo         Meteo
	Protections   Protections
	Miscellaneous string
}

// Empty returns the journey used to start a new entry.
func Empty(now time.Time) Journey {
	return New(nil, now)
}

// New builds a complete journey from any subset of fields. A missing or
// unparseable date defaults to now.
func New(p Partial, now time.Time) Journey {
	j, _ := Normalize(p, now)
	return j
}

// Normalize is New that also reports every field that had to be coerced to
// its default.
func Normalize(p Partial, now time.Time) (Journey, []*CoercionError) {
	var d decoder
	j := d.journey(p, canonicalTime(now))
	return j, d.issues
}

func (d *decoder) journey(p Partial, fallback time.Time) Journey {
	j := Journey{
		ID:            d.str(p, "", "id"),
		Title:         d.str(p, "", "title"),
		Date:          fallback,
		Season:        SeasonSummer,
		Members:       d.strs(p, "", "members"),
		Pictures:      d.strs(p, "", "pictures"),
		Itinerary:     d.itinerary(d.object(p, "", "itinerary"), "itinerary"),
		Altitudes:     d.altitudes(d.object(p, "", "altitudes"), "altitudes"),
		Meteo:         d.meteo(d.object(p, "", "meteo"), "meteo"),
		Protections:   d.protections(d.object(p, "", "protections"), "protections"),
		Miscellaneous: d.str(p, "", "miscellaneous"),
	}
	if v, ok := p.lookup("date"); ok {
		if date, ok := parseDate(v); ok {
			j.Date = date
		} else {
			d.report("date", v)
		}
	}
	if s, ok := d.word(p, "", "season"); ok {
		if season, ok := ParseSeason(s); ok {
			j.Season = season
		} else {
			d.report("season", p["season"])
		}
	}
	return j
}

func (j Journey) IsNew() bool {
	return j.ID == ""
}

func (j Journey) IsFuture(now time.Time) bool {
	return j.Date.After(now)
}

func (j Journey) IsPast(now time.Time) bool {
	return j.Date.Before(now)
}

func (j Journey) ShouldUpdateMeteo(now time.Time) bool {
	return j.IsFuture(now) && j.Meteo.ShouldUpdate(j.Date, now)
}

// Clone returns a copy that shares no slices with j.
func (j Journey) Clone() Journey {
	j.Members = append([]string{}, j.Members...)
	j.Pictures = append([]string{}, j.Pictures...)
	j.Protections = j.Protections.Clone()
	return j
}
