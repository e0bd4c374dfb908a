package journey

import "fmt"

// GeoPoint is a WGS84 position. The zero point is a valid placeholder for
// "not set yet", never nil.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func NewGeoPoint(p Partial) GeoPoint {
	var d decoder
	return d.geoPoint(p, "")
}

func (d *decoder) geoPoint(p Partial, path string) GeoPoint {
	return GeoPoint{
		Latitude:  d.number(p, path, "latitude", "lat"),
		Longitude: d.number(p, path, "longitude", "long", "lng"),
	}
}

func (g GeoPoint) IsZero() bool {
	return g.Latitude == 0 && g.Longitude == 0
}

func (g GeoPoint) String() string {
	return fmt.Sprintf("%.6f, %.6f", g.Latitude, g.Longitude)
}

func (g GeoPoint) partial() Partial {
	return Partial{"latitude": g.Latitude, "longitude": g.Longitude}
}

// Itinerary holds the start and end of an outing and an optional GPX track
// reference (empty when there is no track).
type Itinerary struct {
	Start GeoPoint `json:"start"`
	End   GeoPoint `json:"end"`
	Gpx   string   `json:"gpx"`
}

func NewItinerary(p Partial) Itinerary {
	var d decoder
	return d.itinerary(p, "")
}

func (d *decoder) itinerary(p Partial, path string) Itinerary {
	return Itinerary{
		Start: d.geoPoint(d.object(p, path, "start"), join(path, "start")),
		End:   d.geoPoint(d.object(p, path, "end"), join(path, "end")),
		Gpx:   d.str(p, path, "gpx", "gpxId"),
	}
}

// HasValidCoordinates reports whether all four coordinates are set.
func (i Itinerary) HasValidCoordinates() bool {
	return i.Start.Latitude != 0 &&
		i.Start.Longitude != 0 &&
		i.End.Latitude != 0 &&
		i.End.Longitude != 0
}

func (i Itinerary) HasGpxTrack() bool {
	return i.Gpx != ""
}

func (i Itinerary) WithStart(p GeoPoint) Itinerary {
	i.Start = p
	return i
}

func (i Itinerary) WithEnd(p GeoPoint) Itinerary {
	i.End = p
	return i
}

func (i Itinerary) WithGpx(ref string) Itinerary {
	i.Gpx = ref
	return i
}

func (i Itinerary) partial() Partial {
	return Partial{
		"start": i.Start.partial(),
		"end":   i.End.partial(),
		"gpx":   i.Gpx,
	}
}

// Altitudes are expressed in meters. Total is the cumulated ascent.
type Altitudes struct {
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Total float64 `json:"total"`
}

func NewAltitudes(p Partial) Altitudes {
	var d decoder
	return d.altitudes(p, "")
}

func (d *decoder) altitudes(p Partial, path string) Altitudes {
	return Altitudes{
		Max:   d.number(p, path, "max"),
		Min:   d.number(p, path, "min"),
		Total: d.number(p, path, "total"),
	}
}

// Denivele is the height difference between the highest and the lowest point.
func (a Altitudes) Denivele() float64 {
	return a.Max - a.Min
}

func (a Altitudes) IsValid() bool {
	return a.Max > a.Min && a.Total > 0
}

func (a Altitudes) partial() Partial {
	return Partial{"max": a.Max, "min": a.Min, "total": a.Total}
}
