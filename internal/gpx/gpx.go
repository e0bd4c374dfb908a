// Package gpx reads GPS exchange files and derives the figures a journey
// needs from them: the first and last points and the altitude profile.
package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"backend-journeylog/internal/shared/geo"
)

var ErrEmptyTrack = errors.New("gpx: no track points")

type Point struct {
	Lat       float64
	Lon       float64
	Elevation float64
	HasEle    bool
	Time      time.Time
}

type Track struct {
	Name   string
	Points []Point
}

type Stats struct {
	DistanceKm   float64
	MinElevation float64
	MaxElevation float64
	Gain         float64
	Loss         float64
}

type document struct {
	Metadata struct {
		Name string `xml:"name"`
	} `xml:"metadata"`
	Tracks []struct {
		Name     string `xml:"name"`
		Segments []struct {
			Points []waypoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
	Routes []struct {
		Name   string     `xml:"name"`
		Points []waypoint `xml:"rtept"`
	} `xml:"rte"`
}

type waypoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time"`
}

// point reports false for a position that is not a finite number. A
// non-finite elevation is treated as missing.
func (w waypoint) point() (Point, bool) {
	if !finite(w.Lat) || !finite(w.Lon) {
		return Point{}, false
	}
	p := Point{Lat: w.Lat, Lon: w.Lon}
	if w.Ele != nil && finite(*w.Ele) {
		p.Elevation = *w.Ele
		p.HasEle = true
	}
	if w.Time != "" {
		if t, err := time.Parse(time.RFC3339, w.Time); err == nil {
			p.Time = t
		}
	}
	return p, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (t *Track) add(wps []waypoint) {
	for _, wp := range wps {
		if p, ok := wp.point(); ok {
			t.Points = append(t.Points, p)
		}
	}
}

// Parse reads a GPX 1.0/1.1 document. Track segments are concatenated; route
// points are used only when the file has no track.
func Parse(r io.Reader) (Track, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Track{}, fmt.Errorf("gpx: decode: %w", err)
	}

	track := Track{Name: doc.Metadata.Name}
	for _, trk := range doc.Tracks {
		if track.Name == "" {
			track.Name = trk.Name
		}
		for _, seg := range trk.Segments {
			track.add(seg.Points)
		}
	}
	if len(track.Points) == 0 {
		for _, rte := range doc.Routes {
			if track.Name == "" {
				track.Name = rte.Name
			}
			track.add(rte.Points)
		}
	}
	if len(track.Points) == 0 {
		return Track{}, ErrEmptyTrack
	}
	return track, nil
}

func (t Track) Start() (Point, bool) {
	if len(t.Points) == 0 {
		return Point{}, false
	}
	return t.Points[0], true
}

func (t Track) End() (Point, bool) {
	if len(t.Points) == 0 {
		return Point{}, false
	}
	return t.Points[len(t.Points)-1], true
}

// HasElevation reports whether any point carries an altitude.
func (t Track) HasElevation() bool {
	for _, p := range t.Points {
		if p.HasEle {
			return true
		}
	}
	return false
}

// Stats walks the track once. Points without elevation are skipped for the
// altitude figures but still count for distance.
func (t Track) Stats() Stats {
	var s Stats
	var prev *Point
	var prevEle *float64
	for i := range t.Points {
		p := t.Points[i]
		if prev != nil {
			s.DistanceKm += geo.HaversineKm(prev.Lat, prev.Lon, p.Lat, p.Lon)
		}
		prev = &t.Points[i]

		if !p.HasEle {
			continue
		}
		if prevEle == nil {
			s.MinElevation = p.Elevation
			s.MaxElevation = p.Elevation
		} else {
			if p.Elevation < s.MinElevation {
				s.MinElevation = p.Elevation
			}
			if p.Elevation > s.MaxElevation {
				s.MaxElevation = p.Elevation
			}
			if delta := p.Elevation - *prevEle; delta > 0 {
				s.Gain += delta
			} else {
				s.Loss -= delta
			}
		}
		ele := p.Elevation
		prevEle = &ele
	}
	return s
}
