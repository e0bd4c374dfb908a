package journey

import (
	"strconv"
	"strings"
)

// Rope diameter is in millimeters, length in meters.
type Rope struct {
	Diameter float64 `json:"diameter"`
	Length   float64 `json:"length"`
}

func NewRope(p Partial) Rope {
	var d decoder
	return d.rope(p, "")
}

func (d *decoder) rope(p Partial, path string) Rope {
	return Rope{
		Diameter: d.number(p, path, "diameter"),
		Length:   d.number(p, path, "length"),
	}
}

func (r Rope) partial() Partial {
	return Partial{"diameter": r.Diameter, "length": r.Length}
}

// Protections is the climbing gear carried on an outing. Cams lists the
// friend sizes carried, one entry per piece.
type Protections struct {
	Ropes  []Rope    `json:"ropes"`
	Nuts   int       `json:"nuts"`
	Cams   []float64 `json:"cams"`
	Screws int       `json:"screws"`
}

func NewProtections(p Partial) Protections {
	var d decoder
	return d.protections(p, "")
}

func (d *decoder) protections(p Partial, path string) Protections {
	out := Protections{
		Ropes:  []Rope{{}},
		Nuts:   d.integer(p, path, "nuts"),
		Cams:   []float64{0},
		Screws: d.integer(p, path, "screws"),
	}
	if items, ok := d.objects(p, path, "ropes"); ok {
		out.Ropes = make([]Rope, 0, len(items))
		for i, item := range items {
			out.Ropes = append(out.Ropes, d.rope(item, join(path, "ropes["+strconv.Itoa(i)+"]")))
		}
	}
	if cams, ok := d.numbers(p, path, "cams"); ok {
		out.Cams = cams
	}
	return out
}

// ParseCams reads whitespace separated cam sizes as typed in a form. Tokens
// that are not numbers are dropped.
func ParseCams(input string) []float64 {
	cams := []float64{}
	for _, field := range strings.Fields(input) {
		f, ok := toFloat(field)
		if !ok {
			continue
		}
		cams = append(cams, f)
	}
	return cams
}

// FormatCams is the inverse of ParseCams.
func FormatCams(cams []float64) string {
	parts := make([]string, len(cams))
	for i, c := range cams {
		parts[i] = strconv.FormatFloat(c, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}

func (p Protections) Clone() Protections {
	p.Ropes = append([]Rope{}, p.Ropes...)
	p.Cams = append([]float64{}, p.Cams...)
	return p
}

// WithRope replaces the rope at index i. Out of range indexes leave the
// protections unchanged.
func (p Protections) WithRope(i int, r Rope) Protections {
	out := p.Clone()
	if i < 0 || i >= len(out.Ropes) {
		return out
	}
	out.Ropes[i] = r
	return out
}

func (p Protections) AddRope() Protections {
	out := p.Clone()
	out.Ropes = append(out.Ropes, Rope{})
	return out
}

// RemoveRope drops the rope at index i. The last remaining rope is kept.
func (p Protections) RemoveRope(i int) Protections {
	out := p.Clone()
	if len(out.Ropes) <= 1 || i < 0 || i >= len(out.Ropes) {
		return out
	}
	out.Ropes = append(out.Ropes[:i], out.Ropes[i+1:]...)
	return out
}

func (p Protections) WithNuts(n int) Protections {
	out := p.Clone()
	out.Nuts = n
	return out
}

func (p Protections) WithCams(cams []float64) Protections {
	out := p.Clone()
	out.Cams = append([]float64{}, cams...)
	return out
}

func (p Protections) WithScrews(n int) Protections {
	out := p.Clone()
	out.Screws = n
	return out
}

func (p Protections) partial() Partial {
	ropes := make([]any, len(p.Ropes))
	for i, r := range p.Ropes {
		ropes[i] = r.partial()
	}
	cams := make([]any, len(p.Cams))
	for i, c := range p.Cams {
		cams[i] = c
	}
	return Partial{
		"ropes":  ropes,
		"nuts":   p.Nuts,
		"cams":   cams,
		"screws": p.Screws,
	}
}
