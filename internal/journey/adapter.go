package journey

import (
	"bytes"
	"encoding/json"
	"time"
)

// ISOLayout renders dates the way the API stores them: UTC with milliseconds.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// Wire is the JSON shape exchanged with the API.
type Wire struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Date          string      `json:"date"`
	Season        Season      `json:"season"`
	Members       []string    `json:"members"`
	Pictures      []string    `json:"pictures"`
	Itinerary     Itinerary   `json:"itinerary"`
	Altitudes     Altitudes   `json:"altitudes"`
	Meteo         Meteo       `json:"meteo"`
	Protections   Protections `json:"protections"`
	Miscellaneous string      `json:"miscellaneous"`
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ToJSON converts a journey to its wire form. Only the date changes shape.
func ToJSON(j Journey) Wire {
	c := j.Clone()
	return Wire{
		ID:            c.ID,
		Title:         c.Title,
		Date:          FormatDate(c.Date),
		Season:        c.Season,
		Members:       c.Members,
		Pictures:      c.Pictures,
		Itinerary:     c.Itinerary,
		Altitudes:     c.Altitudes,
		Meteo:         c.Meteo,
		Protections:   c.Protections,
		Miscellaneous: c.Miscellaneous,
	}
}

// EncodePartial prepares a journey-shaped partial for sending: a time value in
// "date" becomes its ISO string, a date that is already a string is left as
// is. Other fields pass through.
func EncodePartial(p Partial) Partial {
	if p == nil {
		return nil
	}
	out := make(Partial, len(p))
	for k, v := range p {
		out[k] = v
	}
	switch d := p["date"].(type) {
	case time.Time:
		out["date"] = FormatDate(d)
	case *time.Time:
		if d != nil {
			out["date"] = FormatDate(*d)
		}
	}
	return out
}

// FromJSON rebuilds a journey from its wire form. It returns false when the
// input is nil or carries no usable date: such input is not a journey and no
// default journey is made up for it.
func FromJSON(p Partial) (Journey, bool) {
	if p == nil {
		return Journey{}, false
	}
	v := p["date"]
	if falsy(v) {
		return Journey{}, false
	}
	date, ok := parseDate(v)
	if !ok {
		return Journey{}, false
	}
	var d decoder
	return d.journey(p, date), true
}

// Decode parses a JSON document and applies FromJSON. A JSON null decodes to
// false without error.
func Decode(data []byte) (Journey, bool, error) {
	p, err := DecodePartial(data)
	if err != nil {
		return Journey{}, false, err
	}
	j, ok := FromJSON(p)
	return j, ok, nil
}

// DecodePartial parses a JSON object keeping numbers as json.Number.
func DecodePartial(data []byte) (Partial, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p Partial
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

// Partial returns the wire journey as a plain nested structure.
func (w Wire) Partial() Partial {
	members := make([]any, len(w.Members))
	for i, m := range w.Members {
		members[i] = m
	}
	pictures := make([]any, len(w.Pictures))
	for i, p := range w.Pictures {
		pictures[i] = p
	}
	return Partial{
		"id":            w.ID,
		"title":         w.Title,
		"date":          w.Date,
		"season":        string(w.Season),
		"members":       members,
		"pictures":      pictures,
		"itinerary":     w.Itinerary.partial(),
		"altitudes":     w.Altitudes.partial(),
		"meteo":         w.Meteo.partial(),
		"protections":   w.Protections.partial(),
		"miscellaneous": w.Miscellaneous,
	}
}

func (j Journey) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToJSON(j))
}
