package journey

import (
	"strings"
	"time"
)

func (j Journey) WithID(id string) Journey {
	out := j.Clone()
	out.ID = id
	return out
}

func (j Journey) WithTitle(title string) Journey {
	out := j.Clone()
	out.Title = title
	return out
}

func (j Journey) WithDate(date time.Time) Journey {
	out := j.Clone()
	if !date.IsZero() {
		out.Date = canonicalTime(date)
	}
	return out
}

func (j Journey) WithSeason(s Season) Journey {
	out := j.Clone()
	if _, ok := ParseSeason(string(s)); ok {
		out.Season = s
	}
	return out
}

func (j Journey) WithMembers(members []string) Journey {
	out := j.Clone()
	out.Members = append([]string{}, members...)
	return out
}

func (j Journey) WithPictures(pictures []string) Journey {
	out := j.Clone()
	out.Pictures = append([]string{}, pictures...)
	return out
}

func (j Journey) AddPicture(url string) Journey {
	out := j.Clone()
	out.Pictures = append(out.Pictures, url)
	return out
}

func (j Journey) WithItinerary(i Itinerary) Journey {
	out := j.Clone()
	out.Itinerary = i
	return out
}

func (j Journey) WithAltitudes(a Altitudes) Journey {
	out := j.Clone()
	out.Altitudes = a
	return out
}

func (j Journey) WithMeteo(m Meteo) Journey {
	out := j.Clone()
	out.Meteo = m
	return out
}

func (j Journey) WithProtections(p Protections) Journey {
	out := j.Clone()
	out.Protections = p.Clone()
	return out
}

func (j Journey) WithMiscellaneous(s string) Journey {
	out := j.Clone()
	out.Miscellaneous = s
	return out
}

// WithField applies a form edit addressed by a dotted path such as
// "meteo.wind.direction" and returns the re-normalized journey. Form values
// may be strings; they are coerced like any other partial input. An edit that
// leaves the date unparseable keeps the previous date.
func (j Journey) WithField(path string, value any) Journey {
	out, _ := j.WithFieldReport(path, value)
	return out
}

// WithFieldReport is WithField that also returns the coercions applied.
func (j Journey) WithFieldReport(path string, value any) (Journey, []*CoercionError) {
	keys := strings.Split(path, ".")
	root := ToJSON(j).Partial()
	setPath(root, keys, value)
	return Normalize(root, j.Date)
}

// setPath writes value at keys, copying each map it descends into so the
// caller's nested maps are never modified.
func setPath(p Partial, keys []string, value any) {
	if len(keys) == 1 {
		p[keys[0]] = value
		return
	}
	child := Partial{}
	if existing, ok := toPartial(p[keys[0]]); ok {
		for k, v := range existing {
			child[k] = v
		}
	}
	p[keys[0]] = child
	setPath(child, keys[1:], value)
}
