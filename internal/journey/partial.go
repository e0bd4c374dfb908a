package journey

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Partial is a loosely typed journey structure, as decoded from a JSON body or
// assembled from form values. Any subset of fields may be present and nested
// values may themselves be partial.
type Partial map[string]any

// CoercionError records a field whose value could not be used as given and was
// replaced by the field default.
type CoercionError struct {
	Path  string
	Value any
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("journey: %s: cannot use %v (%T), default applied", e.Path, e.Value, e.Value)
}

// partialer is implemented by every value object so typed values can be mixed
// into a Partial.
type partialer interface {
	partial() Partial
}

type decoder struct {
	issues []*CoercionError
}

func (d *decoder) report(path string, v any) {
	d.issues = append(d.issues, &CoercionError{Path: path, Value: v})
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// lookup returns the first non-nil value stored under one of keys.
func (p Partial) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Merge applies patch over base. Nested objects merge key by key; any other
// value, lists included, replaces what base holds.
func Merge(base, patch Partial) Partial {
	out := make(Partial, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if pv, ok := toPartial(v); ok {
			if bv, ok := toPartial(out[k]); ok {
				out[k] = Merge(bv, pv)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func toPartial(v any) (Partial, bool) {
	switch m := v.(type) {
	case Partial:
		return m, true
	case map[string]any:
		return Partial(m), true
	case partialer:
		return m.partial(), true
	}
	return nil, false
}

func (d *decoder) object(p Partial, path string, keys ...string) Partial {
	v, ok := p.lookup(keys...)
	if !ok {
		return nil
	}
	obj, ok := toPartial(v)
	if !ok {
		d.report(join(path, keys[0]), v)
		return nil
	}
	return obj
}

func (d *decoder) number(p Partial, path string, keys ...string) float64 {
	v, ok := p.lookup(keys...)
	if !ok || v == "" {
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		d.report(join(path, keys[0]), v)
		return 0
	}
	return f
}

func (d *decoder) integer(p Partial, path string, keys ...string) int {
	return int(math.Trunc(d.number(p, path, keys...)))
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (d *decoder) str(p Partial, path string, keys ...string) string {
	v, ok := p.lookup(keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	}
	d.report(join(path, keys[0]), v)
	return ""
}

// strs decodes a list of strings. Entries that are not strings are dropped.
func (d *decoder) strs(p Partial, path, key string) []string {
	out := []string{}
	v, ok := p.lookup(key)
	if !ok {
		return out
	}
	switch list := v.(type) {
	case []string:
		return append(out, list...)
	case []any:
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				d.report(fmt.Sprintf("%s[%d]", join(path, key), i), item)
				continue
			}
			out = append(out, s)
		}
		return out
	}
	d.report(join(path, key), v)
	return out
}

// numbers decodes a list of numbers. The second result is false when the key
// is absent or unusable so callers can apply their own list default.
func (d *decoder) numbers(p Partial, path, key string) ([]float64, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []float64:
		return append([]float64{}, list...), true
	case []any:
		out := []float64{}
		for i, item := range list {
			f, ok := toFloat(item)
			if !ok {
				d.report(fmt.Sprintf("%s[%d]", join(path, key), i), item)
				continue
			}
			out = append(out, f)
		}
		return out, true
	case string:
		return ParseCams(list), true
	}
	d.report(join(path, key), v)
	return nil, false
}

// objects decodes a list of nested partials. Entries that are not objects
// decode as empty partials.
func (d *decoder) objects(p Partial, path, key string) ([]Partial, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return nil, false
	}
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []Partial:
		for _, item := range list {
			items = append(items, item)
		}
	case []Rope:
		for _, item := range list {
			items = append(items, item)
		}
	default:
		d.report(join(path, key), v)
		return nil, false
	}
	out := make([]Partial, 0, len(items))
	for i, item := range items {
		obj, ok := toPartial(item)
		if !ok {
			d.report(fmt.Sprintf("%s[%d]", join(path, key), i), item)
		}
		out = append(out, obj)
	}
	return out, true
}

// word decodes an enumeration member name. The second result is false when
// the key is absent.
func (d *decoder) word(p Partial, path, key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return strings.ToUpper(strings.TrimSpace(s)), true
	}
	d.report(join(path, key), v)
	return "", false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate accepts time values, ISO-8601 strings and epoch milliseconds.
// Years the four-digit wire form cannot carry are rejected.
func parseDate(v any) (time.Time, bool) {
	t, ok := readDate(v)
	if !ok || t.Year() < 0 || t.Year() > 9999 {
		return time.Time{}, false
	}
	return t, true
}

func readDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return canonicalTime(t), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return canonicalTime(*t), true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return canonicalTime(parsed), true
			}
		}
		return time.Time{}, false
	}
	if ms, ok := toFloat(v); ok {
		return canonicalTime(time.UnixMilli(int64(ms))), true
	}
	return time.Time{}, false
}

// canonicalTime drops the monotonic reading, the zone and everything below the
// millisecond, which is what the ISO wire string can carry.
func canonicalTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case bool:
		return !x
	case *time.Time:
		return x == nil
	}
	if f, ok := toFloat(v); ok {
		return f == 0
	}
	return false
}
