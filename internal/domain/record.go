package domain

import (
	"fmt"
	"strconv"
)

// Record is one entity as named field values.
//
// Values are string, int64, float64, bool or nil. Fetch payloads may also
// carry nested lists as []Record (race entries, horse history); those are
// split out before a record is stored.
type Record map[string]any

// Clone returns a shallow copy. Nested lists are copied so that the clone
// can replace them without touching the original.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if list, ok := v.([]Record); ok {
			v = append([]Record(nil), list...)
		}
		out[k] = v
	}
	return out
}

// Has reports whether field is present with a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Text returns the canonical string form of a scalar field.
// ok is false when the field is absent, nil or not a scalar.
func (r Record) Text(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := Canonical(v)
	return s, ok
}

// Without returns a clone that lacks the named fields.
func (r Record) Without(fields ...string) Record {
	out := r.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Canonical formats a scalar value as a string. Lookups that join records
// by a shared field compare these forms, so 7 and "7" match.
func Canonical(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case bool:
		return strconv.FormatBool(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

// AsRecords converts a nested list value into records.
// ok is false when v is not a list of objects.
func AsRecords(v any) ([]Record, bool) {
	switch list := v.(type) {
	case []Record:
		return list, true
	case []map[string]any:
		out := make([]Record, len(list))
		for i, m := range list {
			out[i] = Record(m)
		}
		return out, true
	case []any:
		out := make([]Record, 0, len(list))
		for _, item := range list {
			switch m := item.(type) {
			case Record:
				out = append(out, m)
			case map[string]any:
				out = append(out, Record(m))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
