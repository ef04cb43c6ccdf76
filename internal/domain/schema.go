package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FieldType is the declared type of a column.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeFloat
	TypeBool
	// TypeDate is stored as a YYYY-MM-DD string and ordered chronologically.
	TypeDate
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// LatestField is the derived column owned by the merge engine.
const LatestField = "latest"

// Field declares one column.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema declares the columns, entity key and version field of a dataset.
// Version is empty for datasets whose rows carry no version; such rows
// collapse on the entity key alone.
type Schema struct {
	Name    string
	Key     []string
	Version string
	Fields  []Field
}

// Field looks up a column by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns the column names in declaration order.
func (s Schema) Columns() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// WithField returns a copy of s with f appended, unless a column of that
// name already exists.
func (s Schema) WithField(f Field) Schema {
	if _, ok := s.Field(f.Name); ok {
		return s
	}
	out := s
	out.Fields = append(append([]Field(nil), s.Fields...), f)
	return out
}

// Union returns s extended with the columns of o that s lacks. Key and
// version come from s, or from o when s declares none. A column declared
// by both with incompatible types is ErrSchemaMismatch.
func (s Schema) Union(o Schema) (Schema, error) {
	out := s
	out.Fields = append([]Field(nil), s.Fields...)
	if out.Name == "" {
		out.Name = o.Name
	}
	if len(out.Key) == 0 {
		out.Key = o.Key
	}
	if out.Version == "" {
		out.Version = o.Version
	}
	for _, f := range o.Fields {
		existing, ok := out.Field(f.Name)
		if !ok {
			f.Required = false
			out.Fields = append(out.Fields, f)
			continue
		}
		if !compatible(existing.Type, f.Type) {
			return Schema{}, fmt.Errorf("%w: column %q is %s and %s", ErrSchemaMismatch, f.Name, existing.Type, f.Type)
		}
	}
	return out, nil
}

// compatible allows a date column to be read back from its string encoding.
func compatible(a, b FieldType) bool {
	if a == b {
		return true
	}
	return (a == TypeDate && b == TypeString) || (a == TypeString && b == TypeDate)
}

// Conform validates rec against the declared fields and coerces their
// values. Undeclared fields pass through; the derived latest column is
// dropped because the merge engine recomputes it.
func (s Schema) Conform(rec Record) (Record, error) {
	out := rec.Without(LatestField)
	for _, f := range s.Fields {
		v, ok := out[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, fmt.Errorf("%w: %s.%s", ErrMissingField, s.Name, f.Name)
			}
			continue
		}
		cv, err := Coerce(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	return out, nil
}

// EntityKey returns the joined entity key of rec.
func (s Schema) EntityKey(rec Record) string {
	if len(s.Key) == 1 {
		k, _ := rec.Text(s.Key[0])
		return k
	}
	parts := make([]string, len(s.Key))
	for i, f := range s.Key {
		parts[i], _ = rec.Text(f)
	}
	return strings.Join(parts, "\x1f")
}

// Identity returns the entity key plus normalized version of rec. Two rows
// with the same identity are duplicates.
func (s Schema) Identity(rec Record) string {
	key := s.EntityKey(rec)
	if s.Version == "" {
		return key
	}
	return key + "\x1e" + s.versionToken(rec[s.Version])
}

func (s Schema) versionToken(v any) string {
	if v == nil {
		return "\x00"
	}
	f, _ := s.Field(s.Version)
	switch f.Type {
	case TypeInt, TypeFloat:
		// int64 keeps full precision; integral floats format the same way.
		if i, ok := v.(int64); ok {
			return strconv.FormatInt(i, 10)
		}
		if n, ok := toFloat(v); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	case TypeDate:
		if str, ok := Canonical(v); ok {
			return canonicalDate(str)
		}
	}
	str, _ := Canonical(v)
	return str
}

// CompareVersion orders two rows by version: negative when a is older.
// A missing version is older than any present one.
func (s Schema) CompareVersion(a, b Record) int {
	if s.Version == "" {
		return 0
	}
	f, _ := s.Field(s.Version)
	return CompareValues(f.Type, a[s.Version], b[s.Version])
}

// CompareValues is a total order over values of one declared type.
// nil sorts first. Values that do not parse as the declared type fall back
// to comparing their canonical strings.
func CompareValues(t FieldType, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch t {
	case TypeInt, TypeFloat:
		ai, aInt := a.(int64)
		bi, bInt := b.(int64)
		if aInt && bInt {
			return compareOrdered(ai, bi)
		}
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			return compareOrdered(af, bf)
		}
	case TypeBool:
		ab, aok := a.(bool)
		bb, bok := b.(bool)
		if aok && bok {
			if ab == bb {
				return 0
			}
			if !ab {
				return -1
			}
			return 1
		}
	case TypeDate:
		as, _ := Canonical(a)
		bs, _ := Canonical(b)
		return strings.Compare(canonicalDate(as), canonicalDate(bs))
	}
	as, _ := Canonical(a)
	bs, _ := Canonical(b)
	return strings.Compare(as, bs)
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Coerce converts v to the Go representation of t.
func Coerce(t FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeString:
		if s, ok := Canonical(v); ok {
			return s, nil
		}
	case TypeDate:
		switch x := v.(type) {
		case time.Time:
			return x.Format(dateLayout), nil
		case string:
			return canonicalDate(x), nil
		}
	case TypeInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return int64(x), nil
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return n, nil
			}
		}
	case TypeFloat:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
		if x, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		}
	case TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %T is not %s", ErrFieldType, v, t)
}

// InferType guesses the column type of an undeclared scalar value.
func InferType(v any) (FieldType, bool) {
	switch v.(type) {
	case string:
		return TypeString, true
	case int64, int, int32:
		return TypeInt, true
	case float64, float32:
		return TypeFloat, true
	case bool:
		return TypeBool, true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}

const dateLayout = "2006-01-02"

var dateLayouts = []string{
	dateLayout,
	"2006/01/02",
	"20060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// canonicalDate rewrites recognised date spellings as YYYY-MM-DD and
// returns anything else unchanged.
func canonicalDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout)
		}
	}
	return s
}

// sortedKeys returns the field names of rec in lexical order.
func sortedKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
