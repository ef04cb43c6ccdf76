package domain

import (
	"fmt"
)

// Dataset is an ordered collection of rows sharing one schema.
type Dataset struct {
	Schema Schema
	Rows   []Record
}

// NewDataset creates an empty dataset for schema.
func NewDataset(schema Schema) *Dataset {
	return &Dataset{Schema: schema}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Append adds rows, coercing declared columns and extending the schema with
// any undeclared scalar column. Earlier rows read the new column as null.
// Nested lists are not columns and are ignored here.
func (d *Dataset) Append(rows ...Record) error {
	for _, row := range rows {
		out := make(Record, len(row))
		for _, k := range sortedKeys(row) {
			v := row[k]
			if _, nested := AsRecords(v); nested && v != nil {
				continue
			}
			f, ok := d.Schema.Field(k)
			if !ok {
				t, known := InferType(v)
				if !known {
					continue
				}
				f = Field{Name: k, Type: t}
				d.Schema = d.Schema.WithField(f)
			}
			cv, err := Coerce(f.Type, v)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", d.Schema.Name, k, err)
			}
			out[k] = cv
		}
		d.Rows = append(d.Rows, out)
	}
	return nil
}

// Filter returns a dataset with the rows for which keep reports true.
func (d *Dataset) Filter(keep func(Record) bool) *Dataset {
	out := &Dataset{Schema: d.Schema}
	for _, r := range d.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Project returns a dataset restricted to the named columns.
// Unknown names are ignored.
func (d *Dataset) Project(name string, columns ...string) *Dataset {
	schema := Schema{Name: name}
	for _, c := range columns {
		if f, ok := d.Schema.Field(c); ok {
			schema.Fields = append(schema.Fields, f)
		}
	}
	for _, k := range d.Schema.Key {
		if _, ok := schema.Field(k); ok {
			schema.Key = append(schema.Key, k)
		}
	}
	out := &Dataset{Schema: schema, Rows: make([]Record, len(d.Rows))}
	for i, r := range d.Rows {
		p := make(Record, len(schema.Fields))
		for _, f := range schema.Fields {
			if v, ok := r[f.Name]; ok {
				p[f.Name] = v
			}
		}
		out.Rows[i] = p
	}
	return out
}

// EntityKeys returns the set of entity keys present.
func (d *Dataset) EntityKeys() map[string]struct{} {
	out := make(map[string]struct{}, d.Len())
	if d == nil {
		return out
	}
	for _, r := range d.Rows {
		out[d.Schema.EntityKey(r)] = struct{}{}
	}
	return out
}
