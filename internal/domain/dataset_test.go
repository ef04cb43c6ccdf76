package domain

import (
	"errors"
	"testing"
)

func TestDataset_Append(t *testing.T) {
	ds := NewDataset(Schema{
		Name:   "t",
		Key:    []string{"id"},
		Fields: []Field{{Name: "id", Type: TypeString}},
	})

	if err := ds.Append(Record{"id": "a"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := ds.Append(Record{"id": "b", "extra": int64(3), "entries": []Record{{"x": 1}}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	f, ok := ds.Schema.Field("extra")
	if !ok || f.Type != TypeInt {
		t.Fatalf("extra column = %+v, %v; want inferred int", f, ok)
	}
	if _, ok := ds.Schema.Field("entries"); ok {
		t.Errorf("nested list became a column")
	}
	if ds.Rows[0].Has("extra") {
		t.Errorf("earlier row should read extra as null")
	}
	if ds.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ds.Len())
	}

	bad := NewDataset(Schema{Name: "t", Fields: []Field{{Name: "n", Type: TypeInt}}})
	if err := bad.Append(Record{"n": "x"}); !errors.Is(err, ErrFieldType) {
		t.Errorf("Append() error = %v, want ErrFieldType", err)
	}
}

func TestDataset_Project(t *testing.T) {
	ds := &Dataset{
		Schema: Schema{
			Key:    []string{"id"},
			Fields: []Field{{Name: "id"}, {Name: "name"}, {Name: "kind"}},
		},
		Rows: []Record{{"id": "1", "name": "a", "kind": "101"}},
	}
	p := ds.Project("p", "id", "name", "missing")
	if got := p.Schema.Columns(); len(got) != 2 {
		t.Fatalf("columns = %v, want [id name]", got)
	}
	if _, ok := p.Rows[0]["kind"]; ok {
		t.Errorf("projected row kept kind")
	}
	if len(p.Schema.Key) != 1 {
		t.Errorf("key = %v, want [id]", p.Schema.Key)
	}
}

func TestKeyGroups(t *testing.T) {
	g := NewKeyGroups()
	g.Add("B", "B01")
	g.Add("A", "A01")
	g.Add("B", "B02")

	keys := g.Keys()
	if len(keys) != 2 || keys[0] != "B" || keys[1] != "A" {
		t.Errorf("Keys() = %v, want [B A]", keys)
	}
	if got := g.Get("B"); len(got) != 2 || got[1] != "B02" {
		t.Errorf("Get(B) = %v", got)
	}
	if g.Total() != 3 {
		t.Errorf("Total() = %d, want 3", g.Total())
	}
}

func TestLookupSchema(t *testing.T) {
	s, err := LookupSchema(DatasetRegistry)
	if err != nil {
		t.Fatalf("LookupSchema() error = %v", err)
	}
	if s.Version != "update_date" {
		t.Errorf("registry version = %q", s.Version)
	}
	if _, err := LookupSchema("nope"); !errors.Is(err, ErrUnknownDataset) {
		t.Errorf("LookupSchema(nope) error = %v", err)
	}
}
