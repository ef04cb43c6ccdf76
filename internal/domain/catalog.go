package domain

import (
	"fmt"
	"sort"
)

// Dataset names.
const (
	DatasetRace     = "race"
	DatasetEntry    = "entry"
	DatasetOdds     = "odds"
	DatasetHorse    = "horse"
	DatasetHistory  = "history"
	DatasetRegistry = "registry"
)

// Registry enrichment columns.
const (
	FieldLegalForm   = "legal_form"
	FieldBrandName   = "brand_name"
	FieldBrandKana   = "brand_kana"
	FieldReliability = "reliability"
)

var (
	RaceSchema = Schema{
		Name: DatasetRace,
		Key:  []string{"id"},
		Fields: []Field{
			{Name: "id", Type: TypeString, Required: true},
			{Name: "race_number", Type: TypeInt},
			{Name: "race_name", Type: TypeString},
			{Name: "race_date", Type: TypeDate},
			{Name: "race_time", Type: TypeString},
			{Name: "type", Type: TypeString},
			{Name: "length", Type: TypeInt},
			{Name: "handed", Type: TypeString},
			{Name: "weather", Type: TypeString},
			{Name: "ground_condition", Type: TypeString},
			{Name: "place", Type: TypeString},
			{Name: "round", Type: TypeInt},
			{Name: "days", Type: TypeInt},
			{Name: "head_count", Type: TypeInt},
		},
	}

	EntrySchema = Schema{
		Name: DatasetEntry,
		Key:  []string{"id"},
		Fields: []Field{
			{Name: "id", Type: TypeString, Required: true},
			{Name: "race_id", Type: TypeString, Required: true},
			{Name: "horse_id", Type: TypeString},
			{Name: "rank", Type: TypeString},
			{Name: "bracket", Type: TypeInt},
			{Name: "horse_number", Type: TypeInt},
			{Name: "horse_name", Type: TypeString},
			{Name: "gender", Type: TypeString},
			{Name: "age", Type: TypeInt},
			{Name: "weight", Type: TypeFloat},
			{Name: "jockey_id", Type: TypeString},
			{Name: "trainer_id", Type: TypeString},
			{Name: "time", Type: TypeString},
			{Name: "win", Type: TypeFloat},
			{Name: "show_min", Type: TypeFloat},
			{Name: "show_max", Type: TypeFloat},
			{Name: "popularity", Type: TypeInt},
		},
	}

	OddsSchema = Schema{
		Name: DatasetOdds,
		Key:  []string{"id"},
		Fields: []Field{
			{Name: "id", Type: TypeString, Required: true},
			{Name: "race_id", Type: TypeString},
			{Name: "win", Type: TypeFloat},
			{Name: "show_min", Type: TypeFloat},
			{Name: "show_max", Type: TypeFloat},
			{Name: "popularity", Type: TypeInt},
		},
	}

	HorseSchema = Schema{
		Name: DatasetHorse,
		Key:  []string{"id"},
		Fields: []Field{
			{Name: "id", Type: TypeString, Required: true},
			{Name: "horse_name", Type: TypeString},
			{Name: "birthday", Type: TypeDate},
			{Name: "trainer_id", Type: TypeString},
			{Name: "owner_id", Type: TypeString},
			{Name: "breeder_id", Type: TypeString},
			{Name: "father_id", Type: TypeString},
			{Name: "mother_id", Type: TypeString},
		},
	}

	HistorySchema = Schema{
		Name: DatasetHistory,
		Key:  []string{"horse_id", "race_id"},
		Fields: []Field{
			{Name: "horse_id", Type: TypeString, Required: true},
			{Name: "race_id", Type: TypeString, Required: true},
			{Name: "race_date", Type: TypeDate},
			{Name: "place", Type: TypeString},
			{Name: "race_name", Type: TypeString},
			{Name: "rank", Type: TypeString},
			{Name: "jockey_id", Type: TypeString},
		},
	}

	RegistrySchema = Schema{
		Name:    DatasetRegistry,
		Key:     []string{"corporate_number"},
		Version: "update_date",
		Fields: []Field{
			{Name: "sequence_number", Type: TypeInt},
			{Name: "corporate_number", Type: TypeString, Required: true},
			{Name: "process", Type: TypeString},
			{Name: "correct", Type: TypeString},
			{Name: "update_date", Type: TypeDate},
			{Name: "change_date", Type: TypeDate},
			{Name: "name", Type: TypeString},
			{Name: "name_image_id", Type: TypeString},
			{Name: "kind", Type: TypeString},
			{Name: "prefecture_name", Type: TypeString},
			{Name: "city_name", Type: TypeString},
			{Name: "street_number", Type: TypeString},
			{Name: "prefecture_code", Type: TypeString},
			{Name: "city_code", Type: TypeString},
			{Name: "post_code", Type: TypeString},
			{Name: "close_date", Type: TypeDate},
			{Name: "close_cause", Type: TypeString},
			{Name: "successor_corporate_number", Type: TypeString},
			{Name: "change_cause", Type: TypeString},
			{Name: "assignment_date", Type: TypeDate},
			{Name: "en_name", Type: TypeString},
			{Name: "furigana", Type: TypeString},
			{Name: "hihyoji", Type: TypeString},
		},
	}

	// RegistryEnrichmentFields are added to the registry master on cold start.
	RegistryEnrichmentFields = []Field{
		{Name: FieldLegalForm, Type: TypeString},
		{Name: FieldBrandName, Type: TypeString},
		{Name: FieldBrandKana, Type: TypeString},
		{Name: FieldReliability, Type: TypeInt},
	}
)

// Catalog holds the declared schemas by dataset name.
var Catalog = map[string]Schema{
	DatasetRace:     RaceSchema,
	DatasetEntry:    EntrySchema,
	DatasetOdds:     OddsSchema,
	DatasetHorse:    HorseSchema,
	DatasetHistory:  HistorySchema,
	DatasetRegistry: RegistrySchema,
}

// LookupSchema returns the declared schema of a dataset.
func LookupSchema(name string) (Schema, error) {
	s, ok := Catalog[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownDataset, name, DatasetNames())
	}
	return s, nil
}

// DatasetNames lists the catalog in lexical order.
func DatasetNames() []string {
	names := make([]string, 0, len(Catalog))
	for n := range Catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
