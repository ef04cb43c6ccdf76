package domain

import (
	"errors"
	"fmt"
)

// Domain errors. Callers check them with errors.Is.
var (
	// ErrInvalidIdentifier is returned when an identifier length is not 6, 10 or 12.
	ErrInvalidIdentifier = errors.New("snapmerge: invalid identifier")

	// ErrNoKeysFound is returned when a period expands to no keys.
	ErrNoKeysFound = errors.New("snapmerge: no keys found")

	// ErrFetch marks a per-key fetch failure. See FetchError.
	ErrFetch = errors.New("snapmerge: fetch failed")

	// ErrMissingEntryList is returned when a primary record has no entry list.
	ErrMissingEntryList = errors.New("snapmerge: missing entry list")

	// ErrStore marks a failed dataset write or read. See StoreError.
	ErrStore = errors.New("snapmerge: store failed")

	// ErrNoSuccessfulKeys is returned when every key of a group failed.
	ErrNoSuccessfulKeys = errors.New("snapmerge: no successful keys")

	// ErrMissingField is returned when a required field is absent from a record.
	ErrMissingField = errors.New("snapmerge: missing required field")

	// ErrFieldType is returned when a field value cannot be coerced to its declared type.
	ErrFieldType = errors.New("snapmerge: field type mismatch")

	// ErrSchemaMismatch is returned when two schemas declare one column with different types.
	ErrSchemaMismatch = errors.New("snapmerge: schema mismatch")

	// ErrParse is returned by name parsers that cannot parse their input.
	ErrParse = errors.New("snapmerge: parse failed")

	// ErrUnknownDataset is returned when a dataset name is not in the catalog.
	ErrUnknownDataset = errors.New("snapmerge: unknown dataset")
)

// FetchError describes one failed fetch of one key.
type FetchError struct {
	Domain string
	Key    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Domain, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports ErrFetch so wrapped fetch errors match the sentinel.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// StoreError describes a failed store operation on one path.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports ErrStore so wrapped store errors match the sentinel.
func (e *StoreError) Is(target error) bool { return target == ErrStore }
