package parquet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/snapmerge/internal/domain"
)

func sample() *domain.Dataset {
	return &domain.Dataset{
		Schema: domain.Schema{
			Name:    "registry",
			Key:     []string{"corporate_number"},
			Version: "update_date",
			Fields: []domain.Field{
				{Name: "corporate_number", Type: domain.TypeString, Required: true},
				{Name: "update_date", Type: domain.TypeDate},
				{Name: "kind", Type: domain.TypeInt},
				{Name: "score", Type: domain.TypeFloat},
				{Name: domain.LatestField, Type: domain.TypeBool},
			},
		},
		Rows: []domain.Record{
			{"corporate_number": "1000", "update_date": "2024-01-05", "kind": int64(301), "score": 0.5, domain.LatestField: true},
			{"corporate_number": "1001", "update_date": nil, "kind": nil, domain.LatestField: false},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry", "registry_master.parquet")
	s := NewStore()

	require.NoError(t, s.Save(ctx, path, sample()))

	declared := domain.Schema{
		Name:    "registry",
		Key:     []string{"corporate_number"},
		Version: "update_date",
		Fields: []domain.Field{
			{Name: "corporate_number", Type: domain.TypeString, Required: true},
			{Name: "update_date", Type: domain.TypeDate},
		},
	}
	got, err := s.Load(ctx, path, declared)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Rows, 2)

	assert.Equal(t, "update_date", got.Schema.Version)
	f, ok := got.Schema.Field("kind")
	require.True(t, ok)
	assert.Equal(t, domain.TypeInt, f.Type)
	f, _ = got.Schema.Field("update_date")
	assert.Equal(t, domain.TypeDate, f.Type)

	assert.Equal(t, "2024-01-05", got.Rows[0]["update_date"])
	assert.Equal(t, int64(301), got.Rows[0]["kind"])
	assert.Equal(t, 0.5, got.Rows[0]["score"])
	assert.Equal(t, true, got.Rows[0][domain.LatestField])
	assert.False(t, got.Rows[1].Has("kind"))
	assert.False(t, got.Rows[1].Has("score"))
}

func TestStore_LoadMissing(t *testing.T) {
	got, err := NewStore().Load(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"), domain.Schema{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_FailedWriteKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "race_master.parquet")

	s := NewStore()
	require.NoError(t, s.Save(ctx, path, sample()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	s.writeTable = func(w io.Writer, _ arrow.Table) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("disk full")
	}
	err = s.Save(ctx, path, sample())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after), "canonical file changed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestStore_EncodeError(t *testing.T) {
	ds := &domain.Dataset{
		Schema: domain.Schema{Name: "t", Fields: []domain.Field{{Name: "n", Type: domain.TypeInt}}},
		Rows:   []domain.Record{{"n": "not a number"}},
	}
	path := filepath.Join(t.TempDir(), "t.parquet")
	err := NewStore().Save(context.Background(), path, ds)

	assert.ErrorIs(t, err, domain.ErrStore)
	assert.ErrorIs(t, err, domain.ErrFieldType)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_SaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewStore().Save(ctx, filepath.Join(t.TempDir(), "a.parquet"), sample())
	assert.ErrorIs(t, err, context.Canceled)
}
