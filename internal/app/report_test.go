package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/snapmerge/internal/domain"
)

func TestReporter_Report(t *testing.T) {
	s := newMemStore()
	master := &domain.Dataset{
		Schema: domain.RegistrySchema,
		Rows: []domain.Record{
			{"corporate_number": "1", "name": "株式会社＿A", "kind": "301", domain.FieldLegalForm: "株式会社", domain.FieldReliability: int64(0), domain.LatestField: true},
			{"corporate_number": "2", "name": "B", "kind": "301", domain.FieldReliability: int64(1), domain.LatestField: true},
			{"corporate_number": "3", "name": "C", "kind": "101", domain.LatestField: true},
			{"corporate_number": "3", "name": "C＿old", "kind": "301", domain.LatestField: false},
		},
	}

	lines, err := NewReporter(dataDir, s).Report(context.Background(), master)
	require.NoError(t, err)

	want := map[string]int{
		ReportIrregularName:      1,
		ReportIrregularLegalForm: 1,
		ReportIrregularFurigana:  1,
	}
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, want[l.Name], l.Count, l.Name)
		assert.Equal(t, 3, l.Total, l.Name)
	}

	legal := s.get(ReportPath(dataDir, ReportIrregularLegalForm))
	require.NotNil(t, legal)
	require.Len(t, legal.Rows, 1)
	assert.Equal(t, "2", legal.Rows[0]["corporate_number"])
	assert.NotContains(t, legal.Rows[0], "prefecture_name")
}

func TestReporter_StoreFailure(t *testing.T) {
	s := newMemStore()
	s.fail[ReportPath(dataDir, ReportIrregularName)] = true
	_, err := NewReporter(dataDir, s).Report(context.Background(), &domain.Dataset{Schema: domain.RegistrySchema})
	assert.ErrorIs(t, err, domain.ErrStore)
}
