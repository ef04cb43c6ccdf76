package nameparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/ports"
)

func TestRules_Parse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ports.ParsedName
	}{
		{"prefix", "株式会社トヨタ", ports.ParsedName{LegalForm: "株式会社", BrandName: "トヨタ", Kana: "トヨタ"}},
		{"suffix", "ソニー　株式会社", ports.ParsedName{LegalForm: "株式会社", BrandName: "ソニー", Kana: "ソニー"}},
		{"abbreviation", "㈲さくら", ports.ParsedName{LegalForm: "有限会社", BrandName: "さくら", Kana: "サクラ"}},
		{"longest match", "医療法人社団青葉会", ports.ParsedName{LegalForm: "医療法人社団", BrandName: "青葉会"}},
		{"no legal form", "東京都", ports.ParsedName{BrandName: "東京都"}},
	}
	r := NewRules()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRules_ParseErrors(t *testing.T) {
	r := NewRules()
	for _, in := range []string{"", "　", "株式会社"} {
		_, err := r.Parse(in)
		assert.ErrorIs(t, err, domain.ErrParse, "input %q", in)
	}
}
