// Package nameparser splits Japanese corporate names with a table of
// legal-form designations.
package nameparser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/kana"
	"github.com/bft-labs/snapmerge/internal/ports"
)

var legalForms = []string{
	"株式会社", "有限会社", "合同会社", "合資会社", "合名会社",
	"一般社団法人", "一般財団法人", "公益社団法人", "公益財団法人",
	"特定非営利活動法人", "NPO法人", "社会福祉法人",
	"医療法人社団", "医療法人財団", "医療法人", "学校法人", "宗教法人",
	"農事組合法人", "事業協同組合", "協同組合", "生活協同組合",
	"独立行政法人", "地方独立行政法人", "国立大学法人",
	"弁護士法人", "税理士法人", "司法書士法人", "行政書士法人", "監査法人",
	"有限責任事業組合", "信用金庫", "労働組合",
}

var abbreviations = map[string]string{
	"(株)": "株式会社", "（株）": "株式会社", "㈱": "株式会社",
	"(有)": "有限会社", "（有）": "有限会社", "㈲": "有限会社",
	"(同)": "合同会社", "（同）": "合同会社",
	"(資)": "合資会社", "（資）": "合資会社", "㈾": "合資会社",
	"(名)": "合名会社", "（名）": "合名会社", "㈴": "合名会社",
	"(一社)": "一般社団法人", "（一社）": "一般社団法人",
	"(一財)": "一般財団法人", "（一財）": "一般財団法人",
	"(医)": "医療法人", "（医）": "医療法人",
	"(特非)": "特定非営利活動法人", "（特非）": "特定非営利活動法人",
}

type designation struct {
	text      string
	legalForm string
}

// Rules implements ports.NameParser. It holds no mutable state and may be
// shared between workers.
type Rules struct {
	table []designation
}

// NewRules creates a Rules parser with the built-in table.
func NewRules() *Rules {
	table := make([]designation, 0, len(legalForms)+len(abbreviations))
	for _, f := range legalForms {
		table = append(table, designation{text: f, legalForm: f})
	}
	for abbr, f := range abbreviations {
		table = append(table, designation{text: abbr, legalForm: f})
	}
	// Longest first so 医療法人社団 wins over 医療法人.
	sort.Slice(table, func(i, j int) bool {
		if len(table[i].text) != len(table[j].text) {
			return len(table[i].text) > len(table[j].text)
		}
		return table[i].text < table[j].text
	})
	return &Rules{table: table}
}

// Factory returns a ports.NameParserFactory yielding r.
func (r *Rules) Factory() ports.NameParserFactory {
	return func() (ports.NameParser, error) { return r, nil }
}

// Parse strips a leading or trailing legal-form designation from name.
// The brand is the trimmed remainder; its kana is set when the brand is
// already written in kana. An empty name is domain.ErrParse.
func (r *Rules) Parse(name string) (ports.ParsedName, error) {
	name = trim(name)
	if name == "" {
		return ports.ParsedName{}, fmt.Errorf("%w: empty name", domain.ErrParse)
	}

	var out ports.ParsedName
	brand := name
	for _, d := range r.table {
		if strings.HasPrefix(name, d.text) {
			out.LegalForm = d.legalForm
			brand = strings.TrimPrefix(name, d.text)
			break
		}
		if strings.HasSuffix(name, d.text) {
			out.LegalForm = d.legalForm
			brand = strings.TrimSuffix(name, d.text)
			break
		}
	}

	out.BrandName = trim(brand)
	if out.BrandName == "" {
		return ports.ParsedName{}, fmt.Errorf("%w: %q is only a legal form", domain.ErrParse, name)
	}
	switch {
	case kana.IsKatakana(out.BrandName):
		out.Kana = out.BrandName
	case kana.IsHiragana(out.BrandName):
		out.Kana = kana.ToKatakana(out.BrandName)
	}
	return out, nil
}

func trim(s string) string {
	return strings.Trim(s, " 　\t")
}
