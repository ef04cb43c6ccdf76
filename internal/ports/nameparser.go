package ports

// ParsedName is the result of splitting a corporate name.
// Empty strings mean the part was not found.
type ParsedName struct {
	LegalForm string
	BrandName string
	Kana      string
}

// NameParser splits a corporate name into its parts.
// Implementations are not required to be safe for concurrent use; callers
// give each worker its own parser.
type NameParser interface {
	Parse(name string) (ParsedName, error)
}

// NameParserFactory creates one parser per worker.
type NameParserFactory func() (NameParser, error)
