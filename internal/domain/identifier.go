package domain

// Identifier lengths. The length of an identifier selects its granularity.
const (
	PeriodIDLen = 6  // YYYYMM
	GroupIDLen  = 10 // group prefix of twelve keys
	KeyIDLen    = 12 // a single fetch key

	// GroupSize is the number of keys a group identifier expands to.
	GroupSize = 12
)

// GroupPrefix returns the group identifier of a 12-character key.
// ok is false when id is not a full key.
func GroupPrefix(id string) (prefix string, ok bool) {
	if len(id) != KeyIDLen {
		return "", false
	}
	return id[:GroupIDLen], true
}

// KeyGroups maps group prefixes to their keys, iterating in first-seen order.
type KeyGroups struct {
	order  []string
	groups map[string][]string
}

// NewKeyGroups creates an empty KeyGroups.
func NewKeyGroups() *KeyGroups {
	return &KeyGroups{groups: make(map[string][]string)}
}

// Add appends id to the group named prefix.
func (g *KeyGroups) Add(prefix, id string) {
	ids, ok := g.groups[prefix]
	if !ok {
		g.order = append(g.order, prefix)
	}
	g.groups[prefix] = append(ids, id)
}

// Keys returns the group prefixes in first-seen order.
func (g *KeyGroups) Keys() []string {
	return append([]string(nil), g.order...)
}

// Get returns the keys of one group.
func (g *KeyGroups) Get(prefix string) []string {
	return g.groups[prefix]
}

// Len returns the number of groups.
func (g *KeyGroups) Len() int {
	return len(g.order)
}

// Total returns the number of keys across all groups.
func (g *KeyGroups) Total() int {
	n := 0
	for _, ids := range g.groups {
		n += len(ids)
	}
	return n
}
