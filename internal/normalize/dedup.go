// internal/normalize/dedup.go
package normalize

import "strings"

// AuthorDedup maps free-text author names to surrogate ids for the duration
// of one normalization run. Comparison is case- and whitespace-insensitive;
// the first-seen spelling is kept as the display name.
type AuthorDedup struct {
	ids     map[string]int
	authors []AuthorRow
}

func NewAuthorDedup() *AuthorDedup {
	return &AuthorDedup{ids: make(map[string]int)}
}

// Resolve returns the id for rawName, allocating the next sequential id
// (starting at 1) on first sighting of an equivalent name.
func (d *AuthorDedup) Resolve(rawName string) int {
	key := authorKey(rawName)
	if id, ok := d.ids[key]; ok {
		return id
	}
	id := len(d.authors) + 1
	d.ids[key] = id
	d.authors = append(d.authors, AuthorRow{ID: id, Name: strings.TrimSpace(rawName)})
	return id
}

// Authors returns the distinct authors in allocation order.
func (d *AuthorDedup) Authors() []AuthorRow {
	return d.authors
}

// authorKey folds case and collapses all interior whitespace, so
// "Jane  Doe" and " jane doe " compare equal.
func authorKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
