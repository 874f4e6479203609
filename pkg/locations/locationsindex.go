package locations

import (
	"context"
	"strings"
)

// Field is one indexed attribute of a location. Text fields are tokenized
// and folded to lower-case ASCII; keyword fields match their whole value.
type Field struct {
	Name    string
	Keyword bool
}

// IndexFields is the set of fields the search backends index.
var IndexFields = []Field{
	{Name: "endereco"},
	{Name: "numero"},
	{Name: "qtdTotais", Keyword: true},
	{Name: "qtdReservada", Keyword: true},
}

// LookupField returns the indexed field called name.
func LookupField(name string) (Field, bool) {
	for _, f := range IndexFields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IndexDocument returns the indexed values of loc keyed by field name.
func IndexDocument(loc Location) map[string]string {
	return loc.indexValues()
}

// MatchAllQuery is the query string that matches every indexed location.
const MatchAllQuery = "*"

// IsBlankQuery reports whether a query string has nothing to match on.
// Blank queries return no results rather than everything.
func IsBlankQuery(query string) bool {
	return strings.TrimSpace(query) == ""
}

// Index is the full-text mirror of the store. Search takes a Lucene-style
// query string: bare terms are optional, +term is required, -term is
// excluded, field:term targets one field and "..." is a phrase.
type Index interface {
	Save(ctx context.Context, loc Location) error
	Delete(ctx context.Context, id string) error
	// Search runs a query string and returns the ranked matches.
	Search(ctx context.Context, query string) ([]Location, error)
}
