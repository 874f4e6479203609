package redis

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/illmade-knight/bikepark/pkg/locations"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// clause is a rendered RediSearch expression. none marks a clause that can
// match no document, such as a term on a field that is not indexed.
type clause struct {
	expr string
	none bool
}

var matchNone = clause{none: true}

// Render translates a query string into RediSearch dialect 2 syntax. ok is
// false when the query can match nothing, in which case there is no need to
// ask Redis. Syntax errors and unsupported constructs are reported as
// locations.ErrValidation.
func Render(q string) (expr string, ok bool, err error) {
	parsed, err := locations.ParseQuery(q)
	if err != nil {
		return "", false, err
	}
	c, err := render(parsed)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", locations.ErrValidation, err)
	}
	return c.expr, !c.none, nil
}

func render(q query.Query) (clause, error) {
	switch q := q.(type) {
	case *query.MatchAllQuery:
		return clause{expr: "*"}, nil
	case *query.MatchNoneQuery:
		return matchNone, nil
	case *query.BooleanQuery:
		return renderBoolean(q)
	case *query.ConjunctionQuery:
		return renderAll(q.Conjuncts)
	case *query.DisjunctionQuery:
		return renderAny(q.Disjuncts)
	case *query.MatchQuery:
		return renderTerms(q.FieldVal, q.Match, false)
	case *query.MatchPhraseQuery:
		return renderTerms(q.FieldVal, q.MatchPhrase, true)
	case *query.TermQuery:
		return renderTerms(q.FieldVal, q.Term, false)
	case *query.WildcardQuery:
		return renderPrefix(q.FieldVal, q.Wildcard)
	case *query.NumericRangeQuery:
		// The query string parser pairs every bare number with an exact
		// range; counters are indexed as tags, so only the term side counts.
		if q.Min != nil && q.Max != nil && *q.Min == *q.Max {
			return matchNone, nil
		}
		return clause{}, fmt.Errorf("range queries are not supported")
	default:
		return clause{}, fmt.Errorf("unsupported query %T", q)
	}
}

// renderBoolean follows query string semantics: required clauses decide the
// match and optional ones only count when nothing is required.
func renderBoolean(b *query.BooleanQuery) (clause, error) {
	positive := clause{expr: "*"}
	var err error
	switch {
	case present(b.Must):
		positive, err = render(b.Must)
	case present(b.Should):
		positive, err = render(b.Should)
	}
	if err != nil || positive.none {
		return positive, err
	}
	if !present(b.MustNot) {
		return positive, nil
	}
	negative, err := render(b.MustNot)
	if err != nil {
		return clause{}, err
	}
	switch {
	case negative.none:
		return positive, nil
	case positive.expr == "*":
		return clause{expr: "-(" + negative.expr + ")"}, nil
	default:
		return clause{expr: "(" + positive.expr + ") -(" + negative.expr + ")"}, nil
	}
}

func present(q query.Query) bool {
	switch q := q.(type) {
	case nil:
		return false
	case *query.ConjunctionQuery:
		return len(q.Conjuncts) > 0
	case *query.DisjunctionQuery:
		return len(q.Disjuncts) > 0
	}
	return true
}

func renderAll(qs []query.Query) (clause, error) {
	parts := make([]string, 0, len(qs))
	for _, q := range qs {
		c, err := render(q)
		if err != nil {
			return clause{}, err
		}
		if c.none {
			return matchNone, nil
		}
		parts = append(parts, c.expr)
	}
	return join(parts, " "), nil
}

func renderAny(qs []query.Query) (clause, error) {
	parts := make([]string, 0, len(qs))
	for _, q := range qs {
		c, err := render(q)
		if err != nil {
			return clause{}, err
		}
		if !c.none {
			parts = append(parts, c.expr)
		}
	}
	return join(parts, " | "), nil
}

func join(parts []string, sep string) clause {
	switch len(parts) {
	case 0:
		return matchNone
	case 1:
		return clause{expr: parts[0]}
	}
	return clause{expr: "(" + strings.Join(parts, ")"+sep+"(") + ")"}
}

// renderTerms matches value on field, or on every indexed field when field
// is empty. Text fields take the folded tokens of value, either all in
// sequence (phrase) or any of them; tag fields take value whole.
func renderTerms(field, value string, phrase bool) (clause, error) {
	text, tags, err := targets(field)
	if err != nil || (len(text) == 0 && len(tags) == 0) {
		return matchNone, err
	}
	var parts []string
	if tokens := Tokenize(value); len(text) > 0 && len(tokens) > 0 {
		var terms string
		switch {
		case len(tokens) == 1:
			terms = tokens[0]
		case phrase:
			terms = `"` + strings.Join(tokens, " ") + `"`
		default:
			terms = "(" + strings.Join(tokens, "|") + ")"
		}
		parts = append(parts, "@"+strings.Join(text, "|")+":"+terms)
	}
	if tag := strings.TrimSpace(value); tag != "" {
		for _, name := range tags {
			parts = append(parts, "@"+name+":{"+escapeTag(tag)+"}")
		}
	}
	switch len(parts) {
	case 0:
		return matchNone, nil
	case 1:
		return clause{expr: parts[0]}, nil
	}
	return clause{expr: "(" + strings.Join(parts, " | ") + ")"}, nil
}

// renderPrefix supports the one wildcard form RediSearch has for text:
// a trailing star.
func renderPrefix(field, pattern string) (clause, error) {
	stem, found := strings.CutSuffix(pattern, "*")
	tokens := Tokenize(stem)
	if !found || strings.ContainsAny(stem, "*?") || len(tokens) != 1 {
		return clause{}, fmt.Errorf("wildcard %q is not supported, only a single trailing *", pattern)
	}
	text, _, err := targets(field)
	if err != nil || len(text) == 0 {
		return matchNone, err
	}
	return clause{expr: "@" + strings.Join(text, "|") + ":" + tokens[0] + "*"}, nil
}

// targets splits the fields a term applies to into text and tag fields.
// Unknown fields yield neither.
func targets(field string) (text, tags []string, err error) {
	if field != "" {
		f, ok := locations.LookupField(field)
		if !ok {
			return nil, nil, nil
		}
		if f.Keyword {
			return nil, []string{f.Name}, nil
		}
		return []string{f.Name}, nil, nil
	}
	for _, f := range locations.IndexFields {
		if f.Keyword {
			tags = append(tags, f.Name)
		} else {
			text = append(text, f.Name)
		}
	}
	return text, tags, nil
}

func escapeTag(value string) string {
	var b strings.Builder
	for _, r := range value {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tokenize folds text to lower-case ASCII and splits it into words, the
// same way the memory index analyzes text fields.
func Tokenize(text string) []string {
	// Chain keeps state, so each call gets its own transformer.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		folded = text
	}
	return strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
