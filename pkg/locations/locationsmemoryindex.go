package locations

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/char/asciifolding"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const foldingAnalyzer = "folding"

// InMemoryIndex is a bleve index held in process memory. It implements Index.
type InMemoryIndex struct {
	sync.RWMutex
	index bleve.Index
	docs  map[string]Location
}

// NewInMemoryIndex creates an empty memory-only index. It panics if bleve
// rejects the index mapping.
func NewInMemoryIndex() *InMemoryIndex {
	index, err := bleve.NewMemOnly(NewIndexMapping())
	if err != nil {
		panic(fmt.Sprintf("locations: cannot build memory index: %v", err))
	}
	return &InMemoryIndex{index: index, docs: make(map[string]Location)}
}

// NewIndexMapping maps IndexFields onto bleve: text fields are split on
// unicode word boundaries, folded to ASCII and lower-cased; keyword fields
// are indexed whole.
func NewIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(foldingAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"char_filters":  []string{asciifolding.Name},
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		panic(fmt.Sprintf("locations: cannot register %s analyzer: %v", foldingAnalyzer, err))
	}
	im.DefaultAnalyzer = foldingAnalyzer

	doc := bleve.NewDocumentStaticMapping()
	for _, f := range IndexFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = foldingAnalyzer
		if f.Keyword {
			fm.Analyzer = keyword.Name
		}
		doc.AddFieldMappingsAt(f.Name, fm)
	}
	im.DefaultMapping = doc
	return im
}

// ParseQuery turns a query string into a bleve query. A syntax error is
// reported as ErrValidation.
func ParseQuery(q string) (query.Query, error) {
	if strings.TrimSpace(q) == MatchAllQuery {
		return bleve.NewMatchAllQuery(), nil
	}
	parsed, err := bleve.NewQueryStringQuery(q).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse query %q: %v", ErrValidation, q, err)
	}
	return parsed, nil
}

// Save (re)indexes a location, replacing any previous version.
func (x *InMemoryIndex) Save(ctx context.Context, loc Location) error {
	if loc.ID == "" {
		return fmt.Errorf("%w: cannot index a localizacao without an ID", ErrValidation)
	}
	x.Lock()
	defer x.Unlock()
	doc := make(map[string]interface{}, len(IndexFields))
	for name, value := range IndexDocument(loc) {
		doc[name] = value
	}
	if err := x.index.Index(loc.ID, doc); err != nil {
		return err
	}
	x.docs[loc.ID] = loc
	return nil
}

// Delete drops a location from the index. Unknown ids are ignored.
func (x *InMemoryIndex) Delete(ctx context.Context, id string) error {
	x.Lock()
	defer x.Unlock()
	if err := x.index.Delete(id); err != nil {
		return err
	}
	delete(x.docs, id)
	return nil
}

// Search runs the query string against the index. Hits are ordered by
// relevance, then by id.
func (x *InMemoryIndex) Search(ctx context.Context, q string) ([]Location, error) {
	if IsBlankQuery(q) {
		return []Location{}, nil
	}
	parsed, err := ParseQuery(q)
	if err != nil {
		return nil, err
	}

	x.RLock()
	defer x.RUnlock()
	if len(x.docs) == 0 {
		return []Location{}, nil
	}
	req := bleve.NewSearchRequestOptions(parsed, len(x.docs), 0, false)
	req.SortBy([]string{"-_score", "_id"})
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	results := make([]Location, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if loc, ok := x.docs[hit.ID]; ok {
			results = append(results, loc)
		}
	}
	return results, nil
}

// Close releases the bleve index.
func (x *InMemoryIndex) Close() error {
	return x.index.Close()
}
