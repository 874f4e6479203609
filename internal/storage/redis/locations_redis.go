// Package redis keeps the searchable mirror of the locations in Redis. Each
// location is a hash indexed by RediSearch; query strings are parsed with
// bleve and rendered into RediSearch query syntax.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the index.
const DefaultPrefix = "localizacao"

// maxResults is RediSearch's default MAXSEARCHRESULTS.
const maxResults = 10000

// termsSuffix names the hash field holding the folded copy of a text field.
const termsSuffix = "_terms"

// LocationsIndex implements locations.Index on RediSearch.
type LocationsIndex struct {
	client redis.UniversalClient
	prefix string
}

// NewLocationsIndex wraps an existing client. The caller owns the client,
// which must speak RESP2 for FT.SEARCH replies to be parsed.
func NewLocationsIndex(client redis.UniversalClient, prefix string) *LocationsIndex {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &LocationsIndex{client: client, prefix: prefix}
}

// Connect dials addr over RESP2 and checks the connection with PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Protocol: 2})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (x *LocationsIndex) indexName() string      { return x.prefix + ":idx" }
func (x *LocationsIndex) docPrefix() string      { return x.prefix + ":doc:" }
func (x *LocationsIndex) docKey(id string) string { return x.docPrefix() + id }

// EnsureSchema creates the RediSearch index over the location hashes. An
// index that already exists is left as it is.
func (x *LocationsIndex) EnsureSchema(ctx context.Context) error {
	err := x.client.FTCreate(ctx, x.indexName(),
		&redis.FTCreateOptions{OnHash: true, Prefix: []interface{}{x.docPrefix()}},
		schema()...,
	).Err()
	if err != nil && !strings.Contains(err.Error(), "Index already exists") {
		return fmt.Errorf("could not create search index %s: %w", x.indexName(), err)
	}
	return nil
}

// schema indexes the folded copy of each text field under the field's own
// name, and each keyword field as a tag.
func schema() []*redis.FieldSchema {
	fields := make([]*redis.FieldSchema, 0, len(locations.IndexFields))
	for _, f := range locations.IndexFields {
		if f.Keyword {
			fields = append(fields, &redis.FieldSchema{FieldName: f.Name, FieldType: redis.SearchFieldTypeTag})
			continue
		}
		fields = append(fields, &redis.FieldSchema{
			FieldName: f.Name + termsSuffix,
			As:        f.Name,
			FieldType: redis.SearchFieldTypeText,
			NoStem:    true,
		})
	}
	return fields
}

// Save replaces the indexed version of loc.
func (x *LocationsIndex) Save(ctx context.Context, loc locations.Location) error {
	if loc.ID == "" {
		return fmt.Errorf("%w: cannot index a localizacao without an ID", locations.ErrValidation)
	}
	return x.client.HSet(ctx, x.docKey(loc.ID), toHash(loc)).Err()
}

// Delete drops the document. Unknown ids are ignored.
func (x *LocationsIndex) Delete(ctx context.Context, id string) error {
	return x.client.Del(ctx, x.docKey(id)).Err()
}

// Search renders query for RediSearch and loads the hits in rank order.
func (x *LocationsIndex) Search(ctx context.Context, query string) ([]locations.Location, error) {
	results := []locations.Location{}
	if locations.IsBlankQuery(query) {
		return results, nil
	}
	expr, ok, err := Render(query)
	if err != nil {
		return nil, err
	}
	if !ok {
		return results, nil
	}

	res, err := x.client.FTSearchWithArgs(ctx, x.indexName(), expr, &redis.FTSearchOptions{
		Limit:          maxResults,
		DialectVersion: 2,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", expr, err)
	}
	for _, doc := range res.Docs {
		loc, err := fromHash(strings.TrimPrefix(doc.ID, x.docPrefix()), doc.Fields)
		if err != nil {
			return nil, err
		}
		results = append(results, loc)
	}
	return results, nil
}

func toHash(loc locations.Location) map[string]any {
	doc := locations.IndexDocument(loc)
	hash := make(map[string]any, 2*len(doc))
	for _, f := range locations.IndexFields {
		value := doc[f.Name]
		hash[f.Name] = value
		if !f.Keyword {
			hash[f.Name+termsSuffix] = strings.Join(Tokenize(value), " ")
		}
	}
	return hash
}

func fromHash(id string, fields map[string]string) (locations.Location, error) {
	loc := locations.Location{
		ID:       id,
		Endereco: fields["endereco"],
		Numero:   fields["numero"],
	}
	var err error
	if loc.QtdTotais, err = atoi(fields["qtdTotais"]); err != nil {
		return locations.Location{}, fmt.Errorf("bad qtdTotais for %s: %w", id, err)
	}
	if loc.QtdReservada, err = atoi(fields["qtdReservada"]); err != nil {
		return locations.Location{}, fmt.Errorf("bad qtdReservada for %s: %w", id, err)
	}
	return loc, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
