// Package firestore provides persistent storage implementations using Google Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/illmade-knight/bikepark/pkg/locations"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "localizacaos"

// locationDocument is the private struct used for Firestore marshalling. The
// document ID carries the location ID, so it is not repeated in the body.
type locationDocument struct {
	Endereco     string `firestore:"endereco"`
	Numero       string `firestore:"numero"`
	QtdTotais    int    `firestore:"qtdTotais"`
	QtdReservada int    `firestore:"qtdReservada"`
}

// LocationsStore is a concrete implementation of the locations.Store interface using Firestore.
// Lists come back in document ID order.
type LocationsStore struct {
	client     *firestore.Client
	collection *firestore.CollectionRef
}

// NewLocationsStore creates a new Firestore-backed store for locations.
func NewLocationsStore(client *firestore.Client, collection string) *LocationsStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &LocationsStore{
		client:     client,
		collection: client.Collection(collection),
	}
}

func toLocationDocument(loc locations.Location) locationDocument {
	return locationDocument{
		Endereco:     loc.Endereco,
		Numero:       loc.Numero,
		QtdTotais:    loc.QtdTotais,
		QtdReservada: loc.QtdReservada,
	}
}

func toLocation(docID string, doc locationDocument) locations.Location {
	return locations.Location{
		ID:           docID,
		Endereco:     doc.Endereco,
		Numero:       doc.Numero,
		QtdTotais:    doc.QtdTotais,
		QtdReservada: doc.QtdReservada,
	}
}

// Create assigns a fresh UUID and writes the new document.
func (s *LocationsStore) Create(ctx context.Context, loc locations.Location) (locations.Location, error) {
	loc.ID = uuid.NewString()
	if _, err := s.collection.Doc(loc.ID).Create(ctx, toLocationDocument(loc)); err != nil {
		return locations.Location{}, fmt.Errorf("failed to create localizacao %s: %w", loc.ID, err)
	}
	return loc, nil
}

// Save overwrites the document under loc.ID, creating it if needed.
func (s *LocationsStore) Save(ctx context.Context, loc locations.Location) (locations.Location, error) {
	if loc.ID == "" {
		return locations.Location{}, fmt.Errorf("%w: cannot save a localizacao without an ID", locations.ErrValidation)
	}
	if _, err := s.collection.Doc(loc.ID).Set(ctx, toLocationDocument(loc)); err != nil {
		return locations.Location{}, fmt.Errorf("failed to save localizacao %s: %w", loc.ID, err)
	}
	return loc, nil
}

// GetByID retrieves a location by its document ID.
func (s *LocationsStore) GetByID(ctx context.Context, id string) (locations.Location, error) {
	if id == "" {
		return locations.Location{}, fmt.Errorf("%w: empty id", locations.ErrNotFound)
	}
	doc, err := s.collection.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return locations.Location{}, fmt.Errorf("%w: id %s", locations.ErrNotFound, id)
		}
		return locations.Location{}, err
	}

	var ld locationDocument
	if err := doc.DataTo(&ld); err != nil {
		return locations.Location{}, err
	}
	return toLocation(doc.Ref.ID, ld), nil
}

// FindByEnderecoAndNumero returns one location with the exact address. When
// several match, the one with the lowest document ID wins.
func (s *LocationsStore) FindByEnderecoAndNumero(ctx context.Context, endereco, numero string) (locations.Location, error) {
	iter := s.collection.
		Where("endereco", "==", endereco).
		Where("numero", "==", numero).
		Limit(1).
		Documents(ctx)
	results, err := processLocationIterator(iter)
	if err != nil {
		return locations.Location{}, err
	}
	if len(results) == 0 {
		return locations.Location{}, fmt.Errorf("%w: endereco %q numero %q", locations.ErrNotFound, endereco, numero)
	}
	return results[0], nil
}

// List returns every stored location.
func (s *LocationsStore) List(ctx context.Context) ([]locations.Location, error) {
	return processLocationIterator(s.collection.Documents(ctx))
}

// Delete removes the document. Deleting a missing document is not an error.
func (s *LocationsStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.collection.Doc(id).Delete(ctx)
	return err
}

// processLocationIterator is a helper to drain results from a Firestore iterator.
func processLocationIterator(iter *firestore.DocumentIterator) ([]locations.Location, error) {
	defer iter.Stop()
	results := []locations.Location{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}

		var ld locationDocument
		if err := doc.DataTo(&ld); err != nil {
			return nil, err
		}
		results = append(results, toLocation(doc.Ref.ID, ld))
	}
	return results, nil
}
