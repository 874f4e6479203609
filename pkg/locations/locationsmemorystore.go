// FILE: pkg/locations/inmem_store.go

package locations

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe, in-memory implementation of the Store interface.
// It lists locations in insertion order.
type InMemoryStore struct {
	sync.RWMutex
	locations map[string]Location
	order     []string
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		locations: make(map[string]Location),
	}
}

// Create assigns a fresh UUID and saves the location.
func (s *InMemoryStore) Create(ctx context.Context, loc Location) (Location, error) {
	loc.ID = uuid.NewString()
	return s.Save(ctx, loc)
}

// Save inserts or replaces the location under its ID.
func (s *InMemoryStore) Save(ctx context.Context, loc Location) (Location, error) {
	if loc.ID == "" {
		return Location{}, fmt.Errorf("%w: cannot save a localizacao without an ID", ErrValidation)
	}
	s.Lock()
	defer s.Unlock()
	if _, ok := s.locations[loc.ID]; !ok {
		s.order = append(s.order, loc.ID)
	}
	s.locations[loc.ID] = loc
	return loc, nil
}

// GetByID retrieves a location by its ID.
func (s *InMemoryStore) GetByID(ctx context.Context, id string) (Location, error) {
	s.RLock()
	defer s.RUnlock()
	loc, ok := s.locations[id]
	if !ok {
		return Location{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return loc, nil
}

// FindByEnderecoAndNumero returns the first inserted location with that address.
func (s *InMemoryStore) FindByEnderecoAndNumero(ctx context.Context, endereco, numero string) (Location, error) {
	s.RLock()
	defer s.RUnlock()
	for _, id := range s.order {
		loc := s.locations[id]
		if loc.Endereco == endereco && loc.Numero == numero {
			return loc, nil
		}
	}
	return Location{}, fmt.Errorf("%w: endereco %q numero %q", ErrNotFound, endereco, numero)
}

// List returns every location in insertion order.
func (s *InMemoryStore) List(ctx context.Context) ([]Location, error) {
	s.RLock()
	defer s.RUnlock()

	all := make([]Location, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.locations[id])
	}
	return all, nil
}

// Delete removes the location with that id. Unknown ids are ignored.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.locations[id]; !ok {
		return nil
	}
	delete(s.locations, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
