// FILE: locations/store.go

package locations

import (
	"context"
)

// Store is the primary persistence for locations. Implementations return an
// error wrapping ErrNotFound when an id or composite key has no match.
type Store interface {
	// Create assigns a new id and saves the location.
	Create(ctx context.Context, loc Location) (Location, error)
	// Save writes the location under its id, inserting it if absent.
	Save(ctx context.Context, loc Location) (Location, error)
	GetByID(ctx context.Context, id string) (Location, error)
	// FindByEnderecoAndNumero returns one location with that address. Which
	// one is unspecified when several share it.
	FindByEnderecoAndNumero(ctx context.Context, endereco, numero string) (Location, error)
	// List returns every location in the backend's natural order.
	List(ctx context.Context) ([]Location, error)
	// Delete removes a location. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
