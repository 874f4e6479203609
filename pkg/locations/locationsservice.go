// FILE: locations/service.go

package locations

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Service provides the business logic for managing locations. Every write
// goes to the store first and is then mirrored to the index; the two writes
// are not atomic and a failed mirror is not rolled back.
type Service struct {
	store    Store
	index    Index
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithNotifier publishes a Change after every successful write.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger used for mirror and notification failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service over store and index. Without options it
// publishes nothing and logs nothing.
func NewService(store Store, index Index, opts ...Option) *Service {
	s := &Service{
		store:    store,
		index:    index,
		notifier: nopNotifier{},
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores the location as given and mirrors it to the index. A
// location without an id gets a fresh one; a location that already has an
// id is saved under it, replacing any location stored there.
func (s *Service) Create(ctx context.Context, loc Location) (Location, error) {
	var (
		saved Location
		err   error
	)
	if loc.ID == "" {
		saved, err = s.store.Create(ctx, loc)
	} else {
		saved, err = s.store.Save(ctx, loc)
	}
	if err != nil {
		return Location{}, wrapStorage("store", "create", err)
	}
	if err := s.mirror(ctx, saved); err != nil {
		return Location{}, err
	}
	s.notify(ctx, ChangeCreated, saved)
	return saved, nil
}

// Update reserves one more slot on the given location. The increment is
// applied to the location as supplied by the caller and written without
// checking that it exists or that it stays within QtdTotais.
func (s *Service) Update(ctx context.Context, loc Location) (Location, error) {
	if loc.ID == "" {
		return Location{}, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	loc.QtdReservada++

	saved, err := s.store.Save(ctx, loc)
	if err != nil {
		return Location{}, wrapStorage("store", "save", err)
	}
	if err := s.mirror(ctx, saved); err != nil {
		return Location{}, err
	}
	s.notify(ctx, ChangeUpdated, saved)
	return saved, nil
}

// Cancel releases one slot on the location found by address. The counter
// is decremented without a floor, so it can go negative.
func (s *Service) Cancel(ctx context.Context, endereco, numero string) (Location, error) {
	loc, err := s.store.FindByEnderecoAndNumero(ctx, endereco, numero)
	if err != nil {
		return Location{}, wrapStorage("store", "find", err)
	}
	loc.QtdReservada--

	saved, err := s.store.Save(ctx, loc)
	if err != nil {
		return Location{}, wrapStorage("store", "save", err)
	}
	if err := s.mirror(ctx, saved); err != nil {
		return Location{}, err
	}
	s.notify(ctx, ChangeCancelled, saved)
	return saved, nil
}

// ListAvailable returns the locations with at least one free slot, in the
// store's order.
func (s *Service) ListAvailable(ctx context.Context) ([]Location, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]Location, 0, len(all))
	for _, loc := range all {
		if loc.Available() {
			available = append(available, loc)
		}
	}
	return available, nil
}

// List returns every location, available or not.
func (s *Service) List(ctx context.Context) ([]Location, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, wrapStorage("store", "list", err)
	}
	return all, nil
}

// GetByID fetches a single location by its ID.
func (s *Service) GetByID(ctx context.Context, id string) (Location, error) {
	loc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Location{}, wrapStorage("store", "get", err)
	}
	return loc, nil
}

// Delete removes the location from the store, then from the index.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return wrapStorage("store", "delete", err)
	}
	if err := s.index.Delete(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("localizacao_id", id).Msg("Deleted from store but not from index")
		return wrapStorage("index", "delete", err)
	}
	s.notify(ctx, ChangeDeleted, Location{ID: id})
	return nil
}

// Search passes the query string to the index untouched.
func (s *Service) Search(ctx context.Context, query string) ([]Location, error) {
	results, err := s.index.Search(ctx, query)
	if err != nil {
		return nil, wrapStorage("index", "search", err)
	}
	return results, nil
}

// Reindex writes every stored location to the index again and returns how
// many were indexed. It stops at the first index failure.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for i, loc := range all {
		if err := s.index.Save(ctx, loc); err != nil {
			return i, wrapStorage("index", "save", err)
		}
	}
	s.logger.Info().Int("count", len(all)).Msg("Reindexed localizacaos")
	return len(all), nil
}

func (s *Service) mirror(ctx context.Context, loc Location) error {
	if err := s.index.Save(ctx, loc); err != nil {
		s.logger.Warn().Err(err).Str("localizacao_id", loc.ID).Msg("Saved to store but not to index")
		return wrapStorage("index", "save", err)
	}
	return nil
}

// notify never fails the operation; a lost event is only logged.
func (s *Service) notify(ctx context.Context, kind ChangeType, loc Location) {
	change := Change{Type: kind, Location: loc, OccurredAt: s.now().UTC()}
	if err := s.notifier.Notify(ctx, change); err != nil {
		s.logger.Error().Err(err).
			Str("change", string(kind)).
			Str("localizacao_id", loc.ID).
			Msg("Failed to publish localizacao change")
	}
}
