// Package sqlite provides a single-file relational store for locations,
// backed by the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/illmade-knight/bikepark/pkg/locations"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS localizacao(
  id            TEXT PRIMARY KEY,
  endereco      TEXT NOT NULL DEFAULT '',
  numero        TEXT NOT NULL DEFAULT '',
  qtd_totais    INTEGER NOT NULL DEFAULT 0,
  qtd_reservada INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_localizacao_endereco_numero ON localizacao(endereco, numero);
`

// LocationsStore implements locations.Store on a SQLite database. Rows are
// listed in insertion order.
type LocationsStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*LocationsStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	db.SetConnMaxIdleTime(2 * time.Minute)
	db.SetMaxOpenConns(1)

	s := &LocationsStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database %s: %w", path, err)
	}
	return s, nil
}

func (s *LocationsStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *LocationsStore) Close() error { return s.db.Close() }

// Create assigns a fresh UUID and inserts the row.
func (s *LocationsStore) Create(ctx context.Context, loc locations.Location) (locations.Location, error) {
	loc.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO localizacao(id, endereco, numero, qtd_totais, qtd_reservada) VALUES(?,?,?,?,?)`,
		loc.ID, loc.Endereco, loc.Numero, loc.QtdTotais, loc.QtdReservada)
	if err != nil {
		return locations.Location{}, fmt.Errorf("failed to insert localizacao: %w", err)
	}
	return loc, nil
}

// Save inserts the row or replaces every column of an existing one. An
// existing row keeps its position in List.
func (s *LocationsStore) Save(ctx context.Context, loc locations.Location) (locations.Location, error) {
	if loc.ID == "" {
		return locations.Location{}, fmt.Errorf("%w: cannot save a localizacao without an ID", locations.ErrValidation)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO localizacao(id, endereco, numero, qtd_totais, qtd_reservada) VALUES(?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  endereco = excluded.endereco,
  numero = excluded.numero,
  qtd_totais = excluded.qtd_totais,
  qtd_reservada = excluded.qtd_reservada`,
		loc.ID, loc.Endereco, loc.Numero, loc.QtdTotais, loc.QtdReservada)
	if err != nil {
		return locations.Location{}, fmt.Errorf("failed to save localizacao %s: %w", loc.ID, err)
	}
	return loc, nil
}

const selectColumns = `SELECT id, endereco, numero, qtd_totais, qtd_reservada FROM localizacao`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (locations.Location, error) {
	var loc locations.Location
	err := row.Scan(&loc.ID, &loc.Endereco, &loc.Numero, &loc.QtdTotais, &loc.QtdReservada)
	return loc, err
}

func (s *LocationsStore) GetByID(ctx context.Context, id string) (locations.Location, error) {
	loc, err := scanLocation(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return locations.Location{}, fmt.Errorf("%w: id %s", locations.ErrNotFound, id)
	}
	return loc, err
}

// FindByEnderecoAndNumero returns the earliest inserted row with that address.
func (s *LocationsStore) FindByEnderecoAndNumero(ctx context.Context, endereco, numero string) (locations.Location, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE endereco = ? AND numero = ? ORDER BY rowid LIMIT 1`, endereco, numero)
	loc, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return locations.Location{}, fmt.Errorf("%w: endereco %q numero %q", locations.ErrNotFound, endereco, numero)
	}
	return loc, err
}

func (s *LocationsStore) List(ctx context.Context) ([]locations.Location, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []locations.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Delete removes the row if present.
func (s *LocationsStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM localizacao WHERE id = ?`, id)
	return err
}
