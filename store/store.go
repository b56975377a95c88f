// Package store persists assembled property records and harvest progress
// in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/use-agent/cadastre/models"
)

//go:embed schema.sql
var Schema string

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("store: record not found")

// Store is a SQLite-backed record store. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite serialises writers; one connection also keeps a :memory:
	// database alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Location says where a harvested record came from.
type Location struct {
	CountyID    string
	Subdivision string
}

// SaveRecord inserts or replaces the record for its (geocode, year).
func (s *Store) SaveRecord(ctx context.Context, rec *models.PropertyRecord, loc Location) error {
	if rec == nil {
		return errors.New("store: nil record")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", rec.Geocode, err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into property_records (geocode, year, county_id, subdivision, record, harvested_at)
		values (?, ?, ?, ?, ?, ?)
		on conflict (geocode, year) do update set
			county_id = excluded.county_id,
			subdivision = excluded.subdivision,
			record = excluded.record,
			harvested_at = excluded.harvested_at`,
		rec.Geocode, rec.Year, loc.CountyID, loc.Subdivision, string(data), s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", rec.Geocode, err)
	}
	return nil
}

// Record loads one record. It returns ErrNotFound when none is stored.
func (s *Store) Record(ctx context.Context, geocode string, year int) (*models.PropertyRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`select record from property_records where geocode = ? and year = ?`,
		geocode, year,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", geocode, err)
	}
	return decode(data)
}

// Filter narrows Records. Zero fields match everything.
type Filter struct {
	CountyID    string
	Subdivision string
	Year        int
}

// Records returns every stored record matching f, ordered by geocode then
// year.
func (s *Store) Records(ctx context.Context, f Filter) ([]*models.PropertyRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.CountyID != "" {
		where = append(where, "county_id = ?")
		args = append(args, f.CountyID)
	}
	if f.Subdivision != "" {
		where = append(where, "subdivision = ?")
		args = append(args, f.Subdivision)
	}
	if f.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, f.Year)
	}
	query := "select record from property_records"
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by geocode, year"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query records: %w", err)
	}
	defer rows.Close()

	records := []*models.PropertyRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		rec, err := decode(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkSubdivision records that a subdivision finished harvesting for year.
func (s *Store) MarkSubdivision(ctx context.Context, countyID, name string, year int) error {
	_, err := s.db.ExecContext(ctx, `
		insert into harvested_subdivisions (county_id, name, year, harvested_at)
		values (?, ?, ?, ?)
		on conflict (county_id, name, year) do update set harvested_at = excluded.harvested_at`,
		countyID, name, year, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: mark subdivision %s: %w", name, err)
	}
	return nil
}

// HarvestedSubdivisions returns the set of subdivision names of a county
// already harvested for year.
func (s *Store) HarvestedSubdivisions(ctx context.Context, countyID string, year int) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`select name from harvested_subdivisions where county_id = ? and year = ?`,
		countyID, year,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query subdivisions: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan subdivision: %w", err)
		}
		done[name] = true
	}
	return done, rows.Err()
}

func decode(data string) (*models.PropertyRecord, error) {
	var rec models.PropertyRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("store: decode record: %w", err)
	}
	return &rec, nil
}
