// Package database provides storage backends for the record cache.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/query"
)

// ErrNotFound is returned when a record or setting does not exist.
var ErrNotFound = errors.New("not found")

// Query selects records from one table.
type Query struct {
	Table model.Table
	// Where filters rows. nil matches everything.
	Where query.Predicate
	// Order defaults to newest first.
	Order query.Sort
	// Limit caps the result size when positive.
	Limit int
}

// Store defines the interface for cache operations.
// The SQLite, PostgreSQL and memory implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend.
	DatabaseType() string

	// SupportsHighConcurrency returns true if the database can handle
	// many concurrent write operations (e.g., PostgreSQL).
	// SQLite returns false due to write locking limitations.
	SupportsHighConcurrency() bool

	// Upsert writes complete records, replacing any record with the same key.
	// All records land together or not at all. The last call wins.
	Upsert(ctx context.Context, records ...model.Record) error
	// Get returns the JSON encoding of one record.
	Get(ctx context.Context, table model.Table, key model.Key) ([]byte, error)
	// Select returns the JSON encodings of the matching records in order.
	Select(ctx context.Context, q Query) ([][]byte, error)

	// Settings operations
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Read fetches and decodes one record.
func Read[T model.Record](ctx context.Context, s Store, table model.Table, key model.Key) (T, error) {
	var rec T
	data, err := s.Get(ctx, table, key)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode %s record: %w", table.Name, err)
	}
	return rec, nil
}

// Find runs q and decodes every row.
func Find[T model.Record](ctx context.Context, s Store, q Query) ([]T, error) {
	rows, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, data := range rows {
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", q.Table.Name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func encode(r model.Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", r.Table().Name, err)
	}
	return data, nil
}

// Open selects a backend by driver name: "sqlite" (path), "postgres" (dsn) or
// "memory".
func Open(driver, path, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		return New(path)
	case "postgres":
		return NewPostgres(dsn)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}

// Lookup reads one record as its concrete type, chosen by table.
func Lookup(ctx context.Context, s Store, table model.Table, key model.Key) (model.Record, error) {
	switch table.Name {
	case model.AddressesTable.Name:
		return Read[model.AddressInfo](ctx, s, table, key)
	case model.ProfilesTable.Name:
		return Read[model.ProfilePage](ctx, s, table, key)
	case model.WeblogEntriesTable.Name:
		return Read[model.WeblogEntry](ctx, s, table, key)
	case model.BiosTable.Name:
		return Read[model.Bio](ctx, s, table, key)
	case model.StatusesTable.Name:
		return Read[model.Status](ctx, s, table, key)
	case model.PURLsTable.Name:
		return Read[model.PURL](ctx, s, table, key)
	case model.PastesTable.Name:
		return Read[model.Paste](ctx, s, table, key)
	case model.PicsTable.Name:
		return Read[model.Pic](ctx, s, table, key)
	case model.FollowersTable.Name, model.FollowingTable.Name:
		return Read[model.FollowList](ctx, s, table, key)
	case model.NowPagesTable.Name:
		return Read[model.NowPage](ctx, s, table, key)
	case model.GardenTable.Name:
		return Read[model.GardenEntry](ctx, s, table, key)
	}
	return nil, fmt.Errorf("unknown table %q", table.Name)
}
