package database

import (
	"context"
	"sort"
	"sync"

	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/query"
)

// memoryRow is a record with its encoding. It sorts as the record it holds.
type memoryRow struct {
	model.Record
	data []byte
}

// Memory is an in-process Store. Filters and sorts run through the in-memory
// predicates and comparators of package query.
type Memory struct {
	mu       sync.RWMutex
	tables   map[string]map[model.Key]memoryRow
	settings map[string]string
}

// Ensure Memory implements Store interface.
var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tables:   make(map[string]map[model.Key]memoryRow),
		settings: make(map[string]string),
	}
}

func (m *Memory) Close() error                  { return nil }
func (m *Memory) DatabaseType() string          { return "Memory" }
func (m *Memory) SupportsHighConcurrency() bool { return true }

// Upsert encodes every record before taking the lock so a bad record leaves the
// store untouched.
func (m *Memory) Upsert(_ context.Context, records ...model.Record) error {
	rows := make([]memoryRow, len(records))
	for i, r := range records {
		data, err := encode(r)
		if err != nil {
			return err
		}
		rows[i] = memoryRow{Record: r, data: data}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		name := row.Record.Table().Name
		t, ok := m.tables[name]
		if !ok {
			t = make(map[model.Key]memoryRow)
			m.tables[name] = t
		}
		t[row.Record.Key()] = row
	}
	return nil
}

func (m *Memory) Get(_ context.Context, table model.Table, key model.Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.tables[table.Name][key]
	if !ok {
		return nil, ErrNotFound
	}
	return row.data, nil
}

func (m *Memory) Select(_ context.Context, q Query) ([][]byte, error) {
	where := q.Where
	if where == nil {
		where = query.True{}
	}
	order := q.Order
	if order == "" {
		order = query.NewestFirst
	}

	m.mu.RLock()
	var rows []memoryRow
	for _, row := range m.tables[q.Table.Name] {
		if where.Match(row.Record) {
			rows = append(rows, row)
		}
	}
	m.mu.RUnlock()

	// Map iteration order is random; fix a base order so equal keys sort stably.
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Key(), rows[j].Key()
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.ID < b.ID
	})
	query.Apply(order, q.Table, rows)

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([][]byte, len(rows))
	for i, row := range rows {
		out[i] = row.data
	}
	return out, nil
}

func (m *Memory) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.settings[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (m *Memory) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}
