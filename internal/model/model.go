// Package model defines shared data structures.
package model

import "time"

// DistantPast is the date given to placeholder records whose detail could not be fetched.
var DistantPast = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Key identifies a cached record. ID is empty for singleton-per-owner records.
type Key struct {
	Owner string
	ID    string
}

// Table describes the logical table a record type is stored in.
type Table struct {
	Name string
	// Searchable lists the text columns matched by free-text queries.
	Searchable []string
	// SortColumn is the primary key for alphabetical ordering.
	SortColumn string
}

// Columns returns the searchable columns plus the sort column when it is not a
// built-in column.
func (t Table) Columns() []string {
	cols := append([]string(nil), t.Searchable...)
	if t.SortColumn == "" || isBuiltin(t.SortColumn) {
		return cols
	}
	for _, c := range cols {
		if c == t.SortColumn {
			return cols
		}
	}
	return append(cols, t.SortColumn)
}

func isBuiltin(col string) bool {
	return col == "owner" || col == "id" || col == "date"
}

// Record is a persisted entity. Implementations use value receivers so that a zero
// value can report its table.
type Record interface {
	Table() Table
	Key() Key
	Stamp() time.Time
	// Field returns the value of a declared text column.
	Field(column string) string
}

// Value returns the value of any column of r, including the built-in owner and id.
func Value(r Record, column string) string {
	switch column {
	case "owner":
		return r.Key().Owner
	case "id":
		return r.Key().ID
	}
	return r.Field(column)
}

// Meta holds the fields shared by every record.
type Meta struct {
	Owner string    `json:"owner"`
	ID    string    `json:"id,omitempty"`
	Date  time.Time `json:"date"`
}

// Key returns the record identity.
func (m Meta) Key() Key { return Key{Owner: m.Owner, ID: m.ID} }

// Stamp returns the ordering and freshness timestamp.
func (m Meta) Stamp() time.Time { return m.Date }

// AutomationPreferences controls when a fetcher refreshes on its own.
type AutomationPreferences struct {
	AutoLoad bool
	// ReloadDuration is the TTL. nil means fetch once and never refresh.
	ReloadDuration *time.Duration
}

// DefaultReloadDuration is the TTL used when none is configured.
const DefaultReloadDuration = 60 * time.Second

// DefaultPreferences auto-loads and refreshes after DefaultReloadDuration.
func DefaultPreferences() AutomationPreferences {
	d := DefaultReloadDuration
	return AutomationPreferences{AutoLoad: true, ReloadDuration: &d}
}

// Once returns preferences that fetch a single time.
func Once() AutomationPreferences {
	return AutomationPreferences{AutoLoad: true}
}

// Every returns auto-loading preferences with the given TTL.
func Every(d time.Duration) AutomationPreferences {
	return AutomationPreferences{AutoLoad: true, ReloadDuration: &d}
}

// Settings key constants.
const (
	SettingPinnedAddresses  = "pinned_addresses"
	SettingBlockedAddresses = "blocked_addresses"
)

// WatermarkSetting returns the settings key holding the last successful run of a
// bulk sync.
func WatermarkSetting(name string) string {
	return "sync." + name + ".last_run"
}
