package query

import (
	"math/rand/v2"
	"sort"

	"github.com/bryan-buckman/lolsync/internal/model"
)

// Sort is a declarative ordering. Its string value is the canonical encoding.
type Sort string

const (
	Alphabet    Sort = "alphabet"
	NewestFirst Sort = "newestFirst"
	OldestFirst Sort = "oldestFirst"
	Shuffle     Sort = "shuffle"
)

// Sorts lists every ordering.
var Sorts = []Sort{Alphabet, NewestFirst, OldestFirst, Shuffle}

// ParseSort decodes a canonical encoding.
func ParseSort(s string) (Sort, bool) {
	for _, v := range Sorts {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

func (s Sort) String() string { return string(s) }

// OrderBy returns the ORDER BY expression for table. Alphabetical order puts empty
// values after non-empty ones.
func (s Sort) OrderBy(table model.Table, d Dialect) string {
	switch s {
	case OldestFirst:
		return "date ASC"
	case Shuffle:
		return d.Random()
	case Alphabet:
		col := sortColumn(table)
		return "(" + col + " = '') ASC, " + col + " ASC"
	}
	return "date DESC"
}

func sortColumn(t model.Table) string {
	if t.SortColumn == "" {
		return "owner"
	}
	return t.SortColumn
}

// Less returns an in-memory comparator for records of table.
//
// Shuffle draws a fresh random result on every comparison, so it is not a stable
// permutation: comparing the same pair twice may disagree.
func (s Sort) Less(table model.Table) func(a, b model.Record) bool {
	switch s {
	case Alphabet:
		col := sortColumn(table)
		return func(a, b model.Record) bool {
			return alphabetLess(model.Value(a, col), model.Value(b, col))
		}
	case OldestFirst:
		return func(a, b model.Record) bool { return a.Stamp().Before(b.Stamp()) }
	case Shuffle:
		return func(model.Record, model.Record) bool { return rand.IntN(2) == 0 }
	}
	return func(a, b model.Record) bool { return a.Stamp().After(b.Stamp()) }
}

func alphabetLess(a, b string) bool {
	switch {
	case a == "":
		return false
	case b == "":
		return true
	}
	return a < b
}

// Apply sorts records in place.
func Apply[T model.Record](s Sort, table model.Table, records []T) {
	less := s.Less(table)
	sort.SliceStable(records, func(i, j int) bool { return less(records[i], records[j]) })
}
