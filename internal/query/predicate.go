// Package query compiles filter and sort options into store predicates, ORDER BY
// clauses, and in-memory matchers and comparators.
package query

import (
	"slices"
	"strings"
	"time"

	"github.com/bryan-buckman/lolsync/internal/model"
)

// Dialect captures the SQL differences between store backends.
type Dialect interface {
	// Like returns the case-insensitive pattern operator.
	Like() string
	// Random returns the expression for random ordering.
	Random() string
}

// Predicate is a compiled filter. SQL renders it with ? placeholders.
type Predicate interface {
	SQL(d Dialect) (string, []any)
	Match(r model.Record) bool
}

// True matches every record.
type True struct{}

func (True) SQL(Dialect) (string, []any) { return "1=1", nil }
func (True) Match(model.Record) bool     { return true }

// OwnerEq matches records of a single owner.
type OwnerEq struct {
	Owner string
}

func (p OwnerEq) SQL(Dialect) (string, []any) { return "owner = ?", []any{p.Owner} }
func (p OwnerEq) Match(r model.Record) bool   { return r.Key().Owner == p.Owner }

// OwnerIn matches records whose owner is in the set.
type OwnerIn struct {
	Owners []string
}

func (p OwnerIn) SQL(Dialect) (string, []any) {
	if len(p.Owners) == 0 {
		return "1=0", nil
	}
	return "owner IN (" + placeholders(len(p.Owners)) + ")", stringArgs(p.Owners)
}

func (p OwnerIn) Match(r model.Record) bool { return slices.Contains(p.Owners, r.Key().Owner) }

// OwnerNotIn matches records whose owner is outside the set.
type OwnerNotIn struct {
	Owners []string
}

func (p OwnerNotIn) SQL(Dialect) (string, []any) {
	if len(p.Owners) == 0 {
		return "1=1", nil
	}
	return "owner NOT IN (" + placeholders(len(p.Owners)) + ")", stringArgs(p.Owners)
}

func (p OwnerNotIn) Match(r model.Record) bool { return !slices.Contains(p.Owners, r.Key().Owner) }

// Since matches records dated at or after Time.
type Since struct {
	Time time.Time
}

func (p Since) SQL(Dialect) (string, []any) { return "date >= ?", []any{p.Time.Unix()} }
func (p Since) Match(r model.Record) bool   { return r.Stamp().Unix() >= p.Time.Unix() }

// Contains matches records whose column contains Text, ignoring case.
type Contains struct {
	Column string
	Text   string
}

func (p Contains) SQL(d Dialect) (string, []any) {
	return p.Column + " " + d.Like() + ` ? ESCAPE '\'`, []any{"%" + escapeLike(p.Text) + "%"}
}

func (p Contains) Match(r model.Record) bool {
	return strings.Contains(strings.ToLower(model.Value(r, p.Column)), strings.ToLower(p.Text))
}

// And matches when every predicate matches.
type And []Predicate

func (p And) SQL(d Dialect) (string, []any) { return join(p, " AND ", "1=1", d) }

func (p And) Match(r model.Record) bool {
	for _, q := range p {
		if !q.Match(r) {
			return false
		}
	}
	return true
}

// Or matches when any predicate matches.
type Or []Predicate

func (p Or) SQL(d Dialect) (string, []any) { return join(p, " OR ", "1=0", d) }

func (p Or) Match(r model.Record) bool {
	for _, q := range p {
		if q.Match(r) {
			return true
		}
	}
	return false
}

func join(preds []Predicate, sep, empty string, d Dialect) (string, []any) {
	if len(preds) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		s, a := p.SQL(d)
		parts = append(parts, "("+s+")")
		args = append(args, a...)
	}
	return strings.Join(parts, sep), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
