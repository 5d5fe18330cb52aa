package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/lolsync/internal/model"
)

// FilterKind discriminates FilterOption variants.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterMine
	FilterFollowing
	FilterFollowers
	FilterBlocked
	FilterNotBlocked
	FilterFrom
	FilterFromOneOf
	FilterRecent
	FilterQuery
)

var kindNames = [...]string{
	FilterNone:       "none",
	FilterMine:       "mine",
	FilterFollowing:  "following",
	FilterFollowers:  "followers",
	FilterBlocked:    "blocked",
	FilterNotBlocked: "notBlocked",
	FilterFrom:       "from",
	FilterFromOneOf:  "fromOneOf",
	FilterRecent:     "recent",
	FilterQuery:      "query",
}

func (k FilterKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Discriminator tokens of the canonical encoding.
const (
	tokenMine       = "mine"
	tokenFollowing  = "following"
	tokenFollowers  = "followers"
	tokenBlocked    = "blocked"
	tokenNotBlocked = "notBlocked"
	tokenFrom       = "from"
	tokenFromOne    = "fromOne"
	tokenRecent     = "recent"
	tokenQuery      = "query"

	separator = "."
)

// FilterOption is one declarative filter. The zero value is the none filter.
//
// The canonical encoding is a dot-separated token list: a discriminator followed by
// payload tokens. Inside payload tokens "%" is written "%25" and "." is written
// "%2E"; no other escapes exist. The encoding is used as a persistence key and a
// routing token, so it must not change.
type FilterOption struct {
	kind   FilterKind
	owners []string
	age    time.Duration
	text   string
}

func None() FilterOption       { return FilterOption{} }
func Mine() FilterOption       { return FilterOption{kind: FilterMine} }
func Following() FilterOption  { return FilterOption{kind: FilterFollowing} }
func Followers() FilterOption  { return FilterOption{kind: FilterFollowers} }
func Blocked() FilterOption    { return FilterOption{kind: FilterBlocked} }
func NotBlocked() FilterOption { return FilterOption{kind: FilterNotBlocked} }

// From matches a single owner.
func From(owner string) FilterOption {
	return FilterOption{kind: FilterFrom, owners: []string{owner}}
}

// FromOneOf matches any of the owners.
func FromOneOf(owners ...string) FilterOption {
	if len(owners) == 0 {
		return FilterOption{kind: FilterFromOneOf}
	}
	return FilterOption{kind: FilterFromOneOf, owners: append([]string(nil), owners...)}
}

// Recent matches records dated within d of now. d is truncated to whole seconds.
func Recent(d time.Duration) FilterOption {
	if d < 0 {
		d = 0
	}
	return FilterOption{kind: FilterRecent, age: d.Truncate(time.Second)}
}

// Search matches records whose searchable columns contain text.
func Search(text string) FilterOption {
	return FilterOption{kind: FilterQuery, text: text}
}

// Kind returns the variant.
func (f FilterOption) Kind() FilterKind { return f.kind }

// Owners returns the owner payload of From and FromOneOf.
func (f FilterOption) Owners() []string { return append([]string(nil), f.owners...) }

// Age returns the payload of Recent.
func (f FilterOption) Age() time.Duration { return f.age }

// Text returns the payload of Search.
func (f FilterOption) Text() string { return f.text }

// String returns the canonical encoding.
func (f FilterOption) String() string {
	switch f.kind {
	case FilterMine:
		return tokenMine
	case FilterFollowing:
		return tokenFollowing
	case FilterFollowers:
		return tokenFollowers
	case FilterBlocked:
		return tokenBlocked
	case FilterNotBlocked:
		return tokenNotBlocked
	case FilterFrom:
		return tokenFrom + separator + escapeToken(f.owners[0])
	case FilterFromOneOf:
		parts := []string{tokenFromOne}
		for _, o := range f.owners {
			parts = append(parts, escapeToken(o))
		}
		return strings.Join(parts, separator)
	case FilterRecent:
		return tokenRecent + separator + strconv.FormatInt(int64(f.age/time.Second), 10)
	case FilterQuery:
		return tokenQuery + separator + escapeToken(f.text)
	}
	return ""
}

// ParseFilter decodes a canonical encoding. It reports false for anything that is
// not exactly the output of String for some FilterOption.
func ParseFilter(s string) (FilterOption, bool) {
	if s == "" {
		return None(), true
	}
	tokens := strings.Split(s, separator)
	head, payload := tokens[0], tokens[1:]
	switch head {
	case tokenMine, tokenFollowing, tokenFollowers, tokenBlocked, tokenNotBlocked:
		if len(payload) != 0 {
			return FilterOption{}, false
		}
		return map[string]FilterOption{
			tokenMine:       Mine(),
			tokenFollowing:  Following(),
			tokenFollowers:  Followers(),
			tokenBlocked:    Blocked(),
			tokenNotBlocked: NotBlocked(),
		}[head], true
	case tokenFrom:
		if len(payload) != 1 {
			return FilterOption{}, false
		}
		owner, ok := unescapeToken(payload[0])
		if !ok {
			return FilterOption{}, false
		}
		return From(owner), true
	case tokenFromOne:
		owners := make([]string, 0, len(payload))
		for _, p := range payload {
			owner, ok := unescapeToken(p)
			if !ok {
				return FilterOption{}, false
			}
			owners = append(owners, owner)
		}
		return FromOneOf(owners...), true
	case tokenRecent:
		if len(payload) != 1 {
			return FilterOption{}, false
		}
		secs, err := strconv.ParseInt(payload[0], 10, 64)
		if err != nil || secs < 0 || strconv.FormatInt(secs, 10) != payload[0] {
			return FilterOption{}, false
		}
		if secs > int64(maxRecent/time.Second) {
			return FilterOption{}, false
		}
		return Recent(time.Duration(secs) * time.Second), true
	case tokenQuery:
		if len(payload) != 1 {
			return FilterOption{}, false
		}
		text, ok := unescapeToken(payload[0])
		if !ok {
			return FilterOption{}, false
		}
		return Search(text), true
	}
	return FilterOption{}, false
}

const maxRecent = time.Duration(1<<63 - 1)

// ParseFilters decodes every token, failing on the first invalid one.
func ParseFilters(tokens []string) ([]FilterOption, bool) {
	out := make([]FilterOption, 0, len(tokens))
	for _, t := range tokens {
		f, ok := ParseFilter(t)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

var tokenEscaper = strings.NewReplacer("%", "%25", ".", "%2E")
var tokenUnescaper = strings.NewReplacer("%2E", ".", "%25", "%")

func escapeToken(s string) string { return tokenEscaper.Replace(s) }

func unescapeToken(s string) (string, bool) {
	out := tokenUnescaper.Replace(s)
	if escapeToken(out) != s {
		return "", false
	}
	return out, true
}

// Compile turns filters into one predicate over table, evaluated for book at now.
//
// Mine, Following and FromOneOf members are collected into a single owner set
// (a union) that becomes one trailing OwnerIn predicate. Every other filter compiles
// on its own. The results are ANDed; no results match everything and a single
// result is returned as is.
func Compile(filters []FilterOption, book model.AddressBook, table model.Table, now time.Time) Predicate {
	var (
		preds  []Predicate
		owners []string
		seen   = map[string]bool{}
	)
	collect := func(list []string) {
		for _, o := range list {
			if !seen[o] {
				seen[o] = true
				owners = append(owners, o)
			}
		}
	}
	for _, f := range filters {
		switch f.kind {
		case FilterMine:
			collect(book.Mine)
		case FilterFollowing:
			collect(book.Following)
		case FilterFromOneOf:
			collect(f.owners)
		case FilterFollowers:
			preds = append(preds, OwnerIn{Owners: book.Followers})
		case FilterBlocked:
			preds = append(preds, OwnerIn{Owners: book.Blocked})
		case FilterNotBlocked:
			preds = append(preds, OwnerNotIn{Owners: book.AppliedBlocked})
		case FilterFrom:
			preds = append(preds, OwnerEq{Owner: f.owners[0]})
		case FilterRecent:
			preds = append(preds, Since{Time: now.Add(-f.age)})
		case FilterQuery:
			or := make(Or, 0, len(table.Searchable))
			for _, col := range table.Searchable {
				or = append(or, Contains{Column: col, Text: f.text})
			}
			if len(or) == 1 {
				preds = append(preds, or[0])
			} else {
				preds = append(preds, or)
			}
		}
	}
	if len(owners) > 0 {
		preds = append(preds, OwnerIn{Owners: owners})
	}
	switch len(preds) {
	case 0:
		return True{}
	case 1:
		return preds[0]
	}
	return And(preds)
}
