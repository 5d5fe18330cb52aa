package model

import (
	"slices"
	"sort"
)

// AddressBook is an immutable snapshot of the acting identity and its relationship
// sets. Build one with NewAddressBook; never modify the slices of an existing book.
type AddressBook struct {
	// Auth is the API credential. Empty means signed out.
	Auth           string
	Me             string
	Mine           []string
	Following      []string
	Followers      []string
	Pinned         []string
	Blocked        []string
	AppliedBlocked []string
}

// NewAddressBook copies, sorts and deduplicates every set of b.
func NewAddressBook(b AddressBook) AddressBook {
	return AddressBook{
		Auth:           b.Auth,
		Me:             b.Me,
		Mine:           normalize(b.Mine),
		Following:      normalize(b.Following),
		Followers:      normalize(b.Followers),
		Pinned:         normalize(b.Pinned),
		Blocked:        normalize(b.Blocked),
		AppliedBlocked: normalize(b.AppliedBlocked),
	}
}

func normalize(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}

// Equal compares two books, treating each relationship set as unordered.
func (b AddressBook) Equal(o AddressBook) bool {
	if b.Auth != o.Auth || b.Me != o.Me {
		return false
	}
	return sameSet(b.Mine, o.Mine) &&
		sameSet(b.Following, o.Following) &&
		sameSet(b.Followers, o.Followers) &&
		sameSet(b.Pinned, o.Pinned) &&
		sameSet(b.Blocked, o.Blocked) &&
		sameSet(b.AppliedBlocked, o.AppliedBlocked)
}

func sameSet(a, b []string) bool {
	return slices.Equal(normalize(a), normalize(b))
}

// SignedIn reports whether a credential is available.
func (b AddressBook) SignedIn() bool { return b.Auth != "" }

// Owns reports whether addr is one of the acting identity's addresses.
func (b AddressBook) Owns(addr string) bool {
	return addr == b.Me || slices.Contains(b.Mine, addr)
}

// IsBlocked reports whether addr is hidden by the effective block list.
func (b AddressBook) IsBlocked(addr string) bool {
	return slices.Contains(b.AppliedBlocked, addr)
}

// IsFollowing reports whether addr is followed.
func (b AddressBook) IsFollowing(addr string) bool {
	return slices.Contains(b.Following, addr)
}

// IsPinned reports whether addr is pinned.
func (b AddressBook) IsPinned(addr string) bool {
	return slices.Contains(b.Pinned, addr)
}
