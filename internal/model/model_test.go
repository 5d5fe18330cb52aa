package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAddressBook_NormalizesSets(t *testing.T) {
	book := NewAddressBook(AddressBook{
		Following: []string{"carol", "bob", "", "carol"},
		Pinned:    []string{},
	})
	assert.Equal(t, []string{"bob", "carol"}, book.Following)
	assert.Nil(t, book.Pinned)
}

func TestAddressBook_Equal(t *testing.T) {
	a := AddressBook{Me: "alice", Following: []string{"bob", "carol"}}
	b := AddressBook{Me: "alice", Following: []string{"carol", "bob", "bob"}}
	assert.True(t, a.Equal(b))

	b.Auth = "token"
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(AddressBook{Me: "alice", Following: []string{"bob"}}))
}

func TestAddressBook_Membership(t *testing.T) {
	book := NewAddressBook(AddressBook{
		Auth:           "token",
		Me:             "alice",
		Mine:           []string{"alice", "alt"},
		Following:      []string{"bob"},
		Pinned:         []string{"carol"},
		AppliedBlocked: []string{"troll"},
	})
	assert.True(t, book.SignedIn())
	assert.True(t, book.Owns("alt"))
	assert.False(t, book.Owns("bob"))
	assert.True(t, book.IsFollowing("bob"))
	assert.True(t, book.IsPinned("carol"))
	assert.True(t, book.IsBlocked("troll"))
	assert.False(t, book.IsBlocked("bob"))
}

func TestActions(t *testing.T) {
	signedIn := NewAddressBook(AddressBook{
		Auth:      "token",
		Me:        "alice",
		Mine:      []string{"alice"},
		Following: []string{"bob"},
		Blocked:   []string{"troll"},
	})
	signedOut := NewAddressBook(AddressBook{Pinned: []string{"bob"}})

	tests := []struct {
		name string
		rec  Record
		book AddressBook
		want []Action
	}{
		{
			name: "own status",
			rec:  Status{Meta: Meta{Owner: "alice", ID: "1"}},
			book: signedIn,
			want: []Action{ActionOpen, ActionShare, ActionEdit, ActionDelete},
		},
		{
			name: "own address",
			rec:  AddressInfo{Meta: Meta{Owner: "alice"}, URL: "https://alice.omg.lol"},
			book: signedIn,
			want: []Action{ActionOpen, ActionShare},
		},
		{
			name: "followed address",
			rec:  AddressInfo{Meta: Meta{Owner: "bob"}, URL: "https://bob.omg.lol"},
			book: signedIn,
			want: []Action{ActionOpen, ActionShare, ActionPin, ActionUnfollow, ActionBlock},
		},
		{
			name: "blocked bio",
			rec:  Bio{Meta: Meta{Owner: "troll"}},
			book: signedIn,
			want: []Action{ActionOpen, ActionUnblock},
		},
		{
			name: "signed out pinned address",
			rec:  AddressInfo{Meta: Meta{Owner: "bob"}},
			book: signedOut,
			want: []Action{ActionOpen, ActionUnpin, ActionBlock},
		},
		{
			name: "signed out status",
			rec:  Status{Meta: Meta{Owner: "alice", ID: "2"}},
			book: signedOut,
			want: []Action{ActionOpen, ActionShare, ActionBlock},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Actions(tt.rec, tt.book))
		})
	}
}

func TestValue(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Status{Meta: Meta{Owner: "alice", ID: "1", Date: date}, Content: "hi"}
	assert.Equal(t, "alice", Value(s, "owner"))
	assert.Equal(t, "hi", Value(s, "content"))
}

func TestTableByName(t *testing.T) {
	table, ok := TableByName("statuses")
	assert.True(t, ok)
	assert.Equal(t, StatusesTable.Name, table.Name)

	_, ok = TableByName("nope")
	assert.False(t, ok)

	assert.Equal(t, FollowersTable, FollowList{Kind: Followers}.Table())
	assert.Equal(t, FollowingTable, FollowList{Kind: Following}.Table())
}
