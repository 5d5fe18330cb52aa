package opml

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/lolsync/internal/model"
)

func TestExportThenParse(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Export("Following", map[string][]FeedEntry{
		"Following": {
			{Title: "@bob", URL: "https://bob.weblog.lol/rss.xml"},
			{Title: "@carol", URL: "https://carol.weblog.lol/rss.xml"},
		},
		"": {{Title: "@alice", URL: "https://alice.weblog.lol/rss.xml"}},
	}, created)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Fri, 01 Mar 2024 12:00:00 +0000")

	entries, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Empty(t, entries[0].Groups)
	assert.Equal(t, "@alice", entries[0].Title)
	assert.Equal(t, []string{"Following"}, entries[1].Groups)
	assert.Equal(t, []string{"alice", "bob", "carol"}, Addresses(entries))
}

func TestParse_NestedGroupsAndTextFallback(t *testing.T) {
	doc := `<?xml version="1.0"?>
<opml version="2.0"><body>
  <outline text="Friends">
    <outline text="Close">
      <outline text="Dave" xmlUrl="https://dave.omg.lol/feed"/>
    </outline>
  </outline>
  <outline text="Elsewhere" xmlUrl="https://example.com/rss"/>
</body></opml>`

	entries, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"Friends", "Close"}, entries[0].Groups)
	assert.Equal(t, "Dave", entries[0].Title)
	assert.Equal(t, []string{"dave"}, Addresses(entries))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("not xml"))
	assert.Error(t, err)
}

func TestAddress(t *testing.T) {
	for in, want := range map[string]string{
		"https://alice.weblog.lol/rss.xml": "alice",
		"https://BOB.omg.lol":              "bob",
		"https://a.b.weblog.lol/rss.xml":   "",
		"https://weblog.lol/rss.xml":       "",
		"not a url":                        "",
	} {
		got, ok := Address(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, want != "", ok, in)
	}
}

func TestExportFollowing_SkipsBlocked(t *testing.T) {
	book := model.NewAddressBook(model.AddressBook{
		Following:      []string{"bob", "troll"},
		Pinned:         []string{"bob", "carol"},
		AppliedBlocked: []string{"troll"},
	})

	data, err := ExportFollowing(book, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	entries, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"Following"}, entries[0].Groups)
	assert.Equal(t, "https://bob.weblog.lol/rss.xml", entries[0].URL)
	assert.Equal(t, []string{"Pinned"}, entries[1].Groups)
	assert.Equal(t, "@carol", entries[1].Title)
}
