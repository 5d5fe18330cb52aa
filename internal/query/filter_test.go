package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/lolsync/internal/model"
)

type likeDialect struct{}

func (likeDialect) Like() string   { return "LIKE" }
func (likeDialect) Random() string { return "RANDOM()" }

func allVariants() []FilterOption {
	return []FilterOption{
		None(),
		Mine(),
		Following(),
		Followers(),
		Blocked(),
		NotBlocked(),
		From("alice"),
		From(""),
		FromOneOf(),
		FromOneOf("alice", "bob"),
		FromOneOf("a.b", "100%"),
		Recent(24 * time.Hour),
		Recent(0),
		Search("hello world"),
		Search("v1.2 at 50%"),
		Search(""),
	}
}

func TestFilterOption_RoundTrip(t *testing.T) {
	for _, f := range allVariants() {
		t.Run(f.String(), func(t *testing.T) {
			decoded, ok := ParseFilter(f.String())
			require.True(t, ok)
			assert.Equal(t, f, decoded)
			assert.Equal(t, f.String(), decoded.String())
		})
	}
}

func TestFilterOption_CanonicalStrings(t *testing.T) {
	tests := []struct {
		filter FilterOption
		want   string
	}{
		{None(), ""},
		{Mine(), "mine"},
		{NotBlocked(), "notBlocked"},
		{Recent(86400 * time.Second), "recent.86400"},
		{From("alice"), "from.alice"},
		{FromOneOf("alice", "bob"), "fromOne.alice.bob"},
		{Search("a.b"), "query.a%2Eb"},
		{Search("50%"), "query.50%25"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.filter.String())
	}
}

func TestParseFilter_EmptyIsNone(t *testing.T) {
	f, ok := ParseFilter("")
	require.True(t, ok)
	assert.Equal(t, FilterNone, f.Kind())
	assert.Equal(t, None().String(), f.String())
}

func TestParseFilter_RejectsMalformed(t *testing.T) {
	for _, s := range []string{
		"unknown",
		"mine.extra",
		"from",
		"from.a.b",
		"recent",
		"recent.abc",
		"recent.-5",
		"recent.007",
		"recent.99999999999999999999",
		"query",
		"query.a.b",
		"query.100%",
		"from.a%2e",
		".mine",
		"Mine",
	} {
		_, ok := ParseFilter(s)
		assert.False(t, ok, s)
	}
}

func TestRecent_TruncatesToSeconds(t *testing.T) {
	f := Recent(1500 * time.Millisecond)
	assert.Equal(t, time.Second, f.Age())
	assert.Equal(t, "recent.1", f.String())
}

func TestCompile_UnionsOwnerSets(t *testing.T) {
	book := model.NewAddressBook(model.AddressBook{
		Mine:      []string{"a", "b"},
		Following: []string{"b", "c"},
	})

	pred := Compile([]FilterOption{Mine(), Following()}, book, model.StatusesTable, time.Now())

	in, ok := pred.(OwnerIn)
	require.True(t, ok, "expected a single unwrapped OwnerIn, got %T", pred)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, in.Owners)

	sql, args := pred.SQL(likeDialect{})
	assert.Equal(t, "owner IN (?, ?, ?)", sql)
	assert.Len(t, args, 3)
}

func TestCompile_FromOneOfJoinsTheSameSet(t *testing.T) {
	book := model.NewAddressBook(model.AddressBook{Mine: []string{"a"}})

	pred := Compile([]FilterOption{FromOneOf("x", "a"), Mine()}, book, model.StatusesTable, time.Now())

	in, ok := pred.(OwnerIn)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "a"}, in.Owners)
}

func TestCompile_EmptyMatchesEverything(t *testing.T) {
	pred := Compile(nil, model.AddressBook{}, model.StatusesTable, time.Now())
	assert.Equal(t, True{}, pred)

	pred = Compile([]FilterOption{None()}, model.AddressBook{}, model.StatusesTable, time.Now())
	assert.Equal(t, True{}, pred)
}

func TestCompile_AndsIndependentFilters(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	book := model.NewAddressBook(model.AddressBook{
		Following:      []string{"bob"},
		AppliedBlocked: []string{"troll"},
	})

	pred := Compile([]FilterOption{NotBlocked(), Recent(time.Hour), Following()}, book, model.StatusesTable, now)

	and, ok := pred.(And)
	require.True(t, ok)
	require.Len(t, and, 3)
	assert.Equal(t, OwnerNotIn{Owners: []string{"troll"}}, and[0])
	assert.Equal(t, Since{Time: now.Add(-time.Hour)}, and[1])
	assert.Equal(t, OwnerIn{Owners: []string{"bob"}}, and[2])

	sql, args := pred.SQL(likeDialect{})
	assert.Equal(t, "(owner NOT IN (?)) AND (date >= ?) AND (owner IN (?))", sql)
	assert.Equal(t, []any{"troll", now.Add(-time.Hour).Unix(), "bob"}, args)
}

func TestCompile_QuerySearchesEveryColumn(t *testing.T) {
	pred := Compile([]FilterOption{Search("50%")}, model.AddressBook{}, model.PastesTable, time.Now())

	sql, args := pred.SQL(likeDialect{})
	assert.Equal(t, `(title LIKE ? ESCAPE '\') OR (content LIKE ? ESCAPE '\')`, sql)
	assert.Equal(t, []any{`%50\%%`, `%50\%%`}, args)

	hit := model.Paste{Meta: model.Meta{Owner: "a", ID: "notes"}, Content: "Only 50% done"}
	miss := model.Paste{Meta: model.Meta{Owner: "a", ID: "todo"}, Content: "nothing"}
	assert.True(t, pred.Match(hit))
	assert.False(t, pred.Match(miss))
}

func TestCompile_QueryOverOneColumnIsUnwrapped(t *testing.T) {
	pred := Compile([]FilterOption{Search("hi")}, model.AddressBook{}, model.StatusesTable, time.Now())

	assert.Equal(t, Contains{Column: "content", Text: "hi"}, pred)
	sql, _ := pred.SQL(likeDialect{})
	assert.Equal(t, `content LIKE ? ESCAPE '\'`, sql)
}

func TestCompile_MatchInMemory(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	book := model.NewAddressBook(model.AddressBook{
		Followers: []string{"fan"},
		Blocked:   []string{"troll"},
	})
	fresh := model.Status{Meta: model.Meta{Owner: "fan", ID: "1", Date: now.Add(-time.Minute)}}
	old := model.Status{Meta: model.Meta{Owner: "fan", ID: "2", Date: now.Add(-48 * time.Hour)}}
	troll := model.Status{Meta: model.Meta{Owner: "troll", ID: "3", Date: now}}

	followers := Compile([]FilterOption{Followers(), Recent(24 * time.Hour)}, book, model.StatusesTable, now)
	assert.True(t, followers.Match(fresh))
	assert.False(t, followers.Match(old))
	assert.False(t, followers.Match(troll))

	blocked := Compile([]FilterOption{Blocked()}, book, model.StatusesTable, now)
	assert.True(t, blocked.Match(troll))
	assert.False(t, blocked.Match(fresh))

	from := Compile([]FilterOption{From("troll")}, book, model.StatusesTable, now)
	assert.Equal(t, OwnerEq{Owner: "troll"}, from)
	assert.True(t, from.Match(troll))
}

func TestOwnerIn_EmptySetMatchesNothing(t *testing.T) {
	sql, args := OwnerIn{}.SQL(likeDialect{})
	assert.Equal(t, "1=0", sql)
	assert.Nil(t, args)

	sql, _ = OwnerNotIn{}.SQL(likeDialect{})
	assert.Equal(t, "1=1", sql)
}
