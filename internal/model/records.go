package model

import "strings"

// Tables known to the store.
var (
	AddressesTable     = Table{Name: "addresses", Searchable: []string{"url"}, SortColumn: "owner"}
	ProfilesTable      = Table{Name: "profiles", Searchable: []string{"content"}, SortColumn: "owner"}
	WeblogEntriesTable = Table{Name: "weblog_entries", Searchable: []string{"title", "summary"}, SortColumn: "title"}
	BiosTable          = Table{Name: "bios", Searchable: []string{"content"}, SortColumn: "owner"}
	StatusesTable      = Table{Name: "statuses", Searchable: []string{"content"}, SortColumn: "content"}
	PURLsTable         = Table{Name: "purls", Searchable: []string{"name", "url"}, SortColumn: "name"}
	PastesTable        = Table{Name: "pastes", Searchable: []string{"title", "content"}, SortColumn: "title"}
	PicsTable          = Table{Name: "pics", Searchable: []string{"description"}, SortColumn: "description"}
	FollowersTable     = Table{Name: "followers", Searchable: []string{"addresses"}, SortColumn: "owner"}
	FollowingTable     = Table{Name: "following", Searchable: []string{"addresses"}, SortColumn: "owner"}
	NowPagesTable      = Table{Name: "now_pages", Searchable: []string{"content"}, SortColumn: "owner"}
	GardenTable        = Table{Name: "garden", Searchable: []string{"url"}, SortColumn: "owner"}
)

// Tables lists every table in schema order.
var Tables = []Table{
	AddressesTable, ProfilesTable, WeblogEntriesTable, BiosTable, StatusesTable,
	PURLsTable, PastesTable, PicsTable, FollowersTable, FollowingTable,
	NowPagesTable, GardenTable,
}

// TableByName looks up a table.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// AddressInfo is the core identity metadata of an address.
type AddressInfo struct {
	Meta
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}

func (AddressInfo) Table() Table { return AddressesTable }

func (a AddressInfo) Field(col string) string {
	if col == "url" {
		return a.URL
	}
	return ""
}

// ProfilePage is the web page of an address. Only its owner may read it.
type ProfilePage struct {
	Meta
	Content string `json:"content"`
}

func (ProfilePage) Table() Table { return ProfilesTable }

func (p ProfilePage) Field(col string) string {
	if col == "content" {
		return p.Content
	}
	return ""
}

// WeblogEntry is a single item of an address's weblog feed.
type WeblogEntry struct {
	Meta
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
}

func (WeblogEntry) Table() Table { return WeblogEntriesTable }

func (w WeblogEntry) Field(col string) string {
	switch col {
	case "title":
		return w.Title
	case "summary":
		return w.Summary
	}
	return ""
}

// Bio is the statuslog bio of an address.
type Bio struct {
	Meta
	Content string `json:"content"`
}

func (Bio) Table() Table { return BiosTable }

func (b Bio) Field(col string) string {
	if col == "content" {
		return b.Content
	}
	return ""
}

// Status is a single statuslog post.
type Status struct {
	Meta
	Emoji       string `json:"emoji"`
	Content     string `json:"content"`
	ExternalURL string `json:"external_url,omitempty"`
}

func (Status) Table() Table { return StatusesTable }

func (s Status) Field(col string) string {
	if col == "content" {
		return s.Content
	}
	return ""
}

// PURL is a persistent URL owned by an address. ID is the PURL name.
type PURL struct {
	Meta
	URL     string `json:"url"`
	Counter int    `json:"counter"`
	Listed  bool   `json:"listed"`
}

func (PURL) Table() Table { return PURLsTable }

func (p PURL) Field(col string) string {
	switch col {
	case "name":
		return p.ID
	case "url":
		return p.URL
	}
	return ""
}

// Paste is a pastebin entry. ID is the paste title.
type Paste struct {
	Meta
	Content string `json:"content"`
	Listed  bool   `json:"listed"`
}

func (Paste) Table() Table { return PastesTable }

func (p Paste) Field(col string) string {
	switch col {
	case "title":
		return p.ID
	case "content":
		return p.Content
	}
	return ""
}

// Pic is a photo from an address's some.pics feed.
type Pic struct {
	Meta
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (Pic) Table() Table { return PicsTable }

func (p Pic) Field(col string) string {
	if col == "description" {
		return p.Description
	}
	return ""
}

// FollowKind selects the direction of a FollowList.
type FollowKind string

const (
	Followers FollowKind = "followers"
	Following FollowKind = "following"
)

// FollowList is the set of addresses following, or followed by, an owner.
type FollowList struct {
	Meta
	Kind      FollowKind `json:"kind"`
	Addresses []string   `json:"addresses"`
}

func (f FollowList) Table() Table {
	if f.Kind == Followers {
		return FollowersTable
	}
	return FollowingTable
}

func (f FollowList) Field(col string) string {
	if col == "addresses" {
		return strings.Join(f.Addresses, " ")
	}
	return ""
}

// NowPage is the /now page of an address.
type NowPage struct {
	Meta
	Content string `json:"content"`
	Listed  bool   `json:"listed"`
}

func (NowPage) Table() Table { return NowPagesTable }

func (n NowPage) Field(col string) string {
	if col == "content" {
		return n.Content
	}
	return ""
}

// GardenEntry is a listed /now page in the now garden.
type GardenEntry struct {
	Meta
	URL string `json:"url"`
}

func (GardenEntry) Table() Table { return GardenTable }

func (g GardenEntry) Field(col string) string {
	if col == "url" {
		return g.URL
	}
	return ""
}
