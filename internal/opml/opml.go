// Package opml exports followed weblogs as OPML and imports addresses from OPML.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bryan-buckman/lolsync/internal/model"
)

// WeblogFeedURL is the feed of an address's weblog.
const WeblogFeedURL = "https://%s.weblog.lol/rss.xml"

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (group or feed).
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// FeedEntry is one feed with the groups it was nested under.
type FeedEntry struct {
	Groups []string // e.g., ["Following"]
	Title  string
	URL    string
}

// Parse reads an OPML document and returns a flat list of FeedEntry.
func Parse(r io.Reader) ([]FeedEntry, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var entries []FeedEntry
	var walk func(outlines []Outline, path []string)
	walk = func(outlines []Outline, path []string) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				title := o.Title
				if title == "" {
					title = o.Text
				}
				entries = append(entries, FeedEntry{
					Groups: append([]string{}, path...),
					Title:  title,
					URL:    o.XMLURL,
				})
			} else if len(o.Outlines) > 0 {
				name := o.Text
				if name == "" {
					name = o.Title
				}
				walk(o.Outlines, append(path, name))
			}
		}
	}
	walk(doc.Body.Outlines, nil)
	return entries, nil
}

// Address extracts the omg.lol address a feed belongs to, from hosts such as
// alice.weblog.lol or alice.omg.lol.
func Address(feedURL string) (string, bool) {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range []string{".weblog.lol", ".omg.lol", ".status.lol"} {
		if addr, ok := strings.CutSuffix(host, suffix); ok && addr != "" && !strings.Contains(addr, ".") {
			return addr, true
		}
	}
	return "", false
}

// Addresses returns the distinct addresses of entries in order of appearance.
func Addresses(entries []FeedEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		addr, ok := Address(e.URL)
		if !ok || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// Export generates an OPML document with one outline per group. Entries in the
// "" group sit at the root.
func Export(title string, groups map[string][]FeedEntry, created time.Time) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: created.Format(time.RFC1123Z),
		},
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var rootOutlines []Outline
	for _, name := range names {
		var feeds []Outline
		for _, e := range groups[name] {
			feeds = append(feeds, Outline{
				Text:   e.Title,
				Title:  e.Title,
				Type:   "rss",
				XMLURL: e.URL,
			})
		}
		if name == "" {
			rootOutlines = append(rootOutlines, feeds...)
			continue
		}
		rootOutlines = append(rootOutlines, Outline{Text: name, Title: name, Outlines: feeds})
	}
	doc.Body.Outlines = rootOutlines

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}

// ExportFollowing renders the followed and pinned weblogs of book as OPML,
// leaving out blocked addresses.
func ExportFollowing(book model.AddressBook, now time.Time) ([]byte, error) {
	entry := func(addr string) FeedEntry {
		return FeedEntry{Title: "@" + addr, URL: fmt.Sprintf(WeblogFeedURL, addr)}
	}
	groups := make(map[string][]FeedEntry)
	for _, addr := range book.Following {
		if !book.IsBlocked(addr) {
			groups["Following"] = append(groups["Following"], entry(addr))
		}
	}
	for _, addr := range book.Pinned {
		if !book.IsBlocked(addr) && !book.IsFollowing(addr) {
			groups["Pinned"] = append(groups["Pinned"], entry(addr))
		}
	}
	return Export("lolsync following", groups, now)
}
