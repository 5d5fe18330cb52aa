package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryan-buckman/lolsync/internal/model"
)

// Pastes holding the social graph of an address.
const (
	FollowingPaste = "app.lol.following"
	BlockedPaste   = "app.lol.blocked"
)

func (c *Client) AddressInfo(ctx context.Context, address string) (model.AddressInfo, error) {
	var resp struct {
		Address      string    `json:"address"`
		Message      string    `json:"message"`
		Registration timestamp `json:"registration"`
	}
	if err := c.get(ctx, addressPath(address, "info"), &resp); err != nil {
		return model.AddressInfo{}, err
	}
	return model.AddressInfo{
		Meta:    model.Meta{Owner: address, Date: resp.Registration.UnixEpochTime.Time()},
		URL:     fmt.Sprintf("https://%s.omg.lol", address),
		Message: resp.Message,
	}, nil
}

func (c *Client) Directory(ctx context.Context) ([]string, error) {
	var resp struct {
		Directory []string `json:"directory"`
	}
	if err := c.get(ctx, "/directory", &resp); err != nil {
		return nil, err
	}
	return resp.Directory, nil
}

func (c *Client) NowGarden(ctx context.Context) ([]model.GardenEntry, error) {
	var resp struct {
		Garden []struct {
			Address string    `json:"address"`
			URL     string    `json:"url"`
			Updated timestamp `json:"updated"`
		} `json:"garden"`
	}
	if err := c.get(ctx, "/now/garden", &resp); err != nil {
		return nil, err
	}
	out := make([]model.GardenEntry, 0, len(resp.Garden))
	for _, g := range resp.Garden {
		out = append(out, model.GardenEntry{
			Meta: model.Meta{Owner: g.Address, Date: g.Updated.UnixEpochTime.Time()},
			URL:  g.URL,
		})
	}
	return out, nil
}

type statusJSON struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Created     epoch  `json:"created"`
	Emoji       string `json:"emoji"`
	Content     string `json:"content"`
	ExternalURL string `json:"external_url"`
}

func (s statusJSON) record() model.Status {
	return model.Status{
		Meta:        model.Meta{Owner: s.Address, ID: s.ID, Date: s.Created.Time()},
		Emoji:       s.Emoji,
		Content:     s.Content,
		ExternalURL: s.ExternalURL,
	}
}

func statusRecords(in []statusJSON) []model.Status {
	out := make([]model.Status, 0, len(in))
	for _, s := range in {
		out = append(out, s.record())
	}
	return out
}

func (c *Client) CompleteLog(ctx context.Context) ([]model.Status, error) {
	var resp struct {
		Statuses []statusJSON `json:"statuses"`
	}
	if err := c.get(ctx, "/statuslog", &resp); err != nil {
		return nil, err
	}
	return statusRecords(resp.Statuses), nil
}

func (c *Client) Profile(ctx context.Context, address string) (model.ProfilePage, error) {
	if c.token == "" {
		return model.ProfilePage{}, fmt.Errorf("profile for %s: %w", address, ErrUnauthorized)
	}
	var resp struct {
		Content  string `json:"content"`
		Modified string `json:"modified"`
	}
	if err := c.get(ctx, addressPath(address, "web"), &resp); err != nil {
		return model.ProfilePage{}, err
	}
	modified, _ := time.Parse(time.DateTime, resp.Modified)
	return model.ProfilePage{
		Meta:    model.Meta{Owner: address, Date: modified},
		Content: resp.Content,
	}, nil
}

// Weblog reads the address's weblog feed.
func (c *Client) Weblog(ctx context.Context, address string) ([]model.WeblogEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit cancelled for %s weblog: %w", address, err)
	}
	feedURL := fmt.Sprintf(c.weblogURL, address)
	parsed, err := c.feeds.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	now := c.now()
	out := make([]model.WeblogEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}
		pubDate := now
		if item.PublishedParsed != nil {
			pubDate = *item.PublishedParsed
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		out = append(out, model.WeblogEntry{
			Meta:    model.Meta{Owner: address, ID: guid, Date: pubDate},
			Title:   item.Title,
			Summary: summary,
			Link:    item.Link,
		})
	}
	return out, nil
}

func (c *Client) Bio(ctx context.Context, address string) (model.Bio, error) {
	var resp struct {
		Bio string `json:"bio"`
	}
	if err := c.get(ctx, addressPath(address, "statuses", "bio"), &resp); err != nil {
		return model.Bio{}, err
	}
	return model.Bio{Meta: model.Meta{Owner: address, Date: c.now()}, Content: resp.Bio}, nil
}

func (c *Client) Statuses(ctx context.Context, address string) ([]model.Status, error) {
	var resp struct {
		Statuses []statusJSON `json:"statuses"`
	}
	if err := c.get(ctx, addressPath(address, "statuses"), &resp); err != nil {
		return nil, err
	}
	return statusRecords(resp.Statuses), nil
}

func (c *Client) Status(ctx context.Context, address, id string) (model.Status, error) {
	var resp struct {
		Status statusJSON `json:"status"`
	}
	if err := c.get(ctx, addressPath(address, "statuses", id), &resp); err != nil {
		return model.Status{}, err
	}
	rec := resp.Status.record()
	if rec.Owner == "" {
		rec.Owner = address
	}
	return rec, nil
}

type purlJSON struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Counter int    `json:"counter"`
	Listed  any    `json:"listed"`
}

func (p purlJSON) record(address string, now time.Time) model.PURL {
	return model.PURL{
		Meta:    model.Meta{Owner: address, ID: p.Name, Date: now},
		URL:     p.URL,
		Counter: p.Counter,
		Listed:  truthy(p.Listed),
	}
}

// truthy accepts the API's mix of booleans, numbers and strings for flags.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t == "1" || strings.EqualFold(t, "true")
	}
	return false
}

func (c *Client) PURLs(ctx context.Context, address string) ([]model.PURL, error) {
	var resp struct {
		PURLs []purlJSON `json:"purls"`
	}
	if err := c.get(ctx, addressPath(address, "purls"), &resp); err != nil {
		return nil, err
	}
	now := c.now()
	out := make([]model.PURL, 0, len(resp.PURLs))
	for _, p := range resp.PURLs {
		out = append(out, p.record(address, now))
	}
	return out, nil
}

func (c *Client) PURL(ctx context.Context, address, name string) (model.PURL, error) {
	var resp struct {
		PURL purlJSON `json:"purl"`
	}
	if err := c.get(ctx, addressPath(address, "purl", name), &resp); err != nil {
		return model.PURL{}, err
	}
	return resp.PURL.record(address, c.now()), nil
}

type pasteJSON struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	ModifiedOn epoch  `json:"modified_on"`
	Listed     any    `json:"listed"`
}

func (c *Client) Pastes(ctx context.Context, address string) ([]model.Paste, error) {
	var resp struct {
		Pastebin []pasteJSON `json:"pastebin"`
	}
	if err := c.get(ctx, addressPath(address, "pastebin"), &resp); err != nil {
		return nil, err
	}
	out := make([]model.Paste, 0, len(resp.Pastebin))
	for _, p := range resp.Pastebin {
		out = append(out, model.Paste{
			Meta:    model.Meta{Owner: address, ID: p.Title, Date: p.ModifiedOn.Time()},
			Content: p.Content,
			Listed:  truthy(p.Listed),
		})
	}
	return out, nil
}

func (c *Client) paste(ctx context.Context, address, title string) (pasteJSON, error) {
	var resp struct {
		Paste pasteJSON `json:"paste"`
	}
	err := c.get(ctx, addressPath(address, "pastebin", title), &resp)
	return resp.Paste, err
}

// addressList reads a paste holding one address per line. A missing paste is an
// empty list.
func (c *Client) addressList(ctx context.Context, address, title string) ([]string, time.Time, error) {
	p, err := c.paste(ctx, address, title)
	if errors.Is(err, ErrNotFound) {
		return nil, c.now(), nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return ParseAddressList(p.Content), p.ModifiedOn.Time(), nil
}

// ParseAddressList splits text into addresses, ignoring blanks, comments and a
// leading "@".
func ParseAddressList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.TrimPrefix(line, "@"))
	}
	return out
}

func (c *Client) Pics(ctx context.Context, address string) ([]model.Pic, error) {
	var resp struct {
		Pics []struct {
			ID          string `json:"id"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Created     epoch  `json:"created"`
		} `json:"pics"`
	}
	if err := c.get(ctx, addressPath(address, "pics"), &resp); err != nil {
		return nil, err
	}
	out := make([]model.Pic, 0, len(resp.Pics))
	for _, p := range resp.Pics {
		out = append(out, model.Pic{
			Meta:        model.Meta{Owner: address, ID: p.ID, Date: p.Created.Time()},
			URL:         p.URL,
			Description: p.Description,
		})
	}
	return out, nil
}

func (c *Client) Followers(ctx context.Context, address string) (model.FollowList, error) {
	var resp struct {
		Followers []string `json:"followers"`
	}
	err := c.get(ctx, addressPath(address, "followers"), &resp)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.FollowList{}, err
	}
	return model.FollowList{
		Meta:      model.Meta{Owner: address, Date: c.now()},
		Kind:      model.Followers,
		Addresses: resp.Followers,
	}, nil
}

func (c *Client) Following(ctx context.Context, address string) (model.FollowList, error) {
	list, modified, err := c.addressList(ctx, address, FollowingPaste)
	if err != nil {
		return model.FollowList{}, err
	}
	return model.FollowList{
		Meta:      model.Meta{Owner: address, Date: modified},
		Kind:      model.Following,
		Addresses: list,
	}, nil
}

func (c *Client) BlockedList(ctx context.Context, address string) ([]string, error) {
	list, _, err := c.addressList(ctx, address, BlockedPaste)
	return list, err
}

func (c *Client) Now(ctx context.Context, address string) (model.NowPage, error) {
	var resp struct {
		Now struct {
			Content string `json:"content"`
			Updated epoch  `json:"updated"`
			Listed  any    `json:"listed"`
		} `json:"now"`
	}
	if err := c.get(ctx, addressPath(address, "now"), &resp); err != nil {
		return model.NowPage{}, err
	}
	return model.NowPage{
		Meta:    model.Meta{Owner: address, Date: resp.Now.Updated.Time()},
		Content: resp.Now.Content,
		Listed:  truthy(resp.Now.Listed),
	}, nil
}
