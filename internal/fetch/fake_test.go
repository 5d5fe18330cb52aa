package fetch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/bryan-buckman/lolsync/internal/database"
	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/remote"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeAPI records calls per endpoint and address. Keys look like "info/alice".
type fakeAPI struct {
	mu        sync.Mutex
	calls     map[string]int
	tokens    []string
	fail      map[string]error
	directory []string
	// gate, when set, blocks AddressInfo until closed.
	gate    chan struct{}
	entered chan struct{}
	// panicInfo makes AddressInfo panic for that address.
	panicInfo string
}

var _ remote.API = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int), fail: make(map[string]error)}
}

func (f *fakeAPI) call(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	return f.fail[key]
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) failOn(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = fmt.Errorf("%s: %w", key, remote.ErrNotFound)
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
}

func meta(owner, id string) model.Meta {
	return model.Meta{Owner: owner, ID: id, Date: base}
}

func (f *fakeAPI) WithCredential(token string) remote.API {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return f
}

func (f *fakeAPI) AddressInfo(ctx context.Context, address string) (model.AddressInfo, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if address == f.panicInfo {
		panic("info exploded")
	}
	if err := f.call("info/" + address); err != nil {
		return model.AddressInfo{}, err
	}
	return model.AddressInfo{Meta: meta(address, ""), URL: "https://" + address + ".omg.lol"}, nil
}

func (f *fakeAPI) Directory(ctx context.Context) ([]string, error) {
	if err := f.call("directory"); err != nil {
		return nil, err
	}
	return f.directory, nil
}

func (f *fakeAPI) NowGarden(ctx context.Context) ([]model.GardenEntry, error) {
	if err := f.call("garden"); err != nil {
		return nil, err
	}
	return []model.GardenEntry{{Meta: meta("alice", ""), URL: "https://alice.omg.lol/now"}}, nil
}

func (f *fakeAPI) CompleteLog(ctx context.Context) ([]model.Status, error) {
	if err := f.call("statuslog"); err != nil {
		return nil, err
	}
	return []model.Status{{Meta: meta("alice", "1"), Content: "hi"}, {Meta: meta("bob", "2"), Content: "yo"}}, nil
}

func (f *fakeAPI) Profile(ctx context.Context, address string) (model.ProfilePage, error) {
	if err := f.call("profile/" + address); err != nil {
		return model.ProfilePage{}, err
	}
	return model.ProfilePage{Meta: meta(address, ""), Content: "profile"}, nil
}

func (f *fakeAPI) Weblog(ctx context.Context, address string) ([]model.WeblogEntry, error) {
	if err := f.call("weblog/" + address); err != nil {
		return nil, err
	}
	return []model.WeblogEntry{{Meta: meta(address, "post"), Title: "Post"}}, nil
}

func (f *fakeAPI) Bio(ctx context.Context, address string) (model.Bio, error) {
	if err := f.call("bio/" + address); err != nil {
		return model.Bio{}, err
	}
	return model.Bio{Meta: meta(address, ""), Content: "bio"}, nil
}

func (f *fakeAPI) Statuses(ctx context.Context, address string) ([]model.Status, error) {
	if err := f.call("statuses/" + address); err != nil {
		return nil, err
	}
	return []model.Status{{Meta: meta(address, "1"), Content: "status"}}, nil
}

func (f *fakeAPI) Status(ctx context.Context, address, id string) (model.Status, error) {
	if err := f.call("status/" + address + "/" + id); err != nil {
		return model.Status{}, err
	}
	return model.Status{Meta: meta(address, id), Content: "status " + id}, nil
}

func (f *fakeAPI) PURLs(ctx context.Context, address string) ([]model.PURL, error) {
	if err := f.call("purls/" + address); err != nil {
		return nil, err
	}
	return []model.PURL{{Meta: meta(address, "home"), URL: "https://example.com"}}, nil
}

func (f *fakeAPI) PURL(ctx context.Context, address, name string) (model.PURL, error) {
	if err := f.call("purl/" + address + "/" + name); err != nil {
		return model.PURL{}, err
	}
	return model.PURL{Meta: meta(address, name), URL: "https://example.com/" + name}, nil
}

func (f *fakeAPI) Pastes(ctx context.Context, address string) ([]model.Paste, error) {
	if err := f.call("pastes/" + address); err != nil {
		return nil, err
	}
	return []model.Paste{{Meta: meta(address, "notes"), Content: "notes"}}, nil
}

func (f *fakeAPI) Pics(ctx context.Context, address string) ([]model.Pic, error) {
	if err := f.call("pics/" + address); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeAPI) Followers(ctx context.Context, address string) (model.FollowList, error) {
	if err := f.call("followers/" + address); err != nil {
		return model.FollowList{}, err
	}
	return model.FollowList{Meta: meta(address, ""), Kind: model.Followers, Addresses: []string{"carol"}}, nil
}

func (f *fakeAPI) Following(ctx context.Context, address string) (model.FollowList, error) {
	if err := f.call("following/" + address); err != nil {
		return model.FollowList{}, err
	}
	return model.FollowList{Meta: meta(address, ""), Kind: model.Following, Addresses: []string{"bob"}}, nil
}

func (f *fakeAPI) Now(ctx context.Context, address string) (model.NowPage, error) {
	if err := f.call("now/" + address); err != nil {
		return model.NowPage{}, err
	}
	return model.NowPage{Meta: meta(address, ""), Content: "now"}, nil
}

func (f *fakeAPI) BlockedList(ctx context.Context, address string) ([]string, error) {
	if err := f.call("blocked/" + address); err != nil {
		return nil, err
	}
	return []string{"troll"}, nil
}

func setupTestEnv(t *testing.T) (Env, *fakeAPI, *clock) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	api := newFakeAPI()
	clk := newClock(base)
	return Env{
		API:   api,
		Store: database.NewMemory(),
		Prefs: model.DefaultPreferences(),
		Log:   logger,
		Now:   clk.Now,
	}, api, clk
}
