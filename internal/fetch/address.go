package fetch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/remote"
)

// Child names of an AddressFetcher.
const (
	ChildProfile   = "profile"
	ChildWeblog    = "weblog"
	ChildBio       = "bio"
	ChildStatuses  = "statuses"
	ChildPURLs     = "purls"
	ChildPastes    = "pastes"
	ChildPics      = "pics"
	ChildFollowers = "followers"
	ChildFollowing = "following"
	ChildNow       = "now"
)

type child struct {
	name string
	req  *Request
}

// AddressFetcher gathers everything about one address. Its own cycle fetches the
// address info and, concurrently, updates every child under the child's own TTL.
// Child failures stay on the child.
type AddressFetcher struct {
	*Request

	address  string
	book     model.AddressBook
	env      Env
	api      remote.API
	children []child
	statuses *Registry[string, *Request]
	purls    *Registry[string, *Request]
}

// NewAddressFetcher builds the aggregate for address as seen by book.
func NewAddressFetcher(env Env, address string, book model.AddressBook) *AddressFetcher {
	env = env.withDefaults()
	api := env.API.WithCredential(book.Auth)
	a := &AddressFetcher{
		address: address,
		book:    book,
		env:     env,
		api:     api,
	}
	a.Request = NewRequest("address/"+address, env, a.fetch)

	add := func(name string, routine Routine) {
		a.children = append(a.children, child{name: name, req: NewRequest(a.childName(name), env, routine)})
	}
	store := env.Store
	if book.SignedIn() && book.Owns(address) {
		add(ChildProfile, persist(store, func(ctx context.Context) (model.ProfilePage, error) { return api.Profile(ctx, address) }))
	}
	add(ChildWeblog, persistAll(store, func(ctx context.Context) ([]model.WeblogEntry, error) { return api.Weblog(ctx, address) }))
	add(ChildBio, persist(store, func(ctx context.Context) (model.Bio, error) { return api.Bio(ctx, address) }))
	add(ChildStatuses, persistAll(store, func(ctx context.Context) ([]model.Status, error) { return api.Statuses(ctx, address) }))
	add(ChildPURLs, persistAll(store, func(ctx context.Context) ([]model.PURL, error) { return api.PURLs(ctx, address) }))
	add(ChildPastes, persistAll(store, func(ctx context.Context) ([]model.Paste, error) { return api.Pastes(ctx, address) }))
	add(ChildPics, persistAll(store, func(ctx context.Context) ([]model.Pic, error) { return api.Pics(ctx, address) }))
	add(ChildFollowers, persist(store, func(ctx context.Context) (model.FollowList, error) { return api.Followers(ctx, address) }))
	add(ChildFollowing, persist(store, func(ctx context.Context) (model.FollowList, error) { return api.Following(ctx, address) }))
	add(ChildNow, persist(store, func(ctx context.Context) (model.NowPage, error) { return api.Now(ctx, address) }))

	a.statuses = NewRegistry(func(id string) *Request {
		return NewRequest(a.childName("status/"+id), env, persist(store, func(ctx context.Context) (model.Status, error) {
			return api.Status(ctx, address, id)
		}))
	})
	a.purls = NewRegistry(func(name string) *Request {
		return NewRequest(a.childName("purl/"+name), env, persist(store, func(ctx context.Context) (model.PURL, error) {
			return api.PURL(ctx, address, name)
		}))
	})
	return a
}

func (a *AddressFetcher) childName(name string) string {
	return "address/" + a.address + "/" + name
}

func (a *AddressFetcher) fetch(ctx context.Context) error {
	var g errgroup.Group
	for _, c := range a.children {
		g.Go(func() error {
			// The error stays on the child request.
			_ = c.req.UpdateIfNeeded(ctx, false)
			return nil
		})
	}
	// A panic in the direct fetch becomes the parent's error once the children
	// have finished.
	err := a.fetchInfo(ctx)
	_ = g.Wait()
	return err
}

func (a *AddressFetcher) fetchInfo(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", a.Name(), p)
		}
	}()
	info, err := a.api.AddressInfo(ctx, a.address)
	if err != nil {
		return err
	}
	return a.env.Store.Upsert(ctx, info)
}

// Address returns the target address.
func (a *AddressFetcher) Address() string { return a.address }

// Book returns the AddressBook the fetcher was built with.
func (a *AddressFetcher) Book() model.AddressBook { return a.book }

// Child returns the named child request.
func (a *AddressFetcher) Child(name string) (*Request, bool) {
	for _, c := range a.children {
		if c.name == name {
			return c.req, true
		}
	}
	return nil, false
}

// ChildNames lists the children in fetch order.
func (a *AddressFetcher) ChildNames() []string {
	names := make([]string, len(a.children))
	for i, c := range a.children {
		names[i] = c.name
	}
	return names
}

// States reports the parent state under "address", each child by name, and every
// single status or PURL fetched so far as "status/<id>" or "purl/<name>".
func (a *AddressFetcher) States() map[string]State {
	out := map[string]State{"address": a.State()}
	for _, c := range a.children {
		out[c.name] = c.req.State()
	}
	itemStates(out, "status/", a.statuses)
	itemStates(out, "purl/", a.purls)
	return out
}

func itemStates(out map[string]State, prefix string, items *Registry[string, *Request]) {
	for _, key := range items.Keys(func(x, y string) bool { return x < y }) {
		if r, ok := items.Lookup(key); ok {
			out[prefix+key] = r.State()
		}
	}
}

// Status returns the memoized fetcher for a single status.
func (a *AddressFetcher) Status(id string) *Request { return a.statuses.Get(id) }

// PURL returns the memoized fetcher for a single PURL.
func (a *AddressFetcher) PURL(name string) *Request { return a.purls.Get(name) }

// AddressCache hands out one AddressFetcher per address. A fetcher is replaced
// when the AddressBook it was built with no longer equals the current one; the
// replaced fetcher is dropped without cancelling its work.
type AddressCache struct {
	env Env

	mu       sync.Mutex
	fetchers map[string]*AddressFetcher
}

// NewAddressCache creates an empty cache.
func NewAddressCache(env Env) *AddressCache {
	return &AddressCache{env: env, fetchers: make(map[string]*AddressFetcher)}
}

// Get returns the fetcher for address under book.
func (c *AddressCache) Get(address string, book model.AddressBook) *AddressFetcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.fetchers[address]; ok && f.book.Equal(book) {
		return f
	}
	f := NewAddressFetcher(c.env, address, book)
	c.fetchers[address] = f
	return f
}
