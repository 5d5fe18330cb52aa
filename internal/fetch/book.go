package fetch

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/bryan-buckman/lolsync/internal/database"
	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/remote"
)

// Account describes the acting identity as configured.
type Account struct {
	Token string
	// Me defaults to the first of Mine.
	Me   string
	Mine []string
	// Blocklist is hidden everywhere in addition to the user's own blocks.
	Blocklist []string
}

// LoadAddressBook derives the AddressBook from the cached follow lists of the
// owned addresses, the locally pinned and blocked addresses, and the remote block
// list of Me. The remote block list is skipped when signed out or unavailable.
func LoadAddressBook(ctx context.Context, env Env, acct Account) (model.AddressBook, error) {
	env = env.withDefaults()
	me := acct.Me
	if me == "" && len(acct.Mine) > 0 {
		me = acct.Mine[0]
	}
	owned := acct.Mine
	if me != "" && !slices.Contains(owned, me) {
		owned = append([]string{me}, acct.Mine...)
	}

	var following, followers []string
	for _, addr := range owned {
		list, err := cachedFollowList(ctx, env.Store, model.FollowingTable, addr)
		if err != nil {
			return model.AddressBook{}, err
		}
		following = append(following, list...)

		list, err = cachedFollowList(ctx, env.Store, model.FollowersTable, addr)
		if err != nil {
			return model.AddressBook{}, err
		}
		followers = append(followers, list...)
	}

	pinned, err := settingList(ctx, env.Store, model.SettingPinnedAddresses)
	if err != nil {
		return model.AddressBook{}, err
	}
	blocked, err := settingList(ctx, env.Store, model.SettingBlockedAddresses)
	if err != nil {
		return model.AddressBook{}, err
	}
	if acct.Token != "" && me != "" && env.API != nil {
		remoteBlocked, err := env.API.WithCredential(acct.Token).BlockedList(ctx, me)
		if err != nil {
			env.Log.WithError(err).Warn("remote block list unavailable")
		}
		blocked = append(blocked, remoteBlocked...)
	}

	return model.NewAddressBook(model.AddressBook{
		Auth:           acct.Token,
		Me:             me,
		Mine:           owned,
		Following:      following,
		Followers:      followers,
		Pinned:         pinned,
		Blocked:        blocked,
		AppliedBlocked: append(append([]string(nil), blocked...), acct.Blocklist...),
	}), nil
}

func cachedFollowList(ctx context.Context, store database.Store, table model.Table, owner string) ([]string, error) {
	list, err := database.Read[model.FollowList](ctx, store, table, model.Key{Owner: owner})
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return list.Addresses, err
}

func settingList(ctx context.Context, store database.Store, key string) ([]string, error) {
	val, err := store.GetSetting(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return remote.ParseAddressList(val), nil
}

// SetPinned stores the locally pinned addresses.
func SetPinned(ctx context.Context, store database.Store, addresses []string) error {
	pinned := model.NewAddressBook(model.AddressBook{Pinned: addresses}).Pinned
	return store.SetSetting(ctx, model.SettingPinnedAddresses, strings.Join(pinned, "\n"))
}

// SetBlocked stores the locally blocked addresses.
func SetBlocked(ctx context.Context, store database.Store, addresses []string) error {
	blocked := model.NewAddressBook(model.AddressBook{Blocked: addresses}).Blocked
	return store.SetSetting(ctx, model.SettingBlockedAddresses, strings.Join(blocked, "\n"))
}
