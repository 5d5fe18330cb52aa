// Package remote defines the remote collaborator the fetchers call and an HTTP
// implementation against the omg.lol API.
package remote

import (
	"context"
	"errors"

	"github.com/bryan-buckman/lolsync/internal/model"
)

var (
	// ErrNotFound is returned when the remote resource does not exist.
	ErrNotFound = errors.New("remote resource not found")
	// ErrUnauthorized is returned when the credential is missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")
)

// API is the remote surface consumed by the fetchers. Every call returns complete
// records keyed by owner and, for collection types, id.
type API interface {
	// WithCredential returns an API that authenticates with token. An empty token
	// signs out.
	WithCredential(token string) API

	AddressInfo(ctx context.Context, address string) (model.AddressInfo, error)
	Directory(ctx context.Context) ([]string, error)
	NowGarden(ctx context.Context) ([]model.GardenEntry, error)
	CompleteLog(ctx context.Context) ([]model.Status, error)

	Profile(ctx context.Context, address string) (model.ProfilePage, error)
	Weblog(ctx context.Context, address string) ([]model.WeblogEntry, error)
	Bio(ctx context.Context, address string) (model.Bio, error)
	Statuses(ctx context.Context, address string) ([]model.Status, error)
	Status(ctx context.Context, address, id string) (model.Status, error)
	PURLs(ctx context.Context, address string) ([]model.PURL, error)
	PURL(ctx context.Context, address, name string) (model.PURL, error)
	Pastes(ctx context.Context, address string) ([]model.Paste, error)
	Pics(ctx context.Context, address string) ([]model.Pic, error)
	Followers(ctx context.Context, address string) (model.FollowList, error)
	Following(ctx context.Context, address string) (model.FollowList, error)
	Now(ctx context.Context, address string) (model.NowPage, error)
	BlockedList(ctx context.Context, address string) ([]string, error)
}
