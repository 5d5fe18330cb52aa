package fetch

import "github.com/bryan-buckman/lolsync/internal/model"

// Names of the collection fetchers.
const (
	GardenSync    = "garden"
	StatusLogSync = "statuslog"
)

// NewGardenFetcher mirrors the now garden into the garden table.
func NewGardenFetcher(env Env) *Request {
	return NewRequest(GardenSync, env, persistAll[model.GardenEntry](env.Store, env.API.NowGarden))
}

// NewStatusLogFetcher mirrors the complete status log into the statuses table.
func NewStatusLogFetcher(env Env) *Request {
	return NewRequest(StatusLogSync, env, persistAll[model.Status](env.Store, env.API.CompleteLog))
}
