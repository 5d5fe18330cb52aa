package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/lolsync/internal/database"
	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/remote"
)

// State is the observable lifecycle of a Request.
type State int

const (
	Idle State = iota
	Loading
	Fresh
	Stale
	Errored
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Errored:
		return "errored"
	}
	return "idle"
}

// MarshalText lets states appear by name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Routine fetches a resource and persists it before returning.
type Routine func(ctx context.Context) error

// Env bundles the collaborators shared by every fetcher.
type Env struct {
	API   remote.API
	Store database.Store
	Prefs model.AutomationPreferences
	Log   logrus.FieldLogger
	Now   func() time.Time
}

func (e Env) withDefaults() Env {
	if e.Log == nil {
		e.Log = logrus.StandardLogger()
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	return e
}

// Snapshot is a copy of a Request's fields.
type Snapshot struct {
	Loading bool       `json:"loading"`
	Loaded  *time.Time `json:"loaded,omitempty"`
	Err     error      `json:"-"`
}

// Request runs a Routine at most once at a time and records the outcome.
type Request struct {
	name    string
	routine Routine
	prefs   model.AutomationPreferences
	now     func() time.Time
	log     logrus.FieldLogger

	mu      sync.Mutex
	loading bool
	loaded  *time.Time
	err     error
}

// NewRequest creates an idle request.
func NewRequest(name string, env Env, routine Routine) *Request {
	env = env.withDefaults()
	return &Request{
		name:    name,
		routine: routine,
		prefs:   env.Prefs,
		now:     env.Now,
		log:     env.Log.WithField("request", name),
	}
}

// Name identifies the request in logs.
func (r *Request) Name() string { return r.name }

// AutoLoad reports whether pollers should drive this request.
func (r *Request) AutoLoad() bool { return r.prefs.AutoLoad }

// UpdateIfNeeded runs the routine when forced or when the last result is stale.
// A call made while another is in flight returns immediately. The returned error
// is the routine's outcome for this call, also kept for Snapshot.
func (r *Request) UpdateIfNeeded(ctx context.Context, force bool) (err error) {
	if !r.acquire(force) {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", r.name, p)
		}
		r.release(err)
	}()

	start := r.now()
	err = r.routine(ctx)
	fields := logrus.Fields{"duration": r.now().Sub(start), "forced": force}
	if err != nil {
		r.log.WithFields(fields).WithError(err).Warn("fetch failed")
	} else {
		r.log.WithFields(fields).Debug("fetch complete")
	}
	return err
}

func (r *Request) acquire(force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loading {
		return false
	}
	if !force && !NeedsRefresh(r.loaded, r.now(), r.prefs.ReloadDuration) {
		return false
	}
	r.loading = true
	return true
}

// release records a finished cycle. Failures count as loaded too.
func (r *Request) release(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.loaded = &now
	r.err = err
	r.loading = false
}

// State reports where the request is in its lifecycle.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.loading:
		return Loading
	case r.loaded == nil:
		return Idle
	case r.err != nil:
		return Errored
	case NeedsRefresh(r.loaded, r.now(), r.prefs.ReloadDuration):
		return Stale
	}
	return Fresh
}

// Snapshot returns a copy of the request fields.
func (r *Request) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{Loading: r.loading, Err: r.err}
	if r.loaded != nil {
		t := *r.loaded
		s.Loaded = &t
	}
	return s
}

// Reset forgets the last result so the next update fetches again.
func (r *Request) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = nil
	r.err = nil
}

// persist returns a routine that upserts the single record fetched by get.
func persist[T model.Record](store database.Store, get func(context.Context) (T, error)) Routine {
	return func(ctx context.Context) error {
		rec, err := get(ctx)
		if err != nil {
			return err
		}
		return store.Upsert(ctx, rec)
	}
}

// persistAll returns a routine that upserts every record fetched by list.
func persistAll[T model.Record](store database.Store, list func(context.Context) ([]T, error)) Routine {
	return func(ctx context.Context) error {
		recs, err := list(ctx)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		rows := make([]model.Record, len(recs))
		for i, rec := range recs {
			rows[i] = rec
		}
		return store.Upsert(ctx, rows...)
	}
}
