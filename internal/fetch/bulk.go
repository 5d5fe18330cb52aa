package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/lolsync/internal/database"
	"github.com/bryan-buckman/lolsync/internal/model"
)

// Concurrency settings for member detail fetches.
const (
	// MaxConcurrencyPostgres is the number of parallel member fetches for PostgreSQL
	MaxConcurrencyPostgres = 10
	// MaxConcurrencySQLite is the number of parallel member fetches for SQLite (limited due to locking)
	MaxConcurrencySQLite = 1
)

// DirectorySync is the name of the bulk sync mirroring the address directory.
const DirectorySync = "directory"

// SyncResult summarizes one bulk sync cycle.
type SyncResult struct {
	RunID        string `json:"run_id"`
	Skipped      bool   `json:"skipped"`
	Members      int    `json:"members"`
	Placeholders int    `json:"placeholders"`
}

// BulkSync mirrors a whole remote collection into the store. A run is skipped
// when the watermark already falls on today's calendar day. A member whose
// detail cannot be fetched is stored as a placeholder dated model.DistantPast.
type BulkSync struct {
	*Request

	name        string
	env         Env
	list        func(ctx context.Context) ([]string, error)
	detail      func(ctx context.Context, member string) (model.Record, error)
	placeholder func(member string) model.Record
	concurrency int

	mu   sync.Mutex
	last SyncResult
}

// NewBulkSync creates a named bulk sync. The name selects the watermark key.
func NewBulkSync(
	env Env,
	name string,
	list func(ctx context.Context) ([]string, error),
	detail func(ctx context.Context, member string) (model.Record, error),
	placeholder func(member string) model.Record,
) *BulkSync {
	env = env.withDefaults()
	concurrency := MaxConcurrencySQLite
	if env.Store.SupportsHighConcurrency() {
		concurrency = MaxConcurrencyPostgres
	}
	b := &BulkSync{
		name:        name,
		env:         env,
		list:        list,
		detail:      detail,
		placeholder: placeholder,
		concurrency: concurrency,
	}
	b.Request = NewRequest("sync/"+name, env, func(ctx context.Context) error {
		_, err := b.Run(ctx)
		return err
	})
	return b
}

// NewDirectorySync mirrors the address directory, storing each member's info.
func NewDirectorySync(env Env) *BulkSync {
	return NewBulkSync(env, DirectorySync,
		env.API.Directory,
		func(ctx context.Context, address string) (model.Record, error) {
			return env.API.AddressInfo(ctx, address)
		},
		func(address string) model.Record {
			return model.AddressInfo{Meta: model.Meta{Owner: address, Date: model.DistantPast}}
		},
	)
}

// LastResult returns the outcome of the most recent cycle.
func (b *BulkSync) LastResult() SyncResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Watermark returns the time of the last completed pass.
func (b *BulkSync) Watermark(ctx context.Context) (time.Time, bool, error) {
	val, err := b.env.Store.GetSetting(ctx, model.WatermarkSetting(b.name))
	if errors.Is(err, database.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		b.env.Log.WithField("sync", b.name).Warnf("ignoring malformed watermark %q", val)
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// Run performs one pass outside the Request. Callers normally go through
// UpdateIfNeeded instead.
func (b *BulkSync) Run(ctx context.Context) (SyncResult, error) {
	res := SyncResult{RunID: uuid.NewString()}
	log := b.env.Log.WithFields(logrus.Fields{"sync": b.name, "run": res.RunID})
	defer func() {
		b.mu.Lock()
		b.last = res
		b.mu.Unlock()
	}()

	now := b.env.Now()
	if last, ok, err := b.Watermark(ctx); err != nil {
		return res, fmt.Errorf("read %s watermark: %w", b.name, err)
	} else if ok && sameDay(last, now) {
		log.Debug("already synced today")
		res.Skipped = true
		return res, nil
	}

	members, err := b.list(ctx)
	if err != nil {
		return res, fmt.Errorf("list %s: %w", b.name, err)
	}
	res.Members = len(members)
	log.Infof("Syncing %d members with concurrency=%d", len(members), b.concurrency)

	var placeholders int
	if b.concurrency <= 1 {
		placeholders, err = b.syncSequential(ctx, log, members)
	} else {
		placeholders, err = b.syncParallel(ctx, log, members)
	}
	res.Placeholders = placeholders
	if err != nil {
		return res, err
	}

	if err := b.env.Store.SetSetting(ctx, model.WatermarkSetting(b.name), now.Format(time.RFC3339)); err != nil {
		return res, fmt.Errorf("advance %s watermark: %w", b.name, err)
	}
	log.WithField("placeholders", placeholders).Info("sync complete")
	return res, nil
}

// syncMember stores the member's detail, or its placeholder when the detail
// fetch fails. Only store errors are returned.
func (b *BulkSync) syncMember(ctx context.Context, log logrus.FieldLogger, member string) (bool, error) {
	rec, err := b.detail(ctx, member)
	placeholder := err != nil
	if placeholder {
		log.WithField("member", member).WithError(err).Debug("storing placeholder")
		rec = b.placeholder(member)
	}
	if err := b.env.Store.Upsert(ctx, rec); err != nil {
		return placeholder, fmt.Errorf("store %s: %w", member, err)
	}
	return placeholder, nil
}

// syncSequential syncs members one at a time (for SQLite).
func (b *BulkSync) syncSequential(ctx context.Context, log logrus.FieldLogger, members []string) (int, error) {
	placeholders := 0
	var errs []error
	for i, member := range members {
		select {
		case <-ctx.Done():
			log.Warnf("Sync cancelled after %d/%d members", i, len(members))
			return placeholders, ctx.Err()
		default:
		}

		ph, err := b.syncMember(ctx, log, member)
		if ph {
			placeholders++
		}
		if err != nil {
			errs = append(errs, err)
		}

		if (i+1)%500 == 0 {
			log.Infof("Progress: %d/%d members synced", i+1, len(members))
		}
	}
	return placeholders, errors.Join(errs...)
}

type memberResult struct {
	placeholder bool
	err         error
}

// syncParallel syncs members using a worker pool (for PostgreSQL).
func (b *BulkSync) syncParallel(ctx context.Context, log logrus.FieldLogger, members []string) (int, error) {
	var wg sync.WaitGroup
	memberChan := make(chan string, len(members))
	resultChan := make(chan memberResult, len(members))

	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for member := range memberChan {
				if ctx.Err() != nil {
					return
				}
				ph, err := b.syncMember(ctx, log, member)
				resultChan <- memberResult{placeholder: ph, err: err}
			}
		}()
	}

	for _, member := range members {
		memberChan <- member
	}
	close(memberChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	placeholders, completed := 0, 0
	var errs []error
	for result := range resultChan {
		completed++
		if result.placeholder {
			placeholders++
		}
		if result.err != nil {
			errs = append(errs, result.err)
		}
		if completed%500 == 0 {
			log.Infof("Progress: %d/%d members synced", completed, len(members))
		}
	}
	if err := ctx.Err(); err != nil {
		return placeholders, err
	}
	return placeholders, errors.Join(errs...)
}

// sameDay compares calendar days in now's location.
func sameDay(a, now time.Time) bool {
	y1, m1, d1 := a.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
