package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/lolsync/internal/model"
)

func TestNeedsRefresh(t *testing.T) {
	now := base
	ttl := 60 * time.Second
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	assert.False(t, NeedsRefresh(ago(30*time.Second), now, &ttl))
	assert.True(t, NeedsRefresh(ago(90*time.Second), now, &ttl))
	assert.True(t, NeedsRefresh(ago(60*time.Second), now, &ttl))
	assert.True(t, NeedsRefresh(nil, now, &ttl))
	assert.True(t, NeedsRefresh(nil, now, nil))
	assert.False(t, NeedsRefresh(ago(0), now, nil))
	assert.False(t, NeedsRefresh(ago(100*365*24*time.Hour), now, nil))
}

func TestRequest_DedupsConcurrentCalls(t *testing.T) {
	env, _, _ := setupTestEnv(t)
	var runs atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	req := NewRequest("slow", env, func(ctx context.Context) error {
		runs.Add(1)
		close(entered)
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, req.UpdateIfNeeded(context.Background(), true))
	}()
	<-entered
	assert.Equal(t, Loading, req.State())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, req.UpdateIfNeeded(context.Background(), true))
		}()
	}
	wg.Wait()
	close(release)
	<-done

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, Fresh, req.State())
	assert.False(t, req.Snapshot().Loading)
}

func TestRequest_ErrorStillCountsAsLoaded(t *testing.T) {
	env, _, clk := setupTestEnv(t)
	var runs int
	req := NewRequest("failing", env, func(ctx context.Context) error {
		runs++
		return assert.AnError
	})

	err := req.UpdateIfNeeded(context.Background(), true)
	assert.ErrorIs(t, err, assert.AnError)

	snap := req.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Loaded)
	assert.Equal(t, clk.Now(), *snap.Loaded)
	assert.ErrorIs(t, snap.Err, assert.AnError)
	assert.Equal(t, Errored, req.State())

	// No hot retry inside the TTL.
	assert.NoError(t, req.UpdateIfNeeded(context.Background(), false))
	assert.Equal(t, 1, runs)

	clk.Advance(time.Minute)
	_ = req.UpdateIfNeeded(context.Background(), false)
	assert.Equal(t, 2, runs)
}

func TestRequest_PanicBecomesError(t *testing.T) {
	env, _, _ := setupTestEnv(t)
	req := NewRequest("panics", env, func(ctx context.Context) error {
		panic("boom")
	})

	err := req.UpdateIfNeeded(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, Errored, req.State())
	assert.False(t, req.Snapshot().Loading)
}

func TestRequest_SkippedCycleDoesNotWedge(t *testing.T) {
	env, _, clk := setupTestEnv(t)
	var runs int
	req := NewRequest("ttl", env, func(ctx context.Context) error {
		runs++
		return nil
	})
	assert.Equal(t, Idle, req.State())

	require.NoError(t, req.UpdateIfNeeded(context.Background(), false))
	clk.Advance(30 * time.Second)
	require.NoError(t, req.UpdateIfNeeded(context.Background(), false))
	assert.Equal(t, 1, runs)
	assert.Equal(t, Fresh, req.State())
	assert.False(t, req.Snapshot().Loading)

	clk.Advance(31 * time.Second)
	assert.Equal(t, Stale, req.State())
	require.NoError(t, req.UpdateIfNeeded(context.Background(), false))
	assert.Equal(t, 2, runs)

	require.NoError(t, req.UpdateIfNeeded(context.Background(), true))
	assert.Equal(t, 3, runs)
}

func TestRequest_OnceNeverRefreshes(t *testing.T) {
	env, _, clk := setupTestEnv(t)
	env.Prefs = model.Once()
	var runs int
	req := NewRequest("once", env, func(ctx context.Context) error {
		runs++
		return nil
	})

	require.NoError(t, req.UpdateIfNeeded(context.Background(), false))
	clk.Advance(365 * 24 * time.Hour)
	require.NoError(t, req.UpdateIfNeeded(context.Background(), false))
	assert.Equal(t, 1, runs)
	assert.Equal(t, Fresh, req.State())
}

func TestRequest_ResetForgetsResult(t *testing.T) {
	env, _, _ := setupTestEnv(t)
	fail := true
	req := NewRequest("reset", env, func(ctx context.Context) error {
		if fail {
			return errors.New("first attempt")
		}
		return nil
	})

	_ = req.UpdateIfNeeded(context.Background(), false)
	assert.Equal(t, Errored, req.State())

	req.Reset()
	assert.Equal(t, Idle, req.State())
	assert.Nil(t, req.Snapshot().Loaded)

	fail = false
	require.NoError(t, req.UpdateIfNeeded(context.Background(), false))
	assert.Equal(t, Fresh, req.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "fresh", Fresh.String())
	assert.Equal(t, "stale", Stale.String())
	assert.Equal(t, "errored", Errored.String())
}
