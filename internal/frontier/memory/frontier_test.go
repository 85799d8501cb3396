package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

func req(key string) catalog.Request {
	return catalog.Request{URL: "https://shop.example.com/" + key, UniqueKey: key, Label: catalog.LabelProduct}
}

func TestFrontier_AddDeduplicatesByUniqueKey(t *testing.T) {
	t.Parallel()

	f := New()
	ctx := context.Background()

	added, err := f.Add(ctx, req("a"))
	require.NoError(t, err)
	require.True(t, added)

	added, err = f.Add(ctx, req("a"))
	require.NoError(t, err)
	require.False(t, added)

	require.Equal(t, 1, f.Snapshot().Pending)
}

func TestFrontier_AddRequiresUniqueKey(t *testing.T) {
	t.Parallel()

	f := New()
	_, err := f.Add(context.Background(), catalog.Request{URL: "https://shop.example.com/x"})
	require.Error(t, err)
}

func TestFrontier_ClaimMarkHandledDrains(t *testing.T) {
	t.Parallel()

	f := New()
	ctx := context.Background()

	_, err := f.Add(ctx, req("a"))
	require.NoError(t, err)

	claimed, ok, err := f.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", claimed.UniqueKey)

	require.NoError(t, f.MarkHandled(ctx, claimed))

	// Frontier is now drained: no pending, no in-flight.
	_, ok, err = f.ClaimNext(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFrontier_HandledRequestNeverReenters(t *testing.T) {
	t.Parallel()

	f := New()
	ctx := context.Background()

	_, err := f.Add(ctx, req("a"))
	require.NoError(t, err)
	claimed, _, err := f.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, f.MarkHandled(ctx, claimed))

	added, err := f.Add(ctx, req("a"))
	require.NoError(t, err)
	require.False(t, added)
}

func TestFrontier_RequeueBypassesDedup(t *testing.T) {
	t.Parallel()

	f := New()
	ctx := context.Background()

	_, err := f.Add(ctx, req("a"))
	require.NoError(t, err)
	claimed, _, err := f.ClaimNext(ctx)
	require.NoError(t, err)

	claimed.Attempt++
	require.NoError(t, f.Requeue(ctx, claimed))

	again, ok, err := f.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", again.UniqueKey)
	require.Equal(t, 1, again.Attempt)
}

func TestFrontier_IdleClaimWaitsForInflightProducer(t *testing.T) {
	t.Parallel()

	f := New()
	ctx := context.Background()

	_, err := f.Add(ctx, req("listing"))
	require.NoError(t, err)
	listing, _, err := f.ClaimNext(ctx)
	require.NoError(t, err)

	// A second claimer sees an empty pending list but must not give up:
	// the in-flight listing may still enqueue work.
	type claimResult struct {
		req catalog.Request
		ok  bool
	}
	results := make(chan claimResult, 1)
	go func() {
		r, ok, _ := f.ClaimNext(ctx)
		results <- claimResult{req: r, ok: ok}
	}()

	select {
	case <-results:
		t.Fatal("claim returned while a sibling request was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = f.Add(ctx, req("discovered"))
	require.NoError(t, err)
	require.NoError(t, f.MarkHandled(ctx, listing))

	select {
	case r := <-results:
		require.True(t, r.ok)
		require.Equal(t, "discovered", r.req.UniqueKey)
	case <-time.After(time.Second):
		t.Fatal("claim did not observe the newly enqueued request")
	}
}

func TestFrontier_AllWaitersReleasedOnDrain(t *testing.T) {
	t.Parallel()

	f := New()
	ctx := context.Background()

	_, err := f.Add(ctx, req("only"))
	require.NoError(t, err)
	claimed, _, err := f.ClaimNext(ctx)
	require.NoError(t, err)

	const waiters = 4
	var wg sync.WaitGroup
	drained := make(chan bool, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := f.ClaimNext(ctx)
			require.NoError(t, err)
			drained <- ok
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.MarkHandled(ctx, claimed))
	wg.Wait()

	close(drained)
	for ok := range drained {
		require.False(t, ok)
	}
}

func TestFrontier_ClaimHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	f := New()
	ctx := context.Background()

	_, err := f.Add(ctx, req("busy"))
	require.NoError(t, err)
	_, _, err = f.ClaimNext(ctx)
	require.NoError(t, err)

	cancelCtx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, _, err := f.ClaimNext(cancelCtx)
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("claim did not react to cancellation")
	}
}

func TestFrontier_EachRequestClaimedOnce(t *testing.T) {
	t.Parallel()

	f := New()
	ctx := context.Background()

	const total = 200
	for i := 0; i < total; i++ {
		_, err := f.Add(ctx, req(fmt.Sprintf("req-%d", i)))
		require.NoError(t, err)
	}

	var mu sync.Mutex
	claimedKeys := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				r, ok, err := f.ClaimNext(ctx)
				require.NoError(t, err)
				if !ok {
					return
				}
				mu.Lock()
				claimedKeys[r.UniqueKey]++
				mu.Unlock()
				require.NoError(t, f.MarkHandled(ctx, r))
			}
		}()
	}
	wg.Wait()

	require.Len(t, claimedKeys, total)
	for key, count := range claimedKeys {
		require.Equal(t, 1, count, "request %q claimed more than once", key)
	}
}
