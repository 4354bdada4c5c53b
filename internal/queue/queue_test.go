package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu        sync.Mutex
	queued    []string
	cancelled []string
	failQueue bool
}

func (n *recordingNotifier) NotifyQueued(key Key, messageID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failQueue {
		return errFakeNotify
	}
	n.queued = append(n.queued, messageID)
	return nil
}

func (n *recordingNotifier) NotifyCancelled(key Key, messageID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, messageID)
}

var errFakeNotify = &fakeNotifyErr{}

type fakeNotifyErr struct{}

func (*fakeNotifyErr) Error() string { return "notify failed" }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition never became true within %s", timeout)
}

func TestQueue_SameKeyRunsOneAtATime(t *testing.T) {
	q := New(nil)

	var running int32
	var maxConcurrent int32
	release := make(chan struct{})

	run := func(ctx context.Context) {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxConcurrent)
			if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
	}

	q.Dispatch("chat-1", "m1", run)
	q.Dispatch("chat-1", "m2", run)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&running) >= 1 })
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&running))

	close(release)
	waitFor(t, time.Second, func() bool { return q.Pending("chat-1") == 0 })
	require.LessOrEqual(t, atomic.LoadInt32(&maxConcurrent), int32(1))
}

func TestQueue_DistinctKeysRunConcurrently(t *testing.T) {
	q := New(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	started := make(chan struct{}, 2)

	run := func(ctx context.Context) {
		started <- struct{}{}
		wg.Done()
	}

	q.Dispatch("chat-a", "m1", run)
	q.Dispatch("chat-b", "m1", run)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected both distinct-key items to run without blocking each other")
	}
}

func TestQueue_PendingCounterNeverNegative(t *testing.T) {
	q := New(nil)
	ran := make(chan struct{}, 3)
	q.Dispatch("k", "m1", func(ctx context.Context) { ran <- struct{}{} })
	q.Dispatch("k", "m2", func(ctx context.Context) { ran <- struct{}{} })
	q.Dispatch("k", "m3", func(ctx context.Context) { ran <- struct{}{} })

	for i := 0; i < 3; i++ {
		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatal("item did not run in time")
		}
	}

	waitFor(t, time.Second, func() bool { return q.Pending("k") == 0 })
	require.GreaterOrEqual(t, q.Pending("k"), 0)
}

func TestQueue_CancelQueuedItemSkipsRunAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	q := New(notifier)

	block := make(chan struct{})
	var secondRan int32

	q.Dispatch("k", "m1", func(ctx context.Context) { <-block })
	q.Dispatch("k", "m2", func(ctx context.Context) { atomic.AddInt32(&secondRan, 1) })

	waitFor(t, time.Second, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.queued) == 1
	})

	q.Cancel("k", "m2")
	close(block)

	waitFor(t, time.Second, func() bool { return q.Pending("k") == 0 })
	require.EqualValues(t, 0, atomic.LoadInt32(&secondRan))

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Contains(t, notifier.cancelled, "m2")
}

func TestQueue_CancelRunningItemCancelsItsContext(t *testing.T) {
	q := New(nil)
	observed := make(chan error, 1)

	q.Dispatch("k", "m1", func(ctx context.Context) {
		<-ctx.Done()
		observed <- ctx.Err()
	})

	time.Sleep(20 * time.Millisecond)
	q.Cancel("k", "m1")

	select {
	case err := <-observed:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("running item's context was never cancelled")
	}
}

func TestQueue_FailedQueuedNotificationLeavesNoOrphanCancelToken(t *testing.T) {
	notifier := &recordingNotifier{failQueue: true}
	q := New(notifier)

	block := make(chan struct{})
	var secondRan int32

	q.Dispatch("k", "m1", func(ctx context.Context) { <-block })
	q.Dispatch("k", "m2", func(ctx context.Context) { atomic.AddInt32(&secondRan, 1) })

	// Cancel is a no-op since the queued notification failed and the item
	// still runs when its turn comes, instead of silently vanishing.
	q.Cancel("k", "m2")
	close(block)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&secondRan) == 1 })

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Empty(t, notifier.cancelled)
}
