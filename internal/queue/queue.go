// Package queue implements the per-key conversation worker: at most one
// turn runs at a time for a given key (e.g. a chat id), distinct keys run
// concurrently, and queued items can be cancelled before they start.
package queue

import (
	"context"
	"sync"
)

// Key identifies an independent FIFO worker. Callers typically use a
// chat/thread id pair; the queue itself treats it as an opaque comparable
// value, mirroring the teacher's per-chat-id session map.
type Key any

// Notifier receives the queue's "queued"/"cancelled" status callbacks for
// a surface (bot, CLI) to render.
type Notifier interface {
	// NotifyQueued posts a "queued" status for messageID. A non-nil error
	// means the surface failed to post it; in that case no cancel token is
	// registered, a later Cancel for that messageID does nothing, and the
	// item still runs when its turn comes.
	NotifyQueued(key Key, messageID string) error
	// NotifyCancelled fires when a still-queued item observes its token
	// cancelled before running; it should also remove the earlier queued
	// notification if NotifyQueued posted one.
	NotifyCancelled(key Key, messageID string)
}

type item struct {
	messageID string
	ctx       context.Context
	notified  bool
	run       func(ctx context.Context)
}

type workerState struct {
	ch      chan item
	pending int
}

// Queue is the process-wide registry of per-key workers and their cancel
// tokens.
type Queue struct {
	mu       sync.Mutex
	workers  map[Key]*workerState
	cancels  map[cancelKey]context.CancelFunc
	notifier Notifier
}

type cancelKey struct {
	key Key
	id  string
}

// New returns an empty Queue. notifier may be nil if the surface doesn't
// need queued/cancelled callbacks.
func New(notifier Notifier) *Queue {
	return &Queue{
		workers:  make(map[Key]*workerState),
		cancels:  make(map[cancelKey]context.CancelFunc),
		notifier: notifier,
	}
}

// Dispatch enqueues run for key under messageID, spawning a worker
// goroutine for key if none exists yet. If the key already has pending
// work, the surface is notified with a "queued" status before the cancel
// token becomes visible to Cancel.
func (q *Queue) Dispatch(key Key, messageID string, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())

	q.mu.Lock()
	w, exists := q.workers[key]
	if !exists {
		w = &workerState{ch: make(chan item, 64)}
		q.workers[key] = w
		go q.runWorker(key, w)
	}
	alreadyPending := w.pending > 0
	w.pending++
	q.mu.Unlock()

	notified := false
	registerToken := !alreadyPending
	if alreadyPending {
		if q.notifier == nil {
			registerToken = true
		} else if err := q.notifier.NotifyQueued(key, messageID); err == nil {
			notified = true
			registerToken = true
		}
		// NotifyQueued failed: the surface never showed a "queued" status,
		// so no cancel token is registered either — Cancel on this
		// messageID becomes a no-op and the item runs when its turn comes,
		// instead of leaving a token that could fire against a
		// notification the surface never posted.
	}

	if registerToken {
		q.mu.Lock()
		q.cancels[cancelKey{key, messageID}] = cancel
		q.mu.Unlock()
	}

	w.ch <- item{messageID: messageID, ctx: ctx, notified: notified, run: run}
}

// Cancel fires the cancel token registered for (key, messageID), if any.
func (q *Queue) Cancel(key Key, messageID string) {
	q.mu.Lock()
	cancel, ok := q.cancels[cancelKey{key, messageID}]
	if ok {
		delete(q.cancels, cancelKey{key, messageID})
	}
	q.mu.Unlock()
	if ok {
		cancel()
	}
}

// Pending returns the current pending count for key (0 if key has no
// worker). It never underflows — decrements saturate at zero.
func (q *Queue) Pending(key Key) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if w, ok := q.workers[key]; ok {
		return w.pending
	}
	return 0
}

func (q *Queue) runWorker(key Key, w *workerState) {
	for it := range w.ch {
		q.mu.Lock()
		delete(q.cancels, cancelKey{key, it.messageID})
		q.mu.Unlock()

		if it.ctx.Err() != nil {
			if it.notified && q.notifier != nil {
				q.notifier.NotifyCancelled(key, it.messageID)
			}
		} else {
			it.run(it.ctx)
		}

		q.mu.Lock()
		if w.pending > 0 {
			w.pending--
		}
		q.mu.Unlock()
	}
}
