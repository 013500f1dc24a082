// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package subject

import (
	"sync"

	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
)

// registry is a copy-on-write array of currently-attached sinks;
// supports add/remove and an atomic swap to a terminal sentinel.
// Reads (fan-out) take a snapshot without holding the lock; only
// mutation holds it.
type registry[T any] struct {
	mu          sync.Mutex
	subs        []*subscription[T]
	terminal    rxcore.Notification[T]
	hasTerminal atomix.Bool
}

// add registers sub, replaying the stored terminal immediately if the
// registry already reached one. Returns false if the subject is already
// terminal (sub is still sent the terminal).
func (r *registry[T]) add(sub *subscription[T]) bool {
	if r.hasTerminal.LoadAcquire() {
		r.mu.Lock()
		term := r.terminal
		r.mu.Unlock()
		sub.offer(term)
		return false
	}
	r.mu.Lock()
	if r.hasTerminal.LoadAcquire() {
		term := r.terminal
		r.mu.Unlock()
		sub.offer(term)
		return false
	}
	next := make([]*subscription[T], len(r.subs)+1)
	copy(next, r.subs)
	next[len(r.subs)] = sub
	r.subs = next
	r.mu.Unlock()
	return true
}

// remove drops sub from the active set.
func (r *registry[T]) remove(sub *subscription[T]) {
	r.mu.Lock()
	next := make([]*subscription[T], 0, len(r.subs))
	for _, s := range r.subs {
		if s != sub {
			next = append(next, s)
		}
	}
	r.subs = next
	r.mu.Unlock()
}

// snapshot returns the current subscriber slice without copying (the
// slice itself is never mutated in place — add/remove always install a
// fresh backing array).
func (r *registry[T]) snapshot() []*subscription[T] {
	r.mu.Lock()
	s := r.subs
	r.mu.Unlock()
	return s
}

// emitNext fans n out to every currently attached subscriber.
func (r *registry[T]) emitNext(v T) {
	for _, sub := range r.snapshot() {
		sub.offer(rxcore.Next(v))
	}
}

// emitTerminal stores n as the permanent terminal (idempotent — only
// the first call wins) and fans it out to every currently attached
// subscriber.
func (r *registry[T]) emitTerminal(n rxcore.Notification[T]) {
	r.mu.Lock()
	if r.hasTerminal.LoadAcquire() {
		r.mu.Unlock()
		return
	}
	r.terminal = n
	r.hasTerminal.StoreRelease(true)
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	for _, sub := range subs {
		sub.offer(n)
	}
}

// isTerminated reports whether a terminal signal has been recorded.
func (r *registry[T]) isTerminated() bool { return r.hasTerminal.LoadAcquire() }

// terminalNotification returns the recorded terminal, if any.
func (r *registry[T]) terminalNotification() (rxcore.Notification[T], bool) {
	if !r.hasTerminal.LoadAcquire() {
		return rxcore.Notification[T]{}, false
	}
	r.mu.Lock()
	n := r.terminal
	r.mu.Unlock()
	return n, true
}

// subscriberCount reports the number of currently attached subscribers.
func (r *registry[T]) subscriberCount() int { return len(r.snapshot()) }
