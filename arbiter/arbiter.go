// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package arbiter provides the subscription arbiters: single-assignment,
// serial, and a full FIFO arbiter used by operators that switch upstream
// or downstream sources under contention (retry, delaySubscription,
// onErrorResumeNext).
package arbiter

import (
	"sync"

	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
)

// SingleAssignment accepts a [rxcore.Handle] exactly once. A second
// assignment cancels the new handle and reports a protocol error
// instead of replacing the first. Requesting before assignment buffers
// the demand and forwards it once a handle arrives.
type SingleAssignment struct {
	mu        sync.Mutex
	handle    rxcore.Handle
	requested int64
	cancelled bool
}

// Set installs h as the handle. Returns false (and cancels h) if a
// handle was already set or the arbiter was already cancelled.
func (s *SingleAssignment) Set(h rxcore.Handle) bool {
	s.mu.Lock()
	if s.handle != nil || s.cancelled {
		s.mu.Unlock()
		if s.handle != nil {
			rxcore.Plugins.OnError(rxcore.ErrSubscriptionAlreadySet)
		}
		h.Cancel()
		return false
	}
	s.handle = h
	pending := s.requested
	s.requested = 0
	s.mu.Unlock()
	if pending > 0 {
		h.Request(pending)
	}
	return true
}

// Request forwards n to the installed handle, or buffers it if no
// handle has been set yet.
func (s *SingleAssignment) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	s.mu.Lock()
	h := s.handle
	if h == nil {
		s.requested += n
		if s.requested < 0 {
			s.requested = rxcore.MaxRequest
		}
	}
	s.mu.Unlock()
	if h != nil {
		h.Request(n)
	}
}

// Cancel cancels the installed handle (if any) and marks the arbiter
// cancelled so any later Set cancels its argument immediately.
func (s *SingleAssignment) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// IsCancelled reports whether Cancel has been called.
func (s *SingleAssignment) IsCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Serial accepts a sequence of handles. Each new assignment cancels the
// previous handle and transfers any pending outstanding-request count
// to the new one under a lock-free CAS loop; the pending-request
// counter here is a plain atomix.Int64 CAS loop guarding the swap,
// while the handle pointer itself is protected by a short mutex
// section (copy-on-write under a lock, since reassignment is rare
// compared to the request/produced hot path).
type Serial struct {
	mu        sync.Mutex
	handle    rxcore.Handle
	requested atomix.Int64
	cancelled bool
}

// Set installs h as the current handle, cancelling the previous one and
// forwarding any accumulated pending request to h. If the arbiter is
// already cancelled, h is cancelled immediately instead.
func (s *Serial) Set(h rxcore.Handle) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		if h != nil {
			h.Cancel()
		}
		return
	}
	old := s.handle
	s.handle = h
	s.mu.Unlock()
	if old != nil {
		old.Cancel()
	}
	if h == nil {
		return
	}
	if pending := s.requested.LoadAcquire(); pending > 0 {
		h.Request(pending)
	}
}

// Request forwards n to the current handle (if any) and also
// accumulates it so a future Set transfers the demand to the new
// handle.
func (s *Serial) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&s.requested, n)
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h != nil {
		h.Request(n)
	}
}

// Cancel cancels the current handle and marks the arbiter cancelled.
func (s *Serial) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// IsCancelled reports whether Cancel has been called.
func (s *Serial) IsCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// entryKind discriminates a queued Full arbiter entry.
type entryKind uint8

const (
	entrySubscribe entryKind = iota
	entryRequest
	entryProduced
)

type entry struct {
	kind entryKind
	h    rxcore.Handle
	n    int64
}

// Full is the FIFO-drained arbiter used when a stage may switch both
// upstream and downstream under contention (retryWhen,
// onErrorResumeNext): every Set/Request/Produced call is appended to an
// internal queue and a single drainer, elected via WIP,
// applies them in order against the currently-installed handle.
type Full struct {
	rxcore.WIP
	mu        sync.Mutex
	queue     []entry
	handle    rxcore.Handle
	requested int64
	cancelled bool
}

// Set enqueues a new handle assignment, cancelling whatever handle is
// current once the queue drains to it.
func (f *Full) Set(h rxcore.Handle) {
	f.push(entry{kind: entrySubscribe, h: h})
}

// Request enqueues additional demand.
func (f *Full) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	f.push(entry{kind: entryRequest, n: n})
}

// Produced enqueues emitted-count bookkeeping (debits outstanding
// demand without going through the downstream Request path).
func (f *Full) Produced(n int64) {
	f.push(entry{kind: entryProduced, n: n})
}

func (f *Full) push(e entry) {
	f.mu.Lock()
	if f.cancelled {
		f.mu.Unlock()
		if e.kind == entrySubscribe && e.h != nil {
			e.h.Cancel()
		}
		return
	}
	f.queue = append(f.queue, e)
	f.mu.Unlock()
	if f.Enter() == 0 {
		f.DrainLoop(f.drainOnce)
	}
}

func (f *Full) drainOnce() {
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.mu.Unlock()
			return
		}
		e := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()

		switch e.kind {
		case entrySubscribe:
			f.mu.Lock()
			old := f.handle
			f.handle = e.h
			pending := f.requested
			f.mu.Unlock()
			if old != nil {
				old.Cancel()
			}
			if e.h != nil && pending > 0 {
				e.h.Request(pending)
			}
		case entryRequest:
			f.mu.Lock()
			f.requested += e.n
			if f.requested < 0 {
				f.requested = rxcore.MaxRequest
			}
			h := f.handle
			f.mu.Unlock()
			if h != nil {
				h.Request(e.n)
			}
		case entryProduced:
			f.mu.Lock()
			f.requested -= e.n
			if f.requested < 0 {
				f.requested = 0
			}
			f.mu.Unlock()
		}
	}
}

// Cancel cancels the current handle and marks the arbiter cancelled;
// further Set calls cancel their argument immediately.
func (f *Full) Cancel() {
	f.mu.Lock()
	if f.cancelled {
		f.mu.Unlock()
		return
	}
	f.cancelled = true
	h := f.handle
	f.handle = nil
	f.queue = nil
	f.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// IsCancelled reports whether Cancel has been called.
func (f *Full) IsCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}
