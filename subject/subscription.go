// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package subject implements the multi-subscriber hubs: publish,
// replay, async, and unicast. Each is built on the
// same per-subscriber queue-drain machinery in this file — a subject's
// OnNext/OnError/OnComplete calls are serial by contract (it is itself
// a [rxcore.Sink]) and fan out to a copy-on-write snapshot of attached
// subscriptions, each independently respecting its own downstream's
// outstanding request.
package subject

import (
	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/internal/queue"

	"code.hybscloud.com/atomix"
)

// subscription is one attached downstream: an unbounded per-subscriber
// notification queue (only ever offered to by the subject's single
// serial caller, only ever polled by whichever goroutine currently
// owns the WIP — never both at once, so the underlying SPSC queue's
// single-producer/single-consumer contract holds even though "the
// consumer" is not a fixed goroutine) plus the subject's own
// outstanding-request counter.
type subscription[T any] struct {
	rxcore.WIP
	downstream rxcore.Sink[T]
	queue      *queue.SPSC[rxcore.Notification[T]]
	requested  atomix.Int64
	cancelled  atomix.Bool
	done       atomix.Bool
}

func newSubscription[T any](downstream rxcore.Sink[T]) *subscription[T] {
	return &subscription[T]{downstream: downstream, queue: queue.NewSPSC[rxcore.Notification[T]](16)}
}

// Request implements rxcore.Handle.
func (s *subscription[T]) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&s.requested, n)
	s.drainFrom()
}

// Cancel implements rxcore.Handle.
func (s *subscription[T]) Cancel() {
	s.cancelled.StoreRelease(true)
}

func (s *subscription[T]) isCancelled() bool { return s.cancelled.LoadAcquire() }

// offer enqueues a notification for this subscriber and drains if this
// caller is the one to own the drain loop.
func (s *subscription[T]) offer(n rxcore.Notification[T]) {
	if s.isCancelled() || s.done.LoadAcquire() {
		return
	}
	s.queue.Offer(n)
	s.drainFrom()
}

func (s *subscription[T]) drainFrom() {
	if s.Enter() == 0 {
		s.DrainLoop(s.drainOnce)
	}
}

func (s *subscription[T]) drainOnce() {
	for {
		if s.isCancelled() {
			s.queue.Clear()
			return
		}
		if s.requested.LoadAcquire() <= 0 {
			if _, ok := s.queue.Peek(); !ok {
				return
			}
			return
		}
		n, ok := s.queue.Poll()
		if !ok {
			return
		}
		if n.Kind == rxcore.KindNext {
			rxcore.BackpressureProduced(&s.requested, 1)
			s.downstream.OnNext(n.Value)
			continue
		}
		s.done.StoreRelease(true)
		n.Deliver(s.downstream)
		s.queue.Clear()
		return
	}
}
