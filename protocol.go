// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rxcore is a reactive-streams runtime core: the protocol every
// stage obeys and the queue-drain idiom every buffering operator uses.
// The representative operator family (groupBy, window, combineLatest,
// withLatestFrom, debounce, publish/refCount, merge/concat) that
// exercises the full surface lives in the operator package.
//
// rxcore is layered the way code.hybscloud.com/lfq is layered: small,
// independently testable primitives at the bottom (atomix-backed
// counters, lfq queues), a single serialization idiom used everywhere
// buffering happens (queue-drain, see [WIP]), and operators built by
// composing those primitives rather than by inheritance.
//
// End-user factory helpers (Just, FromSlice, Range, Empty), blocking
// iterator bridges, and the concrete scheduler executors live in
// sibling packages, as do the operators; this package is the protocol
// and the shared primitives those operators build on.
package rxcore

// Handle is the backpressured upstream control a [Sink] receives via
// OnSubscribe. Request adds n to outstanding demand (saturating at
// [MaxRequest]); n <= 0 is a protocol violation reported to [Plugins]
// and does not alter demand. Cancel is idempotent and best-effort:
// it releases upstream resources but a Cancel racing an in-flight
// emission need not interrupt that emission.
type Handle interface {
	Request(n int64)
	Cancel()
}

// MaxRequest is the saturating upper bound for outstanding demand;
// requesting it signals "unbounded" and a source may stop accounting
// thereafter.
const MaxRequest = int64(1<<63 - 1)

// Sink is the backpressured downstream contract. A conforming source
// delivers at most one OnSubscribe, then any number of OnNext calls
// bounded by cumulative Request, then at most one of OnError or
// OnComplete. No method is called after a terminal call.
type Sink[T any] interface {
	OnSubscribe(h Handle)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// Source is a backpressured value stream: Subscribe must deliver
// exactly one OnSubscribe to s, synchronously or asynchronously,
// before any other signal.
type Source[T any] interface {
	Subscribe(s Sink[T])
}

// Disposable is a non-backpressured control handle: dispose-only,
// idempotent, safe from any goroutine including concurrently with an
// in-flight emission.
type Disposable interface {
	Dispose()
}

// SinkN is the non-backpressured (fire-hose) downstream contract.
// Sources emit at their own pace; SinkN must absorb or drop.
type SinkN[T any] interface {
	OnSubscribe(d Disposable)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// SourceN is a non-backpressured value stream.
type SourceN[T any] interface {
	Subscribe(s SinkN[T])
}

// Kind discriminates a materialized terminal/value signal.
type Kind uint8

const (
	KindNext Kind = iota
	KindError
	KindComplete
)

// Notification wraps one protocol signal as a value, the representation
// every internal queue (groupBy's per-group buffer, window's pending
// values, merge's shared value queue) actually stores so that values and
// terminals interleave through a single FIFO.
type Notification[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Next builds a KindNext notification.
func Next[T any](v T) Notification[T] { return Notification[T]{Kind: KindNext, Value: v} }

// Error builds a KindError notification.
func Error[T any](err error) Notification[T] { return Notification[T]{Kind: KindError, Err: err} }

// Complete builds a KindComplete notification.
func Complete[T any]() Notification[T] { return Notification[T]{Kind: KindComplete} }

// IsTerminal reports whether n carries an error or complete signal.
func (n Notification[T]) IsTerminal() bool { return n.Kind != KindNext }

// Deliver replays n onto sink s.
func (n Notification[T]) Deliver(s Sink[T]) {
	switch n.Kind {
	case KindNext:
		s.OnNext(n.Value)
	case KindError:
		s.OnError(n.Err)
	case KindComplete:
		s.OnComplete()
	}
}

// NopHandle is a Handle whose Request and Cancel are no-ops, used where
// a stage must hand a downstream something before real demand tracking
// exists (e.g. delivering an immediate terminal with no upstream).
var NopHandle Handle = nopHandle{}

type nopHandle struct{}

func (nopHandle) Request(int64) {}
func (nopHandle) Cancel()       {}

// EmptySubscribe is the one-line "deliver OnSubscribe(NopHandle) then a
// terminal" helper used by sources that have nothing to emit.
func EmptySubscribe[T any](s Sink[T]) {
	s.OnSubscribe(NopHandle)
	s.OnComplete()
}

// SourceFunc adapts a plain Subscribe function to a Source, the same
// way http.HandlerFunc adapts a function to an interface.
type SourceFunc[T any] func(s Sink[T])

// Subscribe calls f(s).
func (f SourceFunc[T]) Subscribe(s Sink[T]) { f(s) }
