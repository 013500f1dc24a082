// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stream provides the end-user-facing factories (Range,
// FromSlice, Just, Empty), the basic compositional operators (Map,
// Take, TakeLast, All, ToList, ObserveOn) and the blocking bridges
// (ToListBlocking) that glue code.hybscloud.com/rxcore's protocol and
// representative operator family into something a caller actually
// subscribes to and reads a result from.
package stream

import (
	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
)

// sliceEmitter is the Handle a slice-backed or generator-backed source
// hands its subscriber: a cursor plus outstanding-request counter,
// drained with the same queue-drain WIP every other stage in this
// module uses, even though there is no queue here — the WIP alone is
// enough to make recursive Request calls (groupBy's OnNext requesting
// one more synchronously) reenter safely instead of recursing the
// Go call stack.
type sliceEmitter[T any] struct {
	rxcore.WIP
	next      func(idx int) (T, bool)
	idx       int
	sink      rxcore.Sink[T]
	requested atomix.Int64
	cancelled atomix.Bool
	done      bool
}

func (e *sliceEmitter[T]) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&e.requested, n)
	if e.Enter() == 0 {
		e.DrainLoop(e.drainOnce)
	}
}

func (e *sliceEmitter[T]) Cancel() { e.cancelled.StoreRelease(true) }

func (e *sliceEmitter[T]) drainOnce() {
	for {
		if e.cancelled.LoadAcquire() || e.done {
			return
		}
		if e.requested.LoadAcquire() <= 0 {
			return
		}
		v, ok := e.next(e.idx)
		if !ok {
			e.done = true
			e.sink.OnComplete()
			return
		}
		e.idx++
		rxcore.BackpressureProduced(&e.requested, 1)
		e.sink.OnNext(v)
	}
}

type generatorSource[T any] struct {
	next func(idx int) (T, bool)
}

func (s *generatorSource[T]) Subscribe(sink rxcore.Sink[T]) {
	e := &sliceEmitter[T]{next: s.next, sink: sink}
	sink.OnSubscribe(e)
}

// FromSlice emits every element of items, in order, then completes.
func FromSlice[T any](items []T) rxcore.Source[T] {
	snapshot := append([]T{}, items...)
	return &generatorSource[T]{next: func(idx int) (T, bool) {
		if idx >= len(snapshot) {
			var zero T
			return zero, false
		}
		return snapshot[idx], true
	}}
}

// Just emits the given values, in order, then completes.
func Just[T any](items ...T) rxcore.Source[T] { return FromSlice(items) }

// Range emits count consecutive ints starting at start, then completes.
func Range(start, count int) rxcore.Source[int] {
	return &generatorSource[int]{next: func(idx int) (int, bool) {
		if idx >= count {
			return 0, false
		}
		return start + idx, true
	}}
}

// Empty completes immediately without emitting any value.
func Empty[T any]() rxcore.Source[T] {
	return rxcore.SourceFunc[T](rxcore.EmptySubscribe[T])
}
