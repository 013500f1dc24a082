// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package operator

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/disposable"
	"code.hybscloud.com/rxcore/scheduler"
)

// Debounce emits a value only once no further value arrives within
// duration; each new value cancels the pending timer and schedules a
// fresh one carrying that value's index so a timer fired for a stale
// value is recognized and dropped.
func Debounce[T any](upstream rxcore.Source[T], duration time.Duration, sched scheduler.Scheduler) rxcore.Source[T] {
	return &debounceOperator[T]{upstream: upstream, duration: duration, sched: sched}
}

type debounceOperator[T any] struct {
	upstream rxcore.Source[T]
	duration time.Duration
	sched    scheduler.Scheduler

	mu        sync.Mutex
	worker    scheduler.Worker
	pendingIx uint64
	hasValue  bool
	value     T
	timer     disposable.Serial

	upstreamHandle rxcore.Handle
	downstream     rxcore.Sink[T]
	done           atomix.Bool
}

func (d *debounceOperator[T]) Subscribe(s rxcore.Sink[T]) {
	d.downstream = s
	d.worker = d.sched.CreateWorker()
	d.upstream.Subscribe(&debounceSink[T]{op: d})
}

func (d *debounceOperator[T]) onSubscribe(h rxcore.Handle) {
	d.upstreamHandle = h
	d.downstream.OnSubscribe(&debounceHandle[T]{op: d})
}

func (d *debounceOperator[T]) onNext(v T) {
	d.mu.Lock()
	d.pendingIx++
	ix := d.pendingIx
	d.hasValue = true
	d.value = v
	d.mu.Unlock()

	d.timer.Replace(d.worker.ScheduleDelayed(func() { d.fire(ix) }, d.duration))
}

func (d *debounceOperator[T]) fire(ix uint64) {
	d.mu.Lock()
	if ix != d.pendingIx || !d.hasValue {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.hasValue = false
	d.mu.Unlock()
	if !d.done.LoadAcquire() {
		d.downstream.OnNext(v)
	}
}

func (d *debounceOperator[T]) onError(err error) {
	if !d.done.CompareAndSwapAcqRel(false, true) {
		return
	}
	d.timer.Dispose()
	d.worker.Dispose()
	d.downstream.OnError(err)
}

func (d *debounceOperator[T]) onComplete() {
	if !d.done.CompareAndSwapAcqRel(false, true) {
		return
	}
	d.mu.Lock()
	v, has := d.value, d.hasValue
	d.hasValue = false
	d.mu.Unlock()
	d.timer.Dispose()
	if has {
		d.downstream.OnNext(v)
	}
	d.worker.Dispose()
	d.downstream.OnComplete()
}

type debounceSink[T any] struct{ op *debounceOperator[T] }

func (s *debounceSink[T]) OnSubscribe(h rxcore.Handle) { s.op.onSubscribe(h) }
func (s *debounceSink[T]) OnNext(v T)                  { s.op.onNext(v) }
func (s *debounceSink[T]) OnError(err error)           { s.op.onError(err) }
func (s *debounceSink[T]) OnComplete()                 { s.op.onComplete() }

type debounceHandle[T any] struct{ op *debounceOperator[T] }

func (h *debounceHandle[T]) Request(n int64) { h.op.upstreamHandle.Request(n) }
func (h *debounceHandle[T]) Cancel() {
	h.op.done.StoreRelease(true)
	h.op.timer.Dispose()
	h.op.worker.Dispose()
	h.op.upstreamHandle.Cancel()
}

// DebounceSelector emits the most recent upstream value only once the
// per-value selectorSource fires (or completes) before a newer value
// arrives, the selector-based variant of debounce.
func DebounceSelector[T any, S any](upstream rxcore.Source[T], selectorOf func(T) rxcore.Source[S]) rxcore.Source[T] {
	return &debounceSelectorOperator[T, S]{upstream: upstream, selectorOf: selectorOf}
}

type debounceSelectorOperator[T any, S any] struct {
	upstream   rxcore.Source[T]
	selectorOf func(T) rxcore.Source[S]

	mu        sync.Mutex
	pendingIx uint64
	hasValue  bool
	value     T
	innerHandle rxcore.Handle

	upstreamHandle rxcore.Handle
	downstream     rxcore.Sink[T]
	done           atomix.Bool
}

func (d *debounceSelectorOperator[T, S]) Subscribe(s rxcore.Sink[T]) {
	d.downstream = s
	d.upstream.Subscribe(&debounceSelectorUpstreamSink[T, S]{op: d})
}

func (d *debounceSelectorOperator[T, S]) onSubscribe(h rxcore.Handle) {
	d.upstreamHandle = h
	d.downstream.OnSubscribe(&debounceSelectorHandle[T, S]{op: d})
}

func (d *debounceSelectorOperator[T, S]) onNext(v T) {
	d.mu.Lock()
	if d.innerHandle != nil {
		d.innerHandle.Cancel()
	}
	d.pendingIx++
	ix := d.pendingIx
	d.hasValue = true
	d.value = v
	d.mu.Unlock()

	d.selectorOf(v).Subscribe(&debounceSelectorInnerSink[T, S]{op: d, ix: ix})
}

func (d *debounceSelectorOperator[T, S]) fire(ix uint64) {
	d.mu.Lock()
	if ix != d.pendingIx || !d.hasValue {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.hasValue = false
	d.mu.Unlock()
	if !d.done.LoadAcquire() {
		d.downstream.OnNext(v)
	}
}

func (d *debounceSelectorOperator[T, S]) onError(err error) {
	if !d.done.CompareAndSwapAcqRel(false, true) {
		return
	}
	d.downstream.OnError(err)
}

func (d *debounceSelectorOperator[T, S]) onComplete() {
	if !d.done.CompareAndSwapAcqRel(false, true) {
		return
	}
	d.mu.Lock()
	v, has := d.value, d.hasValue
	d.hasValue = false
	d.mu.Unlock()
	if has {
		d.downstream.OnNext(v)
	}
	d.downstream.OnComplete()
}

type debounceSelectorUpstreamSink[T any, S any] struct{ op *debounceSelectorOperator[T, S] }

func (s *debounceSelectorUpstreamSink[T, S]) OnSubscribe(h rxcore.Handle) { s.op.onSubscribe(h) }
func (s *debounceSelectorUpstreamSink[T, S]) OnNext(v T)                  { s.op.onNext(v) }
func (s *debounceSelectorUpstreamSink[T, S]) OnError(err error)           { s.op.onError(err) }
func (s *debounceSelectorUpstreamSink[T, S]) OnComplete()                 { s.op.onComplete() }

type debounceSelectorInnerSink[T any, S any] struct {
	op *debounceSelectorOperator[T, S]
	ix uint64
}

func (s *debounceSelectorInnerSink[T, S]) OnSubscribe(h rxcore.Handle) {
	s.op.mu.Lock()
	s.op.innerHandle = h
	s.op.mu.Unlock()
	h.Request(1)
}
func (s *debounceSelectorInnerSink[T, S]) OnNext(S)        { s.op.fire(s.ix) }
func (s *debounceSelectorInnerSink[T, S]) OnError(err error) { s.op.onError(err) }
func (s *debounceSelectorInnerSink[T, S]) OnComplete()       { s.op.fire(s.ix) }

type debounceSelectorHandle[T any, S any] struct{ op *debounceSelectorOperator[T, S] }

func (h *debounceSelectorHandle[T, S]) Request(n int64) { h.op.upstreamHandle.Request(n) }
func (h *debounceSelectorHandle[T, S]) Cancel() {
	h.op.done.StoreRelease(true)
	h.op.mu.Lock()
	inner := h.op.innerHandle
	h.op.mu.Unlock()
	if inner != nil {
		inner.Cancel()
	}
	h.op.upstreamHandle.Cancel()
}
