// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/internal/queue"
	"code.hybscloud.com/rxcore/scheduler"
)

// Map projects every value of src through f. Stateless: Request and
// Cancel pass straight through to upstream.
func Map[T any, R any](src rxcore.Source[T], f func(T) R) rxcore.Source[R] {
	return rxcore.SourceFunc[R](func(s rxcore.Sink[R]) {
		src.Subscribe(&mapSink[T, R]{f: f, downstream: s})
	})
}

type mapSink[T any, R any] struct {
	f          func(T) R
	downstream rxcore.Sink[R]
}

func (s *mapSink[T, R]) OnSubscribe(h rxcore.Handle) { s.downstream.OnSubscribe(h) }
func (s *mapSink[T, R]) OnNext(v T)                  { s.downstream.OnNext(s.f(v)) }
func (s *mapSink[T, R]) OnError(err error)           { s.downstream.OnError(err) }
func (s *mapSink[T, R]) OnComplete()                 { s.downstream.OnComplete() }

// Take emits at most n values from src, then cancels upstream and
// completes.
func Take[T any](src rxcore.Source[T], n int64) rxcore.Source[T] {
	return rxcore.SourceFunc[T](func(s rxcore.Sink[T]) {
		src.Subscribe(&takeSink[T]{downstream: s, remaining: n})
	})
}

type takeSink[T any] struct {
	downstream rxcore.Sink[T]
	upstream   rxcore.Handle
	remaining  int64
	done       atomix.Bool
}

func (s *takeSink[T]) OnSubscribe(h rxcore.Handle) {
	s.upstream = h
	if s.remaining <= 0 {
		s.done.StoreRelease(true)
		h.Cancel()
		s.downstream.OnSubscribe(rxcore.NopHandle)
		s.downstream.OnComplete()
		return
	}
	s.downstream.OnSubscribe(&takeHandle[T]{s})
}

func (s *takeSink[T]) OnNext(v T) {
	if s.done.LoadAcquire() {
		return
	}
	s.remaining--
	s.downstream.OnNext(v)
	if s.remaining <= 0 {
		if s.done.CompareAndSwapAcqRel(false, true) {
			s.upstream.Cancel()
			s.downstream.OnComplete()
		}
	}
}

func (s *takeSink[T]) OnError(err error) {
	if s.done.CompareAndSwapAcqRel(false, true) {
		s.downstream.OnError(err)
	}
}

func (s *takeSink[T]) OnComplete() {
	if s.done.CompareAndSwapAcqRel(false, true) {
		s.downstream.OnComplete()
	}
}

type takeHandle[T any] struct{ s *takeSink[T] }

func (h *takeHandle[T]) Request(n int64) { h.s.upstream.Request(n) }
func (h *takeHandle[T]) Cancel() {
	if h.s.done.CompareAndSwapAcqRel(false, true) {
		h.s.upstream.Cancel()
	}
}

// TakeLast buffers the final n values seen and emits them, in order,
// once upstream completes; an upstream error drops the buffer and
// propagates immediately.
func TakeLast[T any](src rxcore.Source[T], n int) rxcore.Source[T] {
	return rxcore.SourceFunc[T](func(s rxcore.Sink[T]) {
		src.Subscribe(&takeLastSink[T]{downstream: s, n: n})
	})
}

type takeLastSink[T any] struct {
	downstream rxcore.Sink[T]
	n          int
	buf        []T
}

func (s *takeLastSink[T]) OnSubscribe(h rxcore.Handle) {
	h.Request(rxcore.MaxRequest)
	s.downstream.OnSubscribe(rxcore.NopHandle)
}

func (s *takeLastSink[T]) OnNext(v T) {
	if s.n <= 0 {
		return
	}
	s.buf = append(s.buf, v)
	if len(s.buf) > s.n {
		s.buf = s.buf[len(s.buf)-s.n:]
	}
}

func (s *takeLastSink[T]) OnError(err error) { s.downstream.OnError(err) }

func (s *takeLastSink[T]) OnComplete() {
	for _, v := range s.buf {
		s.downstream.OnNext(v)
	}
	s.downstream.OnComplete()
}

// All emits true then completes if pred holds for every value of src
// (an empty source also yields true); it emits false and cancels
// upstream as soon as pred fails.
func All[T any](src rxcore.Source[T], pred func(T) bool) rxcore.Source[bool] {
	return rxcore.SourceFunc[bool](func(s rxcore.Sink[bool]) {
		src.Subscribe(&allSink[T]{downstream: s, pred: pred})
	})
}

type allSink[T any] struct {
	downstream rxcore.Sink[bool]
	pred       func(T) bool
	upstream   rxcore.Handle
	done       atomix.Bool
}

func (s *allSink[T]) OnSubscribe(h rxcore.Handle) {
	s.upstream = h
	s.downstream.OnSubscribe(rxcore.NopHandle)
	h.Request(rxcore.MaxRequest)
}

func (s *allSink[T]) OnNext(v T) {
	if s.done.LoadAcquire() {
		return
	}
	if !s.pred(v) {
		if s.done.CompareAndSwapAcqRel(false, true) {
			s.upstream.Cancel()
			s.downstream.OnNext(false)
			s.downstream.OnComplete()
		}
	}
}

func (s *allSink[T]) OnError(err error) {
	if s.done.CompareAndSwapAcqRel(false, true) {
		s.downstream.OnError(err)
	}
}

func (s *allSink[T]) OnComplete() {
	if s.done.CompareAndSwapAcqRel(false, true) {
		s.downstream.OnNext(true)
		s.downstream.OnComplete()
	}
}

// ToList collects every value of src into a single slice, emitted once
// upstream completes.
func ToList[T any](src rxcore.Source[T]) rxcore.Source[[]T] {
	return rxcore.SourceFunc[[]T](func(s rxcore.Sink[[]T]) {
		src.Subscribe(&toListSink[T]{downstream: s})
	})
}

type toListSink[T any] struct {
	downstream rxcore.Sink[[]T]
	buf        []T
}

func (s *toListSink[T]) OnSubscribe(h rxcore.Handle) {
	h.Request(rxcore.MaxRequest)
	s.downstream.OnSubscribe(rxcore.NopHandle)
}
func (s *toListSink[T]) OnNext(v T)        { s.buf = append(s.buf, v) }
func (s *toListSink[T]) OnError(err error) { s.downstream.OnError(err) }
func (s *toListSink[T]) OnComplete() {
	s.downstream.OnNext(s.buf)
	s.downstream.OnComplete()
}

// ObserveOn moves delivery of every signal onto a worker of sched,
// decoupling the thread upstream emits on from the thread downstream
// observes on — the one place outside the scheduler package itself
// where a stage becomes a thread hop.
func ObserveOn[T any](src rxcore.Source[T], sched scheduler.Scheduler) rxcore.Source[T] {
	return rxcore.SourceFunc[T](func(s rxcore.Sink[T]) {
		op := &observeOnSink[T]{downstream: s, worker: sched.CreateWorker(), queue: queue.NewMPSC[rxcore.Notification[T]](16)}
		src.Subscribe(op)
	})
}

type observeOnSink[T any] struct {
	rxcore.WIP
	downstream rxcore.Sink[T]
	worker     scheduler.Worker
	queue      *queue.MPSC[rxcore.Notification[T]]
	upstream   rxcore.Handle
	requested  atomix.Int64
	done       atomix.Bool
}

func (s *observeOnSink[T]) OnSubscribe(h rxcore.Handle) {
	s.upstream = h
	s.downstream.OnSubscribe(&observeOnHandle[T]{s})
}

func (s *observeOnSink[T]) OnNext(v T)        { s.offer(rxcore.Next(v)) }
func (s *observeOnSink[T]) OnError(err error) { s.offer(rxcore.Error[T](err)) }
func (s *observeOnSink[T]) OnComplete()       { s.offer(rxcore.Complete[T]()) }

func (s *observeOnSink[T]) offer(n rxcore.Notification[T]) {
	if s.done.LoadAcquire() {
		return
	}
	s.queue.Offer(n)
	if s.Enter() == 0 {
		s.worker.Schedule(func() { s.DrainLoop(s.drainOnce) })
	}
}

func (s *observeOnSink[T]) drainOnce() {
	for {
		if s.requested.LoadAcquire() <= 0 {
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
		s.worker.Dispose()
		return
	}
}

type observeOnHandle[T any] struct{ s *observeOnSink[T] }

func (h *observeOnHandle[T]) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&h.s.requested, n)
	h.s.upstream.Request(n)
	if h.s.Enter() == 0 {
		h.s.worker.Schedule(func() { h.s.DrainLoop(h.s.drainOnce) })
	}
}

func (h *observeOnHandle[T]) Cancel() {
	h.s.done.StoreRelease(true)
	h.s.upstream.Cancel()
	h.s.worker.Dispose()
}
