// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package operator

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/internal/queue"
	"code.hybscloud.com/rxcore/disposable"
	"code.hybscloud.com/rxcore/scheduler"
	"code.hybscloud.com/rxcore/subject"
)

// outerStreamDrain is the queue-drain machinery shared by every
// operator in this package whose outer stream emits sub-streams
// (WindowBoundary's and WindowTimed's unicast-subject pattern): an
// unbounded queue of notifications plus a WIP-guarded drain loop, the
// same shape as [rxcore.WIP] is used everywhere else in this module.
type outerStreamDrain[S any] struct {
	rxcore.WIP
	sink       rxcore.Sink[S]
	queue      *queue.SPSC[rxcore.Notification[S]]
	requested  atomix.Int64
	done       atomix.Bool
}

func newOuterStreamDrain[S any](sink rxcore.Sink[S]) *outerStreamDrain[S] {
	return &outerStreamDrain[S]{sink: sink, queue: queue.NewSPSC[rxcore.Notification[S]](16)}
}

func (o *outerStreamDrain[S]) request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&o.requested, n)
	o.drain()
}

func (o *outerStreamDrain[S]) offer(n rxcore.Notification[S]) {
	if o.done.LoadAcquire() {
		return
	}
	o.queue.Offer(n)
	o.drain()
}

func (o *outerStreamDrain[S]) drain() {
	if o.Enter() == 0 {
		o.DrainLoop(o.drainOnce)
	}
}

func (o *outerStreamDrain[S]) drainOnce() {
	for {
		if o.requested.LoadAcquire() <= 0 {
			return
		}
		n, ok := o.queue.Poll()
		if !ok {
			return
		}
		if n.Kind == rxcore.KindNext {
			rxcore.BackpressureProduced(&o.requested, 1)
			o.sink.OnNext(n.Value)
			continue
		}
		o.done.StoreRelease(true)
		n.Deliver(o.sink)
		o.queue.Clear()
		return
	}
}

// WindowBoundary splits upstream into windows that close each time
// boundary emits a value; boundary's own value is discarded, only its
// arrival matters.
func WindowBoundary[T any, B any](upstream rxcore.Source[T], boundary rxcore.Source[B], bufferSize int) rxcore.Source[rxcore.Source[T]] {
	return &windowBoundaryOperator[T, B]{upstream: upstream, boundary: boundary, bufferSize: bufferSize}
}

type windowBoundaryOperator[T any, B any] struct {
	upstream   rxcore.Source[T]
	boundary   rxcore.Source[B]
	bufferSize int

	mu             sync.Mutex
	current        *subject.Unicast[T]
	upstreamHandle rxcore.Handle
	boundaryHandle rxcore.Handle
	terminated     atomix.Bool

	outer *outerStreamDrain[rxcore.Source[T]]
}

func (w *windowBoundaryOperator[T, B]) Subscribe(s rxcore.Sink[rxcore.Source[T]]) {
	w.outer = newOuterStreamDrain[rxcore.Source[T]](s)
	s.OnSubscribe(windowOuterHandle[T]{w.outer, w.cancelAll})

	w.mu.Lock()
	w.current = subject.NewUnicast[T](w.bufferSize)
	w.mu.Unlock()
	w.outer.offer(rxcore.Next[rxcore.Source[T]](w.current))

	w.upstream.Subscribe(windowUpstreamSink[T, B]{w})
	w.boundary.Subscribe(windowBoundarySink[T, B]{w})
}

func (w *windowBoundaryOperator[T, B]) onUpstreamSubscribe(h rxcore.Handle) { w.upstreamHandle = h }
func (w *windowBoundaryOperator[T, B]) onBoundarySubscribe(h rxcore.Handle) {
	w.boundaryHandle = h
	h.Request(rxcore.MaxRequest)
}

func (w *windowBoundaryOperator[T, B]) onUpstreamNext(v T) {
	w.mu.Lock()
	cur := w.current
	w.mu.Unlock()
	cur.OnNext(v)
}

func (w *windowBoundaryOperator[T, B]) onUpstreamError(err error) {
	if !w.terminated.CompareAndSwapAcqRel(false, true) {
		return
	}
	w.mu.Lock()
	cur := w.current
	w.mu.Unlock()
	cur.OnError(err)
	if w.boundaryHandle != nil {
		w.boundaryHandle.Cancel()
	}
	w.outer.offer(rxcore.Error[rxcore.Source[T]](err))
}

func (w *windowBoundaryOperator[T, B]) onUpstreamComplete() {
	if !w.terminated.CompareAndSwapAcqRel(false, true) {
		return
	}
	w.mu.Lock()
	cur := w.current
	w.mu.Unlock()
	cur.OnComplete()
	if w.boundaryHandle != nil {
		w.boundaryHandle.Cancel()
	}
	w.outer.offer(rxcore.Complete[rxcore.Source[T]]())
}

func (w *windowBoundaryOperator[T, B]) onBoundaryNext(B) {
	w.mu.Lock()
	w.current.OnComplete()
	w.current = subject.NewUnicast[T](w.bufferSize)
	next := w.current
	w.mu.Unlock()
	w.outer.offer(rxcore.Next[rxcore.Source[T]](next))
}

func (w *windowBoundaryOperator[T, B]) onBoundaryTerminal(err error) {
	if !w.terminated.CompareAndSwapAcqRel(false, true) {
		return
	}
	w.mu.Lock()
	cur := w.current
	w.mu.Unlock()
	if err != nil {
		cur.OnError(err)
	} else {
		cur.OnComplete()
	}
	if w.upstreamHandle != nil {
		w.upstreamHandle.Cancel()
	}
	if err != nil {
		w.outer.offer(rxcore.Error[rxcore.Source[T]](err))
	} else {
		w.outer.offer(rxcore.Complete[rxcore.Source[T]]())
	}
}

func (w *windowBoundaryOperator[T, B]) cancelAll() {
	if w.upstreamHandle != nil {
		w.upstreamHandle.Cancel()
	}
	if w.boundaryHandle != nil {
		w.boundaryHandle.Cancel()
	}
}

type windowOuterHandle[T any] struct {
	outer  *outerStreamDrain[rxcore.Source[T]]
	cancel func()
}

func (h windowOuterHandle[T]) Request(n int64) { h.outer.request(n) }
func (h windowOuterHandle[T]) Cancel()         { h.cancel() }

// windowUpstreamSink/windowBoundarySink adapt the two upstream feeds to
// rxcore.Sink without each needing its own named struct per instantiation.
type windowUpstreamSink[T any, B any] struct{ op *windowBoundaryOperator[T, B] }

func (s windowUpstreamSink[T, B]) OnSubscribe(h rxcore.Handle) { s.op.onUpstreamSubscribe(h); h.Request(rxcore.MaxRequest) }
func (s windowUpstreamSink[T, B]) OnNext(v T)                  { s.op.onUpstreamNext(v) }
func (s windowUpstreamSink[T, B]) OnError(err error)           { s.op.onUpstreamError(err) }
func (s windowUpstreamSink[T, B]) OnComplete()                 { s.op.onUpstreamComplete() }

type windowBoundarySink[T any, B any] struct{ op *windowBoundaryOperator[T, B] }

func (s windowBoundarySink[T, B]) OnSubscribe(h rxcore.Handle) { s.op.onBoundarySubscribe(h) }
func (s windowBoundarySink[T, B]) OnNext(v B)                  { s.op.onBoundaryNext(v) }
func (s windowBoundarySink[T, B]) OnError(err error)           { s.op.onBoundaryTerminal(err) }
func (s windowBoundarySink[T, B]) OnComplete()                 { s.op.onBoundaryTerminal(nil) }

// WindowTimedConfig selects one of the three timed sub-cases folded
// into a single component: Timeskip == 0 means exact
// (one window at a time); MaxSize > 0 adds the early-close cap;
// Timeskip != Timespan produces overlapping/gapped windows.
type WindowTimedConfig struct {
	Timespan              time.Duration
	Timeskip              time.Duration // 0 means "same as Timespan" (exact)
	MaxSize               int           // 0 means unbounded
	RestartTimerOnMaxSize bool
	BufferSize            int
	Scheduler             scheduler.Scheduler
}

// WindowTimed splits upstream into windows on a timer, per cfg.
func WindowTimed[T any](upstream rxcore.Source[T], cfg WindowTimedConfig) rxcore.Source[rxcore.Source[T]] {
	if cfg.Timeskip <= 0 {
		cfg.Timeskip = cfg.Timespan
	}
	return &windowTimedOperator[T]{upstream: upstream, cfg: cfg}
}

type windowTimedWindow[T any] struct {
	win   *subject.Unicast[T]
	count int
	timer disposable.Disposable
}

type windowTimedOperator[T any] struct {
	upstream rxcore.Source[T]
	cfg      WindowTimedConfig

	mu             sync.Mutex
	worker         scheduler.Worker
	windows        []*windowTimedWindow[T]
	upstreamHandle rxcore.Handle
	terminated     atomix.Bool

	outer *outerStreamDrain[rxcore.Source[T]]
}

func (w *windowTimedOperator[T]) Subscribe(s rxcore.Sink[rxcore.Source[T]]) {
	w.outer = newOuterStreamDrain[rxcore.Source[T]](s)
	w.worker = w.cfg.Scheduler.CreateWorker()
	s.OnSubscribe(windowOuterHandle[T]{w.outer, w.cancelAll})

	w.openWindow()
	if w.cfg.Timeskip != w.cfg.Timespan {
		w.worker.SchedulePeriodically(w.skipTick, w.cfg.Timeskip, w.cfg.Timeskip)
	}

	w.upstream.Subscribe(windowTimedSink[T]{w})
}

func (w *windowTimedOperator[T]) openWindow() *windowTimedWindow[T] {
	win := subject.NewUnicast[T](w.cfg.BufferSize)
	entry := &windowTimedWindow[T]{win: win}
	w.mu.Lock()
	w.windows = append(w.windows, entry)
	w.mu.Unlock()
	w.outer.offer(rxcore.Next[rxcore.Source[T]](win))
	entry.timer = w.worker.ScheduleDelayed(func() { w.closeWindow(entry, true) }, w.cfg.Timespan)
	return entry
}

func (w *windowTimedOperator[T]) closeWindow(entry *windowTimedWindow[T], restart bool) {
	w.mu.Lock()
	idx := -1
	for i, e := range w.windows {
		if e == entry {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return
	}
	w.windows = append(w.windows[:idx], w.windows[idx+1:]...)
	isExact := w.cfg.Timeskip == w.cfg.Timespan
	w.mu.Unlock()
	entry.win.OnComplete()
	if entry.timer != nil {
		entry.timer.Dispose()
	}
	if restart && isExact {
		w.openWindow()
	}
}

func (w *windowTimedOperator[T]) skipTick() {
	w.openWindow()
}

func (w *windowTimedOperator[T]) onUpstreamNext(v T) {
	w.mu.Lock()
	snapshot := append([]*windowTimedWindow[T]{}, w.windows...)
	w.mu.Unlock()
	for _, entry := range snapshot {
		entry.win.OnNext(v)
	}
	if w.cfg.MaxSize <= 0 {
		return
	}
	for _, entry := range snapshot {
		entry.count++
		if entry.count >= w.cfg.MaxSize {
			w.closeWindow(entry, w.cfg.RestartTimerOnMaxSize)
		}
	}
}

func (w *windowTimedOperator[T]) onUpstreamTerminal(err error) {
	if !w.terminated.CompareAndSwapAcqRel(false, true) {
		return
	}
	w.mu.Lock()
	snapshot := append([]*windowTimedWindow[T]{}, w.windows...)
	w.windows = nil
	w.mu.Unlock()
	for _, entry := range snapshot {
		if err != nil {
			entry.win.OnError(err)
		} else {
			entry.win.OnComplete()
		}
		if entry.timer != nil {
			entry.timer.Dispose()
		}
	}
	if err != nil {
		w.outer.offer(rxcore.Error[rxcore.Source[T]](err))
	} else {
		w.outer.offer(rxcore.Complete[rxcore.Source[T]]())
	}
}

func (w *windowTimedOperator[T]) cancelAll() {
	if w.upstreamHandle != nil {
		w.upstreamHandle.Cancel()
	}
	if w.worker != nil {
		w.worker.Dispose()
	}
}

type windowTimedSink[T any] struct{ op *windowTimedOperator[T] }

func (s windowTimedSink[T]) OnSubscribe(h rxcore.Handle) {
	s.op.upstreamHandle = h
	h.Request(rxcore.MaxRequest)
}
func (s windowTimedSink[T]) OnNext(v T)        { s.op.onUpstreamNext(v) }
func (s windowTimedSink[T]) OnError(err error) { s.op.onUpstreamTerminal(err) }
func (s windowTimedSink[T]) OnComplete()       { s.op.onUpstreamTerminal(nil) }
