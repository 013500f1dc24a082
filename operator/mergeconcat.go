// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package operator

import (
	"sync"

	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/lfq"
)

// Concat subscribes to at most one inner stream at a time, in the
// order the outer meta-stream produces them; each inner completion
// requests one more from the outer. prefetch bounds how many inner
// streams the outer may have in flight ahead of the one currently
// playing — held in an [lfq.SPSC] queue sized to prefetch rounded up
// to a power of two (at least 2), the same bounded-queue primitive the
// rest of this module uses for every other fixed-capacity buffer.
func Concat[T any](outer rxcore.Source[rxcore.Source[T]], prefetch int) rxcore.Source[T] {
	if prefetch < 2 {
		prefetch = 2
	}
	return &concatOperator[T]{outer: outer, pending: lfq.NewSPSC[rxcore.Source[T]](prefetch)}
}

type concatOperator[T any] struct {
	rxcore.WIP
	outer   rxcore.Source[rxcore.Source[T]]
	pending *lfq.SPSC[rxcore.Source[T]]

	outerHandle rxcore.Handle
	downstream  rxcore.Sink[T]
	innerHandle rxcore.Handle
	outerDone   atomix.Bool
	done        atomix.Bool
	active      atomix.Bool
}

func (c *concatOperator[T]) Subscribe(s rxcore.Sink[T]) {
	c.downstream = s
	s.OnSubscribe(&concatHandle[T]{op: c})
	c.outer.Subscribe(&concatOuterSink[T]{op: c})
}

func (c *concatOperator[T]) onOuterSubscribe(h rxcore.Handle) {
	c.outerHandle = h
	h.Request(int64(c.pending.Cap()))
}

func (c *concatOperator[T]) onOuterNext(inner rxcore.Source[T]) {
	if err := c.pending.Enqueue(&inner); err != nil {
		rxcore.Plugins.OnError(rxcore.NewProtocolError("concat: prefetch queue overflow: %v", err))
		return
	}
	c.drain()
}

func (c *concatOperator[T]) onOuterError(err error) {
	if !c.done.CompareAndSwapAcqRel(false, true) {
		return
	}
	if c.innerHandle != nil {
		c.innerHandle.Cancel()
	}
	c.downstream.OnError(err)
}

func (c *concatOperator[T]) onOuterComplete() {
	c.outerDone.StoreRelease(true)
	c.drain()
}

func (c *concatOperator[T]) drain() {
	if c.Enter() != 0 {
		return
	}
	c.DrainLoop(c.drainOnce)
}

func (c *concatOperator[T]) drainOnce() {
	if c.done.LoadAcquire() {
		return
	}
	if !c.active.CompareAndSwapAcqRel(false, true) {
		return
	}
	inner, err := c.pending.Dequeue()
	if err != nil {
		c.active.StoreRelease(false)
		if c.outerDone.LoadAcquire() {
			if c.done.CompareAndSwapAcqRel(false, true) {
				c.downstream.OnComplete()
			}
		}
		return
	}
	inner.Subscribe(&concatInnerSink[T]{op: c})
}

func (c *concatOperator[T]) onInnerSubscribe(h rxcore.Handle) {
	c.innerHandle = h
	h.Request(rxcore.MaxRequest)
}

func (c *concatOperator[T]) onInnerNext(v T) { c.downstream.OnNext(v) }

func (c *concatOperator[T]) onInnerError(err error) {
	if !c.done.CompareAndSwapAcqRel(false, true) {
		return
	}
	c.downstream.OnError(err)
}

func (c *concatOperator[T]) onInnerComplete() {
	c.active.StoreRelease(false)
	if c.outerHandle != nil {
		c.outerHandle.Request(1)
	}
	c.drain()
}

type concatOuterSink[T any] struct{ op *concatOperator[T] }

func (s *concatOuterSink[T]) OnSubscribe(h rxcore.Handle)   { s.op.onOuterSubscribe(h) }
func (s *concatOuterSink[T]) OnNext(v rxcore.Source[T])     { s.op.onOuterNext(v) }
func (s *concatOuterSink[T]) OnError(err error)             { s.op.onOuterError(err) }
func (s *concatOuterSink[T]) OnComplete()                   { s.op.onOuterComplete() }

type concatInnerSink[T any] struct{ op *concatOperator[T] }

func (s *concatInnerSink[T]) OnSubscribe(h rxcore.Handle) { s.op.onInnerSubscribe(h) }
func (s *concatInnerSink[T]) OnNext(v T)                  { s.op.onInnerNext(v) }
func (s *concatInnerSink[T]) OnError(err error)           { s.op.onInnerError(err) }
func (s *concatInnerSink[T]) OnComplete()                 { s.op.onInnerComplete() }

type concatHandle[T any] struct{ op *concatOperator[T] }

func (h *concatHandle[T]) Request(n int64) {}
func (h *concatHandle[T]) Cancel() {
	h.op.done.StoreRelease(true)
	if h.op.outerHandle != nil {
		h.op.outerHandle.Cancel()
	}
	if h.op.innerHandle != nil {
		h.op.innerHandle.Cancel()
	}
}

// Merge runs up to maxConcurrency inner streams at once; every active
// inner's values land in one [lfq.MPSC] queue of capacity
// maxConcurrency*rxcore.DefaultBufferSize, drained through the same
// queue-drain idiom every other operator in this package uses. The
// queue is bounded rather than growing without limit: an inner that
// floods faster than downstream requests drain it is a protocol
// violation; every inner and the outer are cancelled and a
// ProtocolError is delivered downstream once. (Concat's prefetch
// overflow, by contrast, is only reported to [rxcore.Plugins].)
func Merge[T any](outer rxcore.Source[rxcore.Source[T]], maxConcurrency int) rxcore.Source[T] {
	if maxConcurrency < 1 {
		maxConcurrency = rxcore.DefaultBufferSize
	}
	capacity := maxConcurrency * rxcore.DefaultBufferSize
	return &mergeOperator[T]{outer: outer, maxConcurrency: maxConcurrency, values: lfq.NewMPSC[rxcore.Notification[T]](capacity)}
}

type mergeOperator[T any] struct {
	rxcore.WIP
	outer          rxcore.Source[rxcore.Source[T]]
	maxConcurrency int
	values         *lfq.MPSC[rxcore.Notification[T]]

	mu          sync.Mutex
	activeCount int
	innerDone   atomix.Bool // a terminal was delivered downstream or the queue overflowed
	innerHandles map[*mergeInnerSink[T]]rxcore.Handle

	outerHandle rxcore.Handle
	outerDone   atomix.Bool
	downstream  rxcore.Sink[T]
	requested   atomix.Int64
	done        atomix.Bool
}

func (m *mergeOperator[T]) Subscribe(s rxcore.Sink[T]) {
	m.downstream = s
	m.innerHandles = make(map[*mergeInnerSink[T]]rxcore.Handle)
	s.OnSubscribe(&mergeHandle[T]{op: m})
	m.outer.Subscribe(&mergeOuterSink[T]{op: m})
}

func (m *mergeOperator[T]) onOuterSubscribe(h rxcore.Handle) {
	m.outerHandle = h
	h.Request(int64(m.maxConcurrency))
}

func (m *mergeOperator[T]) onOuterNext(inner rxcore.Source[T]) {
	m.mu.Lock()
	m.activeCount++
	m.mu.Unlock()
	sink := &mergeInnerSink[T]{op: m}
	inner.Subscribe(sink)
}

func (m *mergeOperator[T]) onOuterError(err error) {
	if !m.done.CompareAndSwapAcqRel(false, true) {
		return
	}
	m.cancelAllInners()
	m.offer(rxcore.Error[T](err))
}

func (m *mergeOperator[T]) onOuterComplete() {
	m.outerDone.StoreRelease(true)
	m.mu.Lock()
	zero := m.activeCount == 0
	m.mu.Unlock()
	if zero {
		m.offer(rxcore.Complete[T]())
	}
}

func (m *mergeOperator[T]) onInnerSubscribe(sink *mergeInnerSink[T], h rxcore.Handle) {
	m.mu.Lock()
	m.innerHandles[sink] = h
	m.mu.Unlock()
	h.Request(rxcore.MaxRequest)
}

func (m *mergeOperator[T]) onInnerNext(v T) {
	m.offer(rxcore.Next(v))
}

func (m *mergeOperator[T]) onInnerError(sink *mergeInnerSink[T], err error) {
	m.mu.Lock()
	delete(m.innerHandles, sink)
	m.mu.Unlock()
	if !m.done.CompareAndSwapAcqRel(false, true) {
		return
	}
	m.cancelAllInners()
	m.offer(rxcore.Error[T](err))
}

func (m *mergeOperator[T]) onInnerComplete(sink *mergeInnerSink[T]) {
	m.mu.Lock()
	delete(m.innerHandles, sink)
	m.activeCount--
	zero := m.activeCount == 0
	m.mu.Unlock()
	if m.outerHandle != nil {
		m.outerHandle.Request(1)
	}
	if zero && m.outerDone.LoadAcquire() {
		m.offer(rxcore.Complete[T]())
	}
}

func (m *mergeOperator[T]) cancelAllInners() {
	m.mu.Lock()
	handles := make([]rxcore.Handle, 0, len(m.innerHandles))
	for _, h := range m.innerHandles {
		handles = append(handles, h)
	}
	m.innerHandles = make(map[*mergeInnerSink[T]]rxcore.Handle)
	m.mu.Unlock()
	for _, h := range handles {
		h.Cancel()
	}
}

func (m *mergeOperator[T]) offer(n rxcore.Notification[T]) {
	if m.innerDone.LoadAcquire() {
		return
	}
	if err := m.values.Enqueue(&n); err != nil {
		if m.done.CompareAndSwapAcqRel(false, true) {
			m.innerDone.StoreRelease(true)
			m.cancelAllInners()
			if m.outerHandle != nil {
				m.outerHandle.Cancel()
			}
			m.downstream.OnError(rxcore.NewProtocolError("merge: value queue overflow: %v", err))
		}
		return
	}
	if m.Enter() == 0 {
		m.DrainLoop(m.drainOnce)
	}
}

func (m *mergeOperator[T]) drainOnce() {
	for {
		if m.innerDone.LoadAcquire() {
			return
		}
		if m.requested.LoadAcquire() <= 0 {
			return
		}
		n, err := m.values.Dequeue()
		if err != nil {
			return
		}
		if n.Kind == rxcore.KindNext {
			rxcore.BackpressureProduced(&m.requested, 1)
			m.downstream.OnNext(n.Value)
			continue
		}
		m.innerDone.StoreRelease(true)
		n.Deliver(m.downstream)
		return
	}
}

type mergeOuterSink[T any] struct{ op *mergeOperator[T] }

func (s *mergeOuterSink[T]) OnSubscribe(h rxcore.Handle) { s.op.onOuterSubscribe(h) }
func (s *mergeOuterSink[T]) OnNext(v rxcore.Source[T])   { s.op.onOuterNext(v) }
func (s *mergeOuterSink[T]) OnError(err error)           { s.op.onOuterError(err) }
func (s *mergeOuterSink[T]) OnComplete()                 { s.op.onOuterComplete() }

type mergeInnerSink[T any] struct{ op *mergeOperator[T] }

func (s *mergeInnerSink[T]) OnSubscribe(h rxcore.Handle) { s.op.onInnerSubscribe(s, h) }
func (s *mergeInnerSink[T]) OnNext(v T)                  { s.op.onInnerNext(v) }
func (s *mergeInnerSink[T]) OnError(err error)           { s.op.onInnerError(s, err) }
func (s *mergeInnerSink[T]) OnComplete()                 { s.op.onInnerComplete(s) }

type mergeHandle[T any] struct{ op *mergeOperator[T] }

func (h *mergeHandle[T]) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&h.op.requested, n)
	if h.op.Enter() == 0 {
		h.op.DrainLoop(h.op.drainOnce)
	}
}

func (h *mergeHandle[T]) Cancel() {
	h.op.done.StoreRelease(true)
	if h.op.outerHandle != nil {
		h.op.outerHandle.Cancel()
	}
	h.op.cancelAllInners()
}
