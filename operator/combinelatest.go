// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package operator

import (
	"sync"

	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/internal/queue"
)

// CombineLatestConfig carries combineLatest's tunables.
type CombineLatestConfig struct {
	BufferSize int
	DelayError bool
}

// CombineLatest pulls the latest value from each of sources and emits
// combiner(latest) every time any source produces, once every source
// has produced at least once.
func CombineLatest[T any, R any](sources []rxcore.Source[T], combiner func([]T) R, cfg CombineLatestConfig) rxcore.Source[R] {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = rxcore.DefaultBufferSize
	}
	return &combineLatestOperator[T, R]{sources: sources, combiner: combiner, delayError: cfg.DelayError, bufferSize: bufferSize}
}

type combineLatestOperator[T any, R any] struct {
	rxcore.WIP
	sources    []rxcore.Source[T]
	combiner   func([]T) R
	delayError bool
	bufferSize int

	mu       sync.Mutex
	latest   []T
	hasValue []bool
	active   int
	complete int
	handles  []rxcore.Handle
	errs     error

	downstream rxcore.Sink[R]
	queue      *queue.SPSC[rxcore.Notification[R]]
	requested  atomix.Int64
	done       atomix.Bool
}

func (c *combineLatestOperator[T, R]) Subscribe(s rxcore.Sink[R]) {
	n := len(c.sources)
	c.downstream = s
	c.latest = make([]T, n)
	c.hasValue = make([]bool, n)
	c.handles = make([]rxcore.Handle, n)
	c.queue = queue.NewSPSC[rxcore.Notification[R]](c.bufferSize)

	s.OnSubscribe(&combineLatestHandle[T, R]{op: c})

	for i, src := range c.sources {
		idx := i
		src.Subscribe(&combineLatestInnerSink[T, R]{op: c, index: idx})
	}
}

func (c *combineLatestOperator[T, R]) onInnerSubscribe(i int, h rxcore.Handle) {
	c.mu.Lock()
	c.handles[i] = h
	c.mu.Unlock()
	h.Request(rxcore.MaxRequest)
}

func (c *combineLatestOperator[T, R]) onInnerNext(i int, v T) {
	c.mu.Lock()
	if !c.hasValue[i] {
		c.hasValue[i] = true
		c.active++
	}
	c.latest[i] = v
	ready := c.active == len(c.sources)
	var snapshot []T
	if ready {
		snapshot = append([]T{}, c.latest...)
	}
	c.mu.Unlock()
	if !ready {
		return
	}
	result := c.combiner(snapshot)
	if isComputedNil(result) {
		c.cancelAllExcept(-1)
		c.offer(rxcore.Error[R](rxcore.ErrOperatorComputedNull))
		return
	}
	c.offer(rxcore.Next(result))
}

func (c *combineLatestOperator[T, R]) onInnerError(i int, err error) {
	if c.delayError {
		c.mu.Lock()
		c.errs = rxcore.CombineErrors(c.errs, err)
		c.mu.Unlock()
		c.cancelAllExcept(-1)
		c.offer(rxcore.Error[R](err))
		return
	}
	c.cancelAllExcept(-1)
	c.offer(rxcore.Error[R](err))
}

func (c *combineLatestOperator[T, R]) onInnerComplete(i int) {
	c.mu.Lock()
	c.complete++
	hadValue := c.hasValue[i]
	allComplete := c.complete == len(c.sources)
	earlyEmpty := !hadValue && !c.delayError
	c.mu.Unlock()

	if earlyEmpty {
		c.cancelAllExcept(i)
		c.offer(rxcore.Complete[R]())
		return
	}
	if allComplete {
		c.offer(rxcore.Complete[R]())
	}
}

func (c *combineLatestOperator[T, R]) cancelAllExcept(skip int) {
	c.mu.Lock()
	handles := append([]rxcore.Handle{}, c.handles...)
	c.mu.Unlock()
	for i, h := range handles {
		if i == skip || h == nil {
			continue
		}
		h.Cancel()
	}
}

func (c *combineLatestOperator[T, R]) offer(n rxcore.Notification[R]) {
	if c.done.LoadAcquire() {
		return
	}
	c.queue.Offer(n)
	if c.Enter() == 0 {
		c.DrainLoop(c.drainOnce)
	}
}

func (c *combineLatestOperator[T, R]) drainOnce() {
	for {
		if c.requested.LoadAcquire() <= 0 {
			return
		}
		n, ok := c.queue.Poll()
		if !ok {
			return
		}
		if n.Kind == rxcore.KindNext {
			rxcore.BackpressureProduced(&c.requested, 1)
			c.downstream.OnNext(n.Value)
			continue
		}
		c.done.StoreRelease(true)
		if n.Kind == rxcore.KindError && c.delayError {
			c.mu.Lock()
			n.Err = c.errs
			c.mu.Unlock()
		}
		n.Deliver(c.downstream)
		c.queue.Clear()
		return
	}
}

type combineLatestInnerSink[T any, R any] struct {
	op    *combineLatestOperator[T, R]
	index int
}

func (s *combineLatestInnerSink[T, R]) OnSubscribe(h rxcore.Handle) { s.op.onInnerSubscribe(s.index, h) }
func (s *combineLatestInnerSink[T, R]) OnNext(v T)                  { s.op.onInnerNext(s.index, v) }
func (s *combineLatestInnerSink[T, R]) OnError(err error)           { s.op.onInnerError(s.index, err) }
func (s *combineLatestInnerSink[T, R]) OnComplete()                 { s.op.onInnerComplete(s.index) }

type combineLatestHandle[T any, R any] struct{ op *combineLatestOperator[T, R] }

func (h *combineLatestHandle[T, R]) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&h.op.requested, n)
	if h.op.Enter() == 0 {
		h.op.DrainLoop(h.op.drainOnce)
	}
}

func (h *combineLatestHandle[T, R]) Cancel() { h.op.cancelAllExcept(-1) }
