// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package operator

import (
	"sync"

	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/disposable"
	"code.hybscloud.com/rxcore/subject"
)

// Connectable turns a [rxcore.Source] into a hub shared across many
// subscribers: Subscribe always attaches to the
// shared [subject.Publish], but upstream is only actually subscribed
// to when Connect is called. Disposing the returned disposable resets
// the hub so the next Connect starts a fresh upstream subscription.
type Connectable[T any] struct {
	source rxcore.Source[T]

	mu        sync.Mutex
	hub       *subject.Publish[T]
	connected bool
	handle    rxcore.Handle
}

// Publish wraps source in a Connectable hub.
func Publish[T any](source rxcore.Source[T]) *Connectable[T] {
	return &Connectable[T]{source: source, hub: subject.NewPublish[T]()}
}

// Subscribe attaches s to the current hub generation. It never itself
// triggers an upstream subscription.
func (c *Connectable[T]) Subscribe(s rxcore.Sink[T]) {
	c.mu.Lock()
	hub := c.hub
	c.mu.Unlock()
	hub.Subscribe(s)
}

// Connect triggers the upstream subscription exactly once per hub
// generation; calling it again before disposing the previous
// connection is a no-op that returns the existing disposable's
// equivalent (idempotent connect).
func (c *Connectable[T]) Connect() disposable.Disposable {
	c.mu.Lock()
	if c.connected {
		hub := c.hub
		c.mu.Unlock()
		return disposable.Func(func() { c.disconnect(hub) })
	}
	c.connected = true
	hub := c.hub
	c.mu.Unlock()

	c.source.Subscribe(&connectSink[T]{op: c, hub: hub})
	return disposable.Func(func() { c.disconnect(hub) })
}

func (c *Connectable[T]) disconnect(hub *subject.Publish[T]) {
	c.mu.Lock()
	if c.hub != hub {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.hub = subject.NewPublish[T]()
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()
	if handle != nil {
		handle.Cancel()
	}
}

type connectSink[T any] struct {
	op  *Connectable[T]
	hub *subject.Publish[T]
}

func (s *connectSink[T]) OnSubscribe(h rxcore.Handle) {
	s.op.mu.Lock()
	s.op.handle = h
	s.op.mu.Unlock()
	h.Request(rxcore.MaxRequest)
}
func (s *connectSink[T]) OnNext(v T)        { s.hub.OnNext(v) }
func (s *connectSink[T]) OnError(err error) { s.hub.OnError(err) }
func (s *connectSink[T]) OnComplete()       { s.hub.OnComplete() }

// RefCount automatically connects a Connectable when its subscriber
// count transitions 0→1 and disconnects when it transitions 1→0.
// A subscriber attaching while a disconnect from the
// previous generation is still in flight always lands on a fresh
// generation, never on a closed hub, because disconnect installs a new
// hub under the same mutex Subscribe reads from.
func RefCount[T any](c *Connectable[T]) rxcore.Source[T] {
	return &refCountOperator[T]{c: c}
}

type refCountOperator[T any] struct {
	c *Connectable[T]

	mu    sync.Mutex
	count int
	conn  disposable.Disposable
}

func (r *refCountOperator[T]) Subscribe(s rxcore.Sink[T]) {
	r.mu.Lock()
	r.count++
	first := r.count == 1
	if first {
		r.mu.Unlock()
		conn := r.c.Connect()
		r.mu.Lock()
		r.conn = conn
	}
	r.mu.Unlock()

	r.c.Subscribe(&refCountSink[T]{op: r, downstream: s})
}

func (r *refCountOperator[T]) release() {
	r.mu.Lock()
	r.count--
	last := r.count == 0
	conn := r.conn
	if last {
		r.conn = nil
	}
	r.mu.Unlock()
	if last && conn != nil {
		conn.Dispose()
	}
}

type refCountSink[T any] struct {
	op         *refCountOperator[T]
	downstream rxcore.Sink[T]
	released   atomix.Bool
}

func (s *refCountSink[T]) OnSubscribe(h rxcore.Handle) {
	s.downstream.OnSubscribe(&refCountHandle[T]{sink: s, h: h})
}
func (s *refCountSink[T]) OnNext(v T) { s.downstream.OnNext(v) }
func (s *refCountSink[T]) OnError(err error) {
	s.release()
	s.downstream.OnError(err)
}
func (s *refCountSink[T]) OnComplete() {
	s.release()
	s.downstream.OnComplete()
}
func (s *refCountSink[T]) release() {
	if s.released.CompareAndSwapAcqRel(false, true) {
		s.op.release()
	}
}

type refCountHandle[T any] struct {
	sink *refCountSink[T]
	h    rxcore.Handle
}

func (h *refCountHandle[T]) Request(n int64) { h.h.Request(n) }
func (h *refCountHandle[T]) Cancel() {
	h.h.Cancel()
	h.sink.release()
}

// AutoConnect triggers Connect once the n-th subscriber attaches and
// never auto-disconnects thereafter.
func AutoConnect[T any](c *Connectable[T], n int) rxcore.Source[T] {
	return &autoConnectOperator[T]{c: c, n: n}
}

type autoConnectOperator[T any] struct {
	c *Connectable[T]
	n int

	mu    sync.Mutex
	count int
}

func (a *autoConnectOperator[T]) Subscribe(s rxcore.Sink[T]) {
	a.mu.Lock()
	a.count++
	trigger := a.count == a.n
	a.mu.Unlock()
	a.c.Subscribe(s)
	if trigger {
		a.c.Connect()
	}
}
