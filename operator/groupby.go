// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package operator implements the representative operator family:
// groupBy, window, combineLatest, withLatestFrom, debounce,
// publish/refCount/autoConnect, and concat/merge. Every operator is a
// state machine built from the same primitives as the rest of this
// module: the queue-drain idiom ([rxcore.WIP]), the unbounded chunked
// queues in code.hybscloud.com/rxcore/internal/queue, and
// code.hybscloud.com/rxcore/lfq's bounded queues wherever a fixed
// capacity is actually meaningful (concat's prefetch queue, merge's
// value queue).
package operator

import (
	"reflect"
	"sync"

	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/internal/queue"
)

// Group is one keyed sub-stream emitted by GroupBy's outer stream. It
// is itself a [rxcore.Source] carrying only the values whose key
// matched; it accepts at most one subscriber.
type Group[K comparable, V any] struct {
	key K
	sub *groupSubscription[K, V]
}

// Key returns the key this group was created for.
func (g *Group[K, V]) Key() K { return g.key }

// Subscribe attaches s to this group's values. A second call while a
// subscriber is already attached delivers only a protocol error to s.
func (g *Group[K, V]) Subscribe(s rxcore.Sink[V]) { g.sub.subscribe(s) }

// groupByHost decouples groupSubscription from the operator's full
// (T, K, V) type so the inner group machinery only needs to know K.
type groupByHost[K comparable] interface {
	onGroupConsumed()
	onGroupCancelled(key K)
}

type groupSubscription[K comparable, V any] struct {
	rxcore.WIP
	key         K
	host        groupByHost[K]
	queue       *queue.SPSC[rxcore.Notification[V]]
	requested   atomix.Int64
	mu          sync.Mutex
	downstream  rxcore.Sink[V]
	hasSub      bool
	cancelled   atomix.Bool
	done        atomix.Bool
}

func newGroupSubscription[K comparable, V any](key K, host groupByHost[K], bufferSize int) *groupSubscription[K, V] {
	return &groupSubscription[K, V]{key: key, host: host, queue: queue.NewSPSC[rxcore.Notification[V]](bufferSize)}
}

func (g *groupSubscription[K, V]) subscribe(s rxcore.Sink[V]) {
	g.mu.Lock()
	if g.hasSub {
		g.mu.Unlock()
		s.OnSubscribe(rxcore.NopHandle)
		s.OnError(rxcore.NewProtocolError("group already has a subscriber"))
		return
	}
	g.hasSub = true
	g.downstream = s
	g.mu.Unlock()
	s.OnSubscribe((*groupHandle[K, V])(g))
	g.drain()
}

func (g *groupSubscription[K, V]) offer(n rxcore.Notification[V]) {
	if g.done.LoadAcquire() {
		return
	}
	g.queue.Offer(n)
	g.drain()
}

func (g *groupSubscription[K, V]) drain() {
	if g.Enter() == 0 {
		g.DrainLoop(g.drainOnce)
	}
}

func (g *groupSubscription[K, V]) drainOnce() {
	for {
		g.mu.Lock()
		downstream := g.downstream
		g.mu.Unlock()
		if downstream == nil {
			return
		}
		if g.cancelled.LoadAcquire() {
			g.queue.Clear()
			return
		}
		if g.requested.LoadAcquire() <= 0 {
			return
		}
		n, ok := g.queue.Poll()
		if !ok {
			return
		}
		if n.Kind == rxcore.KindNext {
			rxcore.BackpressureProduced(&g.requested, 1)
			downstream.OnNext(n.Value)
			g.host.onGroupConsumed()
			continue
		}
		g.done.StoreRelease(true)
		n.Deliver(downstream)
		g.queue.Clear()
		return
	}
}

// groupHandle is the rxcore.Handle a group subscriber receives.
type groupHandle[K comparable, V any] groupSubscription[K, V]

func (h *groupHandle[K, V]) Request(n int64) {
	g := (*groupSubscription[K, V])(h)
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&g.requested, n)
	g.drain()
}

func (h *groupHandle[K, V]) Cancel() {
	g := (*groupSubscription[K, V])(h)
	g.cancelled.StoreRelease(true)
	g.host.onGroupCancelled(g.key)
}

// GroupByConfig carries groupBy's tunables.
type GroupByConfig struct {
	BufferSize int
	DelayError bool
}

// GroupBy splits upstream into per-key sub-streams. keyOf computes the
// grouping key; valueOf projects the value each group actually carries.
func GroupBy[T any, K comparable, V any](upstream rxcore.Source[T], keyOf func(T) K, valueOf func(T) V, cfg GroupByConfig) rxcore.Source[*Group[K, V]] {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = rxcore.DefaultBufferSize
	}
	return &groupByOperator[T, K, V]{
		upstream:   upstream,
		keyOf:      keyOf,
		valueOf:    valueOf,
		delayError: cfg.DelayError,
		bufferSize: bufferSize,
		groups:     make(map[K]*groupSubscription[K, V]),
		outerQueue: queue.NewSPSC[rxcore.Notification[*Group[K, V]]](16),
	}
}

type groupByOperator[T any, K comparable, V any] struct {
	rxcore.WIP
	upstream   rxcore.Source[T]
	keyOf      func(T) K
	valueOf    func(T) V
	delayError bool
	bufferSize int

	upstreamHandle rxcore.Handle
	groupCount     atomix.Int64 // starts at 1 for the outer
	failed         atomix.Bool  // guards against double error delivery from a computed-nil value

	mu     sync.Mutex
	groups map[K]*groupSubscription[K, V]

	outer         rxcore.Sink[*Group[K, V]]
	outerQueue    *queue.SPSC[rxcore.Notification[*Group[K, V]]]
	outerRequested atomix.Int64
	outerDone     atomix.Bool
}

// Subscribe attaches the outer sink and triggers the upstream subscribe.
func (g *groupByOperator[T, K, V]) Subscribe(s rxcore.Sink[*Group[K, V]]) {
	g.outer = s
	g.groupCount.StoreRelease(1)
	s.OnSubscribe(&groupByOuterHandle[T, K, V]{op: g})
	g.upstream.Subscribe(g)
}

// OnSubscribe implements rxcore.Sink[T]: groupBy primes a shared budget
// equal to one outer slot so the first key can surface immediately;
// further upstream credit flows one-for-one with group consumption.
func (g *groupByOperator[T, K, V]) OnSubscribe(h rxcore.Handle) {
	g.upstreamHandle = h
	h.Request(1)
}

func (g *groupByOperator[T, K, V]) OnNext(v T) {
	key := g.keyOf(v)
	g.mu.Lock()
	grp, exists := g.groups[key]
	if !exists {
		grp = newGroupSubscription[K, V](key, g, g.bufferSize)
		g.groups[key] = grp
		g.groupCount.AddAcqRel(1)
	}
	g.mu.Unlock()
	if !exists {
		g.outerOffer(rxcore.Next[*Group[K, V]](&Group[K, V]{key: key, sub: grp}))
	}
	value := g.valueOf(v)
	if isComputedNil(value) {
		g.failComputedNull()
		return
	}
	grp.offer(rxcore.Next(value))
}

// failComputedNull makes a nil valueOf result fatal: the upstream is
// cancelled and [rxcore.ErrOperatorComputedNull] is delivered once to
// the outer stream and every open group, the same fan-out OnError uses.
func (g *groupByOperator[T, K, V]) failComputedNull() {
	if !g.failed.CompareAndSwapAcqRel(false, true) {
		return
	}
	if g.upstreamHandle != nil {
		g.upstreamHandle.Cancel()
	}
	g.OnError(rxcore.ErrOperatorComputedNull)
}

// isComputedNil reports whether v holds a nil value. V is a type
// parameter, so a direct v == nil comparison doesn't compile for every
// instantiation; only the kinds that can actually be nil are checked.
func isComputedNil[V any](v V) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return true // v's own interface value was nil
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

func (g *groupByOperator[T, K, V]) OnError(err error) {
	g.mu.Lock()
	snapshot := make([]*groupSubscription[K, V], 0, len(g.groups))
	for _, grp := range g.groups {
		snapshot = append(snapshot, grp)
	}
	g.mu.Unlock()
	for _, grp := range snapshot {
		if g.delayError {
			grp.offer(rxcore.Error[V](err))
		} else {
			grp.done.StoreRelease(true)
			grp.mu.Lock()
			downstream := grp.downstream
			grp.mu.Unlock()
			if downstream != nil {
				downstream.OnError(err)
			}
			grp.queue.Clear()
		}
	}
	g.outerOffer(rxcore.Error[*Group[K, V]](err))
}

func (g *groupByOperator[T, K, V]) OnComplete() {
	g.mu.Lock()
	snapshot := make([]*groupSubscription[K, V], 0, len(g.groups))
	for _, grp := range g.groups {
		snapshot = append(snapshot, grp)
	}
	g.mu.Unlock()
	for _, grp := range snapshot {
		grp.offer(rxcore.Complete[V]())
	}
	g.outerOffer(rxcore.Complete[*Group[K, V]]())
}

func (g *groupByOperator[T, K, V]) onGroupConsumed() {
	if g.upstreamHandle != nil {
		g.upstreamHandle.Request(1)
	}
}

func (g *groupByOperator[T, K, V]) onGroupCancelled(key K) {
	g.mu.Lock()
	delete(g.groups, key)
	g.mu.Unlock()
	if g.groupCount.AddAcqRel(-1) == 0 && g.upstreamHandle != nil {
		g.upstreamHandle.Cancel()
	}
}

func (g *groupByOperator[T, K, V]) outerOffer(n rxcore.Notification[*Group[K, V]]) {
	if g.outerDone.LoadAcquire() {
		return
	}
	g.outerQueue.Offer(n)
	if g.Enter() == 0 {
		g.DrainLoop(g.drainOuterOnce)
	}
}

func (g *groupByOperator[T, K, V]) drainOuterOnce() {
	for {
		if g.outerRequested.LoadAcquire() <= 0 {
			return
		}
		n, ok := g.outerQueue.Poll()
		if !ok {
			return
		}
		if n.Kind == rxcore.KindNext {
			rxcore.BackpressureProduced(&g.outerRequested, 1)
			g.outer.OnNext(n.Value)
			continue
		}
		g.outerDone.StoreRelease(true)
		n.Deliver(g.outer)
		g.outerQueue.Clear()
		return
	}
}

type groupByOuterHandle[T any, K comparable, V any] struct {
	op *groupByOperator[T, K, V]
}

func (h *groupByOuterHandle[T, K, V]) Request(n int64) {
	if n <= 0 {
		rxcore.Plugins.OnError(rxcore.ErrRequestNonPositive)
		return
	}
	rxcore.BackpressureAdd(&h.op.outerRequested, n)
	if h.op.Enter() == 0 {
		h.op.DrainLoop(h.op.drainOuterOnce)
	}
}

func (h *groupByOuterHandle[T, K, V]) Cancel() {
	if h.op.groupCount.AddAcqRel(-1) == 0 && h.op.upstreamHandle != nil {
		h.op.upstreamHandle.Cancel()
	}
}
