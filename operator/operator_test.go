// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package operator_test

import (
	"reflect"
	"sync"
	"testing"
	"time"

	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/operator"
	"code.hybscloud.com/rxcore/scheduler"
	"code.hybscloud.com/rxcore/stream"
)

type recordingSink[T any] struct {
	mu        sync.Mutex
	values    []T
	errs      []error
	completes int
}

func (r *recordingSink[T]) OnSubscribe(h rxcore.Handle) { h.Request(rxcore.MaxRequest) }
func (r *recordingSink[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}
func (r *recordingSink[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}
func (r *recordingSink[T]) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completes++
}

func (r *recordingSink[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T{}, r.values...)
}

// TestGroupBy covers scenario 8: group_by(x%2) over 1..6
// yields key=1:[1,3,5] and key=0:[2,4,6].
func TestGroupBy(t *testing.T) {
	src := stream.Range(1, 6) // 1..6
	groups := operator.GroupBy(src, func(x int) int { return x % 2 }, func(x int) int { return x }, operator.GroupByConfig{})

	sinks := map[int]*recordingSink[int]{}
	groups.Subscribe(&groupCollector{
		onGroup: func(g *operator.Group[int, int]) {
			s := &recordingSink[int]{}
			g.Subscribe(s)
			sinks[g.Key()] = s
		},
	})
	got := map[int][]int{}
	for k, s := range sinks {
		got[k] = s.snapshot()
	}

	if want := []int{1, 3, 5}; !reflect.DeepEqual(got[1], want) {
		t.Fatalf("key=1 got %v, want %v", got[1], want)
	}
	if want := []int{2, 4, 6}; !reflect.DeepEqual(got[0], want) {
		t.Fatalf("key=0 got %v, want %v", got[0], want)
	}
}

type groupCollector struct {
	onGroup func(g *operator.Group[int, int])
}

func (c *groupCollector) OnSubscribe(h rxcore.Handle)        { h.Request(rxcore.MaxRequest) }
func (c *groupCollector) OnNext(g *operator.Group[int, int]) { c.onGroup(g) }
func (c *groupCollector) OnError(error)                      {}
func (c *groupCollector) OnComplete()                        {}

// TestCombineLatest covers scenario 9:
// combineLatest(just(10), just(20), (a,b)->a+b) emits [30], completes.
func TestCombineLatest(t *testing.T) {
	sources := []rxcore.Source[int]{stream.Just(10), stream.Just(20)}
	combined := operator.CombineLatest(sources, func(vs []int) int { return vs[0] + vs[1] }, operator.CombineLatestConfig{})

	got, err := stream.ToListBlocking(combined)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []int{30}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestDebounce covers scenario 10 using TestScheduler's
// virtual clock and a 100ms debounce window: 1@0ms is superseded by
// 2@50ms before its window elapses, so 2 is what flushes once its own
// window elapses at 150ms; 3@200ms flushes at 300ms; 4@500ms never
// outlasts its window before the source completes, so it is flushed
// immediately on completion instead.
func TestDebounce(t *testing.T) {
	sched := scheduler.NewTestScheduler()
	upstream := &manualSource[int]{}
	debounced := operator.Debounce[int](upstream, 100*time.Millisecond, sched)

	out := &recordingSink[int]{}
	debounced.Subscribe(out)

	upstream.emit(1) // t=0, window due 100
	sched.AdvanceTimeBy(50 * time.Millisecond)
	upstream.emit(2) // t=50, cancels 1's window, new window due 150
	sched.AdvanceTimeBy(100 * time.Millisecond) // t=150: 2's window elapses, flushes 2

	sched.AdvanceTimeBy(50 * time.Millisecond) // t=200
	upstream.emit(3)                           // window due 300
	sched.AdvanceTimeBy(100 * time.Millisecond) // t=300: flushes 3

	sched.AdvanceTimeBy(200 * time.Millisecond) // t=500
	upstream.emit(4)                            // window due 600, never reached
	upstream.complete()

	want := []int{2, 3, 4}
	if got := out.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if out.completes != 1 {
		t.Fatalf("completes = %d, want 1", out.completes)
	}
}

// manualSource is a test-only rxcore.Source that lets the test drive
// OnNext/OnComplete calls directly against whatever sink subscribed.
type manualSource[T any] struct {
	sink rxcore.Sink[T]
}

func (m *manualSource[T]) Subscribe(s rxcore.Sink[T]) {
	m.sink = s
	s.OnSubscribe(rxcore.NopHandle)
}

func (m *manualSource[T]) emit(v T)  { m.sink.OnNext(v) }
func (m *manualSource[T]) complete() { m.sink.OnComplete() }
