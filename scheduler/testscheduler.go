// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"code.hybscloud.com/rxcore/disposable"
)

// TestScheduler is a virtual-clock scheduler, used throughout this
// module's own tests instead of wall-clock sleeps:
// AdvanceTimeBy/AdvanceTimeTo move the clock and run every task whose
// due time has passed; TriggerActions runs whatever is due at the
// current time without advancing it.
type TestScheduler struct {
	mu    sync.Mutex
	now   time.Time
	heapv testHeap
	seq   uint64
}

// NewTestScheduler creates a TestScheduler with its virtual clock at
// the Unix epoch.
func NewTestScheduler() *TestScheduler {
	return &TestScheduler{now: time.Unix(0, 0)}
}

// Now returns the current virtual time.
func (t *TestScheduler) Now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

// AdvanceTimeBy moves the virtual clock forward by d and runs every
// task now due, in due-time then FIFO-submission order.
func (t *TestScheduler) AdvanceTimeBy(d time.Duration) {
	t.AdvanceTimeTo(t.Now().Add(d))
}

// AdvanceTimeTo moves the virtual clock to at least target and runs
// every task due at or before it. A target behind the current clock is
// a no-op.
func (t *TestScheduler) AdvanceTimeTo(target time.Time) {
	for {
		t.mu.Lock()
		if len(t.heapv) == 0 || t.heapv[0].due.After(target) {
			if t.now.Before(target) {
				t.now = target
			}
			t.mu.Unlock()
			return
		}
		e := heap.Pop(&t.heapv).(*testEntry)
		t.now = e.due
		t.mu.Unlock()
		if !e.cancelled.IsDisposed() {
			e.fire()
		}
	}
}

// TriggerActions runs every task due at or before the current virtual
// time without moving the clock forward.
func (t *TestScheduler) TriggerActions() {
	t.AdvanceTimeTo(t.Now())
}

func (t *TestScheduler) scheduleAt(due time.Time, fire func()) *cancelToken {
	tok := &cancelToken{}
	t.mu.Lock()
	t.seq++
	heap.Push(&t.heapv, &testEntry{due: due, seq: t.seq, fire: fire, cancelled: tok})
	t.mu.Unlock()
	return tok
}

// CreateWorker returns a sequential worker whose tasks run inline, in
// order, at whatever virtual time they become due — there is no
// concurrency to serialize since everything is driven by the test
// goroutine calling AdvanceTimeBy/TriggerActions.
func (t *TestScheduler) CreateWorker() Worker {
	return &testWorker{sched: t}
}

func (t *TestScheduler) ScheduleDirect(task Task) disposable.Disposable {
	return t.CreateWorker().Schedule(task)
}

func (t *TestScheduler) ScheduleDirectDelayed(task Task, delay time.Duration) disposable.Disposable {
	return t.CreateWorker().ScheduleDelayed(task, delay)
}

func (t *TestScheduler) SchedulePeriodicallyDirect(task Task, initial, period time.Duration) disposable.Disposable {
	return t.CreateWorker().SchedulePeriodically(task, initial, period)
}

type cancelToken struct {
	disposed bool
}

func (c *cancelToken) Dispose()          { c.disposed = true }
func (c *cancelToken) IsDisposed() bool  { return c.disposed }

type testEntry struct {
	due       time.Time
	seq       uint64
	fire      func()
	cancelled *cancelToken
}

type testHeap []*testEntry

func (h testHeap) Len() int { return len(h) }
func (h testHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h testHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *testHeap) Push(x any)   { *h = append(*h, x.(*testEntry)) }
func (h *testHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

type testWorker struct {
	sched     *TestScheduler
	disposed  bool
	mu        sync.Mutex
}

func (w *testWorker) Schedule(task Task) disposable.Disposable {
	return w.ScheduleDelayed(task, 0)
}

func (w *testWorker) ScheduleDelayed(task Task, delay time.Duration) disposable.Disposable {
	w.mu.Lock()
	due := w.sched.Now().Add(delay)
	w.mu.Unlock()
	return w.sched.scheduleAt(due, func() {
		w.mu.Lock()
		disposed := w.disposed
		w.mu.Unlock()
		if !disposed {
			task()
		}
	})
}

func (w *testWorker) SchedulePeriodically(task Task, initial, period time.Duration) disposable.Disposable {
	var slot disposable.MultipleAssignment
	var tick func()
	tick = func() {
		task()
		if slot.IsDisposed() || w.disposed {
			return
		}
		slot.Replace(w.ScheduleDelayed(tick, period))
	}
	slot.Replace(w.ScheduleDelayed(tick, initial))
	return &slot
}

func (w *testWorker) Dispose() {
	w.mu.Lock()
	w.disposed = true
	w.mu.Unlock()
}
