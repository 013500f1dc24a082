// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/rxcore/disposable"
	"code.hybscloud.com/rxcore/internal/queue"

	rxcore "code.hybscloud.com/rxcore"
)

// ExecutorScheduler is an executor-backed [Scheduler]: every worker
// drains an unbounded MPSC task queue with the same WIP-CAS idiom
// every buffering operator uses, and pure
// delayed tasks are routed to one shared timer-driven goroutine per
// scheduler instance whose firing re-submits the now-immediate task to
// its worker.
type ExecutorScheduler struct {
	delayed *delayedExecutor
}

// NewExecutorScheduler creates an ExecutorScheduler. purge controls the
// cancelled-delayed-task sweep; pass [PurgeConfigFromEnv] to honor the
// environment configuration.
func NewExecutorScheduler(purge PurgeConfig) *ExecutorScheduler {
	s := &ExecutorScheduler{delayed: newDelayedExecutor(purge)}
	return s
}

// CreateWorker returns a new sequential worker backed by this
// scheduler's shared delayed-task executor.
func (s *ExecutorScheduler) CreateWorker() Worker {
	return newExecutorWorker(s.delayed)
}

// ScheduleDirect runs task on a fresh, throwaway worker.
func (s *ExecutorScheduler) ScheduleDirect(task Task) disposable.Disposable {
	w := s.CreateWorker()
	d := w.Schedule(task)
	return disposable.Func(func() { d.Dispose(); w.Dispose() })
}

// ScheduleDirectDelayed runs task after delay on a fresh worker.
func (s *ExecutorScheduler) ScheduleDirectDelayed(task Task, delay time.Duration) disposable.Disposable {
	w := s.CreateWorker()
	d := w.ScheduleDelayed(task, delay)
	return disposable.Func(func() { d.Dispose(); w.Dispose() })
}

// SchedulePeriodicallyDirect runs task periodically on a fresh worker.
func (s *ExecutorScheduler) SchedulePeriodicallyDirect(task Task, initial, period time.Duration) disposable.Disposable {
	w := s.CreateWorker()
	d := w.SchedulePeriodically(task, initial, period)
	return disposable.Func(func() { d.Dispose(); w.Dispose() })
}

// Shutdown stops the shared delayed-task goroutine. Workers created
// before Shutdown continue to process already-queued immediate tasks.
func (s *ExecutorScheduler) Shutdown() {
	s.delayed.stop()
}

type taskEntry struct {
	task      Task
	cancelled *atomix.Bool
}

type executorWorker struct {
	rxcore.WIP
	queue   *queue.MPSC[taskEntry]
	delayed *delayedExecutor
	running atomix.Bool
	disposed atomix.Bool
}

func newExecutorWorker(delayed *delayedExecutor) *executorWorker {
	return &executorWorker{queue: queue.NewMPSC[taskEntry](0), delayed: delayed}
}

func (w *executorWorker) offer(e taskEntry) {
	if w.disposed.LoadAcquire() {
		if e.cancelled != nil {
			e.cancelled.StoreRelease(true)
		}
		return
	}
	w.queue.Offer(e)
	if w.Enter() == 0 {
		go w.DrainLoop(w.drainOnce)
	}
}

func (w *executorWorker) drainOnce() {
	for {
		e, ok := w.queue.Poll()
		if !ok {
			return
		}
		if e.cancelled != nil && e.cancelled.LoadAcquire() {
			continue
		}
		if w.disposed.LoadAcquire() {
			continue
		}
		e.task()
	}
}

func (w *executorWorker) Schedule(task Task) disposable.Disposable {
	cancelled := &atomix.Bool{}
	w.offer(taskEntry{task: task, cancelled: cancelled})
	return disposable.Func(func() { cancelled.StoreRelease(true) })
}

func (w *executorWorker) ScheduleDelayed(task Task, delay time.Duration) disposable.Disposable {
	if delay <= 0 {
		return w.Schedule(task)
	}
	cancelled := &atomix.Bool{}
	w.delayed.schedule(delay, func() {
		w.offer(taskEntry{task: task, cancelled: cancelled})
	}, cancelled)
	return disposable.Func(func() { cancelled.StoreRelease(true) })
}

func (w *executorWorker) SchedulePeriodically(task Task, initial, period time.Duration) disposable.Disposable {
	var slot disposable.MultipleAssignment
	var tick func()
	tick = func() {
		task()
		if slot.IsDisposed() {
			return
		}
		slot.Replace(w.ScheduleDelayed(tick, period))
	}
	slot.Replace(w.ScheduleDelayed(tick, initial))
	return &slot
}

func (w *executorWorker) Dispose() {
	w.disposed.StoreRelease(true)
}

// delayedExecutor is the single shared timer goroutine per scheduler
// instance. Pending entries sit in a min-heap ordered by due time, tied
// broken by submission sequence (FIFO for same-instant entries). A
// periodic purge sweep drops cancelled entries early so a long-lived
// scheduler does not accumulate dead heap nodes.
type delayedExecutor struct {
	mu      sync.Mutex
	heapv   delayedHeap
	seq     uint64
	wake    chan struct{}
	stopped atomix.Bool
	purge   PurgeConfig
}

type delayedEntry struct {
	due       time.Time
	seq       uint64
	fire      func()
	cancelled *atomix.Bool
}

type delayedHeap []*delayedEntry

func (h delayedHeap) Len() int { return len(h) }
func (h delayedHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h delayedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *delayedHeap) Push(x any)        { *h = append(*h, x.(*delayedEntry)) }
func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

func newDelayedExecutor(purge PurgeConfig) *delayedExecutor {
	d := &delayedExecutor{wake: make(chan struct{}, 1), purge: purge}
	go d.run()
	if purge.Enabled {
		go d.purgeLoop()
	}
	return d
}

func (d *delayedExecutor) schedule(delay time.Duration, fire func(), cancelled *atomix.Bool) {
	d.mu.Lock()
	d.seq++
	heap.Push(&d.heapv, &delayedEntry{due: time.Now().Add(delay), seq: d.seq, fire: fire, cancelled: cancelled})
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *delayedExecutor) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		d.mu.Lock()
		var wait time.Duration
		if len(d.heapv) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(d.heapv[0].due)
			if wait < 0 {
				wait = 0
			}
		}
		d.mu.Unlock()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
			d.fireDue()
		case <-d.wake:
			if d.stopped.LoadAcquire() {
				return
			}
			continue
		}
		if d.stopped.LoadAcquire() {
			return
		}
	}
}

func (d *delayedExecutor) fireDue() {
	now := time.Now()
	for {
		d.mu.Lock()
		if len(d.heapv) == 0 || d.heapv[0].due.After(now) {
			d.mu.Unlock()
			return
		}
		e := heap.Pop(&d.heapv).(*delayedEntry)
		d.mu.Unlock()
		if e.cancelled != nil && e.cancelled.LoadAcquire() {
			continue
		}
		e.fire()
	}
}

func (d *delayedExecutor) purgeLoop() {
	ticker := time.NewTicker(d.purge.Period)
	defer ticker.Stop()
	for range ticker.C {
		if d.stopped.LoadAcquire() {
			return
		}
		d.mu.Lock()
		kept := d.heapv[:0]
		for _, e := range d.heapv {
			if e.cancelled != nil && e.cancelled.LoadAcquire() {
				continue
			}
			kept = append(kept, e)
		}
		d.heapv = kept
		heap.Init(&d.heapv)
		d.mu.Unlock()
	}
}

func (d *delayedExecutor) stop() {
	d.stopped.StoreRelease(true)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}
