// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/rxcore/scheduler"
)

func TestTestSchedulerAdvanceTimeByRunsDueTasksInOrder(t *testing.T) {
	sched := scheduler.NewTestScheduler()
	w := sched.CreateWorker()

	var order []string
	w.ScheduleDelayed(func() { order = append(order, "b") }, 200*time.Millisecond)
	w.ScheduleDelayed(func() { order = append(order, "a") }, 100*time.Millisecond)

	sched.AdvanceTimeBy(50 * time.Millisecond)
	if len(order) != 0 {
		t.Fatalf("tasks fired before due: %v", order)
	}

	sched.AdvanceTimeBy(200 * time.Millisecond)
	if want := []string{"a", "b"}; !equalStrings(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestTestSchedulerSameInstantFIFO(t *testing.T) {
	sched := scheduler.NewTestScheduler()
	w := sched.CreateWorker()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		w.ScheduleDelayed(func() { order = append(order, i) }, 10*time.Millisecond)
	}
	sched.AdvanceTimeBy(10 * time.Millisecond)
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want strictly increasing submission order", order)
		}
	}
}

func TestTestSchedulerDisposeCancelsPendingTask(t *testing.T) {
	sched := scheduler.NewTestScheduler()
	w := sched.CreateWorker()

	fired := false
	d := w.ScheduleDelayed(func() { fired = true }, 100*time.Millisecond)
	d.Dispose()
	sched.AdvanceTimeBy(200 * time.Millisecond)
	if fired {
		t.Fatalf("disposed task fired")
	}
}

func TestTestSchedulerSchedulePeriodically(t *testing.T) {
	sched := scheduler.NewTestScheduler()
	w := sched.CreateWorker()

	count := 0
	d := w.SchedulePeriodically(func() { count++ }, 0, 100*time.Millisecond)
	sched.TriggerActions() // the initial (zero-delay) tick
	sched.AdvanceTimeBy(100 * time.Millisecond)
	sched.AdvanceTimeBy(100 * time.Millisecond)
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	d.Dispose()
	sched.AdvanceTimeBy(100 * time.Millisecond)
	if count != 3 {
		t.Fatalf("count after dispose = %d, want still 3", count)
	}
}

func TestExecutorSchedulerWorkerRunsSequentially(t *testing.T) {
	sched := scheduler.NewExecutorScheduler(scheduler.DefaultPurgeConfig())
	defer sched.Shutdown()
	w := sched.CreateWorker()
	defer w.Dispose()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		i := i
		w.Schedule(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want FIFO submission order", order)
		}
	}
}

func TestExecutorSchedulerScheduleDelayed(t *testing.T) {
	sched := scheduler.NewExecutorScheduler(scheduler.DefaultPurgeConfig())
	defer sched.Shutdown()
	w := sched.CreateWorker()
	defer w.Dispose()

	done := make(chan struct{})
	w.ScheduleDelayed(func() { close(done) }, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("delayed task never fired")
	}
}

func TestExecutorSchedulerDisposeCancelsBeforeRun(t *testing.T) {
	sched := scheduler.NewExecutorScheduler(scheduler.DefaultPurgeConfig())
	defer sched.Shutdown()
	w := sched.CreateWorker()
	defer w.Dispose()

	fired := make(chan struct{}, 1)
	d := w.ScheduleDelayed(func() { fired <- struct{}{} }, 50*time.Millisecond)
	d.Dispose()

	select {
	case <-fired:
		t.Fatalf("cancelled task still fired")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestExecutorSchedulerWorkerDisposeStopsFurtherTasks(t *testing.T) {
	sched := scheduler.NewExecutorScheduler(scheduler.DefaultPurgeConfig())
	defer sched.Shutdown()
	w := sched.CreateWorker()

	ran := make(chan struct{}, 1)
	w.Schedule(func() { ran <- struct{}{} })
	<-ran

	w.Dispose()
	w.Dispose() // idempotent

	fired := false
	w.Schedule(func() { fired = true })
	time.Sleep(20 * time.Millisecond)
	if fired {
		t.Fatalf("task scheduled after Dispose ran")
	}
}

func TestPurgeConfigFromEnvDefaults(t *testing.T) {
	cfg := scheduler.PurgeConfigFromEnv()
	if !cfg.Enabled {
		t.Fatalf("Enabled = false, want the default true with no env set")
	}
	if cfg.Period != time.Second {
		t.Fatalf("Period = %v, want 1s default", cfg.Period)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
