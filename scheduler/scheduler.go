// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler implements the scheduler abstraction:
// a factory of [Worker]s, each delivering scheduled tasks in strict
// sequential, non-overlapping order, plus an executor-backed
// implementation and a virtual-clock test scheduler for deterministic
// timing tests.
package scheduler

import (
	"time"

	"code.hybscloud.com/rxcore/disposable"
)

// Task is a unit of scheduled work.
type Task func()

// Worker schedules tasks in strict FIFO, non-overlapping order relative
// to every other task scheduled on the same Worker. Disposing a Worker
// cancels every pending task; the disposal is idempotent.
type Worker interface {
	disposable.Disposable

	// Schedule runs task as soon as this worker is free.
	Schedule(task Task) disposable.Disposable
	// ScheduleDelayed runs task after delay, once this worker is free
	// at or after that time.
	ScheduleDelayed(task Task, delay time.Duration) disposable.Disposable
	// SchedulePeriodically runs task after initial, then every period
	// until disposed. Ticks scheduled for the same instant run in FIFO
	// submission order.
	SchedulePeriodically(task Task, initial, period time.Duration) disposable.Disposable
}

// Scheduler is a factory of [Worker]s plus direct-scheduling
// convenience methods that create and immediately use a throwaway
// worker.
type Scheduler interface {
	CreateWorker() Worker
	ScheduleDirect(task Task) disposable.Disposable
	ScheduleDirectDelayed(task Task, delay time.Duration) disposable.Disposable
	SchedulePeriodicallyDirect(task Task, initial, period time.Duration) disposable.Disposable
}
