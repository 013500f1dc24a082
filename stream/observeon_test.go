// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream_test

import (
	"reflect"
	"testing"

	"code.hybscloud.com/rxcore/scheduler"
	"code.hybscloud.com/rxcore/stream"
)

// TestObserveOnMap covers scenario 5: fromArray(1,2,3,4).
// observeOn(computationScheduler).map(x→2*x).toList → [2,4,6,8],
// complete, delivered via the scheduler's worker goroutine rather than
// the calling goroutine.
func TestObserveOnMap(t *testing.T) {
	sched := scheduler.NewExecutorScheduler(scheduler.DefaultPurgeConfig())

	src := stream.FromSlice([]int{1, 2, 3, 4})
	moved := stream.ObserveOn(src, sched)
	doubled := stream.Map(moved, func(x int) int { return 2 * x })

	got, err := stream.ToListBlocking(doubled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{2, 4, 6, 8}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
