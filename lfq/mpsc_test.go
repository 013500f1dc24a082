// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/rxcore/lfq"
)

func TestMPSCCapacityRoundsToPow2(t *testing.T) {
	q := lfq.NewMPSC[int](3)
	if got := q.Cap(); got != 4 {
		t.Fatalf("Cap() = %d, want 4", got)
	}
}

func TestMPSCSingleProducerFIFO(t *testing.T) {
	q := lfq.NewMPSC[int](16)
	const n = 10
	for i := 0; i < n; i++ {
		if err := q.Enqueue(&i); err != nil {
			t.Fatalf("Enqueue(%d) = %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		v, err := q.Dequeue()
		if err != nil || v != i {
			t.Fatalf("Dequeue(%d) = %d,%v, want %d,nil", i, v, err, i)
		}
	}
}

func TestMPSCDequeueEmptyReturnsWouldBlock(t *testing.T) {
	q := lfq.NewMPSC[int](4)
	if _, err := q.Dequeue(); !lfq.IsWouldBlock(err) {
		t.Fatalf("Dequeue on empty queue = %v, want ErrWouldBlock", err)
	}
}

func TestMPSCDrainAllowsFullDequeueAfterDrain(t *testing.T) {
	q := lfq.NewMPSC[int](2)
	for i := 0; i < 2; i++ {
		if err := q.Enqueue(&i); err != nil {
			t.Fatalf("Enqueue(%d) = %v", i, err)
		}
	}
	q.Drain()
	for i := 0; i < 2; i++ {
		if _, err := q.Dequeue(); err != nil {
			t.Fatalf("Dequeue(%d) after Drain = %v", i, err)
		}
	}
}

func TestMPSCConcurrentProducersPreserveMultiset(t *testing.T) {
	if lfq.RaceEnabled {
		t.Skip("concurrent MPSC producers trip the race detector on acquire-release memory ordering it cannot observe")
	}

	q := lfq.NewMPSC[int](2048)
	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := p*perProducer + i
				for q.Enqueue(&v) != nil {
					// queue momentarily full; retry
				}
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool, producers*perProducer)
	count := 0
	for count < producers*perProducer {
		v, err := q.Dequeue()
		if err != nil {
			continue
		}
		if seen[v] {
			t.Fatalf("value %d observed twice", v)
		}
		seen[v] = true
		count++
	}
}
