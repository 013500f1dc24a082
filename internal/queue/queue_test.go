// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/rxcore/internal/queue"
)

func TestSPSCFIFOAcrossChunkBoundary(t *testing.T) {
	q := queue.NewSPSC[int](4)
	const n = 37 // deliberately not a multiple of the chunk size
	for i := 0; i < n; i++ {
		q.Offer(i)
	}
	if q.IsEmpty() {
		t.Fatalf("IsEmpty = true after Offer")
	}
	if v, ok := q.Peek(); !ok || v != 0 {
		t.Fatalf("Peek = %d,%v, want 0,true", v, ok)
	}
	for i := 0; i < n; i++ {
		v, ok := q.Poll()
		if !ok || v != i {
			t.Fatalf("Poll(%d) = %d,%v, want %d,true", i, v, ok, i)
		}
	}
	if _, ok := q.Poll(); ok {
		t.Fatalf("Poll on drained queue returned ok=true")
	}
	if !q.IsEmpty() {
		t.Fatalf("IsEmpty = false on drained queue")
	}
}

func TestSPSCClear(t *testing.T) {
	q := queue.NewSPSC[string](2)
	q.Offer("a")
	q.Offer("b")
	q.Offer("c")
	q.Clear()
	if !q.IsEmpty() {
		t.Fatalf("IsEmpty = false after Clear")
	}
}

func TestMPSCSingleProducerFIFO(t *testing.T) {
	q := queue.NewMPSC[int](4)
	const n = 50
	for i := 0; i < n; i++ {
		q.Offer(i)
	}
	for i := 0; i < n; i++ {
		v, ok := q.Poll()
		if !ok || v != i {
			t.Fatalf("Poll(%d) = %d,%v, want %d,true", i, v, ok, i)
		}
	}
	if !q.IsEmpty() {
		t.Fatalf("IsEmpty = false on drained queue")
	}
}

func TestMPSCConcurrentProducersPreserveMultiset(t *testing.T) {
	q := queue.NewMPSC[int](8)
	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Offer(p*perProducer + i)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool, producers*perProducer)
	count := 0
	for {
		v, ok := q.Poll()
		if !ok {
			break
		}
		if seen[v] {
			t.Fatalf("value %d observed twice", v)
		}
		seen[v] = true
		count++
	}
	if count != producers*perProducer {
		t.Fatalf("drained %d values, want %d", count, producers*perProducer)
	}
}

func TestMPSCClear(t *testing.T) {
	q := queue.NewMPSC[int](4)
	for i := 0; i < 10; i++ {
		q.Offer(i)
	}
	q.Clear()
	if !q.IsEmpty() {
		t.Fatalf("IsEmpty = false after Clear")
	}
}
