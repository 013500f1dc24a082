// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"testing"

	"code.hybscloud.com/rxcore/lfq"
)

func TestSPSCCapacityRoundsToPow2(t *testing.T) {
	q := lfq.NewSPSC[int](3)
	if got := q.Cap(); got != 4 {
		t.Fatalf("Cap() = %d, want 4", got)
	}
}

func TestSPSCFIFOOrder(t *testing.T) {
	q := lfq.NewSPSC[int](4)
	for i := 0; i < 4; i++ {
		if err := q.Enqueue(&i); err != nil {
			t.Fatalf("Enqueue(%d) = %v", i, err)
		}
	}
	for i := 0; i < 4; i++ {
		v, err := q.Dequeue()
		if err != nil || v != i {
			t.Fatalf("Dequeue(%d) = %d,%v, want %d,nil", i, v, err, i)
		}
	}
}

func TestSPSCEnqueueFullReturnsWouldBlock(t *testing.T) {
	q := lfq.NewSPSC[int](2)
	a, b, c := 1, 2, 3
	if err := q.Enqueue(&a); err != nil {
		t.Fatalf("Enqueue(a) = %v", err)
	}
	if err := q.Enqueue(&b); err != nil {
		t.Fatalf("Enqueue(b) = %v", err)
	}
	if err := q.Enqueue(&c); !lfq.IsWouldBlock(err) {
		t.Fatalf("Enqueue on full queue = %v, want ErrWouldBlock", err)
	}
}

func TestSPSCDequeueEmptyReturnsWouldBlock(t *testing.T) {
	q := lfq.NewSPSC[int](2)
	if _, err := q.Dequeue(); !lfq.IsWouldBlock(err) {
		t.Fatalf("Dequeue on empty queue = %v, want ErrWouldBlock", err)
	}
}

func TestSPSCReusesSlotsAcrossWraparound(t *testing.T) {
	q := lfq.NewSPSC[int](2)
	for round := 0; round < 5; round++ {
		for i := 0; i < 2; i++ {
			v := round*2 + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("round %d: Enqueue(%d) = %v", round, i, err)
			}
		}
		for i := 0; i < 2; i++ {
			want := round*2 + i
			got, err := q.Dequeue()
			if err != nil || got != want {
				t.Fatalf("round %d: Dequeue = %d,%v, want %d,nil", round, got, err, want)
			}
		}
	}
}
