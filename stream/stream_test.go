// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream_test

import (
	"reflect"
	"testing"

	"code.hybscloud.com/rxcore/stream"
)

// TestRangeTakeToList covers scenario 1: range emit 1..10,
// take(5), toList → [1,2,3,4,5], complete, no error.
func TestRangeTakeToList(t *testing.T) {
	src := stream.Take(stream.Range(1, 10), 5)
	got, err := stream.ToListBlocking(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestAllTrue covers scenario 2.
func TestAllTrue(t *testing.T) {
	src := stream.All(stream.Just(1, 2, 3), func(x int) bool { return x < 5 })
	got, err := stream.ToListBlocking(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != true {
		t.Fatalf("got %v, want [true]", got)
	}
}

// TestAllFalse covers scenario 3.
func TestAllFalse(t *testing.T) {
	src := stream.All(stream.Just(1, 2, 3), func(x int) bool { return x < 3 })
	got, err := stream.ToListBlocking(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != false {
		t.Fatalf("got %v, want [false]", got)
	}
}

// TestEmptyTakeLast covers scenario 4: empty().takeLast(1)
// emits no values, then completes.
func TestEmptyTakeLast(t *testing.T) {
	src := stream.TakeLast(stream.Empty[int](), 1)
	got, err := stream.ToListBlocking(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

// TestAllEmptySourceDegenerate is the boundary behavior where an empty
// source into all(pred) emits true then completes.
func TestAllEmptySourceDegenerate(t *testing.T) {
	src := stream.All(stream.Empty[int](), func(int) bool { return false })
	got, err := stream.ToListBlocking(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != true {
		t.Fatalf("got %v, want [true]", got)
	}
}

func TestMap(t *testing.T) {
	src := stream.Map(stream.FromSlice([]int{1, 2, 3, 4}), func(x int) int { return 2 * x })
	got, err := stream.ToListBlocking(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{2, 4, 6, 8}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTakeZero(t *testing.T) {
	src := stream.Take(stream.Range(1, 10), 0)
	got, err := stream.ToListBlocking(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}
