// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package subject_test

import (
	"reflect"
	"testing"

	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/subject"
)

type recordingSink[T any] struct {
	values []T
	errs   []error
	completes int
}

func (r *recordingSink[T]) OnSubscribe(h rxcore.Handle) { h.Request(rxcore.MaxRequest) }
func (r *recordingSink[T]) OnNext(v T)                  { r.values = append(r.values, v) }
func (r *recordingSink[T]) OnError(err error)            { r.errs = append(r.errs, err) }
func (r *recordingSink[T]) OnComplete()                  { r.completes++ }

// TestPublishSubject covers scenario 6: subscribe A, emit 42,
// subscribe B, emit 4711, complete. A sees [42,4711,complete]; B sees
// [4711,complete].
func TestPublishSubject(t *testing.T) {
	p := subject.NewPublish[int]()
	a := &recordingSink[int]{}
	p.Subscribe(a)
	p.OnNext(42)

	b := &recordingSink[int]{}
	p.Subscribe(b)
	p.OnNext(4711)
	p.OnComplete()

	if want := []int{42, 4711}; !reflect.DeepEqual(a.values, want) {
		t.Fatalf("A got %v, want %v", a.values, want)
	}
	if a.completes != 1 {
		t.Fatalf("A completes = %d, want 1", a.completes)
	}
	if want := []int{4711}; !reflect.DeepEqual(b.values, want) {
		t.Fatalf("B got %v, want %v", b.values, want)
	}
	if b.completes != 1 {
		t.Fatalf("B completes = %d, want 1", b.completes)
	}
}

// TestReplaySubjectLateSubscriber covers scenario 7: emit
// 1,2,3,complete; a late subscriber sees [1,2,3,complete]; so does a
// second late subscriber.
func TestReplaySubjectLateSubscriber(t *testing.T) {
	r := subject.NewReplayUnbounded[int]()
	r.OnNext(1)
	r.OnNext(2)
	r.OnNext(3)
	r.OnComplete()

	late1 := &recordingSink[int]{}
	r.Subscribe(late1)
	want := []int{1, 2, 3}
	if !reflect.DeepEqual(late1.values, want) {
		t.Fatalf("late1 got %v, want %v", late1.values, want)
	}
	if late1.completes != 1 {
		t.Fatalf("late1 completes = %d, want 1", late1.completes)
	}

	late2 := &recordingSink[int]{}
	r.Subscribe(late2)
	if !reflect.DeepEqual(late2.values, want) {
		t.Fatalf("late2 got %v, want %v", late2.values, want)
	}
	if late2.completes != 1 {
		t.Fatalf("late2 completes = %d, want 1", late2.completes)
	}
}

func TestReplaySubjectSizeBounded(t *testing.T) {
	r := subject.NewReplaySize[int](2)
	r.OnNext(1)
	r.OnNext(2)
	r.OnNext(3)

	s := &recordingSink[int]{}
	r.Subscribe(s)
	if want := []int{2, 3}; !reflect.DeepEqual(s.values, want) {
		t.Fatalf("got %v, want %v", s.values, want)
	}
}

func TestAsyncSubjectEmitsLastOnComplete(t *testing.T) {
	a := subject.NewAsync[int]()
	s := &recordingSink[int]{}
	a.Subscribe(s)

	a.OnNext(1)
	a.OnNext(2)
	a.OnNext(3)
	if len(s.values) != 0 {
		t.Fatalf("values delivered before complete: %v", s.values)
	}
	a.OnComplete()
	if want := []int{3}; !reflect.DeepEqual(s.values, want) {
		t.Fatalf("got %v, want %v", s.values, want)
	}
	if s.completes != 1 {
		t.Fatalf("completes = %d, want 1", s.completes)
	}
}

func TestAsyncSubjectLateSubscriberSeesLastValue(t *testing.T) {
	a := subject.NewAsync[int]()
	a.OnNext(1)
	a.OnNext(2)
	a.OnComplete()

	s := &recordingSink[int]{}
	a.Subscribe(s)
	if want := []int{2}; !reflect.DeepEqual(s.values, want) {
		t.Fatalf("got %v, want %v", s.values, want)
	}
}

func TestUnicastSubjectBuffersUntilAttach(t *testing.T) {
	u := subject.NewUnicast[int](4)
	u.OnNext(1)
	u.OnNext(2)

	s := &recordingSink[int]{}
	u.Subscribe(s)
	u.OnNext(3)
	u.OnComplete()

	if want := []int{1, 2, 3}; !reflect.DeepEqual(s.values, want) {
		t.Fatalf("got %v, want %v", s.values, want)
	}
}

func TestUnicastSubjectRejectsSecondSubscriber(t *testing.T) {
	u := subject.NewUnicast[int](4)
	first := &recordingSink[int]{}
	u.Subscribe(first)

	second := &recordingSink[int]{}
	u.Subscribe(second)
	if len(second.errs) != 1 {
		t.Fatalf("second subscriber errs = %v, want one protocol error", second.errs)
	}
	if !rxcore.IsProtocolViolation(second.errs[0]) {
		t.Fatalf("expected protocol violation, got %v", second.errs[0])
	}

	u.OnNext(1)
	if len(first.values) != 1 || first.values[0] != 1 {
		t.Fatalf("first subscriber unaffected: got %v", first.values)
	}
}
