// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disposable_test

import (
	"testing"

	"code.hybscloud.com/rxcore/disposable"
)

type countingDisposable struct {
	n *int
}

func (c countingDisposable) Dispose() { *c.n++ }

func TestCompositeDisposesAllMembersOnce(t *testing.T) {
	var a, b, c int
	comp := disposable.NewComposite(countingDisposable{&a}, countingDisposable{&b})
	comp.Add(countingDisposable{&c})

	comp.Dispose()
	comp.Dispose() // idempotent

	if a != 1 || b != 1 || c != 1 {
		t.Fatalf("dispose counts = %d,%d,%d, want 1,1,1", a, b, c)
	}
}

func TestCompositeAddAfterDisposeDisposesImmediately(t *testing.T) {
	comp := disposable.NewComposite()
	comp.Dispose()

	var n int
	token, added := comp.Add(countingDisposable{&n})
	if added {
		t.Fatalf("Add after dispose reported added=true")
	}
	if token != 0 {
		t.Fatalf("Add after dispose returned token %d, want 0", token)
	}
	if n != 1 {
		t.Fatalf("member disposed %d times, want 1", n)
	}
}

func TestCompositeRemoveDoesNotDispose(t *testing.T) {
	comp := disposable.NewComposite()
	var n int
	token, _ := comp.Add(countingDisposable{&n})
	if !comp.Remove(token) {
		t.Fatalf("Remove reported false for a present token")
	}
	if comp.Size() != 0 {
		t.Fatalf("Size = %d, want 0", comp.Size())
	}
	comp.Dispose()
	if n != 0 {
		t.Fatalf("removed member disposed, want untouched")
	}
}

func TestSerialReplaceDisposesOutgoing(t *testing.T) {
	var s disposable.Serial
	var first, second int
	s.Replace(countingDisposable{&first})
	s.Replace(countingDisposable{&second})

	if first != 1 {
		t.Fatalf("outgoing value disposed %d times, want 1", first)
	}
	if second != 0 {
		t.Fatalf("current value disposed prematurely")
	}

	s.Dispose()
	if second != 1 {
		t.Fatalf("current value disposed %d times, want 1", second)
	}

	var late int
	s.Replace(countingDisposable{&late})
	if late != 1 {
		t.Fatalf("value assigned after dispose not disposed immediately")
	}
}

func TestMultipleAssignmentDoesNotDisposeOutgoing(t *testing.T) {
	var m disposable.MultipleAssignment
	var first, second int
	m.Replace(countingDisposable{&first})
	m.Replace(countingDisposable{&second})

	if first != 0 {
		t.Fatalf("outgoing value disposed, want untouched")
	}

	m.Dispose()
	if second != 1 {
		t.Fatalf("current value disposed %d times, want 1", second)
	}
	if first != 0 {
		t.Fatalf("previously-replaced value disposed by owner's Dispose, want untouched")
	}
}

func TestArrayCompositeSetDisposesOutgoingSlot(t *testing.T) {
	ac := disposable.NewArrayComposite(2)
	var a, b, c int
	ac.Set(0, countingDisposable{&a})
	ac.Set(0, countingDisposable{&b}) // replaces slot 0, disposing a
	ac.Set(1, countingDisposable{&c})

	if a != 1 {
		t.Fatalf("replaced slot 0 value disposed %d times, want 1", a)
	}

	ac.Dispose()
	if b != 1 || c != 1 {
		t.Fatalf("dispose counts = %d,%d, want 1,1", b, c)
	}
	if ac.IsDisposed() != true {
		t.Fatalf("IsDisposed = false after Dispose")
	}
}

func TestFuncAdapter(t *testing.T) {
	called := 0
	var d disposable.Disposable = disposable.Func(func() { called++ })
	d.Dispose()
	d.Dispose()
	if called != 2 {
		t.Fatalf("Func does not itself dedupe calls; called = %d, want 2", called)
	}
}
