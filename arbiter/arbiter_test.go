// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arbiter_test

import (
	"errors"
	"sync"
	"testing"

	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/arbiter"
)

type recordingHandle struct {
	mu        sync.Mutex
	requested int64
	cancelled bool
}

func (h *recordingHandle) Request(n int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requested += n
}

func (h *recordingHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = true
}

func (h *recordingHandle) snapshot() (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requested, h.cancelled
}

func withCapturedError(t *testing.T, f func()) error {
	t.Helper()
	var captured error
	rxcore.Plugins.SetErrorHandler(func(err error) { captured = err })
	t.Cleanup(func() { rxcore.Plugins.SetErrorHandler(nil) })
	f()
	return captured
}

func TestSingleAssignmentBuffersRequestBeforeSet(t *testing.T) {
	var s arbiter.SingleAssignment
	s.Request(5)
	s.Request(3)

	h := &recordingHandle{}
	if !s.Set(h) {
		t.Fatalf("Set on a fresh SingleAssignment returned false")
	}
	if n, _ := h.snapshot(); n != 8 {
		t.Fatalf("forwarded pending request = %d, want 8", n)
	}
}

func TestSingleAssignmentSecondSetCancelsAndReportsProtocolError(t *testing.T) {
	var s arbiter.SingleAssignment
	first := &recordingHandle{}
	second := &recordingHandle{}
	s.Set(first)

	err := withCapturedError(t, func() {
		if s.Set(second) {
			t.Fatalf("second Set returned true, want false")
		}
	})
	if !errors.Is(err, rxcore.ErrSubscriptionAlreadySet) {
		t.Fatalf("captured error = %v, want ErrSubscriptionAlreadySet", err)
	}
	if _, cancelled := second.snapshot(); !cancelled {
		t.Fatalf("second handle not cancelled")
	}
	if _, cancelled := first.snapshot(); cancelled {
		t.Fatalf("first handle cancelled by a rejected second Set")
	}
}

func TestSingleAssignmentNonPositiveRequestReportsProtocolError(t *testing.T) {
	var s arbiter.SingleAssignment
	h := &recordingHandle{}
	s.Set(h)

	err := withCapturedError(t, func() { s.Request(0) })
	if !errors.Is(err, rxcore.ErrRequestNonPositive) {
		t.Fatalf("captured error = %v, want ErrRequestNonPositive", err)
	}
	if n, _ := h.snapshot(); n != 0 {
		t.Fatalf("demand forwarded = %d, want 0", n)
	}
}

func TestSingleAssignmentCancelIsIdempotentAndRejectsLateSet(t *testing.T) {
	var s arbiter.SingleAssignment
	h := &recordingHandle{}
	s.Set(h)
	s.Cancel()
	s.Cancel()
	if !s.IsCancelled() {
		t.Fatalf("IsCancelled = false after Cancel")
	}
	if _, cancelled := h.snapshot(); !cancelled {
		t.Fatalf("installed handle not cancelled")
	}

	late := &recordingHandle{}
	if s.Set(late) {
		t.Fatalf("Set after Cancel returned true")
	}
	if _, cancelled := late.snapshot(); !cancelled {
		t.Fatalf("handle set after Cancel not cancelled")
	}
}

func TestSerialTransfersPendingRequestToNewHandle(t *testing.T) {
	var s arbiter.Serial
	first := &recordingHandle{}
	s.Set(first)
	s.Request(4)

	second := &recordingHandle{}
	s.Set(second)

	if _, cancelled := first.snapshot(); !cancelled {
		t.Fatalf("previous handle not cancelled on reassignment")
	}
	if n, _ := second.snapshot(); n != 4 {
		t.Fatalf("new handle received %d, want the accumulated 4", n)
	}

	s.Request(2)
	if n, _ := second.snapshot(); n != 6 {
		t.Fatalf("new handle received %d after further Request, want 6", n)
	}
}

func TestSerialCancelDisposesCurrentAndRejectsLateSet(t *testing.T) {
	var s arbiter.Serial
	h := &recordingHandle{}
	s.Set(h)
	s.Cancel()
	s.Cancel()

	if _, cancelled := h.snapshot(); !cancelled {
		t.Fatalf("current handle not cancelled")
	}
	late := &recordingHandle{}
	s.Set(late)
	if _, cancelled := late.snapshot(); !cancelled {
		t.Fatalf("handle set after Cancel not cancelled immediately")
	}
}

func TestFullArbiterAppliesEntriesInOrderAgainstCurrentHandle(t *testing.T) {
	var f arbiter.Full
	h := &recordingHandle{}

	// Enqueued before any handle is set: buffered as pending demand.
	f.Request(2)
	f.Set(h)
	f.Request(3)
	f.Produced(1)

	deadline := func() bool {
		for i := 0; i < 1000; i++ {
			if n, _ := h.snapshot(); n == 5 {
				return true
			}
		}
		return false
	}
	if !deadline() {
		n, _ := h.snapshot()
		t.Fatalf("handle received %d total, want 5 (2 pending + 3 live)", n)
	}
}

func TestFullArbiterCancelIsIdempotent(t *testing.T) {
	var f arbiter.Full
	h := &recordingHandle{}
	f.Set(h)
	for i := 0; i < 100; i++ {
		f.Produced(0)
	}
	f.Cancel()
	f.Cancel()
	if !f.IsCancelled() {
		t.Fatalf("IsCancelled = false after Cancel")
	}
}
