// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package operator

import (
	"code.hybscloud.com/atomix"
	rxcore "code.hybscloud.com/rxcore"
)

// WithLatestFrom emits combiner(t, latestOfOther) for each value t from
// main, once other has produced at least one value; values arriving
// before other has produced are dropped.
func WithLatestFrom[M any, O any, R any](main rxcore.Source[M], other rxcore.Source[O], combiner func(M, O) R) rxcore.Source[R] {
	return &withLatestFromOperator[M, O, R]{main: main, other: other, combiner: combiner}
}

type withLatestFromOperator[M any, O any, R any] struct {
	main     rxcore.Source[M]
	other    rxcore.Source[O]
	combiner func(M, O) R

	latest    atomix.Pointer[O]
	otherHas  atomix.Bool
	mainStarted atomix.Bool
	mainHandle  atomix.Pointer[rxcore.Handle]
	otherHandle rxcore.Handle

	downstream rxcore.Sink[R]
}

// cancelledSentinel marks a main-handle slot as permanently cancelled
// (other errored before main ever subscribed).
var cancelledSentinel rxcore.Handle = rxcore.NopHandle

func (w *withLatestFromOperator[M, O, R]) Subscribe(s rxcore.Sink[R]) {
	w.downstream = s
	w.other.Subscribe(&withLatestFromOtherSink[M, O, R]{op: w})
	w.main.Subscribe(&withLatestFromMainSink[M, O, R]{op: w})
}

func (w *withLatestFromOperator[M, O, R]) onMainSubscribe(h rxcore.Handle) {
	w.mainStarted.StoreRelease(true)
	if cur := w.mainHandle.LoadAcquire(); cur != nil && *cur == cancelledSentinel {
		h.Cancel()
		return
	}
	w.mainHandle.StoreRelease(&h)
	w.downstream.OnSubscribe(&withLatestFromHandle[M, O, R]{op: w, h: h})
}

func (w *withLatestFromOperator[M, O, R]) onMainNext(v M) {
	ptr := w.latest.LoadAcquire()
	if ptr == nil || !w.otherHas.LoadAcquire() {
		return
	}
	result := w.combiner(v, *ptr)
	w.downstream.OnNext(result)
}

func (w *withLatestFromOperator[M, O, R]) onMainError(err error) {
	if w.otherHandle != nil {
		w.otherHandle.Cancel()
	}
	w.downstream.OnError(err)
}

func (w *withLatestFromOperator[M, O, R]) onMainComplete() {
	if w.otherHandle != nil {
		w.otherHandle.Cancel()
	}
	w.downstream.OnComplete()
}

func (w *withLatestFromOperator[M, O, R]) onOtherSubscribe(h rxcore.Handle) {
	w.otherHandle = h
	h.Request(rxcore.MaxRequest)
}

func (w *withLatestFromOperator[M, O, R]) onOtherNext(v O) {
	w.latest.StoreRelease(&v)
	w.otherHas.StoreRelease(true)
}

func (w *withLatestFromOperator[M, O, R]) onOtherError(err error) {
	if !w.mainStarted.LoadAcquire() {
		w.mainHandle.StoreRelease(&cancelledSentinel)
		w.downstream.OnSubscribe(rxcore.NopHandle)
		w.downstream.OnError(err)
		return
	}
	if h := w.mainHandle.LoadAcquire(); h != nil {
		(*h).Cancel()
	}
	w.downstream.OnError(err)
}

func (w *withLatestFromOperator[M, O, R]) onOtherComplete() {
	// Other completing does not end main; main keeps emitting with the
	// last-seen value of other.
}

type withLatestFromMainSink[M any, O any, R any] struct{ op *withLatestFromOperator[M, O, R] }

func (s *withLatestFromMainSink[M, O, R]) OnSubscribe(h rxcore.Handle) { s.op.onMainSubscribe(h) }
func (s *withLatestFromMainSink[M, O, R]) OnNext(v M)                  { s.op.onMainNext(v) }
func (s *withLatestFromMainSink[M, O, R]) OnError(err error)           { s.op.onMainError(err) }
func (s *withLatestFromMainSink[M, O, R]) OnComplete()                 { s.op.onMainComplete() }

type withLatestFromOtherSink[M any, O any, R any] struct{ op *withLatestFromOperator[M, O, R] }

func (s *withLatestFromOtherSink[M, O, R]) OnSubscribe(h rxcore.Handle) { s.op.onOtherSubscribe(h) }
func (s *withLatestFromOtherSink[M, O, R]) OnNext(v O)                  { s.op.onOtherNext(v) }
func (s *withLatestFromOtherSink[M, O, R]) OnError(err error)           { s.op.onOtherError(err) }
func (s *withLatestFromOtherSink[M, O, R]) OnComplete()                 { s.op.onOtherComplete() }

type withLatestFromHandle[M any, O any, R any] struct {
	op *withLatestFromOperator[M, O, R]
	h  rxcore.Handle
}

func (h *withLatestFromHandle[M, O, R]) Request(n int64) { h.h.Request(n) }
func (h *withLatestFromHandle[M, O, R]) Cancel() {
	h.h.Cancel()
	if h.op.otherHandle != nil {
		h.op.otherHandle.Cancel()
	}
}
