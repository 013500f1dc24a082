// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package subject

import (
	"sync"

	rxcore "code.hybscloud.com/rxcore"
)

// Async only ever delivers the last value observed, and only once the
// source completes normally: subscribers attached before completion see
// nothing until then; a source that errors delivers no value at all,
// only the error.
type Async[T any] struct {
	mu       sync.Mutex
	hasValue bool
	last     T
	reg      registry[T]
}

// NewAsync creates an empty Async subject.
func NewAsync[T any]() *Async[T] { return &Async[T]{} }

// Subscribe attaches s. A subject that has already terminated replays
// the final value (if completion was normal and a value was observed)
// followed by the terminal immediately.
func (a *Async[T]) Subscribe(s rxcore.Sink[T]) {
	sub := newSubscription[T](s)
	s.OnSubscribe(sub)
	if term, ok := a.reg.terminalNotification(); ok {
		if term.Kind == rxcore.KindComplete {
			a.mu.Lock()
			v, hasV := a.last, a.hasValue
			a.mu.Unlock()
			if hasV {
				sub.offer(rxcore.Next(v))
			}
		}
		sub.offer(term)
		return
	}
	a.reg.add(sub)
}

// OnSubscribe is a no-op acceptance.
func (a *Async[T]) OnSubscribe(rxcore.Handle) {}

// OnNext records v as the latest value; it is not delivered until
// OnComplete.
func (a *Async[T]) OnNext(v T) {
	a.mu.Lock()
	a.hasValue = true
	a.last = v
	a.mu.Unlock()
}

// OnError terminates the subject with err; no value is ever delivered.
func (a *Async[T]) OnError(err error) {
	a.reg.emitTerminal(rxcore.Error[T](err))
}

// OnComplete delivers the last observed value, if any, then the
// completion signal.
func (a *Async[T]) OnComplete() {
	a.mu.Lock()
	v, ok := a.last, a.hasValue
	a.mu.Unlock()
	if ok {
		a.reg.emitNext(v)
	}
	a.reg.emitTerminal(rxcore.Complete[T]())
}

// HasSubscribers reports whether at least one subscriber is attached.
func (a *Async[T]) HasSubscribers() bool { return a.reg.subscriberCount() > 0 }
