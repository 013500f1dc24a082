// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package subject

import rxcore "code.hybscloud.com/rxcore"

// Publish multicasts every value observed from the moment a subscriber
// attaches onward; a late subscriber sees nothing before its own
// subscribe.
type Publish[T any] struct {
	reg registry[T]
}

// NewPublish creates an empty Publish subject.
func NewPublish[T any]() *Publish[T] { return &Publish[T]{} }

// Subscribe attaches s. A subject that has already terminated replays
// only the terminal signal.
func (p *Publish[T]) Subscribe(s rxcore.Sink[T]) {
	sub := newSubscription[T](s)
	s.OnSubscribe(sub)
	p.reg.add(sub)
}

// OnSubscribe is a no-op acceptance: a Subject does not itself apply
// backpressure to its own upstream feed — it is a hub, not a
// backpressured stage, on the feeding side.
func (p *Publish[T]) OnSubscribe(rxcore.Handle) {}

// OnNext fans v out to every currently attached subscriber.
func (p *Publish[T]) OnNext(v T) { p.reg.emitNext(v) }

// OnError terminates the subject with err.
func (p *Publish[T]) OnError(err error) { p.reg.emitTerminal(rxcore.Error[T](err)) }

// OnComplete terminates the subject normally.
func (p *Publish[T]) OnComplete() { p.reg.emitTerminal(rxcore.Complete[T]()) }

// HasSubscribers reports whether at least one subscriber is attached.
func (p *Publish[T]) HasSubscribers() bool { return p.reg.subscriberCount() > 0 }

// HasComplete reports whether the subject already terminated.
func (p *Publish[T]) HasComplete() bool { return p.reg.isTerminated() }
