// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package subject

import (
	"sync"

	rxcore "code.hybscloud.com/rxcore"
	"code.hybscloud.com/rxcore/internal/queue"
)

// Unicast buffers everything observed before its single subscriber
// attaches, then delivers it in order under ordinary backpressure. A
// second subscribe attempt is rejected with a protocol error and never
// reaches the first subscriber's stream.
type Unicast[T any] struct {
	mu        sync.Mutex
	buf       *queue.SPSC[rxcore.Notification[T]]
	sub       *subscription[T]
	attached  bool
	terminal  rxcore.Notification[T]
	hasTerm   bool
}

// NewUnicast creates an empty Unicast subject with the given initial
// backlog chunk size.
func NewUnicast[T any](chunkSize int) *Unicast[T] {
	return &Unicast[T]{buf: queue.NewSPSC[rxcore.Notification[T]](chunkSize)}
}

// Subscribe attaches s as the sole subscriber. A second call while a
// subscriber is already attached delivers only a protocol error to s
// and leaves the first subscriber untouched.
func (u *Unicast[T]) Subscribe(s rxcore.Sink[T]) {
	u.mu.Lock()
	if u.attached {
		u.mu.Unlock()
		s.OnSubscribe(rxcore.NopHandle)
		s.OnError(rxcore.NewProtocolError("unicast subject already has a subscriber"))
		return
	}
	u.attached = true
	sub := newSubscription[T](s)
	u.sub = sub
	backlog := make([]rxcore.Notification[T], 0)
	for {
		n, ok := u.buf.Poll()
		if !ok {
			break
		}
		backlog = append(backlog, n)
	}
	term, hasTerm := u.terminal, u.hasTerm
	u.mu.Unlock()

	s.OnSubscribe(sub)
	for _, n := range backlog {
		sub.offer(n)
	}
	if hasTerm {
		sub.offer(term)
	}
}

// OnSubscribe is a no-op acceptance.
func (u *Unicast[T]) OnSubscribe(rxcore.Handle) {}

// OnNext buffers v if no subscriber has attached yet, else delivers it
// directly to the single subscriber.
func (u *Unicast[T]) OnNext(v T) {
	u.mu.Lock()
	sub := u.sub
	if sub == nil {
		u.buf.Offer(rxcore.Next(v))
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()
	sub.offer(rxcore.Next(v))
}

// OnError terminates the subject with err.
func (u *Unicast[T]) OnError(err error) { u.terminate(rxcore.Error[T](err)) }

// OnComplete terminates the subject normally.
func (u *Unicast[T]) OnComplete() { u.terminate(rxcore.Complete[T]()) }

func (u *Unicast[T]) terminate(n rxcore.Notification[T]) {
	u.mu.Lock()
	if u.hasTerm {
		u.mu.Unlock()
		return
	}
	u.hasTerm = true
	u.terminal = n
	sub := u.sub
	u.mu.Unlock()
	if sub != nil {
		sub.offer(n)
	}
}

// HasSubscribers reports whether the single subscriber slot is taken.
func (u *Unicast[T]) HasSubscribers() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.attached
}
