// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package subject

import (
	"sync"
	"time"

	rxcore "code.hybscloud.com/rxcore"
)

type replayItem[T any] struct {
	v T
	t time.Time
}

// Replay buffers observed values and replays them to every new
// subscriber before switching it to live delivery: a late subscriber
// sees the full buffered history then the terminal. Three flavors
// share this type: size-bounded, time-bounded, and unbounded.
//
// Replay serializes its own OnNext against concurrent Subscribe calls
// (a single mutex guarding both the buffer mutation and the fan-out)
// so a subscriber that attaches mid-emission can never see a value
// twice (once via replay snapshot, once via live delivery) or miss it
// entirely.
type Replay[T any] struct {
	mu       sync.Mutex
	buf      []replayItem[T]
	maxSize  int // 0 = unbounded
	maxAge   time.Duration // 0 = unbounded age
	now      func() time.Time
	reg      registry[T]
}

// NewReplayUnbounded creates a Replay subject that retains every value
// for the lifetime of the subject.
func NewReplayUnbounded[T any]() *Replay[T] {
	return &Replay[T]{now: time.Now}
}

// NewReplaySize creates a Replay subject that retains only the most
// recent size values.
func NewReplaySize[T any](size int) *Replay[T] {
	if size < 1 {
		size = 1
	}
	return &Replay[T]{maxSize: size, now: time.Now}
}

// NewReplayTime creates a Replay subject that retains only values
// observed within maxAge of the current clock time. clock defaults to
// time.Now when nil (tests may supply a [rxcore.WIP]-free deterministic
// clock, e.g. a scheduler's virtual Now).
func NewReplayTime[T any](maxAge time.Duration, clock func() time.Time) *Replay[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Replay[T]{maxAge: maxAge, now: clock}
}

// Subscribe attaches s, first replaying the current buffered history in
// order, then switching s to live delivery. If the subject already
// terminated, only the buffered history plus the terminal is sent.
func (r *Replay[T]) Subscribe(s rxcore.Sink[T]) {
	sub := newSubscription[T](s)
	s.OnSubscribe(sub)

	r.mu.Lock()
	r.trimLocked()
	for _, item := range r.buf {
		sub.offer(rxcore.Next(item.v))
	}
	r.reg.add(sub)
	r.mu.Unlock()
}

func (r *Replay[T]) trimLocked() {
	if r.maxAge > 0 {
		cutoff := r.now().Add(-r.maxAge)
		i := 0
		for i < len(r.buf) && r.buf[i].t.Before(cutoff) {
			i++
		}
		if i > 0 {
			r.buf = append([]replayItem[T]{}, r.buf[i:]...)
		}
	}
	if r.maxSize > 0 && len(r.buf) > r.maxSize {
		r.buf = append([]replayItem[T]{}, r.buf[len(r.buf)-r.maxSize:]...)
	}
}

// OnSubscribe accepts the upstream handle (Subjects do not themselves
// apply backpressure to their feed).
func (r *Replay[T]) OnSubscribe(rxcore.Handle) {}

// OnNext records v in the replay buffer and fans it out live.
func (r *Replay[T]) OnNext(v T) {
	r.mu.Lock()
	r.buf = append(r.buf, replayItem[T]{v: v, t: r.now()})
	r.trimLocked()
	r.reg.emitNext(v)
	r.mu.Unlock()
}

// OnError terminates the subject with err.
func (r *Replay[T]) OnError(err error) {
	r.mu.Lock()
	r.reg.emitTerminal(rxcore.Error[T](err))
	r.mu.Unlock()
}

// OnComplete terminates the subject normally.
func (r *Replay[T]) OnComplete() {
	r.mu.Lock()
	r.reg.emitTerminal(rxcore.Complete[T]())
	r.mu.Unlock()
}

// HasSubscribers reports whether at least one subscriber is attached.
func (r *Replay[T]) HasSubscribers() bool { return r.reg.subscriberCount() > 0 }
