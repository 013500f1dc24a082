// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"sync"

	rxcore "code.hybscloud.com/rxcore"
)

// ToListBlocking subscribes to src with unbounded demand and blocks
// until it terminates, returning every value observed in order, or the
// error if it terminated abnormally. Intended for tests and simple
// synchronous callers bridging into the otherwise asynchronous
// protocol.
func ToListBlocking[T any](src rxcore.Source[T]) ([]T, error) {
	var wg sync.WaitGroup
	wg.Add(1)
	var values []T
	var terminalErr error
	src.Subscribe(&blockingListSink[T]{
		onDone: func(vs []T, err error) {
			values, terminalErr = vs, err
			wg.Done()
		},
	})
	wg.Wait()
	return values, terminalErr
}

type blockingListSink[T any] struct {
	buf    []T
	onDone func([]T, error)
}

func (s *blockingListSink[T]) OnSubscribe(h rxcore.Handle) { h.Request(rxcore.MaxRequest) }
func (s *blockingListSink[T]) OnNext(v T)                  { s.buf = append(s.buf, v) }
func (s *blockingListSink[T]) OnError(err error)           { s.onDone(nil, err) }
func (s *blockingListSink[T]) OnComplete()                 { s.onDone(s.buf, nil) }
