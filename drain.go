// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rxcore

import "code.hybscloud.com/atomix"

// WIP is the work-in-progress counter at the center of the queue-drain
// idiom. A nonzero value means some goroutine currently owns the drain
// loop for whatever it is embedded in. This is deliberately a field to
// embed by composition — a drain struct containing the WIP counter and
// the queue, embedded by the operator state — rather than a base class
// an operator extends.
//
// The two call patterns an operator builds on top of WIP:
//
// Fast path / contended path, used when the producer may emit directly
// when uncontended:
//
//	if w.TryEnter() {
//	    // uncontended: emit directly here
//	    if w.Leave() {
//	        w.DrainLoop(process)
//	    }
//	    return
//	}
//	queue.Offer(v)
//	if w.Enter() == 0 {
//	    w.DrainLoop(process)
//	}
//
// Always-queue path, used when every emission must serialize through
// the queue (groupBy, window, combineLatest, merge):
//
//	queue.Offer(v)
//	if w.Enter() == 0 {
//	    w.DrainLoop(process)
//	}
type WIP struct {
	n atomix.Int64
}

// TryEnter attempts the uncontended fast path: CAS 0->1. Reports true
// if this caller now owns emission without contention.
func (w *WIP) TryEnter() bool {
	return w.n.CompareAndSwapAcqRel(0, 1)
}

// Leave releases the fast-path ownership taken by TryEnter, returning
// true if another goroutine enqueued work while this one ran
// uncontended — the caller must then run DrainLoop.
func (w *WIP) Leave() bool {
	return w.n.AddAcqRel(-1) > 0
}

// Enter increments WIP and returns the value it held before the
// increment. A return of 0 means this caller must now run DrainLoop;
// any other value means a drain is already in progress and will pick
// up this caller's enqueued work.
func (w *WIP) Enter() int64 {
	return w.n.AddAcqRel(1) - 1
}

// DrainLoop runs the canonical missed-count loop: process repeatedly, then atomically subtract the count of iterations
// just completed; if WIP is still nonzero, more work arrived while
// processing and the loop continues; otherwise the drainer releases
// ownership. Each call of process counts as one round, however much
// of the queue it drains, so process returns nothing.
func (w *WIP) DrainLoop(process func()) {
	missed := int64(1)
	for {
		process()
		missed = w.n.AddAcqRel(-missed)
		if missed == 0 {
			return
		}
	}
}

// Load returns the current WIP value, chiefly for tests and assertions.
func (w *WIP) Load() int64 {
	return w.n.LoadAcquire()
}
