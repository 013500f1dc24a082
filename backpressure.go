// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rxcore

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// BackpressureAdd adds n to the outstanding-request counter, saturating
// at [MaxRequest] and retrying the CAS under a spin-wait exactly like
// lfq's own contended fast paths. n <= 0 is a protocol violation: it is
// reported to [Plugins] and the counter is left unchanged.
//
// Multiple producers (downstream Request callers) may call this
// concurrently without coordinating with the drain loop reading the
// counter down via [BackpressureProduced].
func BackpressureAdd(counter *atomix.Int64, n int64) int64 {
	if n <= 0 {
		Plugins.OnError(ErrRequestNonPositive)
		return counter.LoadAcquire()
	}
	sw := spin.Wait{}
	for {
		r := counter.LoadAcquire()
		if r == MaxRequest {
			return MaxRequest
		}
		sum := r + n
		if sum < 0 || sum > MaxRequest { // overflow or saturate
			sum = MaxRequest
		}
		if counter.CompareAndSwapAcqRel(r, sum) {
			return sum
		}
		sw.Once()
	}
}

// BackpressureProduced subtracts n from the outstanding-request counter
// to account for n values emitted. Unbounded counters ([MaxRequest])
// are left unchanged — once unbounded demand is signaled, a source may
// elide accounting thereafter. Subtracting past zero is a protocol
// violation: the counter is clamped to zero and [ErrProducedOverflow]
// is reported.
func BackpressureProduced(counter *atomix.Int64, n int64) int64 {
	if n == 0 {
		return counter.LoadAcquire()
	}
	sw := spin.Wait{}
	for {
		r := counter.LoadAcquire()
		if r == MaxRequest {
			return MaxRequest
		}
		next := r - n
		if next < 0 {
			if counter.CompareAndSwapAcqRel(r, 0) {
				Plugins.OnError(ErrProducedOverflow)
				return 0
			}
			sw.Once()
			continue
		}
		if counter.CompareAndSwapAcqRel(r, next) {
			return next
		}
		sw.Once()
	}
}
