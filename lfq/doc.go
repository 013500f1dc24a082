// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfq provides bounded FIFO queue implementations.
//
// The package offers two variants, matched to the producer/consumer
// shapes the rest of this module actually needs:
//
//   - SPSC: Single-Producer Single-Consumer, a Lamport ring buffer.
//   - MPSC: Multi-Producer Single-Consumer, an FAA-based SCQ-style
//     queue with 2n physical slots for capacity n.
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := lfq.NewSPSC[Event](1024)
//	q := lfq.NewMPSC[*Request](4096)
//
// Builder API selects between them based on constraints:
//
//	q := lfq.Build[Event](lfq.New(1024).SingleProducer().SingleConsumer())  // → SPSC
//	q := lfq.Build[Event](lfq.New(1024).SingleConsumer())                   // → MPSC
//
// # Basic Usage
//
// Both queues share the same interface for enqueueing and dequeueing:
//
//	// Create a queue
//	q := lfq.NewMPSC[int](1024)
//
//	// Enqueue (non-blocking)
//	value := 42
//	err := q.Enqueue(&value)
//	if lfq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Dequeue (non-blocking)
//	elem, err := q.Dequeue()
//	if lfq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Common Patterns
//
// Pipeline Stage (SPSC) — Concat uses exactly this shape to bound how
// many inner streams may be prefetched ahead of the one currently
// playing:
//
//	q := lfq.NewSPSC[Data](1024)
//
//	go func() { // Producer
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for q.Enqueue(&data) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // Consumer
//	    backoff := iox.Backoff{}
//	    for {
//	        data, err := q.Dequeue()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(data)
//	    }
//	}()
//
// Event Aggregation (MPSC) — Merge uses exactly this shape to fan the
// notifications from every concurrently active inner stream into one
// serialized queue-drain sink:
//
//	q := lfq.NewMPSC[Event](4096)
//
//	// Multiple producers
//	for sensor := range slices.Values(sensors) {
//	    go func(s Sensor) {
//	        for ev := range s.Events() {
//	            q.Enqueue(&ev)
//	        }
//	    }(sensor)
//	}
//
//	// Single consumer
//	go func() {
//	    for {
//	        ev, err := q.Dequeue()
//	        if err == nil {
//	            aggregate(ev)
//	        }
//	    }
//	}()
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	// Retry loop with backoff
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lfq.IsWouldBlock(err) {
//	        return err // Unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification (delegates to iox):
//
//	lfq.IsWouldBlock(err)  // true if queue full/empty
//	lfq.IsSemantic(err)    // true if control flow signal
//	lfq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Capacity and Length
//
// Capacity rounds up to the next power of 2:
//
//	q := lfq.NewMPSC[int](3)     // Actual capacity: 4
//	q := lfq.NewMPSC[int](1000)  // Actual capacity: 1024
//
// Minimum capacity is 2 (already a power of 2). Panic if capacity < 2.
//
// Length is intentionally not provided because accurate counts in lock-free
// algorithms require expensive cross-core synchronization. Track counts in
// application logic when needed.
//
// # Thread Safety
//
//   - SPSC: one producer goroutine, one consumer goroutine.
//   - MPSC: multiple producer goroutines, one consumer goroutine.
//
// Violating these constraints (e.g., multiple producers on SPSC) causes
// undefined behavior including data corruption and races.
//
// # Graceful Shutdown
//
// MPSC has no threshold mechanism: Dequeue returns [ErrWouldBlock] only
// when the next slot has not been published yet, so once producers have
// finished the consumer can dequeue every remaining item. MPSC still
// implements [Drainer]; Drain records that no more enqueues will occur,
// and neither Enqueue nor Dequeue reads that record:
//
//	prodWg.Wait()
//	if d, ok := q.(lfq.Drainer); ok {
//	    d.Drain()
//	}
//
// SPSC does not implement [Drainer].
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm verification.
// The race detector tracks explicit synchronization primitives (mutex, channels,
// WaitGroup) but cannot observe happens-before relationships established through
// atomic memory orderings (acquire-release semantics). MPSC's FAA producer
// loop is correct under that model but can trip false positives, so
// concurrent-producer tests gate on [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package lfq
