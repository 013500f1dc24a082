// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rxcore

import (
	"errors"
	"fmt"
	"strings"

	"code.hybscloud.com/iox"
)

// ProtocolError marks a violation of the streams protocol: a second
// OnSubscribe, a non-positive Request, a null value where forbidden.
// Where the stage that detects one has no live downstream it is
// surfaced to [Plugins]; a second subscriber to a unicast subject, a
// groupBy valueOf nil and a merge queue overflow are delivered to the
// affected Sink's OnError.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "rxcore: protocol violation: " + e.Msg }

// NewProtocolError builds a ProtocolError with a formatted message.
func NewProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// IsProtocolViolation reports whether err is (or wraps) a ProtocolError.
func IsProtocolViolation(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// MissingBackpressureError is delivered downstream (unlike
// ProtocolError) when a size- or time-based operator cannot enqueue a
// value fast enough. It wraps [iox.ErrWouldBlock] so callers can use
// the same iox classification predicates on it.
type MissingBackpressureError struct {
	Msg string
}

func (e *MissingBackpressureError) Error() string {
	return "rxcore: missing backpressure: " + e.Msg
}

func (e *MissingBackpressureError) Unwrap() error { return iox.ErrWouldBlock }

// NewMissingBackpressureError builds a MissingBackpressureError.
func NewMissingBackpressureError(format string, args ...any) *MissingBackpressureError {
	return &MissingBackpressureError{Msg: fmt.Sprintf(format, args...)}
}

// IsMissingBackpressure reports whether err is (or wraps) a
// MissingBackpressureError.
func IsMissingBackpressure(err error) bool {
	var be *MissingBackpressureError
	return errors.As(err, &be)
}

// CompositeError aggregates a primary cause plus suppressed secondary
// causes observed after the first terminal, in insertion order. Used
// when an operator-computed error (a combiner, keyOf, predicate) races
// a subsequent upstream error.
type CompositeError struct {
	Causes []error
}

func (e *CompositeError) Error() string {
	if len(e.Causes) == 0 {
		return "rxcore: composite error (no causes)"
	}
	var b strings.Builder
	b.WriteString("rxcore: composite error: ")
	for i, c := range e.Causes {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Error())
	}
	return b.String()
}

// Unwrap exposes every cause to errors.Is/errors.As (Go 1.20+ multi-error
// unwrap).
func (e *CompositeError) Unwrap() []error { return e.Causes }

// IsComposite reports whether err is a CompositeError.
func IsComposite(err error) bool {
	var ce *CompositeError
	return errors.As(err, &ce)
}

// CombineErrors merges a new cause into an accumulating error, building
// or growing a CompositeError as needed. Passing a nil first or second
// value returns the other unchanged.
func CombineErrors(first, second error) error {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	if ce, ok := first.(*CompositeError); ok {
		ce.Causes = append(ce.Causes, second)
		return ce
	}
	return &CompositeError{Causes: []error{first, second}}
}

// ErrRequestNonPositive is reported when Request(n) is called with
// n <= 0.
var ErrRequestNonPositive = &ProtocolError{Msg: "request(n) called with n <= 0"}

// ErrSubscriptionAlreadySet is reported when a second OnSubscribe races
// a first on the same stage.
var ErrSubscriptionAlreadySet = &ProtocolError{Msg: "onSubscribe called more than once"}

// ErrProducedOverflow is reported when an operator's bookkeeping would
// take its emitted-vs-requested accounting negative.
var ErrProducedOverflow = &ProtocolError{Msg: "produced more values than requested"}

// ErrOperatorComputedNull is reported when groupBy's valueOf or
// combineLatest's combiner returns nil; such a nil is treated as fatal,
// resolving the groupBy valueOf ambiguity in favor of safety. The
// results of groupBy's keyOf and of debounce's selector are not checked.
var ErrOperatorComputedNull = &ProtocolError{Msg: "operator-supplied function returned an invalid nil value"}
