// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package disposable provides composite and serial resource-tracking
// primitives shared by every stage that acquires upstream resources.
//
// A [Disposable] is any resource with a single idempotent release.
// The four variants here mirror the arrangements a stream operator
// actually needs: a growable set that disposes all members together
// ([Composite]), a single replaceable slot that disposes the outgoing
// value ([Serial]), a fixed-size array of slots disposed together
// ([ArrayComposite]), and a slot that does not auto-dispose what it
// replaces because the caller manages that lifetime itself
// ([MultipleAssignment]).
package disposable

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// Disposable is any resource with an idempotent release.
type Disposable interface {
	Dispose()
}

// Func adapts a plain function to Disposable.
type Func func()

// Dispose calls f. Safe to call more than once; f itself must be idempotent
// if repeated invocation matters.
func (f Func) Dispose() {
	f()
}

// Composite holds a growable set of Disposables. Disposing the Composite
// disposes every member exactly once. Adding a member after the Composite
// has been disposed disposes that member immediately instead of storing it.
type Composite struct {
	mu       sync.Mutex
	members  map[int]Disposable
	nextID   int
	disposed atomix.Bool
}

// NewComposite creates an empty Composite, optionally pre-populated.
func NewComposite(initial ...Disposable) *Composite {
	c := &Composite{members: make(map[int]Disposable, len(initial))}
	for _, d := range initial {
		c.Add(d)
	}
	return c
}

// Add registers d. If the Composite is already disposed, d is disposed
// immediately and never stored. Returns a token usable with Remove.
func (c *Composite) Add(d Disposable) (token int, added bool) {
	if d == nil {
		return 0, false
	}
	if c.disposed.LoadAcquire() {
		d.Dispose()
		return 0, false
	}
	c.mu.Lock()
	if c.disposed.LoadAcquire() {
		c.mu.Unlock()
		d.Dispose()
		return 0, false
	}
	c.nextID++
	token = c.nextID
	c.members[token] = d
	c.mu.Unlock()
	return token, true
}

// Remove drops the member registered under token without disposing it.
// Reports whether a member was actually removed.
func (c *Composite) Remove(token int) bool {
	c.mu.Lock()
	_, ok := c.members[token]
	delete(c.members, token)
	c.mu.Unlock()
	return ok
}

// Delete removes d by identity (linear scan) without disposing it.
func (c *Composite) Delete(d Disposable) bool {
	c.mu.Lock()
	found := false
	for k, v := range c.members {
		if v == d {
			delete(c.members, k)
			found = true
			break
		}
	}
	c.mu.Unlock()
	return found
}

// Size reports the current member count.
func (c *Composite) Size() int {
	c.mu.Lock()
	n := len(c.members)
	c.mu.Unlock()
	return n
}

// Dispose disposes every current member exactly once and marks the
// Composite disposed; members added afterwards are disposed on Add.
// Idempotent.
func (c *Composite) Dispose() {
	if !c.disposed.CompareAndSwapAcqRel(false, true) {
		return
	}
	c.mu.Lock()
	members := c.members
	c.members = nil
	c.mu.Unlock()
	for _, d := range members {
		d.Dispose()
	}
}

// IsDisposed reports whether Dispose has been called.
func (c *Composite) IsDisposed() bool {
	return c.disposed.LoadAcquire()
}

// Serial holds a single Disposable slot. Assigning a new value disposes
// the previous one. Disposing the Serial disposes the current value and
// disposes any value assigned afterwards immediately.
type Serial struct {
	mu       sync.Mutex
	current  Disposable
	disposed atomix.Bool
}

// Replace installs d as the current disposable, disposing whatever was
// there before. If the Serial is already disposed, d is disposed instead.
func (s *Serial) Replace(d Disposable) {
	s.mu.Lock()
	if s.disposed.LoadAcquire() {
		s.mu.Unlock()
		if d != nil {
			d.Dispose()
		}
		return
	}
	old := s.current
	s.current = d
	s.mu.Unlock()
	if old != nil {
		old.Dispose()
	}
}

// Dispose disposes the current value and marks the Serial disposed.
// Idempotent.
func (s *Serial) Dispose() {
	if !s.disposed.CompareAndSwapAcqRel(false, true) {
		return
	}
	s.mu.Lock()
	old := s.current
	s.current = nil
	s.mu.Unlock()
	if old != nil {
		old.Dispose()
	}
}

// IsDisposed reports whether Dispose has been called.
func (s *Serial) IsDisposed() bool {
	return s.disposed.LoadAcquire()
}

// MultipleAssignment behaves like Serial except replacing the current
// value does not dispose the outgoing one — the caller retains
// responsibility for it. Used where an operator keeps its own reference
// to the previous resource or it has already run (e.g. the scheduler
// workers' periodic-task slot, which replaces the tick that just fired).
type MultipleAssignment struct {
	mu       sync.Mutex
	current  Disposable
	disposed atomix.Bool
}

// Replace installs d without disposing the previous value. If already
// disposed, d is disposed instead of stored.
func (m *MultipleAssignment) Replace(d Disposable) {
	m.mu.Lock()
	if m.disposed.LoadAcquire() {
		m.mu.Unlock()
		if d != nil {
			d.Dispose()
		}
		return
	}
	m.current = d
	m.mu.Unlock()
}

// Dispose disposes the current value and marks the slot disposed.
func (m *MultipleAssignment) Dispose() {
	if !m.disposed.CompareAndSwapAcqRel(false, true) {
		return
	}
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.mu.Unlock()
	if old != nil {
		old.Dispose()
	}
}

// IsDisposed reports whether Dispose has been called.
func (m *MultipleAssignment) IsDisposed() bool {
	return m.disposed.LoadAcquire()
}

// ArrayComposite holds a fixed number of slots, all disposed together.
// Suited to owners with a known, small, constant number of owned
// resources.
type ArrayComposite struct {
	mu       sync.Mutex
	slots    []Disposable
	disposed atomix.Bool
}

// NewArrayComposite creates a composite with n empty slots.
func NewArrayComposite(n int) *ArrayComposite {
	return &ArrayComposite{slots: make([]Disposable, n)}
}

// Set installs d into slot i, disposing whatever was there before.
// If the composite is already disposed, d is disposed instead.
func (a *ArrayComposite) Set(i int, d Disposable) {
	a.mu.Lock()
	if a.disposed.LoadAcquire() {
		a.mu.Unlock()
		if d != nil {
			d.Dispose()
		}
		return
	}
	old := a.slots[i]
	a.slots[i] = d
	a.mu.Unlock()
	if old != nil {
		old.Dispose()
	}
}

// Dispose disposes every slot exactly once and marks the composite
// disposed.
func (a *ArrayComposite) Dispose() {
	if !a.disposed.CompareAndSwapAcqRel(false, true) {
		return
	}
	a.mu.Lock()
	slots := a.slots
	a.slots = nil
	a.mu.Unlock()
	for _, d := range slots {
		if d != nil {
			d.Dispose()
		}
	}
}

// IsDisposed reports whether Dispose has been called.
func (a *ArrayComposite) IsDisposed() bool {
	return a.disposed.LoadAcquire()
}
