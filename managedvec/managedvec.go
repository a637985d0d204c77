/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package managedvec provides a dense array with index reuse: Push fills the
// lowest free slot before growing, Remove frees a slot (and shrinks trailing
// empties), and iteration only ever visits occupied slots. InputPort and
// TargetServer collections are built on it so a removed entry's index can be
// handed back out to the next Push without the collection growing unbounded.
package managedvec

// Idx is the index type returned by Push and accepted by Get/GetMut/Remove.
// It is a single byte so wire-level indices (as carried in telemetry
// messages) stay compact.
type Idx = uint8

// ManagedVec is not safe for concurrent use; callers serialize access the
// way NetworkMonitor and AdminController do for Globals.
type ManagedVec[T any] struct {
	data    []*T
	someLen Idx
}

// New returns an empty ManagedVec.
func New[T any]() *ManagedVec[T] {
	return &ManagedVec[T]{}
}

// Push stores value in the lowest-numbered free slot, growing the backing
// array only if every existing slot is occupied.
func (m *ManagedVec[T]) Push(value T) Idx {
	m.someLen++
	for i, cell := range m.data {
		if cell == nil {
			m.data[i] = &value
			return Idx(i)
		}
	}
	idx := Idx(len(m.data))
	m.data = append(m.data, &value)
	return idx
}

// Get returns the value at index, or nil if the slot is empty or out of range.
func (m *ManagedVec[T]) Get(index Idx) *T {
	if int(index) >= len(m.data) {
		return nil
	}
	return m.data[index]
}

// GetMut returns a pointer usable for in-place mutation, or nil.
func (m *ManagedVec[T]) GetMut(index Idx) *T {
	return m.Get(index)
}

// Remove empties the slot at index and returns its former value (nil if it
// was already empty or out of range). Trailing empty slots are then dropped
// so Len/iteration never walk dead tail space.
func (m *ManagedVec[T]) Remove(index Idx) *T {
	if int(index) >= len(m.data) {
		return nil
	}
	ret := m.data[index]
	if ret == nil {
		return nil
	}
	m.data[index] = nil
	m.someLen--
	for len(m.data) > 0 && m.data[len(m.data)-1] == nil {
		m.data = m.data[:len(m.data)-1]
	}
	return ret
}

// Len reports the number of occupied slots, not the backing array's length.
func (m *ManagedVec[T]) Len() Idx {
	return m.someLen
}

// Entry pairs an occupied slot's index with its value, as yielded by Iter.
type Entry[T any] struct {
	Index Idx
	Value *T
}

// Iter returns every occupied slot in index order. Safe to range over while
// mutating the returned *T values, but not while Push/Remove-ing the vec
// itself.
func (m *ManagedVec[T]) Iter() []Entry[T] {
	out := make([]Entry[T], 0, m.someLen)
	for i, cell := range m.data {
		if cell != nil {
			out = append(out, Entry[T]{Index: Idx(i), Value: cell})
		}
	}
	return out
}
