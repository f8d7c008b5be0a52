// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Dara Heaphy

package reactor

// Latest is a single-slot cell with overwrite-on-full semantics: Put always
// succeeds and replaces any unconsumed value. The bridge side uses one as
// its "latest known telemetry" cache for a slower upstream consumer, where
// a stale value is worth less than the newest one.
type Latest[T any] struct {
	ch chan T
}

// NewLatest creates an empty cell
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ch: make(chan T, 1)}
}

// Put stores a value, displacing any unconsumed previous value
func (l *Latest[T]) Put(v T) {
	for {
		select {
		case l.ch <- v:
			return
		default:
			// Slot occupied: evict the stale value and retry. The retry
			// loop is needed because a concurrent Take may win the race.
			select {
			case <-l.ch:
			default:
			}
		}
	}
}

// Take removes and returns the stored value, if any
func (l *Latest[T]) Take() (T, bool) {
	select {
	case v := <-l.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}
