/*
 * MIT License
 *
 * Copyright (c) 2024 ctrlplane contributors
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
 */

// Package atomic is the lock-free storage external collaborator:
// a generic atomic cell (Value[T], used by stats.Snapshot fields) and a
// generic concurrent map (Map[K]/MapTyped[K,V], used by registry.Registry
// to track live sessions by manifest entry ID) both built on the
// standard library's sync/atomic.Value and sync.Map.
package atomic

import (
	"sync"
	"sync/atomic"
)

// Value is a generic atomic cell with configurable empty-value
// substitution, used wherever a transport needs a lock-free field that
// many goroutines read and one writes (e.g. a stats counter snapshot).
type Value[T any] interface {
	// SetDefaultLoad sets what Load returns before the first Store.
	SetDefaultLoad(def T)
	// SetDefaultStore sets what Store/Swap/CompareAndSwap substitutes
	// for an empty T.
	SetDefaultStore(def T)

	Load() (val T)
	Store(val T)
	Swap(new T) (old T)
	CompareAndSwap(old, new T) (swapped bool)
}

// Map is a concurrent key/value store over untyped values, the
// building block MapTyped wraps for a statically-typed value type.
type Map[K comparable] interface {
	Load(key K) (value any, ok bool)
	Store(key K, value any)
	LoadOrStore(key K, value any) (actual any, loaded bool)
	LoadAndDelete(key K) (value any, loaded bool)
	Delete(key K)
	Swap(key K, value any) (previous any, loaded bool)
	CompareAndSwap(key K, old, new any) bool
	CompareAndDelete(key K, old any) (deleted bool)

	// Range calls f for each key in an unspecified order, stopping early
	// if f returns false.
	Range(f func(key K, value any) bool)
}

// MapTyped is Map with a statically-typed value, used by
// registry.Registry to hold a string entry-ID to transport.Transport
// table without any caller-side type assertions.
type MapTyped[K comparable, V any] interface {
	Load(key K) (value V, ok bool)
	Store(key K, value V)
	LoadOrStore(key K, value V) (actual V, loaded bool)
	LoadAndDelete(key K) (value V, loaded bool)
	Delete(key K)
	Swap(key K, value V) (previous V, loaded bool)
	CompareAndSwap(key K, old, new V) bool
	CompareAndDelete(key K, old V) (deleted bool)
	Range(f func(key K, value V) bool)
}

// NewValue returns a Value[T] whose load/store defaults are both the
// zero value of T.
func NewValue[T any]() Value[T] {
	var (
		tmp1 T
		tmp2 T
	)

	return NewValueDefault[T](tmp1, tmp2)
}

// NewValueDefault returns a Value[T] with explicit load/store defaults.
func NewValueDefault[T any](load, store T) Value[T] {
	o := &val[T]{
		av: new(atomic.Value),
		dl: new(atomic.Value),
		ds: new(atomic.Value),
	}

	o.SetDefaultLoad(load)
	o.SetDefaultStore(store)

	return o
}

// NewMapAny returns a Map[K] backed by a sync.Map.
func NewMapAny[K comparable]() Map[K] {
	return &ma[K]{
		m: sync.Map{},
	}
}

// NewMapTyped returns a MapTyped[K, V] layered on top of NewMapAny.
func NewMapTyped[K comparable, V any]() MapTyped[K, V] {
	return &mt[K, V]{
		m: NewMapAny[K](),
	}
}
