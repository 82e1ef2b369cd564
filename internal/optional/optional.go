// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package optional provides values that distinguish "unset" from the zero
// value. Compiled documents omit unset parameters instead of emitting zero
// placeholders.
package optional

import (
	"fmt"
	"time"
)

// Value holds a T or nothing. The zero Value is unset.
type Value[T any] struct {
	v   T
	set bool
}

type (
	// Bool is either a bool or unset.
	Bool = Value[bool]

	// Int is either an int64 or unset.
	Int = Value[int64]

	// String is either a string or unset.
	String = Value[string]

	// Duration is either a time.Duration or unset.
	Duration = Value[time.Duration]
)

// Of returns a set Value holding v.
func Of[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// IsSet reports whether o holds a value.
func (o Value[T]) IsSet() bool { return o.set }

// Get returns the held value and whether it was set.
func (o Value[T]) Get() (T, bool) { return o.v, o.set }

// OrElse returns the held value, or def when o is unset.
func (o Value[T]) OrElse(def T) T {
	if !o.set {
		return def
	}
	return o.v
}

// MustGet returns the held value.
// It panics if o is unset.
func (o Value[T]) MustGet() T {
	if !o.set {
		doPanic(o)
	}
	return o.v
}

func doPanic(v interface{}) {
	panic(fmt.Sprintf("optional: %T has no value", v))
}
