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

// Package wire holds the document model produced by the aggregation compiler.
//
// A document is an ordered list of key/value pairs. Values are documents,
// lists ([]any), strings, numbers, booleans or nil. Key order is significant
// to the database engine (stage documents have exactly one key, operator
// documents keep the order they were built in) so maps are never used on the
// compile path.
package wire

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// E is a single key/value pair of a document.
type E struct {
	Key   string
	Value any
}

// D is an ordered document.
type D []E

// Get returns the value stored under key.
func (d D) Get(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Len returns the number of keys in d.
func (d D) Len() int { return len(d) }

// Keys returns the keys of d in order.
func (d D) Keys() []string {
	keys := make([]string, len(d))
	for i, e := range d {
		keys[i] = e.Key
	}
	return keys
}

// With returns a copy of d with key set to value. An existing key keeps its
// position; a new key is appended.
func (d D) With(key string, value any) D {
	out := make(D, len(d), len(d)+1)
	copy(out, d)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, E{Key: key, Value: value})
}

// Without returns a copy of d with key removed.
func (d D) Without(key string) D {
	out := make(D, 0, len(d))
	for _, e := range d {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}

// Map converts d, recursively, into plain Go maps and slices.
func (d D) Map() map[string]any {
	m := make(map[string]any, len(d))
	for _, e := range d {
		m[e.Key] = toPlain(e.Value)
	}
	return m
}

func toPlain(v any) any {
	switch v := Normalize(v).(type) {
	case D:
		return v.Map()
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = toPlain(x)
		}
		return out
	default:
		return v
	}
}

// String returns the JSON form of d. Values that cannot be encoded are
// printed with %v.
func (d D) String() string {
	b, err := d.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", []E(d))
	}
	return string(b)
}

// FromMap builds a document from m. Keys are sorted so the result is
// deterministic; nested maps are converted as well.
func FromMap(m map[string]any) D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := make(D, 0, len(m))
	for _, k := range keys {
		d = append(d, E{Key: k, Value: Normalize(m[k])})
	}
	return d
}

// Normalize converts map and slice values that are not already wire values
// into D and []any. Other values are returned unchanged.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, D, string, bool:
		return v
	case []any:
		return x
	case map[string]any:
		return FromMap(x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte is a scalar binary value.
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return FromMap(m)
	}
	return v
}

// Equal reports whether two wire values are structurally equal after
// normalization. Numbers compare by value, so 10, int64(10) and float64(10)
// are equal.
func Equal(a, b any) bool {
	return reflect.DeepEqual(deepNormalize(a), deepNormalize(b))
}

func deepNormalize(v any) any {
	switch x := Normalize(v).(type) {
	case D:
		out := make(D, len(x))
		for i, e := range x {
			out[i] = E{Key: e.Key, Value: deepNormalize(e.Value)}
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepNormalize(e)
		}
		return out
	default:
		return number(x)
	}
}

// number maps numeric values onto int64, uint64 or float64. Floats with an
// integral value that fits in an int64 become int64.
func number(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u)
		}
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f)
		}
		return f
	}
	return v
}
