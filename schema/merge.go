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

// Package schema merges nested field declarations coming from several
// sources into one tree.
//
// Trees are wire documents. Nested documents are merged key by key; any
// other value, lists included, is a leaf. Equal leaves are kept once.
// Different leaves at the same path are a conflict, settled by a Resolver
// or reported as a *MergeConflictError. Paths are compared as strings:
// differently spelled aliases of one field are different paths.
package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/docpipe/mongoagg/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Path locates a conflicting leaf.
type Path struct {
	Element string // key of the leaf
	Full    string // dotted path from the root
}

func (p Path) String() string { return p.Full }

// Resolution is the outcome of a conflict: keep a value, or drop the path.
type Resolution struct {
	skip  bool
	key   string
	value any
}

// UseValue stores value at the conflicting path. A non-empty key renames
// the leaf.
func UseValue(key string, value any) Resolution {
	return Resolution{key: key, value: value}
}

// Skip removes the conflicting path from the result. Later sources cannot
// bring it back.
func Skip() Resolution {
	return Resolution{skip: true}
}

// IsSkip reports whether r drops the path.
func (r Resolution) IsSkip() bool { return r.skip }

// Key returns the key of a UseValue resolution.
func (r Resolution) Key() string { return r.key }

// Value returns the value of a UseValue resolution.
func (r Resolution) Value() any { return r.value }

// Resolver settles a conflict between the left (accumulated) and right
// (incoming) values at path.
type Resolver func(path Path, left, right any) Resolution

// ErrMergeConflict is matched by *MergeConflictError through errors.Is.
var ErrMergeConflict = errors.New("schema: merge conflict")

// MergeConflictError reports a conflict that no resolver settled.
type MergeConflictError struct {
	Path        string
	Left, Right any
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("schema: conflicting values at %q: %v and %v", e.Path, e.Left, e.Right)
}

func (e *MergeConflictError) Is(target error) bool { return target == ErrMergeConflict }

// GRPCStatus returns an Aborted status.
func (e *MergeConflictError) GRPCStatus() *status.Status {
	return status.New(codes.Aborted, e.Error())
}

// Merge merges trees from left to right. With a nil resolver every conflict
// fails the merge. The inputs are not modified.
func Merge(resolver Resolver, trees ...wire.D) (wire.D, error) {
	m := &merger{resolver: resolver, skipped: map[string]bool{}}
	out := wire.D{}
	for _, t := range trees {
		var err error
		if out, err = m.merge(out, t, ""); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type merger struct {
	resolver Resolver
	skipped  map[string]bool
}

func (m *merger) merge(left, right wire.D, prefix string) (wire.D, error) {
	out := append(wire.D{}, left...)
	for _, e := range right {
		full := e.Key
		if prefix != "" {
			full = prefix + "." + e.Key
		}
		if m.skipped[full] {
			continue
		}
		rv := wire.Normalize(e.Value)
		i := slices.IndexFunc(out, func(x wire.E) bool { return x.Key == e.Key })
		if i < 0 {
			if rd, ok := rv.(wire.D); ok {
				// Copy so that skipped paths below are honoured.
				merged, err := m.merge(nil, rd, full)
				if err != nil {
					return nil, err
				}
				rv = merged
			}
			out = append(out, wire.E{Key: e.Key, Value: rv})
			continue
		}
		lv := wire.Normalize(out[i].Value)
		ld, lok := lv.(wire.D)
		rd, rok := rv.(wire.D)
		if lok && rok {
			merged, err := m.merge(ld, rd, full)
			if err != nil {
				return nil, err
			}
			out[i].Value = merged
			continue
		}
		if wire.Equal(lv, rv) {
			continue
		}
		if m.resolver == nil {
			return nil, &MergeConflictError{Path: full, Left: lv, Right: rv}
		}
		r := m.resolver(Path{Element: e.Key, Full: full}, lv, rv)
		if r.skip {
			m.skipped[full] = true
			out = slices.Delete(out, i, i+1)
			continue
		}
		key := r.key
		if key == "" {
			key = e.Key
		}
		if key != e.Key && slices.ContainsFunc(out, func(x wire.E) bool { return x.Key == key }) {
			// The renamed leaf would overwrite a sibling.
			return nil, &MergeConflictError{Path: full, Left: lv, Right: rv}
		}
		out[i] = wire.E{Key: key, Value: r.value}
	}
	return out, nil
}

// Property is a named entry of an object schema.
type Property struct {
	Name  string
	Value any
}

// Prop returns the property name with the given schema.
func Prop(name string, value any) Property {
	return Property{Name: name, Value: value}
}

// Object returns {"type": "object", "properties": {...}} over props.
func Object(props ...Property) wire.D {
	properties := make(wire.D, len(props))
	for i, p := range props {
		properties[i] = wire.E{Key: p.Name, Value: p.Value}
	}
	return wire.D{
		{Key: "type", Value: "object"},
		{Key: "properties", Value: properties},
	}
}
