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

// Package fields enumerates the document fields of Go struct types,
// following the Go rules for embedded structs as modified by struct tags.
package fields

import (
	"reflect"
	"slices"
)

// A Field describes one struct field as a document field.
type Field struct {
	Name    string       // document name
	GoName  string       // declared Go name
	Tagged  bool         // Name came from a tag
	Options []string     // tag options following the name
	Type    reflect.Type // field type
	Index   []int        // for reflect.Value.FieldByIndex
}

// HasOption reports whether opt was listed in the field's tag.
func (f Field) HasOption(opt string) bool {
	return slices.Contains(f.Options, opt)
}

// A TagParser reads the document name and options of a struct field.
// A field is dropped when skip is true. The "inline" option promotes the
// fields of a struct-typed field as if it were embedded.
type TagParser func(reflect.StructField) (name string, opts []string, skip bool)

type pending struct {
	typ   reflect.Type
	index []int
}

// Fields returns the document fields of the struct type t, sorted by name.
//
// Embedded structs contribute their fields unless the embedding field has a
// tag name. Of several fields with the same name, the one at the shallowest
// embedding depth wins; at equal depth a single tagged field wins, otherwise
// all of them are dropped.
func Fields(t reflect.Type, parse TagParser) []Field {
	if parse == nil {
		parse = func(reflect.StructField) (string, []string, bool) { return "", nil, false }
	}
	all := collect(t, parse)
	slices.SortStableFunc(all, compareFields)

	var out []Field
	for start := 0; start < len(all); {
		end := start + 1
		for end < len(all) && all[end].Name == all[start].Name {
			end++
		}
		if f, ok := dominant(all[start:end]); ok {
			out = append(out, f)
		}
		start = end
	}
	return out
}

// collect walks t breadth first, one embedding depth per round.
func collect(t reflect.Type, parse TagParser) []Field {
	var (
		out     []Field
		level   = []pending{{typ: t}}
		counts  map[reflect.Type]int
		visited = map[reflect.Type]bool{}
	)
	for len(level) > 0 {
		var next []pending
		seen := counts
		counts = nil
		for _, p := range level {
			if visited[p.typ] {
				continue
			}
			visited[p.typ] = true
			for i := 0; i < p.typ.NumField(); i++ {
				sf := p.typ.Field(i)
				if !sf.IsExported() && !sf.Anonymous {
					continue
				}
				name, opts, skip := parse(sf)
				if skip {
					continue
				}
				index := append(slices.Clone(p.index), i)

				var promoted reflect.Type
				if sf.Anonymous || slices.Contains(opts, "inline") {
					promoted = sf.Type
					if promoted.Kind() == reflect.Pointer {
						promoted = promoted.Elem()
					}
					if promoted.Kind() != reflect.Struct || (name != "" && !slices.Contains(opts, "inline")) {
						promoted = nil
					}
				}
				if promoted == nil {
					if !sf.IsExported() {
						continue
					}
					f := Field{
						Name:    name,
						GoName:  sf.Name,
						Tagged:  name != "",
						Options: opts,
						Type:    sf.Type,
						Index:   index,
					}
					if f.Name == "" {
						f.Name = sf.Name
					}
					out = append(out, f)
					if seen[p.typ] > 1 {
						// The enclosing type was reached twice at this depth;
						// a duplicate makes the names cancel out.
						out = append(out, f)
					}
					continue
				}
				if counts[promoted] > 0 {
					counts[promoted] = 2
					continue
				}
				if counts == nil {
					counts = map[reflect.Type]int{}
				}
				counts[promoted] = 1
				if seen[p.typ] > 1 {
					counts[promoted] = 2
				}
				next = append(next, pending{typ: promoted, index: index})
			}
		}
		level = next
	}
	return out
}

// compareFields orders by name, then depth, then index sequence.
func compareFields(a, b Field) int {
	if a.Name != b.Name {
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	if len(a.Index) != len(b.Index) {
		return len(a.Index) - len(b.Index)
	}
	return slices.Compare(a.Index, b.Index)
}

// dominant picks the winning field among fields sharing one name.
func dominant(fields []Field) (Field, bool) {
	depth := len(fields[0].Index)
	winner := -1
	for i, f := range fields {
		if len(f.Index) > depth {
			fields = fields[:i]
			break
		}
		if f.Tagged {
			if winner >= 0 {
				return Field{}, false
			}
			winner = i
		}
	}
	if winner >= 0 {
		return fields[winner], true
	}
	if len(fields) > 1 {
		return Field{}, false
	}
	return fields[0], true
}
