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

// Package mapping resolves domain property names of Go struct types to the
// field names stored in documents.
//
// A property is addressed by its Go field name or by its stored name. Stored
// names come from the bson struct tag by default:
//
//	type Person struct {
//		FirstName string   `bson:"first_name"`
//		Address   Address  `bson:"addr"`
//		Age       int      `bson:"-"`
//		FullName  string   `mapping:"computed"`
//	}
//
// With this type, "FirstName" maps to "first_name" and "Address.City" maps to
// "addr.city" when Address tags City as "city".
package mapping

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/docpipe/mongoagg/internal/fields"
)

const computedOption = "computed"

// Mapper implements the field mapping used by typed aggregation contexts.
// It is safe for concurrent use.
type Mapper struct {
	tagKey string
	cache  sync.Map // reflect.Type -> *typeInfo
}

// An Option configures a Mapper.
type Option interface {
	apply(*Mapper)
}

type funcOption func(*Mapper)

func (f funcOption) apply(m *Mapper) { f(m) }

// WithTagKey sets the struct tag read for stored names. The default is "bson".
func WithTagKey(key string) Option {
	return funcOption(func(m *Mapper) { m.tagKey = key })
}

// New returns a Mapper.
func New(opts ...Option) *Mapper {
	m := &Mapper{tagKey: "bson"}
	for _, o := range opts {
		o.apply(m)
	}
	return m
}

type property struct {
	stored   string
	computed bool
	typ      reflect.Type
}

type typeInfo struct {
	byGoName     map[string]*property
	byStoredName map[string]*property
}

func (ti *typeInfo) lookup(name string) (*property, bool) {
	if p, ok := ti.byGoName[name]; ok {
		return p, true
	}
	p, ok := ti.byStoredName[name]
	return p, ok
}

// StoredName translates the dotted property path on domainType into the
// stored path. Numeric segments (array positions) are kept as is. It reports
// false when some segment does not name a property.
func (m *Mapper) StoredName(domainType reflect.Type, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	segments := strings.Split(path, ".")
	t := domainType
	for i, seg := range segments {
		if _, err := strconv.Atoi(seg); err == nil {
			continue
		}
		ti, ok := m.info(t)
		if !ok {
			return "", false
		}
		p, ok := ti.lookup(seg)
		if !ok {
			return "", false
		}
		segments[i] = p.stored
		t = p.typ
	}
	return strings.Join(segments, "."), true
}

// IsComputed reports whether the property path on domainType ends in a
// property tagged `mapping:"computed"`. Computed properties exist only in
// pipeline results and are never renamed.
func (m *Mapper) IsComputed(domainType reflect.Type, name string) bool {
	t := domainType
	var p *property
	for _, seg := range strings.Split(name, ".") {
		if _, err := strconv.Atoi(seg); err == nil {
			continue
		}
		ti, ok := m.info(t)
		if !ok {
			return false
		}
		if p, ok = ti.lookup(seg); !ok {
			return false
		}
		t = p.typ
	}
	return p != nil && p.computed
}

// info returns the cached description of t once pointers, slices, arrays
// and maps are stripped. It reports false when no struct remains.
func (m *Mapper) info(t reflect.Type) (*typeInfo, bool) {
	t = structOf(t)
	if t == nil {
		return nil, false
	}
	if v, ok := m.cache.Load(t); ok {
		return v.(*typeInfo), true
	}
	ti := &typeInfo{
		byGoName:     map[string]*property{},
		byStoredName: map[string]*property{},
	}
	for _, f := range fields.Fields(t, m.parseTag) {
		p := &property{stored: f.Name, typ: f.Type, computed: f.HasOption(computedOption)}
		ti.byGoName[f.GoName] = p
		ti.byStoredName[f.Name] = p
	}
	v, _ := m.cache.LoadOrStore(t, ti)
	return v.(*typeInfo), true
}

func (m *Mapper) parseTag(sf reflect.StructField) (string, []string, bool) {
	var opts []string
	if mt, ok := sf.Tag.Lookup("mapping"); ok {
		opts = append(opts, strings.Split(mt, ",")...)
	}
	tag, ok := sf.Tag.Lookup(m.tagKey)
	if !ok {
		return "", opts, false
	}
	if tag == "-" {
		return "", nil, true
	}
	name, rest, _ := strings.Cut(tag, ",")
	if rest != "" {
		opts = append(opts, strings.Split(rest, ",")...)
	}
	return name, opts, false
}

func structOf(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		case reflect.Struct:
			return t
		default:
			return nil
		}
	}
	return nil
}
