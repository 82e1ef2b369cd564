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

// Package criteria builds query filter documents.
//
// Criteria values are immutable: every method returns a new value, so a
// partially built criteria may be shared and extended independently.
//
//	c := criteria.Where("age").Gte(21).Lt(65).And("status").Is("active")
//	// {"age": {"$gte": 21, "$lt": 65}, "status": "active"}
package criteria

import (
	"errors"
	"fmt"
	"slices"

	"github.com/docpipe/mongoagg/wire"
)

// Criteria is a filter over one or more keys.
type Criteria struct {
	key     string
	value   any
	isValue bool
	ops     wire.D
	negate  bool
	raw     wire.D     // keyless operator documents such as $or
	prev    []Criteria // earlier keys of an And chain
	err     error
}

// Where starts a criteria on key.
func Where(key string) Criteria {
	c := Criteria{key: key}
	if key == "" {
		c.err = errors.New("criteria: key must not be empty")
	}
	return c
}

// Key returns the key the criteria currently applies to. Keyless criteria
// built with Or, And or Nor return "".
func (c Criteria) Key() string { return c.key }

// Err returns the first construction error, if any.
func (c Criteria) Err() error { return c.err }

// And starts a sibling criteria on key. The result renders every key of the
// chain in order.
func (c Criteria) And(key string) Criteria {
	next := Where(key)
	next.prev = append(slices.Clone(c.prev), c.head())
	next.err = c.err
	if next.err == nil {
		next.err = Where(key).err
	}
	if next.err == nil {
		for _, p := range next.prev {
			if p.key == key {
				next.err = fmt.Errorf("criteria: key %q is already part of this criteria", key)
				break
			}
		}
	}
	return next
}

// head returns c without its chain.
func (c Criteria) head() Criteria {
	c.prev = nil
	return c
}

// Is requires the key to equal v.
func (c Criteria) Is(v any) Criteria {
	if c.err != nil {
		return c
	}
	if len(c.ops) > 0 || c.isValue {
		c.err = fmt.Errorf("criteria: key %q already has a condition; Is cannot be combined with other conditions", c.key)
		return c
	}
	c.value, c.isValue = v, true
	return c
}

func (c Criteria) op(token string, v any) Criteria {
	if c.err != nil {
		return c
	}
	if c.key == "" {
		c.err = fmt.Errorf("criteria: %s needs a key", token)
		return c
	}
	if c.isValue {
		c.err = fmt.Errorf("criteria: key %q has an Is condition; %s cannot be added", c.key, token)
		return c
	}
	if _, ok := c.ops.Get(token); ok {
		c.err = fmt.Errorf("criteria: key %q already has a %s condition", c.key, token)
		return c
	}
	c.ops = append(slices.Clone(c.ops), wire.E{Key: token, Value: v})
	return c
}

// Ne requires the key to differ from v.
func (c Criteria) Ne(v any) Criteria { return c.op("$ne", v) }

// Lt requires the key to be less than v.
func (c Criteria) Lt(v any) Criteria { return c.op("$lt", v) }

// Lte requires the key to be less than or equal to v.
func (c Criteria) Lte(v any) Criteria { return c.op("$lte", v) }

// Gt requires the key to be greater than v.
func (c Criteria) Gt(v any) Criteria { return c.op("$gt", v) }

// Gte requires the key to be greater than or equal to v.
func (c Criteria) Gte(v any) Criteria { return c.op("$gte", v) }

// In requires the key to equal one of values.
func (c Criteria) In(values ...any) Criteria { return c.op("$in", listOf(values)) }

// Nin requires the key to equal none of values.
func (c Criteria) Nin(values ...any) Criteria { return c.op("$nin", listOf(values)) }

// All requires an array key to contain every one of values.
func (c Criteria) All(values ...any) Criteria { return c.op("$all", listOf(values)) }

// Exists requires the key to be present, or absent when exists is false.
func (c Criteria) Exists(exists bool) Criteria { return c.op("$exists", exists) }

// Size requires an array key to have n elements.
func (c Criteria) Size(n int) Criteria { return c.op("$size", n) }

// Regex requires a string key to match pattern. Options such as "i" are
// omitted when empty.
func (c Criteria) Regex(pattern, options string) Criteria {
	c = c.op("$regex", pattern)
	if options != "" {
		c = c.op("$options", options)
	}
	return c
}

// ElemMatch requires an array key to hold an element matching sub.
func (c Criteria) ElemMatch(sub Criteria) Criteria {
	if sub.err != nil && c.err == nil {
		c.err = sub.err
		return c
	}
	return c.op("$elemMatch", sub.CriteriaObject())
}

// Not negates the conditions of the current key.
func (c Criteria) Not() Criteria {
	c.negate = true
	return c
}

func listOf(values []any) []any {
	if values == nil {
		return []any{}
	}
	return slices.Clone(values)
}

// Or matches documents satisfying any of cs.
func Or(cs ...Criteria) Criteria { return logical("$or", cs) }

// And matches documents satisfying all of cs.
func And(cs ...Criteria) Criteria { return logical("$and", cs) }

// Nor matches documents satisfying none of cs.
func Nor(cs ...Criteria) Criteria { return logical("$nor", cs) }

func logical(token string, cs []Criteria) Criteria {
	var c Criteria
	if len(cs) == 0 {
		c.err = fmt.Errorf("criteria: %s needs at least one criteria", token)
		return c
	}
	list := make([]any, 0, len(cs))
	for _, x := range cs {
		if x.err != nil {
			c.err = x.err
			return c
		}
		list = append(list, x.CriteriaObject())
	}
	c.raw = wire.D{{Key: token, Value: list}}
	return c
}

// CriteriaObject renders the filter document.
func (c Criteria) CriteriaObject() wire.D {
	var out wire.D
	for _, p := range c.prev {
		out = append(out, p.entries()...)
	}
	return append(out, c.entries()...)
}

func (c Criteria) entries() wire.D {
	if c.raw != nil {
		return slices.Clone(c.raw)
	}
	var v any
	switch {
	case c.isValue:
		v = c.value
	case len(c.ops) > 0:
		v = slices.Clone(c.ops)
	default:
		return nil
	}
	if c.negate {
		v = wire.D{{Key: "$not", Value: v}}
	}
	return wire.D{{Key: c.key, Value: v}}
}
