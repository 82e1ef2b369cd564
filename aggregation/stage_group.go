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

package aggregation

import (
	"slices"

	"github.com/docpipe/mongoagg/wire"
)

type groupAccumulator struct {
	name string
	expr Expression
}

// GroupStage groups documents by key fields and computes accumulators.
type GroupStage struct {
	keys []Field
	accs []groupAccumulator
	err  error
}

// Group returns a $group stage over keys. Without keys all documents form
// one group with a null _id.
func Group(keys ...string) GroupStage {
	var g GroupStage
	for _, k := range keys {
		f := FieldOf(k)
		if err := f.validate("$group"); err != nil {
			g.err = err
			return g
		}
		if slices.ContainsFunc(g.keys, f.Equal) {
			g.err = &DuplicateFieldError{Field: f.Name()}
			return g
		}
		g.keys = append(g.keys, f)
	}
	return g
}

// GroupAccumulatorBuilder names an accumulator of a GroupStage.
type GroupAccumulatorBuilder struct {
	stage GroupStage
	expr  Expression
}

// Accumulate starts an accumulator computed by expr.
func (g GroupStage) Accumulate(expr Expression) GroupAccumulatorBuilder {
	return GroupAccumulatorBuilder{stage: g, expr: expr}
}

// Sum starts a $sum accumulator of x.
func (g GroupStage) Sum(x any) GroupAccumulatorBuilder { return g.Accumulate(Sum(x)) }

// Avg starts an $avg accumulator of x.
func (g GroupStage) Avg(x any) GroupAccumulatorBuilder { return g.Accumulate(Avg(x)) }

// Min starts a $min accumulator of x.
func (g GroupStage) Min(x any) GroupAccumulatorBuilder { return g.Accumulate(Min(x)) }

// Max starts a $max accumulator of x.
func (g GroupStage) Max(x any) GroupAccumulatorBuilder { return g.Accumulate(Max(x)) }

// First starts a $first accumulator of x.
func (g GroupStage) First(x any) GroupAccumulatorBuilder { return g.Accumulate(First(x)) }

// Last starts a $last accumulator of x.
func (g GroupStage) Last(x any) GroupAccumulatorBuilder { return g.Accumulate(Last(x)) }

// Push starts a $push accumulator of x.
func (g GroupStage) Push(x any) GroupAccumulatorBuilder { return g.Accumulate(Push(x)) }

// AddToSet starts an $addToSet accumulator of x.
func (g GroupStage) AddToSet(x any) GroupAccumulatorBuilder { return g.Accumulate(AddToSet(x)) }

// Count starts a {"$sum": 1} accumulator.
func (g GroupStage) Count() GroupAccumulatorBuilder { return g.Accumulate(Sum(1)) }

// As stores the accumulator under name.
func (b GroupAccumulatorBuilder) As(name string) GroupStage {
	g := b.stage
	if g.err != nil {
		return g
	}
	switch {
	case b.expr == nil:
		g.err = invalidArgument("$group."+name, "accumulator must not be nil")
		return g
	case name == "" || name == "_id":
		g.err = invalidArgument("$group", "invalid accumulator name %q", name)
		return g
	}
	if err := errOf(b.expr); err != nil {
		g.err = err
		return g
	}
	taken := slices.ContainsFunc(g.keys, func(k Field) bool { return k.Target() == name }) ||
		slices.ContainsFunc(g.accs, func(a groupAccumulator) bool { return a.name == name })
	if taken {
		g.err = &DuplicateFieldError{Field: name}
		return g
	}
	g.accs = append(slices.Clone(g.accs), groupAccumulator{name: name, expr: b.expr})
	return g
}

func (g GroupStage) Operator() string { return "$group" }

// Err returns the construction error, if any.
func (g GroupStage) Err() error { return g.err }

func (g GroupStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if g.err != nil {
		return nil, g.err
	}
	var id any
	switch len(g.keys) {
	case 0:
	case 1:
		ref, err := ctx.Reference(g.keys[0])
		if err != nil {
			return nil, err
		}
		id = ref.String()
	default:
		doc := make(wire.D, len(g.keys))
		for i, k := range g.keys {
			ref, err := ctx.Reference(k)
			if err != nil {
				return nil, err
			}
			doc[i] = wire.E{Key: k.Target(), Value: ref.String()}
		}
		id = doc
	}
	doc := wire.D{{Key: "_id", Value: id}}
	for _, a := range g.accs {
		v, err := a.expr.ToDocument(ctx)
		if err != nil {
			return nil, err
		}
		doc = append(doc, wire.E{Key: a.name, Value: v})
	}
	return wire.D{{Key: "$group", Value: doc}}, nil
}

// Fields exposes _id, the group keys and the accumulators. Group keys are
// referenced through _id.
func (g GroupStage) Fields() ExposedFields {
	set, _ := GroupKeyFields(g.keys...)
	if _, ok := set.Get("_id"); !ok {
		set, _ = set.And(FieldOf("_id"))
	}
	for _, a := range g.accs {
		set, _ = set.And(FieldOf(a.name))
	}
	return set
}
