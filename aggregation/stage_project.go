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

type projectionKind int

const (
	includeField projectionKind = iota
	excludeField
	computedField
)

type projection struct {
	name  string // output name
	kind  projectionKind
	value any // operand of a computed field
}

// ProjectStage reshapes documents by keeping, dropping or computing
// fields.
type ProjectStage struct {
	items []projection
	err   error
}

// Project returns a $project stage keeping fields.
func Project(fields ...string) ProjectStage {
	return ProjectStage{}.AndInclude(fields...)
}

// AndInclude returns a copy of p that also keeps fields.
func (p ProjectStage) AndInclude(fields ...string) ProjectStage {
	for _, f := range fields {
		p = p.add(projection{name: FieldOf(f).Name(), kind: includeField})
	}
	return p
}

// AndExclude returns a copy of p that drops fields. Only _id may be
// excluded from a projection that also keeps or computes fields.
func (p ProjectStage) AndExclude(fields ...string) ProjectStage {
	for _, f := range fields {
		p = p.add(projection{name: FieldOf(f).Name(), kind: excludeField})
	}
	return p
}

// ProjectionBuilder names a projected value.
type ProjectionBuilder struct {
	stage ProjectStage
	x     any
}

// And starts a projection of x, a field name, Field or Expression. The
// projection is completed by As.
func (p ProjectStage) And(x any) ProjectionBuilder {
	return ProjectionBuilder{stage: p, x: x}
}

// As stores the projected value under alias.
func (b ProjectionBuilder) As(alias string) ProjectStage {
	p := b.stage
	if p.err != nil {
		return p
	}
	v, err := toOperand("$project."+alias, b.x)
	if err != nil {
		p.err = err
		return p
	}
	return p.add(projection{name: FieldOf(alias).Name(), kind: computedField, value: v})
}

// AsValue stores the constant v under alias.
func (b ProjectionBuilder) AsValue(alias string) ProjectStage {
	b.x = literal{v: b.x}
	return b.As(alias)
}

func (p ProjectStage) add(item projection) ProjectStage {
	if p.err != nil {
		return p
	}
	if item.name == "" {
		p.err = invalidArgument("$project", "field name must not be empty")
		return p
	}
	for _, it := range p.items {
		if it.name == item.name {
			p.err = &DuplicateFieldError{Field: item.name}
			return p
		}
	}
	p.items = append(slices.Clone(p.items), item)
	return p
}

func (p ProjectStage) Operator() string { return "$project" }

// Err returns the construction error, if any.
func (p ProjectStage) Err() error {
	if p.err != nil {
		return p.err
	}
	if len(p.items) == 0 {
		return invalidArgument("$project", "at least one field is required")
	}
	if !p.exclusionOnly() {
		for _, it := range p.items {
			if it.kind == excludeField && it.name != "_id" {
				return invalidArgument("$project", "cannot exclude %q in an inclusion projection", it.name)
			}
		}
	}
	return nil
}

func (p ProjectStage) exclusionOnly() bool {
	for _, it := range p.items {
		if it.kind != excludeField {
			return false
		}
	}
	return true
}

func (p ProjectStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if err := p.Err(); err != nil {
		return nil, err
	}
	doc := make(wire.D, 0, len(p.items))
	for _, it := range p.items {
		switch it.kind {
		case includeField:
			ref, err := ctx.Reference(FieldOf(it.name))
			if err != nil {
				return nil, err
			}
			if v := ref.ReferenceValue(); v == 1 {
				doc = append(doc, wire.E{Key: ref.Raw(), Value: v})
			} else {
				doc = append(doc, wire.E{Key: it.name, Value: v})
			}
		case excludeField:
			doc = append(doc, wire.E{Key: rawOrName(ctx, FieldOf(it.name)), Value: 0})
		case computedField:
			v, err := renderValue(ctx, it.value)
			if err != nil {
				return nil, err
			}
			doc = append(doc, wire.E{Key: it.name, Value: v})
		}
	}
	return wire.D{{Key: "$project", Value: doc}}, nil
}

// Fields returns the kept and computed fields, plus _id unless it is
// excluded. A projection that only excludes fields restricts nothing.
func (p ProjectStage) Fields() ExposedFields {
	if p.exclusionOnly() {
		return ExposedFields{synthetic: true}
	}
	var set ExposedFields
	idExcluded := false
	for _, it := range p.items {
		switch it.kind {
		case includeField:
			set, _ = set.andPassThrough(FieldOf(it.name))
		case computedField:
			set, _ = set.And(FieldOf(it.name))
		case excludeField:
			idExcluded = idExcluded || it.name == "_id"
		}
	}
	if _, ok := set.Get("_id"); !ok && !idExcluded {
		set, _ = set.andPassThrough(FieldOf("_id"))
	}
	return set
}
