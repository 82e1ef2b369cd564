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

	"github.com/docpipe/mongoagg/internal/optional"
	"github.com/docpipe/mongoagg/wire"
)

// MatchStage filters documents.
type MatchStage struct {
	criteria CriteriaDefinition
	expr     Expression
	err      error
}

// Match returns a $match stage for c. Keys of the filter are mapped through
// the context.
func Match(c CriteriaDefinition) MatchStage {
	if c == nil {
		return MatchStage{err: invalidArgument("$match", "criteria must not be nil")}
	}
	return MatchStage{criteria: c, err: errOf(c)}
}

// MatchExpression returns {"$match": {"$expr": e}}.
func MatchExpression(e Expression) MatchStage {
	if e == nil {
		return MatchStage{err: invalidArgument("$match", "expression must not be nil")}
	}
	return MatchStage{expr: e, err: errOf(e)}
}

func (s MatchStage) Operator() string { return "$match" }

// Err returns the construction error, if any.
func (s MatchStage) Err() error { return s.err }

func (s MatchStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.expr != nil {
		v, err := s.expr.ToDocument(ctx)
		if err != nil {
			return nil, err
		}
		return wire.D{{Key: "$match", Value: wire.D{{Key: "$expr", Value: v}}}}, nil
	}
	mapped, err := ctx.MappedObject(s.criteria.CriteriaObject())
	if err != nil {
		return nil, err
	}
	if mapped == nil {
		mapped = wire.D{}
	}
	return wire.D{{Key: "$match", Value: mapped}}, nil
}

// AddFieldsStage adds computed fields while keeping all existing ones.
type AddFieldsStage struct {
	token string
	names []string
	vals  []any
	err   error
}

// AddFields returns an empty $addFields stage. Fields are added with
// Field(name).Value(...) or Field(name).ValueOf(...).
func AddFields() AddFieldsStage { return AddFieldsStage{token: "$addFields"} }

// Set returns an empty $set stage, the alias of $addFields.
func Set() AddFieldsStage { return AddFieldsStage{token: "$set"} }

// AddFieldsBuilder sets the value of one field of an AddFieldsStage.
type AddFieldsBuilder struct {
	stage AddFieldsStage
	name  string
}

// Field starts the definition of field name.
func (s AddFieldsStage) Field(name string) AddFieldsBuilder {
	return AddFieldsBuilder{stage: s, name: name}
}

// Value sets the field to the constant v.
func (b AddFieldsBuilder) Value(v any) AddFieldsStage {
	return b.stage.add(b.name, literal{v: v})
}

// ValueOf sets the field to the field or expression x.
func (b AddFieldsBuilder) ValueOf(x any) AddFieldsStage {
	s := b.stage
	if s.err != nil {
		return s
	}
	v, err := toOperand(s.token+"."+b.name, x)
	if err != nil {
		s.err = err
		return s
	}
	return s.add(b.name, v)
}

func (s AddFieldsStage) add(name string, v any) AddFieldsStage {
	if s.err != nil {
		return s
	}
	if name == "" {
		s.err = invalidArgument(s.token, "field name must not be empty")
		return s
	}
	if slices.Contains(s.names, name) {
		s.err = &DuplicateFieldError{Field: name}
		return s
	}
	s.names = append(slices.Clone(s.names), name)
	s.vals = append(slices.Clone(s.vals), v)
	return s
}

func (s AddFieldsStage) Operator() string { return s.token }

// Err returns the construction error, if any.
func (s AddFieldsStage) Err() error {
	if s.err == nil && len(s.names) == 0 {
		return invalidArgument(s.token, "at least one field is required")
	}
	return s.err
}

func (s AddFieldsStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	doc := make(wire.D, len(s.names))
	for i, name := range s.names {
		v, err := renderValue(ctx, s.vals[i])
		if err != nil {
			return nil, err
		}
		doc[i] = wire.E{Key: name, Value: v}
	}
	return wire.D{{Key: s.token, Value: doc}}, nil
}

// Fields returns the added fields as a synthetic set: existing fields stay
// in scope.
func (s AddFieldsStage) Fields() ExposedFields {
	set := ExposedFields{synthetic: true}
	for _, n := range s.names {
		set, _ = set.And(FieldOf(n))
	}
	return set
}

// UnsetStage removes fields.
type UnsetStage struct {
	fields []Field
	err    error
}

// Unset returns an $unset stage removing fields.
func Unset(fields ...string) UnsetStage {
	var s UnsetStage
	if len(fields) == 0 {
		s.err = invalidArgument("$unset", "at least one field is required")
	}
	for _, f := range fields {
		fd := FieldOf(f)
		if err := fd.validate("$unset"); err != nil && s.err == nil {
			s.err = err
		}
		s.fields = append(s.fields, fd)
	}
	return s
}

func (s UnsetStage) Operator() string { return "$unset" }

// Err returns the construction error, if any.
func (s UnsetStage) Err() error { return s.err }

func (s UnsetStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	names := make([]any, len(s.fields))
	for i, f := range s.fields {
		names[i] = rawOrName(ctx, f)
	}
	if len(names) == 1 {
		return wire.D{{Key: "$unset", Value: names[0]}}, nil
	}
	return wire.D{{Key: "$unset", Value: names}}, nil
}

// rawOrName returns the resolved path of f, or its name when f is not in
// scope.
func rawOrName(ctx OperationContext, f Field) string {
	if ref, err := ctx.Reference(f); err == nil {
		return ref.Raw()
	}
	return f.Name()
}

// SortOrder is one sort key.
type SortOrder struct {
	field Field
	dir   int
}

// Asc sorts by field in ascending order.
func Asc(field string) SortOrder { return SortOrder{field: FieldOf(field), dir: 1} }

// Desc sorts by field in descending order.
func Desc(field string) SortOrder { return SortOrder{field: FieldOf(field), dir: -1} }

// SortStage orders documents.
type SortStage struct {
	orders []SortOrder
	err    error
}

// SortBy returns a $sort stage over orders.
func SortBy(orders ...SortOrder) SortStage {
	s := SortStage{}
	if len(orders) == 0 {
		s.err = invalidArgument("$sort", "at least one sort key is required")
	}
	return s.And(orders...)
}

// And returns a copy of s with more sort keys.
func (s SortStage) And(orders ...SortOrder) SortStage {
	for _, o := range orders {
		if err := o.field.validate("$sort"); err != nil && s.err == nil {
			s.err = err
		}
	}
	s.orders = append(slices.Clone(s.orders), orders...)
	return s
}

func (s SortStage) Operator() string { return "$sort" }

// Err returns the construction error, if any.
func (s SortStage) Err() error { return s.err }

func (s SortStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	doc := make(wire.D, 0, len(s.orders))
	for _, o := range s.orders {
		ref, err := ctx.Reference(o.field)
		if err != nil {
			return nil, err
		}
		doc = append(doc, wire.E{Key: ref.Raw(), Value: o.dir})
	}
	return wire.D{{Key: "$sort", Value: doc}}, nil
}

// countStage covers the stages taking a single count: $skip, $limit and
// $sample.
type countStage struct {
	token string
	n     int64
	err   error
}

func newCountStage(token string, n, lower int64) countStage {
	s := countStage{token: token, n: n}
	if n < lower {
		s.err = invalidArgument(token, "must be at least %d, got %d", lower, n)
	}
	return s
}

func (s countStage) Operator() string { return s.token }

// Err returns the construction error, if any.
func (s countStage) Err() error { return s.err }

func (s countStage) ToDocument(OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.token == "$sample" {
		return wire.D{{Key: s.token, Value: wire.D{{Key: "size", Value: s.n}}}}, nil
	}
	return wire.D{{Key: s.token, Value: s.n}}, nil
}

// SkipStage skips documents.
type SkipStage struct{ countStage }

// Skip returns {"$skip": n}.
func Skip(n int64) SkipStage { return SkipStage{newCountStage("$skip", n, 0)} }

// LimitStage limits the number of documents.
type LimitStage struct{ countStage }

// Limit returns {"$limit": n}. n must be positive.
func Limit(n int64) LimitStage { return LimitStage{newCountStage("$limit", n, 1)} }

// SampleStage selects random documents.
type SampleStage struct{ countStage }

// Sample returns {"$sample": {"size": n}}.
func Sample(n int64) SampleStage { return SampleStage{newCountStage("$sample", n, 1)} }

// CountStage replaces the input with a single count document.
type CountStage struct {
	field string
	err   error
}

// Count returns {"$count": field}.
func Count(field string) CountStage {
	s := CountStage{field: field}
	if field == "" {
		s.err = invalidArgument("$count", "field name must not be empty")
	}
	return s
}

func (s CountStage) Operator() string { return "$count" }

// Err returns the construction error, if any.
func (s CountStage) Err() error { return s.err }

func (s CountStage) ToDocument(OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	return wire.D{{Key: "$count", Value: s.field}}, nil
}

// Fields exposes only the count field.
func (s CountStage) Fields() ExposedFields {
	set, _ := ExposedFieldsFrom(FieldOf(s.field))
	return set
}

// UnwindStage outputs one document per array element.
type UnwindStage struct {
	field      Field
	indexField string
	preserve   optional.Bool
	err        error
}

// Unwind returns an $unwind stage for the array field.
func Unwind(field string) UnwindStage {
	f := FieldOf(field)
	return UnwindStage{field: f, err: f.validate("$unwind")}
}

// IncludeArrayIndex returns a copy of s that stores the element position in
// name.
func (s UnwindStage) IncludeArrayIndex(name string) UnwindStage {
	if name == "" && s.err == nil {
		s.err = invalidArgument("$unwind.includeArrayIndex", "field name must not be empty")
	}
	s.indexField = name
	return s
}

// PreserveNullAndEmptyArrays returns a copy of s that keeps documents whose
// array is missing, null or empty when preserve is true.
func (s UnwindStage) PreserveNullAndEmptyArrays(preserve bool) UnwindStage {
	s.preserve = optional.Of(preserve)
	return s
}

func (s UnwindStage) Operator() string { return "$unwind" }

// Err returns the construction error, if any.
func (s UnwindStage) Err() error { return s.err }

func (s UnwindStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	ref, err := ctx.Reference(s.field)
	if err != nil {
		return nil, err
	}
	if s.indexField == "" && !s.preserve.IsSet() {
		return wire.D{{Key: "$unwind", Value: ref.String()}}, nil
	}
	doc := wire.D{{Key: "path", Value: ref.String()}}
	if s.indexField != "" {
		doc = append(doc, wire.E{Key: "includeArrayIndex", Value: s.indexField})
	}
	if p, ok := s.preserve.Get(); ok {
		doc = append(doc, wire.E{Key: "preserveNullAndEmptyArrays", Value: p})
	}
	return wire.D{{Key: "$unwind", Value: doc}}, nil
}

// Fields keeps every input field in scope and adds the index field.
func (s UnwindStage) Fields() ExposedFields {
	set := ExposedFields{synthetic: true}
	if s.indexField != "" {
		set, _ = set.And(FieldOf(s.indexField))
	}
	return set
}

// LookupStage joins documents of another collection.
type LookupStage struct {
	from, foreignField, as string
	localField             Field
	err                    error
}

// Lookup returns a $lookup stage storing the documents of from whose
// foreignField equals localField in the array field as.
func Lookup(from, localField, foreignField, as string) LookupStage {
	s := LookupStage{from: from, localField: FieldOf(localField), foreignField: foreignField, as: as}
	switch {
	case from == "":
		s.err = invalidArgument("$lookup.from", "collection must not be empty")
	case localField == "":
		s.err = invalidArgument("$lookup.localField", "field name must not be empty")
	case foreignField == "":
		s.err = invalidArgument("$lookup.foreignField", "field name must not be empty")
	case as == "":
		s.err = invalidArgument("$lookup.as", "field name must not be empty")
	}
	return s
}

func (s LookupStage) Operator() string { return "$lookup" }

// Err returns the construction error, if any.
func (s LookupStage) Err() error { return s.err }

func (s LookupStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	ref, err := ctx.Reference(s.localField)
	if err != nil {
		return nil, err
	}
	return wire.D{{Key: "$lookup", Value: wire.D{
		{Key: "from", Value: s.from},
		{Key: "localField", Value: ref.Raw()},
		{Key: "foreignField", Value: s.foreignField},
		{Key: "as", Value: s.as},
	}}}, nil
}

// Fields keeps every input field in scope and adds the joined array.
func (s LookupStage) Fields() ExposedFields {
	set, _ := SyntheticExposedFields(FieldOf(s.as))
	return set
}
