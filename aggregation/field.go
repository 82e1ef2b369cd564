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
	"strings"
)

// Field is a field name as written in a pipeline, plus an optional target
// name under which a stage exposes it. Fields are compared by name.
type Field struct {
	name   string
	target string
}

// FieldOf returns the field name. A leading "$" is dropped, so "$qty" and
// "qty" are the same field. System variables are written with
// SystemVariable, not FieldOf.
func FieldOf(name string) Field {
	return Field{name: strings.TrimPrefix(name, "$")}
}

// WithTarget returns a copy of f exposed under target.
func (f Field) WithTarget(target string) Field {
	f.target = strings.TrimPrefix(target, "$")
	return f
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// Target returns the name f is exposed under. It is the name unless a
// target was set.
func (f Field) Target() string {
	if f.target == "" {
		return f.name
	}
	return f.target
}

// IsAliased reports whether f is exposed under a name other than its own.
func (f Field) IsAliased() bool { return f.target != "" && f.target != f.name }

// Equal reports whether f and other have the same name.
func (f Field) Equal(other Field) bool { return f.name == other.name }

func (f Field) String() string {
	if f.IsAliased() {
		return f.name + " -> " + f.target
	}
	return f.name
}

func (f Field) validate(arg string) error {
	if f.name == "" {
		return invalidArgument(arg, "field name must not be empty")
	}
	return nil
}

// SystemVariable is an engine variable such as $$ROOT.
type SystemVariable string

const (
	// Root references the top-level document being processed.
	Root SystemVariable = "ROOT"
	// Current references the start of the current field path, normally ROOT.
	Current SystemVariable = "CURRENT"
	// Remove evaluates to a missing value; fields set to it are dropped.
	Remove SystemVariable = "REMOVE"
)

// String returns the variable with its "$$" prefix.
func (v SystemVariable) String() string { return "$$" + string(v) }

// FieldReference is a field resolved by an OperationContext. Only contexts
// create references, so resolution rules stay in one place.
type FieldReference struct {
	raw string
	// direct is set when the reference names a top-level stored field whose
	// value can be kept by an inclusion projection.
	direct bool
}

// Raw returns the referenced path without the "$" prefix.
func (r FieldReference) Raw() string { return r.raw }

// String returns the "$"-prefixed path used in expressions.
func (r FieldReference) String() string { return "$" + r.raw }

// ReferenceValue returns the value a projection uses to keep the field: 1
// when the field is kept in place, otherwise the "$" path to copy it from.
func (r FieldReference) ReferenceValue() any {
	if r.direct {
		return 1
	}
	return r.String()
}

// ExposedField is a field made visible by a stage.
type ExposedField struct {
	field Field
	// groupKey fields live inside the _id document of a $group result.
	groupKey bool
	// passThrough fields keep the location they had before the stage, so
	// they resolve as the preceding context resolved them.
	passThrough bool
}

// Field returns the exposed field.
func (e ExposedField) Field() Field { return e.field }

// CanBeReferredToBy reports whether name addresses e.
func (e ExposedField) CanBeReferredToBy(name string) bool {
	return e.field.Target() == name
}

// ExposedFields is the ordered set of fields a stage makes visible to the
// next one, unique by exposed name.
//
// A synthetic set does not restrict what follows: references to names it
// does not hold are resolved by the preceding context.
type ExposedFields struct {
	fields    []ExposedField
	synthetic bool
}

// ExposedFieldsFrom returns a restricting set holding fields.
func ExposedFieldsFrom(fields ...Field) (ExposedFields, error) {
	return newExposedFields(false, false, fields)
}

// SyntheticExposedFields returns a non-restricting set holding fields.
func SyntheticExposedFields(fields ...Field) (ExposedFields, error) {
	return newExposedFields(true, false, fields)
}

// GroupKeyFields returns a restricting set of $group key fields. They are
// referenced as _id when there is one key and as _id.<name> otherwise.
func GroupKeyFields(fields ...Field) (ExposedFields, error) {
	return newExposedFields(false, true, fields)
}

func newExposedFields(synthetic, groupKey bool, fields []Field) (ExposedFields, error) {
	set := ExposedFields{synthetic: synthetic}
	for _, f := range fields {
		var err error
		if set, err = set.and(ExposedField{field: f, groupKey: groupKey}); err != nil {
			return ExposedFields{}, err
		}
	}
	return set, nil
}

// And returns a copy of e with f added.
func (e ExposedFields) And(f Field) (ExposedFields, error) {
	return e.and(ExposedField{field: f})
}

// Union returns a copy of e with the fields of other added, keeping e's
// synthetic flag.
func (e ExposedFields) Union(other ExposedFields) (ExposedFields, error) {
	out := e
	for _, f := range other.fields {
		var err error
		if out, err = out.and(f); err != nil {
			return ExposedFields{}, err
		}
	}
	return out, nil
}

func (e ExposedFields) and(f ExposedField) (ExposedFields, error) {
	if err := f.field.validate("exposed field"); err != nil {
		return ExposedFields{}, err
	}
	if _, ok := e.Get(f.field.Target()); ok {
		return ExposedFields{}, &DuplicateFieldError{Field: f.field.Target()}
	}
	return ExposedFields{
		fields:    append(slices.Clone(e.fields), f),
		synthetic: e.synthetic,
	}, nil
}

func (e ExposedFields) andPassThrough(f Field) (ExposedFields, error) {
	return e.and(ExposedField{field: f, passThrough: true})
}

// Get returns the field exposed under name.
func (e ExposedFields) Get(name string) (ExposedField, bool) {
	for _, f := range e.fields {
		if f.CanBeReferredToBy(name) {
			return f, true
		}
	}
	return ExposedField{}, false
}

// IsSynthetic reports whether the set lets unknown names through.
func (e ExposedFields) IsSynthetic() bool { return e.synthetic }

// Len returns the number of exposed fields.
func (e ExposedFields) Len() int { return len(e.fields) }

// All returns the exposed fields in order.
func (e ExposedFields) All() []ExposedField { return slices.Clone(e.fields) }

// Names returns the exposed names in order.
func (e ExposedFields) Names() []string {
	names := make([]string, len(e.fields))
	for i, f := range e.fields {
		names[i] = f.field.Target()
	}
	return names
}

func (e ExposedFields) groupKeyCount() int {
	n := 0
	for _, f := range e.fields {
		if f.groupKey {
			n++
		}
	}
	return n
}

// reference returns the reference to f, which must belong to e.
func (e ExposedFields) reference(f ExposedField) FieldReference {
	if !f.groupKey {
		return FieldReference{raw: f.field.Target(), direct: true}
	}
	if e.groupKeyCount() == 1 {
		return FieldReference{raw: "_id"}
	}
	return FieldReference{raw: "_id." + f.field.Target()}
}
