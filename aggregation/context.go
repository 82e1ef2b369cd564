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
	"errors"
	"reflect"
	"strings"

	"github.com/docpipe/mongoagg/wire"
)

// OperationContext resolves field references and maps documents while one
// stage is compiled. Implementations must not be mutated by stages.
type OperationContext interface {
	// MappedObject returns doc with logical field names replaced by stored
	// names. Operator keys ("$...") are kept.
	MappedObject(doc wire.D) (wire.D, error)

	// Reference resolves f. It returns a *ReferenceNotFoundError when f is
	// not in scope.
	Reference(f Field) (FieldReference, error)
}

// ReferenceTo resolves the field called name in ctx.
func ReferenceTo(ctx OperationContext, name string) (FieldReference, error) {
	return ctx.Reference(FieldOf(name))
}

// LookupReference resolves name in ctx, reporting false when it is not in
// scope instead of failing.
func LookupReference(ctx OperationContext, name string) (FieldReference, bool) {
	ref, err := ReferenceTo(ctx, name)
	if err != nil {
		return FieldReference{}, false
	}
	return ref, true
}

// DefaultContext is the untyped root context. Every name resolves to
// itself and documents are not remapped.
var DefaultContext OperationContext = defaultContext{}

type defaultContext struct{}

func (defaultContext) MappedObject(doc wire.D) (wire.D, error) { return doc, nil }

func (defaultContext) Reference(f Field) (FieldReference, error) {
	if err := f.validate("reference"); err != nil {
		return FieldReference{}, err
	}
	return FieldReference{raw: f.Name(), direct: true}, nil
}

// FieldMapper supplies the entity metadata of typed contexts.
// *mapping.Mapper implements it.
type FieldMapper interface {
	// StoredName translates a dotted property path of domainType into the
	// stored path, reporting false for unknown properties.
	StoredName(domainType reflect.Type, path string) (string, bool)
	// IsComputed reports whether name is produced by the pipeline and must
	// be passed through unresolved.
	IsComputed(domainType reflect.Type, name string) bool
}

// TypedContext is a root context that resolves names against the
// properties of a domain type.
//
// By default names that are not properties of the type resolve to
// themselves; a strict context reports them with ReferenceNotFoundError.
type TypedContext struct {
	domainType reflect.Type
	mapper     FieldMapper
	strict     bool
}

// NewTypedContext returns a relaxed root context for domainType.
func NewTypedContext(domainType reflect.Type, mapper FieldMapper) *TypedContext {
	return &TypedContext{domainType: domainType, mapper: mapper}
}

// Strict returns a copy of c that rejects unknown names.
func (c *TypedContext) Strict() *TypedContext {
	cp := *c
	cp.strict = true
	return &cp
}

func (c *TypedContext) Reference(f Field) (FieldReference, error) {
	if err := f.validate("reference"); err != nil {
		return FieldReference{}, err
	}
	name := f.Name()
	stored, ok := c.storedName(name)
	if !ok {
		if c.strict {
			return FieldReference{}, &ReferenceNotFoundError{Field: name, Stage: c.domainType.String()}
		}
		stored = name
	}
	return FieldReference{raw: stored, direct: true}, nil
}

func (c *TypedContext) storedName(name string) (string, bool) {
	if c.mapper.IsComputed(c.domainType, name) {
		return name, true
	}
	return c.mapper.StoredName(c.domainType, name)
}

// MappedObject renames keys of doc that are properties of the domain type,
// descending into nested documents and lists. Unknown keys are kept even in
// strict mode, since filter documents may address fields the type does not
// declare.
func (c *TypedContext) MappedObject(doc wire.D) (wire.D, error) {
	return c.mapDocument(doc, ""), nil
}

func (c *TypedContext) mapDocument(doc wire.D, prefix string) wire.D {
	if doc == nil {
		return nil
	}
	out := make(wire.D, len(doc))
	for i, e := range doc {
		key, valuePrefix := e.Key, prefix
		if !strings.HasPrefix(key, "$") {
			valuePrefix = joinPath(prefix, key)
			key = c.relativeStoredName(valuePrefix, prefix, key)
		}
		out[i] = wire.E{Key: key, Value: c.mapValue(e.Value, valuePrefix)}
	}
	return out
}

func (c *TypedContext) mapValue(v any, prefix string) any {
	switch v := v.(type) {
	case wire.D:
		return c.mapDocument(v, prefix)
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = c.mapValue(x, prefix)
		}
		return out
	default:
		return v
	}
}

// relativeStoredName maps the path full and strips the stored form of
// prefix from it.
func (c *TypedContext) relativeStoredName(full, prefix, key string) string {
	stored, ok := c.storedName(full)
	if !ok {
		return key
	}
	skip := 0
	if prefix != "" {
		skip = strings.Count(prefix, ".") + 1
	}
	segments := strings.Split(stored, ".")
	if skip >= len(segments) {
		return key
	}
	return strings.Join(segments[skip:], ".")
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// NewExposedFieldsContext returns a context that resolves references
// against the fields exposed by stage. Names outside fields fail with
// ReferenceNotFoundError unless fields is synthetic, in which case they are
// resolved by parent. A dotted name resolves when its first segment is
// exposed. Document mapping is delegated to parent.
func NewExposedFieldsContext(parent OperationContext, stage string, fields ExposedFields) OperationContext {
	return &exposedFieldsContext{parent: parent, stage: stage, fields: fields}
}

type exposedFieldsContext struct {
	parent OperationContext
	stage  string
	fields ExposedFields
}

func (c *exposedFieldsContext) MappedObject(doc wire.D) (wire.D, error) {
	return c.parent.MappedObject(doc)
}

func (c *exposedFieldsContext) Reference(f Field) (FieldReference, error) {
	if err := f.validate("reference"); err != nil {
		return FieldReference{}, err
	}
	name := f.Name()
	if ef, ok := c.fields.Get(name); ok {
		return c.resolve(ef), nil
	}
	if head, rest, nested := strings.Cut(name, "."); nested {
		if ef, ok := c.fields.Get(head); ok {
			ref := c.resolve(ef)
			return FieldReference{raw: ref.raw + "." + rest, direct: ref.direct}, nil
		}
	}
	if c.fields.IsSynthetic() {
		ref, err := c.parent.Reference(f)
		var notFound *ReferenceNotFoundError
		if errors.As(err, &notFound) && notFound.Stage == "" {
			notFound.Stage = c.stage
		}
		return ref, err
	}
	return FieldReference{}, &ReferenceNotFoundError{Field: name, Stage: c.stage}
}

func (c *exposedFieldsContext) resolve(ef ExposedField) FieldReference {
	if ef.passThrough {
		// A value copied by the stage ("name": "$path") sits at its target
		// name; a kept value ("path": 1) stays where the parent put it.
		if ref, err := c.parent.Reference(ef.field); err == nil && ref.direct {
			return ref
		}
	}
	return c.fields.reference(ef)
}
