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
	"github.com/docpipe/mongoagg/wire"
)

// replacement is the new document of $replaceRoot and $replaceWith.
type replacement struct {
	value any
	err   error
}

func newReplacement(token string, x any) replacement {
	v, err := toOperand(token, x)
	return replacement{value: v, err: err}
}

// compute renders the replacement. A document result is passed through the
// context's mapping.
func (r replacement) compute(ctx OperationContext) (any, error) {
	if r.err != nil {
		return nil, r.err
	}
	v, err := renderValue(ctx, r.value)
	if err != nil {
		return nil, err
	}
	if doc, ok := v.(wire.D); ok {
		return ctx.MappedObject(doc)
	}
	return v, nil
}

// ReplaceRootStage replaces each document with a computed one.
type ReplaceRootStage struct {
	replacement
}

// ReplaceRoot returns {"$replaceRoot": {"newRoot": x}}. x is a field name,
// Field, SystemVariable, Expression, document or list. Values inside a
// document or list are computed element by element, except that plain
// strings there are constants, not field names. Maps and typed slices are
// treated as documents and lists.
func ReplaceRoot(x any) ReplaceRootStage {
	return ReplaceRootStage{newReplacement("$replaceRoot", x)}
}

func (s ReplaceRootStage) Operator() string { return "$replaceRoot" }

// Err returns the construction error, if any.
func (s ReplaceRootStage) Err() error { return s.err }

func (s ReplaceRootStage) ToDocument(ctx OperationContext) (wire.D, error) {
	v, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	return wire.D{{Key: "$replaceRoot", Value: wire.D{{Key: "newRoot", Value: v}}}}, nil
}

func (ReplaceRootStage) replacesDocument() {}

// ReplaceWithStage replaces each document with a computed one.
type ReplaceWithStage struct {
	replacement
}

// ReplaceWith returns {"$replaceWith": x}, following the rules of
// ReplaceRoot.
func ReplaceWith(x any) ReplaceWithStage {
	return ReplaceWithStage{newReplacement("$replaceWith", x)}
}

func (s ReplaceWithStage) Operator() string { return "$replaceWith" }

// Err returns the construction error, if any.
func (s ReplaceWithStage) Err() error { return s.err }

func (s ReplaceWithStage) ToDocument(ctx OperationContext) (wire.D, error) {
	v, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	return wire.D{{Key: "$replaceWith", Value: v}}, nil
}

func (ReplaceWithStage) replacesDocument() {}
