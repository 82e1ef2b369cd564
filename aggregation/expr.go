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

	"github.com/docpipe/mongoagg/wire"
)

// Expression is a node of the expression tree. Rendering must not change
// the node: the same expression rendered twice through equivalent contexts
// yields equal documents.
type Expression interface {
	ToDocument(ctx OperationContext) (wire.D, error)
}

// Value marks v as a literal operand. Operands that are plain strings are
// field names; wrap a string in Value to pass it as a string constant.
func Value(v any) any {
	return literal{v: v}
}

type literal struct{ v any }

// toOperand converts a builder argument into an operand: strings become
// fields (or system variables when prefixed by "$$"). Expressions, fields,
// system variables, Value wrappers and other constants are kept.
func toOperand(arg string, x any) (any, error) {
	switch v := x.(type) {
	case nil:
		return nil, invalidArgument(arg, "operand must not be nil")
	case string:
		if strings.HasPrefix(v, "$$") {
			return SystemVariable(v[2:]), nil
		}
		f := FieldOf(v)
		if err := f.validate(arg); err != nil {
			return nil, err
		}
		return f, nil
	case Field:
		if err := v.validate(arg); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err := errOf(x); err != nil {
		return nil, err
	}
	return x, nil
}

// renderValue computes the wire value of an operand.
func renderValue(ctx OperationContext, v any) (any, error) {
	switch x := v.(type) {
	case literal:
		return x.v, nil
	case Field:
		ref, err := ctx.Reference(x)
		if err != nil {
			return nil, err
		}
		return ref.String(), nil
	case FieldReference:
		return x.String(), nil
	case SystemVariable:
		return x.String(), nil
	case Expression:
		return x.ToDocument(ctx)
	case wire.D:
		out := make(wire.D, len(x))
		for i, e := range x {
			rv, err := renderValue(ctx, e.Value)
			if err != nil {
				return nil, err
			}
			out[i] = wire.E{Key: e.Key, Value: rv}
		}
		return out, nil
	case []any:
		return renderList(ctx, x)
	}
	// Typed slices and string-keyed maps are walked like lists and documents.
	switch n := wire.Normalize(v).(type) {
	case wire.D, []any:
		return renderValue(ctx, n)
	}
	return v, nil
}

func renderList(ctx OperationContext, list []any) ([]any, error) {
	out := make([]any, len(list))
	for i, x := range list {
		rv, err := renderValue(ctx, x)
		if err != nil {
			return nil, err
		}
		out[i] = rv
	}
	return out, nil
}

// operator is the shared representation of operator nodes: a token and an
// ordered operand list that is copied, never modified, when extended.
type operator struct {
	token    string
	operands []any
	unary    bool // a single operand is rendered without the list
	err      error
}

func newOperator(token string, unary bool, operands ...any) operator {
	o := operator{token: token, unary: unary}
	for _, x := range operands {
		o = o.with(x)
	}
	return o
}

// with returns a copy of o with x appended. x follows the toOperand rules.
func (o operator) with(x any) operator {
	if o.err != nil {
		return o
	}
	v, err := toOperand(o.token, x)
	if err != nil {
		o.err = err
		return o
	}
	o.operands = append(slices.Clone(o.operands), v)
	return o
}

// withValue returns a copy of o with the constant v appended.
func (o operator) withValue(v any) operator {
	return o.with(literal{v: v})
}

// Err returns the first construction error of the node.
func (o operator) Err() error { return o.err }

// Operator returns the operator token, such as "$cmp".
func (o operator) Operator() string { return o.token }

// ToDocument renders {token: [operands...]}.
func (o operator) ToDocument(ctx OperationContext) (wire.D, error) {
	if o.err != nil {
		return nil, o.err
	}
	args, err := renderList(ctx, o.operands)
	if err != nil {
		return nil, err
	}
	if o.unary && len(args) == 1 {
		return wire.D{{Key: o.token, Value: args[0]}}, nil
	}
	return wire.D{{Key: o.token, Value: args}}, nil
}

// OperatorExpr is a generic operator node. Operators without a dedicated
// type are OperatorExprs, and NewOperator builds operators this package does
// not define.
type OperatorExpr struct{ operator }

// NewOperator returns an operator node rendering {token: [operands...]}.
func NewOperator(token string, operands ...any) OperatorExpr {
	if !strings.HasPrefix(token, "$") {
		return OperatorExpr{operator{token: token, err: invalidArgument("operator", "token %q must start with $", token)}}
	}
	return OperatorExpr{newOperator(token, false, operands...)}
}

// With returns a copy of e with the field or expression x appended.
func (e OperatorExpr) With(x any) OperatorExpr { return OperatorExpr{e.with(x)} }

// WithValue returns a copy of e with the constant v appended.
func (e OperatorExpr) WithValue(v any) OperatorExpr { return OperatorExpr{e.withValue(v)} }

func unaryOperator(token string, x any) OperatorExpr {
	return OperatorExpr{newOperator(token, true, x)}
}

func listOperator(token string, operands []any) OperatorExpr {
	o := newOperator(token, false, operands...)
	if o.err == nil && len(operands) == 0 {
		o.err = invalidArgument(token, "at least one operand is required")
	}
	return OperatorExpr{o}
}
