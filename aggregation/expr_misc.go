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

// Accumulators. A single operand renders unwrapped ({"$sum": "$qty"}), which
// is the form $group requires; several operands render as a list.

// Sum returns a $sum accumulator.
func Sum(operands ...any) OperatorExpr { return accumulator("$sum", operands) }

// Avg returns an $avg accumulator.
func Avg(operands ...any) OperatorExpr { return accumulator("$avg", operands) }

// Max returns a $max accumulator.
func Max(operands ...any) OperatorExpr { return accumulator("$max", operands) }

// Min returns a $min accumulator.
func Min(operands ...any) OperatorExpr { return accumulator("$min", operands) }

// First returns a $first accumulator.
func First(x any) OperatorExpr { return unaryOperator("$first", x) }

// Last returns a $last accumulator.
func Last(x any) OperatorExpr { return unaryOperator("$last", x) }

// Push returns a $push accumulator.
func Push(x any) OperatorExpr { return unaryOperator("$push", x) }

// AddToSet returns an $addToSet accumulator.
func AddToSet(x any) OperatorExpr { return unaryOperator("$addToSet", x) }

func accumulator(token string, operands []any) OperatorExpr {
	e := listOperator(token, operands)
	e.unary = true
	return e
}

// And returns {"$and": [operands...]}.
func And(operands ...any) OperatorExpr { return listOperator("$and", operands) }

// Or returns {"$or": [operands...]}.
func Or(operands ...any) OperatorExpr { return listOperator("$or", operands) }

// Not returns {"$not": [x]}.
func Not(x any) OperatorExpr { return OperatorExpr{newOperator("$not", false, x)} }

// Concat returns {"$concat": [operands...]}.
func Concat(operands ...any) OperatorExpr { return listOperator("$concat", operands) }

// ToLower returns {"$toLower": x}.
func ToLower(x any) OperatorExpr { return unaryOperator("$toLower", x) }

// ToUpper returns {"$toUpper": x}.
func ToUpper(x any) OperatorExpr { return unaryOperator("$toUpper", x) }

// Size returns {"$size": x}.
func Size(x any) OperatorExpr { return unaryOperator("$size", x) }

// ArrayElemAt returns {"$arrayElemAt": [array, index]}.
func ArrayElemAt(array any, index int) OperatorExpr {
	return OperatorExpr{newOperator("$arrayElemAt", false, array).withValue(index)}
}

// In returns {"$in": [x, array]}.
func In(x, array any) OperatorExpr {
	return OperatorExpr{newOperator("$in", false, x, array)}
}

// IfNull returns {"$ifNull": [x, replacement]}.
func IfNull(x, replacement any) OperatorExpr {
	return OperatorExpr{newOperator("$ifNull", false, x, replacement)}
}

// Literal returns {"$literal": v}. v is not parsed by the engine.
func Literal(v any) OperatorExpr {
	return OperatorExpr{operator{token: "$literal", operands: []any{literal{v: v}}, unary: true}}
}

// Meta returns {"$meta": keyword}, for example Meta("vectorSearchScore").
func Meta(keyword string) OperatorExpr {
	if keyword == "" {
		return OperatorExpr{operator{token: "$meta", err: invalidArgument("$meta", "keyword must not be empty")}}
	}
	return OperatorExpr{operator{token: "$meta", operands: []any{literal{v: keyword}}, unary: true}}
}

// CondExpr renders {"$cond": {"if": ..., "then": ..., "else": ...}}.
type CondExpr struct {
	ifOp, thenOp, elseOp any
	err                  error
}

// Cond returns a conditional. Each argument follows the operand rules:
// strings are field names, use Value for string constants.
func Cond(ifx, thenx, elsex any) CondExpr {
	var c CondExpr
	if c.ifOp, c.err = toOperand("$cond.if", ifx); c.err != nil {
		return c
	}
	if c.thenOp, c.err = toOperand("$cond.then", thenx); c.err != nil {
		return c
	}
	c.elseOp, c.err = toOperand("$cond.else", elsex)
	return c
}

// Err returns the construction error, if any.
func (c CondExpr) Err() error { return c.err }

func (c CondExpr) ToDocument(ctx OperationContext) (wire.D, error) {
	if c.err != nil {
		return nil, c.err
	}
	var doc wire.D
	for _, part := range []struct {
		key string
		op  any
	}{{"if", c.ifOp}, {"then", c.thenOp}, {"else", c.elseOp}} {
		v, err := renderValue(ctx, part.op)
		if err != nil {
			return nil, err
		}
		doc = append(doc, wire.E{Key: part.key, Value: v})
	}
	return wire.D{{Key: "$cond", Value: doc}}, nil
}

// SwitchBranch is one case of a $switch.
type SwitchBranch struct {
	caseOp, thenOp any
	err            error
}

// Case returns a $switch branch taken when cond is true.
func Case(cond, then any) SwitchBranch {
	var b SwitchBranch
	if b.caseOp, b.err = toOperand("$switch.case", cond); b.err != nil {
		return b
	}
	b.thenOp, b.err = toOperand("$switch.then", then)
	return b
}

// SwitchExpr renders {"$switch": {"branches": [...], "default": ...}}.
type SwitchExpr struct {
	branches []SwitchBranch
	def      any
	hasDef   bool
	err      error
}

// Switch returns a $switch over branches.
func Switch(branches ...SwitchBranch) SwitchExpr {
	s := SwitchExpr{branches: slices.Clone(branches)}
	if len(branches) == 0 {
		s.err = invalidArgument("$switch", "at least one branch is required")
	}
	for _, b := range branches {
		if b.err != nil && s.err == nil {
			s.err = b.err
		}
	}
	return s
}

// Default returns a copy of s evaluating to v when no branch matches.
func (s SwitchExpr) Default(v any) SwitchExpr {
	if s.err != nil {
		return s
	}
	s.def, s.err = toOperand("$switch.default", v)
	s.hasDef = s.err == nil
	return s
}

// Err returns the construction error, if any.
func (s SwitchExpr) Err() error { return s.err }

func (s SwitchExpr) ToDocument(ctx OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	branches := make([]any, 0, len(s.branches))
	for _, b := range s.branches {
		c, err := renderValue(ctx, b.caseOp)
		if err != nil {
			return nil, err
		}
		t, err := renderValue(ctx, b.thenOp)
		if err != nil {
			return nil, err
		}
		branches = append(branches, wire.D{{Key: "case", Value: c}, {Key: "then", Value: t}})
	}
	doc := wire.D{{Key: "branches", Value: branches}}
	if s.hasDef {
		d, err := renderValue(ctx, s.def)
		if err != nil {
			return nil, err
		}
		doc = append(doc, wire.E{Key: "default", Value: d})
	}
	return wire.D{{Key: "$switch", Value: doc}}, nil
}
