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

// Comparison operators. Each factory takes the first operand: a field name,
// Field, Expression or Value. Chain methods return a new node with one more
// operand; the receiver is left unchanged. Operand order is preserved.

// CmpOperator renders {"$cmp": [a, b]}.
type CmpOperator struct{ operator }

// Cmp starts a $cmp comparison of x.
func Cmp(x any) CmpOperator { return CmpOperator{newOperator("$cmp", false, x)} }

// CompareTo appends the field or expression x.
func (o CmpOperator) CompareTo(x any) CmpOperator { return CmpOperator{o.with(x)} }

// CompareToValue appends the constant v.
func (o CmpOperator) CompareToValue(v any) CmpOperator { return CmpOperator{o.withValue(v)} }

// EqOperator renders {"$eq": [a, b]}.
type EqOperator struct{ operator }

// Eq starts an $eq comparison of x.
func Eq(x any) EqOperator { return EqOperator{newOperator("$eq", false, x)} }

// EqualTo appends the field or expression x.
func (o EqOperator) EqualTo(x any) EqOperator { return EqOperator{o.with(x)} }

// EqualToValue appends the constant v.
func (o EqOperator) EqualToValue(v any) EqOperator { return EqOperator{o.withValue(v)} }

// GtOperator renders {"$gt": [a, b]}.
type GtOperator struct{ operator }

// Gt starts a $gt comparison of x.
func Gt(x any) GtOperator { return GtOperator{newOperator("$gt", false, x)} }

// GreaterThan appends the field or expression x.
func (o GtOperator) GreaterThan(x any) GtOperator { return GtOperator{o.with(x)} }

// GreaterThanValue appends the constant v.
func (o GtOperator) GreaterThanValue(v any) GtOperator { return GtOperator{o.withValue(v)} }

// GteOperator renders {"$gte": [a, b]}.
type GteOperator struct{ operator }

// Gte starts a $gte comparison of x.
func Gte(x any) GteOperator { return GteOperator{newOperator("$gte", false, x)} }

// GreaterThanEqualTo appends the field or expression x.
func (o GteOperator) GreaterThanEqualTo(x any) GteOperator { return GteOperator{o.with(x)} }

// GreaterThanEqualToValue appends the constant v.
func (o GteOperator) GreaterThanEqualToValue(v any) GteOperator {
	return GteOperator{o.withValue(v)}
}

// LtOperator renders {"$lt": [a, b]}.
type LtOperator struct{ operator }

// Lt starts a $lt comparison of x.
func Lt(x any) LtOperator { return LtOperator{newOperator("$lt", false, x)} }

// LessThan appends the field or expression x.
func (o LtOperator) LessThan(x any) LtOperator { return LtOperator{o.with(x)} }

// LessThanValue appends the constant v.
func (o LtOperator) LessThanValue(v any) LtOperator { return LtOperator{o.withValue(v)} }

// LteOperator renders {"$lte": [a, b]}.
type LteOperator struct{ operator }

// Lte starts a $lte comparison of x.
func Lte(x any) LteOperator { return LteOperator{newOperator("$lte", false, x)} }

// LessThanEqualTo appends the field or expression x.
func (o LteOperator) LessThanEqualTo(x any) LteOperator { return LteOperator{o.with(x)} }

// LessThanEqualToValue appends the constant v.
func (o LteOperator) LessThanEqualToValue(v any) LteOperator {
	return LteOperator{o.withValue(v)}
}

// NeOperator renders {"$ne": [a, b]}.
type NeOperator struct{ operator }

// Ne starts a $ne comparison of x.
func Ne(x any) NeOperator { return NeOperator{newOperator("$ne", false, x)} }

// NotEqualTo appends the field or expression x.
func (o NeOperator) NotEqualTo(x any) NeOperator { return NeOperator{o.with(x)} }

// NotEqualToValue appends the constant v.
func (o NeOperator) NotEqualToValue(v any) NeOperator { return NeOperator{o.withValue(v)} }

// ComparisonBuilder picks a comparison for a fixed first operand.
type ComparisonBuilder struct {
	x any
}

// ComparisonOf returns a builder for comparisons whose first operand is x.
func ComparisonOf(x any) ComparisonBuilder { return ComparisonBuilder{x: x} }

// CompareTo returns {"$cmp": [x, y]}.
func (b ComparisonBuilder) CompareTo(y any) CmpOperator { return Cmp(b.x).CompareTo(y) }

// EqualTo returns {"$eq": [x, y]}.
func (b ComparisonBuilder) EqualTo(y any) EqOperator { return Eq(b.x).EqualTo(y) }

// GreaterThan returns {"$gt": [x, y]}.
func (b ComparisonBuilder) GreaterThan(y any) GtOperator { return Gt(b.x).GreaterThan(y) }

// GreaterThanEqualTo returns {"$gte": [x, y]}.
func (b ComparisonBuilder) GreaterThanEqualTo(y any) GteOperator {
	return Gte(b.x).GreaterThanEqualTo(y)
}

// LessThan returns {"$lt": [x, y]}.
func (b ComparisonBuilder) LessThan(y any) LtOperator { return Lt(b.x).LessThan(y) }

// LessThanEqualTo returns {"$lte": [x, y]}.
func (b ComparisonBuilder) LessThanEqualTo(y any) LteOperator {
	return Lte(b.x).LessThanEqualTo(y)
}

// NotEqualTo returns {"$ne": [x, y]}.
func (b ComparisonBuilder) NotEqualTo(y any) NeOperator { return Ne(b.x).NotEqualTo(y) }
