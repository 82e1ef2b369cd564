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

// ArithmeticBuilder builds arithmetic operators over a first operand.
type ArithmeticBuilder struct {
	x any
}

// ArithmeticOf returns a builder for arithmetic on x: a field name, Field,
// Expression or Value.
func ArithmeticOf(x any) ArithmeticBuilder { return ArithmeticBuilder{x: x} }

func (b ArithmeticBuilder) binary(token string, y any) OperatorExpr {
	return OperatorExpr{newOperator(token, false, b.x).with(y)}
}

func (b ArithmeticBuilder) binaryValue(token string, v any) OperatorExpr {
	return OperatorExpr{newOperator(token, false, b.x).withValue(v)}
}

// Add returns {"$add": [x, y]}. More operands can be appended with With.
func (b ArithmeticBuilder) Add(y any) OperatorExpr { return b.binary("$add", y) }

// AddValue returns {"$add": [x, v]}.
func (b ArithmeticBuilder) AddValue(v any) OperatorExpr { return b.binaryValue("$add", v) }

// Subtract returns {"$subtract": [x, y]}.
func (b ArithmeticBuilder) Subtract(y any) OperatorExpr { return b.binary("$subtract", y) }

// SubtractValue returns {"$subtract": [x, v]}.
func (b ArithmeticBuilder) SubtractValue(v any) OperatorExpr {
	return b.binaryValue("$subtract", v)
}

// Multiply returns {"$multiply": [x, y]}.
func (b ArithmeticBuilder) Multiply(y any) OperatorExpr { return b.binary("$multiply", y) }

// MultiplyValue returns {"$multiply": [x, v]}.
func (b ArithmeticBuilder) MultiplyValue(v any) OperatorExpr {
	return b.binaryValue("$multiply", v)
}

// Divide returns {"$divide": [x, y]}.
func (b ArithmeticBuilder) Divide(y any) OperatorExpr { return b.binary("$divide", y) }

// DivideValue returns {"$divide": [x, v]}.
func (b ArithmeticBuilder) DivideValue(v any) OperatorExpr { return b.binaryValue("$divide", v) }

// Mod returns {"$mod": [x, y]}.
func (b ArithmeticBuilder) Mod(y any) OperatorExpr { return b.binary("$mod", y) }

// ModValue returns {"$mod": [x, v]}.
func (b ArithmeticBuilder) ModValue(v any) OperatorExpr { return b.binaryValue("$mod", v) }

// Pow returns {"$pow": [x, y]}.
func (b ArithmeticBuilder) Pow(y any) OperatorExpr { return b.binary("$pow", y) }

// PowValue returns {"$pow": [x, v]}.
func (b ArithmeticBuilder) PowValue(v any) OperatorExpr { return b.binaryValue("$pow", v) }

// Abs returns {"$abs": x}.
func (b ArithmeticBuilder) Abs() OperatorExpr { return unaryOperator("$abs", b.x) }

// Ceil returns {"$ceil": x}.
func (b ArithmeticBuilder) Ceil() OperatorExpr { return unaryOperator("$ceil", b.x) }

// Floor returns {"$floor": x}.
func (b ArithmeticBuilder) Floor() OperatorExpr { return unaryOperator("$floor", b.x) }

// Sqrt returns {"$sqrt": x}.
func (b ArithmeticBuilder) Sqrt() OperatorExpr { return unaryOperator("$sqrt", b.x) }

// Exp returns {"$exp": x}.
func (b ArithmeticBuilder) Exp() OperatorExpr { return unaryOperator("$exp", b.x) }

// Ln returns {"$ln": x}.
func (b ArithmeticBuilder) Ln() OperatorExpr { return unaryOperator("$ln", b.x) }

// Log10 returns {"$log10": x}.
func (b ArithmeticBuilder) Log10() OperatorExpr { return unaryOperator("$log10", b.x) }

// Trunc returns {"$trunc": x}.
func (b ArithmeticBuilder) Trunc() OperatorExpr { return unaryOperator("$trunc", b.x) }

// Round returns {"$round": x}.
func (b ArithmeticBuilder) Round() OperatorExpr { return unaryOperator("$round", b.x) }

// RoundTo returns {"$round": [x, place]}.
func (b ArithmeticBuilder) RoundTo(place int) OperatorExpr {
	return b.binaryValue("$round", place)
}
