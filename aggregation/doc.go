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

/*
Package aggregation compiles aggregation pipelines into the stage documents
of the MongoDB aggregate command.

A pipeline is a list of stages built with fluent, immutable builders:

	agg, err := aggregation.New([]aggregation.Stage{
		aggregation.Match(criteria.Where("status").Is("A")),
		aggregation.Group("cust_id").Sum("amount").As("total"),
		aggregation.SortBy(aggregation.Desc("total")),
		aggregation.Out("totals"),
	})
	if err != nil {
		return err
	}
	stages, err := agg.Pipeline(nil)

Builders record the first invalid argument they receive; New reports it
before anything is compiled.

# Field scope

Stages are compiled in order, each against an OperationContext that
resolves field names. The first stage sees the root context: every name
when the pipeline is untyped, or the properties of a domain type (see
WithDomainType). A stage that exposes fields, such as $project or $group,
limits the names the next stage may reference; after $group, the group key
"cust_id" is referenced as "$_id". Stages that only add fields, such as
$addFields, keep every earlier name in scope.

# Expressions

Operators take operands that are field names, Fields, other expressions or
constants. Plain strings are field names; wrap string constants in Value:

	aggregation.Cond(aggregation.Gte("qty").GreaterThanEqualToValue(250), aggregation.Value("bulk"), aggregation.Value("retail"))
*/
package aggregation // import "github.com/docpipe/mongoagg/aggregation"
