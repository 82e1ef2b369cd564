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

// Stage is one logical pipeline stage. Stages are immutable: builder methods
// return new values and compiling a stage does not change it.
type Stage interface {
	// ToDocument renders the primary stage document.
	ToDocument(ctx OperationContext) (wire.D, error)
	// Operator returns the stage keyword, such as "$match".
	Operator() string
}

// MultiStage is a Stage that expands into several physical stages.
type MultiStage interface {
	Stage
	ToPipelineStages(ctx OperationContext) ([]wire.D, error)
}

// FieldsExposingStage is a Stage that changes which fields later stages
// can reference.
type FieldsExposingStage interface {
	Stage
	Fields() ExposedFields
}

// documentReplacingStage is implemented by stages that replace the whole
// document; later stages resolve against DefaultContext.
type documentReplacingStage interface {
	Stage
	replacesDocument()
}

// ToPipelineStages compiles s into its physical stage documents. Stages
// that are not a MultiStage compile into exactly one document.
func ToPipelineStages(s Stage, ctx OperationContext) ([]wire.D, error) {
	if ms, ok := s.(MultiStage); ok {
		return ms.ToPipelineStages(ctx)
	}
	doc, err := s.ToDocument(ctx)
	if err != nil {
		return nil, err
	}
	return []wire.D{doc}, nil
}

// CriteriaDefinition is a filter accepted by $match and related stages.
// criteria.Criteria implements it.
type CriteriaDefinition interface {
	CriteriaObject() wire.D
	Key() string
}
