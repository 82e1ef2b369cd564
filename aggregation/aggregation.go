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
	"log/slog"
	"slices"

	"github.com/docpipe/mongoagg/wire"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Aggregation is an ordered list of stages with command options. It is
// immutable and may be compiled concurrently.
type Aggregation struct {
	stages   []Stage
	settings settings
	logger   *slog.Logger
}

// New returns an Aggregation over stages. It reports the first
// construction error recorded by any stage, and rejects stage orders the
// server refuses: $vectorSearch must come first and $out last.
func New(stages []Stage, opts ...Option) (*Aggregation, error) {
	var s settings
	for _, o := range opts {
		o.apply(&s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return newAggregation(slices.Clone(stages), s)
}

func newAggregation(stages []Stage, s settings) (*Aggregation, error) {
	for i, st := range stages {
		if st == nil {
			return nil, invalidArgument("stages", "stage %d is nil", i)
		}
		if err := errOf(st); err != nil {
			return nil, err
		}
		switch st.Operator() {
		case "$vectorSearch":
			if i != 0 {
				return nil, invalidArgument("$vectorSearch", "must be the first stage, found at %d", i)
			}
		case "$out":
			if i != len(stages)-1 {
				return nil, invalidArgument("$out", "must be the last stage, found at %d", i)
			}
		}
	}
	return &Aggregation{stages: stages, settings: s, logger: s.resolveLogger()}, nil
}

// Stages returns the logical stages in order.
func (a *Aggregation) Stages() []Stage { return slices.Clone(a.stages) }

// Append returns a new Aggregation with stages added after those of a.
func (a *Aggregation) Append(stages ...Stage) (*Aggregation, error) {
	all := append(slices.Clone(a.stages), stages...)
	return newAggregation(all, a.settings)
}

// RootContext returns the context the first stage is compiled with: a
// TypedContext when a domain type is configured, DefaultContext otherwise.
func (a *Aggregation) RootContext() OperationContext {
	if a.settings.domainType == nil {
		return DefaultContext
	}
	tc := NewTypedContext(a.settings.domainType, a.settings.mapper)
	if a.settings.strict {
		tc = tc.Strict()
	}
	return tc
}

// Pipeline compiles the stages into stage documents. A nil root uses
// RootContext.
//
// Each stage is compiled with the context left by its predecessor. A stage
// exposing fields scopes the next stage to those fields, a stage replacing
// the document resets the scope to DefaultContext, and any other stage
// leaves it unchanged.
func (a *Aggregation) Pipeline(root OperationContext) ([]wire.D, error) {
	if root == nil {
		root = a.RootContext()
	}
	ctx := root
	var out []wire.D
	for _, st := range a.stages {
		docs, err := ToPipelineStages(st, ctx)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("aggregation: compiled stage", "operator", st.Operator(), "physicalStages", len(docs))
		out = append(out, docs...)

		switch st := st.(type) {
		case documentReplacingStage:
			ctx = DefaultContext
		case FieldsExposingStage:
			ctx = NewExposedFieldsContext(ctx, st.Operator(), st.Fields())
		}
	}
	a.logger.Debug("aggregation: compiled pipeline", "stages", len(a.stages), "physicalStages", len(out))
	return out, nil
}

// MongoPipeline compiles the stages into a driver pipeline.
func (a *Aggregation) MongoPipeline(root OperationContext) (mongo.Pipeline, error) {
	stages, err := a.Pipeline(root)
	if err != nil {
		return nil, err
	}
	return wire.Pipeline(stages), nil
}

// Command renders the aggregate command for collection. Options that were
// not set are omitted.
func (a *Aggregation) Command(collection string, root OperationContext) (wire.D, error) {
	if collection == "" {
		return nil, invalidArgument("aggregate", "collection must not be empty")
	}
	stages, err := a.Pipeline(root)
	if err != nil {
		return nil, err
	}
	pipeline := make([]any, len(stages))
	for i, s := range stages {
		pipeline[i] = s
	}
	s := a.settings
	cursor := wire.D{}
	if n, ok := s.batchSize.Get(); ok {
		cursor = append(cursor, wire.E{Key: "batchSize", Value: n})
	}
	cmd := wire.D{
		{Key: "aggregate", Value: collection},
		{Key: "pipeline", Value: pipeline},
		{Key: "cursor", Value: cursor},
	}
	if v, ok := s.allowDiskUse.Get(); ok {
		cmd = append(cmd, wire.E{Key: "allowDiskUse", Value: v})
	}
	if d, ok := s.maxTime.Get(); ok {
		cmd = append(cmd, wire.E{Key: "maxTimeMS", Value: d.Milliseconds()})
	}
	if c, ok := s.comment.Get(); ok {
		cmd = append(cmd, wire.E{Key: "comment", Value: c})
	}
	if s.hint != nil {
		cmd = append(cmd, wire.E{Key: "hint", Value: s.hint})
	}
	if s.collation != nil {
		cmd = append(cmd, wire.E{Key: "collation", Value: s.collation})
	}
	return cmd, nil
}
