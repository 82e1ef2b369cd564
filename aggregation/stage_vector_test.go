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
	"testing"

	"github.com/docpipe/mongoagg/criteria"
	"github.com/docpipe/mongoagg/internal/testutil"
	"github.com/docpipe/mongoagg/wire"
)

func TestVectorSearchPipelineStages(t *testing.T) {
	base := VectorSearch("vector_index").Path("plot_embedding").Vector([]float64{0.1, 0.2})
	search := func(extra ...wire.E) wire.D {
		doc := wire.D{
			{Key: "index", Value: "vector_index"},
			{Key: "path", Value: "plot_embedding"},
			{Key: "queryVector", Value: []any{0.1, 0.2}},
			{Key: "limit", Value: int64(10)},
		}
		return wire.D{{Key: "$vectorSearch", Value: append(doc, extra...)}}
	}
	score := func(name string) wire.D {
		return wire.D{{Key: "$addFields", Value: wire.D{
			{Key: name, Value: wire.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}}
	}
	atLeast := func(c criteria.Criteria) criteria.Criteria { return c.Gte(0.9) }

	testcases := []struct {
		desc  string
		stage VectorSearchStage
		want  []wire.D
	}{
		{
			desc:  "search only",
			stage: base.Limit(10),
			want:  []wire.D{search()},
		},
		{
			desc:  "with options",
			stage: base.NumCandidates(150).SearchType(SearchTypeANN).Filter(criteria.Where("year").Gt(1955)).Limit(10),
			want: []wire.D{search(
				wire.E{Key: "filter", Value: wire.D{{Key: "year", Value: wire.D{{Key: "$gt", Value: 1955}}}}},
				wire.E{Key: "numCandidates", Value: int64(150)},
				wire.E{Key: "exact", Value: false},
			)},
		},
		{
			desc:  "exhaustive",
			stage: base.SearchType(SearchTypeENN).Limit(10),
			want:  []wire.D{search(wire.E{Key: "exact", Value: true})},
		},
		{
			desc:  "default score field",
			stage: base.WithSearchScore("").Limit(10),
			want:  []wire.D{search(), score("score")},
		},
		{
			desc:  "named score",
			stage: base.Limit(10).WithSearchScore("relevance"),
			want:  []wire.D{search(), score("relevance")},
		},
		{
			desc:  "score filter",
			stage: base.WithSearchScore("relevance").FilterBySearchScore(atLeast).Limit(10),
			want: []wire.D{
				search(),
				score("relevance"),
				{{Key: "$match", Value: wire.D{{Key: "relevance", Value: wire.D{{Key: "$gte", Value: 0.9}}}}}},
			},
		},
		{
			desc:  "score filter without name",
			stage: base.Limit(10).WithFilterBySearchScore(atLeast),
			want: []wire.D{
				search(),
				score(HiddenSearchScoreField),
				{{Key: "$match", Value: wire.D{{Key: HiddenSearchScoreField, Value: wire.D{{Key: "$gte", Value: 0.9}}}}}},
			},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := ToPipelineStages(tc.stage, DefaultContext)
			if err != nil {
				t.Fatalf("ToPipelineStages() failed: %v", err)
			}
			if diff := testutil.Diff(got, tc.want); diff != "" {
				t.Errorf("ToPipelineStages() returned diff (-got +want): %s", diff)
			}
		})
	}
}

func TestVectorSearchPaths(t *testing.T) {
	testcases := []struct {
		desc  string
		paths []any
		want  any
	}{
		{desc: "plain", paths: []any{"plot"}, want: "plot"},
		{desc: "wildcard", paths: []any{WildcardPath("plot.*")}, want: wire.D{{Key: "wildcard", Value: "plot.*"}}},
		{
			desc:  "multi",
			paths: []any{MultiPath("title", "english")},
			want:  wire.D{{Key: "value", Value: "title"}, {Key: "multi", Value: "english"}},
		},
		{
			desc:  "several",
			paths: []any{"plot", FieldOf("title"), PathOf("genre")},
			want:  []any{"plot", "title", "genre"},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			doc, err := VectorSearch("idx").Path(tc.paths...).Vector([]float32{1}).Limit(1).ToDocument(DefaultContext)
			if err != nil {
				t.Fatalf("ToDocument() failed: %v", err)
			}
			body, _ := doc.Get("$vectorSearch")
			got, _ := body.(wire.D).Get("path")
			if diff := testutil.Diff(got, tc.want); diff != "" {
				t.Errorf("path returned diff (-got +want): %s", diff)
			}
		})
	}
}

func TestVectorSearchErrors(t *testing.T) {
	path := VectorSearch("idx").Path("v")
	testcases := []struct {
		desc  string
		stage VectorSearchStage
	}{
		{desc: "empty index", stage: VectorSearch("").Path("v").Vector([]float64{1}).Limit(1)},
		{desc: "no path", stage: VectorSearch("idx").Path().Vector([]float64{1}).Limit(1)},
		{desc: "bad path type", stage: VectorSearch("idx").Path(42).Vector([]float64{1}).Limit(1)},
		{desc: "empty wildcard", stage: VectorSearch("idx").Path(WildcardPath("")).Vector([]float64{1}).Limit(1)},
		{desc: "empty vector", stage: path.Vector([]float64{}).Limit(1)},
		{desc: "non-numeric vector", stage: path.Vector([]string{"a"}).Limit(1)},
		{desc: "zero limit", stage: path.Vector([]float64{1}).Limit(0)},
		{desc: "candidates below limit", stage: path.Vector([]float64{1}).NumCandidates(5).Limit(10)},
		{desc: "candidates with exhaustive", stage: path.Vector([]float64{1}).NumCandidates(50).SearchType(SearchTypeENN).Limit(10)},
		{desc: "nil filter", stage: path.Vector([]float64{1}).Filter(nil).Limit(1)},
		{desc: "bad filter", stage: path.Vector([]float64{1}).Filter(criteria.Where("")).Limit(1)},
		{desc: "nil score filter", stage: path.Vector([]float64{1}).FilterBySearchScore(nil).Limit(1)},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			if tc.stage.Err() == nil {
				t.Error("Err() = nil, want error")
			}
			if _, err := ToPipelineStages(tc.stage, DefaultContext); err == nil {
				t.Error("ToPipelineStages() succeeded, want error")
			}
		})
	}
}

func TestVectorSearchFields(t *testing.T) {
	stage := VectorSearch("idx").Path("v").Vector([]float64{1}).FilterBySearchScore(func(c criteria.Criteria) criteria.Criteria {
		return c.Gt(0.5)
	}).Limit(1)
	fields := stage.Fields()
	if !fields.IsSynthetic() {
		t.Error("IsSynthetic() = false, want true")
	}
	if diff := testutil.Diff(fields.Names(), []string{HiddenSearchScoreField}); diff != "" {
		t.Errorf("Fields() names diff (-got +want): %s", diff)
	}
}
