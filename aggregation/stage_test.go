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
	"testing"

	"github.com/docpipe/mongoagg/criteria"
	"github.com/docpipe/mongoagg/internal/testutil"
	"github.com/docpipe/mongoagg/wire"
)

func TestStageToDocument(t *testing.T) {
	testcases := []struct {
		desc  string
		stage Stage
		want  wire.D
	}{
		{
			desc:  "match",
			stage: Match(criteria.Where("status").Is("A").And("qty").Gt(5)),
			want: wire.D{{Key: "$match", Value: wire.D{
				{Key: "status", Value: "A"},
				{Key: "qty", Value: wire.D{{Key: "$gt", Value: 5}}},
			}}},
		},
		{
			desc:  "match expression",
			stage: MatchExpression(Gt("spent").GreaterThan("budget")),
			want: wire.D{{Key: "$match", Value: wire.D{
				{Key: "$expr", Value: wire.D{{Key: "$gt", Value: []any{"$spent", "$budget"}}}},
			}}},
		},
		{
			desc:  "project include and alias",
			stage: Project("name").And("qty").As("quantity").And(ArithmeticOf("price").Multiply("qty")).As("total"),
			want: wire.D{{Key: "$project", Value: wire.D{
				{Key: "name", Value: 1},
				{Key: "quantity", Value: "$qty"},
				{Key: "total", Value: wire.D{{Key: "$multiply", Value: []any{"$price", "$qty"}}}},
			}}},
		},
		{
			desc:  "project without id",
			stage: Project("name").AndExclude("_id"),
			want: wire.D{{Key: "$project", Value: wire.D{
				{Key: "name", Value: 1},
				{Key: "_id", Value: 0},
			}}},
		},
		{
			desc:  "project constant",
			stage: Project().And("draft").AsValue("status"),
			want:  wire.D{{Key: "$project", Value: wire.D{{Key: "status", Value: "draft"}}}},
		},
		{
			desc:  "exclusion projection",
			stage: ProjectStage{}.AndExclude("secret", "internal"),
			want: wire.D{{Key: "$project", Value: wire.D{
				{Key: "secret", Value: 0},
				{Key: "internal", Value: 0},
			}}},
		},
		{
			desc:  "addFields",
			stage: AddFields().Field("total").ValueOf(Sum("a", "b")).Field("kind").Value("order"),
			want: wire.D{{Key: "$addFields", Value: wire.D{
				{Key: "total", Value: wire.D{{Key: "$sum", Value: []any{"$a", "$b"}}}},
				{Key: "kind", Value: "order"},
			}}},
		},
		{
			desc:  "addFields typed slice",
			stage: AddFields().Field("pair").ValueOf([]Field{FieldOf("x"), FieldOf("y")}),
			want:  wire.D{{Key: "$addFields", Value: wire.D{{Key: "pair", Value: []any{"$x", "$y"}}}}},
		},
		{
			desc:  "set",
			stage: Set().Field("copy").ValueOf("orig"),
			want:  wire.D{{Key: "$set", Value: wire.D{{Key: "copy", Value: "$orig"}}}},
		},
		{
			desc:  "unset one",
			stage: Unset("tmp"),
			want:  wire.D{{Key: "$unset", Value: "tmp"}},
		},
		{
			desc:  "unset many",
			stage: Unset("a", "b"),
			want:  wire.D{{Key: "$unset", Value: []any{"a", "b"}}},
		},
		{
			desc:  "group single key",
			stage: Group("cust").Sum("amt").As("total").Count().As("n"),
			want: wire.D{{Key: "$group", Value: wire.D{
				{Key: "_id", Value: "$cust"},
				{Key: "total", Value: wire.D{{Key: "$sum", Value: "$amt"}}},
				{Key: "n", Value: wire.D{{Key: "$sum", Value: 1}}},
			}}},
		},
		{
			desc:  "group multiple keys",
			stage: Group("cust", "day").Push("item").As("items"),
			want: wire.D{{Key: "$group", Value: wire.D{
				{Key: "_id", Value: wire.D{{Key: "cust", Value: "$cust"}, {Key: "day", Value: "$day"}}},
				{Key: "items", Value: wire.D{{Key: "$push", Value: "$item"}}},
			}}},
		},
		{
			desc:  "group all",
			stage: Group().Avg("score").As("avg"),
			want: wire.D{{Key: "$group", Value: wire.D{
				{Key: "_id", Value: nil},
				{Key: "avg", Value: wire.D{{Key: "$avg", Value: "$score"}}},
			}}},
		},
		{
			desc:  "sort",
			stage: SortBy(Desc("total"), Asc("name")),
			want:  wire.D{{Key: "$sort", Value: wire.D{{Key: "total", Value: -1}, {Key: "name", Value: 1}}}},
		},
		{
			desc:  "skip",
			stage: Skip(20),
			want:  wire.D{{Key: "$skip", Value: int64(20)}},
		},
		{
			desc:  "limit",
			stage: Limit(10),
			want:  wire.D{{Key: "$limit", Value: int64(10)}},
		},
		{
			desc:  "sample",
			stage: Sample(3),
			want:  wire.D{{Key: "$sample", Value: wire.D{{Key: "size", Value: int64(3)}}}},
		},
		{
			desc:  "count",
			stage: Count("passing"),
			want:  wire.D{{Key: "$count", Value: "passing"}},
		},
		{
			desc:  "unwind short",
			stage: Unwind("sizes"),
			want:  wire.D{{Key: "$unwind", Value: "$sizes"}},
		},
		{
			desc:  "unwind options",
			stage: Unwind("sizes").IncludeArrayIndex("idx").PreserveNullAndEmptyArrays(false),
			want: wire.D{{Key: "$unwind", Value: wire.D{
				{Key: "path", Value: "$sizes"},
				{Key: "includeArrayIndex", Value: "idx"},
				{Key: "preserveNullAndEmptyArrays", Value: false},
			}}},
		},
		{
			desc:  "lookup",
			stage: Lookup("inventory", "item", "sku", "stock"),
			want: wire.D{{Key: "$lookup", Value: wire.D{
				{Key: "from", Value: "inventory"},
				{Key: "localField", Value: "item"},
				{Key: "foreignField", Value: "sku"},
				{Key: "as", Value: "stock"},
			}}},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			if err := errOf(tc.stage); err != nil {
				t.Fatalf("Err() = %v", err)
			}
			got, err := tc.stage.ToDocument(DefaultContext)
			if err != nil {
				t.Fatalf("ToDocument() failed: %v", err)
			}
			if diff := testutil.Diff(got, tc.want); diff != "" {
				t.Errorf("ToDocument() returned diff (-got +want): %s", diff)
			}
			again, err := tc.stage.ToDocument(DefaultContext)
			if err != nil {
				t.Fatal(err)
			}
			if diff := testutil.Diff(again, got); diff != "" {
				t.Errorf("second ToDocument() differs (-got +want): %s", diff)
			}
		})
	}
}

func TestStageConstructionErrors(t *testing.T) {
	testcases := []struct {
		desc    string
		stage   Stage
		wantDup bool
	}{
		{desc: "nil criteria", stage: Match(nil)},
		{desc: "bad criteria", stage: Match(criteria.Where(""))},
		{desc: "empty project", stage: Project()},
		{desc: "mixed projection", stage: Project("a").AndExclude("b")},
		{desc: "duplicate projection", stage: Project("a").And("b").As("a"), wantDup: true},
		{desc: "empty addFields", stage: AddFields()},
		{desc: "duplicate addFields", stage: AddFields().Field("a").Value(1).Field("a").Value(2), wantDup: true},
		{desc: "duplicate group key", stage: Group("a", "$a"), wantDup: true},
		{desc: "accumulator shadows key", stage: Group("a").Sum("b").As("a"), wantDup: true},
		{desc: "accumulator named _id", stage: Group("a").Sum("b").As("_id")},
		{desc: "empty unset", stage: Unset()},
		{desc: "empty sort", stage: SortBy()},
		{desc: "negative skip", stage: Skip(-1)},
		{desc: "zero limit", stage: Limit(0)},
		{desc: "empty count", stage: Count("")},
		{desc: "empty unwind", stage: Unwind("")},
		{desc: "lookup without as", stage: Lookup("c", "a", "b", "")},
		{desc: "nil replacement", stage: ReplaceWith(nil)},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			err := errOf(tc.stage)
			if err == nil {
				t.Fatal("Err() = nil, want error")
			}
			if tc.wantDup != errors.Is(err, ErrDuplicateField) {
				t.Errorf("Err() = %v, duplicate = %v", err, tc.wantDup)
			}
			if _, err := tc.stage.ToDocument(DefaultContext); err == nil {
				t.Error("ToDocument() succeeded, want error")
			}
		})
	}
}

func TestReplaceStages(t *testing.T) {
	testcases := []struct {
		desc  string
		stage Stage
		want  wire.D
	}{
		{
			desc:  "replaceRoot field",
			stage: ReplaceRoot("name"),
			want:  wire.D{{Key: "$replaceRoot", Value: wire.D{{Key: "newRoot", Value: "$name"}}}},
		},
		{
			desc:  "replaceWith expression",
			stage: ReplaceWith(NewOperator("$mergeObjects", Root, "details")),
			want: wire.D{{Key: "$replaceWith", Value: wire.D{
				{Key: "$mergeObjects", Value: []any{"$$ROOT", "$details"}},
			}}},
		},
		{
			desc: "replaceWith document",
			stage: ReplaceWith(wire.D{
				{Key: "name", Value: FieldOf("first")},
				{Key: "total", Value: Sum("a", "b")},
				{Key: "tags", Value: []any{FieldOf("t1"), "literal"}},
				{Key: "n", Value: 1},
			}),
			want: wire.D{{Key: "$replaceWith", Value: wire.D{
				{Key: "name", Value: "$first"},
				{Key: "total", Value: wire.D{{Key: "$sum", Value: []any{"$a", "$b"}}}},
				{Key: "tags", Value: []any{"$t1", "literal"}},
				{Key: "n", Value: 1},
			}}},
		},
		{
			desc:  "replaceWith list",
			stage: ReplaceWith([]any{FieldOf("a"), 2}),
			want:  wire.D{{Key: "$replaceWith", Value: []any{"$a", 2}}},
		},
		{
			desc:  "replaceWith typed slice",
			stage: ReplaceWith([]Field{FieldOf("a"), FieldOf("b")}),
			want:  wire.D{{Key: "$replaceWith", Value: []any{"$a", "$b"}}},
		},
		{
			desc:  "replaceWith map",
			stage: ReplaceWith(map[string]any{"t": Sum("x"), "n": FieldOf("a")}),
			want: wire.D{{Key: "$replaceWith", Value: wire.D{
				{Key: "n", Value: "$a"},
				{Key: "t", Value: wire.D{{Key: "$sum", Value: "$x"}}},
			}}},
		},
		{
			desc:  "replaceRoot nested map",
			stage: ReplaceRoot(wire.D{{Key: "ids", Value: map[string][]Field{"all": {FieldOf("a")}}}}),
			want: wire.D{{Key: "$replaceRoot", Value: wire.D{{Key: "newRoot", Value: wire.D{
				{Key: "ids", Value: wire.D{{Key: "all", Value: []any{"$a"}}}},
			}}}}},
		},
		{
			desc:  "replaceWith constant",
			stage: ReplaceWith(Value("x")),
			want:  wire.D{{Key: "$replaceWith", Value: "x"}},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := tc.stage.ToDocument(DefaultContext)
			if err != nil {
				t.Fatalf("ToDocument() failed: %v", err)
			}
			if diff := testutil.Diff(got, tc.want); diff != "" {
				t.Errorf("ToDocument() returned diff (-got +want): %s", diff)
			}
		})
	}
}

func TestStageFields(t *testing.T) {
	testcases := []struct {
		desc          string
		stage         FieldsExposingStage
		wantNames     []string
		wantSynthetic bool
	}{
		{desc: "project", stage: Project("a").And("b").As("c"), wantNames: []string{"a", "c", "_id"}},
		{desc: "project without id", stage: Project("a").AndExclude("_id"), wantNames: []string{"a"}},
		{desc: "exclusion project", stage: ProjectStage{}.AndExclude("a"), wantNames: []string{}, wantSynthetic: true},
		{desc: "addFields", stage: AddFields().Field("x").Value(1), wantNames: []string{"x"}, wantSynthetic: true},
		{desc: "group", stage: Group("k").Sum("v").As("s"), wantNames: []string{"k", "_id", "s"}},
		{desc: "count", stage: Count("n"), wantNames: []string{"n"}},
		{desc: "unwind", stage: Unwind("a").IncludeArrayIndex("i"), wantNames: []string{"i"}, wantSynthetic: true},
		{desc: "lookup", stage: Lookup("c", "a", "b", "joined"), wantNames: []string{"joined"}, wantSynthetic: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			fields := tc.stage.Fields()
			if diff := testutil.Diff(fields.Names(), tc.wantNames); diff != "" {
				t.Errorf("Fields() names diff (-got +want): %s", diff)
			}
			if got := fields.IsSynthetic(); got != tc.wantSynthetic {
				t.Errorf("IsSynthetic() = %v, want %v", got, tc.wantSynthetic)
			}
		})
	}
}
