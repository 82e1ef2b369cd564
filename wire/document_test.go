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

package wire

import (
	"testing"

	"github.com/docpipe/mongoagg/internal/testutil"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestMarshalJSONKeepsOrder(t *testing.T) {
	d := D{
		{Key: "$vectorSearch", Value: D{
			{Key: "index", Value: "vi"},
			{Key: "path", Value: "plot"},
			{Key: "queryVector", Value: []float64{1, 2.5}},
			{Key: "limit", Value: 10},
		}},
	}
	got := d.String()
	want := `{"$vectorSearch":{"index":"vi","path":"plot","queryVector":[1.0,2.5],"limit":10}}`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestWith(t *testing.T) {
	orig := D{{Key: "a", Value: 1}, {Key: "b", Value: 2}}
	testcases := []struct {
		desc  string
		key   string
		value any
		want  D
	}{
		{
			desc:  "replace keeps position",
			key:   "a",
			value: 3,
			want:  D{{Key: "a", Value: 3}, {Key: "b", Value: 2}},
		},
		{
			desc:  "new key appended",
			key:   "c",
			value: 4,
			want:  D{{Key: "a", Value: 1}, {Key: "b", Value: 2}, {Key: "c", Value: 4}},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			got := orig.With(tc.key, tc.value)
			if diff := testutil.Diff(got, tc.want); diff != "" {
				t.Errorf("With() returned diff (-got +want): %s", diff)
			}
		})
	}
	if diff := testutil.Diff(orig, D{{Key: "a", Value: 1}, {Key: "b", Value: 2}}); diff != "" {
		t.Errorf("With() mutated receiver (-got +want): %s", diff)
	}
}

func TestNormalize(t *testing.T) {
	testcases := []struct {
		desc string
		in   any
		want any
	}{
		{desc: "typed slice", in: []float32{1, 2}, want: []any{float32(1), float32(2)}},
		{desc: "map", in: map[string]any{"b": 1, "a": []int{2}}, want: D{{Key: "a", Value: []any{2}}, {Key: "b", Value: 1}}},
		{desc: "bytes stay scalar", in: []byte("x"), want: []byte("x")},
		{desc: "scalar", in: 7, want: 7},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			if diff := testutil.Diff(Normalize(tc.in), tc.want); diff != "" {
				t.Errorf("Normalize() returned diff (-got +want): %s", diff)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal([]int{1, 2}, []any{1, 2}) {
		t.Error("Equal([]int, []any) = false, want true")
	}
	if Equal(D{{Key: "a", Value: 1}, {Key: "b", Value: 2}}, D{{Key: "b", Value: 2}, {Key: "a", Value: 1}}) {
		t.Error("Equal() ignored key order")
	}
}

func TestEqualNumbers(t *testing.T) {
	testcases := []struct {
		desc string
		a, b any
		want bool
	}{
		{desc: "int and int64", a: 10, b: int64(10), want: true},
		{desc: "int and float64", a: 10, b: float64(10), want: true},
		{desc: "uint8 and int32", a: uint8(7), b: int32(7), want: true},
		{desc: "float32 and float64", a: float32(0.5), b: 0.5, want: true},
		{desc: "fraction", a: 10, b: 10.5, want: false},
		{desc: "number and string", a: 10, b: "10", want: false},
		{desc: "nested", a: D{{Key: "max", Value: []any{1, 2}}}, b: D{{Key: "max", Value: []int64{1, 2}}}, want: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestBSON(t *testing.T) {
	d := D{
		{Key: "$match", Value: D{{Key: "tags", Value: D{{Key: "$in", Value: []any{"a", "b"}}}}}},
	}
	want := bson.D{
		{Key: "$match", Value: bson.D{{Key: "tags", Value: bson.D{{Key: "$in", Value: bson.A{"a", "b"}}}}}},
	}
	if diff := testutil.Diff(d.BSON(), want); diff != "" {
		t.Errorf("BSON() returned diff (-got +want): %s", diff)
	}
	if diff := testutil.Diff(FromBSON(want), d); diff != "" {
		t.Errorf("FromBSON() returned diff (-got +want): %s", diff)
	}
	p := Pipeline([]D{d, {{Key: "$limit", Value: 5}}})
	if len(p) != 2 {
		t.Fatalf("Pipeline() has %d stages, want 2", len(p))
	}
}

func TestStruct(t *testing.T) {
	d := D{
		{Key: "$out", Value: D{{Key: "coll", Value: "archive"}, {Key: "db", Value: "reporting"}}},
		{Key: "n", Value: int16(3)},
		{Key: "v", Value: []float32{0.5}},
	}
	got, err := d.Struct()
	if err != nil {
		t.Fatalf("Struct() failed: %v", err)
	}
	want, err := structpb.NewStruct(map[string]any{
		"$out": map[string]any{"coll": "archive", "db": "reporting"},
		"n":    int64(3),
		"v":    []any{float64(0.5)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Errorf("Struct() returned diff (-got +want): %s", diff)
	}
}
