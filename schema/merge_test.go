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

package schema

import (
	"errors"
	"testing"

	"github.com/docpipe/mongoagg/internal/testutil"
	"github.com/docpipe/mongoagg/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func personSchema(nameType string) wire.D {
	return Object(
		Prop("name", wire.D{{Key: "bsonType", Value: nameType}}),
		Prop("address", Object(
			Prop("city", wire.D{{Key: "bsonType", Value: "string"}}),
		)),
	)
}

func TestMergeAgreeingTrees(t *testing.T) {
	a := personSchema("string")
	b := personSchema("string")
	got, err := Merge(nil, a, b)
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if diff := testutil.Diff(got, a); diff != "" {
		t.Errorf("Merge() returned diff (-got +want): %s", diff)
	}
}

func TestMergeDisjointTrees(t *testing.T) {
	a := Object(Prop("name", wire.D{{Key: "bsonType", Value: "string"}}))
	b := Object(Prop("age", wire.D{{Key: "bsonType", Value: "int"}}))
	got, err := Merge(nil, a, b)
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	want := Object(
		Prop("name", wire.D{{Key: "bsonType", Value: "string"}}),
		Prop("age", wire.D{{Key: "bsonType", Value: "int"}}),
	)
	if diff := testutil.Diff(got, want); diff != "" {
		t.Errorf("Merge() returned diff (-got +want): %s", diff)
	}
}

func TestMergeConflictWithoutResolver(t *testing.T) {
	_, err := Merge(nil, personSchema("string"), personSchema("int"))
	var mce *MergeConflictError
	if !errors.As(err, &mce) {
		t.Fatalf("Merge() error = %v, want *MergeConflictError", err)
	}
	if got, want := mce.Path, "properties.name.bsonType"; got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
	if mce.Left != "string" || mce.Right != "int" {
		t.Errorf("values = (%v, %v), want (string, int)", mce.Left, mce.Right)
	}
	if !errors.Is(err, ErrMergeConflict) {
		t.Error("errors.Is(err, ErrMergeConflict) = false")
	}
	if got := status.Code(err); got != codes.Aborted {
		t.Errorf("status.Code() = %v, want %v", got, codes.Aborted)
	}
}

func TestMergeResolver(t *testing.T) {
	testcases := []struct {
		desc     string
		resolver Resolver
		want     wire.D
	}{
		{
			desc:     "skip",
			resolver: func(Path, any, any) Resolution { return Skip() },
			want: Object(
				Prop("name", wire.D{}),
				Prop("address", Object(
					Prop("city", wire.D{{Key: "bsonType", Value: "string"}}),
				)),
			),
		},
		{
			desc: "use value",
			resolver: func(p Path, left, right any) Resolution {
				return UseValue("", []any{left, right})
			},
			want: Object(
				Prop("name", wire.D{{Key: "bsonType", Value: []any{"string", "int"}}}),
				Prop("address", Object(
					Prop("city", wire.D{{Key: "bsonType", Value: "string"}}),
				)),
			),
		},
		{
			desc: "rename",
			resolver: func(p Path, left, right any) Resolution {
				return UseValue("type", right)
			},
			want: Object(
				Prop("name", wire.D{{Key: "type", Value: "int"}}),
				Prop("address", Object(
					Prop("city", wire.D{{Key: "bsonType", Value: "string"}}),
				)),
			),
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := Merge(tc.resolver, personSchema("string"), personSchema("int"))
			if err != nil {
				t.Fatalf("Merge() failed: %v", err)
			}
			if diff := testutil.Diff(got, tc.want); diff != "" {
				t.Errorf("Merge() returned diff (-got +want): %s", diff)
			}
		})
	}
}

func TestMergeSkippedPathStaysRemoved(t *testing.T) {
	var seen []string
	resolver := func(p Path, _, _ any) Resolution {
		seen = append(seen, p.Full)
		return Skip()
	}
	got, err := Merge(resolver,
		wire.D{{Key: "a", Value: 1}, {Key: "b", Value: 2}},
		wire.D{{Key: "a", Value: 3}},
		wire.D{{Key: "a", Value: 4}, {Key: "c", Value: 5}},
	)
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	want := wire.D{{Key: "b", Value: 2}, {Key: "c", Value: 5}}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Errorf("Merge() returned diff (-got +want): %s", diff)
	}
	if diff := testutil.Diff(seen, []string{"a"}); diff != "" {
		t.Errorf("resolver calls diff (-got +want): %s", diff)
	}
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	a := personSchema("string")
	b := personSchema("int")
	if _, err := Merge(func(Path, any, any) Resolution { return Skip() }, a, b); err != nil {
		t.Fatal(err)
	}
	if diff := testutil.Diff(a, personSchema("string")); diff != "" {
		t.Errorf("input modified (-got +want): %s", diff)
	}
}

func TestMergeRenameOntoExistingKey(t *testing.T) {
	rename := func(Path, any, any) Resolution { return UseValue("b", 9) }
	_, err := Merge(rename,
		wire.D{{Key: "a", Value: 1}, {Key: "b", Value: 2}},
		wire.D{{Key: "a", Value: 3}},
	)
	var mce *MergeConflictError
	if !errors.As(err, &mce) {
		t.Fatalf("Merge() error = %v, want *MergeConflictError", err)
	}
	if mce.Path != "a" || mce.Left != 1 || mce.Right != 3 {
		t.Errorf("MergeConflictError = {%q, %v, %v}, want {\"a\", 1, 3}", mce.Path, mce.Left, mce.Right)
	}
	if !errors.Is(err, ErrMergeConflict) {
		t.Error("errors.Is(err, ErrMergeConflict) = false")
	}
	if got := status.Code(err); got != codes.Aborted {
		t.Errorf("status.Code() = %v, want %v", got, codes.Aborted)
	}
}

func TestMergeEqualNumbers(t *testing.T) {
	testcases := []struct {
		desc  string
		right any
	}{
		{desc: "int64", right: int64(10)},
		{desc: "float64", right: float64(10)},
		{desc: "int32", right: int32(10)},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			left := wire.D{{Key: "maxLength", Value: 10}}
			got, err := Merge(nil, left, wire.D{{Key: "maxLength", Value: tc.right}})
			if err != nil {
				t.Fatalf("Merge() failed: %v", err)
			}
			if diff := testutil.Diff(got, left); diff != "" {
				t.Errorf("Merge() returned diff (-got +want): %s", diff)
			}
		})
	}
	if _, err := Merge(nil, wire.D{{Key: "maxLength", Value: 10}}, wire.D{{Key: "maxLength", Value: 10.5}}); !errors.Is(err, ErrMergeConflict) {
		t.Errorf("Merge(10, 10.5) error = %v, want ErrMergeConflict", err)
	}
}
