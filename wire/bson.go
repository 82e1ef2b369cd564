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
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// BSON converts d into a driver document. Nested documents and lists are
// converted recursively.
func (d D) BSON() bson.D {
	out := make(bson.D, len(d))
	for i, e := range d {
		out[i] = bson.E{Key: e.Key, Value: toBSON(e.Value)}
	}
	return out
}

func toBSON(v any) any {
	switch v := Normalize(v).(type) {
	case D:
		return v.BSON()
	case []any:
		out := bson.A{}
		for _, x := range v {
			out = append(out, toBSON(x))
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes d as relaxed MongoDB Extended JSON, preserving key
// order. Integral doubles keep a fractional part ("1.0").
func (d D) MarshalJSON() ([]byte, error) {
	b, err := bson.MarshalExtJSON(d.BSON(), false, false)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding document: %w", err)
	}
	return b, nil
}

// FromBSON converts a driver document into a D.
func FromBSON(doc bson.D) D {
	out := make(D, len(doc))
	for i, e := range doc {
		out[i] = E{Key: e.Key, Value: fromBSON(e.Value)}
	}
	return out
}

func fromBSON(v any) any {
	switch v := v.(type) {
	case bson.D:
		return FromBSON(v)
	case bson.M:
		m := make(map[string]any, len(v))
		for k, x := range v {
			m[k] = fromBSON(x)
		}
		return FromMap(m)
	case bson.A:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = fromBSON(x)
		}
		return out
	default:
		return Normalize(v)
	}
}

// Pipeline converts compiled stage documents into a driver pipeline that can
// be passed to Collection.Aggregate.
func Pipeline(stages []D) mongo.Pipeline {
	p := make(mongo.Pipeline, len(stages))
	for i, s := range stages {
		p[i] = s.BSON()
	}
	return p
}
