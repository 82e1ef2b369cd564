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

	"google.golang.org/protobuf/types/known/structpb"
)

// Struct converts d into a protobuf Struct. Key order is not preserved by
// the protobuf representation.
func (d D) Struct() (*structpb.Struct, error) {
	s, err := structpb.NewStruct(toProtoCompatible(d).(map[string]any))
	if err != nil {
		return nil, fmt.Errorf("wire: converting document to struct: %w", err)
	}
	return s, nil
}

// toProtoCompatible widens numeric types that structpb does not accept.
func toProtoCompatible(v any) any {
	switch v := Normalize(v).(type) {
	case D:
		m := make(map[string]any, len(v))
		for _, e := range v {
			m[e.Key] = toProtoCompatible(e.Value)
		}
		return m
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = toProtoCompatible(x)
		}
		return out
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}
