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

package optional

import (
	"testing"
	"time"
)

func TestSetValues(t *testing.T) {
	if got, want := Of(false).MustGet(), false; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := Of(int64(0)).OrElse(5), int64(0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, ok := Of("").Get(); !ok || got != "" {
		t.Errorf("got (%q, %v), want (\"\", true)", got, ok)
	}
	if got, want := Of(time.Second).MustGet(), time.Second; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUnsetValues(t *testing.T) {
	var b Bool
	if b.IsSet() {
		t.Error("zero Bool is set")
	}
	var i Int
	if got, want := i.OrElse(7), int64(7); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	for _, f := range []func(){
		func() { var s String; s.MustGet() },
		func() { var d Duration; d.MustGet() },
	} {
		if !panics(f) {
			t.Error("got no panic, want panic")
		}
	}
}

func panics(f func()) (b bool) {
	defer func() {
		if recover() != nil {
			b = true
		}
	}()
	f()
	return false
}
