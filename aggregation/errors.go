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
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	ErrInvalidArgument   = errors.New("aggregation: invalid argument")
	ErrReferenceNotFound = errors.New("aggregation: reference not found")
	ErrDuplicateField    = errors.New("aggregation: duplicate field")
)

// InvalidArgumentError reports a missing or malformed builder argument.
// It is recorded when the offending builder call is made.
type InvalidArgumentError struct {
	Arg    string // argument or builder step at fault
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("aggregation: invalid argument %s: %s", e.Arg, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// GRPCStatus returns an InvalidArgument status carrying a BadRequest field
// violation for e.Arg.
func (e *InvalidArgumentError) GRPCStatus() *status.Status {
	st := status.New(codes.InvalidArgument, e.Error())
	br := &errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: e.Arg, Description: e.Reason}},
	}
	if withDetails, err := st.WithDetails(br); err == nil {
		return withDetails
	}
	return st
}

func invalidArgument(arg, format string, a ...any) error {
	return &InvalidArgumentError{Arg: arg, Reason: fmt.Sprintf(format, a...)}
}

// ReferenceNotFoundError reports a field reference that is not in scope at
// the stage being compiled.
type ReferenceNotFoundError struct {
	Field string
	Stage string // stage or type that should have exposed Field, if known
}

func (e *ReferenceNotFoundError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("aggregation: invalid reference %q", e.Field)
	}
	return fmt.Sprintf("aggregation: invalid reference %q: not exposed by %s", e.Field, e.Stage)
}

func (e *ReferenceNotFoundError) Is(target error) bool { return target == ErrReferenceNotFound }

// GRPCStatus returns a NotFound status.
func (e *ReferenceNotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, e.Error())
}

// DuplicateFieldError reports a second field with a name already exposed by
// the same stage.
type DuplicateFieldError struct {
	Field string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("aggregation: field %q is already exposed", e.Field)
}

func (e *DuplicateFieldError) Is(target error) bool { return target == ErrDuplicateField }

// GRPCStatus returns an AlreadyExists status.
func (e *DuplicateFieldError) GRPCStatus() *status.Status {
	return status.New(codes.AlreadyExists, e.Error())
}

// errOf returns the construction error carried by v, if v carries one.
func errOf(v any) error {
	if e, ok := v.(interface{ Err() error }); ok {
		return e.Err()
	}
	return nil
}
