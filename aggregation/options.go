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
	"reflect"
	"time"

	"github.com/docpipe/mongoagg/internal/optional"
	"github.com/docpipe/mongoagg/wire"
	"github.com/googleapis/gax-go/v2/internallog"
)

// An Option configures an Aggregation.
type Option interface {
	apply(*settings)
}

type funcOption func(*settings)

func (f funcOption) apply(s *settings) { f(s) }

type settings struct {
	logger       *slog.Logger
	domainType   reflect.Type
	mapper       FieldMapper
	strict       bool
	allowDiskUse optional.Bool
	batchSize    optional.Int
	maxTime      optional.Duration
	comment      optional.String
	hint         any
	collation    wire.D
}

// WithLogger sets the logger receiving debug records of each compilation.
// Without it the logger is configured from the environment, as for other
// client libraries built on gax.
func WithLogger(l *slog.Logger) Option {
	return funcOption(func(s *settings) { s.logger = l })
}

// WithDomainType resolves field names of the first stage against the
// properties of t, using mapper for stored names.
func WithDomainType(t reflect.Type, mapper FieldMapper) Option {
	return funcOption(func(s *settings) {
		s.domainType = t
		s.mapper = mapper
	})
}

// WithStrictMapping makes names that are not properties of the domain type
// fail with ReferenceNotFoundError instead of being passed through.
func WithStrictMapping() Option {
	return funcOption(func(s *settings) { s.strict = true })
}

// WithAllowDiskUse lets stages write temporary files.
func WithAllowDiskUse(allow bool) Option {
	return funcOption(func(s *settings) { s.allowDiskUse = optional.Of(allow) })
}

// WithBatchSize sets the number of documents in the first cursor batch.
func WithBatchSize(n int64) Option {
	return funcOption(func(s *settings) { s.batchSize = optional.Of(n) })
}

// WithMaxTime bounds the server-side execution time. It is rendered in
// milliseconds.
func WithMaxTime(d time.Duration) Option {
	return funcOption(func(s *settings) { s.maxTime = optional.Of(d) })
}

// WithComment attaches a comment to the command.
func WithComment(c string) Option {
	return funcOption(func(s *settings) { s.comment = optional.Of(c) })
}

// WithHint names the index to use, as an index name or a key document.
func WithHint(hint any) Option {
	return funcOption(func(s *settings) { s.hint = hint })
}

// WithCollation sets the collation document.
func WithCollation(c wire.D) Option {
	return funcOption(func(s *settings) { s.collation = c })
}

func (s *settings) validate() error {
	if s.batchSize.IsSet() && s.batchSize.MustGet() < 0 {
		return invalidArgument("batchSize", "must not be negative")
	}
	if s.maxTime.IsSet() && s.maxTime.MustGet() < 0 {
		return invalidArgument("maxTimeMS", "must not be negative")
	}
	switch h := s.hint.(type) {
	case nil, string, wire.D:
		if str, ok := h.(string); ok && str == "" {
			return invalidArgument("hint", "index name must not be empty")
		}
	default:
		return invalidArgument("hint", "unsupported type %T", h)
	}
	if s.domainType != nil && s.mapper == nil {
		return invalidArgument("domainType", "a FieldMapper is required")
	}
	return nil
}

func (s *settings) resolveLogger() *slog.Logger {
	return internallog.New(s.logger)
}
