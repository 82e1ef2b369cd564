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
	"time"

	"github.com/docpipe/mongoagg/internal/optional"
	"github.com/docpipe/mongoagg/wire"
)

// Granularity is the bucket granularity of a time-series collection.
type Granularity string

const (
	// GranularityDefault leaves the choice to the server and is not
	// rendered.
	GranularityDefault Granularity = ""
	GranularitySeconds Granularity = "seconds"
	GranularityMinutes Granularity = "minutes"
	GranularityHours   Granularity = "hours"
)

// TimeSeriesOptions declares the target of $out as a time-series
// collection.
type TimeSeriesOptions struct {
	timeField      string
	metaField      string
	granularity    Granularity
	bucketMaxSpan  optional.Int
	bucketRounding optional.Int
	err            error
}

// TimeSeries returns options for a time-series collection whose
// measurements are timestamped by timeField.
func TimeSeries(timeField string) TimeSeriesOptions {
	o := TimeSeriesOptions{timeField: timeField}
	if timeField == "" {
		o.err = invalidArgument("$out.timeseries.timeField", "field name must not be empty")
	}
	return o
}

// MetaField returns a copy of o grouping measurements by field.
func (o TimeSeriesOptions) MetaField(field string) TimeSeriesOptions {
	o.metaField = field
	return o
}

// Granularity returns a copy of o with bucket granularity g.
func (o TimeSeriesOptions) Granularity(g Granularity) TimeSeriesOptions {
	switch g {
	case GranularityDefault, GranularitySeconds, GranularityMinutes, GranularityHours:
	default:
		if o.err == nil {
			o.err = invalidArgument("$out.timeseries.granularity", "unknown granularity %q", g)
		}
	}
	o.granularity = g
	return o
}

// BucketMaxSpan returns a copy of o with the maximum time span of a bucket,
// rendered in whole seconds.
func (o TimeSeriesOptions) BucketMaxSpan(d time.Duration) TimeSeriesOptions {
	o.bucketMaxSpan = o.seconds("bucketMaxSpanSeconds", d)
	return o
}

// BucketRounding returns a copy of o with the interval bucket start times
// are rounded down to, rendered in whole seconds.
func (o TimeSeriesOptions) BucketRounding(d time.Duration) TimeSeriesOptions {
	o.bucketRounding = o.seconds("bucketRoundingSeconds", d)
	return o
}

func (o *TimeSeriesOptions) seconds(arg string, d time.Duration) optional.Int {
	if o.err == nil {
		switch {
		case d < time.Second:
			o.err = invalidArgument("$out.timeseries."+arg, "must be at least one second, got %v", d)
		case d%time.Second != 0:
			o.err = invalidArgument("$out.timeseries."+arg, "must be a whole number of seconds, got %v", d)
		}
	}
	return optional.Of(int64(d / time.Second))
}

// Err returns the construction error, if any.
func (o TimeSeriesOptions) Err() error {
	if o.err != nil {
		return o.err
	}
	if o.granularity != GranularityDefault && (o.bucketMaxSpan.IsSet() || o.bucketRounding.IsSet()) {
		return invalidArgument("$out.timeseries.granularity", "cannot be combined with bucket spans")
	}
	return nil
}

func (o TimeSeriesOptions) toDocument(ctx OperationContext) wire.D {
	doc := wire.D{{Key: "timeField", Value: rawOrName(ctx, FieldOf(o.timeField))}}
	if o.metaField != "" {
		doc = append(doc, wire.E{Key: "metaField", Value: rawOrName(ctx, FieldOf(o.metaField))})
	}
	if o.granularity != GranularityDefault {
		doc = append(doc, wire.E{Key: "granularity", Value: string(o.granularity)})
	}
	if v, ok := o.bucketMaxSpan.Get(); ok {
		doc = append(doc, wire.E{Key: "bucketMaxSpanSeconds", Value: v})
	}
	if v, ok := o.bucketRounding.Get(); ok {
		doc = append(doc, wire.E{Key: "bucketRoundingSeconds", Value: v})
	}
	return doc
}

// OutStage writes the pipeline results to a collection. It must be the
// last stage of a pipeline.
type OutStage struct {
	collection string
	database   string
	timeSeries *TimeSeriesOptions
	err        error
}

// Out returns an $out stage writing to collection in the current database.
func Out(collection string) OutStage {
	s := OutStage{collection: collection}
	if collection == "" {
		s.err = invalidArgument("$out.coll", "collection must not be empty")
	}
	return s
}

// In returns a copy of s writing to database instead of the current one.
func (s OutStage) In(database string) OutStage {
	s.database = database
	return s
}

// TimeSeries returns a copy of s creating the target as a time-series
// collection.
func (s OutStage) TimeSeries(opts TimeSeriesOptions) OutStage {
	if err := opts.Err(); err != nil && s.err == nil {
		s.err = err
	}
	s.timeSeries = &opts
	return s
}

func (s OutStage) Operator() string { return "$out" }

// Err returns the construction error, if any.
func (s OutStage) Err() error { return s.err }

// ToDocument renders {"$out": "coll"} when neither a database nor
// time-series options are set, and the expanded form otherwise.
func (s OutStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.database == "" && s.timeSeries == nil {
		return wire.D{{Key: "$out", Value: s.collection}}, nil
	}
	doc := wire.D{{Key: "coll", Value: s.collection}}
	if s.database != "" {
		doc = append(doc, wire.E{Key: "db", Value: s.database})
	}
	if s.timeSeries != nil {
		doc = append(doc, wire.E{Key: "timeseries", Value: s.timeSeries.toDocument(ctx)})
	}
	return wire.D{{Key: "$out", Value: doc}}, nil
}
