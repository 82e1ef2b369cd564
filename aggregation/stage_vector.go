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
	"slices"

	"github.com/docpipe/mongoagg/criteria"
	"github.com/docpipe/mongoagg/internal/optional"
	"github.com/docpipe/mongoagg/wire"
)

const (
	// DefaultSearchScoreField holds the relevance score when WithSearchScore
	// is given no name.
	DefaultSearchScoreField = "score"
	// HiddenSearchScoreField holds the relevance score when only a score
	// filter is requested.
	HiddenSearchScoreField = "__score__"
)

// SearchType selects approximate or exhaustive nearest neighbour search.
type SearchType int

const (
	// SearchTypeDefault lets the server choose; "exact" is not rendered.
	SearchTypeDefault SearchType = iota
	// SearchTypeANN requests approximate search ("exact": false).
	SearchTypeANN
	// SearchTypeENN requests exhaustive search ("exact": true).
	SearchTypeENN
)

type searchPathKind int

const (
	plainPath searchPathKind = iota
	wildcardPath
	multiPath
)

// SearchPath is an indexed field searched by $vectorSearch.
type SearchPath struct {
	kind     searchPathKind
	field    Field
	pattern  string
	analyzer string
}

// PathOf searches the vectors stored in field.
func PathOf(field string) SearchPath {
	return SearchPath{kind: plainPath, field: FieldOf(field)}
}

// WildcardPath searches every field matching pattern, rendered as
// {"wildcard": pattern}.
func WildcardPath(pattern string) SearchPath {
	return SearchPath{kind: wildcardPath, pattern: pattern}
}

// MultiPath searches field with an alternate analyzer, rendered as
// {"value": field, "multi": analyzer}.
func MultiPath(field, analyzer string) SearchPath {
	return SearchPath{kind: multiPath, field: FieldOf(field), analyzer: analyzer}
}

func (p SearchPath) validate() error {
	switch p.kind {
	case wildcardPath:
		if p.pattern == "" {
			return invalidArgument("$vectorSearch.path", "wildcard must not be empty")
		}
	case multiPath:
		if p.analyzer == "" {
			return invalidArgument("$vectorSearch.path", "analyzer must not be empty")
		}
	}
	if p.kind != wildcardPath {
		return p.field.validate("$vectorSearch.path")
	}
	return nil
}

func (p SearchPath) render(ctx OperationContext) (any, error) {
	if p.kind == wildcardPath {
		return wire.D{{Key: "wildcard", Value: p.pattern}}, nil
	}
	ref, err := ctx.Reference(p.field)
	if err != nil {
		return nil, err
	}
	if p.kind == multiPath {
		return wire.D{{Key: "value", Value: ref.Raw()}, {Key: "multi", Value: p.analyzer}}, nil
	}
	return ref.Raw(), nil
}

// ScoreFilter builds the post-filter on the search score. It receives a
// criteria on the score field.
type ScoreFilter func(score criteria.Criteria) criteria.Criteria

type vectorSearch struct {
	index         string
	paths         []SearchPath
	vector        []any
	limit         int64
	filter        CriteriaDefinition
	numCandidates optional.Int
	searchType    SearchType
	scoreField    string
	scoreFilter   ScoreFilter
	err           error
}

func (v vectorSearch) fail(err error) vectorSearch {
	if v.err == nil {
		v.err = err
	}
	return v
}

func (v vectorSearch) withSearchType(t SearchType) vectorSearch {
	if t < SearchTypeDefault || t > SearchTypeENN {
		return v.fail(invalidArgument("$vectorSearch.exact", "unknown search type %d", t))
	}
	v.searchType = t
	return v
}

func (v vectorSearch) withFilter(c CriteriaDefinition) vectorSearch {
	if c == nil {
		return v.fail(invalidArgument("$vectorSearch.filter", "criteria must not be nil"))
	}
	if err := errOf(c); err != nil {
		return v.fail(err)
	}
	v.filter = c
	return v
}

func (v vectorSearch) withNumCandidates(n int64) vectorSearch {
	if n < 1 {
		return v.fail(invalidArgument("$vectorSearch.numCandidates", "must be positive, got %d", n))
	}
	v.numCandidates = optional.Of(n)
	return v
}

func (v vectorSearch) withSearchScore(name string) vectorSearch {
	if name == "" {
		name = DefaultSearchScoreField
	}
	v.scoreField = name
	return v
}

func (v vectorSearch) withScoreFilter(f ScoreFilter) vectorSearch {
	if f == nil {
		return v.fail(invalidArgument("$vectorSearch.scoreFilter", "filter must not be nil"))
	}
	v.scoreFilter = f
	return v
}

func (v vectorSearch) withLimit(n int64) vectorSearch {
	if n < 1 {
		return v.fail(invalidArgument("$vectorSearch.limit", "must be positive, got %d", n))
	}
	v.limit = n
	return v
}

// VectorSearchBuilder starts a $vectorSearch: VectorSearch(index).Path(...)
// .Vector(...), then optional settings, then Limit.
type VectorSearchBuilder struct{ vs vectorSearch }

// VectorSearch starts a $vectorSearch stage on the named index.
func VectorSearch(index string) VectorSearchBuilder {
	vs := vectorSearch{index: index}
	if index == "" {
		vs.err = invalidArgument("$vectorSearch.index", "index must not be empty")
	}
	return VectorSearchBuilder{vs: vs}
}

// VectorSearchPathBuilder is a $vectorSearch with index and paths set.
type VectorSearchPathBuilder struct{ vs vectorSearch }

// Path sets the searched fields. Each path is a field name, Field or
// SearchPath; several paths render as a list.
func (b VectorSearchBuilder) Path(paths ...any) VectorSearchPathBuilder {
	vs := b.vs
	if len(paths) == 0 {
		return VectorSearchPathBuilder{vs.fail(invalidArgument("$vectorSearch.path", "at least one path is required"))}
	}
	for _, p := range paths {
		var sp SearchPath
		switch p := p.(type) {
		case string:
			sp = PathOf(p)
		case Field:
			sp = SearchPath{kind: plainPath, field: p}
		case SearchPath:
			sp = p
		default:
			return VectorSearchPathBuilder{vs.fail(invalidArgument("$vectorSearch.path", "unsupported path type %T", p))}
		}
		if err := sp.validate(); err != nil {
			return VectorSearchPathBuilder{vs.fail(err)}
		}
		vs.paths = append(slices.Clone(vs.paths), sp)
	}
	return VectorSearchPathBuilder{vs}
}

// VectorSearchOptionsBuilder is a $vectorSearch with index, paths and
// query vector set. It becomes a stage once Limit is called.
type VectorSearchOptionsBuilder struct{ vs vectorSearch }

// Vector sets the query vector: a slice of float64, float32, int, int32 or
// int64, or a []any of numbers.
func (b VectorSearchPathBuilder) Vector(vector any) VectorSearchOptionsBuilder {
	vs := b.vs
	list, ok := wire.Normalize(vector).([]any)
	if !ok || len(list) == 0 {
		return VectorSearchOptionsBuilder{vs.fail(invalidArgument("$vectorSearch.queryVector", "must be a non-empty numeric slice, got %T", vector))}
	}
	for _, x := range list {
		switch x.(type) {
		case float64, float32, int, int32, int64:
		default:
			return VectorSearchOptionsBuilder{vs.fail(invalidArgument("$vectorSearch.queryVector", "element of type %T is not a number", x))}
		}
	}
	vs.vector = list
	return VectorSearchOptionsBuilder{vs}
}

// SearchType selects approximate or exhaustive search.
func (b VectorSearchOptionsBuilder) SearchType(t SearchType) VectorSearchOptionsBuilder {
	return VectorSearchOptionsBuilder{b.vs.withSearchType(t)}
}

// Filter pre-filters the indexed documents.
func (b VectorSearchOptionsBuilder) Filter(c CriteriaDefinition) VectorSearchOptionsBuilder {
	return VectorSearchOptionsBuilder{b.vs.withFilter(c)}
}

// NumCandidates sets the number of nearest neighbours considered.
func (b VectorSearchOptionsBuilder) NumCandidates(n int64) VectorSearchOptionsBuilder {
	return VectorSearchOptionsBuilder{b.vs.withNumCandidates(n)}
}

// WithSearchScore stores the relevance score in field name, or in "score"
// when name is empty.
func (b VectorSearchOptionsBuilder) WithSearchScore(name string) VectorSearchOptionsBuilder {
	return VectorSearchOptionsBuilder{b.vs.withSearchScore(name)}
}

// FilterBySearchScore drops results whose score does not match f.
func (b VectorSearchOptionsBuilder) FilterBySearchScore(f ScoreFilter) VectorSearchOptionsBuilder {
	return VectorSearchOptionsBuilder{b.vs.withScoreFilter(f)}
}

// Limit sets the number of results and returns the stage.
func (b VectorSearchOptionsBuilder) Limit(n int64) VectorSearchStage {
	return VectorSearchStage{b.vs.withLimit(n)}
}

// VectorSearchStage is a nearest neighbour search. It compiles into the
// search stage, followed by an $addFields stage storing the score when a
// score field is set, followed by a $match stage when a score filter is set.
type VectorSearchStage struct{ vs vectorSearch }

// WithSearchType returns a copy of s using search type t.
func (s VectorSearchStage) WithSearchType(t SearchType) VectorSearchStage {
	return VectorSearchStage{s.vs.withSearchType(t)}
}

// WithFilter returns a copy of s pre-filtering with c.
func (s VectorSearchStage) WithFilter(c CriteriaDefinition) VectorSearchStage {
	return VectorSearchStage{s.vs.withFilter(c)}
}

// WithNumCandidates returns a copy of s considering n candidates.
func (s VectorSearchStage) WithNumCandidates(n int64) VectorSearchStage {
	return VectorSearchStage{s.vs.withNumCandidates(n)}
}

// WithSearchScore returns a copy of s storing the score in name, or in
// "score" when name is empty.
func (s VectorSearchStage) WithSearchScore(name string) VectorSearchStage {
	return VectorSearchStage{s.vs.withSearchScore(name)}
}

// WithFilterBySearchScore returns a copy of s filtering results by score.
func (s VectorSearchStage) WithFilterBySearchScore(f ScoreFilter) VectorSearchStage {
	return VectorSearchStage{s.vs.withScoreFilter(f)}
}

// WithLimit returns a copy of s returning n results.
func (s VectorSearchStage) WithLimit(n int64) VectorSearchStage {
	return VectorSearchStage{s.vs.withLimit(n)}
}

func (s VectorSearchStage) Operator() string { return "$vectorSearch" }

// Err returns the construction error, if any.
func (s VectorSearchStage) Err() error {
	vs := s.vs
	if vs.err != nil {
		return vs.err
	}
	if n, ok := vs.numCandidates.Get(); ok {
		if vs.searchType == SearchTypeENN {
			return invalidArgument("$vectorSearch.numCandidates", "not allowed with exhaustive search")
		}
		if n < vs.limit {
			return invalidArgument("$vectorSearch.numCandidates", "must be at least the limit %d, got %d", vs.limit, n)
		}
	}
	return nil
}

// scoreField returns the field holding the score, or "" when the score is
// not requested.
func (s VectorSearchStage) scoreField() string {
	if s.vs.scoreField != "" {
		return s.vs.scoreField
	}
	if s.vs.scoreFilter != nil {
		return HiddenSearchScoreField
	}
	return ""
}

// ToDocument renders the $vectorSearch stage alone.
func (s VectorSearchStage) ToDocument(ctx OperationContext) (wire.D, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	vs := s.vs
	paths := make([]any, len(vs.paths))
	for i, p := range vs.paths {
		v, err := p.render(ctx)
		if err != nil {
			return nil, err
		}
		paths[i] = v
	}
	var path any = paths
	if len(paths) == 1 {
		path = paths[0]
	}
	doc := wire.D{
		{Key: "index", Value: vs.index},
		{Key: "path", Value: path},
		{Key: "queryVector", Value: slices.Clone(vs.vector)},
		{Key: "limit", Value: vs.limit},
	}
	if vs.filter != nil {
		f, err := ctx.MappedObject(vs.filter.CriteriaObject())
		if err != nil {
			return nil, err
		}
		doc = append(doc, wire.E{Key: "filter", Value: f})
	}
	if n, ok := vs.numCandidates.Get(); ok {
		doc = append(doc, wire.E{Key: "numCandidates", Value: n})
	}
	if vs.searchType != SearchTypeDefault {
		doc = append(doc, wire.E{Key: "exact", Value: vs.searchType == SearchTypeENN})
	}
	return wire.D{{Key: "$vectorSearch", Value: doc}}, nil
}

// ToPipelineStages renders the search stage and its score stages.
func (s VectorSearchStage) ToPipelineStages(ctx OperationContext) ([]wire.D, error) {
	search, err := s.ToDocument(ctx)
	if err != nil {
		return nil, err
	}
	stages := []wire.D{search}
	score := s.scoreField()
	if score == "" {
		return stages, nil
	}
	meta, err := Meta("vectorSearchScore").ToDocument(ctx)
	if err != nil {
		return nil, err
	}
	stages = append(stages, wire.D{{Key: "$addFields", Value: wire.D{{Key: score, Value: meta}}}})
	if s.vs.scoreFilter == nil {
		return stages, nil
	}
	c := s.vs.scoreFilter(criteria.Where(score))
	if err := c.Err(); err != nil {
		return nil, err
	}
	return append(stages, wire.D{{Key: "$match", Value: c.CriteriaObject()}}), nil
}

// Fields keeps the input fields in scope and adds the score field.
func (s VectorSearchStage) Fields() ExposedFields {
	set := ExposedFields{synthetic: true}
	if score := s.scoreField(); score != "" {
		set, _ = set.And(FieldOf(score))
	}
	return set
}
