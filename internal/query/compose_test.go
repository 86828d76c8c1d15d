package query

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestCompose_JobFilter(t *testing.T) {
	q, err := Compose(JobFields, []Condition{
		Eq("company", "META"),
		Eq("title", "backend"),
		Between("minYears", 0, 3),
		Eq("deleted", false),
	})
	require.NoError(t, err)

	assert.Equal(t, []Clause{
		TermClause{Field: "company", Value: "META"},
		RangeClause{Field: "min_years", GTE: f64(0), LTE: f64(3)},
	}, q.Filter)
	assert.Equal(t, []Clause{TermClause{Field: "deleted", Value: false}}, q.Must)
	assert.Equal(t, []Clause{MatchClause{Field: "title", Text: "backend"}}, q.Should)
	assert.Empty(t, q.MustNot)
	assert.Equal(t, 1, q.MinimumShouldMatch)
}

func TestCompose_NoShouldClauses(t *testing.T) {
	q, err := Compose(JobFields, []Condition{Eq("company", "META")})
	require.NoError(t, err)
	assert.Equal(t, 0, q.MinimumShouldMatch)
	assert.Empty(t, q.Should)
}

func TestCompose_EmptyConditionsMatchAll(t *testing.T) {
	q, err := Compose(JobFields, nil)
	require.NoError(t, err)
	assert.True(t, q.IsEmpty())
}

func TestCompose_UnregisteredFieldFailsWithoutPartialQuery(t *testing.T) {
	q, err := Compose(JobFields, []Condition{
		Eq("company", "META"),
		Eq("salary", 100),
		Eq("title", "backend"),
	})
	assert.ErrorIs(t, err, ErrFieldNotResolvable)
	assert.EqualError(t, err, "字段无法解析: JOB.salary")
	assert.Nil(t, q)
}

func TestCompose_MalformedRanges(t *testing.T) {
	cases := map[string]Condition{
		"no bounds":       {Field: "minYears", Range: &Bounds{}},
		"inverted":        Between("minYears", 5, 1),
		"non numeric":     Between("minYears", "a", 3),
		"value not range": Eq("minYears", 3),
		"zero time":       AtLeast("createdAt", time.Time{}),
		"nan lower":       AtLeast("minYears", math.NaN()),
		"nan upper":       AtMost("minYears", math.NaN()),
		"+inf upper":      Between("minYears", 0, math.Inf(1)),
		"-inf lower":      AtLeast("createdAt", math.Inf(-1)),
		"nan json number": AtLeast("minYears", json.Number("NaN")),
	}
	for name, cond := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compose(JobFields, []Condition{cond})
			assert.ErrorIs(t, err, ErrMalformedRange)
		})
	}
}

func TestCompose_InvalidValues(t *testing.T) {
	cases := map[string]Condition{
		"blank match":      Eq("title", "   "),
		"non string match": Eq("title", 42),
		"nil term":         Eq("company", nil),
		"empty terms":      Eq("tags", []string{}),
		"struct term":      Eq("company", struct{}{}),
		"exists non bool":  Eq("hasDeadline", "yes"),
	}
	for name, cond := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compose(JobFields, []Condition{cond})
			assert.ErrorIs(t, err, ErrInvalidCondition)
		})
	}
}

func TestCompose_JSONNumberValues(t *testing.T) {
	q, err := Compose(CommunityPostFields, []Condition{
		Eq("authorId", json.Number("372036854775807123")),
		Between("createdAt", json.Number("1700000000"), json.Number("1800000000")),
	})
	require.NoError(t, err)

	require.Len(t, q.Filter, 2)
	assert.Equal(t, TermClause{Field: "author_id", Value: json.Number("372036854775807123")}, q.Filter[0])
	r := q.Filter[1].(RangeClause)
	assert.Equal(t, float64(1700000000), *r.GTE)
	assert.Equal(t, float64(1800000000), *r.LTE)
}

func TestCompose_TimeRangeNormalizedToUnixSeconds(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q, err := Compose(JobFields, []Condition{AtLeast("createdAt", from)})
	require.NoError(t, err)

	require.Len(t, q.Filter, 1)
	r := q.Filter[0].(RangeClause)
	assert.Equal(t, float64(from.Unix()), *r.GTE)
	assert.Nil(t, r.LTE)
}

func TestCompose_TermsAndExists(t *testing.T) {
	q, err := Compose(JobFields, []Condition{
		Eq("tags", []string{"go", "kafka"}),
		Eq("hasDeadline", false),
	})
	require.NoError(t, err)

	assert.Equal(t, []Clause{TermsClause{Field: "tags", Values: []interface{}{"go", "kafka"}}}, q.Filter)
	assert.Equal(t, []Clause{ExistsClause{Field: "deadline"}}, q.MustNot)
}

func TestCompose_NestedPopularity(t *testing.T) {
	q, err := Compose(TechBlogFields, []Condition{AtLeast("viewCount", 100)})
	require.NoError(t, err)

	assert.Equal(t, []Clause{NestedClause{
		Path:  "popularity",
		Inner: RangeClause{Field: "popularity.view_count", GTE: f64(100)},
	}}, q.Filter)
}

func TestMergeShould_OnlyAffectsRanking(t *testing.T) {
	q, err := Compose(JobFields, []Condition{Eq("title", "backend"), Eq("company", "META")})
	require.NoError(t, err)

	extra := TermClause{Field: "location", Value: "Seoul"}
	q.MergeShould(extra)

	assert.Equal(t, 0, q.MinimumShouldMatch)
	assert.Equal(t, []Clause{extra}, q.Should)
	require.Len(t, q.Must, 1)
	inner := q.Must[0].(BoolClause).Query
	assert.Equal(t, []Clause{MatchClause{Field: "title", Text: "backend"}}, inner.Should)
	assert.Equal(t, 1, inner.MinimumShouldMatch)
}

func TestMergeShould_IntoQueryWithoutShould(t *testing.T) {
	q, err := Compose(JobFields, []Condition{Eq("company", "META")})
	require.NoError(t, err)

	q.MergeShould(TermClause{Field: "location", Value: "Seoul"})
	assert.Equal(t, 0, q.MinimumShouldMatch)
	assert.Empty(t, q.Must)
	assert.Len(t, q.Should, 1)
}

func TestCompile_ResolvesSort(t *testing.T) {
	c, err := Compile(JobFields, nil, Page{From: 0, To: 20},
		SortField{Field: "viewCount", Desc: true},
		SortField{Field: "createdAt"})
	require.NoError(t, err)
	assert.Equal(t, []SortField{
		{Field: "popularity.view_count", Desc: true},
		{Field: "created_at"},
	}, c.Sort)
}

func TestCompile_RejectsUnsortableField(t *testing.T) {
	_, err := Compile(JobFields, nil, Page{From: 0, To: 20}, SortField{Field: "title"})
	assert.ErrorIs(t, err, ErrFieldNotSortable)
}

func TestCompile_RejectsBadPage(t *testing.T) {
	_, err := Compile(JobFields, nil, Page{From: 10, To: 10})
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestNewRegistry_PanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry("X",
			FieldSpec{Name: "a", Kind: KindTerm},
			FieldSpec{Name: "a", Kind: KindMatch},
		)
	})
}

func TestNewRegistry_PanicsOnNestedWithoutPath(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry("X", FieldSpec{Name: "a", Kind: KindNested, InnerKind: KindRange})
	})
}
