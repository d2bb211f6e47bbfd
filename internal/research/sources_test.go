package research

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/placement-prep/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSearcher returns canned hits per query.
type stubSearcher struct {
	hits    map[string][]Hit
	errs    map[string]error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int) ([]Hit, error) {
	s.queries = append(s.queries, query)
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	return s.hits[query], nil
}

func TestDedupSources_KeepsFirstTitle(t *testing.T) {
	in := []types.GroundingSource{
		{URI: "https://a.example", Title: "First A"},
		{URI: "https://b.example", Title: ""},
		{URI: "https://a.example", Title: "Second A"},
		{URI: "", Title: "no uri"},
		{URI: "https://b.example", Title: "Late B"},
	}

	got := DedupSources(in)
	assert.Equal(t, []types.GroundingSource{
		{URI: "https://a.example", Title: "First A"},
		{URI: "https://b.example", Title: "https://b.example"},
	}, got)
}

func TestSearchQueries(t *testing.T) {
	input := types.UserInput{CompanyName: "Acme", JobRole: "Engineer"}

	for _, kind := range types.AllAgentKinds() {
		queries := SearchQueries(kind, input)
		if kind.UsesSearch() {
			require.NotEmpty(t, queries, kind)
			for _, q := range queries {
				assert.Contains(t, q, "Acme")
			}
		} else {
			assert.Empty(t, queries, kind)
		}
	}
}

func TestGather_DedupsAndSkipsFailures(t *testing.T) {
	input := types.UserInput{CompanyName: "Acme", JobRole: "Engineer"}
	queries := SearchQueries(types.AgentPreviousQuestions, input)
	require.Len(t, queries, 2)

	s := &stubSearcher{
		hits: map[string][]Hit{
			queries[0]: {{URI: "https://x", Title: "X"}, {URI: "https://y", Title: "Y"}},
		},
		errs: map[string]error{queries[1]: errors.New("quota")},
	}
	logger, hook := test.NewNullLogger()

	hits := Gather(context.Background(), s, types.AgentPreviousQuestions, input, logrus.NewEntry(logger))
	assert.Equal(t, []Hit{{URI: "https://x", Title: "X"}, {URI: "https://y", Title: "Y"}}, hits)
	assert.Equal(t, queries, s.queries)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestGather_CapsSources(t *testing.T) {
	input := types.UserInput{CompanyName: "Acme", JobRole: "Engineer"}
	q := SearchQueries(types.AgentCompanyResearch, input)[0]

	var many []Hit
	for i := 0; i < MaxSources+5; i++ {
		many = append(many, Hit{URI: "https://h/" + string(rune('a'+i))})
	}
	s := &stubSearcher{hits: map[string][]Hit{q: many}}

	hits := Gather(context.Background(), s, types.AgentCompanyResearch, input, nil)
	assert.Len(t, hits, MaxSources)
}

func TestGather_NilSearcher(t *testing.T) {
	assert.Nil(t, Gather(context.Background(), nil, types.AgentCompanyResearch, types.UserInput{}, nil))
}

func TestToSourcesAndFormatContext(t *testing.T) {
	hits := []Hit{
		{URI: "https://a", Title: "A", Snippet: "line one\nline two"},
		{URI: "https://b"},
		{URI: "https://a", Title: "dup"},
	}

	assert.Equal(t, []types.GroundingSource{
		{URI: "https://a", Title: "A"},
		{URI: "https://b", Title: "https://b"},
	}, ToSources(hits))

	ctx := FormatContext(hits[:2])
	assert.Contains(t, ctx, "[1] A (https://a)")
	assert.Contains(t, ctx, "line one line two")
	assert.Contains(t, ctx, "[2] https://b (https://b)")
}
