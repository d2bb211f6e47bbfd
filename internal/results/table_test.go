package results

import (
	"sync"
	"testing"

	"github.com/jonathan/placement-prep/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_OneEntryPerKind(t *testing.T) {
	table := NewTable()
	results := table.Snapshot().Results()

	require.Len(t, results, types.NumAgentKinds)
	for i, k := range types.AllAgentKinds() {
		assert.Equal(t, k, results[i].Kind)
		assert.False(t, results[i].Loading)
	}
	assert.Equal(t, "Ready", table.Snapshot().Get(types.AgentMockInterviewer).Content)
}

func TestMerge_RetainsSourcesAcrossLoadingPatch(t *testing.T) {
	table := NewTable()
	kind := types.AgentCompanyResearch
	sources := []types.GroundingSource{{URI: "https://a", Title: "A"}}

	_, err := table.Merge(kind, types.Patch{Content: types.Ptr("v1"), Sources: &sources})
	require.NoError(t, err)
	_, err = table.Merge(kind, types.Patch{Loading: types.Ptr(true)})
	require.NoError(t, err)
	got, err := table.Merge(kind, types.Patch{Content: types.Ptr("x"), Loading: types.Ptr(false)})
	require.NoError(t, err)

	assert.Equal(t, types.AgentResult{Kind: kind, Content: "x", Sources: sources}, got)
}

func TestMerge_ExplicitErrorClear(t *testing.T) {
	table := NewTable()
	kind := types.AgentHRAnswers

	_, _ = table.Merge(kind, types.Patch{Error: types.Ptr("boom"), Troubleshooting: &[]string{"retry"}})
	got, _ := table.Merge(kind, types.Patch{Loading: types.Ptr(true), Error: types.Ptr("")})

	assert.Empty(t, got.Error)
	assert.Equal(t, []string{"retry"}, got.Troubleshooting, "absent fields stay untouched")
}

func TestMerge_UnknownKind(t *testing.T) {
	_, err := NewTable().Merge("NOPE", types.Patch{})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = NewTable().Get("NOPE")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestBeginComplete_StaleCompletionDiscarded(t *testing.T) {
	table := NewTable()
	kind := types.AgentResumeOptimization

	first := table.Begin(kind, types.Patch{Loading: types.Ptr(true)})
	second := table.Begin(kind, types.Patch{Loading: types.Ptr(true)})
	require.NotEqual(t, first, second)

	// Newer call finishes first, older one straggles in afterwards.
	assert.True(t, table.Complete(kind, second, types.Patch{Content: types.Ptr("new"), Loading: types.Ptr(false)}))
	assert.False(t, table.Complete(kind, first, types.Patch{Content: types.Ptr("old"), Loading: types.Ptr(false)}))

	got, _ := table.Get(kind)
	assert.Equal(t, "new", got.Content)
	assert.False(t, got.Loading)
}

func TestBeginComplete_OlderFinishingFirstKeepsLoading(t *testing.T) {
	table := NewTable()
	kind := types.AgentResumeOptimization

	first := table.Begin(kind, types.Patch{Loading: types.Ptr(true)})
	second := table.Begin(kind, types.Patch{Loading: types.Ptr(true)})

	assert.False(t, table.Complete(kind, first, types.Patch{Content: types.Ptr("old"), Loading: types.Ptr(false)}))
	got, _ := table.Get(kind)
	assert.True(t, got.Loading, "the retry is still outstanding")
	assert.Empty(t, got.Content)

	assert.True(t, table.Complete(kind, second, types.Patch{Content: types.Ptr("new"), Loading: types.Ptr(false)}))
	got, _ = table.Get(kind)
	assert.Equal(t, "new", got.Content)
	assert.False(t, got.Loading)
}

func TestReset_InvalidatesOutstandingGenerations(t *testing.T) {
	table := NewTable()
	kind := types.AgentPreviousQuestions

	gen := table.Begin(kind, types.Patch{Loading: types.Ptr(true)})
	table.Reset()

	assert.False(t, table.Complete(kind, gen, types.Patch{Content: types.Ptr("late")}))
	got, _ := table.Get(kind)
	assert.Equal(t, types.InitialResult(kind), got)
}

func TestGet_ReturnsCopy(t *testing.T) {
	table := NewTable()
	kind := types.AgentCompanyResearch
	_, _ = table.Merge(kind, types.Patch{Sources: &[]types.GroundingSource{{URI: "u", Title: "t"}}})

	got, _ := table.Get(kind)
	got.Sources[0].Title = "mutated"

	again, _ := table.Get(kind)
	assert.Equal(t, "t", again.Sources[0].Title)
}

func TestSubscribe(t *testing.T) {
	table := NewTable()
	ch, cancel := table.Subscribe(4)

	_, _ = table.Merge(types.AgentHRAnswers, types.Patch{Loading: types.Ptr(true)})
	update := <-ch
	assert.Equal(t, types.AgentHRAnswers, update.Kind)
	assert.True(t, update.Loading)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic.
	_, _ = table.Merge(types.AgentHRAnswers, types.Patch{Loading: types.Ptr(false)})
}

func TestSubscribe_SlowSubscriberDropsUpdates(t *testing.T) {
	table := NewTable()
	ch, cancel := table.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		_, _ = table.Merge(types.AgentHRAnswers, types.Patch{Content: types.Ptr("x")})
	}
	assert.Len(t, ch, 1)
}

func TestTable_ConcurrentMerges(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for _, k := range types.AllAgentKinds() {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(k types.AgentKind) {
				defer wg.Done()
				gen := table.Begin(k, types.Patch{Loading: types.Ptr(true)})
				table.Complete(k, gen, types.Patch{Loading: types.Ptr(false), Content: types.Ptr("done")})
			}(k)
		}
	}
	wg.Wait()

	snap := table.Snapshot()
	assert.False(t, snap.Loading())
	for _, r := range snap.Results() {
		assert.Equal(t, "done", r.Content)
	}
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot(types.AgentResult{Kind: types.AgentHRAnswers, Content: "hr"})

	assert.Equal(t, "hr", s.Get(types.AgentHRAnswers).Content)
	assert.Equal(t, "Ready", s.Get(types.AgentMockInterviewer).Content)
	assert.Empty(t, s.Get(types.AgentCompanyResearch).Content)
	assert.Equal(t, types.AgentKind("NOPE"), s.Get("NOPE").Kind)
}
