// Package results holds the per-session result table: exactly one entry per
// agent kind, updated only by shallow-merging patches.
package results

import (
	"sync"

	"github.com/jonathan/placement-prep/internal/types"
	"github.com/pkg/errors"
)

// ErrUnknownKind is returned for kinds outside the enumeration.
var ErrUnknownKind = errors.New("unknown agent kind")

// Table is safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	entries [types.NumAgentKinds]types.AgentResult
	gens    [types.NumAgentKinds]uint64
	subs    map[int]chan types.AgentResult
	nextSub int
}

// NewTable returns a table with every kind in its initial state.
func NewTable() *Table {
	t := &Table{subs: make(map[int]chan types.AgentResult)}
	t.resetLocked()
	return t
}

func (t *Table) resetLocked() {
	for i, k := range types.AllAgentKinds() {
		t.entries[i] = types.InitialResult(k)
	}
}

// Reset restores every entry to its initial state. Generations keep counting so
// completions from before the reset are still recognised as stale.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.gens {
		t.gens[i]++
	}
	t.resetLocked()
	for _, r := range t.entries {
		t.publishLocked(r)
	}
}

// Merge applies p to the entry for kind and returns the merged entry.
func (t *Table) Merge(kind types.AgentKind, p types.Patch) (types.AgentResult, error) {
	i := kind.Index()
	if i < 0 {
		return types.AgentResult{}, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(i, p), nil
}

// Begin starts a new invocation generation for kind, applies p and returns the
// generation token the completion must present. It returns 0 for unknown kinds.
func (t *Table) Begin(kind types.AgentKind, p types.Patch) uint64 {
	i := kind.Index()
	if i < 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gens[i]++
	t.applyLocked(i, p)
	return t.gens[i]
}

// Complete applies p only if gen is still the current generation for kind.
// It reports whether the patch was applied.
func (t *Table) Complete(kind types.AgentKind, gen uint64, p types.Patch) bool {
	i := kind.Index()
	if i < 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gens[i] != gen {
		return false
	}
	t.applyLocked(i, p)
	return true
}

// Generation returns the current generation for kind.
func (t *Table) Generation(kind types.AgentKind) uint64 {
	i := kind.Index()
	if i < 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gens[i]
}

func (t *Table) applyLocked(i int, p types.Patch) types.AgentResult {
	t.entries[i] = p.Apply(t.entries[i])
	r := t.entries[i].Clone()
	t.publishLocked(r)
	return r
}

// Get returns a copy of the entry for kind.
func (t *Table) Get(kind types.AgentKind) (types.AgentResult, error) {
	i := kind.Index()
	if i < 0 {
		return types.AgentResult{}, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[i].Clone(), nil
}

// Snapshot returns a consistent copy of the whole table.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	var s Snapshot
	for i, r := range t.entries {
		s.entries[i] = r.Clone()
	}
	return s
}

// Subscribe registers for every entry change. Slow subscribers miss updates
// rather than block writers. cancel closes the channel.
func (t *Table) Subscribe(buffer int) (<-chan types.AgentResult, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan types.AgentResult, buffer)

	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

func (t *Table) publishLocked(r types.AgentResult) {
	for _, ch := range t.subs {
		select {
		case ch <- r.Clone():
		default:
		}
	}
}

// Snapshot is an immutable copy of a Table.
type Snapshot struct {
	entries [types.NumAgentKinds]types.AgentResult
}

// NewSnapshot builds a snapshot from individual results; kinds not given keep
// their initial state. Intended for scoring and report tests.
func NewSnapshot(results ...types.AgentResult) Snapshot {
	var s Snapshot
	for i, k := range types.AllAgentKinds() {
		s.entries[i] = types.InitialResult(k)
	}
	for _, r := range results {
		if i := r.Kind.Index(); i >= 0 {
			s.entries[i] = r.Clone()
		}
	}
	return s
}

// Get returns the entry for kind, or the zero result for unknown kinds.
func (s Snapshot) Get(kind types.AgentKind) types.AgentResult {
	i := kind.Index()
	if i < 0 {
		return types.AgentResult{Kind: kind}
	}
	return s.entries[i].Clone()
}

// Results returns every entry in declaration order.
func (s Snapshot) Results() []types.AgentResult {
	out := make([]types.AgentResult, 0, len(s.entries))
	for _, r := range s.entries {
		out = append(out, r.Clone())
	}
	return out
}

// Loading reports whether any entry is still loading.
func (s Snapshot) Loading() bool {
	for _, r := range s.entries {
		if r.Loading {
			return true
		}
	}
	return false
}
