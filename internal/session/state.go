package session

import (
	"sort"

	"aphangman.ai/internal/catalog"
)

type Readiness int

const (
	ReadinessInit Readiness = iota
	ReadinessAwaitingCatalog
	ReadinessReady
)

func (r Readiness) String() string {
	switch r {
	case ReadinessInit:
		return "init"
	case ReadinessAwaitingCatalog:
		return "awaiting_catalog"
	case ReadinessReady:
		return "ready"
	default:
		return "unknown"
	}
}

// state is everything the session mutates. It is only touched with the
// session lock held.
type state struct {
	word      string
	seed      string
	readiness Readiness
	maps      *catalog.Maps
	completed bool

	// outstanding and resolved partition universe. pending is the subset of
	// outstanding that still has to be reported.
	universe    map[int64]struct{}
	outstanding map[int64]struct{}
	resolved    map[int64]struct{}
	pending     []int64
	pendingSet  map[int64]struct{}

	processed   map[ItemRecord]struct{}
	acquired    []string
	acquiredSet map[string]struct{}
}

func newState() state {
	return state{
		outstanding: map[int64]struct{}{},
		resolved:    map[int64]struct{}{},
		pendingSet:  map[int64]struct{}{},
		processed:   map[ItemRecord]struct{}{},
		acquiredSet: map[string]struct{}{},
	}
}

func (st *state) advance(r Readiness) {
	if r > st.readiness {
		st.readiness = r
	}
}

// setObjectives installs the server's view of the slot's objectives. Ids the
// session already reported stay resolved.
func (st *state) setObjectives(missing, checked []int64) {
	st.universe = make(map[int64]struct{}, len(missing)+len(checked))
	resolved := make(map[int64]struct{}, len(checked))
	for _, id := range checked {
		st.universe[id] = struct{}{}
		resolved[id] = struct{}{}
	}
	for _, id := range missing {
		st.universe[id] = struct{}{}
	}
	for id := range st.resolved {
		if _, ok := st.universe[id]; ok {
			resolved[id] = struct{}{}
		}
	}
	st.resolved = resolved
	st.outstanding = make(map[int64]struct{}, len(st.universe))
	for id := range st.universe {
		if _, ok := resolved[id]; !ok {
			st.outstanding[id] = struct{}{}
		}
	}
	pending := st.pending[:0]
	for _, id := range st.pending {
		if _, ok := st.outstanding[id]; ok {
			pending = append(pending, id)
		} else {
			delete(st.pendingSet, id)
		}
	}
	st.pending = pending
}

func (st *state) markPending(id int64) bool {
	if _, ok := st.outstanding[id]; !ok {
		return false
	}
	if _, ok := st.pendingSet[id]; ok {
		return false
	}
	st.pendingSet[id] = struct{}{}
	st.pending = append(st.pending, id)
	return true
}

// resolve moves a reported batch from outstanding to resolved.
func (st *state) resolve(ids []int64) {
	for _, id := range ids {
		delete(st.outstanding, id)
		delete(st.pendingSet, id)
		st.resolved[id] = struct{}{}
	}
	st.pending = st.pending[:0]
}

func (st *state) acquire(letter string) {
	if _, ok := st.acquiredSet[letter]; ok {
		return
	}
	st.acquiredSet[letter] = struct{}{}
	st.acquired = append(st.acquired, letter)
}

func (st *state) has(letter string) bool {
	_, ok := st.acquiredSet[letter]
	return ok
}

// positions returns the 1-based word positions holding letter.
func (st *state) positions(letter string) []int {
	var out []int
	for i := 0; i < len(st.word); i++ {
		if string(st.word[i]) == letter {
			out = append(out, i+1)
		}
	}
	return out
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Word        string
	Seed        string
	Readiness   Readiness
	Completed   bool
	Acquired    []string
	Outstanding []int64
	Resolved    []int64
	Pending     []int64
	Processed   int
}

func (st *state) snapshot() Snapshot {
	return Snapshot{
		Word:        st.word,
		Seed:        st.seed,
		Readiness:   st.readiness,
		Completed:   st.completed,
		Acquired:    append([]string(nil), st.acquired...),
		Outstanding: sortedIDs(st.outstanding),
		Resolved:    sortedIDs(st.resolved),
		Pending:     append([]int64(nil), st.pending...),
		Processed:   len(st.processed),
	}
}

func sortedIDs(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
