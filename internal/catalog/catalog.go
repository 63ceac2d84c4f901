package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	StartingID = 1

	MaxPuzzleLength = 20 // longest word the table covers
	MaxRewards      = 5  // a six letter word gives its first positions five rewards
	MinPuzzleLength = 6

	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ObjectivesPerPuzzle is one objective per letter item in the pool.
const ObjectivesPerPuzzle = len(Alphabet)

var (
	ErrObjectivesUnknown = errors.New("catalog: objective ids not known yet")
	ErrMismatch          = errors.New("catalog: server catalog does not match puzzle")
)

type Objective struct {
	ID       int64
	Name     string
	Position int
	Reward   int
}

func ObjectiveName(position, reward int) string {
	return "Letter " + strconv.Itoa(position) + " Reward " + strconv.Itoa(reward)
}

func ParseObjectiveName(name string) (position, reward int, ok bool) {
	parts := strings.Fields(name)
	if len(parts) != 4 || parts[0] != "Letter" || parts[2] != "Reward" {
		return 0, 0, false
	}
	p, err1 := strconv.Atoi(parts[1])
	r, err2 := strconv.Atoi(parts[3])
	if err1 != nil || err2 != nil || p <= 0 || r <= 0 {
		return 0, 0, false
	}
	return p, r, true
}

// slot maps a row-major global index onto (position, reward) for a word of
// the given length. Both the theoretical table and the per-puzzle table go
// through here so their names agree.
func slot(i, length int) (position, reward int) {
	return i%length + 1, i/length + 1
}

var theoretical = buildTheoretical()

func buildTheoretical() map[string]int64 {
	out := make(map[string]int64, MaxPuzzleLength*MaxRewards)
	for i := 0; i < MaxPuzzleLength*MaxRewards; i++ {
		pos, reward := slot(i, MaxPuzzleLength)
		out[ObjectiveName(pos, reward)] = int64(i + StartingID)
	}
	return out
}

// Theoretical returns the name -> id table for every objective any word could
// have. Most entries never exist in a real session.
func Theoretical() map[string]int64 {
	out := make(map[string]int64, len(theoretical))
	for k, v := range theoretical {
		out[k] = v
	}
	return out
}

// ForPuzzle lists the objectives a session with this word has, in global
// index order.
func ForPuzzle(word string) ([]Objective, error) {
	n := len(word)
	if n < MinPuzzleLength || n > MaxPuzzleLength {
		return nil, fmt.Errorf("catalog: word length %d outside [%d,%d]", n, MinPuzzleLength, MaxPuzzleLength)
	}
	out := make([]Objective, 0, ObjectivesPerPuzzle)
	for i := 0; i < ObjectivesPerPuzzle; i++ {
		pos, reward := slot(i, n)
		name := ObjectiveName(pos, reward)
		id, ok := theoretical[name]
		if !ok {
			return nil, fmt.Errorf("catalog: %q not in theoretical table", name)
		}
		out = append(out, Objective{ID: id, Name: name, Position: pos, Reward: reward})
	}
	return out, nil
}

// Payload is the per-game part of the server's data package.
type Payload struct {
	ItemNameToID     map[string]int64
	LocationNameToID map[string]int64
}

// Maps is the session-scoped view of the catalog: locations are narrowed to
// the ids the server says this slot has.
type Maps struct {
	itemByName map[string]int64
	itemByID   map[int64]string
	locByName  map[string]int64
	locByID    map[int64]string
}

// Resolve builds fresh maps from p, keeping only locations in known.
func Resolve(p Payload, known map[int64]struct{}) (*Maps, error) {
	if len(known) == 0 {
		return nil, ErrObjectivesUnknown
	}
	m := &Maps{
		itemByName: make(map[string]int64, len(p.ItemNameToID)),
		itemByID:   make(map[int64]string, len(p.ItemNameToID)),
		locByName:  map[string]int64{},
		locByID:    map[int64]string{},
	}
	for name, id := range p.ItemNameToID {
		m.itemByName[name] = id
		m.itemByID[id] = name
	}
	for name, id := range p.LocationNameToID {
		if _, ok := known[id]; !ok {
			continue
		}
		m.locByName[name] = id
		m.locByID[id] = name
	}
	return m, nil
}

func (m *Maps) ItemName(id int64) (string, bool) {
	n, ok := m.itemByID[id]
	return n, ok
}

func (m *Maps) ItemID(name string) (int64, bool) {
	id, ok := m.itemByName[name]
	return id, ok
}

func (m *Maps) LocationName(id int64) (string, bool) {
	n, ok := m.locByID[id]
	return n, ok
}

func (m *Maps) LocationID(name string) (int64, bool) {
	id, ok := m.locByName[name]
	return id, ok
}

// LocationsAt returns the session's objective ids at a 1-based word position,
// ordered by reward number.
func (m *Maps) LocationsAt(position int) []int64 {
	var ids []int64
	for r := 1; r <= MaxRewards; r++ {
		if id, ok := m.LocationID(ObjectiveName(position, r)); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *Maps) Len() (items, locations int) {
	return len(m.itemByID), len(m.locByID)
}

// Verify checks that every retained location is one the word's own table
// produces, with the same id, and that every letter of the word is an item.
func (m *Maps) Verify(word string) error {
	objs, err := ForPuzzle(word)
	if err != nil {
		return err
	}
	want := make(map[string]int64, len(objs))
	for _, o := range objs {
		want[o.Name] = o.ID
	}
	for name, id := range m.locByName {
		wid, ok := want[name]
		if !ok {
			if pos, _, parsed := ParseObjectiveName(name); parsed && pos > len(word) {
				return fmt.Errorf("%w: %q is past the end of a %d letter word", ErrMismatch, name, len(word))
			}
			return fmt.Errorf("%w: %q is not an objective of a %d letter word", ErrMismatch, name, len(word))
		}
		if wid != id {
			return fmt.Errorf("%w: %q has id %d, want %d", ErrMismatch, name, id, wid)
		}
	}
	for i := 0; i < len(word); i++ {
		if _, ok := m.ItemID(word[i : i+1]); !ok {
			return fmt.Errorf("%w: no item for letter %q", ErrMismatch, word[i:i+1])
		}
	}
	return nil
}
