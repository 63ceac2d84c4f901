package session

import "sync"

// ledger mirrors the server's running list of items granted to this slot.
type ledger struct {
	mu    sync.Mutex
	items []ItemRecord
}

// apply merges one ReceivedItems packet. It reports false on a sequence gap;
// the caller must ask the server to resync.
func (l *ledger) apply(index int, items []GrantedItem) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case index == 0:
		l.items = l.items[:0]
	case index != len(l.items):
		return false
	}
	for _, it := range items {
		l.items = append(l.items, ItemRecord{Index: len(l.items), GrantedItem: it})
	}
	return true
}

func (l *ledger) snapshot() []ItemRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ItemRecord(nil), l.items...)
}

func (l *ledger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
