package session

import (
	"encoding/json"

	"aphangman.ai/internal/catalog"
)

// Event is one inbound server message, already decoded by the transport.
// The set of implementations is closed; Handle switches over all of them.
type Event interface {
	isEvent()
}

// RoomInfo carries the room metadata; only the seed name matters here.
type RoomInfo struct {
	SeedName string
}

// Connected is the slot's connection-established data.
type Connected struct {
	Slot     int
	Missing  []int64
	Checked  []int64
	SlotData json.RawMessage
}

type CatalogReceived struct {
	Payload catalog.Payload
}

// ItemsGranted is one ReceivedItems packet. Index is the ledger position of
// Items[0]; 0 replaces the whole ledger.
type ItemsGranted struct {
	Index int
	Items []GrantedItem
}

type ScoutInfo struct {
	Objectives []ScoutedObjective
}

type ChatMessage struct {
	Sender string
	Text   string
}

type Disconnected struct {
	Err error
}

func (RoomInfo) isEvent()        {}
func (Connected) isEvent()       {}
func (CatalogReceived) isEvent() {}
func (ItemsGranted) isEvent()    {}
func (ScoutInfo) isEvent()       {}
func (ChatMessage) isEvent()     {}
func (Disconnected) isEvent()    {}

type GrantedItem struct {
	Item     int64
	Location int64
	Player   int
	Flags    int
}

// ItemRecord is a ledger entry. The whole record, sequence included, is the
// dedup key: the same item id legitimately recurs.
type ItemRecord struct {
	Index int
	GrantedItem
}

type ScoutedObjective struct {
	Location int64
	Item     int64
	Player   int
	Flags    int
}
