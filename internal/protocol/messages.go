package protocol

import "encoding/json"

type Version struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Build int    `json:"build"`
	Class string `json:"class"`
}

// RoomInfo (server -> client), the first packet after the socket opens.
type RoomInfoMsg struct {
	Cmd                  string            `json:"cmd"`
	Version              Version           `json:"version"`
	GeneratorVersion     Version           `json:"generator_version"`
	Tags                 []string          `json:"tags"`
	Password             bool              `json:"password"`
	Permissions          map[string]int    `json:"permissions,omitempty"`
	HintCost             int               `json:"hint_cost"`
	LocationCheckPoints  int               `json:"location_check_points"`
	Games                []string          `json:"games"`
	DatapackageChecksums map[string]string `json:"datapackage_checksums,omitempty"`
	SeedName             string            `json:"seed_name"`
	Time                 float64           `json:"time"`
}

// Connect (client -> server)
type ConnectMsg struct {
	Cmd           string   `json:"cmd"`
	Password      string   `json:"password"`
	Game          string   `json:"game"`
	Name          string   `json:"name"`
	UUID          string   `json:"uuid"`
	Version       Version  `json:"version"`
	ItemsHandling int      `json:"items_handling"`
	Tags          []string `json:"tags"`
	SlotData      bool     `json:"slot_data"`
}

type NetworkPlayer struct {
	Team  int    `json:"team"`
	Slot  int    `json:"slot"`
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

// Connected (server -> client)
type ConnectedMsg struct {
	Cmd              string          `json:"cmd"`
	Team             int             `json:"team"`
	Slot             int             `json:"slot"`
	Players          []NetworkPlayer `json:"players"`
	MissingLocations []int64         `json:"missing_locations"`
	CheckedLocations []int64         `json:"checked_locations"`
	SlotData         json.RawMessage `json:"slot_data,omitempty"`
	HintPoints       int             `json:"hint_points"`
}

// ConnectionRefused (server -> client)
type ConnectionRefusedMsg struct {
	Cmd    string   `json:"cmd"`
	Errors []string `json:"errors"`
}

// GetDataPackage (client -> server)
type GetDataPackageMsg struct {
	Cmd   string   `json:"cmd"`
	Games []string `json:"games"`
}

// DataPackage (server -> client)
type DataPackageMsg struct {
	Cmd  string          `json:"cmd"`
	Data DataPackageData `json:"data"`
}

type DataPackageData struct {
	Games map[string]GameData `json:"games"`
}

type GameData struct {
	ItemNameToID     map[string]int64 `json:"item_name_to_id"`
	LocationNameToID map[string]int64 `json:"location_name_to_id"`
	Checksum         string           `json:"checksum,omitempty"`
}

// PrintJSON (server -> client). Chat packets carry the raw text in Message.
type PrintJSONMsg struct {
	Cmd     string            `json:"cmd"`
	Type    string            `json:"type,omitempty"`
	Data    []JSONMessagePart `json:"data"`
	Message string            `json:"message,omitempty"`
	Slot    int               `json:"slot,omitempty"`
	Team    int               `json:"team,omitempty"`
}

type JSONMessagePart struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// Say (client -> server)
type SayMsg struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text"`
}

// StatusUpdate (client -> server)
type StatusUpdateMsg struct {
	Cmd    string `json:"cmd"`
	Status int    `json:"status"`
}

// Sync (client -> server) asks for a full ReceivedItems replay.
type SyncMsg struct {
	Cmd string `json:"cmd"`
}
