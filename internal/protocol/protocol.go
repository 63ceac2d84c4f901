package protocol

import (
	"encoding/json"
	"fmt"
)

// Packet commands.
const (
	CmdRoomInfo          = "RoomInfo"
	CmdConnect           = "Connect"
	CmdConnected         = "Connected"
	CmdConnectionRefused = "ConnectionRefused"
	CmdGetDataPackage    = "GetDataPackage"
	CmdDataPackage       = "DataPackage"
	CmdReceivedItems     = "ReceivedItems"
	CmdLocationChecks    = "LocationChecks"
	CmdLocationInfo      = "LocationInfo"
	CmdStatusUpdate      = "StatusUpdate"
	CmdPrintJSON         = "PrintJSON"
	CmdSay               = "Say"
	CmdSync              = "Sync"
)

// ClientVersion is the protocol version advertised in Connect.
var ClientVersion = Version{Major: 0, Minor: 5, Build: 0, Class: "Version"}

// Items handling flags for Connect.
const (
	ItemsFromOtherWorlds = 0b001
	ItemsOwnWorld        = 0b010
	ItemsStartingInv     = 0b100
	ItemsAll             = ItemsFromOtherWorlds | ItemsOwnWorld | ItemsStartingInv
)

// ClientStatusGoal is the StatusUpdate status that marks the slot finished.
const ClientStatusGoal = 30

// BaseMessage lets us route unknown JSON packets by cmd.
type BaseMessage struct {
	Cmd string `json:"cmd"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// DecodeFrame splits one websocket frame into its packets. The server always
// sends a JSON array, even for a single packet.
func DecodeFrame(b []byte) ([]json.RawMessage, error) {
	var pkts []json.RawMessage
	if err := json.Unmarshal(b, &pkts); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return pkts, nil
}

// EncodeFrame wraps packets in the array framing the server expects.
func EncodeFrame(pkts ...any) ([]byte, error) {
	if pkts == nil {
		pkts = []any{}
	}
	return json.Marshal(pkts)
}
