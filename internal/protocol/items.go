package protocol

// NetworkItem is one item record as the server sends it. Location is the
// objective it was found at (negative for starting inventory and cheats).
type NetworkItem struct {
	Item     int64 `json:"item"`
	Location int64 `json:"location"`
	Player   int   `json:"player"`
	Flags    int   `json:"flags"`
}

// ReceivedItems (server -> client). Index 0 means "this is everything";
// otherwise Index is the position of Items[0] in the running list.
type ReceivedItemsMsg struct {
	Cmd   string        `json:"cmd"`
	Index int           `json:"index"`
	Items []NetworkItem `json:"items"`
}

// LocationChecks (client -> server)
type LocationChecksMsg struct {
	Cmd       string  `json:"cmd"`
	Locations []int64 `json:"locations"`
}

// LocationInfo (server -> client), the answer to a location scout.
type LocationInfoMsg struct {
	Cmd       string        `json:"cmd"`
	Locations []NetworkItem `json:"locations"`
}
