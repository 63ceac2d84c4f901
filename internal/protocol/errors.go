package protocol

// ConnectionRefused error codes.
const (
	RefusedInvalidSlot          = "InvalidSlot"
	RefusedInvalidGame          = "InvalidGame"
	RefusedIncompatibleVersion  = "IncompatibleVersion"
	RefusedInvalidPassword      = "InvalidPassword"
	RefusedInvalidItemsHandling = "InvalidItemsHandling"
)

var knownRefusals = map[string]struct{}{
	RefusedInvalidSlot:          {},
	RefusedInvalidGame:          {},
	RefusedIncompatibleVersion:  {},
	RefusedInvalidPassword:      {},
	RefusedInvalidItemsHandling: {},
}

// Retrying with the same credentials cannot fix these.
var permanentRefusals = map[string]struct{}{
	RefusedInvalidSlot:         {},
	RefusedInvalidGame:         {},
	RefusedIncompatibleVersion: {},
	RefusedInvalidPassword:     {},
}

func IsKnownRefusal(code string) bool {
	_, ok := knownRefusals[code]
	return ok
}

func IsPermanentRefusal(codes []string) bool {
	for _, c := range codes {
		if _, ok := permanentRefusals[c]; ok {
			return true
		}
	}
	return false
}
