package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// SlotData is the per-slot options blob sent in Connected.
type SlotData struct {
	Word string `json:"word"`
}

var (
	slotDataOnce   sync.Once
	slotDataSchema *jsonschema.Schema
	slotDataErr    error
)

func compileEmbedded(name string) (*jsonschema.Schema, error) {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c.Compile(name)
}

// ParseSlotData validates raw against the embedded slot data schema and
// decodes it.
func ParseSlotData(raw json.RawMessage) (SlotData, error) {
	slotDataOnce.Do(func() {
		slotDataSchema, slotDataErr = compileEmbedded("slot_data.schema.json")
	})
	if slotDataErr != nil {
		return SlotData{}, slotDataErr
	}
	if len(raw) == 0 {
		return SlotData{}, fmt.Errorf("slot data: empty")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return SlotData{}, fmt.Errorf("slot data: %w", err)
	}
	if err := slotDataSchema.Validate(v); err != nil {
		return SlotData{}, fmt.Errorf("slot data: %w", err)
	}
	var sd SlotData
	if err := json.Unmarshal(raw, &sd); err != nil {
		return SlotData{}, fmt.Errorf("slot data: %w", err)
	}
	return sd, nil
}
