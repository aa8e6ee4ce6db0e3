package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jwebster45206/storylines/pkg/actor"
)

type ConsequenceType string

const (
	ConsequenceStatChange ConsequenceType = "stat_change"
	ConsequenceItemGain   ConsequenceType = "item_gain"
	ConsequenceItemLoss   ConsequenceType = "item_loss"
	ConsequenceWorldFlag  ConsequenceType = "world_flag"
	ConsequenceEvent      ConsequenceType = "event"
)

// Consequence is the effect of taking a choice. Value holds the payload for Type:
// StatDelta, ItemGrant, ItemDrop, FlagValue, EventPayload, or RawValue when the payload
// did not match its type.
type Consequence struct {
	Type        ConsequenceType
	Target      string
	Value       ConsequenceValue
	Description string
}

// ConsequenceValue is implemented by the typed consequence payloads.
type ConsequenceValue interface {
	consequenceValue()
}

// StatDelta is added to the current stat value.
type StatDelta int

// ItemGrant describes a gained item. Zero Quantity means one.
type ItemGrant struct {
	Quantity    int            `json:"quantity,omitempty"`
	Description string         `json:"description,omitempty"`
	Type        actor.ItemType `json:"type,omitempty"`
	Value       int            `json:"value,omitempty"`
}

// ItemDrop removes the target item; it carries no payload.
type ItemDrop struct{}

// FlagValue is assigned to the world flag named by Target.
type FlagValue struct{ Value any }

// EventPayload is informational; applying an event only sets event_<target>.
type EventPayload struct{ Value any }

// RawValue keeps a payload that could not be read for its type.
type RawValue struct{ Raw json.RawMessage }

func (StatDelta) consequenceValue()    {}
func (ItemGrant) consequenceValue()    {}
func (ItemDrop) consequenceValue()     {}
func (FlagValue) consequenceValue()    {}
func (EventPayload) consequenceValue() {}
func (RawValue) consequenceValue()     {}

type consequenceWire struct {
	Type        ConsequenceType `json:"type"`
	Target      string          `json:"target"`
	Value       json.RawMessage `json:"value,omitempty"`
	Description string          `json:"description,omitempty"`
}

// UnmarshalJSON decodes the payload according to type. A payload of the wrong shape is kept
// as RawValue and reported by Validate, so one bad consequence never rejects a whole scene.
func (c *Consequence) UnmarshalJSON(data []byte) error {
	var w consequenceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Type = w.Type
	c.Target = w.Target
	c.Description = w.Description
	c.Value = decodeConsequenceValue(w.Type, w.Value)
	return nil
}

func decodeConsequenceValue(t ConsequenceType, raw json.RawMessage) ConsequenceValue {
	raw = bytes.TrimSpace(raw)
	isNull := len(raw) == 0 || bytes.Equal(raw, []byte("null"))

	switch t {
	case ConsequenceStatChange:
		if n, ok := decodeInt(raw); ok {
			return StatDelta(n)
		}
	case ConsequenceItemGain:
		if isNull {
			return ItemGrant{}
		}
		if n, ok := decodeInt(raw); ok {
			return ItemGrant{Quantity: n}
		}
		var g ItemGrant
		if raw[0] == '{' && json.Unmarshal(raw, &g) == nil {
			return g
		}
		var desc string
		if json.Unmarshal(raw, &desc) == nil {
			return ItemGrant{Description: desc}
		}
	case ConsequenceItemLoss:
		return ItemDrop{}
	case ConsequenceWorldFlag, ConsequenceEvent:
		var v any
		if !isNull {
			if err := json.Unmarshal(raw, &v); err != nil {
				break
			}
		}
		if t == ConsequenceEvent {
			return EventPayload{Value: v}
		}
		return FlagValue{Value: v}
	}
	return RawValue{Raw: raw}
}

// MaxNumericValue bounds the magnitude of numbers read from model output.
const MaxNumericValue = 1_000_000_000

// decodeInt reads a JSON number or numeric string, rounding fractional values.
// Values beyond MaxNumericValue are rejected.
func decodeInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > MaxNumericValue {
		return 0, false
	}
	return int(math.Round(f)), true
}

func (c Consequence) MarshalJSON() ([]byte, error) {
	w := consequenceWire{Type: c.Type, Target: c.Target, Description: c.Description}

	var value any
	switch v := c.Value.(type) {
	case StatDelta:
		value = int(v)
	case ItemGrant:
		if v.Description == "" && v.Type == "" && v.Value == 0 {
			value = max(v.Quantity, 1)
		} else {
			value = v
		}
	case FlagValue:
		value = v.Value
	case EventPayload:
		value = v.Value
	case RawValue:
		if len(v.Raw) > 0 {
			w.Value = v.Raw
		}
	}
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		w.Value = data
	}
	return json.Marshal(w)
}

// Validate reports unknown types, missing targets and mismatched payloads.
func (c Consequence) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return fmt.Errorf("%s consequence has no target", c.Type)
	}
	switch c.Type {
	case ConsequenceStatChange, ConsequenceItemGain, ConsequenceItemLoss, ConsequenceWorldFlag, ConsequenceEvent:
	default:
		return fmt.Errorf("unknown consequence type %q", c.Type)
	}
	switch c.Type {
	case ConsequenceWorldFlag:
		if !ValidFlagName(c.Target) {
			return fmt.Errorf("world_flag target is longer than %d characters", MaxFlagNameLength)
		}
	case ConsequenceEvent:
		if !ValidFlagName(EventFlagPrefix + c.Target) {
			return fmt.Errorf("event target is longer than %d characters", MaxFlagNameLength-len(EventFlagPrefix))
		}
	}
	if raw, ok := c.Value.(RawValue); ok {
		return fmt.Errorf("%s consequence for %q has unreadable value %s", c.Type, c.Target, string(raw.Raw))
	}
	if g, ok := c.Value.(ItemGrant); ok && g.Quantity < 0 {
		return fmt.Errorf("item_gain for %q has negative quantity", c.Target)
	}
	return nil
}

// Delta returns the stat delta of a stat_change consequence.
func (c Consequence) Delta() (int, bool) {
	d, ok := c.Value.(StatDelta)
	return int(d), ok
}
