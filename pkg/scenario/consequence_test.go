package scenario

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsequence_UnmarshalByType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ConsequenceValue
		wantErr bool // from Validate
	}{
		{"stat change number", `{"type":"stat_change","target":"health","value":-10}`, StatDelta(-10), false},
		{"stat change string", `{"type":"stat_change","target":"gold","value":"+25"}`, StatDelta(25), false},
		{"stat change fractional", `{"type":"stat_change","target":"gold","value":2.6}`, StatDelta(3), false},
		{"stat change out of range", `{"type":"stat_change","target":"gold","value":1e300}`, RawValue{Raw: json.RawMessage(`1e300`)}, true},
		{"stat change string out of range", `{"type":"stat_change","target":"gold","value":"-2e9"}`, RawValue{Raw: json.RawMessage(`"-2e9"`)}, true},
		{"stat change junk", `{"type":"stat_change","target":"gold","value":"lots"}`, RawValue{Raw: json.RawMessage(`"lots"`)}, true},
		{"item gain quantity", `{"type":"item_gain","target":"Healing Potion","value":2}`, ItemGrant{Quantity: 2}, false},
		{"item gain missing value", `{"type":"item_gain","target":"Key"}`, ItemGrant{}, false},
		{"item gain object", `{"type":"item_gain","target":"Key","value":{"quantity":1,"type":"misc","description":"Rusty"}}`,
			ItemGrant{Quantity: 1, Type: "misc", Description: "Rusty"}, false},
		{"item loss", `{"type":"item_loss","target":"rations"}`, ItemDrop{}, false},
		{"world flag bool", `{"type":"world_flag","target":"met_wizard","value":true}`, FlagValue{Value: true}, false},
		{"world flag string", `{"type":"world_flag","target":"ally","value":"elves"}`, FlagValue{Value: "elves"}, false},
		{"event", `{"type":"event","target":"dragon_attack","value":"the sky burns"}`, EventPayload{Value: "the sky burns"}, false},
		{"unknown type", `{"type":"teleport","target":"moon","value":1}`, RawValue{Raw: json.RawMessage(`1`)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Consequence
			require.NoError(t, json.Unmarshal([]byte(tt.input), &c))
			assert.Equal(t, tt.want, c.Value)
			if tt.wantErr {
				assert.Error(t, c.Validate())
			} else {
				assert.NoError(t, c.Validate())
			}
		})
	}
}

func TestConsequence_MarshalKeepsWireShape(t *testing.T) {
	tests := []struct {
		name string
		c    Consequence
		want string
	}{
		{
			name: "stat change",
			c:    Consequence{Type: ConsequenceStatChange, Target: "health", Value: StatDelta(-5), Description: "Ouch"},
			want: `{"type":"stat_change","target":"health","value":-5,"description":"Ouch"}`,
		},
		{
			name: "simple item gain",
			c:    Consequence{Type: ConsequenceItemGain, Target: "Torch", Value: ItemGrant{}},
			want: `{"type":"item_gain","target":"Torch","value":1}`,
		},
		{
			name: "item loss",
			c:    Consequence{Type: ConsequenceItemLoss, Target: "Torch", Value: ItemDrop{}},
			want: `{"type":"item_loss","target":"Torch"}`,
		},
		{
			name: "world flag",
			c:    Consequence{Type: ConsequenceWorldFlag, Target: "bridge_out", Value: FlagValue{Value: true}},
			want: `{"type":"world_flag","target":"bridge_out","value":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.c)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestConsequence_ValidateTarget(t *testing.T) {
	c := Consequence{Type: ConsequenceStatChange, Value: StatDelta(1)}
	assert.Error(t, c.Validate())
}

func TestConsequence_ValidateFlagTargets(t *testing.T) {
	tests := []struct {
		name    string
		c       Consequence
		wantErr bool
	}{
		{"flag at limit", Consequence{Type: ConsequenceWorldFlag, Target: strings.Repeat("f", MaxFlagNameLength), Value: FlagValue{Value: true}}, false},
		{"flag too long", Consequence{Type: ConsequenceWorldFlag, Target: strings.Repeat("f", MaxFlagNameLength+1), Value: FlagValue{Value: true}}, true},
		{"event at limit", Consequence{Type: ConsequenceEvent, Target: strings.Repeat("e", MaxFlagNameLength-len(EventFlagPrefix)), Value: EventPayload{}}, false},
		{"event too long", Consequence{Type: ConsequenceEvent, Target: strings.Repeat("e", MaxFlagNameLength-len(EventFlagPrefix)+1), Value: EventPayload{}}, true},
		{"blank flag", Consequence{Type: ConsequenceWorldFlag, Target: "  ", Value: FlagValue{Value: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				assert.Error(t, tt.c.Validate())
			} else {
				assert.NoError(t, tt.c.Validate())
			}
		})
	}
}

func TestValidFlagName(t *testing.T) {
	assert.True(t, ValidFlagName("door_open"))
	assert.True(t, ValidFlagName(strings.Repeat("é", MaxFlagNameLength)), "length counts characters")
	assert.False(t, ValidFlagName(""))
	assert.False(t, ValidFlagName(" \t"))
	assert.False(t, ValidFlagName(strings.Repeat("a", MaxFlagNameLength+1)))
}

func TestRequirement_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       Requirement
		wantErr bool
	}{
		{"stat", Requirement{Type: RequirementStat, Target: "strength", Operator: OpGTE, Value: 12.0}, false},
		{"item needs no operator", Requirement{Type: RequirementItem, Target: "key"}, false},
		{"flag", Requirement{Type: RequirementWorldFlag, Target: "door_open", Operator: OpEQ, Value: true}, false},
		{"bad operator", Requirement{Type: RequirementStat, Target: "strength", Operator: "!=", Value: 1.0}, true},
		{"bad type", Requirement{Type: "luck", Target: "x", Operator: OpEQ}, true},
		{"no target", Requirement{Type: RequirementStat, Operator: OpEQ}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
