package actor

import (
	"encoding/json"
	"testing"
)

func TestDefaultStats(t *testing.T) {
	tests := []struct {
		class    string
		expected Stats
	}{
		{
			class: "warrior",
			expected: Stats{Health: 120, MaxHealth: 120, Mana: 50, MaxMana: 50, Strength: 14, Intelligence: 10,
				Dexterity: 10, Charisma: 10, Wisdom: 10, Constitution: 12, Level: 1, Gold: 100},
		},
		{
			class: "Mage",
			expected: Stats{Health: 100, MaxHealth: 100, Mana: 80, MaxMana: 80, Strength: 10, Intelligence: 14,
				Dexterity: 10, Charisma: 10, Wisdom: 12, Constitution: 10, Level: 1, Gold: 100},
		},
		{
			class: "ROGUE",
			expected: Stats{Health: 100, MaxHealth: 100, Mana: 50, MaxMana: 50, Strength: 10, Intelligence: 10,
				Dexterity: 14, Charisma: 12, Wisdom: 10, Constitution: 10, Level: 1, Gold: 100},
		},
		{
			class: "cleric",
			expected: Stats{Health: 100, MaxHealth: 100, Mana: 70, MaxMana: 70, Strength: 10, Intelligence: 10,
				Dexterity: 10, Charisma: 10, Wisdom: 14, Constitution: 12, Level: 1, Gold: 100},
		},
		{
			class: "bard",
			expected: Stats{Health: 100, MaxHealth: 100, Mana: 50, MaxMana: 50, Strength: 10, Intelligence: 10,
				Dexterity: 10, Charisma: 10, Wisdom: 10, Constitution: 10, Level: 1, Gold: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			if got := DefaultStats(tt.class); got != tt.expected {
				t.Errorf("DefaultStats(%q) = %+v, want %+v", tt.class, got, tt.expected)
			}
		})
	}
}

func TestStats_Get(t *testing.T) {
	s := DefaultStats("warrior")

	for _, name := range StatNames {
		if _, ok := s.Get(name); !ok {
			t.Errorf("Get(%q) reported unknown stat", name)
		}
	}

	if v, _ := s.Get("strength"); v != 14 {
		t.Errorf("Expected strength 14, got %d", v)
	}
	if _, ok := s.Get("luck"); ok {
		t.Error("Expected luck to be unknown")
	}
}

func TestStats_ApplyOverwrites(t *testing.T) {
	s := Stats{Health: 100, MaxHealth: 100, Mana: 50, MaxMana: 50, Strength: 10, Gold: 100}

	var u StatUpdates
	u.Set("health", 90)
	u.Set("gold", 150)
	s.Apply(u)

	if s.Health != 90 {
		t.Errorf("Expected health 90 (absolute overwrite), got %d", s.Health)
	}
	if s.Gold != 150 {
		t.Errorf("Expected gold 150, got %d", s.Gold)
	}
	if s.Strength != 10 || s.Mana != 50 {
		t.Errorf("Untouched fields changed: %+v", s)
	}
}

func TestStats_ApplyClamps(t *testing.T) {
	tests := []struct {
		name       string
		updates    string
		wantHealth int
		wantMana   int
		wantStr    int
	}{
		{"health above max", `{"health": 150}`, 100, 50, 10},
		{"health below zero", `{"health": -20}`, 0, 50, 10},
		{"mana below zero", `{"mana": -5}`, 100, 0, 10},
		{"max health lowered", `{"maxHealth": 60}`, 60, 50, 10},
		{"primary attribute not clamped", `{"strength": 25}`, 100, 50, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Stats{Health: 100, MaxHealth: 100, Mana: 50, MaxMana: 50, Strength: 10}
			var u StatUpdates
			if err := json.Unmarshal([]byte(tt.updates), &u); err != nil {
				t.Fatalf("Failed to unmarshal updates: %v", err)
			}
			s.Apply(u)
			if s.Health != tt.wantHealth || s.Mana != tt.wantMana || s.Strength != tt.wantStr {
				t.Errorf("Got health=%d mana=%d strength=%d, want %d/%d/%d",
					s.Health, s.Mana, s.Strength, tt.wantHealth, tt.wantMana, tt.wantStr)
			}
		})
	}
}

func TestStatUpdates_SetAndMerge(t *testing.T) {
	var u StatUpdates
	if u.Set("luck", 3) {
		t.Error("Expected Set to reject unknown stat")
	}
	if !u.IsEmpty() {
		t.Error("Expected empty updates")
	}

	u.Set("health", 80)
	u.Set("experience", 10)

	var other StatUpdates
	other.Set("health", 70)
	u.Merge(other)

	fields := u.Fields()
	if len(fields) != 2 {
		t.Fatalf("Expected 2 touched fields, got %d", len(fields))
	}
	if fields["health"] != 70 {
		t.Errorf("Expected merged health 70, got %d", fields["health"])
	}
	if fields["experience"] != 10 {
		t.Errorf("Expected experience 10, got %d", fields["experience"])
	}
}

func TestStatUpdates_JSONOmitsUntouched(t *testing.T) {
	var u StatUpdates
	u.Set("health", 90)

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if string(data) != `{"health":90}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}

func TestNewCharacter(t *testing.T) {
	c := NewCharacter("Aria", "Mage", "Raised in the tower")

	if c.Stats.MaxMana != 80 {
		t.Errorf("Expected mage maxMana 80, got %d", c.Stats.MaxMana)
	}
	if len(c.Inventory) != 4 {
		t.Fatalf("Expected 4 starting items, got %d", len(c.Inventory))
	}
	if !c.HasItem("spellbook") {
		t.Error("Expected case-insensitive match on Spellbook")
	}
	if !c.HasItem("staff") {
		t.Error("Expected substring match on Wooden Staff")
	}
	if c.HasItem("sword") {
		t.Error("Mage should not start with a sword")
	}
}
