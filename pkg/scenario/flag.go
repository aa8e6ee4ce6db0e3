package scenario

import (
	"strings"
	"time"
	"unicode/utf8"
)

// WorldFlag is a named value shared by every character. Writes are last-writer-wins.
type WorldFlag struct {
	Name        string    `json:"name"`
	Value       any       `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Well-known flags written by the turn engine.
const (
	FlagGameStarted      = "game_started"
	FlagCharacterCreated = "character_created"
	FlagGameEnded        = "game_ended"
	FlagEndingType       = "ending_type"
	FlagFinalScene       = "final_scene"
	EventFlagPrefix      = "event_"
)

// MaxFlagNameLength matches the world_flags.name column.
const MaxFlagNameLength = 100

// ValidFlagName reports whether name can be stored: not blank and at most
// MaxFlagNameLength characters.
func ValidFlagName(name string) bool {
	return strings.TrimSpace(name) != "" && utf8.RuneCountInString(name) <= MaxFlagNameLength
}

// FlagMap indexes flags by name.
func FlagMap(flags []WorldFlag) map[string]any {
	m := make(map[string]any, len(flags))
	for _, f := range flags {
		m[f.Name] = f.Value
	}
	return m
}
