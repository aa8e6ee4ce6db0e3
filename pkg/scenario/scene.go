package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Scene is one generated step of a character's story. Scenes are append-only; the only
// field written after creation is ChosenChoiceID.
type Scene struct {
	ID             int64         `json:"id"`
	CharacterID    int64         `json:"characterId"`
	SceneNumber    int           `json:"sceneNumber"` // 1-based, previous + 1
	Description    string        `json:"description"`
	Choices        []Choice      `json:"choices"`
	Metadata       SceneMetadata `json:"metadata"`
	IsEnding       bool          `json:"isEnding"`
	EndingType     EndingType    `json:"endingType,omitempty"`
	ChosenChoiceID string        `json:"chosenChoiceId,omitempty"` // Choice taken to leave this scene
	CreatedAt      time.Time     `json:"createdAt"`
}

// FindChoice returns the choice with the given id.
func (s *Scene) FindChoice(id string) (*Choice, bool) {
	for i := range s.Choices {
		if s.Choices[i].ID == id {
			return &s.Choices[i], true
		}
	}
	return nil, false
}

// Choice is one option offered at the end of a scene. IDs are only unique within a scene.
type Choice struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	Consequences []Consequence `json:"consequences,omitempty"`
	Requirements []Requirement `json:"requirements,omitempty"`
}

// UnmarshalJSON accepts string or numeric ids.
func (c *Choice) UnmarshalJSON(data []byte) error {
	type alias Choice
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := DecodeChoiceID(aux.ID)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// DecodeChoiceID reads a choice id that may be encoded as a JSON string or number.
func DecodeChoiceID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid choice id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("choice id must be a string or number")
	}
	return n.String(), nil
}

// EndingType classifies how a story concluded.
type EndingType string

const (
	EndingVictory EndingType = "victory"
	EndingDefeat  EndingType = "defeat"
	EndingNeutral EndingType = "neutral"
	EndingMystery EndingType = "mystery"
	EndingRomance EndingType = "romance"
	EndingTragedy EndingType = "tragedy"
)

var EndingTypes = []EndingType{EndingVictory, EndingDefeat, EndingNeutral, EndingMystery, EndingRomance, EndingTragedy}

func (e EndingType) Valid() bool {
	for _, t := range EndingTypes {
		if e == t {
			return true
		}
	}
	return false
}

// ParseEndingType matches case-insensitively.
func ParseEndingType(s string) (EndingType, bool) {
	e := EndingType(strings.ToLower(strings.TrimSpace(s)))
	return e, e.Valid()
}
