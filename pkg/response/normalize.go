// Package response turns raw model output into a TurnResult. It never fails: output that
// cannot be used is replaced by a fixed fallback scene.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

var (
	ErrNoJSON          = errors.New("no JSON object found in response")
	ErrMissingScene    = errors.New("response has no sceneText")
	ErrMissingChoices  = errors.New("response has no choices")
	ErrMissingMetadata = errors.New("response has no visualMetadata")
)

// Outcome is the result of Normalize. When Fallback is set, Result is FallbackResult() and
// Err says why the raw text was rejected. Repairs lists soft fixes applied to accepted output.
type Outcome struct {
	Result   state.TurnResult
	Fallback bool
	Err      error
	Repairs  []string
}

// FallbackResult is the scene used whenever model output is unusable.
func FallbackResult() state.TurnResult {
	return state.TurnResult{
		SceneText: "The story continues...",
		Choices:   []scenario.Choice{{ID: "continue", Text: "Continue forward"}},
		VisualMetadata: scenario.SceneMetadata{
			VisualAssets:    []scenario.VisualAsset{},
			AudioAssets:     []scenario.AudioAsset{},
			ParticleEffects: []scenario.ParticleEffect{},
			Mood:            scenario.MoodNeutral,
			TimeOfDay:       scenario.Noon,
			Weather:         scenario.WeatherClear,
		},
		IsEnding: false,
	}
}

// Fallback returns the fallback outcome for err.
func Fallback(err error) Outcome {
	return Outcome{Result: FallbackResult(), Fallback: true, Err: err}
}

type wireResult struct {
	SceneText        *string                 `json:"sceneText"`
	Choices          []scenario.Choice       `json:"choices"`
	VisualMetadata   *scenario.SceneMetadata `json:"visualMetadata"`
	IsEnding         json.RawMessage         `json:"isEnding"`
	EndingType       *string                 `json:"endingType"`
	CharacterUpdates map[string]any          `json:"characterUpdates"`
	WorldFlagUpdates map[string]any          `json:"worldFlagUpdates"`
	InventoryChanges *wireInventory          `json:"inventoryChanges"`
}

type wireInventory struct {
	Gained []actor.InventoryItem `json:"gained"`
	Lost   []string              `json:"lost"`
}

// Normalize extracts the first usable JSON object from raw and validates it. Markdown fences
// and surrounding prose are ignored. If a candidate object does not decode or validate, the
// next one is tried; the error of the first rejected candidate is reported.
func Normalize(raw string) Outcome {
	text := stripFences(raw)

	var firstErr error
	for start := 0; start < len(text); {
		obj, next, ok := nextObject(text, start)
		if !ok {
			break
		}
		start = next

		var w wireResult
		if err := json.Unmarshal([]byte(obj), &w); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("decode response: %w", err)
			}
			continue
		}
		out, err := build(w)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return out
	}
	if firstErr == nil {
		firstErr = ErrNoJSON
	}
	return Fallback(firstErr)
}

func stripFences(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// nextObject finds the first '{' at or after from and returns the balanced object starting
// there, together with the offset just past it. Objects nested in a rejected candidate are
// never tried on their own. Braces inside strings are ignored.
func nextObject(text string, from int) (obj string, next int, ok bool) {
	for {
		i := strings.IndexByte(text[from:], '{')
		if i < 0 {
			return "", len(text), false
		}
		start := from + i
		if end, found := matchBrace(text, start); found {
			return text[start : end+1], end + 1, true
		}
		from = start + 1
	}
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func build(w wireResult) (Outcome, error) {
	if w.SceneText == nil || strings.TrimSpace(*w.SceneText) == "" {
		return Outcome{}, ErrMissingScene
	}
	if w.VisualMetadata == nil {
		return Outcome{}, ErrMissingMetadata
	}

	var out Outcome
	repair := func(format string, args ...any) {
		out.Repairs = append(out.Repairs, fmt.Sprintf(format, args...))
	}

	if w.Choices == nil {
		return Outcome{}, ErrMissingChoices
	}
	isEnding := decodeBool(w.IsEnding)
	choices := repairChoices(w.Choices, repair)
	if len(choices) == 0 && !isEnding {
		return Outcome{}, ErrMissingChoices
	}

	r := state.TurnResult{
		SceneText:      strings.TrimSpace(*w.SceneText),
		Choices:        choices,
		VisualMetadata: repairMetadata(*w.VisualMetadata, repair),
		IsEnding:       isEnding,
	}

	if r.IsEnding {
		r.EndingType = scenario.EndingNeutral
		if w.EndingType != nil {
			if t, ok := scenario.ParseEndingType(*w.EndingType); ok {
				r.EndingType = t
			} else {
				repair("unknown endingType %q replaced with neutral", *w.EndingType)
			}
		} else {
			repair("ending without endingType set to neutral")
		}
	}

	if updates := statUpdates(w.CharacterUpdates, repair); !updates.IsEmpty() {
		r.CharacterUpdates = &updates
	}
	if flags := flagUpdates(w.WorldFlagUpdates, repair); len(flags) > 0 {
		r.WorldFlagUpdates = flags
	}
	if w.InventoryChanges != nil {
		changes := repairInventory(*w.InventoryChanges, repair)
		if !changes.IsEmpty() {
			r.InventoryChanges = &changes
		}
	}

	out.Result = r
	return out, nil
}

func repairChoices(in []scenario.Choice, repair func(string, ...any)) []scenario.Choice {
	out := make([]scenario.Choice, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, c := range in {
		if strings.TrimSpace(c.Text) == "" {
			repair("dropped choice %d without text", i+1)
			continue
		}
		if strings.TrimSpace(c.ID) == "" || seen[c.ID] {
			c.ID = fmt.Sprintf("choice%d", i+1)
			repair("assigned id %s", c.ID)
		}
		seen[c.ID] = true

		consequences := c.Consequences[:0:0]
		for _, cons := range c.Consequences {
			if err := cons.Validate(); err != nil {
				repair("dropped consequence on %s: %v", c.ID, err)
				continue
			}
			consequences = append(consequences, cons)
		}
		c.Consequences = consequences

		requirements := c.Requirements[:0:0]
		for _, req := range c.Requirements {
			if err := req.Validate(); err != nil {
				repair("dropped requirement on %s: %v", c.ID, err)
				continue
			}
			requirements = append(requirements, req)
		}
		c.Requirements = requirements

		out = append(out, c)
	}
	return out
}

func repairMetadata(m scenario.SceneMetadata, repair func(string, ...any)) scenario.SceneMetadata {
	m.EnsureLists()
	if !m.Mood.Valid() {
		repair("mood %q replaced with neutral", m.Mood)
		m.Mood = scenario.MoodNeutral
	}
	if !m.TimeOfDay.Valid() {
		repair("timeOfDay %q replaced with noon", m.TimeOfDay)
		m.TimeOfDay = scenario.Noon
	}
	if !m.Weather.Valid() {
		repair("weather %q replaced with clear", m.Weather)
		m.Weather = scenario.WeatherClear
	}
	for i := range m.AudioAssets {
		a := &m.AudioAssets[i]
		if v := min(max(a.Volume, 0), 1); v != a.Volume {
			repair("volume of %s clamped to %v", a.Name, v)
			a.Volume = v
		}
	}
	for i := range m.VisualAssets {
		a := &m.VisualAssets[i]
		if a.Path == "" && a.Type == "background" && a.Name != "" {
			a.Path = scenario.BackgroundPath(a.Name)
		}
		if a.Opacity != nil {
			v := min(max(*a.Opacity, 0), 1)
			a.Opacity = &v
		}
	}
	return m
}

// flagUpdates drops flags whose names cannot be stored.
func flagUpdates(in map[string]any, repair func(string, ...any)) map[string]any {
	out := make(map[string]any, len(in))
	for name, v := range in {
		if !scenario.ValidFlagName(name) {
			repair("dropped world flag with unusable name %.40q", name)
			continue
		}
		out[name] = v
	}
	return out
}

// statUpdates accepts numbers and numeric strings within MaxNumericValue; larger values are
// clamped and unknown stat names are dropped.
func statUpdates(in map[string]any, repair func(string, ...any)) actor.StatUpdates {
	var u actor.StatUpdates
	for name, raw := range in {
		var f float64
		switch v := raw.(type) {
		case float64:
			f = v
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				repair("dropped non-numeric update %s=%q", name, v)
				continue
			}
			f = parsed
		default:
			repair("dropped non-numeric update for %s", name)
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			repair("dropped non-finite update for %s", name)
			continue
		}
		if math.Abs(f) > scenario.MaxNumericValue {
			f = math.Copysign(scenario.MaxNumericValue, f)
			repair("update for %s clamped to %.0f", name, f)
		}
		if !u.Set(name, int(math.Round(f))) {
			repair("dropped update for unknown stat %s", name)
		}
	}
	return u
}

func repairInventory(in wireInventory, repair func(string, ...any)) actor.InventoryChanges {
	out := actor.InventoryChanges{Gained: []actor.InventoryItem{}, Lost: []string{}}
	for _, item := range in.Gained {
		if strings.TrimSpace(item.Name) == "" {
			repair("dropped gained item without name")
			continue
		}
		switch item.Type {
		case actor.ItemWeapon, actor.ItemArmor, actor.ItemConsumable, actor.ItemMisc:
		default:
			item.Type = actor.ItemMisc
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		item.Value = max(item.Value, 0)
		out.Gained = append(out.Gained, item)
	}
	for _, lost := range in.Lost {
		if strings.TrimSpace(lost) != "" {
			out.Lost = append(out.Lost, lost)
		}
	}
	return out
}

func decodeBool(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true", `"true"`:
		return true
	}
	return false
}
