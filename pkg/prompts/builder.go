package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/chat"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

// Kind identifies which user prompt a Request carries.
type Kind string

const (
	KindInitial      Kind = "initial"
	KindContinuation Kind = "continuation"
	KindEnding       Kind = "ending"
)

// Request is a fully rendered model call.
type Request struct {
	Kind        Kind
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Messages returns the request as a system message followed by a user message.
func (r Request) Messages() []chat.ChatMessage {
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: r.System},
		{Role: chat.ChatRoleUser, Content: r.User},
	}
}

// Builder renders model requests using a fluent interface. With only a character it
// builds the opening scene; adding a scene builds a continuation; WithEnding builds an ending.
type Builder struct {
	character  *actor.Character
	scene      *scenario.Scene
	choiceID   string
	memory     *state.GameMemory
	endingType scenario.EndingType
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) WithCharacter(c *actor.Character) *Builder {
	b.character = c
	return b
}

// WithScene sets the scene the player is leaving.
func (b *Builder) WithScene(s *scenario.Scene) *Builder {
	b.scene = s
	return b
}

// WithChoice sets the id of the choice the player took.
func (b *Builder) WithChoice(id string) *Builder {
	b.choiceID = id
	return b
}

// WithMemory sets cross-turn memory. Without it continuations render empty memory.
func (b *Builder) WithMemory(m state.GameMemory) *Builder {
	b.memory = &m
	return b
}

// WithEnding requests an ending of the given type instead of a continuation.
func (b *Builder) WithEnding(t scenario.EndingType) *Builder {
	b.endingType = t
	return b
}

// Build renders the request.
func (b *Builder) Build() (Request, error) {
	if b.character == nil {
		return Request{}, fmt.Errorf("character is required")
	}

	req := Request{
		System:      b.systemPrompt(),
		Temperature: SceneTemperature,
		MaxTokens:   SceneMaxTokens,
	}

	switch {
	case b.endingType != "":
		req.Kind = KindEnding
		req.User = b.endingPrompt()
		req.Temperature = EndingTemperature
		req.MaxTokens = EndingMaxTokens
	case b.choiceID != "" && b.scene == nil:
		return Request{}, fmt.Errorf("scene is required")
	case b.scene != nil:
		req.Kind = KindContinuation
		req.User = b.nextScenePrompt()
	default:
		req.Kind = KindInitial
		req.User = b.initialPrompt()
	}
	return req, nil
}

func (b *Builder) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString(SystemPrompt)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, AssetPrompt,
		strings.Join(scenario.BackgroundAssets, ", "),
		strings.Join(scenario.AudioAssets, ", "))

	if b.scene != nil {
		background := b.scene.Metadata.Background()
		sounds := b.scene.Metadata.SoundNames()
		if background != "" || len(sounds) > 0 {
			sb.WriteString("\n\n")
			fmt.Fprintf(&sb, NoRepeatPrompt, orNone(background), orNone(strings.Join(sounds, ", ")))
		}
	}
	return sb.String()
}

func (b *Builder) initialPrompt() string {
	c := b.character
	return fmt.Sprintf(InitialScenePrompt,
		c.Name, c.Class, c.Background, toJSON(c.Stats), toJSON(inventory(c)))
}

func (b *Builder) nextScenePrompt() string {
	c := b.character
	choiceText := UnknownChoice
	if choice, ok := b.scene.FindChoice(b.choiceID); ok && choice.Text != "" {
		choiceText = choice.Text
	}

	memory := state.EmptyMemory()
	if b.memory != nil {
		memory = *b.memory
	}

	return fmt.Sprintf(NextScenePrompt,
		c.Name, c.Class, toJSON(c.Stats), toJSON(inventory(c)),
		b.scene.Description, choiceText,
		toJSON(memory.CharacterMemory), toJSON(memory.SceneMemory), toJSON(memory.WorldMemory))
}

func (b *Builder) endingPrompt() string {
	c := b.character
	return fmt.Sprintf(EndingScenePrompt,
		b.endingType, c.Name, c.Class, toJSON(c.Stats), c.Background, b.endingType)
}

func inventory(c *actor.Character) []actor.InventoryItem {
	if c.Inventory == nil {
		return []actor.InventoryItem{}
	}
	return c.Inventory
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// toJSON renders compact JSON. The inputs are plain data, so marshalling cannot fail.
func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// InitialScene builds the opening-scene request for a new character.
func InitialScene(c *actor.Character) (Request, error) {
	return New().WithCharacter(c).Build()
}

// NextScene builds the continuation request for the choice taken in scene.
func NextScene(c *actor.Character, scene *scenario.Scene, choiceID string, memory state.GameMemory) (Request, error) {
	if scene == nil {
		return Request{}, fmt.Errorf("scene is required")
	}
	return New().
		WithCharacter(c).
		WithScene(scene).
		WithChoice(choiceID).
		WithMemory(memory).
		Build()
}

// EndingScene builds the request for an ending of type t.
func EndingScene(c *actor.Character, t scenario.EndingType) (Request, error) {
	return New().WithCharacter(c).WithEnding(t).Build()
}
