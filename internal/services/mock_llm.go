package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/storylines/pkg/prompts"
)

// MockSceneJSON is a well-formed continuation the mock returns by default.
const MockSceneJSON = `{
  "sceneText": "The road bends toward a quiet village.",
  "choices": [
    {"id": "1", "text": "Enter the village"},
    {"id": "2", "text": "Make camp outside"}
  ],
  "visualMetadata": {
    "visualAssets": [{"type": "background", "name": "village_square", "path": "/assets/backgrounds/village_square.jpg"}],
    "audioAssets": [{"type": "ambient", "name": "forest_sounds", "path": "/assets/sounds/forest_sounds.mp3", "volume": 0.5, "loop": true}],
    "particleEffects": [],
    "mood": "peaceful",
    "timeOfDay": "evening",
    "weather": "clear"
  },
  "isEnding": false
}`

// MockEndingJSON is returned by default for ending requests.
const MockEndingJSON = `{
  "sceneText": "The journey comes to a close.",
  "choices": [],
  "visualMetadata": {
    "visualAssets": [], "audioAssets": [], "particleEffects": [],
    "mood": "peaceful", "timeOfDay": "dawn", "weather": "clear"
  },
  "isEnding": true,
  "endingType": "neutral"
}`

// MockLLM is a scripted LLMService for tests and the "mock" provider.
type MockLLM struct {
	GenerateFunc func(ctx context.Context, req prompts.Request) (string, error)

	// Track calls for testing
	Calls []prompts.Request

	mu sync.Mutex // protects all fields above
}

var _ LLMService = (*MockLLM)(nil)

func NewMockLLM() *MockLLM {
	return &MockLLM{Calls: make([]prompts.Request, 0)}
}

func (m *MockLLM) Name() string { return "mock" }

func (m *MockLLM) Generate(ctx context.Context, req prompts.Request) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Kind == prompts.KindEnding {
		return MockEndingJSON, nil
	}
	return MockSceneJSON, nil
}

// CallCount returns how many requests the mock has received.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Kinds returns the kind of each received request in order.
func (m *MockLLM) Kinds() []prompts.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]prompts.Kind, len(m.Calls))
	for i, c := range m.Calls {
		kinds[i] = c.Kind
	}
	return kinds
}
