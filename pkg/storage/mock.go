package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

// MockRepository is an in-memory Repository, FlagStore and SessionStore for testing and
// for running without a database. Values are copied on the way in and out.
type MockRepository struct {
	mu         sync.RWMutex
	characters map[int64]*actor.Character
	scenes     map[int64]*scenario.Scene
	flags      map[string]scenario.WorldFlag
	sessions   map[int64]state.Session
	nextID     int64
	pingError  error
	failures   map[string]error

	// Calls records every method invoked, in order.
	Calls []string
}

// Ensure MockRepository implements the storage interfaces
var (
	_ Repository   = (*MockRepository)(nil)
	_ FlagStore    = (*MockRepository)(nil)
	_ SessionStore = (*MockRepository)(nil)
)

// NewMockRepository creates an empty mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		characters: make(map[int64]*actor.Character),
		scenes:     make(map[int64]*scenario.Scene),
		flags:      make(map[string]scenario.WorldFlag),
		sessions:   make(map[int64]state.Session),
		failures:   make(map[string]error),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockRepository) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// FailOn makes every later call of the named method return err. A nil err clears it.
func (m *MockRepository) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// CallCount returns how many times method was invoked.
func (m *MockRepository) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.Calls {
		if c == method {
			n++
		}
	}
	return n
}

// enter records the call and returns the configured failure. Callers hold m.mu.
func (m *MockRepository) enter(method string) error {
	m.Calls = append(m.Calls, method)
	return m.failures[method]
}

func (m *MockRepository) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockRepository) Close() error {
	return nil
}

func cloneCharacter(c *actor.Character) *actor.Character {
	out := *c
	out.Inventory = slices.Clone(c.Inventory)
	if out.Inventory == nil {
		out.Inventory = []actor.InventoryItem{}
	}
	return &out
}

func cloneScene(s *scenario.Scene) *scenario.Scene {
	out := *s
	out.Choices = slices.Clone(s.Choices)
	out.Metadata.VisualAssets = slices.Clone(s.Metadata.VisualAssets)
	out.Metadata.AudioAssets = slices.Clone(s.Metadata.AudioAssets)
	out.Metadata.ParticleEffects = slices.Clone(s.Metadata.ParticleEffects)
	out.Metadata.EnsureLists()
	if out.Choices == nil {
		out.Choices = []scenario.Choice{}
	}
	return &out
}

func (m *MockRepository) CreateCharacter(ctx context.Context, c *actor.Character) (*actor.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateCharacter"); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("character cannot be nil")
	}

	m.nextID++
	now := time.Now().UTC()
	stored := cloneCharacter(c)
	stored.ID = m.nextID
	stored.CreatedAt, stored.UpdatedAt = now, now
	m.characters[stored.ID] = stored
	return cloneCharacter(stored), nil
}

func (m *MockRepository) GetCharacter(ctx context.Context, id int64) (*actor.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetCharacter"); err != nil {
		return nil, err
	}
	c, ok := m.characters[id]
	if !ok {
		return nil, fmt.Errorf("character %d: %w", id, ErrNotFound)
	}
	return cloneCharacter(c), nil
}

func (m *MockRepository) ListCharacters(ctx context.Context) ([]actor.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListCharacters"); err != nil {
		return nil, err
	}
	out := make([]actor.Character, 0, len(m.characters))
	for _, c := range m.characters {
		out = append(out, *cloneCharacter(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MockRepository) DeleteCharacter(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteCharacter"); err != nil {
		return err
	}
	if _, ok := m.characters[id]; !ok {
		return fmt.Errorf("character %d: %w", id, ErrNotFound)
	}
	delete(m.characters, id)
	delete(m.sessions, id)
	for sid, s := range m.scenes {
		if s.CharacterID == id {
			delete(m.scenes, sid)
		}
	}
	return nil
}

func (m *MockRepository) UpdateCharacterStats(ctx context.Context, id int64, u actor.StatUpdates) (*actor.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateCharacterStats"); err != nil {
		return nil, err
	}
	c, ok := m.characters[id]
	if !ok {
		return nil, fmt.Errorf("character %d: %w", id, ErrNotFound)
	}
	c.Stats.Apply(u)
	c.UpdatedAt = time.Now().UTC()
	return cloneCharacter(c), nil
}

func (m *MockRepository) UpdateInventory(ctx context.Context, id int64, items []actor.InventoryItem) (*actor.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateInventory"); err != nil {
		return nil, err
	}
	c, ok := m.characters[id]
	if !ok {
		return nil, fmt.Errorf("character %d: %w", id, ErrNotFound)
	}
	c.Inventory = slices.Clone(items)
	c.UpdatedAt = time.Now().UTC()
	return cloneCharacter(c), nil
}

func (m *MockRepository) CreateScene(ctx context.Context, s *scenario.Scene) (*scenario.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateScene"); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("scene cannot be nil")
	}
	if _, ok := m.characters[s.CharacterID]; !ok {
		return nil, fmt.Errorf("character %d: %w", s.CharacterID, ErrNotFound)
	}
	for _, existing := range m.scenes {
		if existing.CharacterID == s.CharacterID && existing.SceneNumber == s.SceneNumber {
			return nil, fmt.Errorf("scene %d for character %d: %w", s.SceneNumber, s.CharacterID, ErrConflict)
		}
	}

	m.nextID++
	stored := cloneScene(s)
	stored.ID = m.nextID
	stored.CreatedAt = time.Now().UTC()
	m.scenes[stored.ID] = stored
	return cloneScene(stored), nil
}

func (m *MockRepository) GetScene(ctx context.Context, id int64) (*scenario.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetScene"); err != nil {
		return nil, err
	}
	s, ok := m.scenes[id]
	if !ok {
		return nil, fmt.Errorf("scene %d: %w", id, ErrNotFound)
	}
	return cloneScene(s), nil
}

func (m *MockRepository) history(characterID int64) []scenario.Scene {
	var out []scenario.Scene
	for _, s := range m.scenes {
		if s.CharacterID == characterID {
			out = append(out, *cloneScene(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out
}

func (m *MockRepository) GetSceneHistory(ctx context.Context, characterID int64) ([]scenario.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetSceneHistory"); err != nil {
		return nil, err
	}
	out := m.history(characterID)
	if out == nil {
		out = []scenario.Scene{}
	}
	return out, nil
}

func (m *MockRepository) GetLatestScene(ctx context.Context, characterID int64) (*scenario.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetLatestScene"); err != nil {
		return nil, err
	}
	h := m.history(characterID)
	if len(h) == 0 {
		return nil, fmt.Errorf("latest scene for character %d: %w", characterID, ErrNotFound)
	}
	return &h[len(h)-1], nil
}

func (m *MockRepository) SetChosenChoice(ctx context.Context, sceneID int64, choiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SetChosenChoice"); err != nil {
		return err
	}
	s, ok := m.scenes[sceneID]
	if !ok {
		return fmt.Errorf("scene %d: %w", sceneID, ErrNotFound)
	}
	s.ChosenChoiceID = choiceID
	return nil
}

func (m *MockRepository) SceneStatistics(ctx context.Context, characterID int64) (SceneStatistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SceneStatistics"); err != nil {
		return SceneStatistics{}, err
	}
	return ComputeStatistics(m.history(characterID)), nil
}

func (m *MockRepository) ListFlags(ctx context.Context) ([]scenario.WorldFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListFlags"); err != nil {
		return nil, err
	}
	out := make([]scenario.WorldFlag, 0, len(m.flags))
	for _, f := range m.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockRepository) SetFlag(ctx context.Context, name string, value any) (*scenario.WorldFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SetFlag"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("flag name cannot be empty")
	}
	now := time.Now().UTC()
	f, ok := m.flags[name]
	if !ok {
		f = scenario.WorldFlag{Name: name, CreatedAt: now}
	}
	f.Value = value
	f.UpdatedAt = now
	m.flags[name] = f
	return &f, nil
}

func (m *MockRepository) SaveSession(ctx context.Context, s state.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SaveSession"); err != nil {
		return err
	}
	m.sessions[s.CharacterID] = s
	return nil
}

func (m *MockRepository) LoadSession(ctx context.Context, characterID int64) (*state.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LoadSession"); err != nil {
		return nil, err
	}
	s, ok := m.sessions[characterID]
	if !ok {
		return nil, fmt.Errorf("session for character %d: %w", characterID, ErrNotFound)
	}
	return &s, nil
}
