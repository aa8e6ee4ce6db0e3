package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storylines/internal/engine"
	"github.com/jwebster45206/storylines/internal/memory"
	"github.com/jwebster45206/storylines/internal/services"
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/storage"
	"github.com/jwebster45206/storylines/pkg/tree"
)

type testAPI struct {
	handler http.Handler
	repo    *storage.MockRepository
}

func newTestAPI(t *testing.T, production bool) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := storage.NewMockRepository()
	e := engine.New(repo, memory.NewStore(repo, repo, repo, logger), services.NewMockLLM(), nil, engine.Options{}, logger)
	router := NewRouter(NewGameHandler(e, logger, production), NewHealthHandler(nil, false, logger))
	return &testAPI{handler: router, repo: repo}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, rr.Code, "body: %s", rr.Body.String())
	body := decodeBody[ErrorResponse](t, rr)
	assert.Equal(t, status, body.Error.StatusCode)
	assert.Contains(t, body.Error.Message, message)
	assert.NotEmpty(t, body.Error.Timestamp)
	assert.NotEmpty(t, body.Error.Path)
}

func startGame(t *testing.T, a *testAPI) TurnResponse {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/game/start",
		`{"characterName":"Bran","characterClass":"warrior","characterBackground":"A smith's son"}`)
	require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())
	return decodeBody[TurnResponse](t, rr)
}

func TestGameHandler_StartGame(t *testing.T) {
	a := newTestAPI(t, false)
	resp := startGame(t, a)

	assert.Equal(t, "Bran", resp.Character.Name)
	assert.Equal(t, 1, resp.Scene.SceneNumber)
	assert.Len(t, resp.GameState.SceneHistory, 1)
	assert.Equal(t, 1, resp.GameState.GameProgress.TotalScenes)
}

func TestGameHandler_StartGame_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `{"characterName":`, "Invalid request body"},
		{"missing name", `{"characterClass":"mage","characterBackground":"x"}`, "characterName is required"},
		{"name too long", `{"characterName":"` + strings.Repeat("a", 51) + `","characterClass":"mage","characterBackground":"x"}`, "at most 50"},
		{"class too long", `{"characterName":"Iris","characterClass":"` + strings.Repeat("c", 60) + `","characterBackground":"x"}`, "characterClass must be at most 50"},
		{"missing background", `{"characterName":"Iris","characterClass":"mage"}`, "characterBackground is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t, false)
			rr := a.do(t, http.MethodPost, "/api/game/start", tt.body)
			assertError(t, rr, http.StatusBadRequest, tt.message)
			assert.Zero(t, a.repo.CallCount("CreateCharacter"))
		})
	}
}

func TestGameHandler_NextScene(t *testing.T) {
	a := newTestAPI(t, false)
	start := startGame(t, a)

	// Numeric choice ids are accepted
	body := `{"characterId":` + itoa(start.Character.ID) + `,"choiceId":1,"currentSceneId":` + itoa(start.Scene.ID) + `}`
	rr := a.do(t, http.MethodPost, "/api/next-scene", body)
	require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())

	resp := decodeBody[TurnResponse](t, rr)
	assert.Equal(t, 2, resp.Scene.SceneNumber)
	assert.Len(t, resp.GameState.SceneHistory, 2)
	assert.Equal(t, "1", resp.GameState.SceneHistory[0].ChosenChoiceID)

	// Replaying the old scene is rejected
	rr = a.do(t, http.MethodPost, "/api/next-scene", body)
	assertError(t, rr, http.StatusConflict, "not the latest scene")
}

func TestGameHandler_NextScene_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing character", `{"choiceId":"1","currentSceneId":2}`, http.StatusBadRequest, "characterId is required"},
		{"missing scene", `{"characterId":1,"choiceId":"1"}`, http.StatusBadRequest, "currentSceneId is required"},
		{"missing choice", `{"characterId":1,"currentSceneId":2}`, http.StatusBadRequest, "choiceId is required"},
		{"object choice", `{"characterId":1,"choiceId":{},"currentSceneId":2}`, http.StatusBadRequest, "choiceId must be"},
		{"string character id", `{"characterId":"1","choiceId":"1","currentSceneId":2}`, http.StatusBadRequest, "Invalid request body"},
		{"unknown character", `{"characterId":99,"choiceId":"1","currentSceneId":2}`, http.StatusNotFound, "character not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t, false)
			rr := a.do(t, http.MethodPost, "/api/next-scene", tt.body)
			assertError(t, rr, tt.status, tt.message)
		})
	}
}

func TestGameHandler_NextScene_RequirementNotMet(t *testing.T) {
	a := newTestAPI(t, false)
	ctx := context.Background()
	c, err := a.repo.CreateCharacter(ctx, actor.NewCharacter("Iris", "mage", "Tower"))
	require.NoError(t, err)
	scene, err := a.repo.CreateScene(ctx, &scenario.Scene{
		CharacterID: c.ID,
		SceneNumber: 1,
		Description: "A sealed door",
		Choices: []scenario.Choice{{ID: "1", Text: "Use the key", Requirements: []scenario.Requirement{
			{Type: scenario.RequirementItem, Target: "Brass Key"},
		}}},
	})
	require.NoError(t, err)

	rr := a.do(t, http.MethodPost, "/api/next-scene",
		`{"characterId":`+itoa(c.ID)+`,"choiceId":"1","currentSceneId":`+itoa(scene.ID)+`}`)
	assertError(t, rr, http.StatusUnprocessableEntity, "Requires item: Brass Key")
}

func TestGameHandler_Reads(t *testing.T) {
	a := newTestAPI(t, false)
	start := startGame(t, a)
	id := itoa(start.Character.ID)

	rr := a.do(t, http.MethodGet, "/api/get-character/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	char := decodeBody[struct {
		Character actor.Character `json:"character"`
	}](t, rr)
	assert.Equal(t, "Bran", char.Character.Name)

	rr = a.do(t, http.MethodGet, "/api/game-state/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"gameProgress"`)

	rr = a.do(t, http.MethodGet, "/api/decision-tree/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	dt := decodeBody[struct {
		DecisionTree tree.DecisionTree `json:"decisionTree"`
	}](t, rr)
	assert.Len(t, dt.DecisionTree.Nodes, 3)
	assert.Len(t, dt.DecisionTree.Edges, 2)

	rr = a.do(t, http.MethodGet, "/api/scene-stats/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[struct {
		Statistics storage.SceneStatistics `json:"statistics"`
	}](t, rr)
	assert.Equal(t, 1, stats.Statistics.TotalScenes)

	rr = a.do(t, http.MethodGet, "/api/world-flags", "")
	require.Equal(t, http.StatusOK, rr.Code)
	flags := decodeBody[struct {
		WorldFlags []scenario.WorldFlag `json:"worldFlags"`
	}](t, rr)
	assert.Equal(t, true, scenario.FlagMap(flags.WorldFlags)[scenario.FlagGameStarted])

	rr = a.do(t, http.MethodGet, "/api/characters", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"Bran"`)

	rr = a.do(t, http.MethodDelete, "/api/characters/"+id, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = a.do(t, http.MethodGet, "/api/get-character/"+id, "")
	assertError(t, rr, http.StatusNotFound, "character not found")
}

func TestGameHandler_InvalidIDs(t *testing.T) {
	a := newTestAPI(t, false)
	for _, path := range []string{"/api/get-character/abc", "/api/game-state/0", "/api/decision-tree/-4", "/api/scene-stats/1.5"} {
		t.Run(path, func(t *testing.T) {
			rr := a.do(t, http.MethodGet, path, "")
			assertError(t, rr, http.StatusBadRequest, "Invalid character ID")
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	a := newTestAPI(t, false)
	rr := a.do(t, http.MethodGet, "/api/nope", "")
	assertError(t, rr, http.StatusNotFound, "Route not found")

	body := decodeBody[ErrorResponse](t, rr)
	assert.Equal(t, "/api/nope", body.Error.Path)

	rr = a.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGameHandler_InternalErrors(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		message    string
	}{
		{"development shows detail", false, "disk on fire"},
		{"production hides detail", true, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t, tt.production)
			a.repo.FailOn("ListCharacters", errors.New("disk on fire"))

			rr := a.do(t, http.MethodGet, "/api/characters", "")
			assertError(t, rr, http.StatusInternalServerError, tt.message)
			if tt.production {
				assert.NotContains(t, rr.Body.String(), "disk on fire")
			}
		})
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
