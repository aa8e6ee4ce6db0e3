package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/storylines/internal/engine"
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

// maxBodyBytes caps request bodies; backgrounds are free text.
const maxBodyBytes = 64 << 10

type GameHandler struct {
	engine *engine.Engine
	log    *slog.Logger
	errors errorWriter
}

func NewGameHandler(e *engine.Engine, log *slog.Logger, production bool) *GameHandler {
	return &GameHandler{
		engine: e,
		log:    log,
		errors: errorWriter{log: log, production: production},
	}
}

// TurnResponse is returned by the start and next-scene routes.
type TurnResponse struct {
	Character *actor.Character `json:"character"`
	Scene     *scenario.Scene  `json:"scene"`
	GameState *state.GameState `json:"gameState"`
}

// NextSceneRequest accepts choiceId as a string or a number.
type NextSceneRequest struct {
	CharacterID    *int64          `json:"characterId"`
	ChoiceID       json.RawMessage `json:"choiceId"`
	CurrentSceneID *int64          `json:"currentSceneId"`
}

// Register mounts the game routes under /api.
func (h *GameHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/game/start", h.StartGame)
	mux.HandleFunc("POST /api/next-scene", h.NextScene)
	mux.HandleFunc("GET /api/get-character/{id}", h.GetCharacter)
	mux.HandleFunc("GET /api/game-state/{characterId}", h.GetGameState)
	mux.HandleFunc("GET /api/decision-tree/{characterId}", h.GetDecisionTree)
	mux.HandleFunc("GET /api/characters", h.ListCharacters)
	mux.HandleFunc("DELETE /api/characters/{id}", h.DeleteCharacter)
	mux.HandleFunc("GET /api/scene-stats/{characterId}", h.GetSceneStats)
	mux.HandleFunc("GET /api/world-flags", h.GetWorldFlags)
}

func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	var in engine.StartInput
	if !h.decode(w, r, &in) {
		return
	}
	turn, err := h.engine.StartGame(r.Context(), in)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, TurnResponse{Character: turn.Character, Scene: turn.Scene, GameState: turn.GameState})
}

func (h *GameHandler) NextScene(w http.ResponseWriter, r *http.Request) {
	var req NextSceneRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	turn, err := h.engine.Choose(r.Context(), in)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, TurnResponse{Character: turn.Character, Scene: turn.Scene, GameState: turn.GameState})
}

func (req NextSceneRequest) input() (engine.AdvanceInput, error) {
	if req.CharacterID == nil {
		return engine.AdvanceInput{}, &engine.ValidationError{Field: "characterId", Message: "characterId is required"}
	}
	if req.CurrentSceneID == nil {
		return engine.AdvanceInput{}, &engine.ValidationError{Field: "currentSceneId", Message: "currentSceneId is required"}
	}
	choiceID, err := scenario.DecodeChoiceID(req.ChoiceID)
	if err != nil {
		return engine.AdvanceInput{}, &engine.ValidationError{Field: "choiceId", Message: "choiceId must be a string or number"}
	}
	in := engine.AdvanceInput{CharacterID: *req.CharacterID, CurrentSceneID: *req.CurrentSceneID, ChoiceID: choiceID}
	return in, in.Validate()
}

func (h *GameHandler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.engine.Character(r.Context(), id)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"character": c})
}

func (h *GameHandler) GetGameState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "characterId")
	if !ok {
		return
	}
	gs, err := h.engine.GameState(r.Context(), id)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"gameState": gs})
}

func (h *GameHandler) GetDecisionTree(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "characterId")
	if !ok {
		return
	}
	dt, err := h.engine.DecisionTree(r.Context(), id)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"decisionTree": dt})
}

func (h *GameHandler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	chars, err := h.engine.Characters(r.Context())
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"characters": chars})
}

func (h *GameHandler) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.DeleteCharacter(r.Context(), id); err != nil {
		h.errors.write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) GetSceneStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "characterId")
	if !ok {
		return
	}
	stats, err := h.engine.SceneStatistics(r.Context(), id)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"statistics": stats})
}

func (h *GameHandler) GetWorldFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.engine.WorldFlags(r.Context())
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"worldFlags": flags})
}

// NotFound answers unmatched routes.
func (h *GameHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.errors.message(w, r, http.StatusNotFound, "Route not found")
}

func (h *GameHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Debug("Invalid request body", "error", err, "path", r.URL.Path)
		h.errors.message(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *GameHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		h.errors.message(w, r, http.StatusBadRequest, "Invalid character ID")
		return 0, false
	}
	return id, true
}
