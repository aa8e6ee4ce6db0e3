package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jwebster45206/storylines/internal/engine"
	"github.com/jwebster45206/storylines/internal/handlers"
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/state"
)

// apiClient talks to the Storylines HTTP API.
type apiClient struct {
	http    *http.Client
	baseURL string
}

// apiError is a non-2xx answer carrying the API error message.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Message)
}

func (c *apiClient) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) startGame(ctx context.Context, in engine.StartInput) (*handlers.TurnResponse, error) {
	var out handlers.TurnResponse
	if err := c.do(ctx, http.MethodPost, "/api/game/start", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) nextScene(ctx context.Context, characterID, sceneID int64, choiceID string) (*handlers.TurnResponse, error) {
	body := map[string]any{
		"characterId":    characterID,
		"currentSceneId": sceneID,
		"choiceId":       choiceID,
	}
	var out handlers.TurnResponse
	if err := c.do(ctx, http.MethodPost, "/api/next-scene", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) characters(ctx context.Context) ([]actor.Character, error) {
	var out struct {
		Characters []actor.Character `json:"characters"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/characters", nil, &out); err != nil {
		return nil, err
	}
	return out.Characters, nil
}

func (c *apiClient) gameState(ctx context.Context, characterID int64) (*state.GameState, error) {
	var out struct {
		GameState *state.GameState `json:"gameState"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/game-state/"+strconv.FormatInt(characterID, 10), nil, &out); err != nil {
		return nil, err
	}
	return out.GameState, nil
}

func (c *apiClient) deleteCharacter(ctx context.Context, characterID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/characters/"+strconv.FormatInt(characterID, 10), nil, nil)
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error.Message == "" {
			return &apiError{Status: resp.StatusCode, Message: string(body)}
		}
		return &apiError{Status: resp.StatusCode, Message: errorResp.Error.Message}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
