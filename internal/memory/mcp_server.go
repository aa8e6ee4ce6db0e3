package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jwebster45206/storylines/pkg/state"
)

const (
	ServerName    = "storylines-memory"
	ServerVersion = "1.0.0"

	ToolGetWorldFlags      = "getWorldFlags"
	ToolSetWorldFlag       = "setWorldFlag"
	ToolGetCharacterMemory = "getCharacterMemory"
	ToolGetSceneMemory     = "getSceneMemory"
	ToolGetWorldMemory     = "getWorldMemory"
	ToolLoadGameState      = "loadGameState"
	ToolSaveGameState      = "saveGameState"
)

// CharacterInput selects a character.
type CharacterInput struct {
	CharacterID int64 `json:"characterId" jsonschema:"id of the character"`
}

// SetWorldFlagInput carries the flag value as JSON text so any value type round-trips.
type SetWorldFlagInput struct {
	FlagName string `json:"flagName" jsonschema:"name of the flag"`
	Value    string `json:"value" jsonschema:"JSON encoded flag value"`
}

// SaveGameStateInput carries a state.Session as JSON text.
type SaveGameStateInput struct {
	CharacterID int64  `json:"characterId" jsonschema:"id of the character"`
	Session     string `json:"session" jsonschema:"JSON encoded session snapshot"`
}

// NewMCPServer exposes svc as MCP tools. Every tool answers with one JSON text block.
func NewMCPServer(svc Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{Name: ToolGetWorldFlags, Description: "Get all world flags"},
		func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
			flags, err := svc.GetWorldFlags(ctx)
			if err != nil {
				return nil, nil, err
			}
			return jsonResult(flags)
		})

	mcp.AddTool(server, &mcp.Tool{Name: ToolSetWorldFlag, Description: "Set a world flag"},
		func(ctx context.Context, _ *mcp.CallToolRequest, in SetWorldFlagInput) (*mcp.CallToolResult, any, error) {
			var value any
			if err := json.Unmarshal([]byte(in.Value), &value); err != nil {
				return nil, nil, fmt.Errorf("value for %s is not JSON: %w", in.FlagName, err)
			}
			flag, err := svc.SetWorldFlag(ctx, in.FlagName, value)
			if err != nil {
				return nil, nil, err
			}
			return jsonResult(flag)
		})

	mcp.AddTool(server, &mcp.Tool{Name: ToolGetCharacterMemory, Description: "Get character memory"},
		func(ctx context.Context, _ *mcp.CallToolRequest, in CharacterInput) (*mcp.CallToolResult, any, error) {
			mem, err := svc.GetCharacterMemory(ctx, in.CharacterID)
			if err != nil {
				return nil, nil, err
			}
			return jsonResult(mem)
		})

	mcp.AddTool(server, &mcp.Tool{Name: ToolGetSceneMemory, Description: "Get the most recent scenes of a character"},
		func(ctx context.Context, _ *mcp.CallToolRequest, in CharacterInput) (*mcp.CallToolResult, any, error) {
			mem, err := svc.GetSceneMemory(ctx, in.CharacterID)
			if err != nil {
				return nil, nil, err
			}
			return jsonResult(mem)
		})

	mcp.AddTool(server, &mcp.Tool{Name: ToolGetWorldMemory, Description: "Get world memory"},
		func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
			mem, err := svc.GetWorldMemory(ctx)
			if err != nil {
				return nil, nil, err
			}
			return jsonResult(mem)
		})

	mcp.AddTool(server, &mcp.Tool{Name: ToolLoadGameState, Description: "Load game state for a character"},
		func(ctx context.Context, _ *mcp.CallToolRequest, in CharacterInput) (*mcp.CallToolResult, any, error) {
			mem, err := svc.LoadGameState(ctx, in.CharacterID)
			if err != nil {
				return nil, nil, err
			}
			return jsonResult(mem)
		})

	mcp.AddTool(server, &mcp.Tool{Name: ToolSaveGameState, Description: "Save the latest turn snapshot of a character"},
		func(ctx context.Context, _ *mcp.CallToolRequest, in SaveGameStateInput) (*mcp.CallToolResult, any, error) {
			var session state.Session
			if err := json.Unmarshal([]byte(in.Session), &session); err != nil {
				return nil, nil, fmt.Errorf("session is not JSON: %w", err)
			}
			session.CharacterID = in.CharacterID
			if err := svc.SaveGameState(ctx, session); err != nil {
				return nil, nil, err
			}
			return jsonResult(map[string]any{"success": true, "message": "Game state saved"})
		})

	return server
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
