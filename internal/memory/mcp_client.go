package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

// Client implements Service by calling the memory tools of a connected MCP session.
type Client struct {
	session *mcp.ClientSession
}

var _ Service = (*Client)(nil)

func NewClient(session *mcp.ClientSession) *Client {
	return &Client{session: session}
}

// Dial connects to a memory server's streamable HTTP endpoint, e.g. http://host:3001/mcp.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: ServerName + "-client", Version: ServerVersion}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to memory server %s: %w", endpoint, err)
	}
	return NewClient(session), nil
}

// Close ends the underlying session.
func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) GetWorldFlags(ctx context.Context) ([]scenario.WorldFlag, error) {
	var flags []scenario.WorldFlag
	if err := c.call(ctx, ToolGetWorldFlags, nil, &flags); err != nil {
		return nil, err
	}
	if flags == nil {
		flags = []scenario.WorldFlag{}
	}
	return flags, nil
}

func (c *Client) SetWorldFlag(ctx context.Context, name string, value any) (*scenario.WorldFlag, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode flag value for %s: %w", name, err)
	}
	var flag scenario.WorldFlag
	args := map[string]any{"flagName": name, "value": string(raw)}
	if err := c.call(ctx, ToolSetWorldFlag, args, &flag); err != nil {
		return nil, err
	}
	return &flag, nil
}

func (c *Client) GetCharacterMemory(ctx context.Context, characterID int64) (state.CharacterMemory, error) {
	var mem state.CharacterMemory
	err := c.call(ctx, ToolGetCharacterMemory, map[string]any{"characterId": characterID}, &mem)
	return mem, err
}

func (c *Client) GetSceneMemory(ctx context.Context, characterID int64) (state.SceneMemory, error) {
	var mem state.SceneMemory
	err := c.call(ctx, ToolGetSceneMemory, map[string]any{"characterId": characterID}, &mem)
	return mem, err
}

func (c *Client) GetWorldMemory(ctx context.Context) (state.WorldMemory, error) {
	var mem state.WorldMemory
	err := c.call(ctx, ToolGetWorldMemory, nil, &mem)
	return mem, err
}

func (c *Client) LoadGameState(ctx context.Context, characterID int64) (state.GameMemory, error) {
	var mem state.GameMemory
	err := c.call(ctx, ToolLoadGameState, map[string]any{"characterId": characterID}, &mem)
	return mem, err
}

func (c *Client) SaveGameState(ctx context.Context, session state.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	args := map[string]any{"characterId": session.CharacterID, "session": string(raw)}
	return c.call(ctx, ToolSaveGameState, args, nil)
}

// call invokes a tool and decodes its JSON text result into out. A nil out discards it.
func (c *Client) call(ctx context.Context, tool string, args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return fmt.Errorf("call %s: %w", tool, err)
	}

	text, err := resultText(res)
	if res.IsError {
		if err != nil {
			return fmt.Errorf("%s failed", tool)
		}
		return fmt.Errorf("%s failed: %s", tool, text)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode %s result: %w", tool, err)
	}
	return nil
}

func resultText(res *mcp.CallToolResult) (string, error) {
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			return tc.Text, nil
		}
	}
	return "", errors.New("result has no text content")
}
