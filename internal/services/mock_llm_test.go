package services

import (
	"context"
	"testing"

	"github.com/jwebster45206/storylines/pkg/prompts"
	"github.com/jwebster45206/storylines/pkg/response"
)

func TestMockLLM_DefaultsNormalize(t *testing.T) {
	mock := NewMockLLM()

	out, err := mock.Generate(context.Background(), prompts.Request{Kind: prompts.KindContinuation})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	scene := response.Normalize(out)
	if scene.Fallback {
		t.Fatalf("Default scene fell back: %v", scene.Err)
	}
	if len(scene.Result.Choices) != 2 || scene.Result.IsEnding {
		t.Errorf("Unexpected default scene: %+v", scene.Result)
	}

	out, err = mock.Generate(context.Background(), prompts.Request{Kind: prompts.KindEnding})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	ending := response.Normalize(out)
	if ending.Fallback || !ending.Result.IsEnding {
		t.Errorf("Expected ending scene, got %+v (err %v)", ending.Result, ending.Err)
	}

	kinds := mock.Kinds()
	if len(kinds) != 2 || kinds[0] != prompts.KindContinuation || kinds[1] != prompts.KindEnding {
		t.Errorf("Unexpected recorded kinds: %v", kinds)
	}
}

func TestMockLLM_GenerateFunc(t *testing.T) {
	mock := NewMockLLM()
	mock.GenerateFunc = func(ctx context.Context, req prompts.Request) (string, error) {
		return "I cannot comply.", nil
	}

	out, _ := mock.Generate(context.Background(), prompts.Request{})
	if out != "I cannot comply." {
		t.Errorf("Expected scripted output, got %q", out)
	}
	if mock.CallCount() != 1 {
		t.Errorf("Expected 1 call, got %d", mock.CallCount())
	}
}

func TestMockLLM_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewMockLLM().Generate(ctx, prompts.Request{}); err == nil {
		t.Error("Expected error for canceled context")
	}
}
