package tree

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storylines/pkg/scenario"
)

func scene(id int64, number int, choiceIDs ...string) scenario.Scene {
	s := scenario.Scene{ID: id, CharacterID: 1, SceneNumber: number, Description: "Scene description"}
	for _, c := range choiceIDs {
		s.Choices = append(s.Choices, scenario.Choice{ID: c, Text: "Do " + c})
	}
	return s
}

func countEdges(t DecisionTree, typ EdgeType) int {
	n := 0
	for _, e := range t.Edges {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func findEdge(t DecisionTree, id string) (Edge, bool) {
	for _, e := range t.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

func TestBuild_Counts(t *testing.T) {
	tests := []struct {
		name    string
		history []scenario.Scene
		nodes   int
		choices int
		conts   int
	}{
		{
			name:    "empty history",
			history: nil,
		},
		{
			name:    "single scene",
			history: []scenario.Scene{scene(1, 1, "a", "b", "c")},
			nodes:   4,
			choices: 3,
		},
		{
			name: "three scenes",
			history: []scenario.Scene{
				scene(1, 1, "a", "b", "c"),
				scene(2, 2, "a", "b"),
				scene(3, 3, "x", "y", "z", "w"),
			},
			nodes:   3 + 9,
			choices: 9,
			conts:   2,
		},
		{
			name: "scene without choices has no continuation",
			history: []scenario.Scene{
				scene(1, 1),
				scene(2, 2, "a"),
			},
			nodes:   3,
			choices: 1,
			conts:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Build(tt.history)
			assert.Len(t, tr.Nodes, tt.nodes)
			assert.Equal(t, tt.choices, countEdges(tr, EdgeSceneToChoice))
			assert.Equal(t, tt.conts, countEdges(tr, EdgeChoiceToScene))
			assert.NotNil(t, tr.Nodes)
			assert.NotNil(t, tr.Edges)
		})
	}
}

func TestBuild_ContinuationFromFirstChoice(t *testing.T) {
	tr := Build([]scenario.Scene{scene(10, 1, "left", "right"), scene(11, 2, "on")})

	e, ok := findEdge(tr, "edge-choice-10-scene-11")
	require.True(t, ok)
	assert.Equal(t, "choice-10-left", e.Source)
	assert.Equal(t, "scene-11", e.Target)
}

func TestBuild_ContinuationFromChosenChoice(t *testing.T) {
	first := scene(10, 1, "left", "right")
	first.ChosenChoiceID = "right"
	tr := Build([]scenario.Scene{first, scene(11, 2, "on")})

	e, ok := findEdge(tr, "edge-choice-10-scene-11")
	require.True(t, ok)
	assert.Equal(t, "choice-10-right", e.Source)
}

func TestBuild_UnknownChosenChoiceFallsBack(t *testing.T) {
	first := scene(10, 1, "left", "right")
	first.ChosenChoiceID = "gone"
	tr := Build([]scenario.Scene{first, scene(11, 2, "on")})

	e, ok := findEdge(tr, "edge-choice-10-scene-11")
	require.True(t, ok)
	assert.Equal(t, "choice-10-left", e.Source)
}

func TestBuild_NodeData(t *testing.T) {
	s := scene(7, 4, "a", "b", "c")
	s.Description = strings.Repeat("d", 150)
	s.Choices[1].Text = strings.Repeat("c", 60)
	s.IsEnding = true
	s.EndingType = scenario.EndingVictory

	tr := Build([]scenario.Scene{scene(6, 3, "z"), s})

	var sceneNode, choiceNode Node
	for _, n := range tr.Nodes {
		switch n.ID {
		case "scene-7":
			sceneNode = n
		case "choice-7-b":
			choiceNode = n
		}
	}

	data, ok := sceneNode.Data.(SceneData)
	require.True(t, ok)
	assert.Equal(t, "Scene 4", data.Label)
	assert.Equal(t, strings.Repeat("d", 100)+"...", data.Description)
	assert.True(t, data.IsEnding)
	assert.Equal(t, scenario.EndingVictory, data.EndingType)
	assert.Equal(t, Position{X: 200, Y: 0}, sceneNode.Position)

	cdata, ok := choiceNode.Data.(ChoiceData)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("c", 50)+"...", cdata.Label)
	assert.Equal(t, "b", cdata.ChoiceID)
	assert.NotNil(t, cdata.Consequences)
	// Second of three choices sits at 200 + (1 - 1.5) * 100.
	assert.Equal(t, Position{X: 150, Y: 150}, choiceNode.Position)
}

func TestBuild_JSONShape(t *testing.T) {
	tr := Build([]scenario.Scene{scene(1, 1, "a")})
	data, err := json.Marshal(tr)
	require.NoError(t, err)

	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded["nodes"], 2)
	assert.Equal(t, "scene", decoded["nodes"][0]["type"])
	assert.Equal(t, []any{}, decoded["nodes"][1]["data"].(map[string]any)["consequences"])
	assert.Equal(t, "edge-1-a", decoded["edges"][0]["id"])
}
