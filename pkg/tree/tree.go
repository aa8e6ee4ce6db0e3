// Package tree derives a node/edge graph from a character's linear scene history for
// visualization. It is never consulted for gameplay.
package tree

import (
	"fmt"

	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/textfilter"
)

type NodeType string

const (
	NodeScene  NodeType = "scene"
	NodeChoice NodeType = "choice"
)

type EdgeType string

const (
	EdgeSceneToChoice EdgeType = "scene-to-choice"
	EdgeChoiceToScene EdgeType = "choice-to-scene"
)

const (
	sceneSpacing  = 200
	choiceSpacing = 100
	choiceRow     = 150

	descriptionExcerpt = 100
	labelExcerpt       = 50
)

// DecisionTree is the graph returned by Build.
type DecisionTree struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a scene or a choice. Data is SceneData or ChoiceData depending on Type.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Data     any      `json:"data"`
	Position Position `json:"position"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SceneData struct {
	Label       string              `json:"label"`
	Description string              `json:"description"`
	SceneNumber int                 `json:"sceneNumber"`
	IsEnding    bool                `json:"isEnding"`
	EndingType  scenario.EndingType `json:"endingType,omitempty"`
}

type ChoiceData struct {
	Label        string                 `json:"label"`
	ChoiceID     string                 `json:"choiceId"`
	Consequences []scenario.Consequence `json:"consequences"`
}

type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
}

func SceneNodeID(sceneID int64) string { return fmt.Sprintf("scene-%d", sceneID) }

func ChoiceNodeID(sceneID int64, choiceID string) string {
	return fmt.Sprintf("choice-%d-%s", sceneID, choiceID)
}

// Build returns the decision tree for history, which must be ordered by scene number.
//
// Each scene yields one node plus one node and one scene-to-choice edge per choice. Adjacent
// scenes are joined by a choice-to-scene edge drawn from the choice recorded as taken, or from
// the first choice when none was recorded. A scene without choices has no outgoing edge.
func Build(history []scenario.Scene) DecisionTree {
	t := DecisionTree{Nodes: []Node{}, Edges: []Edge{}}

	for i, scene := range history {
		x := float64(i * sceneSpacing)
		t.Nodes = append(t.Nodes, Node{
			ID:   SceneNodeID(scene.ID),
			Type: NodeScene,
			Data: SceneData{
				Label:       fmt.Sprintf("Scene %d", scene.SceneNumber),
				Description: textfilter.Excerpt(scene.Description, descriptionExcerpt),
				SceneNumber: scene.SceneNumber,
				IsEnding:    scene.IsEnding,
				EndingType:  scene.EndingType,
			},
			Position: Position{X: x, Y: 0},
		})

		half := float64(len(scene.Choices)) / 2
		for ci, choice := range scene.Choices {
			consequences := choice.Consequences
			if consequences == nil {
				consequences = []scenario.Consequence{}
			}
			nodeID := ChoiceNodeID(scene.ID, choice.ID)
			t.Nodes = append(t.Nodes, Node{
				ID:   nodeID,
				Type: NodeChoice,
				Data: ChoiceData{
					Label:        textfilter.Excerpt(choice.Text, labelExcerpt),
					ChoiceID:     choice.ID,
					Consequences: consequences,
				},
				Position: Position{X: x + (float64(ci)-half)*choiceSpacing, Y: choiceRow},
			})
			t.Edges = append(t.Edges, Edge{
				ID:     fmt.Sprintf("edge-%d-%s", scene.ID, choice.ID),
				Source: SceneNodeID(scene.ID),
				Target: nodeID,
				Type:   EdgeSceneToChoice,
			})
		}
	}

	for i := 0; i+1 < len(history); i++ {
		cur, next := history[i], history[i+1]
		taken, ok := takenChoice(cur)
		if !ok {
			continue
		}
		t.Edges = append(t.Edges, Edge{
			ID:     fmt.Sprintf("edge-choice-%d-scene-%d", cur.ID, next.ID),
			Source: ChoiceNodeID(cur.ID, taken.ID),
			Target: SceneNodeID(next.ID),
			Type:   EdgeChoiceToScene,
		})
	}
	return t
}

func takenChoice(s scenario.Scene) (*scenario.Choice, bool) {
	if s.ChosenChoiceID != "" {
		if c, ok := s.FindChoice(s.ChosenChoiceID); ok {
			return c, true
		}
	}
	if len(s.Choices) == 0 {
		return nil, false
	}
	return &s.Choices[0], true
}
