package runner

import (
	"time"
)

// TestSuite defines a complete playthrough scenario.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name        string        `json:"name"`
	Character   CharacterSeed `json:"character,omitempty"`    // Used for regular tests
	ExpectStart Expectations  `json:"expect_start,omitempty"` // Checked against the opening turn
	Steps       []TestStep    `json:"steps,omitempty"`        // Used for regular tests
	Cases       []string      `json:"cases,omitempty"`        // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// CharacterSeed is the character created at the start of a suite.
type CharacterSeed struct {
	Name       string `json:"name"`
	Class      string `json:"class"`
	Background string `json:"background"`
}

// TestStep takes one choice and checks the resulting turn.
// Choice is sent as-is; when empty, the choice at ChoiceIndex (default 0) of the current scene is taken.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Choice       string       `json:"choice,omitempty"`
	ChoiceIndex  int          `json:"choice_index,omitempty"`
	Stale        bool         `json:"stale,omitempty"` // Resubmit against the previous scene
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a turn.
type Expectations struct {
	// Rejected turns
	Status        *int   `json:"status,omitempty"` // Expected HTTP status; 200 when unset
	ErrorContains string `json:"error_contains,omitempty"`

	// Game state
	SceneNumber *int              `json:"scene_number,omitempty"`
	TotalScenes *int              `json:"total_scenes,omitempty"`
	IsEnding    *bool             `json:"is_ending,omitempty"`
	EndingType  *string           `json:"ending_type,omitempty"`
	MinChoices  *int              `json:"min_choices,omitempty"`
	Inventory   []string          `json:"inventory,omitempty"` // Items that must be held
	Stats       map[string]int    `json:"stats,omitempty"`
	Flags       map[string]string `json:"flags,omitempty"` // Compared by fmt %v

	// Scene text
	DescriptionContains  []string `json:"description_contains,omitempty"`
	DescriptionMinLength *int     `json:"description_min_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName  string
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
	SceneText string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job         TestJob
	Results     []TestResult
	Error       error
	Duration    time.Duration
	CharacterID int64 // Character created for this run
}
