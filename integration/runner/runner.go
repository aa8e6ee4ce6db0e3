package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/storylines/internal/handlers"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays test suites against a running Storylines API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // Per request
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{},
		Timeout:           90 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}
	if !suite.IsSequence() {
		return []TestJob{{Name: suite.Name, Suite: suite, CaseFile: filename}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite creates the suite's character and plays each step in order
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	seed := map[string]string{
		"characterName":       suite.Character.Name,
		"characterClass":      suite.Character.Class,
		"characterBackground": suite.Character.Background,
	}
	var turn handlers.TurnResponse
	status, msg, err := r.post(ctx, "/api/game/start", seed, &turn)
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("start game returned %d: %s", status, msg)
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to start game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.CharacterID = turn.Character.ID

	if err := checkExpectations(suite.ExpectStart, turn.GameState); err != nil {
		result.Error = fmt.Errorf("opening turn: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	current := turn.GameState
	var previous *state.GameState
	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult, next := r.runStep(ctx, step, current, previous)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)
		if next != nil {
			previous, current = current, next
		}

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep returns the new game state when the turn was accepted.
func (r *Runner) runStep(ctx context.Context, step TestStep, current, previous *state.GameState) (TestResult, *state.GameState) {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	done := func(err error) TestResult {
		result.Error = err
		result.Success = err == nil
		result.Duration = time.Since(start)
		return result
	}

	from := current
	if step.Stale {
		if previous == nil {
			return done(fmt.Errorf("stale step needs an earlier scene")), nil
		}
		from = previous
	}
	choiceID, err := pickChoice(step, from.CurrentScene)
	if err != nil {
		return done(err), nil
	}

	body := map[string]any{
		"characterId":    from.Character.ID,
		"currentSceneId": from.CurrentScene.ID,
		"choiceId":       choiceID,
	}
	var turn handlers.TurnResponse
	status, msg, err := r.post(ctx, "/api/next-scene", body, &turn)
	if err != nil {
		return done(err), nil
	}

	want := http.StatusOK
	if step.Expectations.Status != nil {
		want = *step.Expectations.Status
	}
	if status != want {
		return done(fmt.Errorf("expected status %d, got %d: %s", want, status, msg)), nil
	}
	if status != http.StatusOK {
		if step.Expectations.ErrorContains != "" && !strings.Contains(msg, step.Expectations.ErrorContains) {
			return done(fmt.Errorf("error %q does not contain %q", msg, step.Expectations.ErrorContains)), nil
		}
		return done(nil), nil
	}

	result.SceneText = turn.Scene.Description
	if err := checkExpectations(step.Expectations, turn.GameState); err != nil {
		return done(err), turn.GameState
	}
	return done(nil), turn.GameState
}

func pickChoice(step TestStep, scene scenario.Scene) (string, error) {
	if step.Choice != "" {
		return step.Choice, nil
	}
	if step.ChoiceIndex < 0 || step.ChoiceIndex >= len(scene.Choices) {
		return "", fmt.Errorf("scene %d has no choice at index %d", scene.SceneNumber, step.ChoiceIndex)
	}
	return scene.Choices[step.ChoiceIndex].ID, nil
}

func checkExpectations(exp Expectations, gs *state.GameState) error {
	if gs == nil {
		return fmt.Errorf("response has no game state")
	}
	scene := gs.CurrentScene

	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	if exp.SceneNumber != nil && scene.SceneNumber != *exp.SceneNumber {
		fail("scene number: expected %d, got %d", *exp.SceneNumber, scene.SceneNumber)
	}
	if exp.TotalScenes != nil && gs.GameProgress.TotalScenes != *exp.TotalScenes {
		fail("total scenes: expected %d, got %d", *exp.TotalScenes, gs.GameProgress.TotalScenes)
	}
	if exp.IsEnding != nil && scene.IsEnding != *exp.IsEnding {
		fail("is ending: expected %v, got %v", *exp.IsEnding, scene.IsEnding)
	}
	if exp.EndingType != nil && string(scene.EndingType) != *exp.EndingType {
		fail("ending type: expected %q, got %q", *exp.EndingType, scene.EndingType)
	}
	if exp.MinChoices != nil && len(scene.Choices) < *exp.MinChoices {
		fail("choices: expected at least %d, got %d", *exp.MinChoices, len(scene.Choices))
	}
	for _, item := range exp.Inventory {
		if !gs.Character.HasItem(item) {
			fail("inventory: missing %q", item)
		}
	}
	for name, want := range exp.Stats {
		got, ok := gs.Character.Stats.Get(name)
		if !ok {
			fail("stats: unknown stat %q", name)
		} else if got != want {
			fail("stats: %s expected %d, got %d", name, want, got)
		}
	}
	flags := scenario.FlagMap(gs.WorldFlags)
	for name, want := range exp.Flags {
		got, ok := flags[name]
		if !ok {
			fail("flags: %q not set", name)
		} else if fmt.Sprintf("%v", got) != want {
			fail("flags: %s expected %s, got %v", name, want, got)
		}
	}
	for _, text := range exp.DescriptionContains {
		if !strings.Contains(strings.ToLower(scene.Description), strings.ToLower(text)) {
			fail("description does not contain %q", text)
		}
	}
	if exp.DescriptionMinLength != nil && len(scene.Description) < *exp.DescriptionMinLength {
		fail("description length %d below %d", len(scene.Description), *exp.DescriptionMinLength)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return nil
}

// post sends a JSON request. A non-200 status is not an error; its API message is returned.
func (r *Runner) post(ctx context.Context, path string, in, out any) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	data, err := json.Marshal(in)
	if err != nil {
		return 0, "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp handlers.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return resp.StatusCode, errResp.Error.Message, nil
		}
		return resp.StatusCode, strconv.Quote(string(body)), nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, "", fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, "", nil
}
