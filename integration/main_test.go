//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/storylines/integration/runner"
)

var caseFlag = flag.String("case", "", "Comma-separated test cases to run (from integration/cases/); all when empty")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")
var runsFlag = flag.Int("runs", 1, "Number of times to run each test suite (model output is not deterministic)")

func TestMain(m *testing.M) {
	flag.Parse()
	fmt.Printf("Running Storylines Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL())
	os.Exit(m.Run())
}

func TestIntegrationSuites(t *testing.T) {
	if *errFlag != string(runner.ErrorHandlingExit) && *errFlag != string(runner.ErrorHandlingContinue) {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}
	if *runsFlag < 1 {
		t.Fatalf("Number of runs must be >= 1, got: %d", *runsFlag)
	}

	files, err := caseFiles()
	if err != nil {
		t.Fatalf("Failed to discover test files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("No test files found in cases directory")
	}

	var jobs []runner.TestJob
	for _, file := range files {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		jobs = append(jobs, expanded...)
	}
	if len(jobs) == 0 {
		t.Fatal("No valid test suites loaded")
	}

	testRunner := runner.NewRunner(apiBaseURL())
	testRunner.Timeout = time.Duration(getIntEnv("TEST_TIMEOUT_SECONDS", 90)) * time.Second
	testRunner.ErrorHandlingMode = runner.ErrorHandlingMode(*errFlag)
	if *runsFlag > 1 {
		// Collect complete data across runs
		testRunner.ErrorHandlingMode = runner.ErrorHandlingContinue
	}
	testRunner.Logger = func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	passes := make(map[string]int)
	var failed []string
	for run := 1; run <= *runsFlag; run++ {
		if *runsFlag > 1 {
			t.Logf("=== RUN %d/%d ===", run, *runsFlag)
		}
		for i, job := range jobs {
			t.Logf("[%d/%d] Starting test suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))

			result, err := testRunner.RunSuite(ctx, job.Suite)
			if err != nil && result.Error == nil {
				result.Error = err
			}
			t.Logf("Character ID: %d", result.CharacterID)

			for _, step := range result.Results {
				if step.Success {
					t.Logf("   ✓ %s (%v)", step.StepName, step.Duration)
				} else {
					t.Logf("   ✗ %s: %v", step.StepName, step.Error)
				}
			}
			if result.Error != nil {
				failed = append(failed, fmt.Sprintf("%s (run %d): %v", job.Name, run, result.Error))
				t.Errorf("[%d/%d] FAILED: %s: %v", i+1, len(jobs), job.Name, result.Error)
				continue
			}
			passes[job.Name]++
			t.Logf("[%d/%d] PASSED: %s in %v", i+1, len(jobs), job.Name, result.Duration)
		}
	}

	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Name)
	}
	sort.Strings(names)

	t.Logf("\nIntegration Test Summary:")
	for _, name := range names {
		t.Logf("   %s: %d/%d passed", name, passes[name], *runsFlag)
	}
	if len(failed) > 0 {
		t.Logf("\nFailed tests:")
		for _, failure := range failed {
			t.Logf("   - %s", failure)
		}
		t.Fatalf("Integration tests failed")
	}
	t.Logf("\nAll integration tests passed!")
}

func caseFiles() ([]string, error) {
	if *caseFlag == "" {
		files, err := filepath.Glob(filepath.Join("cases", "*.json"))
		sort.Strings(files)
		return files, err
	}
	var files []string
	for _, name := range strings.Split(*caseFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		files = append(files, filepath.Join("cases", name))
	}
	return files, nil
}

func apiBaseURL() string {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:3001"
}

func getIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
