// Command validate checks a saved model response against the scene output contract.
package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jwebster45206/storylines/pkg/response"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <response.json|->\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	data, err := readInput(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	report := Validate(string(data))
	for _, r := range report.Repairs {
		fmt.Printf("repaired: %s\n", r)
	}
	for _, w := range report.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if err := report.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed for %s:\n%v\n", filename, err)
		os.Exit(1)
	}
	fmt.Println("Response is valid!")
}

func readInput(filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return data, nil
}

// Report is the outcome of validating one response.
// Warnings do not fail validation.
type Report struct {
	Repairs  []string
	Warnings []string
	Errors   []string
}

func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(r.Errors, "\n"))
}

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, "  - "+fmt.Sprintf(format, args...))
}

// Validate normalizes raw the way the engine does, then lints what the engine would store.
// A response the engine would replace with the fallback scene is an error.
func Validate(raw string) Report {
	out := response.Normalize(raw)
	report := Report{Repairs: out.Repairs}
	if out.Fallback {
		report.addError("response would be replaced by the fallback scene: %v", out.Err)
		return report
	}
	lintResult(&report, out.Result)
	return report
}

func lintResult(report *Report, r state.TurnResult) {
	names := make([]string, 0, len(r.WorldFlagUpdates))
	for name := range r.WorldFlagUpdates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !isValidFlagName(name) {
			report.addError("world flag '%s' should be lowercase snake_case", name)
		}
	}

	if err := r.VisualMetadata.Validate(); err != nil {
		report.addError("visualMetadata: %v", err)
	}

	// The client only ships files for the known asset names
	for _, a := range r.VisualMetadata.VisualAssets {
		if a.Type == "background" && !scenario.IsKnownBackground(a.Name) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("background '%s' has no asset file", a.Name))
		}
	}
	for _, a := range r.VisualMetadata.AudioAssets {
		if !scenario.IsKnownAudio(a.Name) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("audio '%s' has no asset file", a.Name))
		}
	}
}

var validFlagRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidFlagName(name string) bool {
	return validFlagRegex.MatchString(name)
}
