package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tablebridge/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Pass     bool     `json:"pass"`
	Requests int      `json:"requests"`
	Errors   []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against an in-memory store",
		Long: `Run scenario files against a seeded in-memory table store.

Every *.yaml or *.yml file directly inside the directory is a scenario.
Each runs with its own store, frozen date and audit log. Assertions are
checked, and when golden/<scenario>.golden exists next to the scenario the
call transcript must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  tablebridge test ./scenarios
  tablebridge test ./scenarios --filter "tasks_*"
  tablebridge test ./scenarios --update
  tablebridge test ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenario(opts, file)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
		if opts.Format != "json" {
			printScenario(cmd, opts, sr)
		}
	}

	out := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if opts.Format == "json" {
		if result.Failed > 0 {
			if err := out.Error("TEST_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), result); err != nil {
				return err
			}
		} else if err := out.Success("", result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(w, "No scenarios found.")
			return nil
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintln(w, "✓ All scenarios passed")
		}
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// findScenarioFiles lists the YAML files directly inside dir, sorted.
// Subdirectories hold seeds and goldens and are not descended into.
func findScenarioFiles(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// runScenario loads, runs and golden-checks one scenario file.
func runScenario(opts *TestOptions, file string) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("load error: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario, harness.WithLogger(opts.Logger()))
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution error: %v", err)}
		return sr
	}
	sr.Requests = result.Requests
	sr.Errors = append(sr.Errors, result.Errors...)

	transcript := harness.Transcript(scenario.Name, result.Trace)
	goldenPath := goldenFilePath(file)

	switch {
	case opts.Update:
		if err := writeGolden(goldenPath, transcript); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("golden update error: %v", err))
		}
	default:
		want, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
			// assertions only
		case err != nil:
			sr.Errors = append(sr.Errors, fmt.Sprintf("golden read error: %v", err))
		case !bytes.Equal(want, transcript):
			sr.Errors = append(sr.Errors, "transcript does not match golden file (run with --update to regenerate)")
		}
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}

// goldenFilePath returns dir/golden/<base>.golden for dir/<base>.yaml.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

func printScenario(cmd *cobra.Command, opts *TestOptions, sr ScenarioResult) {
	w := cmd.OutOrStdout()
	if !sr.Pass {
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	suffix := ""
	if opts.Update {
		suffix = " (golden updated)"
	}
	if opts.Verbose {
		suffix += fmt.Sprintf(" [%d requests]", sr.Requests)
	}
	fmt.Fprintf(w, "✓ %s%s\n", sr.Name, suffix)
}
