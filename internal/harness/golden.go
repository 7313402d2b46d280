package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Transcript renders a trace as text for golden comparison:
//
//	# scenario_name
//
//	[1] tool {"arg":"value"}
//	=> success
//	result text
//
// Setup calls are marked "(setup)". Args are encoded with sorted keys, so
// the transcript is deterministic for a deterministic run.
func Transcript(name string, trace []TraceEvent) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", name)
	for _, event := range trace {
		marker := ""
		if event.Setup {
			marker = " (setup)"
		}
		fmt.Fprintf(&buf, "\n[%d] %s %s%s\n", event.Seq, event.Tool, encodeArgs(event.Args), marker)
		fmt.Fprintf(&buf, "=> %s\n", event.OutputCase)
		buf.WriteString(event.Text)
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// encodeArgs encodes args as compact JSON without HTML escaping.
func encodeArgs(args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's transcript against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Transcript(scenarioName, result.Trace))
}
