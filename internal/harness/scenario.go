package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // scenarios name IANA zones

	"gopkg.in/yaml.v3"

	"github.com/roach88/tablebridge/internal/fakestore"
)

// DateLayout is the format of Scenario.Today.
const DateLayout = "2006-01-02"

// Scenario defines a conformance scenario.
// A scenario seeds the fake store, calls tools in order and asserts on the
// resulting trace, the audit log and the final table contents.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Today freezes the clock, as YYYY-MM-DD.
	Today string `yaml:"today"`

	// Timezone is an IANA zone name used to resolve "today". Defaults to UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// SeedFile is a fake store seed, relative to the scenario file.
	SeedFile string `yaml:"seed_file,omitempty"`

	// Seed is an inline seed. It is loaded after SeedFile.
	Seed *fakestore.Seed `yaml:"seed,omitempty"`

	// Catalog is an optional catalog file, relative to the scenario file.
	// The built-in catalog is used when empty.
	Catalog string `yaml:"catalog,omitempty"`

	// Setup contains tool calls that establish state. Each must succeed.
	Setup []ToolStep `yaml:"setup,omitempty"`

	// Flow contains the tool calls under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state,
	// record_count.
	Assertions []Assertion `yaml:"assertions"`
}

// ToolStep is a single tool call used in Setup.
type ToolStep struct {
	// Call is the tool name (e.g., "airtable_create_record").
	Call string `yaml:"call"`

	// Args are the tool arguments.
	Args map[string]any `yaml:"args"`
}

// FlowStep is a tool call in the main flow.
type FlowStep struct {
	// Call is the tool name.
	Call string `yaml:"call"`

	// Args are the tool arguments.
	Args map[string]any `yaml:"args"`

	// Expect specifies the expected outcome. If nil, any outcome is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected call behavior.
type ExpectClause struct {
	// Case is "success" or an error kind such as "EMPTY_QUERY".
	Case string `yaml:"case"`

	// Text, when set, must equal the result text exactly.
	Text string `yaml:"text,omitempty"`

	// Contains lists substrings the result text must include.
	Contains []string `yaml:"contains,omitempty"`

	// Result is a subset match against the structured result data.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a call to Tool with Args appears in the trace
	// - "trace_order": calls to Tools appear in order
	// - "trace_count": the audit log holds exactly Count calls to Tool
	// - "final_state": exactly one record in Table matches Where, and it has Expect
	// - "record_count": Table holds exactly Count records matching Where
	Type string `yaml:"type"`

	// Tool is the tool name (trace_contains, trace_count).
	Tool string `yaml:"tool,omitempty"`

	// Args are expected tool arguments, subset match (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Tools is the expected call order (trace_order).
	Tools []string `yaml:"tools,omitempty"`

	// Table is the fake store table name (final_state, record_count).
	Table string `yaml:"table,omitempty"`

	// Where selects records by displayed field value.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected displayed field values (final_state).
	// A null value asserts the field is absent or empty.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of calls or records.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRecordCount   = "record_count"
)

// CaseSuccess is the expected case of a successful call.
const CaseSuccess = "success"

// LoadScenario reads and parses a scenario YAML file.
// SeedFile and Catalog are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	dir := filepath.Dir(path)
	scenario.SeedFile = resolve(dir, scenario.SeedFile)
	scenario.Catalog = resolve(dir, scenario.Catalog)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := time.Parse(DateLayout, s.Today); err != nil {
		return fmt.Errorf("today must be YYYY-MM-DD, got %q", s.Today)
	}

	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	if s.SeedFile != "" {
		if _, err := os.Stat(s.SeedFile); os.IsNotExist(err) {
			return fmt.Errorf("seed file not found: %s", s.SeedFile)
		}
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Call == "" {
			return fmt.Errorf("setup[%d]: call is required", i)
		}
		if step.Args == nil {
			return fmt.Errorf("setup[%d]: args is required (use empty map if no args)", i)
		}
	}

	for i, step := range s.Flow {
		if step.Call == "" {
			return fmt.Errorf("flow[%d]: call is required", i)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Tool == "" {
			return fmt.Errorf("assertions[%d]: tool is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Tools) == 0 {
			return fmt.Errorf("assertions[%d]: tools list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Tool == "" {
			return fmt.Errorf("assertions[%d]: tool is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRecordCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for record_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
