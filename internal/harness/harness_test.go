package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablebridge/internal/fakestore"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_TestdataScenariosPass(t *testing.T) {
	for _, name := range []string{"tasks_for_today", "record_lifecycle", "table_admin"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRunWithGolden_TasksForToday(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "tasks_for_today"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_EmptyQuerySendsNoRequest(t *testing.T) {
	scenario := &Scenario{
		Name:        "empty_query",
		Description: "list_tasks without a filter never reaches the store",
		Today:       "2026-10-16",
		Flow: []FlowStep{
			{Call: "list_tasks", Args: map[string]any{}, Expect: &ExpectClause{Case: "EMPTY_QUERY"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Tool: "list_tasks", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 0, result.Requests)
}

func TestRun_InlineSeed(t *testing.T) {
	scenario := &Scenario{
		Name:        "inline_seed",
		Description: "Inline seeds are loaded without a seed file",
		Today:       "2026-10-16",
		Seed: &fakestore.Seed{Tables: []fakestore.SeedTable{{
			Name:   "Tasks",
			Fields: []fakestore.SeedField{{Name: "Date", Type: "date"}, {Name: "Assignee"}, {Name: "Task"}},
			Records: []map[string]any{
				{"Date": "2026-10-16", "Assignee": []any{"Mori"}, "Task": "Pruning"},
			},
		}}},
		Flow: []FlowStep{
			{
				Call:   "tasks_for_today",
				Args:   map[string]any{"worker": "Mori"},
				Expect: &ExpectClause{Case: CaseSuccess, Contains: []string{"Task: Pruning", "Plot: N/A"}},
			},
		},
		Assertions: []Assertion{
			{Type: AssertRecordCount, Table: "Tasks", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.Requests)
}

func TestRun_TimezoneResolvesToday(t *testing.T) {
	scenario := &Scenario{
		Name:        "timezone",
		Description: "Today is resolved in the scenario timezone",
		Today:       "2026-10-17",
		Timezone:    "Asia/Tokyo",
		SeedFile:    filepath.Join("testdata", "seeds", "farm.yaml"),
		Flow: []FlowStep{
			{
				Call:   "tasks_for_today",
				Args:   map[string]any{"worker": "Sato"},
				Expect: &ExpectClause{Case: CaseSuccess, Contains: []string{"Task: Spraying"}},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Tool: "tasks_for_today", Args: map[string]any{"worker": "Sato"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedExpectationsAreReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Expectations are checked against real results",
		Today:       "2026-10-16",
		SeedFile:    filepath.Join("testdata", "seeds", "farm.yaml"),
		Flow: []FlowStep{
			{
				Call:   "tasks_for_today",
				Args:   map[string]any{"worker": "Sato"},
				Expect: &ExpectClause{Case: "EMPTY_QUERY", Contains: []string{"Spraying"}},
			},
		},
		Assertions: []Assertion{
			{Type: AssertRecordCount, Table: "Tasks", Count: 4},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "flow[0] tasks_for_today: expected case EMPTY_QUERY, got success")
	assert.Contains(t, result.Errors[1], `expected text to contain "Spraying"`)
	assert.Contains(t, result.Errors[2], "4 records in Tasks")
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "Setup must succeed",
		Today:       "2026-10-16",
		Setup: []ToolStep{
			{Call: "airtable_create_record", Args: map[string]any{"table_name": "Missing", "fields": map[string]any{"A": "b"}}},
		},
		Flow:       []FlowStep{{Call: "airtable_list_tables", Args: map[string]any{}}},
		Assertions: []Assertion{{Type: AssertTraceCount, Tool: "airtable_list_tables", Count: 1}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 0 (airtable_create_record)")
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestRun_TraceIsSequenced(t *testing.T) {
	result, err := Run(loadTestScenario(t, "record_lifecycle"))
	require.NoError(t, err)

	require.Len(t, result.Trace, 6)
	assert.True(t, result.Trace[0].Setup)
	assert.Equal(t, "airtable_create_record", result.Trace[0].Tool)
	for i, ev := range result.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, "REMOTE_API_ERROR", result.Trace[4].OutputCase)
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(loadTestScenario(t, "table_admin"))
	require.NoError(t, err)
	second, err := Run(loadTestScenario(t, "table_admin"))
	require.NoError(t, err)

	assert.Equal(t, Transcript("table_admin", first.Trace), Transcript("table_admin", second.Trace))
}
