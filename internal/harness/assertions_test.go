package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablebridge/internal/fakestore"
	"github.com/roach88/tablebridge/internal/model"
	"github.com/roach88/tablebridge/internal/store"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Tool: "airtable_create_record", Args: map[string]any{"table_name": "Tasks"}, OutputCase: CaseSuccess},
		{Seq: 2, Tool: "tasks_for_today", Args: map[string]any{"worker": "Sato"}, OutputCase: CaseSuccess},
		{Seq: 3, Tool: "list_tasks", Args: map[string]any{"all": true}, OutputCase: CaseSuccess},
		{Seq: 4, Tool: "tasks_for_today", Args: map[string]any{"worker": "Tanaka"}, OutputCase: CaseSuccess},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Tool: "tasks_for_today", Args: map[string]any{"worker": "Tanaka"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Tool: "list_tasks"}))

	err := assertTraceContains(trace, Assertion{Tool: "tasks_for_today", Args: map[string]any{"worker": "Ito"}})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Contains(t, err.Error(), "[2] tasks_for_today {\"worker\":\"Sato\"} => success")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Tools: []string{"airtable_create_record", "tasks_for_today", "list_tasks"}}))

	err := assertTraceOrder(trace, Assertion{Tools: []string{"list_tasks", "tasks_for_today"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list_tasks (pos 3) should be before tasks_for_today (pos 2)")

	err = assertTraceOrder(trace, Assertion{Tools: []string{"search_records"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing call: search_records")
}

func TestMatchSubset(t *testing.T) {
	actual := map[string]any{
		"status": "success",
		"record": model.Record{ID: "rec1", Fields: model.Fields{"Task": model.String("Weeding"), "Area": model.Number(8)}},
	}

	assert.True(t, matchSubset(actual, nil))
	assert.True(t, matchSubset(actual, map[string]any{"status": "success"}))
	assert.True(t, matchSubset(actual, map[string]any{"record": map[string]any{"id": "rec1", "fields": map[string]any{"Area": 8}}}))
	assert.False(t, matchSubset(actual, map[string]any{"record": map[string]any{"id": "rec2"}}))
	assert.False(t, matchSubset(actual, map[string]any{"missing": true}))
	assert.False(t, matchSubset(nil, map[string]any{"status": "success"}))
}

func TestDisplayOf(t *testing.T) {
	assert.Equal(t, "", displayOf(nil))
	assert.Equal(t, "Sato", displayOf("Sato"))
	assert.Equal(t, "true", displayOf(true))
	assert.Equal(t, "8", displayOf(8))
	assert.Equal(t, "12.5", displayOf(12.5))
}

func TestEvaluateAssertions_State(t *testing.T) {
	fake := fakestore.New("appTEST")
	fake.AddTable(model.Table{Name: "Tasks"})
	for _, f := range []model.Fields{
		{"Task": model.String("Weeding"), "Assignee": model.List{model.String("Sato"), model.String("Suzuki")}, "Area": model.Number(8)},
		{"Task": model.String("Harvest"), "Assignee": model.List{model.String("Tanaka")}},
	} {
		_, err := fake.AddRecord("Tasks", f)
		require.NoError(t, err)
	}

	audit, err := store.Open(":memory:")
	require.NoError(t, err)
	defer audit.Close()
	ctx := context.Background()
	_, err = audit.Write(ctx, store.Entry{Tool: "tasks_for_today", Args: "{}", Status: store.StatusSuccess})
	require.NoError(t, err)

	actx := &AssertionContext{Fake: fake, Audit: audit, Ctx: ctx}
	result := NewResult()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertFinalState, Table: "Tasks", Where: map[string]any{"Task": "Weeding"}, Expect: map[string]any{"Assignee": "Sato", "Area": 8, "Status": nil}},
		{Type: AssertRecordCount, Table: "Tasks", Count: 2},
		{Type: AssertRecordCount, Table: "Tasks", Where: map[string]any{"Assignee": "Tanaka"}, Count: 1},
		{Type: AssertTraceCount, Tool: "tasks_for_today", Count: 1},
	}, actx)
	assert.Empty(t, errs)

	errs = EvaluateAssertions(result, []Assertion{
		{Type: AssertFinalState, Table: "Tasks", Expect: map[string]any{"Task": "Weeding"}},
		{Type: AssertFinalState, Table: "Tasks", Where: map[string]any{"Task": "Pruning"}, Expect: map[string]any{"Task": "Pruning"}},
		{Type: AssertFinalState, Table: "Tasks", Where: map[string]any{"Task": "Harvest"}, Expect: map[string]any{"Area": 3}},
		{Type: AssertRecordCount, Table: "Crops", Count: 0},
		{Type: AssertTraceCount, Tool: "list_tasks", Count: 1},
	}, actx)
	require.Len(t, errs, 5)
	assert.Contains(t, errs[0], "2 records matched (assertion is ambiguous)")
	assert.Contains(t, errs[1], "record not found")
	assert.Contains(t, errs[2], `field "Area" = ""`)
	assert.Contains(t, errs[3], "table not found")
	assert.Contains(t, errs[4], "0 calls")
}
