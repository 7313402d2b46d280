package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/tablebridge/internal/fakestore"
	"github.com/roach88/tablebridge/internal/model"
	"github.com/roach88/tablebridge/internal/store"
)

// AssertionContext gives assertions access to the state left by a run.
type AssertionContext struct {
	Fake  *fakestore.Server
	Audit *store.Store
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(actx, result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(actx, a)
		case AssertRecordCount:
			err = assertRecordCount(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s => %s\n", event.Seq, event.Tool, encodeArgs(event.Args), event.OutputCase)
		}
	}

	return buf.String()
}

// assertTraceContains checks that the trace holds a call to the tool with
// matching args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Tool == assertion.Tool && matchSubset(event.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("call %s with args %v", assertion.Tool, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that tools are first called in the given order.
// Calls don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Tool]; !seen {
			positions[event.Tool] = i + 1
		}
	}

	for _, tool := range assertion.Tools {
		if positions[tool] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all tools called: %v", assertion.Tools),
				Actual:   fmt.Sprintf("missing call: %s", tool),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Tools); i++ {
		prev := assertion.Tools[i-1]
		curr := assertion.Tools[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("calls in order: %v", assertion.Tools),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the audit log, not the in-memory trace, so it
// also proves that every call was recorded.
func assertTraceCount(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	entries, err := actx.Audit.List(actx.Ctx, store.Filter{Tool: assertion.Tool})
	if err != nil {
		return fmt.Errorf("query audit log: %w", err)
	}

	if len(entries) != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d calls to %s", assertion.Count, assertion.Tool),
			Actual:   fmt.Sprintf("%d calls", len(entries)),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks that exactly one record matches Where and that
// it carries the expected displayed values (subset semantics).
func assertFinalState(actx *AssertionContext, assertion Assertion) error {
	matched, err := selectRecords(actx, assertion)
	if err != nil {
		return err
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record in %s where %s", assertion.Table, whereDesc),
			Actual:   "record not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one record in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d records matched (assertion is ambiguous)", len(matched)),
		}
	}

	rec := matched[0]
	for _, key := range sortedKeys(assertion.Expect) {
		want := displayOf(assertion.Expect[key])
		got := rec.Fields.Display(key, "")
		if got != want {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %q", key, want),
				Actual:   fmt.Sprintf("field %q = %q in record %s", key, got, rec.ID),
			}
		}
	}

	return nil
}

// assertRecordCount checks how many records match Where.
func assertRecordCount(actx *AssertionContext, assertion Assertion) error {
	matched, err := selectRecords(actx, assertion)
	if err != nil {
		return err
	}
	if len(matched) != assertion.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d records in %s where %s", assertion.Count, assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d records", len(matched)),
		}
	}
	return nil
}

// selectRecords returns the records of assertion.Table matching Where.
// Matching compares displayed values, so a list matches on its first element.
func selectRecords(actx *AssertionContext, assertion Assertion) ([]model.Record, error) {
	records, ok := actx.Fake.Records(assertion.Table)
	if !ok {
		return nil, &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("table %s", assertion.Table),
			Actual:   "table not found",
		}
	}

	var matched []model.Record
	for _, rec := range records {
		ok := true
		for key, v := range assertion.Where {
			if rec.Fields.Display(key, "") != displayOf(v) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// displayOf renders an expected YAML value the way model values display.
func displayOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return model.Number(float64(val)).Display()
	case int64:
		return model.Number(float64(val)).Display()
	case float64:
		return model.Number(val).Display()
	case time.Time:
		return val.Format(DateLayout)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchSubset reports whether actual contains every key of expected with
// an equal value. Both sides are normalised through JSON, so YAML ints
// compare equal to decoded float64s and structs compare as objects.
// Extra keys in actual are ignored.
func matchSubset(actual, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}

	a, ok := normalize(actual).(map[string]any)
	if !ok {
		return false
	}
	e, ok := normalize(expected).(map[string]any)
	if !ok {
		return false
	}

	for key, want := range e {
		got, exists := a[key]
		if !exists {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares normalised values. Nested objects use subset
// semantics; everything else must be deeply equal.
func valuesEqual(actual, expected any) bool {
	if em, ok := expected.(map[string]any); ok {
		am, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range em {
			av, exists := am[k]
			if !exists || !valuesEqual(av, v) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(actual, expected)
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
