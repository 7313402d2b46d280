package harness

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/tablebridge/internal/airtable"
	"github.com/roach88/tablebridge/internal/catalog"
	"github.com/roach88/tablebridge/internal/config"
	"github.com/roach88/tablebridge/internal/fakestore"
	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/store"
	"github.com/roach88/tablebridge/internal/testutil"
	"github.com/roach88/tablebridge/internal/tools"
)

// Connection settings of the in-process fake store.
const (
	BaseID = "appHARNESS"
	APIKey = "harness-key"
)

// Harness is the scenario execution engine.
// It drives the real tool registry and table client against an in-process
// fake store with a frozen clock and sequential record IDs.
type Harness struct {
	registry *tools.Registry
	fake     *fakestore.Server
	audit    *store.Store
	logger   *zap.Logger
	seq      int64
}

type runConfig struct {
	logger *zap.Logger
}

// Option customises Run.
type Option func(*runConfig)

// WithLogger routes harness, client and fake store logs to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh fake store and a fresh in-memory
// audit log, so scenarios are isolated and reproducible.
//
// Execution flow:
// 1. Freeze the clock at scenario.Today and seed the fake store
// 2. Build the client, catalog and tool registry
// 3. Execute setup steps; any failure aborts the run
// 4. Execute flow steps, checking expect clauses
// 5. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all.
// Failed expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With(zap.String("scenario", scenario.Name))

	loc := time.UTC
	if scenario.Timezone != "" {
		l, err := time.LoadLocation(scenario.Timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
		loc = l
	}
	day, err := time.ParseInLocation(DateLayout, scenario.Today, loc)
	if err != nil {
		return nil, fmt.Errorf("today: %w", err)
	}
	clock := testutil.NewFixedDate(day.Year(), day.Month(), day.Day(), loc)

	fake := fakestore.New(BaseID,
		fakestore.WithToken(APIKey),
		fakestore.WithClock(clock),
		fakestore.WithIDGenerator(testutil.NewSequentialIDs("id")),
		fakestore.WithLogger(logger),
	)
	if scenario.SeedFile != "" {
		seed, err := fakestore.LoadSeed(scenario.SeedFile)
		if err != nil {
			return nil, err
		}
		if err := fake.Load(seed); err != nil {
			return nil, fmt.Errorf("failed to load seed: %w", err)
		}
	}
	if err := fake.Load(scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to load inline seed: %w", err)
	}

	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := airtable.New(&config.Config{
		APIKey:   APIKey,
		BaseID:   BaseID,
		Endpoint: srv.URL,
		Timeout:  10 * time.Second,
	}, airtable.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	audit, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDs("call")),
		store.WithClock(clock),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer audit.Close()

	compiler := &formula.Compiler{Clock: clock, Location: loc}
	h := &Harness{
		registry: tools.NewDefaultRegistry(client, cat, compiler,
			tools.WithRecorder(audit),
			tools.WithRegistryLogger(logger),
		),
		fake:   fake,
		audit:  audit,
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	h.executeFlow(ctx, scenario.Flow, result)

	actx := &AssertionContext{
		Fake:  fake,
		Audit: audit,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	result.Requests = fake.RequestCount()

	return result, nil
}

// call executes one tool and appends it to the trace.
func (h *Harness) call(ctx context.Context, name string, args map[string]any, setup bool, result *Result) *tools.Result {
	h.seq++
	res := h.registry.Call(ctx, name, args)
	result.AddTrace(TraceEvent{
		Seq:        h.seq,
		Tool:       name,
		Args:       args,
		Setup:      setup,
		OutputCase: outputCase(res),
		Text:       res.Text,
		Data:       res.Data,
	})
	return res
}

// executeSetup runs setup steps sequentially. Setup establishes state, so
// the first failing step aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []ToolStep, result *Result) error {
	for i, step := range setup {
		res := h.call(ctx, step.Call, step.Args, true, result)
		if !res.Success {
			return fmt.Errorf("setup step %d (%s): %s", i, step.Call, res.Text)
		}
		h.logger.Debug("setup step completed", zap.Int("step", i), zap.String("tool", step.Call))
	}
	return nil
}

// executeFlow runs every flow step and checks its expect clause.
// A failed expectation is recorded and execution continues.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) {
	for i, step := range flow {
		res := h.call(ctx, step.Call, step.Args, false, result)
		if step.Expect != nil {
			for _, msg := range checkExpect(step.Expect, res) {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Call, msg))
			}
		}
		h.logger.Debug("flow step completed",
			zap.Int("step", i),
			zap.String("tool", step.Call),
			zap.String("output_case", outputCase(res)),
		)
	}
}

// checkExpect compares a call result against its expect clause.
func checkExpect(expect *ExpectClause, res *tools.Result) []string {
	var errs []string
	if got := outputCase(res); got != expect.Case {
		errs = append(errs, fmt.Sprintf("expected case %s, got %s (%s)", expect.Case, got, res.Text))
	}
	if expect.Text != "" && strings.TrimRight(expect.Text, "\n") != res.Text {
		errs = append(errs, fmt.Sprintf("expected text %q, got %q", expect.Text, res.Text))
	}
	for _, s := range expect.Contains {
		if !strings.Contains(res.Text, s) {
			errs = append(errs, fmt.Sprintf("expected text to contain %q, got %q", s, res.Text))
		}
	}
	if len(expect.Result) > 0 && !matchSubset(res.Data, expect.Result) {
		errs = append(errs, fmt.Sprintf("expected result %v, got %v", expect.Result, res.Data))
	}
	return errs
}

// outputCase is "success" or the error kind of a failed call.
func outputCase(res *tools.Result) string {
	if res.Success {
		return CaseSuccess
	}
	if res.Error != nil && res.Error.Kind != "" {
		return res.Error.Kind
	}
	return string(airtable.KindUnknown)
}
