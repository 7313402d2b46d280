package tools

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tablebridge/internal/airtable"
	"github.com/roach88/tablebridge/internal/catalog"
	"github.com/roach88/tablebridge/internal/filterir"
	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/render"
)

// fetchAndRender compiles preds, fetches the first page and renders it.
// Errors are returned as text.
func fetchAndRender(ctx context.Context, client TableClient, compiler *formula.Compiler, op, table string, limit int, preds []filterir.Predicate, spec render.FieldSpec, subject string) *Result {
	f, err := compiler.Build(preds)
	if errors.Is(err, formula.ErrEmptyQuery) {
		return TextFailure(airtable.NewEmptyQuery(op))
	}
	if err != nil {
		return TextFailure(airtable.NewInvalidArgument(op, err.Error()))
	}
	page, err := client.Fetch(ctx, table, airtable.FetchOptions{Filter: f, MaxRecords: limit})
	if err != nil {
		return TextFailure(err)
	}
	return Text(render.Render(page.Records, spec, subject))
}

// textOutput marks tools whose results are rendered text, so failures the
// registry produces for them are text too.
type textOutput interface {
	rendersText()
}

func (TasksForTodayTool) rendersText() {}
func (ListTasksTool) rendersText() {}
func (SearchRecordsTool) rendersText() {}

// cleanName trims and NFC-normalises a name typed by a person.
func cleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// TasksForTodayTool lists today's work entries, optionally for one worker.
type TasksForTodayTool struct {
	Client   TableClient
	Catalog  *catalog.Catalog
	Compiler *formula.Compiler
}

func (TasksForTodayTool) Name() string { return "tasks_for_today" }

func (TasksForTodayTool) Description() string {
	return "List today's tasks. Give a worker name to see only that worker's tasks."
}

func (TasksForTodayTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"worker": NewStringSchema("Worker name as it appears in the assignee field"),
	}, nil)
}

func (t TasksForTodayTool) Execute(ctx context.Context, args map[string]any) *Result {
	tasks := t.Catalog.Tasks
	worker := cleanName(stringArg(args, "worker"))

	preds := []filterir.Predicate{filterir.DateEqualsToday{Field: tasks.DateField}}
	if worker != "" {
		preds = append(preds, filterir.ArrayContains{Field: tasks.AssigneeField, Literal: worker})
	}
	return fetchAndRender(ctx, t.Client, t.Compiler, t.Name(), tasks.Table, tasks.MaxRecords, preds, tasks.Display, worker)
}

// ListTasksTool lists work entries for a worker, or all of them.
//
// A worker filter takes precedence over all. With neither, the call fails
// with an empty-query message instead of dumping the whole table.
type ListTasksTool struct {
	Client   TableClient
	Catalog  *catalog.Catalog
	Compiler *formula.Compiler
}

func (ListTasksTool) Name() string { return "list_tasks" }

func (ListTasksTool) Description() string {
	return "List tasks for a worker. Set all=true, with no worker, to list every task."
}

func (ListTasksTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"worker": NewStringSchema("Worker name as it appears in the assignee field"),
		"all":    NewBooleanSchema("List every task without a worker filter").WithDefault(false),
	}, nil)
}

func (t ListTasksTool) Execute(ctx context.Context, args map[string]any) *Result {
	tasks := t.Catalog.Tasks
	worker := cleanName(stringArg(args, "worker"))

	compiler := *t.Compiler
	var preds []filterir.Predicate
	if worker != "" {
		preds = append(preds, filterir.ArrayContains{Field: tasks.AssigneeField, Literal: worker})
	} else {
		compiler.AllowUnfiltered = boolArg(args, "all")
	}
	return fetchAndRender(ctx, t.Client, &compiler, t.Name(), tasks.Table, tasks.MaxRecords, preds, tasks.Display, worker)
}

// SearchRecordsTool finds master-data records whose search field contains
// a term.
type SearchRecordsTool struct {
	Client   TableClient
	Catalog  *catalog.Catalog
	Compiler *formula.Compiler
}

func (SearchRecordsTool) Name() string { return "search_records" }

func (SearchRecordsTool) Description() string {
	return "Search a master table (for example plots or workers) for records whose name contains a term."
}

func (t SearchRecordsTool) InputSchema() *JSONSchema {
	names := t.Catalog.EntityNames()
	enum := make([]any, len(names))
	for i, n := range names {
		enum[i] = n
	}
	return NewObjectSchema("", map[string]*JSONSchema{
		"entity": NewStringSchema("What to search").WithEnum(enum...),
		"term":   NewStringSchema("Text the name must contain").NonEmpty(),
	}, []string{"entity", "term"})
}

func (t SearchRecordsTool) Execute(ctx context.Context, args map[string]any) *Result {
	name := stringArg(args, "entity")
	entity, ok := t.Catalog.Entity(name)
	if !ok {
		return TextFailure(airtable.NewInvalidArgument(t.Name(), "unknown entity "+name))
	}
	term := cleanName(stringArg(args, "term"))
	if term == "" {
		return TextFailure(airtable.NewInvalidArgument(t.Name(), "search term is empty"))
	}

	preds := []filterir.Predicate{filterir.Contains{Field: entity.SearchField, Literal: term}}
	return fetchAndRender(ctx, t.Client, t.Compiler, t.Name(), entity.Table, entity.MaxRecords, preds, entity.Display, term)
}
