package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/roach88/tablebridge/internal/filterir"
	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/model"
)

// FormulaBuildOptions holds flags for the formula build command.
type FormulaBuildOptions struct {
	*RootOptions
	Equals   []string // F=v
	Contains []string // F=v
	Has      []string // F=v, array membership
	Dates    []string // F=YYYY-MM-DD
	Today    []string // F
	All      bool
}

// FormulaResult is the output of formula build and parse.
type FormulaResult struct {
	Formula  string   `json:"formula"`
	Fields   []string `json:"fields,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// dumper prints predicate trees without pointer noise.
var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// NewFormulaCommand creates the formula command group.
func NewFormulaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formula",
		Short: "Build or inspect filter formulas",
	}
	cmd.AddCommand(newFormulaBuildCommand(rootOpts))
	cmd.AddCommand(newFormulaParseCommand(rootOpts))
	return cmd
}

func newFormulaBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormulaBuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile predicates into one filter formula",
		Long: `Compile predicates into one filter formula, combined with AND.

Each flag may be repeated. --eq values that look like numbers, booleans or
dates are compared as such. Without predicates the command fails unless
--all is given.

Examples:
  tablebridge formula build --today Date --has Assignee=Sato
  tablebridge formula build --eq Status=Done --contains Notes=pest
  tablebridge formula build --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildFormula(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Equals, "eq", nil, "field equals value (F=v)")
	cmd.Flags().StringArrayVar(&opts.Contains, "contains", nil, "field text contains value (F=v)")
	cmd.Flags().StringArrayVar(&opts.Has, "has", nil, "multi-valued field contains value (F=v)")
	cmd.Flags().StringArrayVar(&opts.Dates, "date", nil, "field falls on day (F=YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&opts.Today, "today", nil, "field falls on today (F)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "allow an empty, unfiltered formula")

	return cmd
}

func buildFormula(opts *FormulaBuildOptions, cmd *cobra.Command) error {
	preds, err := opts.predicates()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid predicate", err)
	}

	var warnings []string
	if len(preds) > 0 {
		warnings = filterir.Validate(filterir.And{Predicates: preds}).Warnings
	}

	compiler := formula.NewCompiler()
	compiler.AllowUnfiltered = opts.All
	f, err := compiler.Build(preds)
	if err != nil {
		return WrapExitError(ExitFailure, "formula build failed", err)
	}

	var fields []string
	for _, p := range preds {
		fields = append(fields, filterir.Fields(p)...)
	}

	out := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	for _, w := range warnings {
		out.VerboseLog("warning: %s", w)
	}
	text := f
	if text == "" {
		text = "(no filter)"
	}
	return out.Success(text, FormulaResult{Formula: f, Fields: fields, Warnings: warnings})
}

// predicates converts flags to predicates in a fixed flag order.
func (o *FormulaBuildOptions) predicates() ([]filterir.Predicate, error) {
	var preds []filterir.Predicate
	for _, raw := range o.Equals {
		field, value, err := splitPair("--eq", raw)
		if err != nil {
			return nil, err
		}
		preds = append(preds, filterir.Equals{Field: field, Value: literal(value)})
	}
	for _, raw := range o.Contains {
		field, value, err := splitPair("--contains", raw)
		if err != nil {
			return nil, err
		}
		preds = append(preds, filterir.Contains{Field: field, Literal: value})
	}
	for _, raw := range o.Has {
		field, value, err := splitPair("--has", raw)
		if err != nil {
			return nil, err
		}
		preds = append(preds, filterir.ArrayContains{Field: field, Literal: value})
	}
	for _, raw := range o.Dates {
		field, value, err := splitPair("--date", raw)
		if err != nil {
			return nil, err
		}
		day, err := time.Parse(model.DateLayout, value)
		if err != nil {
			return nil, fmt.Errorf("--date %s: want YYYY-MM-DD", raw)
		}
		preds = append(preds, filterir.DateEquals{Field: field, Date: day})
	}
	for _, field := range o.Today {
		preds = append(preds, filterir.DateEqualsToday{Field: field})
	}
	return preds, nil
}

func splitPair(flag, raw string) (string, string, error) {
	field, value, ok := strings.Cut(raw, "=")
	if !ok || field == "" {
		return "", "", fmt.Errorf("%s %q: want FIELD=VALUE", flag, raw)
	}
	return field, value, nil
}

// literal types a command-line value: number, boolean, date, else text.
func literal(s string) model.Value {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return model.Number(n)
	}
	switch s {
	case "true":
		return model.Bool(true)
	case "false":
		return model.Bool(false)
	}
	v, _ := model.FromNative(s)
	return v
}

func newFormulaParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <formula>",
		Short: "Parse a filter formula back into predicates",
		Long: `Parse a filter formula produced by this tool back into predicates and
print the predicate tree. Only the subset of the formula language that the
builder emits is accepted.

Example:
  tablebridge formula parse "AND(IS_SAME({Date}, '2026-10-16', 'day'), FIND('Sato', ARRAYJOIN({Assignee}, ',')) > 0)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return parseFormula(rootOpts, args[0], cmd)
		},
	}
}

func parseFormula(opts *RootOptions, f string, cmd *cobra.Command) error {
	out := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	pred, err := formula.Parse(f)
	if err != nil {
		if opts.Format == "json" {
			_ = out.Error("PARSE_ERROR", err.Error(), nil)
		}
		return WrapExitError(ExitFailure, "formula parse failed", err)
	}

	result := FormulaResult{
		Formula:  f,
		Fields:   filterir.Fields(pred),
		Warnings: filterir.Validate(pred).Warnings,
	}
	if opts.Format == "json" {
		return out.Success("", result)
	}
	return out.Success(strings.TrimRight(dumper.Sdump(pred), "\n"), result)
}
