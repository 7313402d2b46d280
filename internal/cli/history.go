package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tablebridge/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
	Tool  string
	ID    string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded tool calls",
		Long: `Show tool calls recorded in the audit log, oldest first.

The log is the file given by --db, or --audit-db when --db is empty.
With --id one entry is printed with its full output.

Examples:
  tablebridge history --audit-db calls.db
  tablebridge history --db calls.db --tool tasks_for_today --limit 5
  tablebridge history --db calls.db --id 0192b7a4-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "audit log file (defaults to --audit-db)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "most recent N entries; 0 for all")
	cmd.Flags().StringVar(&opts.Tool, "tool", "", "only calls of this tool")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show one entry in full")

	return cmd
}

func showHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	path := opts.DB
	if path == "" {
		path = opts.AuditDB
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no audit log: pass --db or --audit-db")
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --limit %d", opts.Limit))
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open audit log", err)
	}
	defer st.Close()

	out := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.ID != "" {
		e, err := st.Get(cmd.Context(), opts.ID)
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitFailure, fmt.Sprintf("no entry %s", opts.ID))
		}
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read audit log", err)
		}
		return out.Success(entryDetail(e), e)
	}

	entries, err := st.List(cmd.Context(), store.Filter{Tool: opts.Tool, Limit: opts.Limit})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read audit log", err)
	}
	if len(entries) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No calls recorded.")
		return nil
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintln(&b, entryLine(e))
	}
	return out.Success(strings.TrimRight(b.String(), "\n"), entries)
}

// entryLine is the one-line summary of an entry.
func entryLine(e store.Entry) string {
	outcome := string(e.Status)
	if e.ErrorKind != "" {
		outcome = e.ErrorKind
	}
	return fmt.Sprintf("%4d %s %-24s %s => %s (%s)",
		e.Seq, e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), e.Tool, e.Args, outcome, e.Duration)
}

func entryDetail(e store.Entry) string {
	return fmt.Sprintf("%s\nid: %s\n\n%s", entryLine(e), e.ID, e.Output)
}
