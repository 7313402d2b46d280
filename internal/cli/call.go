package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Args string
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Execute one tool against the configured base",
		Long: `Execute one tool against the configured base and print its result.

Text output is exactly what the agent would read. JSON output carries the
structured result, including the error kind on failure.

Exit codes:
  0 - The tool succeeded
  1 - The tool returned an error
  2 - Command error (missing configuration, invalid --args)

Examples:
  tablebridge call tasks_for_today --args '{"worker":"Sato"}'
  tablebridge call airtable_get_records --args '{"table_name":"Tasks","max_records":5}'
  tablebridge call list_tasks --args '{"all":true}' --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callTool(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "tool arguments as a JSON object")

	return cmd
}

func callTool(opts *CallOptions, name string, cmd *cobra.Command) error {
	var args map[string]any
	if err := json.Unmarshal([]byte(opts.Args), &args); err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}
	if args == nil {
		args = map[string]any{}
	}

	s, err := opts.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	res := s.registry.Call(cmd.Context(), name, args)

	out := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if res.Success {
		return out.Success(res.Text, res)
	}

	if opts.Format == "json" {
		if err := out.Error(res.Error.Kind, res.Text, res.Error); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s failed: %s", name, res.Error.Kind))
}
