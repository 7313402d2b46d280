package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/tools"
)

// ToolInfo describes one tool in command output.
type ToolInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	InputSchema *tools.JSONSchema `json:"input_schema,omitempty"`
}

// NewToolsCommand creates the tools command.
func NewToolsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the agent",
		Long: `List every tool with its description.

With --verbose or --format json the input schema of each tool is included.
No connection settings are needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTools(rootOpts, cmd)
		},
	}
}

func listTools(opts *RootOptions, cmd *cobra.Command) error {
	cat, err := opts.loadCatalog()
	if err != nil {
		return err
	}

	// Listing never executes a tool, so no client is needed.
	registry := tools.NewDefaultRegistry(nil, cat, formula.NewCompiler())

	infos := make([]ToolInfo, 0, registry.Count())
	var b strings.Builder
	for _, tool := range registry.ListTools() {
		info := ToolInfo{Name: tool.Name(), Description: tool.Description()}
		if opts.Verbose || opts.Format == "json" {
			info.InputSchema = tool.InputSchema()
		}
		infos = append(infos, info)

		fmt.Fprintf(&b, "%-24s %s\n", tool.Name(), tool.Description())
		if opts.Verbose {
			schema, err := tool.InputSchema().ToJSON()
			if err == nil {
				fmt.Fprintf(&b, "%24s %s\n", "", schema)
			}
		}
	}

	out := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	return out.Success(strings.TrimRight(b.String(), "\n"), infos)
}
