package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tablebridge/internal/airtable"
	"github.com/roach88/tablebridge/internal/catalog"
	"github.com/roach88/tablebridge/internal/config"
	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/store"
	"github.com/roach88/tablebridge/internal/tools"
)

// Check statuses.
const (
	CheckOK   = "ok"
	CheckFail = "fail"
	CheckSkip = "skip"
)

// Check is one doctor finding.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// DoctorReport is the output of the doctor command.
type DoctorReport struct {
	Checks []Check        `json:"checks"`
	Tools  []string       `json:"tools"`
	Config *config.Config `json:"config,omitempty"`
}

// DoctorOptions holds flags for the doctor command.
type DoctorOptions struct {
	*RootOptions
	Ping bool
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DoctorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, catalog and audit log",
		Long: `Check that the CLI is ready to serve tools.

Reports on the connection settings (credential redacted), the table
catalog, the audit log and the registered tools. With --ping the remote
base is contacted by listing its tables. With --verbose the loaded
configuration and catalog are dumped.

Exit codes:
  0 - All checks passed
  1 - A check failed
  2 - Connection settings are missing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Ping, "ping", false, "list the remote tables to verify connectivity")

	return cmd
}

func runDoctor(opts *DoctorOptions, cmd *cobra.Command) error {
	report := DoctorReport{}
	var cfgErr error

	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		cfgErr = err
		report.Checks = append(report.Checks, Check{Name: "configuration", Status: CheckFail, Detail: err.Error()})
	} else {
		redacted := cfg.Redacted()
		report.Config = &redacted
		report.Checks = append(report.Checks, Check{
			Name:   "configuration",
			Status: CheckOK,
			Detail: fmt.Sprintf("base %s at %s, timeout %s, key %s", redacted.BaseID, redacted.Endpoint, redacted.Timeout, redacted.APIKey),
		})
	}

	cat, err := catalog.Load(opts.Catalog)
	if err == nil {
		err = cat.Validate()
	}
	if err != nil {
		report.Checks = append(report.Checks, Check{Name: "catalog", Status: CheckFail, Detail: err.Error()})
		cat = nil
	} else {
		report.Checks = append(report.Checks, Check{Name: "catalog", Status: CheckOK, Detail: catalogSummary(cat)})
	}

	report.Checks = append(report.Checks, auditCheck(opts.RootOptions, cmd))

	if cat != nil {
		registry := tools.NewDefaultRegistry(nil, cat, formula.NewCompiler())
		report.Tools = registry.List()
	}

	switch {
	case !opts.Ping:
	case cfg == nil:
		report.Checks = append(report.Checks, Check{Name: "remote", Status: CheckSkip, Detail: "no configuration"})
	default:
		report.Checks = append(report.Checks, pingCheck(opts.RootOptions, cfg, cmd))
	}

	out := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err := out.Success(doctorText(report), report); err != nil {
		return err
	}
	if opts.Verbose && opts.Format != "json" {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w)
		if report.Config != nil {
			dumper.Fdump(w, *report.Config)
		}
		if cat != nil {
			dumper.Fdump(w, *cat)
		}
	}

	if cfgErr != nil {
		return WrapExitError(ExitCommandError, "configuration error", cfgErr)
	}
	for _, c := range report.Checks {
		if c.Status == CheckFail {
			return NewExitError(ExitFailure, c.Name+" check failed")
		}
	}
	return nil
}

func catalogSummary(cat *catalog.Catalog) string {
	tables := []string{cat.Tasks.Table}
	for _, name := range cat.EntityNames() {
		e, _ := cat.Entity(name)
		tables = append(tables, fmt.Sprintf("%s (%s)", name, e.Table))
	}
	return "tasks in " + strings.Join(tables, ", ")
}

func auditCheck(opts *RootOptions, cmd *cobra.Command) Check {
	if opts.AuditDB == "" {
		return Check{Name: "audit log", Status: CheckSkip, Detail: "no --audit-db"}
	}
	st, err := store.Open(opts.AuditDB)
	if err != nil {
		return Check{Name: "audit log", Status: CheckFail, Detail: err.Error()}
	}
	defer st.Close()
	n, err := st.Count(cmd.Context())
	if err != nil {
		return Check{Name: "audit log", Status: CheckFail, Detail: err.Error()}
	}
	return Check{Name: "audit log", Status: CheckOK, Detail: fmt.Sprintf("%s, %d entries", opts.AuditDB, n)}
}

func pingCheck(opts *RootOptions, cfg *config.Config, cmd *cobra.Command) Check {
	client, err := airtable.New(cfg, airtable.WithLogger(opts.Logger()))
	if err != nil {
		return Check{Name: "remote", Status: CheckFail, Detail: err.Error()}
	}
	tables, err := client.ListTables(cmd.Context())
	if err != nil {
		return Check{Name: "remote", Status: CheckFail, Detail: tools.Describe(err)}
	}
	return Check{Name: "remote", Status: CheckOK, Detail: fmt.Sprintf("%d tables", len(tables))}
}

func doctorText(r DoctorReport) string {
	var b strings.Builder
	for _, c := range r.Checks {
		fmt.Fprintf(&b, "[%-4s] %-13s %s\n", c.Status, c.Name, c.Detail)
	}
	if len(r.Tools) > 0 {
		fmt.Fprintf(&b, "%d tools: %s", len(r.Tools), strings.Join(r.Tools, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
