package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/tablebridge/internal/airtable"
	"github.com/roach88/tablebridge/internal/catalog"
	"github.com/roach88/tablebridge/internal/config"
	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/store"
	"github.com/roach88/tablebridge/internal/tools"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string
	Catalog string // catalog file; built-in when empty
	AuditDB string // audit log path; calls are not recorded when empty

	logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tablebridge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tablebridge",
		Short: "tablebridge - agent tools over a remote table store",
		Long: `Agent tools for reading and editing records in a remote table store.

Connection settings come from the environment or a .env file:
  AIRTABLE_API_KEY (or AIRTABLE_PAT), AIRTABLE_BASE_ID,
  AIRTABLE_ENDPOINT, AIRTABLE_TIMEOUT`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.Logger().Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "dotenv file with connection settings")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "table catalog (.yaml or .cue); built-in when empty")
	cmd.PersistentFlags().StringVar(&opts.AuditDB, "audit-db", "", "record tool calls in this SQLite file")

	cmd.AddCommand(NewToolsCommand(opts))
	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewFormulaCommand(opts))
	cmd.AddCommand(NewDoctorCommand(opts))
	cmd.AddCommand(NewFakeServerCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// Logger returns the command logger, or a no-op logger before flags are parsed.
func (o *RootOptions) Logger() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

// newLogger writes JSON logs to w: debug level when verbose, warnings only
// otherwise, so stdout stays clean for command output.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zap.WarnLevel
	encoderConfig := zap.NewProductionEncoderConfig()
	if verbose {
		level = zap.DebugLevel
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}

// session is the wiring shared by commands that talk to the table store.
type session struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	registry *tools.Registry
	audit    *store.Store
}

func (s *session) Close() error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Close()
}

// loadCatalog loads the catalog named by --catalog.
func (o *RootOptions) loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load(o.Catalog)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	return cat, nil
}

// openSession loads configuration and the catalog, then builds the client
// and tool registry. A missing credential or base id is a command error.
func (o *RootOptions) openSession() (*session, error) {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configuration error", err)
	}

	cat, err := o.loadCatalog()
	if err != nil {
		return nil, err
	}

	client, err := airtable.New(cfg, airtable.WithLogger(o.Logger()))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "client error", err)
	}

	s := &session{cfg: cfg, catalog: cat}
	regOpts := []tools.RegistryOption{tools.WithRegistryLogger(o.Logger())}
	if o.AuditDB != "" {
		audit, err := store.Open(o.AuditDB)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open audit log", err)
		}
		s.audit = audit
		regOpts = append(regOpts, tools.WithRecorder(audit))
	}
	s.registry = tools.NewDefaultRegistry(client, cat, formula.NewCompiler(), regOpts...)
	return s, nil
}
