package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/tablebridge/internal/fakestore"
)

// FakeServerOptions holds flags for the fake-server command.
type FakeServerOptions struct {
	*RootOptions
	Addr   string
	Seed   string
	BaseID string
	Token  string
}

// NewFakeServerCommand creates the fake-server command.
func NewFakeServerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FakeServerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fake-server",
		Short: "Serve an in-memory table store for local development",
		Long: `Serve an in-memory table store speaking the same REST API as the
remote service, optionally seeded from a YAML file.

Point the CLI at it with:
  AIRTABLE_ENDPOINT=http://localhost:8855 AIRTABLE_BASE_ID=appFAKE AIRTABLE_API_KEY=<token>

Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveFake(ctx, opts, cmd, nil)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8855", "listen address")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "seed file (YAML)")
	cmd.Flags().StringVar(&opts.BaseID, "base", "appFAKE", "base id to serve")
	cmd.Flags().StringVar(&opts.Token, "token", "", "required bearer token; any token when empty")

	return cmd
}

// newFakeStore builds the store and loads the seed.
func newFakeStore(opts *FakeServerOptions) (*fakestore.Server, error) {
	fake := fakestore.New(opts.BaseID,
		fakestore.WithToken(opts.Token),
		fakestore.WithLogger(opts.Logger()),
	)
	if opts.Seed == "" {
		return fake, nil
	}
	seed, err := fakestore.LoadSeed(opts.Seed)
	if err != nil {
		return nil, err
	}
	if err := fake.Load(seed); err != nil {
		return nil, fmt.Errorf("load seed %s: %w", opts.Seed, err)
	}
	return fake, nil
}

// serveFake serves until ctx is done, then shuts down gracefully.
// When ready is non-nil it receives the bound address once listening.
func serveFake(ctx context.Context, opts *FakeServerOptions, cmd *cobra.Command, ready chan<- string) error {
	fake, err := newFakeStore(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to prepare fake store", err)
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:      fake,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	addr := ln.Addr().String()
	opts.Logger().Info("fake store listening", zap.String("addr", addr), zap.String("base", opts.BaseID))
	fmt.Fprintf(cmd.OutOrStdout(), "Serving base %s on http://%s\n", opts.BaseID, addr)
	if ready != nil {
		ready <- addr
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "fake store stopped", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	opts.Logger().Info("fake store stopped")
	return nil
}
