package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maksline/lavka/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the storefront engine and admin HTTP API",
		Long: `Start the storefront engine: open the database, restore state,
run the notification dispatcher, and expose the admin HTTP API.

Example:
  lavka serve --config ./config.yaml
  lavka serve --addr :9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "HTTP listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	a, err := buildApp(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.dispatcher.Run(ctx)
	}()

	srv := &http.Server{
		Addr:    addr,
		Handler: httpapi.NewServer(a.eng).Handler(),
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	slog.Info("serving", "addr", addr)
	err = srv.ListenAndServe()
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "http server error", err)
	}
	slog.Info("stopped gracefully")
	return nil
}
