// cdspricer prices, calibrates and risk-manages credit default swaps under
// the ISDA standard model. Every calculation reads a JSON request from
// --input (or stdin) and writes a JSON response to stdout; serve exposes the
// same calculations over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meenmo/cdslib/cmd/cdspricer/internal/fit"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/jsonio"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/portfolio"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/price"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/rates"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/sensitivity"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/server"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/logger"
	"github.com/meenmo/cdslib/metrics"
)

// errCalculation marks a failure already reported as JSON on stdout.
var errCalculation = errors.New("calculation failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errCalculation) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cdspricer",
		Short:         "ISDA standard model CDS pricer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			c, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				c.Log.Level = level
			}
			config.SetConfig(c)

			// stdout carries the JSON response; logs go to stderr.
			l, err := logger.New(c.Log, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			slog.SetDefault(l)
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "config file path (YAML, JSON or TOML)")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		calcCmd("price", "Price a single-name CDS", func(_ context.Context, in price.Input) (*price.Output, error) {
			return price.Calculate(config.GetConfig(), in)
		}),
		calcCmd("calibrate", "Calibrate credit curves for a batch of names", func(ctx context.Context, in fit.Input) (*fit.Output, error) {
			return fit.Calculate(ctx, config.GetConfig(), in)
		}),
		calcCmd("index", "Value a CDS index from its constituents", func(ctx context.Context, in portfolio.Input) (*portfolio.Output, error) {
			return portfolio.Calculate(ctx, config.GetConfig(), in)
		}),
		calcCmd("risk", "Spread, rate, recovery and default sensitivities of a CDS", func(_ context.Context, in sensitivity.Input) (*sensitivity.Output, error) {
			return sensitivity.Calculate(config.GetConfig(), in)
		}),
		calcCmd("yieldcurve", "Bootstrap the ISDA discount curve", func(_ context.Context, in rates.Input) (*rates.Output, error) {
			return rates.Calculate(config.GetConfig(), in)
		}),
		serveCmd(),
	)
	return root
}

// calcCmd wires one JSON-in/JSON-out calculation as a subcommand.
func calcCmd[In, Out any](use, short string, calc func(context.Context, In) (*Out, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			defer logger.LogDuration(use, "input", input)()
			code := jsonio.Run(input, cmd.InOrStdin(), cmd.OutOrStdout(), func(in In) (*Out, error) {
				return calc(cmd.Context(), in)
			})
			if code != 0 {
				return errCalculation
			}
			return nil
		},
	}
	cmd.Flags().String("input", "", "path to JSON input file (default: stdin)")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.GetConfig()
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				c.Server.Address = addr
			}
			m, err := metrics.New()
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), c, m)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.address)")
	return cmd
}
