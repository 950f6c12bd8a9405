// prdkb: project knowledge base server
//
// Synthesizes one living knowledge document per project from source
// fragments, gates it behind user confirmation and evolves it as
// requirements are completed. Serves it to AI tools over MCP.
//
// Usage:
//
//	prdkb serve                 # Start MCP server (stdio transport)
//	prdkb fragment add ...      # Ingest a source fragment
//	prdkb build --project ID    # Synthesize the knowledge base
//	prdkb confirm --project ID  # Confirm with answers
//	prdkb context --project ID  # Print the confirmed context
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/prdkb/internal/config"
	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/metrics"
	kbserver "github.com/HendryAvila/prdkb/internal/server"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "prdkb",
		Short: "Project knowledge base synthesis and evolution",
		Long: `prdkb keeps one living knowledge document per project.

It is synthesized from source fragments by a language model, confirmed
by the user, and evolved every time a requirement is completed. AI tools
reach it over MCP with "prdkb serve"; the other commands drive the same
engine from the shell.

Settings are read from ~/.prdkb/config.yaml and PRDKB_* variables.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.prdkb/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(
		a.serveCmd(),
		a.fragmentCmd(),
		a.buildCmd(),
		a.confirmCmd(),
		a.completeCmd(),
		a.searchCmd(),
		a.contextCmd(),
		a.showCmd(),
		a.projectsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load reads the config and sets up logging. Logs go to stderr so they
// never interfere with MCP's stdio transport on stdout.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// withEngine opens the engine for a one-shot command.
func (a *app) withEngine(fn func(*engine.Engine) error) error {
	eng, cleanup, err := kbserver.NewEngine(a.cfg, a.logger, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(eng)
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewRecorder(reg)

	s, cleanup, err := kbserver.New(a.cfg, a.logger, rec)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("metrics endpoint listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics endpoint failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.logger.Info("prdkb serving on stdio",
		"version", kbserver.Version,
		"provider", a.cfg.LLM.Provider,
		"data_dir", a.cfg.DataDir)

	stdio := server.NewStdioServer(s)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "prdkb v%s\n", kbserver.Version)
		},
	}
}
