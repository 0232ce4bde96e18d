package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/voxflow/voxflow/pkg/config"
	_ "github.com/voxflow/voxflow/pkg/engine/plugins"
	"github.com/voxflow/voxflow/pkg/engine/trace"
	"github.com/voxflow/voxflow/pkg/engine/workflow"
	"github.com/voxflow/voxflow/pkg/engine/worklock"
	"github.com/voxflow/voxflow/pkg/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run <config.yaml>",
	Short: "Run a preprocessing sweep described by a config file",
	Long: `Builds the skullstrip -> smooth pipeline from a sweep config, expands it
over every combination of subjects and parameter values, and executes the
branches with the configured plugin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		return runSweep(cmd, args[0], verbose)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runSweep(cmd *cobra.Command, configPath string, verbose bool) error {
	logger := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := executeSweep(ctx, cfg, logger)
	if report != nil {
		printSummary(report)
	}
	return err
}

// executeSweep builds the configured pipeline and runs it once. It is shared
// by the run and schedule commands.
func executeSweep(ctx context.Context, cfg config.Sweep, logger *slog.Logger) (*workflow.RunReport, error) {
	wf, err := buildWorkflow(cfg)
	if err != nil {
		return nil, err
	}

	runCfg := workflow.RunConfig{
		Plugin:  cfg.Plugin,
		Procs:   cfg.Procs,
		Logger:  logger,
		Metrics: metrics.DefaultRegistry,
	}

	if cfg.Lock.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Lock.Addr})
		defer client.Close()

		lock, err := worklock.New(worklock.Config{
			Redis: client,
			Key:   "voxflow:lock:" + filepath.Join(cfg.Workdir, cfg.Name),
			TTL:   time.Duration(cfg.Lock.TTL),
		})
		if err != nil {
			return nil, err
		}
		runCfg.Lock = lock
	}

	if cfg.TracePath != "" {
		tw, err := trace.New(cfg.TracePath)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := tw.Close(); cerr != nil {
				logger.Warn("closing trace writer", "error", cerr)
			}
		}()
		runCfg.Trace = tw
	}

	return wf.Run(ctx, runCfg)
}

func printSummary(report *workflow.RunReport) {
	failed := len(report.Failed())
	skipped := len(report.Skipped())
	succeeded := len(report.Results) - failed - skipped

	fmt.Printf("run %s: %d succeeded, %d failed, %d skipped in %s\n",
		report.RunID, succeeded, failed, skipped,
		report.EndTime.Sub(report.StartTime).Round(time.Millisecond))

	for _, r := range report.Failed() {
		fmt.Printf("  failed: %s %s: %v\n", r.Node, r.Branch, r.Error)
	}
}
