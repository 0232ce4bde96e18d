package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxflow/voxflow/pkg/config"
	"github.com/voxflow/voxflow/pkg/scheduling/scheduler"
	"github.com/voxflow/voxflow/pkg/scheduling/workerpool"
)

var (
	scheduleCron  string
	scheduleEvery time.Duration
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <config.yaml>",
	Short: "Re-run a preprocessing sweep on a recurring schedule",
	Long: `Registers the configured sweep with a scheduler and re-runs it on a cron
expression or a fixed interval, until interrupted. Useful for nightly
reprocessing of a study as new scans land in the input directories.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		return scheduleSweep(cmd, args[0], verbose)
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", `cron expression, e.g. "0 2 * * *" or "@daily"`)
	scheduleCmd.Flags().DurationVar(&scheduleEvery, "every", 0, "fixed interval between runs, e.g. 6h")
	scheduleCmd.MarkFlagsOneRequired("cron", "every")
	scheduleCmd.MarkFlagsMutuallyExclusive("cron", "every")
	rootCmd.AddCommand(scheduleCmd)
}

func scheduleSweep(cmd *cobra.Command, configPath string, verbose bool) error {
	logger := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := workerpool.TaskFunc(func(taskCtx context.Context) error {
		// Config is re-read per trigger so new subjects are picked up
		// without restarting the scheduler.
		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Error("reloading sweep config", "path", configPath, "error", err)
			return err
		}
		report, err := executeSweep(taskCtx, cfg, logger)
		if report != nil {
			printSummary(report)
		}
		if err != nil {
			logger.Error("scheduled sweep failed", "sweep", cfg.Name, "error", err)
		}
		return err
	})

	sched := scheduler.NewWithConfig(scheduler.Config{Name: cfg.Name})
	switch {
	case scheduleCron != "":
		err = sched.ScheduleCron(cfg.Name, scheduleCron, run)
	default:
		err = sched.ScheduleEvery(cfg.Name, scheduleEvery, run)
	}
	if err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}
	for _, sw := range sched.List() {
		fmt.Printf("sweep %s scheduled, next run %s\n", sw.ID, sw.NextRun.Format(time.RFC3339))
	}

	<-ctx.Done()
	logger.Info("shutting down scheduler", "sweep", cfg.Name)
	<-sched.Stop()
	return nil
}
