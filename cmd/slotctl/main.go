package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/app"
	"github.com/Ritika1223/jensieBackend/internal/config"
	"github.com/Ritika1223/jensieBackend/internal/schedule"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "slotctl",
		Short:        "Slot materialization and cache maintenance",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(rebuildLabelsCmd())
	rootCmd.AddCommand(workerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp loads config, builds the dependencies and closes them after fn.
func withApp(ctx context.Context, service string, fn func(ctx context.Context, deps *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	deps, err := app.Build(ctx, cfg, app.NewLogger(service))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := deps.Close(closeCtx); err != nil {
			deps.Log.Error("slotctl shutdown error", slog.String("error", err.Error()))
		}
	}()
	return fn(ctx, deps)
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Materialize slots for a doctor over a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			if doctorID == "" || from == "" {
				return fmt.Errorf("--doctor and --from are required")
			}
			if to == "" {
				to = from
			}

			return withApp(cmd.Context(), "slotctl", func(ctx context.Context, deps *app.App) error {
				res, err := deps.Materializer.MaterializeRange(ctx, doctorID, from, to)
				if err != nil {
					return err
				}
				fmt.Printf("days=%d generated=%d inserted=%d duplicates=%d\n", res.Days, res.SlotsGenerated, res.Inserted, res.Duplicates)
				return nil
			})
		},
	}
	cmd.Flags().String("doctor", "", "Doctor id")
	cmd.Flags().String("from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last date (YYYY-MM-DD), defaults to --from")
	return cmd
}

func rebuildLabelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild-labels",
		Short: "Recompute the cached slot label index for a doctor and date",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			date, _ := cmd.Flags().GetString("date")
			if doctorID == "" || date == "" {
				return fmt.Errorf("--doctor and --date are required")
			}

			return withApp(cmd.Context(), "slotctl", func(ctx context.Context, deps *app.App) error {
				entries, err := deps.Labels.Rebuild(ctx, doctorID, date)
				if err != nil {
					return err
				}
				fmt.Printf("labels=%d\n", len(entries))
				return nil
			})
		},
	}
	cmd.Flags().String("doctor", "", "Doctor id")
	cmd.Flags().String("date", "", "Date (YYYY-MM-DD)")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Keep every scheduled doctor materialized over the configured horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, "slot-worker", func(ctx context.Context, deps *app.App) error {
				job := func() { runHorizon(ctx, deps) }

				c := cron.New(cron.WithLocation(deps.Cfg.Timezone))
				if _, err := c.AddFunc(deps.Cfg.SlotCron, job); err != nil {
					return fmt.Errorf("schedule %q: %w", deps.Cfg.SlotCron, err)
				}

				deps.Log.Info("slot worker started", slog.String("cron", deps.Cfg.SlotCron), slog.Int("horizon_days", deps.Cfg.SlotHorizonDays))
				job()
				c.Start()

				<-ctx.Done()
				deps.Log.Info("shutdown signal received, stopping slot worker")
				<-c.Stop().Done()
				return nil
			})
		},
	}
}

// runHorizon materializes [today, today+horizon] for every doctor with a
// weekly template. One doctor failing does not stop the others.
func runHorizon(ctx context.Context, deps *app.App) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	now := start.In(deps.Cfg.Timezone)
	from := schedule.FormatDate(now)
	to := schedule.FormatDate(now.AddDate(0, 0, deps.Cfg.SlotHorizonDays))

	doctorIDs, err := deps.Store.Templates.DoctorIDs(runCtx)
	if err != nil {
		deps.Log.Error("slot worker run: list doctors failed", slog.String("error", err.Error()))
		return
	}

	var inserted, failed int
	for _, id := range doctorIDs {
		res, err := deps.Materializer.MaterializeRange(runCtx, id, from, to)
		if err != nil {
			failed++
			deps.Log.Error("slot worker run: doctor failed", slog.String("doctor_id", id), slog.String("error", err.Error()))
			continue
		}
		inserted += res.Inserted
	}

	deps.Log.Info("slot worker run: done",
		slog.Int("doctors", len(doctorIDs)),
		slog.Int("failed", failed),
		slog.Int("inserted", inserted),
		slog.Duration("took", time.Since(start)),
	)
}
