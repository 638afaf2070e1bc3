package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"teamload/internal/bot"
	"teamload/internal/config"
	"teamload/internal/logging"
	"teamload/internal/service"
	"teamload/internal/web"
)

var (
	configPath string
	month      string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "teamload",
	Short:         "Weekly team workload tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		logger, err = logging.New(cfg.Log)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the scheduler and the Telegram bot",
	RunE:  runServe,
}

var propagateCmd = &cobra.Command{
	Use:   "propagate",
	Short: "Copy last week's repeating tasks into the current week",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			n, err := a.tasks.Propagate(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "week %s holds %d tasks\n", a.tasks.CurrentWeek(), n)
			return err
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the monthly report as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			at := a.tasks.Now()
			if month != "" {
				parsed, err := time.ParseInLocation("2006-01", month, a.loc)
				if err != nil {
					return fmt.Errorf("month must be YYYY-MM: %w", err)
				}
				at = parsed
			}
			report := service.Monthly(at, a.tasks.List(ctx, ""), a.members.List(ctx), a.categories.List(ctx))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		})
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the weekly digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			text, err := a.digest.WeeklyDigest(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $TEAMLOAD_CONFIG)")
	reportCmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	rootCmd.AddCommand(serveCmd, propagateCmd, reportCmd, digestCmd)
}

func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		var telegramBot *bot.Bot
		if cfg.TelegramEnabled() {
			var err error
			telegramBot, err = bot.New(cfg.Telegram.Token, cfg.Telegram.ChatID, bot.Services{
				Tasks:      a.tasks,
				Members:    a.members,
				Categories: a.categories,
				Digest:     a.digest,
			}, logger)
			if err != nil {
				return fmt.Errorf("bot: %w", err)
			}
		}

		scheduler := service.NewSchedulerService(a.loc, logger)
		jobs := make(map[string]cron.EntryID)
		if cfg.Schedule.Propagate != "" {
			id, err := scheduler.Schedule(ctx, "propagate", cfg.Schedule.Propagate, func(ctx context.Context) error {
				jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
				defer cancel()
				_, err := a.tasks.Propagate(jobCtx)
				return err
			})
			if err != nil {
				return err
			}
			jobs["propagate"] = id
		}
		if telegramBot != nil && cfg.Telegram.ChatID != 0 && cfg.Schedule.Digest != "" {
			id, err := scheduler.Schedule(ctx, "digest", cfg.Schedule.Digest, func(ctx context.Context) error {
				jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				return telegramBot.SendWeeklyDigest(jobCtx)
			})
			if err != nil {
				return err
			}
			jobs["digest"] = id
		}
		scheduler.Start()
		defer scheduler.Stop()
		for name, id := range jobs {
			logger.Info("next run", zap.String("job", name), zap.Time("at", scheduler.Next(id)))
		}

		server := web.NewServer(web.Services{
			Tasks:      a.tasks,
			Members:    a.members,
			Categories: a.categories,
		}, cfg.Auth, logger)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return server.Run(gctx, cfg.HTTP.Addr) })
		if telegramBot != nil {
			g.Go(func() error {
				if err := telegramBot.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
		logger.Info("teamload started", zap.String("addr", cfg.HTTP.Addr), zap.String("store", cfg.Store.Backend))
		err := g.Wait()
		logger.Info("shutdown complete")
		return err
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "teamload:", err)
		stop()
		os.Exit(1)
	}
}
