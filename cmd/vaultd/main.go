// vaultd runs the YieldVault treasury controller: the custodial ledger, the
// daily snapshot and report jobs and the Telegram operator bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"YieldVault/internal/config"
	"YieldVault/internal/logging"
	"YieldVault/internal/notifier"
	"YieldVault/internal/recorder"
	"YieldVault/internal/scheduler"
	"YieldVault/internal/telemetry"
)

var version = "dev" // set by the linker
var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already printed the error.
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vaultd",
		Short:        "Custodial yield ledger and rate-limited treasury controller.",
		Version:      version,
		SilenceUsage: true,
	}
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", defaultPath, "config file")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the controller, scheduled jobs and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Infof("YieldVault %s starting...", version)

			// Context for graceful shutdown
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
				Enabled:     cfg.Telemetry.Enabled,
				Endpoint:    cfg.Telemetry.Endpoint,
				ServiceName: cfg.Telemetry.ServiceName,
			})
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logging.Warnf("flush traces: %v", err)
				}
			}()

			// Init recorder
			var rec recorder.Recorder = recorder.NewNoopRecorder()
			if cfg.Database.SQLitePath != "" {
				sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
				if err != nil {
					logging.Warnf("init sqlite recorder failed, using noop: %v", err)
				} else {
					rec = sr
				}
			}
			defer rec.Close()

			// Init Telegram notifier
			var alerts notifier.Notifier = notifier.NoopNotifier{}
			var tn *notifier.TelegramNotifier
			if cfg.Telegram.BotToken != "" {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
				alerts = tn
			} else {
				logging.Warnf("telegram not configured, alerts are logged only")
			}

			v, err := openVault(ctx, cfg, rec, alerts)
			if err != nil {
				return err
			}
			defer v.close()

			sched := scheduler.NewScheduler(ctx, v.ctl, alerts, rec, v.tokenMeta, cfg.Limits.DisplayDecimals)
			if err := sched.RegisterAll(cfg.Schedule.SnapshotCron, cfg.Schedule.ReportCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				logging.Infof("telegram polling started")
			}

			if os.Getenv("RUN_ON_START") == "true" {
				logging.Infof("RUN_ON_START enabled, taking a snapshot now")
				go sched.RunSnapshotNow()
			}

			logging.Infof("YieldVault is running. Press Ctrl+C to stop.")
			<-ctx.Done()
			logging.Infof("shutdown signal received, stopping...")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the controller status and token totals from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			v, err := openVault(ctx, cfg, recorder.NewNoopRecorder(), notifier.NoopNotifier{})
			if err != nil {
				return err
			}
			defer v.close()

			sched := scheduler.NewScheduler(ctx, v.ctl, notifier.NoopNotifier{}, recorder.NewNoopRecorder(), v.tokenMeta, cfg.Limits.DisplayDecimals)
			out := sched.HandleCommand("/status") + "\n" + sched.HandleCommand("/tokens")
			fmt.Fprintln(cmd.OutOrStdout(), stripHTML(out))
			return nil
		},
	}
}

var htmlTags = strings.NewReplacer("<b>", "", "</b>", "", "<code>", "", "</code>", "")

func stripHTML(s string) string { return htmlTags.Replace(s) }
