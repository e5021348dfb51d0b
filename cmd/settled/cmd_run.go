package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"SettlementEngine/internal/config"
	"SettlementEngine/internal/ledger"
	"SettlementEngine/internal/logging"
	"SettlementEngine/internal/notifier"
	"SettlementEngine/internal/recorder"
	"SettlementEngine/internal/scheduler"
	"SettlementEngine/internal/settlement"
	"SettlementEngine/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation ticks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ticks, _ := cmd.Flags().GetInt("ticks")
			noDB, _ := cmd.Flags().GetBool("no-db")
			return run(configPath(cmd), ticks, noDB)
		},
	}
	cmd.Flags().Int("ticks", 0, "Run this many ticks immediately and exit instead of scheduling")
	cmd.Flags().Bool("no-db", false, "Do not persist records")
	return cmd
}

func run(cfgPath string, ticks int, noDB bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logging.New(logging.Config{
		Environment: logging.Environment(cfg.Log.Environment),
		Level:       cfg.Log.Level,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("settled starting", zap.String("version", version), zap.String("config", cfgPath))

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if !noDB && cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	metrics, err := telemetry.Global()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var extra []settlement.Option
	var tn *notifier.TelegramNotifier
	if cfg.AlertsEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Proxy, log)
		alerts := notifier.NewAlertSink(tn, 64, log)
		go alerts.Run(ctx)
		extra = append(extra, settlement.WithIntegritySink(alerts))
	}

	w, err := buildWorld(cfg, log, rec, metrics, extra...)
	if err != nil {
		return err
	}
	l := ledger.New(w.engine, w.registry, log)
	sched := scheduler.NewScheduler(w.engine, l, batchSource(cfg), log)

	if ticks > 0 {
		for i := 0; i < ticks; i++ {
			rep := sched.RunTick()
			if !rep.Reconciled {
				log.Warn("tick did not reconcile", zap.Int64("tick", rep.Tick))
			}
		}
		return nil
	}

	if err := sched.RegisterAll(cfg.Schedule.TickCron, cfg.Schedule.AuditCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}
	log.Info("settled is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received, stopping")
	return nil
}
