package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/config"
	"github.com/HerbHall/devwatch/internal/event"
	"github.com/HerbHall/devwatch/internal/mqtt"
	"github.com/HerbHall/devwatch/internal/notify"
	"github.com/HerbHall/devwatch/internal/pulse"
	"github.com/HerbHall/devwatch/internal/seed"
	"github.com/HerbHall/devwatch/internal/server"
	"github.com/HerbHall/devwatch/internal/version"
	"github.com/HerbHall/devwatch/internal/webhook"
	"github.com/HerbHall/devwatch/internal/ws"
	"github.com/HerbHall/devwatch/pkg/plugin"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		once bool
		demo bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the liveness monitor, the /ws push endpoint and the resync API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			settings, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if demo {
				settings.Seed.Demo = true
			}
			return runServe(ctx, cmd, settings, logger, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single reconciliation tick, print the report and exit")
	cmd.Flags().BoolVar(&demo, "demo", false, "seed demo devices and users before starting")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, s *config.Settings, logger *zap.Logger, once bool) error {
	logger.Info("devwatch starting", zap.String("version", version.Short()))

	db, inv, err := openInventory(ctx, s.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if s.Seed.Demo {
		res, err := seed.SeedDemoNetwork(ctx, inv)
		if err != nil {
			return fmt.Errorf("seed demo network: %w", err)
		}
		logger.Info("demo data seeded",
			zap.String("component", "seed"),
			zap.Int("groups", res.Groups),
			zap.Int("devices", res.Devices),
			zap.Int("users", res.Users),
		)
	}

	bus := event.NewBus(logger.Named("event"))
	hub := ws.NewHub(logger.Named("ws"))
	wsHandler := ws.NewHandler(hub, s.WS, logger.Named("ws"))

	mailer, err := notify.NewMailer(s.Notify, logger.Named("notify"))
	if err != nil {
		return fmt.Errorf("configure mailer: %w", err)
	}
	if sm, ok := mailer.(*notify.SMTPMailer); ok && s.Notify.VerifyOnStart {
		verifySMTP(ctx, sm, s.Notify, logger.Named("notify"))
	}
	dispatcher := notify.NewDispatcher(mailer, s.Notify, logger.Named("notify"))

	evaluator, err := pulse.NewEvaluator(s.Pulse)
	if err != nil {
		return err
	}
	reconciler := pulse.NewReconciler(inv, evaluator, hub, dispatcher, s.Pulse, logger.Named("pulse"))
	reconciler.SetEventBus(bus)

	bridge := mqtt.New(s.MQTT, logger.Named("mqtt"))
	if bridge.Enabled() {
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("start mqtt bridge: %w", err)
		}
		unsubscribe := bridge.Attach(bus)
		defer func() {
			unsubscribe()
			_ = bridge.Stop(context.Background())
		}()
	}

	hook := webhook.New(s.Webhook, logger.Named("webhook"))
	if hook.Enabled() {
		unsubscribe := hook.Attach(bus)
		defer unsubscribe()
	}

	if once {
		report, err := reconciler.RunOnce(ctx)
		reconciler.Wait()
		bus.Wait()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"evaluated=%d transitions=%d eval_errors=%d persist_errors=%d deliveries=%d notifications=%d\n",
			report.Evaluated, report.Transitions, report.EvalErrors, report.PersistErrors,
			report.Deliveries, report.Notifications)
		return nil
	}

	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		if !reconciler.Running() {
			return errors.New("reconciler not running")
		}
		return db.Ping(ctx)
	})
	srv := server.New(s.Server, inv, logger.Named("server"), readyCheck, wsHandler)
	srv.AddHealth("ws", func(context.Context) plugin.HealthStatus {
		return plugin.HealthStatus{
			Status:  "healthy",
			Details: map[string]string{"clients": fmt.Sprint(hub.ClientCount())},
		}
	})
	if bridge.Enabled() {
		srv.AddHealth("mqtt", bridge.Health)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	reconciler.Start(ctx)
	logger.Info("devwatch ready",
		zap.String("addr", s.Server.Addr()),
		zap.Duration("interval", s.Pulse.Interval),
		zap.String("evaluator", s.Pulse.Evaluator),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	// Graceful shutdown: stop producing transitions, then drop viewers.
	reconciler.Stop()
	hub.Close()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	bus.Wait()

	logger.Info("devwatch stopped")
	return serveErr
}

// verifySMTP dials the relay once so misconfiguration shows up at startup
// rather than on the first transition. Failure is logged, not fatal.
func verifySMTP(ctx context.Context, m *notify.SMTPMailer, cfg notify.Config, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout+time.Second)
	defer cancel()
	if err := m.Verify(ctx); err != nil {
		logger.Warn("SMTP server not reachable; notifications may fail",
			zap.String("smtp_host", cfg.SMTPHost), zap.Error(err))
		return
	}
	logger.Info("SMTP server is ready to take messages", zap.String("smtp_host", cfg.SMTPHost))
}
