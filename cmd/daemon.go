package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plant-monitor/internal/api/telegram"
	"plant-monitor/internal/api/trigger"
	app "plant-monitor/internal/application"
	"plant-monitor/internal/scheduler"
)

func daemonCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled sweeps and listen for triggers until stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runDaemon()
		},
	}
	daemonFlags(cmd)
	return cmd
}

func (s *session) runDaemon() error {
	ctx, stop := signalContext()
	defer stop()

	c, err := s.container(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			s.logger.Warn("shutdown", zap.Error(err))
		}
	}()

	// Бот подключается к результатам до запуска воркера
	var bot *telegram.Bot
	if s.cfg.Telegram.Token != "" {
		bot, err = telegram.NewBot(s.cfg.Telegram.Token, c.UserService, c.Dispatcher, c.ScanService, c.DiseaseService, s.logger)
		if err != nil {
			return err
		}
		c.ScanService.AddNotifier(bot)
	}

	c.Queue.Start(ctx)

	sched, err := scheduler.New(scheduler.Config{
		Schedule:   s.cfg.Scan.Schedule,
		RunOnStart: s.cfg.Scan.RunOnStart,
	}, func() {
		if err := c.Dispatcher.EnqueueSweep(app.SourceTimer); err != nil {
			s.logger.Warn("scheduled sweep skipped", zap.Error(err))
		}
	}, s.logger)
	if err != nil {
		return err
	}

	var srv *http.Server
	if s.cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", c.Metrics.Handler())
		srv = &http.Server{Addr: s.cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			s.logger.Info("metrics endpoint listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	done := make(chan struct{})
	listener := trigger.NewListener(c.TriggerService, c.Dispatcher, s.cfg.Scan.TriggerPoll, s.logger)
	go func() {
		defer close(done)
		listener.Run(ctx)
	}()

	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if bot == nil {
			return
		}
		if err := bot.Run(ctx); err != nil {
			s.logger.Error("telegram bot stopped", zap.Error(err))
		}
	}()

	sched.Start()
	s.logger.Info("plant monitor is running",
		zap.Strings("sensor_nodes", s.cfg.Scan.SensorNodes),
		zap.String("schedule", s.cfg.Scan.Schedule),
	)

	<-ctx.Done()
	s.logger.Info("shutting down")

	if err := sched.Shutdown(); err != nil {
		s.logger.Warn("scheduler shutdown", zap.Error(err))
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	<-done
	<-botDone
	return nil
}
