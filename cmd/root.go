package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plant-monitor/config"
	"plant-monitor/internal/container"
	"plant-monitor/internal/logging"
)

// session общее состояние команд: конфигурация и логгер
type session struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func rootCommand() *cobra.Command {
	s := &session{}

	rootCmd := &cobra.Command{
		Use:   "plant-monitor [plantId sensorNode]",
		Short: "Plant health monitoring over camera snapshots",
		Long: "Scans camera snapshots from the realtime database with a detector and a disease\n" +
			"classifier and writes plant statuses back. Without arguments runs the daemon;\n" +
			"with a plant id and a sensor node scans that plant once.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return errors.Errorf("expected no arguments or <plantId> <sensorNode>, got %d", len(args))
			}
			return nil
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if s.logger != nil {
				_ = s.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return s.runScan(cmd.Context(), args[0], args[1])
			}
			return s.runDaemon()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&s.configFile, "config", "", "YAML config file")
	flags.Bool("dry-run", false, "use an in-memory store instead of Firebase")
	flags.String("seed", "", "JSON export to seed the in-memory store with")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	daemonFlags(rootCmd)

	rootCmd.AddCommand(
		daemonCommand(s),
		scanCommand(s),
		sweepCommand(s),
		uploadDiseasesCommand(s),
	)
	return rootCmd
}

func daemonFlags(cmd *cobra.Command) {
	cmd.Flags().String("listen", "", "address for the /metrics endpoint, e.g. :9090")
	cmd.Flags().String("schedule", "30m", "sweep interval or cron expression")
}

func (s *session) init(cmd *cobra.Command) error {
	cfg, err := config.Load(s.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.logger = logger
	return nil
}

// container собирает зависимости; withModels загружает модели и конвейер
func (s *session) container(ctx context.Context, withModels bool) (*container.Container, error) {
	c, err := container.New(ctx, s.cfg, s.logger)
	if err != nil {
		return nil, errors.Wrap(err, "init store")
	}
	if s.cfg.Store.DryRun {
		s.logger.Warn("dry run: using in-memory store", zap.String("seed", s.cfg.Store.SeedFile))
	}
	if !withModels {
		return c, nil
	}
	if err := c.EnableScanning(container.Models{}); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
