package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plant-monitor/internal/infrastructure/diseasecsv"
)

func scanCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <plantId> <sensorNode>",
		Short: "Scan one plant and exit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runScan(cmd.Context(), args[0], args[1])
		},
	}
}

func (s *session) runScan(ctx context.Context, plantID, sensorNode string) error {
	c, err := s.container(ctx, true)
	if err != nil {
		return err
	}
	defer c.Close()

	res := c.ScanService.ScanPlant(ctx, plantID, sensorNode)
	if res.WriteErr != nil {
		return res.WriteErr
	}
	return nil
}

func sweepCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Scan every plant on the allow-listed sensor nodes once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			c, err := s.container(ctx, true)
			if err != nil {
				return err
			}
			defer c.Close()

			report, err := c.ScanService.Sweep(ctx)
			if err != nil {
				return err
			}
			if report.Aborted {
				return errors.New("sweep interrupted")
			}
			return nil
		},
	}
}

func uploadDiseasesCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-diseases <file.csv>",
		Short: "Replace the disease reference table with the rows of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open csv")
			}
			defer f.Close()

			table, err := diseasecsv.Read(f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", args[0])
			}
			for _, row := range table.Skipped {
				s.logger.Warn("row skipped", zap.Int("line", row.Line), zap.String("reason", row.Reason))
			}

			c, err := s.container(ctx, false)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.DiseaseService.Upload(ctx, table.Diseases)
			if err != nil {
				return err
			}
			s.logger.Info("disease data uploaded", zap.Int("records", n), zap.Int("skipped", len(table.Skipped)))
			return nil
		},
	}
}
