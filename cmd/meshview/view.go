package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/app"
	"github.com/Faultbox/meshview/internal/logger"
)

func newViewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "view [model]",
		Short: "Open the viewer window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			if c.cfg.Watch.Enabled && path == "" {
				return errors.New("--watch needs a model file")
			}

			logger.Info("=== meshview ===")

			a, err := app.New(c.cfg)
			if err != nil {
				logger.Error("failed to create viewer", zap.Error(err))
				return err
			}
			defer a.Close()

			if path != "" {
				a.Open(path)
				if c.cfg.Watch.Enabled {
					if err := a.Watch(path); err != nil {
						logger.Warn("file watching disabled", zap.Error(err))
					}
				}
			}

			if err := a.Run(); err != nil {
				logger.Error("viewer error", zap.Error(err))
				return err
			}

			logger.Info("viewer closed normally")
			return nil
		},
	}
}
