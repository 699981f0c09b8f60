// Package main is the entry point for meshview.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries the loaded configuration from the root command to its
// subcommands.
type cli struct {
	flags *config.Flags
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "meshview",
		Short: "Multi-format 3D model viewer",
		Long: `meshview - view STL, OBJ, FBX, glTF/GLB and RSM models.

Controls:
  Drop file       - Load a model
  Left drag       - Orbit
  Right drag      - Pan
  Scroll          - Zoom
  Left click / F  - Re-fit camera
  W               - Toggle wireframe
  R, [ ]          - Toggle auto-rotation, rotation speed
  C               - Cycle color
  - =             - Opacity
  X/Y/Z, Up/Down  - Select clip axis, move clip plane
  0               - Reset clipping
  B               - Toggle bounding box
  Esc             - Quit`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			cfg, err := config.Load(c.flags)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
				return err
			}
			c.cfg = cfg

			// Initialize logger
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
				fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
				return err
			}
			logger.Sugar.Debugf("Config: %+v", cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	c.flags = config.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newViewCmd(c),
		newInspectCmd(c),
		newConfigCmd(c),
		newSampleCmd(),
	)
	return root
}
