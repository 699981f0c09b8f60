package main

import (
	"fmt"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/Faultbox/meshview/internal/inspect"
)

func newInspectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <model>...",
		Short: "Decode models without a window and print what they contain",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := inspect.Run(cmd.Context(), c.cfg, args)
			if err != nil {
				return err
			}
			out := termenv.NewOutput(cmd.OutOrStdout())
			if failed := inspect.Write(cmd.OutOrStdout(), out, reports); failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(reports))
			}
			return nil
		},
	}
}
