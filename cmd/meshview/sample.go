package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/meshview/internal/fixtures"
)

func newSampleCmd() *cobra.Command {
	keys := make([]string, 0, len(fixtures.Names))
	for k := range fixtures.Names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dir string
	cmd := &cobra.Command{
		Use:       "sample <format>...",
		Short:     "Write a unit cube model in the given formats",
		Long:      "Write a unit cube model for each format: " + strings.Join(keys, ", ") + ", or all.",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: append(keys, "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "all" {
				args = keys
			}
			for _, key := range args {
				path, err := writeSample(dir, key)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Output directory")
	return cmd
}

func writeSample(dir, key string) (string, error) {
	name, ok := fixtures.Names[key]
	if !ok {
		return "", fmt.Errorf("unknown sample format %q", key)
	}
	data, err := fixtures.ByName(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
