package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cssident/internal/scancache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the cssident scan cache",
	Long:  "Remove the cached scan results kept under $XDG_CACHE_HOME/cssident (or ~/.cache/cssident).",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	cache, err := scancache.OpenDiskCache(cacheApp)
	if err != nil {
		return fmt.Errorf("failed to open scan cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to remove %q: %w", cache.Dir(), err)
	}
	if quiet(cmd) {
		return nil
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", cache.Dir())
	return err
}
