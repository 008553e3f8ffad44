// Package main implements the cssident CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cssident/internal/logging"
	"cssident/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "cssident",
	Short:         "Short, stable CSS class identifiers",
	Long:          `cssident rewrites CSS module class names into short identifiers and keeps them stable across builds with a persisted map.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupGlobals(cmd)
	},
}

// logger is configured from the persistent flags before any command runs.
var logger = logging.Nop()

func init() {
	rootCmd.Version = version.Current().Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func setupGlobals(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	colorValue, err := flags.GetString("color")
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(colorValue)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorValue)
	}

	levelValue, err := flags.GetString("log-level")
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(levelValue)
	if err != nil {
		return err
	}
	formatValue, err := flags.GetString("log-format")
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	logger = logging.New(logging.Config{Level: level, Format: format, Output: os.Stderr})
	slog.SetDefault(logger)
	return nil
}

func printError(err error) {
	prefix := color.New(color.FgRed, color.Bold).Sprint("error:")
	fmt.Fprintf(os.Stderr, "%s %s\n", prefix, err)
}

func quiet(cmd *cobra.Command) bool {
	v, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && v
}

func showTimings(cmd *cobra.Command) bool {
	v, err := cmd.Root().PersistentFlags().GetBool("timings")
	return err == nil && v
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
