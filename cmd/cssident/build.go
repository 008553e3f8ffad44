package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cssident/internal/buildpipeline"
	"cssident/internal/ident"
	"cssident/internal/plugin"
	"cssident/internal/scancache"
)

// cacheApp names the directory below the user cache dir.
const cacheApp = "cssident"

var buildCmd = newBuildCmd()

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [flags] [path]",
		Short: "Rewrite CSS module class names into short identifiers",
		Long: `Scan the CSS modules below path (or the [css].root of cssident.toml), assign every
local class name a short identifier and write the rewritten files. The identifier map
is loaded and saved according to --mode so identifiers stay stable across builds.`,
		Args: cobra.MaximumNArgs(1),
		RunE: buildExecution,
	}
	flags := cmd.Flags()
	flags.String("out", "", "output directory for rewritten files")
	flags.StringSlice("include", nil, "doublestar globs of the files to process (default **/*.module.css)")
	flags.StringSlice("ignore", nil, "doublestar globs of files to skip")
	flags.Bool("exports", false, "write <file>.json with the local name -> identifier map")
	flags.String("map", "", "identifier map file")
	flags.String("mode", "", "map mode (default|load-map|extend-map|consume-map|create-map)")
	flags.Int("map-indent", 2, "indent of the saved map (0 = compact)")
	flags.StringSlice("exclude", nil, `identifiers never produced; a trailing "*" excludes a prefix`)
	flags.String("start-ident", "", "last identifier considered used")
	flags.String("minify", "auto", "minify identifiers (auto|on|off); auto follows --dev/--release")
	flags.Bool("release", false, "production build (default)")
	flags.Bool("dev", false, "development build: readable identifiers unless --minify=on")
	flags.Uint("jobs", 0, "concurrent file jobs (0 = GOMAXPROCS)")
	flags.Bool("no-cache", false, "do not read or write the scan cache")
	flags.String("ui", "auto", "progress UI (auto|on|off)")
	return cmd
}

// buildSettings is the merged view of cssident.toml and the command line.
type buildSettings struct {
	root        string
	include     []string
	ignore      []string
	out         string
	exports     bool
	mapFile     string
	mode        plugin.Mode
	indent      int
	exclude     []string
	startIdent  string
	minify      switchMode
	production  bool
	jobs        uint
	noCache     bool
	ui          switchMode
	displayRoot string
}

func buildExecution(cmd *cobra.Command, args []string) error {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	start := "."
	if len(args) > 0 && args[0] != "" {
		start = args[0]
	}
	manifest, _, err := loadProjectManifest(start)
	if err != nil {
		return err
	}
	settings, err := resolveBuildSettings(cmd, start, manifest)
	if err != nil {
		return err
	}

	p, err := plugin.New(plugin.Options{
		Options:   ident.Options{Exclude: settings.exclude, StartIdent: settings.startIdent},
		Filename:  settings.mapFile,
		MapIndent: &settings.indent,
		Mode:      settings.mode,
		Enabled:   settings.minify.forced(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	var cache *scancache.DiskCache
	if !settings.noCache {
		cache, err = scancache.OpenDiskCache(cacheApp)
		if err != nil {
			logger.Warn("scan cache unavailable", "err", err)
			cache = nil
		}
	}

	req := buildpipeline.BuildRequest{
		Root:        settings.root,
		Include:     settings.include,
		Ignore:      settings.ignore,
		OutDir:      settings.out,
		EmitExports: settings.exports,
		Jobs:        settings.jobs,
		Production:  settings.production,
		Plugin:      p,
		Cache:       cache,
		Logger:      logger,
	}

	var res buildpipeline.BuildResult
	if shouldUseTUI(settings.ui) && !quiet(cmd) {
		res, err = runBuildWithUI(cmd.Context(), "cssident build", &req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), &req)
	}
	out := cmd.OutOrStdout()
	if showTimings(cmd) {
		if timingErr := printStageTimings(out, res.Timings); timingErr != nil && err == nil {
			err = timingErr
		}
	}
	if err != nil {
		return err
	}
	if quiet(cmd) {
		return nil
	}
	return printBuildSummary(out, settings, p, res)
}

func resolveBuildSettings(cmd *cobra.Command, start string, manifest *projectManifest) (buildSettings, error) {
	s := buildSettings{indent: 2, minify: switchAuto, production: true}
	flags := cmd.Flags()

	if manifest != nil {
		cfg := manifest.Config
		s.root = manifest.resolvePath(cfg.CSS.Root)
		if s.root == "" {
			s.root = manifest.Root
		}
		s.include = cfg.CSS.Include
		s.ignore = cfg.CSS.Ignore
		s.out = manifest.resolvePath(cfg.CSS.Out)
		s.exports = cfg.CSS.Exports
		s.mapFile = manifest.resolvePath(cfg.Map.File)
		// validated when the manifest was loaded
		s.mode, _ = plugin.ParseMode(cfg.Map.Mode)
		if cfg.Map.Indent != nil {
			s.indent = *cfg.Map.Indent
		}
		s.exclude = cfg.Idents.Exclude
		s.startIdent = cfg.Idents.Start
		s.minify, _ = readSwitch(cfg.Map.Minify)
		s.displayRoot = manifest.Root
	} else {
		abs, err := filepath.Abs(start)
		if err != nil {
			return s, fmt.Errorf("failed to resolve %q: %w", start, err)
		}
		s.root = abs
		s.displayRoot = abs
	}

	var err error
	if flags.Changed("out") {
		if s.out, err = absFlag(flags.GetString("out")); err != nil {
			return s, err
		}
	}
	if flags.Changed("include") {
		if s.include, err = flags.GetStringSlice("include"); err != nil {
			return s, err
		}
	}
	if flags.Changed("ignore") {
		if s.ignore, err = flags.GetStringSlice("ignore"); err != nil {
			return s, err
		}
	}
	if flags.Changed("exports") {
		if s.exports, err = flags.GetBool("exports"); err != nil {
			return s, err
		}
	}
	if flags.Changed("map") {
		if s.mapFile, err = absFlag(flags.GetString("map")); err != nil {
			return s, err
		}
	}
	if flags.Changed("mode") {
		value, err := flags.GetString("mode")
		if err != nil {
			return s, err
		}
		if s.mode, err = plugin.ParseMode(value); err != nil {
			return s, err
		}
	}
	if flags.Changed("map-indent") {
		if s.indent, err = flags.GetInt("map-indent"); err != nil {
			return s, err
		}
		if s.indent < 0 {
			return s, fmt.Errorf("--map-indent must not be negative")
		}
	}
	if flags.Changed("exclude") {
		if s.exclude, err = flags.GetStringSlice("exclude"); err != nil {
			return s, err
		}
		if s.exclude == nil {
			s.exclude = []string{}
		}
	}
	if flags.Changed("start-ident") {
		if s.startIdent, err = flags.GetString("start-ident"); err != nil {
			return s, err
		}
	}
	if flags.Changed("minify") {
		value, err := flags.GetString("minify")
		if err != nil {
			return s, err
		}
		if s.minify, err = readSwitch(value); err != nil {
			return s, fmt.Errorf("--minify: %w", err)
		}
	}
	release, err := flags.GetBool("release")
	if err != nil {
		return s, err
	}
	dev, err := flags.GetBool("dev")
	if err != nil {
		return s, err
	}
	if release && dev {
		return s, fmt.Errorf("--release and --dev are mutually exclusive")
	}
	s.production = !dev
	if s.jobs, err = flags.GetUint("jobs"); err != nil {
		return s, err
	}
	if s.noCache, err = flags.GetBool("no-cache"); err != nil {
		return s, err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return s, err
	}
	if s.ui, err = readSwitch(uiValue); err != nil {
		return s, fmt.Errorf("--ui: %w", err)
	}
	return s, nil
}

// absFlag resolves a path flag against the working directory.
func absFlag(value string, err error) (string, error) {
	if err != nil || value == "" {
		return value, err
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", value, err)
	}
	return abs, nil
}

func printBuildSummary(out io.Writer, s buildSettings, p *plugin.Plugin, res buildpipeline.BuildResult) error {
	names := 0
	for _, f := range res.Files {
		names += f.Exports.Len()
	}
	state := "minified"
	if !p.Enabled() {
		state = "readable"
	}
	if _, err := fmt.Fprintf(out, "processed %d file(s), %d class name(s), %s", len(res.Files), names, state); err != nil {
		return err
	}
	if res.CacheHits > 0 {
		if _, err := fmt.Fprintf(out, ", %d cached", res.CacheHits); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	if s.out != "" {
		if _, err := fmt.Fprintf(out, "wrote %s\n", formatPathForOutput(s.displayRoot, s.out)); err != nil {
			return err
		}
	}
	if path := p.MapPath(); path != "" && p.Enabled() {
		if _, err := fmt.Fprintf(out, "map %s (%s)\n", formatPathForOutput(s.displayRoot, path), p.Options().Mode); err != nil {
			return err
		}
	}
	return nil
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
