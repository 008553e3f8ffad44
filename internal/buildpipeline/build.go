// Package buildpipeline drives a CSS module build: it loads the identifier
// map, scans the sources, allocates identifiers, writes the rewritten
// stylesheets and finally persists the map.
package buildpipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"cssident/internal/cssscan"
	"cssident/internal/ident"
	"cssident/internal/identmap"
	"cssident/internal/logging"
	"cssident/internal/plugin"
	"cssident/internal/scancache"
)

// BuildRequest configures a build.
type BuildRequest struct {
	// Root is the directory sources are searched in and keys are relative to
	// unless the plugin sets its own context.
	Root string
	// Include and Ignore are doublestar globs relative to Root.
	Include []string
	Ignore  []string
	// OutDir receives the rewritten files; relative paths are resolved
	// against Root. Empty skips writing.
	OutDir string
	// EmitExports writes <file>.json next to every rewritten file.
	EmitExports bool
	// Jobs bounds concurrent file work; 0 means GOMAXPROCS.
	Jobs uint
	// Production is passed to the plugin as the host build mode.
	Production bool

	Plugin   *plugin.Plugin
	Cache    *scancache.DiskCache
	Progress ProgressSink
	Logger   *slog.Logger
}

// FileResult describes one processed file.
type FileResult struct {
	// Path is slash-separated and relative to Root.
	Path string
	// Exports maps local class names to emitted identifiers in order of
	// first appearance.
	Exports *ident.Map
	// OutputPath is the written file, empty when OutDir was empty.
	OutputPath string
	Cached     bool
}

// BuildResult captures the processed files and timings.
type BuildResult struct {
	Files     []FileResult
	Timings   Timings
	CacheHits int
}

type sourceFile struct {
	rel   string
	abs   string
	data  []byte
	names []string
	hit   bool
}

// Build runs every stage in order and stops at the first failure.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	if req.Plugin == nil {
		return result, fmt.Errorf("missing plugin")
	}
	log := logging.OrNop(req.Logger)

	root := req.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return result, fmt.Errorf("failed to resolve root: %w", err)
	}
	outDir := req.OutDir
	if outDir != "" && !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}
	jobs, err := jobLimit(req.Jobs)
	if err != nil {
		return result, err
	}

	p := req.Plugin
	p.Apply(plugin.Host{Context: root, Production: req.Production})

	// load
	start := time.Now()
	emitStage(req.Progress, nil, StageLoad, StatusWorking, nil, 0)
	if err := p.BeforeCompile(); err != nil {
		emitStage(req.Progress, nil, StageLoad, StatusError, err, 0)
		return result, err
	}
	result.Timings.Set(StageLoad, time.Since(start))
	emitStage(req.Progress, nil, StageLoad, StatusDone, nil, result.Timings.Duration(StageLoad))

	// scan
	start = time.Now()
	files, err := Discover(root, req.Include, req.Ignore, relativeSkipDir(root, outDir))
	if err != nil {
		emitStage(req.Progress, nil, StageScan, StatusError, err, 0)
		return result, err
	}
	emitQueued(req.Progress, files)
	sources, hits, err := scanFiles(ctx, root, files, jobs, req.Cache, req.Progress, log)
	result.CacheHits = hits
	if err != nil {
		return result, err
	}
	result.Timings.Set(StageScan, time.Since(start))
	log.Debug("scanned CSS modules", "files", len(sources), "cache_hits", hits)

	// allocate
	start = time.Now()
	emitStage(req.Progress, nil, StageAllocate, StatusWorking, nil, 0)
	result.Files = make([]FileResult, len(sources))
	for i, src := range sources {
		exports := ident.NewMap()
		for _, name := range src.names {
			exports.Set(name, p.LocalIdent(src.abs, name))
		}
		result.Files[i] = FileResult{Path: src.rel, Exports: exports, Cached: src.hit}
	}
	result.Timings.Set(StageAllocate, time.Since(start))
	emitStage(req.Progress, nil, StageAllocate, StatusDone, nil, result.Timings.Duration(StageAllocate))

	// rewrite
	if outDir != "" {
		start = time.Now()
		indent := p.Options().MapIndent
		if err := rewriteFiles(ctx, outDir, sources, result.Files, jobs, indent, req.EmitExports, req.Progress); err != nil {
			return result, err
		}
		result.Timings.Set(StageRewrite, time.Since(start))
	}

	// emit
	start = time.Now()
	emitStage(req.Progress, nil, StageEmit, StatusWorking, nil, 0)
	if err := p.AfterEmit(); err != nil {
		emitStage(req.Progress, nil, StageEmit, StatusError, err, 0)
		return result, err
	}
	result.Timings.Set(StageEmit, time.Since(start))
	emitStage(req.Progress, nil, StageEmit, StatusDone, nil, result.Timings.Duration(StageEmit))
	for _, f := range files {
		emitFile(req.Progress, f, StageEmit, StatusDone, nil, 0)
	}
	return result, nil
}

func jobLimit(jobs uint) (int, error) {
	if jobs == 0 {
		return runtime.GOMAXPROCS(0), nil
	}
	n, err := safecast.Conv[int](jobs)
	if err != nil {
		return 0, fmt.Errorf("jobs overflow: %w", err)
	}
	return n, nil
}

func scanFiles(ctx context.Context, root string, files []string, jobs int, cache *scancache.DiskCache, sink ProgressSink, log *slog.Logger) ([]sourceFile, int, error) {
	sources := make([]sourceFile, len(files))
	if len(files) == 0 {
		return sources, 0, nil
	}
	var hits atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			emitFile(sink, rel, StageScan, StatusWorking, nil, 0)
			abs := filepath.Join(root, filepath.FromSlash(rel))
			data, err := os.ReadFile(abs)
			if err != nil {
				err = fmt.Errorf("failed to read %q: %w", rel, err)
				emitFile(sink, rel, StageScan, StatusError, err, 0)
				return err
			}
			key := scancache.Sum(data)
			names, hit, err := cache.Get(key)
			if err != nil {
				log.Warn("ignoring unreadable scan cache entry", "file", rel, "err", err)
			}
			if hit {
				hits.Add(1)
			} else {
				names = cssscan.Names(data)
				if err := cache.Put(key, names); err != nil {
					log.Warn("failed to store scan cache entry", "file", rel, "err", err)
				}
			}
			sources[i] = sourceFile{rel: rel, abs: abs, data: data, names: names, hit: hit}
			emitFile(sink, rel, StageScan, StatusDone, nil, time.Since(started))
			return nil
		})
	}
	err := g.Wait()
	return sources, int(hits.Load()), err
}

func rewriteFiles(ctx context.Context, outDir string, sources []sourceFile, results []FileResult, jobs, indent int, exports bool, sink ProgressSink) error {
	if len(sources) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(sources)))
	for i := range sources {
		src := sources[i]
		res := &results[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			emitFile(sink, src.rel, StageRewrite, StatusWorking, nil, 0)
			out := filepath.Join(outDir, filepath.FromSlash(src.rel))
			css := cssscan.Rewrite(src.data, func(name string) string {
				id, _ := res.Exports.Get(name)
				return id
			})
			if err := writeOutput(out, css); err != nil {
				emitFile(sink, src.rel, StageRewrite, StatusError, err, 0)
				return err
			}
			if exports {
				if err := writeOutput(out+".json", identmap.Stringify(res.Exports, indent)); err != nil {
					emitFile(sink, src.rel, StageRewrite, StatusError, err, 0)
					return err
				}
			}
			res.OutputPath = out
			emitFile(sink, src.rel, StageRewrite, StatusDone, nil, time.Since(started))
			return nil
		})
	}
	return g.Wait()
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write build output %q: %w", path, err)
	}
	return nil
}

func emitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageScan, Status: StatusQueued})
	}
}

func emitStage(sink ProgressSink, files []string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}

func emitFile(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
