// Package plugin adapts the identifier allocator to a build lifecycle.
//
// A build calls Apply once with facts about the host build, BeforeCompile
// before any CSS is processed, LocalIdent for every local class name it
// meets, and AfterEmit once output has been written. Depending on Mode the
// plugin loads the persisted map first and saves or removes it at the end.
package plugin

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/text/unicode/norm"

	"cssident/internal/cssscan"
	"cssident/internal/ident"
	"cssident/internal/identmap"
	"cssident/internal/logging"
)

// Options configures a Plugin.
type Options struct {
	ident.Options

	// Filename is the map file. Relative paths are resolved against the
	// context directory. Empty disables persistence.
	Filename string
	// Context is the directory keys are made relative to. Empty means the
	// host context given to Apply.
	Context string
	// MapIndent is the indent of the saved map; nil means 2.
	MapIndent *int
	// Mode governs loading and saving of the map; empty means ModeDefault.
	Mode Mode
	// Enabled forces minification on or off; nil follows Host.Production.
	Enabled *bool
	// Logger receives warnings; nil discards them.
	Logger *slog.Logger
}

// Resolved is the immutable form of Options.
type Resolved struct {
	ident.Resolved

	Filename  string
	Context   string
	MapIndent int
	Mode      Mode
	Enabled   *bool
}

// Host describes the build the plugin is applied to.
type Host struct {
	// Context is the build root directory.
	Context string
	// Production selects minification when Options.Enabled is nil.
	Production bool
}

// Plugin wires a Generator to the build lifecycle.
type Plugin struct {
	opts Resolved
	gen  *ident.Generator
	log  *slog.Logger

	applied bool
	enabled bool
	context string
	mapPath string
}

// New validates opts and creates a plugin with a fresh Generator.
func New(opts Options) (*Plugin, error) {
	gen, err := ident.New(opts.Options)
	if err != nil {
		return nil, err
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	indent := identmap.DefaultIndent
	if opts.MapIndent != nil {
		indent = *opts.MapIndent
	}
	var enabled *bool
	if opts.Enabled != nil {
		v := *opts.Enabled
		enabled = &v
	}
	return &Plugin{
		opts: Resolved{
			Resolved:  gen.Options(),
			Filename:  opts.Filename,
			Context:   opts.Context,
			MapIndent: indent,
			Mode:      mode,
			Enabled:   enabled,
		},
		gen: gen,
		log: logging.OrNop(opts.Logger),
	}, nil
}

var (
	defaultOnce   sync.Once
	defaultPlugin *Plugin
)

// Default returns a process-wide plugin with default options, created on
// first use. It exists for one-shot entry points; code that can hold its own
// *Plugin should.
func Default() *Plugin {
	defaultOnce.Do(func() {
		// default options always resolve
		defaultPlugin, _ = New(Options{})
	})
	return defaultPlugin
}

// Options returns the resolved options.
func (p *Plugin) Options() Resolved {
	out := p.opts
	out.Resolved = p.gen.Options()
	return out
}

// Apply binds the plugin to a host build. Only the first call has an effect.
func (p *Plugin) Apply(h Host) {
	if p.applied {
		return
	}
	p.applied = true
	if p.opts.Enabled != nil {
		p.enabled = *p.opts.Enabled
	} else {
		p.enabled = h.Production
	}
	ctx := p.opts.Context
	if ctx == "" {
		ctx = h.Context
	}
	if ctx == "" {
		ctx = "."
	}
	if abs, err := filepath.Abs(ctx); err == nil {
		ctx = abs
	}
	p.context = ctx
	if p.opts.Filename != "" {
		p.mapPath = p.opts.Filename
		if !filepath.IsAbs(p.mapPath) {
			p.mapPath = filepath.Join(ctx, p.mapPath)
		}
	}
}

// ensureApplied applies a production host rooted at the working directory
// when the caller never called Apply.
func (p *Plugin) ensureApplied() {
	if !p.applied {
		wd, err := os.Getwd()
		if err != nil {
			wd = "."
		}
		p.Apply(Host{Context: wd, Production: true})
	}
}

// Enabled reports whether identifiers are minified.
func (p *Plugin) Enabled() bool {
	p.ensureApplied()
	return p.enabled
}

// ContextDir returns the absolute directory keys are relative to.
func (p *Plugin) ContextDir() string {
	p.ensureApplied()
	return p.context
}

// MapPath returns the resolved map file path, or "" without persistence.
func (p *Plugin) MapPath() string {
	p.ensureApplied()
	return p.mapPath
}

// Generator exposes the underlying allocator.
func (p *Plugin) Generator() *ident.Generator { return p.gen }

// BeforeCompile loads the persisted map when the mode asks for it. In
// ModeDefault a missing map file is not an error.
func (p *Plugin) BeforeCompile() error {
	p.ensureApplied()
	if !p.enabled || p.mapPath == "" || !p.opts.Mode.Loads() {
		return nil
	}
	data, found, err := identmap.Read(p.mapPath, p.opts.Mode.toleratesMissing())
	if err != nil {
		return err
	}
	if !found {
		p.log.Debug("no CSS identifier map yet", "path", p.mapPath)
		return nil
	}
	m, top, err := identmap.Load(data, p.mapPath)
	if err != nil {
		return err
	}
	p.gen.ImportMap(m)
	p.log.Debug("loaded CSS identifier map", "path", p.mapPath, "entries", m.Len(), "last", top)
	return nil
}

// AfterEmit saves or removes the map file depending on the mode. A failed
// removal is logged and ignored.
func (p *Plugin) AfterEmit() error {
	p.ensureApplied()
	if !p.enabled || p.mapPath == "" {
		return nil
	}
	switch {
	case p.opts.Mode.Removes():
		if err := identmap.Remove(p.mapPath, p.log); err == nil {
			p.log.Debug("removed CSS identifier map", "path", p.mapPath)
		}
		return nil
	case p.opts.Mode.Saves():
		if err := identmap.Save(p.mapPath, p.MapBytes(), p.log); err != nil {
			return err
		}
		p.log.Debug("saved CSS identifier map", "path", p.mapPath, "entries", p.gen.Len())
	}
	return nil
}

// MapBytes serialises the live map at the configured indent.
func (p *Plugin) MapBytes() []byte {
	return identmap.Stringify(p.gen.Map(), p.opts.MapIndent)
}

// Key builds the allocator key of a local class name declared in the file at
// resourcePath: the slash-separated path relative to the context directory,
// a slash, and the local name, NFC-normalised.
func (p *Plugin) Key(resourcePath, localName string) string {
	ctx := p.ContextDir()
	path := resourcePath
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	if rel, err := filepath.Rel(ctx, path); err == nil {
		path = rel
	}
	return norm.NFC.String(filepath.ToSlash(path) + "/" + localName)
}

// LocalIdent returns the identifier to emit for localName declared in
// resourcePath. When minification is disabled the key is returned in a
// readable, escaped form instead.
func (p *Plugin) LocalIdent(resourcePath, localName string) string {
	key := p.Key(resourcePath, localName)
	if !p.Enabled() {
		return cssscan.EscapeLocalIdent(key)
	}
	id := p.gen.GenerateIdent(key)
	if _, ok := p.gen.Lookup(key); !ok {
		// identifier space exhausted, the key came back as is
		return cssscan.EscapeLocalIdent(key)
	}
	return id
}

// GenerateIdent allocates or recalls the identifier of an arbitrary key.
func (p *Plugin) GenerateIdent(key string) string {
	return p.gen.GenerateIdent(key)
}
