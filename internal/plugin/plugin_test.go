package plugin

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cssident/internal/ident"
	"cssident/internal/identerr"
	"cssident/internal/identmap"
	"cssident/internal/logging"
)

func boolPtr(v bool) *bool { return &v }

func newPlugin(t *testing.T, opts Options) *Plugin {
	t.Helper()
	p, err := New(opts)
	require.NoError(t, err)
	return p
}

func writeMap(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readMap(t *testing.T, path string) *ident.Map {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	m, _, err := identmap.Load(data, path)
	require.NoError(t, err)
	return m
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeDefault, got)

	got, err = ParseMode(" Extend-Map ")
	require.NoError(t, err)
	assert.Equal(t, ModeExtendMap, got)

	_, err = ParseMode("merge-map")
	require.Error(t, err)
	assert.ErrorIs(t, err, identerr.ErrConfiguration)
	assert.Contains(t, err.Error(), `Invalid "mode" option`)
}

func TestModePredicates(t *testing.T) {
	tests := []struct {
		mode                 Mode
		loads, saves, remove bool
	}{
		{ModeDefault, true, true, false},
		{ModeLoadMap, true, false, false},
		{ModeExtendMap, true, true, false},
		{ModeConsumeMap, true, false, true},
		{ModeCreateMap, false, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.loads, tt.mode.Loads())
			assert.Equal(t, tt.saves, tt.mode.Saves())
			assert.Equal(t, tt.remove, tt.mode.Removes())
		})
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := New(Options{Mode: "bogus"})
	assert.ErrorIs(t, err, identerr.ErrConfiguration)

	_, err = New(Options{Options: ident.Options{Exclude: []string{"*a"}}})
	assert.ErrorIs(t, err, identerr.ErrConfiguration)
}

func TestNewResolvesDefaults(t *testing.T) {
	p := newPlugin(t, Options{})
	res := p.Options()
	assert.Equal(t, ModeDefault, res.Mode)
	assert.Equal(t, identmap.DefaultIndent, res.MapIndent)
	assert.Nil(t, res.Enabled)
	assert.Equal(t, []string{"app", "root"}, res.Exclude)
	assert.Equal(t, []string{"ad"}, res.ExcludePrefix)
}

func TestNewNormalisesMode(t *testing.T) {
	p := newPlugin(t, Options{Mode: " Extend-Map "})
	assert.Equal(t, ModeExtendMap, p.Options().Mode)

	dir := t.TempDir()
	p = newPlugin(t, Options{Filename: "map.json", Mode: "Extend-Map", Enabled: boolPtr(true)})
	p.Apply(Host{Context: dir})
	assert.ErrorIs(t, p.BeforeCompile(), identerr.ErrRead)

	writeMap(t, filepath.Join(dir, "map.json"), `{"src/a.css/old":"q"}`)
	p = newPlugin(t, Options{Filename: "map.json", Mode: "EXTEND-MAP", Enabled: boolPtr(true)})
	p.Apply(Host{Context: dir})
	require.NoError(t, p.BeforeCompile())
	assert.Equal(t, "r", p.LocalIdent(filepath.Join(dir, "src", "a.css"), "new"))
	require.NoError(t, p.AfterEmit())
	assert.Equal(t, []string{"src/a.css/old", "src/a.css/new"}, readMap(t, filepath.Join(dir, "map.json")).Keys())
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestApplyFirstCallWins(t *testing.T) {
	dir := t.TempDir()
	p := newPlugin(t, Options{Filename: "ids.json"})
	p.Apply(Host{Context: dir, Production: false})
	p.Apply(Host{Context: t.TempDir(), Production: true})

	assert.False(t, p.Enabled())
	assert.Equal(t, dir, p.ContextDir())
	assert.Equal(t, filepath.Join(dir, "ids.json"), p.MapPath())
}

func TestApplyHonoursExplicitOptions(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "map.json")
	p := newPlugin(t, Options{Filename: abs, Context: dir, Enabled: boolPtr(true)})
	p.Apply(Host{Context: t.TempDir(), Production: false})

	assert.True(t, p.Enabled())
	assert.Equal(t, dir, p.ContextDir())
	assert.Equal(t, abs, p.MapPath())
}

func TestKeyAndLocalIdent(t *testing.T) {
	dir := t.TempDir()
	css := filepath.Join(dir, "src", "button.module.css")

	p := newPlugin(t, Options{})
	p.Apply(Host{Context: dir, Production: true})
	assert.Equal(t, "src/button.module.css/root", p.Key(css, "root"))

	assert.Equal(t, "a", p.LocalIdent(css, "root"))
	assert.Equal(t, "b", p.LocalIdent(css, "icon"))
	assert.Equal(t, "a", p.LocalIdent(css, "root"))
	assert.Equal(t, "c", p.GenerateIdent("other"))
}

func TestKeyIsNFCNormalised(t *testing.T) {
	dir := t.TempDir()
	p := newPlugin(t, Options{})
	p.Apply(Host{Context: dir, Production: true})
	decomposed := "cafe\u0301"
	assert.Equal(t, "x.css/caf\u00e9", p.Key(filepath.Join(dir, "x.css"), decomposed))
}

func TestLocalIdentDisabledIsReadable(t *testing.T) {
	dir := t.TempDir()
	p := newPlugin(t, Options{})
	p.Apply(Host{Context: dir, Production: false})

	got := p.LocalIdent(filepath.Join(dir, "src", "card.module.css"), "title")
	assert.Equal(t, "src-card-module-css-title", got)
	assert.Equal(t, 0, p.Generator().Len())
}

func TestModeMatrix(t *testing.T) {
	const existing = `{"src/a.css/old":"q"}`
	tests := []struct {
		mode     Mode
		seed     bool
		wantErr  error
		wantNew  string
		wantFile []string // keys of the map file after the build, nil = absent
		keepFile bool     // file bytes unchanged
	}{
		{mode: ModeDefault, seed: true, wantNew: "r", wantFile: []string{"src/a.css/old", "src/a.css/new"}},
		{mode: ModeDefault, seed: false, wantNew: "a", wantFile: []string{"src/a.css/new"}},
		{mode: ModeLoadMap, seed: true, wantNew: "r", keepFile: true},
		{mode: ModeLoadMap, seed: false, wantErr: identerr.ErrRead},
		{mode: ModeExtendMap, seed: true, wantNew: "r", wantFile: []string{"src/a.css/old", "src/a.css/new"}},
		{mode: ModeExtendMap, seed: false, wantErr: identerr.ErrRead},
		{mode: ModeConsumeMap, seed: true, wantNew: "r"},
		{mode: ModeConsumeMap, seed: false, wantErr: identerr.ErrRead},
		{mode: ModeCreateMap, seed: true, wantNew: "a", wantFile: []string{"src/a.css/new"}},
		{mode: ModeCreateMap, seed: false, wantNew: "a", wantFile: []string{"src/a.css/new"}},
	}
	for _, tt := range tests {
		name := string(tt.mode)
		if !tt.seed {
			name += "/missing"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "css-idents.json")
			if tt.seed {
				writeMap(t, path, existing)
			}
			p := newPlugin(t, Options{Filename: "css-idents.json", Mode: tt.mode})
			p.Apply(Host{Context: dir, Production: true})

			err := p.BeforeCompile()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			css := filepath.Join(dir, "src", "a.css")
			assert.Equal(t, tt.wantNew, p.LocalIdent(css, "new"))
			require.NoError(t, p.AfterEmit())

			switch {
			case tt.keepFile:
				got, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, existing, string(got))
			case tt.wantFile == nil:
				_, err := os.Stat(path)
				assert.True(t, os.IsNotExist(err))
			default:
				assert.Equal(t, tt.wantFile, readMap(t, path).Keys())
			}
		})
	}
}

func TestRecallsLoadedIdentifiers(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, filepath.Join(dir, "m.json"), `{"src/a.css/btn":"k","src/a.css/icon":"c"}`)
	p := newPlugin(t, Options{Filename: "m.json", Mode: ModeLoadMap})
	p.Apply(Host{Context: dir, Production: true})
	require.NoError(t, p.BeforeCompile())

	css := filepath.Join(dir, "src", "a.css")
	assert.Equal(t, "k", p.LocalIdent(css, "btn"))
	assert.Equal(t, "c", p.LocalIdent(css, "icon"))
	assert.Equal(t, "l", p.LocalIdent(css, "label"))
}

func TestBeforeCompileRejectsInvalidMap(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, filepath.Join(dir, "m.json"), `{"x":"0"}`)
	p := newPlugin(t, Options{Filename: "m.json"})
	p.Apply(Host{Context: dir, Production: true})
	err := p.BeforeCompile()
	assert.ErrorIs(t, err, identerr.ErrValidation)
}

func TestDisabledPluginLeavesMapAlone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")
	writeMap(t, path, "not json")
	p := newPlugin(t, Options{Filename: "m.json", Mode: ModeExtendMap})
	p.Apply(Host{Context: dir, Production: false})

	require.NoError(t, p.BeforeCompile())
	p.LocalIdent(filepath.Join(dir, "a.css"), "x")
	require.NoError(t, p.AfterEmit())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(got))
}

func TestConsumeMapRemovalFailureOnlyWarns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")
	writeMap(t, path, `{}`)

	var logs bytes.Buffer
	log := logging.New(logging.Config{Level: logging.LevelWarn, Output: &logs})
	p := newPlugin(t, Options{Filename: "m.json", Mode: ModeConsumeMap, Logger: log})
	p.Apply(Host{Context: dir, Production: true})
	require.NoError(t, p.BeforeCompile())

	require.NoError(t, os.Remove(path))
	require.NoError(t, p.AfterEmit())
	assert.Contains(t, logs.String(), "Failure to remove CSS identifier map file")
}

func TestSaveUsesConfiguredIndent(t *testing.T) {
	dir := t.TempDir()
	indent := 0
	p := newPlugin(t, Options{Filename: "out/m.json", MapIndent: &indent, Mode: ModeCreateMap})
	p.Apply(Host{Context: dir, Production: true})
	require.NoError(t, p.BeforeCompile())
	p.GenerateIdent("k")
	require.NoError(t, p.AfterEmit())

	got, err := os.ReadFile(filepath.Join(dir, "out", "m.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\"k\":\"a\"}\n", string(got))
	assert.Equal(t, got, p.MapBytes())
}

func TestSaveFailureIsWriteError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "m.json"), 0o755))
	p := newPlugin(t, Options{Filename: "m.json", Mode: ModeCreateMap})
	p.Apply(Host{Context: dir, Production: true})
	p.GenerateIdent("k")
	assert.ErrorIs(t, p.AfterEmit(), identerr.ErrWrite)
}
