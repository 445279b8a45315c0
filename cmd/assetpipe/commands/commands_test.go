package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
)

type cliEnv struct {
	dir        string
	configPath string
	out        *bytes.Buffer
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	write("assetpipe.yaml", "manifest: assets.yaml\n"+
		"build_directory: var/build\n"+
		"public_directory: public/assets\n"+
		"cache:\n  backend: sqlite\n  path: var/cache.db\n"+
		"server:\n  watch: false\n")
	write("assets.yaml", "assets:\n"+
		"  - name: site.styles\n"+
		"    sources: [css/reset.css, css/site.css]\n"+
		"  - name: site.scripts\n"+
		"    sources: [js/app.js]\n")
	write("css/reset.css", "*{margin:0}\n")
	write("css/site.css", "body{color:red}\n")
	write("js/app.js", "run()\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "var"), 0o750))

	return &cliEnv{dir: dir, configPath: filepath.Join(dir, "assetpipe.yaml"), out: &bytes.Buffer{}}
}

func (e *cliEnv) global() *Global {
	return &Global{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:    e.out,
	}
}

func (e *cliEnv) root() *CLI {
	return &CLI{Config: e.configPath}
}

func styleID(t *testing.T) string {
	t.Helper()
	bp, err := asset.NewBlueprint("site.styles", []string{"css/reset.css", "css/site.css"}, "", "")
	require.NoError(t, err)
	return bp.ID()
}

func TestInitWritesConfigAndManifest(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	root := &CLI{Config: filepath.Join(dir, "assetpipe.yaml")}

	require.NoError(t, (&InitCmd{}).Run(&Global{Out: out}, root))
	assert.FileExists(t, root.Config)
	assert.Contains(t, out.String(), "Writing example manifest")

	f, err := manifest.ReadFile(filepath.Join(dir, "assets.yaml"))
	require.NoError(t, err)
	mf := manifest.New(nil)
	require.NoError(t, mf.RegisterAll(f.Assets))
	assert.True(t, mf.HasAsset("htmx"))

	err = (&InitCmd{}).Run(&Global{Out: out}, root)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))

	out.Reset()
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{Out: out}, root))
	assert.Contains(t, out.String(), "Writing example manifest")
}

func TestListTable(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, (&ListCmd{Format: "table"}).Run(env.global(), env.root()))

	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[2], "site.styles")
	assert.Contains(t, lines[2], styleID(t))
}

func TestListJSON(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, (&ListCmd{Format: "json"}).Run(env.global(), env.root()))

	var regs []manifest.Registration
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &regs))
	require.Len(t, regs, 2)
	assert.Equal(t, "site.scripts", regs[0].Name)
	assert.Equal(t, "script", regs[0].Type)
	assert.Equal(t, styleID(t), regs[1].AssetID)
}

func TestBuildAll(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, (&BuildCmd{}).Run(env.global(), env.root()))
	assert.Contains(t, env.out.String(), "/assets/"+styleID(t)+".css")

	data, err := os.ReadFile(filepath.Join(env.dir, "public/assets", styleID(t)+".css"))
	require.NoError(t, err)
	assert.Equal(t, "*{margin:0}\nbody{color:red}\n", string(data))
	assert.FileExists(t, filepath.Join(env.dir, "var/build", styleID(t)+".css"))
	assert.FileExists(t, filepath.Join(env.dir, "var/cache.db"))
}

func TestBuildForceRebuilds(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, (&BuildCmd{Names: []string{"site.styles"}}).Run(env.global(), env.root()))

	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "css/site.css"), []byte("body{color:blue}\n"), 0o600))
	require.NoError(t, (&BuildCmd{Names: []string{"site.styles"}, Force: true}).Run(env.global(), env.root()))

	data, err := os.ReadFile(filepath.Join(env.dir, "public/assets", styleID(t)+".css"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "blue")
}

func TestBuildUnknownNameFails(t *testing.T) {
	env := newCLIEnv(t)
	err := (&BuildCmd{Names: []string{"site.styles", "nope"}}).Run(env.global(), env.root())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
	assert.Contains(t, env.out.String(), "site.styles")
}

func TestResolve(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, (&ResolveCmd{Names: []string{"site.styles", "site.scripts"}}).Run(env.global(), env.root()))

	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `<link rel="stylesheet" href="/assets/`+styleID(t)+`.css">`, lines[0])
	assert.Contains(t, lines[1], "<script")
}

func TestResolveReportsMissing(t *testing.T) {
	env := newCLIEnv(t)
	err := (&ResolveCmd{Names: []string{"site.styles", "ghost"}, NoCache: true}).Run(env.global(), env.root())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
	assert.Contains(t, err.Error(), "ghost")
	assert.Contains(t, env.out.String(), "<link")
}

func TestMissingConfig(t *testing.T) {
	root := &CLI{Config: filepath.Join(t.TempDir(), "absent.yaml")}
	err := (&ListCmd{Format: "table"}).Run(&Global{Out: io.Discard}, root)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestServeStopsWithContext(t *testing.T) {
	env := newCLIEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	g := env.global()
	g.Context = ctx

	err := (&ServeCmd{Addr: "127.0.0.1:0"}).Run(g, env.root())
	assert.NoError(t, err)
}

func TestKongGrammar(t *testing.T) {
	env := newCLIEnv(t)
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("assetpipe"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"--config", env.configPath, "list", "--format", "json"})
	require.NoError(t, err)
	assert.Equal(t, "list", kctx.Command())
	require.NoError(t, kctx.Run(env.global(), &cli))
	assert.Contains(t, env.out.String(), "site.styles")

	_, err = parser.Parse([]string{"list", "--format", "xml"})
	assert.Error(t, err)

	kctx, err = parser.Parse([]string{"resolve", "a", "b", "--no-cache"})
	require.NoError(t, err)
	assert.Equal(t, "resolve <names>", kctx.Command())
	assert.Equal(t, []string{"a", "b"}, cli.Resolve.Names)
	assert.True(t, cli.Resolve.NoCache)
}
