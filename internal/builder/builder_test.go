package builder

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	"git.home.luguber.info/inful/assetpipe/internal/cache"
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/storage"
)

func settings() Settings {
	return Settings{BuildDir: "/build", PublicDir: "/public", PublicURL: "/assets"}
}

func configure(t *testing.T, name string, sources []string, kind, typ string, opts ...asset.Option) asset.Configuration {
	t.Helper()
	bp, err := asset.NewBlueprint(name, sources, kind, typ, opts...)
	require.NoError(t, err)
	cfg, err := asset.FromBlueprint(bp, nil)
	require.NoError(t, err)
	return cfg
}

func seeded() *storage.MemFS {
	fsys := storage.NewMemFS()
	fsys.Seed("/src/a.css", []byte("a{}\n"))
	fsys.Seed("/src/b.css", []byte("b{}\n"))
	fsys.Seed("/src/app.js", []byte("console.log(1)"))
	fsys.Seed("/src/app.js.map", []byte(`{"version":3}`))
	fsys.Seed("/src/c.css", []byte("c{}"))
	return fsys
}

func TestBuildBundled(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "app.bundle", []string{"/src/a.css", "/src/b.css"}, "local", "style")

	built, err := b.Build(context.Background(), cfg, settings(), "")
	require.NoError(t, err)

	id := cfg.Blueprint().ID()
	assert.Equal(t, id, built.ID)
	assert.Equal(t, id+".css", built.RelativePath)
	assert.Equal(t, filepath.Join("/public", id+".css"), built.AbsolutePath)
	assert.Equal(t, filepath.Join("/build", id+".css"), built.BuildPath)
	assert.Equal(t, "/assets/"+id+".css", built.URL)
	assert.Equal(t, asset.StrategyBundled, built.Strategy)
	assert.Equal(t, `<link rel="stylesheet" href="/assets/`+id+`.css">`, built.HTML)

	data, err := fsys.ReadFile(built.BuildPath)
	require.NoError(t, err)
	assert.Equal(t, "a{}\nb{}\n", string(data))
	assert.Equal(t, asset.ContentVersion(data), built.Version)

	published, err := fsys.ReadFile(built.AbsolutePath)
	require.NoError(t, err)
	assert.Equal(t, data, published)
}

func TestBuildSeparator(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "joined", []string{"/src/c.css", "/src/a.css"}, "local", "style")

	built, err := b.Build(context.Background(), cfg, settings(), "")
	require.NoError(t, err)
	data, err := fsys.ReadFile(built.BuildPath)
	require.NoError(t, err)
	assert.Equal(t, "c{}\na{}\n", string(data))
}

func TestBuildIsIdempotent(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "app.bundle", []string{"/src/a.css", "/src/b.css"}, "local", "style")
	ctx := context.Background()

	first, err := b.Build(ctx, cfg, settings(), "")
	require.NoError(t, err)
	writes := fsys.Calls().WriteFile

	second, err := b.Build(ctx, cfg, settings(), "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.AbsolutePath, second.AbsolutePath)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, writes, fsys.Calls().WriteFile, "second build must not write")
}

func TestBuildRebuildsWhenSourceChanges(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "app.bundle", []string{"/src/a.css", "/src/b.css"}, "local", "style")
	ctx := context.Background()

	first, err := b.Build(ctx, cfg, settings(), "")
	require.NoError(t, err)

	fsys.Seed("/src/b.css", []byte("b{color:red}\n"))
	fsys.Touch("/src/b.css", time.Now().Add(time.Minute))

	second, err := b.Build(ctx, cfg, settings(), "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.Version, second.Version)

	data, err := fsys.ReadFile(second.BuildPath)
	require.NoError(t, err)
	assert.Equal(t, "a{}\nb{color:red}\n", string(data))
}

func TestBuildReusesAcrossBuildersThroughCache(t *testing.T) {
	fsys := seeded()
	store := cache.NewMemoryStore()
	cfg := configure(t, "app.bundle", []string{"/src/a.css", "/src/b.css"}, "local", "style")
	ctx := context.Background()

	first, err := New(fsys, WithCache(cache.New(store, "assetpipe", 0))).Build(ctx, cfg, settings(), "")
	require.NoError(t, err)
	writes := fsys.Calls().WriteFile

	second, err := New(fsys, WithCache(cache.New(store, "assetpipe", 0))).Build(ctx, cfg, settings(), "")
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, writes, fsys.Calls().WriteFile)
}

func TestBuildConcurrent(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "app.bundle", []string{"/src/a.css", "/src/b.css"}, "local", "style")

	const n = 32
	results := make([]*asset.Built, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = b.Build(context.Background(), cfg, settings(), "")
		}(i)
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
		assert.Equal(t, results[0].Version, results[i].Version)
		assert.Equal(t, results[0].HTML, results[i].HTML)
	}
	// one build writes the build copy and the public copy
	assert.Equal(t, 2, fsys.Calls().WriteFile)
}

func TestBuildMappedWithCompanions(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "app", []string{"/src/app.js"}, "local", "", asset.WithPreload(true))
	s := settings()
	s.SourceMaps = true
	s.Precompress = []Encoding{EncodingGzip, EncodingZstd}

	built, err := b.Build(context.Background(), cfg, s, "")
	require.NoError(t, err)
	name := built.RelativePath
	assert.Equal(t, []string{name + ".map", name + ".gz", name + ".zst"}, built.MappedPaths)

	sourceMap, err := fsys.ReadFile(filepath.Join("/public", name+".map"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3}`, string(sourceMap))

	gz, err := fsys.ReadFile(filepath.Join("/public", name+".gz"))
	require.NoError(t, err)
	r, err := gzip.NewReader(bytes.NewReader(gz))
	require.NoError(t, err)
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(plain))

	zst, err := fsys.ReadFile(filepath.Join("/build", name+".zst"))
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err = dec.DecodeAll(zst, nil)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(plain))

	assert.Equal(t,
		`<link rel="preload" href="/assets/`+name+`" as="script"><script src="/assets/`+name+`"></script>`,
		built.HTML)
}

func TestBuildInline(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "critical", []string{"/src/c.css"}, "local", "", asset.WithInline(true))

	built, err := b.Build(context.Background(), cfg, settings(), "")
	require.NoError(t, err)
	assert.Equal(t, "<style>c{}</style>", built.HTML)
}

func TestBuildExplicitID(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "app.bundle", []string{"/src/a.css"}, "local", "style")

	built, err := b.Build(context.Background(), cfg, settings(), "PINNED0123456789")
	require.NoError(t, err)
	assert.Equal(t, "PINNED0123456789", built.ID)
	assert.Equal(t, "PINNED0123456789.css", built.RelativePath)

	_, err = b.Build(context.Background(), cfg, settings(), "bad")
	require.Error(t, err)
	assert.True(t, foundationerrors.IsValidation(err))
}

func TestBuildRemote(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "jquery", []string{"https://cdn.example.com/jquery.min.js"}, "cdn", "")

	built, err := b.Build(context.Background(), cfg, Settings{}, "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/jquery.min.js", built.URL)
	assert.Equal(t, built.ID, built.Version)
	assert.Empty(t, built.Path(true))
	assert.Equal(t, `<script src="https://cdn.example.com/jquery.min.js"></script>`, built.HTML)
	assert.Zero(t, fsys.Calls().WriteFile)
	assert.Zero(t, fsys.Calls().ReadFile)
}

func TestBuildErrors(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	ctx := context.Background()

	missing := configure(t, "missing", []string{"/src/nope.css"}, "local", "")
	_, err := b.Build(ctx, missing, settings(), "")
	require.Error(t, err)
	assert.True(t, foundationerrors.IsBuildError(err))

	ok := configure(t, "app", []string{"/src/a.css"}, "local", "")
	_, err = b.Build(ctx, ok, Settings{}, "")
	require.Error(t, err)
	assert.True(t, foundationerrors.IsBuildError(err))
}

func TestForget(t *testing.T) {
	fsys := seeded()
	store := cache.NewMemoryStore()
	b := New(fsys, WithCache(cache.New(store, "", 0)))
	cfg := configure(t, "app", []string{"/src/a.css"}, "local", "")
	ctx := context.Background()

	built, err := b.Build(ctx, cfg, settings(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	b.Forget(ctx, built.ID)
	assert.Equal(t, 0, store.Len())
}

func TestParseEncoding(t *testing.T) {
	e, err := ParseEncoding("GZ")
	require.NoError(t, err)
	assert.Equal(t, EncodingGzip, e)
	assert.Equal(t, ".zst", EncodingZstd.Suffix())

	_, err = ParseEncoding("brotli")
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	assert.Equal(t, "a\nb", string(concat([][]byte{[]byte("a"), []byte("b")})))
	assert.Equal(t, "a\nb\n", string(concat([][]byte{[]byte("a\n"), []byte("b\n")})))
	assert.Equal(t, "b", string(concat([][]byte{{}, []byte("b")})))
}

func TestBuildSourceRoot(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "app", []string{"a.css"}, "local", "")
	s := settings()
	s.SourceRoot = "/src"

	built, err := b.Build(context.Background(), cfg, s, "")
	require.NoError(t, err)
	assert.Equal(t, asset.ComputeID(asset.DefaultProducer, "app", asset.TypeStyle, asset.SourceLocal, "a.css"), built.ID)
	data, err := fsys.ReadFile(built.BuildPath)
	require.NoError(t, err)
	assert.Equal(t, "a{}\n", string(data))
}

func TestBuildRelinksSourceMapComment(t *testing.T) {
	fsys := storage.NewMemFS()
	fsys.Seed("/src/lib.js", []byte("run()\n//# sourceMappingURL=lib.js.map\n"))
	fsys.Seed("/src/lib.js.map", []byte(`{"version":3}`))
	fsys.Seed("/src/site.css", []byte("a{}\n/*# sourceMappingURL=site.css.map */\n"))
	fsys.Seed("/src/site.css.map", []byte(`{"version":3}`))
	b := New(fsys)
	s := settings()
	s.SourceMaps = true
	ctx := context.Background()

	script, err := b.Build(ctx, configure(t, "lib", []string{"/src/lib.js"}, "local", ""), s, "")
	require.NoError(t, err)
	name := script.RelativePath
	require.Equal(t, []string{name + ".map"}, script.MappedPaths)
	data, err := fsys.ReadFile(script.AbsolutePath)
	require.NoError(t, err)
	assert.Equal(t, "run()\n//# sourceMappingURL="+name+".map\n", string(data))
	assert.True(t, fsys.Exists(filepath.Join("/public", name+".map")))
	assert.Equal(t, asset.ContentVersion(data), script.Version)

	style, err := b.Build(ctx, configure(t, "site", []string{"/src/site.css"}, "local", ""), s, "")
	require.NoError(t, err)
	data, err = fsys.ReadFile(style.AbsolutePath)
	require.NoError(t, err)
	assert.Equal(t, "a{}\n/*# sourceMappingURL="+style.RelativePath+".map */\n", string(data))
}

func TestBuildDropsUnpublishedSourceMapComment(t *testing.T) {
	fsys := storage.NewMemFS()
	fsys.Seed("/src/lib.js", []byte("run()\n//# sourceMappingURL=lib.js.map\n"))
	fsys.Seed("/src/lib.js.map", []byte(`{"version":3}`))
	b := New(fsys)

	built, err := b.Build(context.Background(), configure(t, "lib", []string{"/src/lib.js"}, "local", ""), settings(), "")
	require.NoError(t, err)
	assert.Empty(t, built.MappedPaths)
	data, err := fsys.ReadFile(built.AbsolutePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sourceMappingURL")
	assert.False(t, fsys.Exists(filepath.Join("/public", built.RelativePath+".map")))
}

func TestRelinkSourceMap(t *testing.T) {
	cases := []struct {
		name    string
		typ     asset.Type
		content string
		target  string
		want    string
	}{
		{"script", asset.TypeScript, "x()\n//# sourceMappingURL=x.js.map", "abc.js.map", "x()\n//# sourceMappingURL=abc.js.map"},
		{"legacy marker", asset.TypeScript, "x()\n//@ sourceMappingURL=x.js.map\n", "abc.js.map", "x()\n//# sourceMappingURL=abc.js.map\n"},
		{"style", asset.TypeStyle, "a{}\n/*# sourceMappingURL=a.css.map */", "abc.css.map", "a{}\n/*# sourceMappingURL=abc.css.map */"},
		{"drop", asset.TypeScript, "x()\n//# sourceMappingURL=x.js.map\n", "", "x()\n\n"},
		{"data uri", asset.TypeScript, "x()\n//# sourceMappingURL=data:application/json;base64,e30=\n", "abc.js.map", "x()\n//# sourceMappingURL=data:application/json;base64,e30=\n"},
		{"absolute", asset.TypeScript, "x()\n//# sourceMappingURL=https://cdn.example.com/x.js.map", "", "x()\n//# sourceMappingURL=https://cdn.example.com/x.js.map"},
		{"not trailing", asset.TypeScript, "//# sourceMappingURL=x.js.map\nx()\n", "abc.js.map", "//# sourceMappingURL=x.js.map\nx()\n"},
		{"other type", asset.TypeData, "//# sourceMappingURL=x.map", "abc.map", "//# sourceMappingURL=x.map"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := relinkSourceMap(tc.typ, []byte(tc.content), tc.target)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestBuildRebuildsWhenCompanionSettingsChange(t *testing.T) {
	fsys := seeded()
	store := cache.NewMemoryStore()
	cfg := configure(t, "app", []string{"/src/app.js"}, "local", "")
	ctx := context.Background()

	first, err := New(fsys, WithCache(cache.New(store, "assetpipe", 0))).Build(ctx, cfg, settings(), "")
	require.NoError(t, err)
	assert.Empty(t, first.MappedPaths)
	name := first.RelativePath

	s := settings()
	s.Precompress = []Encoding{EncodingGzip}
	second, err := New(fsys, WithCache(cache.New(store, "assetpipe", 0))).Build(ctx, cfg, s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{name + ".gz"}, second.MappedPaths)
	assert.True(t, fsys.Exists(filepath.Join("/build", name+".gz")))
	assert.True(t, fsys.Exists(filepath.Join("/public", name+".gz")))

	s.SourceMaps = true
	third, err := New(fsys, WithCache(cache.New(store, "assetpipe", 0))).Build(ctx, cfg, s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{name + ".map", name + ".gz"}, third.MappedPaths)
	assert.True(t, fsys.Exists(filepath.Join("/public", name+".map")))

	b := New(fsys, WithCache(cache.New(store, "assetpipe", 0)))
	reused, err := b.Build(ctx, cfg, s, "")
	require.NoError(t, err)
	assert.Equal(t, third.MappedPaths, reused.MappedPaths)
	writes := fsys.Calls().WriteFile
	_, err = b.Build(ctx, cfg, s, "")
	require.NoError(t, err)
	assert.Equal(t, writes, fsys.Calls().WriteFile, "unchanged settings must reuse the build")

	plain, err := b.Build(ctx, cfg, settings(), "")
	require.NoError(t, err)
	assert.Empty(t, plain.MappedPaths)
}

func TestBuildRebuildsWhenCompanionGoesMissing(t *testing.T) {
	fsys := seeded()
	b := New(fsys)
	cfg := configure(t, "app", []string{"/src/app.js"}, "local", "")
	s := settings()
	s.Precompress = []Encoding{EncodingZstd}
	ctx := context.Background()

	first, err := b.Build(ctx, cfg, s, "")
	require.NoError(t, err)
	zst := filepath.Join("/public", first.RelativePath+".zst")
	require.NoError(t, fsys.Remove(zst))

	_, err = b.Build(ctx, cfg, s, "")
	require.NoError(t, err)
	assert.True(t, fsys.Exists(zst))
}
