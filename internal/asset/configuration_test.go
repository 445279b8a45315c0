package asset

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

func mustBlueprint(t *testing.T, name string, sources []string, kind, typ string, opts ...Option) *Blueprint {
	t.Helper()
	bp, err := NewBlueprint(name, sources, kind, typ, opts...)
	require.NoError(t, err)
	return bp
}

func TestFromBlueprintStrategies(t *testing.T) {
	bundled, err := FromBlueprint(mustBlueprint(t, "app", []string{"a.css", "b.css"}, "local", "style"), nil)
	require.NoError(t, err)
	require.IsType(t, &Bundled{}, bundled)
	assert.Equal(t, StrategyBundled, bundled.Strategy())
	assert.Equal(t, "css", bundled.Extension())
	assert.Equal(t, []string{"a.css", "b.css"}, bundled.(*Bundled).Sources)

	mapped, err := FromBlueprint(mustBlueprint(t, "main", []string{"js/main.mjs"}, "local", ""), nil)
	require.NoError(t, err)
	m, ok := mapped.(*Mapped)
	require.True(t, ok)
	assert.Equal(t, "js", m.Extension())
	assert.Equal(t, "js/main.mjs.map", m.SourceMap)

	logo, err := FromBlueprint(mustBlueprint(t, "logo", []string{"img/logo.png"}, "local", ""), nil)
	require.NoError(t, err)
	assert.Equal(t, "png", logo.Extension())
	assert.Empty(t, logo.(*Mapped).SourceMap)

	remote, err := FromBlueprint(mustBlueprint(t, "jquery", []string{"https://cdn.example.com/jquery.js"}, "cdn", ""), nil)
	require.NoError(t, err)
	r, ok := remote.(*Remote)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/jquery.js", r.URL)
	assert.Equal(t, SourceCDN, r.SourceKind())
}

func TestFromBlueprintRejects(t *testing.T) {
	_, err := FromBlueprint(mustBlueprint(t, "cdn", []string{"https://a/x.js", "https://b/y.js"}, "cdn", "script"), nil)
	require.Error(t, err)
	assert.True(t, foundationerrors.IsValidation(err))

	_, err = FromBlueprint(mustBlueprint(t, "pics", []string{"a.png", "b.png"}, "local", ""), nil)
	require.Error(t, err)
	assert.True(t, foundationerrors.IsBuildError(err))

	_, err = FromBlueprint(mustBlueprint(t, "odd", []string{"a.css"}, "ftp", "style", Lenient()), nil)
	require.Error(t, err)
	assert.True(t, foundationerrors.IsBuildError(err))
}

func TestFromBlueprintClassificationConflictWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg, err := FromBlueprint(mustBlueprint(t, "mixed", []string{"a.js", "b.css"}, "local", "script"), logger)
	require.NoError(t, err)
	assert.Equal(t, TypeScript, cfg.Type())
	assert.Equal(t, 1, strings.Count(buf.String(), "level=WARN"))
	assert.Contains(t, buf.String(), "asset_name=mixed")
}
