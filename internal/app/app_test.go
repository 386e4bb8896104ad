package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/profilecore/internal/app"
	"github.com/felixgeelhaar/profilecore/internal/domain/profile"
	"github.com/felixgeelhaar/profilecore/internal/ports"
)

func writeProfile(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "inspec.yml"), []byte("name: demo\nversion: 1.0.0\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "controls"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "controls", "a.rb"), []byte("control 'c1' do\n  impact 0.5\nend\n"), 0o644))
	return root
}

func TestApp_InfoAndCheck(t *testing.T) {
	root := writeProfile(t)
	a := app.New(nil, app.Config{}, ports.LevelError)
	ctx := context.Background()

	info, err := a.Info(ctx, root, profile.Options{})
	require.NoError(t, err)
	assert.Equal(t, "demo", info.Name)
	assert.Contains(t, info.Controls, "c1")

	report, err := a.Check(ctx, root, profile.Options{})
	require.NoError(t, err)
	assert.True(t, report.Summary.Valid)
}

func TestApp_LoadConfigMissingFileIsZeroValue(t *testing.T) {
	cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, app.Config{}, cfg)
}

func TestApp_LoadConfigParsesToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profilecore.toml")
	require.NoError(t, os.WriteFile(path, []byte("cache_dir = \"/tmp/cache\"\ndefault_archive_variant = \"zip\"\n"), 0o644))

	cfg, err := app.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	assert.Equal(t, "zip", cfg.DefaultVariant)
}
