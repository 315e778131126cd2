package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/grepy/internal/model"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []model.UnitKind{model.Function, model.Class}, cfg.UnitKinds())
	assert.Equal(t, FormatText, cfg.Output.Format)
	assert.Equal(t, int64(1_000_000), cfg.Search.MaxFileSize)
	assert.Equal(t, "warn", cfg.Logging.Level)

	timeout, err := cfg.MatchTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestLoadYAML(t *testing.T) {
	path := write(t, t.TempDir(), ".grepy.yaml", `
units: [class]
search:
  workers: 3
  excludes: ["**/migrations/**"]
output:
  format: toon
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []model.UnitKind{model.Class}, cfg.UnitKinds())
	assert.Equal(t, 3, cfg.Search.Workers)
	assert.Equal(t, []string{"**/migrations/**"}, cfg.Search.Excludes)
	assert.Equal(t, FormatTOON, cfg.Output.Format)
	// Unset fields keep their defaults.
	assert.Equal(t, int64(1_000_000), cfg.Search.MaxFileSize)
	assert.Empty(t, cfg.Search.Includes)
}

func TestLoadTOML(t *testing.T) {
	path := write(t, t.TempDir(), ".grepy.toml", `
units = ["function"]

[output]
format = "json"
color = true

[cache]
path = ".grepy-cache.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []model.UnitKind{model.Function}, cfg.UnitKinds())
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.Equal(t, ".grepy-cache.db", cfg.Cache.Path)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(write(t, dir, "bad.yaml", "units: [module]\noutput:\n  format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module")
	assert.Contains(t, err.Error(), "xml")

	_, err = Load(write(t, dir, "slow.yaml", "search:\n  match_timeout: forever\n"))
	assert.ErrorContains(t, err, "match_timeout")

	_, err = Load(write(t, dir, "broken.toml", "units = [\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	cfg, path, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, FormatText, cfg.Output.Format)

	write(t, dir, ".grepy.toml", "[output]\nformat = \"json\"\n")
	want := write(t, dir, ".grepy.yml", "output:\n  format: toon\n")

	cfg, path, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, want, path, ".yml is preferred over .toml")
	assert.Equal(t, FormatTOON, cfg.Output.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GREPY_LOG_LEVEL", "debug")
	t.Setenv("GREPY_CACHE", "/tmp/grepy.db")

	cfg, _, err := LoadFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/grepy.db", cfg.Cache.Path)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := DefaultConfig()
			want.Search.Excludes = []string{"**/vendor/**"}
			want.Search.MatchTimeout = "250ms"
			want.Cache.Path = "cache.db"
			require.NoError(t, want.Save(path, false))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), fileHeader))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSaveRefusesOverwrite(t *testing.T) {
	path := write(t, t.TempDir(), ".grepy.yaml", "units: [class]\n")

	err := DefaultConfig().Save(path, false)
	assert.ErrorContains(t, err, "--force")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "units: [class]\n", string(data))

	require.NoError(t, DefaultConfig().Save(path, true))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Units, cfg.Units)
}

func TestUnitKindsDeduplicates(t *testing.T) {
	path := write(t, t.TempDir(), ".grepy.yaml", "units: [class, function, func, Class, f]\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []model.UnitKind{model.Class, model.Function}, cfg.UnitKinds())
}
