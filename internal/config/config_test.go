package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"dirbuf/internal/config"
	"dirbuf/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary YAML config file
func createTestYAML(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

const (
	validYAML = `
ignore: ["*.pyc", "__pycache__"]
show_hidden: true
cache_dir: /tmp/dirbuf-cache
remote:
  provider: s3
  s3:
    endpoint: http://localhost:9000
    buckets: [photos, backups]
    use_path_style: true
rifle:
  - match: "*.pdf"
    command: zathura
  - mime: "image/"
    command: feh
keys:
  paste: ["P"]
theme:
  name: dark
  cut: "9"
log:
  json: true
`
	invalidSyntaxYAML = `
ignore: ["*.pyc"
show_hidden: yes please
`
	invalidProviderYAML = `
remote:
  provider: ftp
`
	invalidIgnoreYAML = `
ignore: ["[unclosed"]
`
	invalidCollisionYAML = `
collision: overwrite
`
	invalidRuleYAML = `
rifle:
  - match: "*.pdf"
`
)

func TestLoadConfigFile(t *testing.T) {
	t.Run("load valid config", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, []string{"*.pyc", "__pycache__"}, cfg.Ignore)
		assert.True(t, cfg.ShowHidden)
		assert.Equal(t, "/tmp/dirbuf-cache", cfg.CacheDir)
		assert.Equal(t, "s3", cfg.Remote.Provider)
		assert.Equal(t, "http://localhost:9000", cfg.Remote.S3.Endpoint)
		assert.Equal(t, "us-east-1", cfg.Remote.S3.Region, "default region kept")
		assert.Equal(t, []string{"photos", "backups"}, cfg.Remote.S3.Buckets)
		assert.True(t, cfg.Remote.S3.UsePathStyle)
		require.Len(t, cfg.Rifle, 2)
		assert.Equal(t, "zathura", cfg.Rifle[0].Command)
		assert.Equal(t, "image/", cfg.Rifle[1].Mime)
		assert.Equal(t, []string{"P"}, cfg.Keys["paste"])
		assert.Equal(t, "dark", cfg.Theme.Name)
		assert.Equal(t, "9", cfg.Theme.Cut)
		assert.Equal(t, config.GetTheme("dark").Directory, cfg.Theme.Directory)
		assert.True(t, cfg.Log.JSON)
	})

	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "rclone", cfg.Remote.Provider)
		assert.Equal(t, "rclone", cfg.Remote.Rclone)
		assert.Empty(t, cfg.Ignore)
		assert.Equal(t, "default", cfg.Theme.Name)
		assert.Equal(t, "rename", cfg.Collision)
		assert.NotContains(t, cfg.CacheDir, "~")
	})

	t.Run("invalid syntax", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, invalidSyntaxYAML))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		for name, content := range map[string]string{
			"provider":  invalidProviderYAML,
			"ignore":    invalidIgnoreYAML,
			"rule":      invalidRuleYAML,
			"collision": invalidCollisionYAML,
		} {
			_, err := config.LoadConfigFile(createTestYAML(t, content))
			assert.Error(t, err, name)
			assert.True(t, errors.IsInvalidConfig(err), name)
		}
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DIRBUF_REMOTE_PROVIDER", "s3")
	t.Setenv("DIRBUF_S3_ACCESS_KEY", "AKIA")
	t.Setenv("DIRBUF_S3_BUCKETS", "one,two")

	cfg, err := config.LoadConfigFile(createTestYAML(t, "show_hidden: false\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Remote.Provider)
	assert.Equal(t, "AKIA", cfg.Remote.S3.AccessKey)
	assert.Equal(t, []string{"one", "two"}, cfg.Remote.S3.Buckets)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.New()
	cfg.Ignore = []string{"*.o"}
	cfg.CacheDir = "/tmp/mirror"
	cfg.Rifle = []config.Rule{{Match: "*.mp4", Command: "mpv"}}

	require.NoError(t, config.SaveConfig(cfg, path))

	loaded, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Ignore, loaded.Ignore)
	assert.Equal(t, cfg.CacheDir, loaded.CacheDir)
	assert.Equal(t, cfg.Rifle, loaded.Rifle)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, config.ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "docs"), config.ExpandHome("~/docs"))
	assert.Equal(t, "/abs/~x", config.ExpandHome("/abs/~x"))
	assert.Equal(t, "~user", config.ExpandHome("~user"))
}

func TestGetThemeFallback(t *testing.T) {
	assert.Equal(t, config.GetTheme("default"), config.GetTheme("no-such-theme"))
}
