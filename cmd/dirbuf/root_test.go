package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"dirbuf/internal/config"
	"dirbuf/internal/errors"
	"dirbuf/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with a config file in a private home.
func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, "config.yaml")
	if cfg != nil {
		require.NoError(t, config.SaveConfig(cfg, path))
	}

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := cmd.Execute()
	return testutils.StripANSI(out.String()), err
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.Remote.Rclone = filepath.Join(t.TempDir(), "no-rclone")
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	cfg.Log.File = filepath.Join(t.TempDir(), "dirbuf.log")
	return cfg
}

func TestLs(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTree(t, dir, map[string]string{
		"notes.txt":   "hello",
		"src/":        "",
		"src/main.go": "package main",
		".hidden":     "x",
		"build.o":     "x",
	})
	cfg := testConfig(t)
	cfg.Ignore = []string{"*.o"}

	out, err := execute(t, cfg, "ls", dir)
	require.NoError(t, err)
	assert.Contains(t, out, dir)
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "5 B")
	assert.Contains(t, out, "src/")
	assert.NotContains(t, out, "main.go")
	assert.NotContains(t, out, ".hidden")
	assert.NotContains(t, out, "build.o")

	out, err = execute(t, cfg, "ls", "--expand", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "  main.go")
}

func TestLsRejectsFiles(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTree(t, dir, map[string]string{"f": "x"})

	_, err := execute(t, testConfig(t), "ls", filepath.Join(dir, "f"))
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "dirbuf", "config.yaml")

	run := func(args ...string) error {
		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", path, "config", "init"}, args...))
		return cmd.Execute()
	}

	require.NoError(t, run())
	loaded, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "rename", loaded.Collision)

	assert.Error(t, run(), "an existing file is kept")
	assert.NoError(t, run("--force"))
}

func TestConfigShow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ignore = []string{"*.tmp"}

	out, err := execute(t, cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "*.tmp")
	assert.Contains(t, out, "collision: rename")
}

func TestInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Collision = "merge"

	_, err := execute(t, cfg, "ls")
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestRemotesWithoutProvider(t *testing.T) {
	_, err := execute(t, testConfig(t), "remotes")
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestTargetDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	dir, err := targetDir(nil)
	require.NoError(t, err)
	assert.Equal(t, wd, dir)

	dir, err = targetDir([]string{"sub"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "sub"), dir)
}
