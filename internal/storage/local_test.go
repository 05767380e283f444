package storage_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"dirbuf/internal/errors"
	"dirbuf/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLocalList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, ".hidden"), "h")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	local := storage.NewLocal(false, "")

	names, err := local.List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub"}, names)

	local.ToggleShowHidden()
	names, err = local.List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{".hidden", "a.txt", "b.txt", "sub"}, names)

	_, err = local.List(filepath.Join(dir, "missing"))
	assert.True(t, errors.IsBackendError(err))
}

func TestLocalClassify(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	exe := filepath.Join(dir, "run.sh")
	sub := filepath.Join(dir, "sub")
	writeFile(t, file, "x")
	writeFile(t, exe, "#!/bin/sh")
	require.NoError(t, os.Chmod(exe, 0755))
	require.NoError(t, os.Mkdir(sub, 0755))

	local := storage.NewLocal(false, "")
	assert.Equal(t, storage.KindFile, local.Classify(file))
	assert.Equal(t, storage.KindDirectory, local.Classify(sub))
	if runtime.GOOS != "windows" {
		assert.Equal(t, storage.KindExecutable, local.Classify(exe))

		fileLink := filepath.Join(dir, "file-link")
		dirLink := filepath.Join(dir, "dir-link")
		require.NoError(t, os.Symlink(file, fileLink))
		require.NoError(t, os.Symlink(sub, dirLink))
		assert.Equal(t, storage.KindSymlink, local.Classify(fileLink))
		assert.Equal(t, storage.KindDirectory, local.Classify(dirLink), "links to directories can be entered")
	}
}

func TestLocalMove(t *testing.T) {
	local := storage.NewLocal(false, storage.CollisionRename)

	t.Run("move file", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "a.txt")
		dst := filepath.Join(dir, "other", "a.txt")
		writeFile(t, src, "content")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "other"), 0755))

		require.NoError(t, local.Move(src, dst))
		_, err := os.Stat(src)
		assert.ErrorIs(t, err, os.ErrNotExist)
		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("same path is a no-op", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "a.txt")
		writeFile(t, src, "content")
		assert.NoError(t, local.Move(src, src))
		assert.FileExists(t, src)
	})

	t.Run("never overwrites", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "a.txt")
		dst := filepath.Join(dir, "b.txt")
		writeFile(t, src, "a")
		writeFile(t, dst, "b")

		err := local.Move(src, dst)
		assert.True(t, errors.IsBackendError(err))
		data, _ := os.ReadFile(dst)
		assert.Equal(t, "b", string(data))
		assert.FileExists(t, src)
	})

	t.Run("refuses moving into itself", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "d")
		require.NoError(t, os.Mkdir(src, 0755))
		assert.Error(t, local.Move(src, filepath.Join(src, "d")))
	})

	t.Run("missing source", func(t *testing.T) {
		dir := t.TempDir()
		err := local.Move(filepath.Join(dir, "nope"), filepath.Join(dir, "x"))
		assert.True(t, errors.IsBackendError(err))
	})
}

func TestLocalCopy(t *testing.T) {
	t.Run("copy tree", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		writeFile(t, filepath.Join(src, "a.txt"), "a")
		writeFile(t, filepath.Join(src, "nested", "deep", "b.txt"), "b")
		require.NoError(t, os.Mkdir(filepath.Join(src, "empty"), 0755))

		local := storage.NewLocal(false, "")
		dst := filepath.Join(dir, "dst")
		require.NoError(t, local.Copy(src, dst))

		data, err := os.ReadFile(filepath.Join(dst, "nested", "deep", "b.txt"))
		require.NoError(t, err)
		assert.Equal(t, "b", string(data))
		assert.FileExists(t, filepath.Join(dst, "a.txt"))
		assert.DirExists(t, filepath.Join(dst, "empty"))
		assert.FileExists(t, filepath.Join(src, "a.txt"), "source kept")
	})

	t.Run("collision strategies", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "a.txt")
		writeFile(t, src, "a")

		err := storage.NewLocal(false, storage.CollisionFail).Copy(src, src)
		assert.True(t, errors.IsBackendError(err))

		require.NoError(t, storage.NewLocal(false, storage.CollisionSkip).Copy(src, src))
		assert.NoFileExists(t, filepath.Join(dir, "a_(1).txt"))

		rename := storage.NewLocal(false, storage.CollisionRename)
		require.NoError(t, rename.Copy(src, src))
		require.NoError(t, rename.Copy(src, src))
		assert.FileExists(t, filepath.Join(dir, "a_(1).txt"))
		assert.FileExists(t, filepath.Join(dir, "a_(2).txt"))
	})

	t.Run("refuses copying into itself", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "d")
		require.NoError(t, os.Mkdir(src, 0755))
		err := storage.NewLocal(false, "").Copy(src, filepath.Join(src, "d"))
		assert.True(t, errors.IsBackendError(err))
	})
}

func TestLocalRemove(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full")
	writeFile(t, filepath.Join(full, "x"), "x")
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0755))

	local := storage.NewLocal(false, "")

	assert.True(t, errors.IsBackendError(local.Remove(full)), "non-empty directory needs force")
	assert.DirExists(t, full)

	require.NoError(t, local.Remove(empty))
	assert.NoDirExists(t, empty)

	require.NoError(t, local.RemoveForced(full))
	assert.NoDirExists(t, full)

	assert.True(t, errors.IsBackendError(local.RemoveForced(full)))
}

func TestLocalPaths(t *testing.T) {
	local := storage.NewLocal(false, "")
	dir := t.TempDir()

	assert.Equal(t, filepath.Dir(dir), local.ParentOf(dir))
	assert.Equal(t, filepath.Base(dir), local.Label(dir))
	assert.Equal(t, string(filepath.Separator), local.Label(string(filepath.Separator)))
	assert.NoError(t, local.Materialize(dir))

	mt, err := local.ModTime(dir)
	require.NoError(t, err)
	assert.False(t, mt.IsZero())
}

func TestRouter(t *testing.T) {
	cacheDir := t.TempDir()
	remote := newFakeRemote("box")
	cached, err := storage.NewCached(cacheDir, remote, false)
	require.NoError(t, err)
	router := storage.NewRouter(storage.NewLocal(false, ""), cached)

	assert.Same(t, cached, router.For(filepath.Join(cacheDir, "box")))
	assert.IsType(t, &storage.Local{}, router.For(t.TempDir()))

	localFile := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, localFile, "a")
	err = router.Move(localFile, filepath.Join(cacheDir, "box", "a.txt"))
	assert.True(t, errors.IsBackendError(err))
	assert.FileExists(t, localFile)
}
