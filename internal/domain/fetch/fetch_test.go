package fetch_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/profilecore/internal/domain/fetch"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestLocalDirFetcher(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"inspec.yml":       "name: demo\n",
		"controls/foo.rb":  "control 'c-1' do\nend\n",
		"libraries/bar.rb": "class Bar\nend\n",
	})

	f := fetch.LocalDirFetcher{}
	require.True(t, f.Handles(dir))
	require.False(t, f.Handles(filepath.Join(dir, "inspec.yml")))

	tree, err := f.Fetch(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"controls/foo.rb", "inspec.yml", "libraries/bar.rb"}, tree.Files)

	data, err := tree.Read("inspec.yml")
	require.NoError(t, err)
	assert.Equal(t, "name: demo\n", string(data))

	abs, err := tree.AbsPath("inspec.yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inspec.yml"), abs)
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeTar(t *testing.T, path string, files map[string]string) {
	t.Helper()
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLocalArchiveFetcher_Zip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "demo.zip")
	writeZip(t, zipPath, map[string]string{
		"demo-1.0.0/inspec.yml":      "name: demo\n",
		"demo-1.0.0/controls/a.rb":   "control 'c-1' do\nend\n",
	})

	f := fetch.LocalArchiveFetcher{}
	require.True(t, f.Handles(zipPath))

	tree, err := f.Fetch(context.Background(), zipPath)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"inspec.yml", "controls/a.rb"}, tree.Files)

	data, err := tree.Read("inspec.yml")
	require.NoError(t, err)
	assert.Equal(t, "name: demo\n", string(data))

	_, err = tree.AbsPath("inspec.yml")
	assert.Error(t, err)
}

func TestLocalArchiveFetcher_Tar(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "demo.tar")
	writeTar(t, tarPath, map[string]string{
		"demo-1.0.0/inspec.yml": "name: demo\n",
	})

	f := fetch.LocalArchiveFetcher{}
	require.True(t, f.Handles(tarPath))

	tree, err := f.Fetch(context.Background(), tarPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"inspec.yml"}, tree.Files)
}

func TestRegistry_ResolveMemoizesAndErrors(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"inspec.yml": "name: demo\n"})

	reg := fetch.NewRegistry(fetch.LocalDirFetcher{}, fetch.LocalArchiveFetcher{})

	tree1, err := reg.Resolve(context.Background(), dir)
	require.NoError(t, err)
	tree2, err := reg.Resolve(context.Background(), dir)
	require.NoError(t, err)
	assert.Same(t, tree1, tree2)

	_, err = reg.Resolve(context.Background(), filepath.Join(dir, "does-not-exist"))
	require.Error(t, err)
	var fe *fetch.FetchError
	require.ErrorAs(t, err, &fe)
}

func TestURLAndGitFetcher_Handles(t *testing.T) {
	u := fetch.URLFetcher{}
	assert.True(t, u.Handles("https://example.com/profile.tar.gz"))
	assert.False(t, u.Handles("/local/path"))

	_, err := u.Fetch(context.Background(), "https://example.com/profile.tar.gz")
	assert.ErrorIs(t, err, fetch.ErrUnsupported)

	g := fetch.GitFetcher{}
	assert.True(t, g.Handles("git@github.com:org/repo.git"))
	assert.True(t, g.Handles("https://github.com/org/repo.git"))
	assert.False(t, g.Handles("/local/path"))
}
