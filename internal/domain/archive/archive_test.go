package archive_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/profilecore/internal/domain/archive"
)

func writeRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "controls"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "inspec.yml"), []byte("name: p\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "controls", "a.rb"), []byte("control 'c1' do\nend\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("secret"), 0o644))
	return root
}

func TestGenerate_TarGz_ExcludesDotfilesAndNormalizesTime(t *testing.T) {
	root := writeRoot(t)
	dest := filepath.Join(t.TempDir(), "out.tar.gz")

	files := []string{"inspec.yml", "controls/a.rb", ".hidden"}
	require.NoError(t, archive.Generate(root, files, dest, archive.VariantTarGz))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)

	gr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gr)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
		assert.True(t, hdr.ModTime.Equal(time.Unix(0, 0)))
		assert.Equal(t, 0, hdr.Uid)
		assert.Equal(t, 0, hdr.Gid)
	}
	assert.Equal(t, []string{"inspec.yml", "controls/a.rb"}, names)
}

func TestGenerate_Zip(t *testing.T) {
	root := writeRoot(t)
	dest := filepath.Join(t.TempDir(), "out.zip")

	files := []string{"inspec.yml", "controls/a.rb", ".hidden"}
	require.NoError(t, archive.Generate(root, files, dest, archive.VariantZip))

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"inspec.yml", "controls/a.rb"}, names)
}

func TestGenerate_DeterministicAcrossRuns(t *testing.T) {
	root := writeRoot(t)
	files := []string{"inspec.yml", "controls/a.rb"}

	dest1 := filepath.Join(t.TempDir(), "out1.tar.gz")
	dest2 := filepath.Join(t.TempDir(), "out2.tar.gz")
	require.NoError(t, archive.Generate(root, files, dest1, archive.VariantTarGz))
	require.NoError(t, archive.Generate(root, files, dest2, archive.VariantTarGz))

	data1, err := os.ReadFile(dest1)
	require.NoError(t, err)
	data2, err := os.ReadFile(dest2)
	require.NoError(t, err)
	assert.Equal(t, data1, data2)
}
