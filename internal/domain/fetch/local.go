package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// LocalDirFetcher materializes a local directory as a FileTree backed
// directly by the filesystem. It is one of the two mandatory fetchers
// (spec.md §4.1).
type LocalDirFetcher struct{}

// Handles reports whether target names an existing local directory.
func (LocalDirFetcher) Handles(target string) bool {
	info, err := os.Stat(target)
	return err == nil && info.IsDir()
}

// Fetch walks target and returns a FileTree rooted there.
func (LocalDirFetcher) Fetch(_ context.Context, target string) (*FileTree, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	return NewFileTree(abs, files, &dirReader{root: abs}), nil
}

type dirReader struct{ root string }

func (r *dirReader) Read(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path)))
}

func (r *dirReader) AbsPath(ref string) (string, error) {
	return filepath.Join(r.root, filepath.FromSlash(ref)), nil
}

// LocalArchiveFetcher materializes a local tar, tar.gz, or zip archive
// by unpacking it into an in-memory index. It is the second of the two
// mandatory fetchers (spec.md §4.1).
type LocalArchiveFetcher struct{}

// Handles reports whether target names a recognized local archive file.
func (LocalArchiveFetcher) Handles(target string) bool {
	if !isArchiveName(target) {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

func isArchiveName(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasSuffix(lower, ".tar") ||
		strings.HasSuffix(lower, ".tar.gz") ||
		strings.HasSuffix(lower, ".tgz") ||
		strings.HasSuffix(lower, ".zip")
}

// Fetch unpacks target into memory and returns a FileTree over it.
func (LocalArchiveFetcher) Fetch(_ context.Context, target string) (*FileTree, error) {
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(target)
	var contents map[string][]byte
	switch {
	case strings.HasSuffix(lower, ".zip"):
		contents, err = unzip(data)
	default:
		contents, err = untar(data, strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".tgz"))
	}
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", target, err)
	}

	files := make([]string, 0, len(contents))
	for name := range contents {
		files = append(files, name)
	}
	sort.Strings(files)

	return NewFileTree(target, files, &memReader{target: target, contents: contents}), nil
}

type memReader struct {
	target   string
	contents map[string][]byte
}

func (r *memReader) Read(path string) ([]byte, error) {
	data, ok := r.contents[path]
	if !ok {
		return nil, fmt.Errorf("%s: no such file in archive %s", path, r.target)
	}
	return data, nil
}

func (r *memReader) AbsPath(ref string) (string, error) {
	return "", fmt.Errorf("archive-backed tree has no filesystem path for %q", ref)
}

func unzip(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(newBytesReaderAt(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	out := map[string][]byte{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		out[cleanEntryName(f.Name)] = b
	}
	return out, nil
}

func untar(data []byte, gzipped bool) (map[string][]byte, error) {
	var r io.Reader = bytesReader(data)
	if gzipped {
		gr, err := gzip.NewReader(bytesReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = gr.Close() }()
		r = gr
	}

	tr := tar.NewReader(r)
	out := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		out[cleanEntryName(hdr.Name)] = b
	}
	return out, nil
}

// cleanEntryName strips a single top-level directory component (the
// conventional archive root folder) and normalizes separators, guarding
// against path traversal entries.
func cleanEntryName(name string) string {
	name = path.Clean("/" + filepath.ToSlash(name))
	name = strings.TrimPrefix(name, "/")
	if idx := strings.Index(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func bytesReader(b []byte) *strings.Reader { return strings.NewReader(string(b)) }

type bytesReaderAt struct{ b []byte }

func newBytesReaderAt(b []byte) *bytesReaderAt { return &bytesReaderAt{b: b} }

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, io.EOF
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
