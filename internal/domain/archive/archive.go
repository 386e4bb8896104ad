// Package archive is the deterministic packaging generator (C9): the
// packing half of the tar.gz/zip format the teacher's marketplace
// service unpacks in extractPackage.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Variant names an output archive format.
type Variant int

const (
	VariantTarGz Variant = iota
	VariantZip
)

// epoch is the fixed timestamp every archive entry is normalized to so
// two runs over the same input tree produce byte-identical output
// (spec.md §5 "Determinism").
var epoch = time.Unix(0, 0).UTC()

// Generate packages files (paths relative to root) into destination in
// the given variant. Files are added in the order supplied; entries
// whose basename begins with "." are excluded; no symlinks are followed
// outside root (spec.md §4.9).
func Generate(root string, files []string, destination string, variant Variant) error {
	realRoot := root
	if rr, err := filepath.EvalSymlinks(root); err == nil {
		realRoot = rr
	}
	var included []string
	for _, f := range files {
		if strings.HasPrefix(path.Base(f), ".") {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(filepath.Join(root, filepath.FromSlash(f))); err == nil {
			if r, err := filepath.Rel(realRoot, resolved); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
				return fmt.Errorf("archive: %q resolves outside root", f)
			}
		}
		included = append(included, f)
	}

	out, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archive: create %q: %w", destination, err)
	}
	defer func() { _ = out.Close() }()

	switch variant {
	case VariantZip:
		return writeZip(out, root, included)
	default:
		return writeTarGz(out, root, included)
	}
}

func writeZip(out io.Writer, root string, files []string) error {
	zw := zip.NewWriter(out)
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("archive: read %q: %w", rel, err)
		}
		hdr := &zip.FileHeader{Name: rel, Method: zip.Deflate}
		hdr.Modified = epoch
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("archive: write header %q: %w", rel, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("archive: write %q: %w", rel, err)
		}
	}
	return zw.Close()
}

func writeTarGz(out io.Writer, root string, files []string) error {
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("archive: read %q: %w", rel, err)
		}
		hdr := &tar.Header{
			Name:     rel,
			Size:     int64(len(data)),
			Mode:     0o644,
			Typeflag: tar.TypeReg,
			ModTime:  epoch,
			Uid:      0,
			Gid:      0,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("archive: write header %q: %w", rel, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("archive: write %q: %w", rel, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}
