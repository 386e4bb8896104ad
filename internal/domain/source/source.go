// Package source classifies a fetched FileTree into the manifest,
// control, and library files a profile is built from (C2 — Source
// Reader Registry).
package source

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/profilecore/internal/domain/fetch"
)

// LibraryFile is one classified library source file.
type LibraryFile struct {
	Path      string
	Bytes     []byte
	SourceRef string
	StartLine int
}

// Warning records a non-fatal structural observation, such as use of a
// deprecated layout.
type Warning struct {
	Kind    string
	Message string
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Kind, w.Message) }

// Reader exposes the classified contents of one FileTree.
type Reader interface {
	// Metadata returns the manifest bytes and which file supplied them.
	Metadata() ([]byte, string, error)
	Tests() (map[string][]byte, error)
	Libraries() ([]LibraryFile, error)
	Target() *fetch.FileTree
	// Warnings returns structural warnings accumulated while classifying.
	Warnings() []Warning
}

// StructureError is returned when no registered Reader recognizes a
// FileTree's layout.
type StructureError struct {
	Prefix string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("source: %q does not match any recognized profile layout", e.Prefix)
}

// Registry probes Readers in registration order, mirroring fetch.Registry's
// probe-and-resolve pattern (C1).
type Registry struct {
	mu      sync.Mutex
	factory []func(*fetch.FileTree) (Reader, bool)
}

// NewRegistry builds a Registry over the given recognizer factories, each
// returning (reader, true) if it claims tree.
func NewRegistry(factory ...func(*fetch.FileTree) (Reader, bool)) *Registry {
	return &Registry{factory: factory}
}

// Register appends a recognizer factory to the end of the probe order.
func (r *Registry) Register(f func(*fetch.FileTree) (Reader, bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory = append(r.factory, f)
}

// Resolve returns the first Reader that claims tree.
func (r *Registry) Resolve(tree *fetch.FileTree) (Reader, error) {
	r.mu.Lock()
	factory := append([]func(*fetch.FileTree) (Reader, bool)(nil), r.factory...)
	r.mu.Unlock()

	for _, f := range factory {
		if rd, ok := f(tree); ok {
			return rd, nil
		}
	}
	return nil, &StructureError{Prefix: tree.Prefix}
}

// NewStandardReader is the registry factory for StandardReader: it claims
// any tree containing a recognized manifest file.
func NewStandardReader(tree *fetch.FileTree) (Reader, bool) {
	for _, f := range tree.Files {
		if f == "inspec.yml" || f == "metadata.rb" {
			return &StandardReader{tree: tree}, true
		}
	}
	return nil, false
}

// StandardReader is the built-in Reader recognizing the conventional
// profile layout: inspec.yml (preferred) or metadata.rb (deprecated),
// controls/ (preferred) or test/ (deprecated), and libraries/.
type StandardReader struct {
	tree     *fetch.FileTree
	warnings []Warning
	once     sync.Once
}

func (r *StandardReader) Target() *fetch.FileTree { return r.tree }

func (r *StandardReader) Warnings() []Warning {
	r.classify()
	return r.warnings
}

func (r *StandardReader) classify() {
	r.once.Do(func() {
		hasManifest, hasLegacyManifest := false, false
		hasControls, hasLegacyTests := false, false
		for _, f := range r.tree.Files {
			switch {
			case f == "inspec.yml":
				hasManifest = true
			case f == "metadata.rb":
				hasLegacyManifest = true
			case strings.HasPrefix(f, "controls/") && strings.HasSuffix(f, ".rb"):
				hasControls = true
			case strings.HasPrefix(f, "test/") && strings.HasSuffix(f, ".rb"):
				hasLegacyTests = true
			}
		}
		if !hasManifest && hasLegacyManifest {
			r.warnings = append(r.warnings, Warning{
				Kind:    "legacy-metadata",
				Message: "metadata.rb is deprecated; use inspec.yml",
			})
		}
		if !hasControls && hasLegacyTests {
			r.warnings = append(r.warnings, Warning{
				Kind:    "legacy-test-dir",
				Message: "test/ is deprecated; use controls/",
			})
		}
	})
}

// Metadata returns the manifest bytes, preferring inspec.yml over the
// deprecated metadata.rb.
func (r *StandardReader) Metadata() ([]byte, string, error) {
	r.classify()
	if contains(r.tree.Files, "inspec.yml") {
		data, err := r.tree.Read("inspec.yml")
		return data, "inspec.yml", err
	}
	if contains(r.tree.Files, "metadata.rb") {
		data, err := r.tree.Read("metadata.rb")
		return data, "metadata.rb", err
	}
	return nil, "", fmt.Errorf("source: no manifest file found in %q", r.tree.Prefix)
}

// Tests returns every .rb file under controls/, or, when no file lies
// under controls/, every .rb file under the deprecated test/ directory.
// The two directories are never merged.
func (r *StandardReader) Tests() (map[string][]byte, error) {
	r.classify()
	out := map[string][]byte{}
	dir := "controls/"
	if !anyHasPrefix(r.tree.Files, dir) {
		dir = "test/"
	}
	for _, f := range r.tree.Files {
		if !strings.HasPrefix(f, dir) || !strings.HasSuffix(f, ".rb") {
			continue
		}
		data, err := r.tree.Read(f)
		if err != nil {
			return nil, err
		}
		out[f] = data
	}
	return out, nil
}

// Libraries returns every libraries/**/*.rb file, sorted by path.
func (r *StandardReader) Libraries() ([]LibraryFile, error) {
	r.classify()
	var files []string
	for _, f := range r.tree.Files {
		if strings.HasPrefix(f, "libraries/") && strings.HasSuffix(f, ".rb") {
			files = append(files, f)
		}
	}
	sort.Strings(files)

	out := make([]LibraryFile, 0, len(files))
	for _, f := range files {
		data, err := r.tree.Read(f)
		if err != nil {
			return nil, err
		}
		out = append(out, LibraryFile{
			Path:      f,
			Bytes:     data,
			SourceRef: path.Base(f),
			StartLine: 1,
		})
	}
	return out, nil
}

func contains(list []string, target string) bool {
	for _, f := range list {
		if f == target {
			return true
		}
	}
	return false
}

func anyHasPrefix(list []string, prefix string) bool {
	for _, f := range list {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}
