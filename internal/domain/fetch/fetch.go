// Package fetch maps a target string to a uniform, read-only FileTree
// (C1 — Fetcher Registry).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FileTree is the materialized view produced by a Fetcher. It is
// read-only for the lifetime of the Profile that owns it.
type FileTree struct {
	// Prefix is the root path or logical base of the tree.
	Prefix string
	// Files is the ordered list of relative paths in the tree.
	Files []string

	reader TreeReader
}

// TreeReader abstracts the byte-level access a Fetcher's materialized
// tree exposes; local fetchers back it with the filesystem, archive
// fetchers with an in-memory index.
type TreeReader interface {
	Read(path string) ([]byte, error)
	AbsPath(ref string) (string, error)
}

// NewFileTree constructs a FileTree over a TreeReader.
func NewFileTree(prefix string, files []string, reader TreeReader) *FileTree {
	return &FileTree{Prefix: prefix, Files: files, reader: reader}
}

// Read returns the bytes of path, relative to the tree's prefix.
func (t *FileTree) Read(path string) ([]byte, error) {
	return t.reader.Read(path)
}

// AbsPath resolves a single logical file reference to an absolute path,
// when the underlying tree is filesystem-backed.
func (t *FileTree) AbsPath(ref string) (string, error) {
	return t.reader.AbsPath(ref)
}

// FetchError is returned when no fetcher handles a target, or a handling
// fetcher fails to materialize it.
type FetchError struct {
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %q: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("fetch %q: no fetcher handles this target", e.Target)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrUnsupported is returned by collaborator fetchers (URL, git) whose
// transport is not implemented by this core; only local variants are
// mandatory (spec.md §4.1).
var ErrUnsupported = errors.New("fetch: transport not implemented by this core")

// Fetcher materializes a target into a FileTree. Implementations should
// be idempotent for the same target within one process lifetime.
type Fetcher interface {
	Handles(target string) bool
	Fetch(ctx context.Context, target string) (*FileTree, error)
}

// Registry probes Fetchers in registration order and returns the first
// one that handles a given target.
type Registry struct {
	mu       sync.Mutex
	fetchers []Fetcher
	memo     map[string]*FileTree
}

// NewRegistry builds a Registry over the given fetchers, probed in order.
func NewRegistry(fetchers ...Fetcher) *Registry {
	return &Registry{fetchers: fetchers, memo: map[string]*FileTree{}}
}

// Register appends a fetcher to the end of the probe order. Registries
// are expected to be write-once at process startup (spec.md §9 "Global
// state"); callers should not register fetchers after the first Resolve.
func (r *Registry) Register(f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers = append(r.fetchers, f)
}

// Resolve finds the first fetcher that handles target and fetches it,
// memoizing the result for subsequent calls with the same target.
func (r *Registry) Resolve(ctx context.Context, target string) (*FileTree, error) {
	r.mu.Lock()
	if tree, ok := r.memo[target]; ok {
		r.mu.Unlock()
		return tree, nil
	}
	fetchers := append([]Fetcher(nil), r.fetchers...)
	r.mu.Unlock()

	for _, f := range fetchers {
		if !f.Handles(target) {
			continue
		}
		tree, err := f.Fetch(ctx, target)
		if err != nil {
			return nil, &FetchError{Target: target, Err: err}
		}
		r.mu.Lock()
		r.memo[target] = tree
		r.mu.Unlock()
		return tree, nil
	}

	return nil, &FetchError{Target: target}
}
