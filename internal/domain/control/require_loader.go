package control

import (
	"errors"
	"sync"
)

// ErrHostModuleNotFound is returned when a required path is unknown to
// both the in-memory loader and the injected HostLoader.
var ErrHostModuleNotFound = errors.New("control: module not found")

type module struct {
	data      []byte
	sourceRef string
	startLine int
	loaded    bool
}

// RequireLoader is the in-memory module store of C5. There is no
// eviction: once added, a module lives for the Context's lifetime.
type RequireLoader struct {
	mu      sync.Mutex
	modules map[string]*module
}

// NewRequireLoader builds an empty RequireLoader.
func NewRequireLoader() *RequireLoader {
	return &RequireLoader{modules: map[string]*module{}}
}

// Add registers logicalPath's source bytes.
func (l *RequireLoader) Add(logicalPath string, data []byte, sourceRef string, startLine int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules[logicalPath] = &module{data: data, sourceRef: sourceRef, startLine: startLine}
}

// Exists reports whether logicalPath was added.
func (l *RequireLoader) Exists(logicalPath string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.modules[logicalPath]
	return ok
}

// Loaded reports whether logicalPath has already been loaded.
func (l *RequireLoader) Loaded(logicalPath string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.modules[logicalPath]
	return ok && m.loaded
}

// Load marks logicalPath as loaded and returns its bytes, source
// reference, and start line. Re-loading an already-loaded module is a
// no-op reporting ok=false, per spec.md §4.5.
func (l *RequireLoader) Load(logicalPath string) (data []byte, sourceRef string, startLine int, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, exists := l.modules[logicalPath]
	if !exists {
		return nil, "", 0, false, ErrHostModuleNotFound
	}
	if m.loaded {
		return nil, "", 0, false, nil
	}
	m.loaded = true
	return m.data, m.sourceRef, m.startLine, true, nil
}

// HostLoader is the fallback consulted when a required path is unknown
// to the in-memory RequireLoader — the "host's module loader" of
// spec.md §4.4. This core never executes host-language code, so the
// default NoopHostLoader always reports not found; callers embedding a
// real host runtime (e.g. the WASM check-execution seam in
// internal/domain/sandbox) may supply their own.
type HostLoader interface {
	Load(path string) ([]byte, error)
}

// NoopHostLoader is the default HostLoader: it never resolves a path.
type NoopHostLoader struct{}

func (NoopHostLoader) Load(_ string) ([]byte, error) {
	return nil, ErrHostModuleNotFound
}
