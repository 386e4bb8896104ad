package fetch

import (
	"context"
	"strings"
)

// URLFetcher is the collaborator interface for remote HTTP/HTTPS
// fetching. spec.md §9 leaves the remote fetch protocol an open
// question and treats it as a collaborator interface; this core ships
// an interface-complete stub that correctly recognizes URL targets so
// Registry.Resolve reports a precise FetchError instead of silently
// falling through to "no fetcher handles this target" (Non-goal:
// transport-layer details of remote fetching).
type URLFetcher struct{}

// Handles reports whether target looks like an http(s) URL.
func (URLFetcher) Handles(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// Fetch is unimplemented; transport-layer remote fetching is out of
// scope for this core.
func (URLFetcher) Fetch(_ context.Context, _ string) (*FileTree, error) {
	return nil, ErrUnsupported
}

// GitFetcher is the collaborator interface for git-based fetching. Same
// rationale as URLFetcher.
type GitFetcher struct{}

// Handles reports whether target looks like a git remote reference.
func (GitFetcher) Handles(target string) bool {
	return strings.HasPrefix(target, "git://") ||
		strings.HasPrefix(target, "git@") ||
		strings.HasSuffix(target, ".git")
}

// Fetch is unimplemented; transport-layer remote fetching is out of
// scope for this core.
func (GitFetcher) Fetch(_ context.Context, _ string) (*FileTree, error) {
	return nil, ErrUnsupported
}
