package metadata

import (
	"fmt"
	"regexp"
	"strings"
)

// RequirementSource is a tagged variant over the ways a dependency can be
// located: Path, Supermarket, Git, or Url. Implementations are marker
// structs; callers switch on the concrete type.
type RequirementSource interface {
	isRequirementSource()
}

// PathSource pins a dependency to a relative path inside the same tree.
type PathSource struct {
	RelativePath string
}

func (PathSource) isRequirementSource() {}

// SupermarketSource names a dependency hosted on a Chef-Supermarket-style
// index by host and slug.
type SupermarketSource struct {
	Host string
	Slug string
}

func (SupermarketSource) isRequirementSource() {}

// GitSource names a dependency fetched from a git remote, optionally
// pinned to a ref or branch.
type GitSource struct {
	URL    string
	Ref    string
	Branch string
}

func (GitSource) isRequirementSource() {}

// URLSource names a dependency fetched from a direct archive URL.
type URLSource struct {
	URL string
}

func (URLSource) isRequirementSource() {}

// Requirement is a (name, version-constraint, source) tuple naming a
// desired profile, per spec.md §3.
type Requirement struct {
	Name       string
	Constraint string
	Source     RequirementSource
}

// Pinned reports whether the requirement's source fixes an exact tree:
// a path, a url, or a git source with a ref or branch. The resolver does
// not consult it; pinned requirements get their candidates from the
// provider's SearchFor like any other.
func (r Requirement) Pinned() bool {
	switch s := r.Source.(type) {
	case PathSource:
		return true
	case GitSource:
		return s.Ref != "" || s.Branch != ""
	case URLSource:
		return true
	default:
		return false
	}
}

func requirementFromDepends(d DependsEntry) (Requirement, error) {
	if strings.TrimSpace(d.Name) == "" {
		return Requirement{}, fmt.Errorf("malformed dependency: name is required")
	}

	req := Requirement{Name: d.Name, Constraint: d.Version}

	switch {
	case d.Path != "":
		req.Source = PathSource{RelativePath: d.Path}
	case d.Git != "":
		req.Source = GitSource{URL: d.Git, Ref: d.Ref, Branch: d.Branch}
	case d.URL != "":
		req.Source = URLSource{URL: d.URL}
	case d.Supermarket != "":
		host, slug, err := splitSupermarket(d.Supermarket)
		if err != nil {
			return Requirement{}, fmt.Errorf("malformed dependency %q: %w", d.Name, err)
		}
		req.Source = SupermarketSource{Host: host, Slug: slug}
	default:
		// No explicit source: resolved against the vendor index/registry
		// by name + constraint alone.
	}

	return req, nil
}

func splitSupermarket(spec string) (host, slug string, err error) {
	parts := strings.SplitN(spec, "/", 2)
	if len(parts) == 1 {
		return "supermarket.chef.io", parts[0], nil
	}
	if parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid supermarket reference %q", spec)
	}
	return parts[0], parts[1], nil
}

var semverRe = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

func isSemver(v string) bool {
	return semverRe.MatchString(v)
}
