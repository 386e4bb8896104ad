// Package metadata parses and normalizes profile manifests.
package metadata

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// recognizedKeys is the set of top-level manifest keys the core understands.
// Anything else is reported as unsupported, not rejected.
var recognizedKeys = map[string]bool{
	"name":           true,
	"title":          true,
	"maintainer":     true,
	"copyright":      true,
	"copyright_email": true,
	"license":        true,
	"summary":        true,
	"version":        true,
	"supports":       true,
	"depends":        true,
	"inspec_version": true,
}

// Support describes one declared platform compatibility constraint.
type Support struct {
	OSName    string `yaml:"os-name,omitempty"`
	OSFamily  string `yaml:"os-family,omitempty"`
	Release   string `yaml:"release,omitempty"`
}

// Metadata is the parsed and (after Finalize) normalized manifest.
type Metadata struct {
	Name            string        `yaml:"name"`
	Title           string        `yaml:"title,omitempty"`
	Maintainer      string        `yaml:"maintainer,omitempty"`
	Copyright       string        `yaml:"copyright,omitempty"`
	CopyrightEmail  string        `yaml:"copyright_email,omitempty"`
	License         string        `yaml:"license,omitempty"`
	Summary         string        `yaml:"summary,omitempty"`
	Version         string        `yaml:"version,omitempty"`
	Supports        []Support     `yaml:"supports,omitempty"`
	Depends         []DependsEntry `yaml:"depends,omitempty"`
	InspecVersion   string        `yaml:"inspec_version,omitempty"`

	// Requirements is populated by Finalize from Depends. Empty until then.
	Requirements []Requirement `yaml:"-"`

	// raw holds the original decoded map so Unsupported() can diff against
	// recognizedKeys without losing keys the typed struct doesn't model.
	raw map[string]yaml.Node `yaml:"-"`
}

// DependsEntry is the raw YAML shape of one `depends` list item.
type DependsEntry struct {
	Name       string `yaml:"name"`
	Version    string `yaml:"version,omitempty"`
	Path       string `yaml:"path,omitempty"`
	Git        string `yaml:"git,omitempty"`
	Ref        string `yaml:"ref,omitempty"`
	Branch     string `yaml:"branch,omitempty"`
	URL        string `yaml:"url,omitempty"`
	Supermarket string `yaml:"supermarket,omitempty"`
}

// Diagnostic is one error or warning surfaced by Valid().
type Diagnostic struct {
	Field   string
	Message string
}

func (d Diagnostic) String() string {
	if d.Field == "" {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Field, d.Message)
}

// ErrInvalidYAML wraps yaml.v3 unmarshal failures.
var ErrInvalidYAML = errors.New("invalid manifest yaml")

// Parse decodes a YAML manifest. Legacy metadata.rb parsing is out of
// scope for this core (no Ruby evaluation); callers that detect a
// metadata.rb file surface a deprecation warning at the source.Reader
// layer and must not hand its contents to Parse.
func Parse(data []byte) (*Metadata, error) {
	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}
	m.raw = raw

	return &m, nil
}

// Finalize applies the three derivation rules from the manifest spec, in
// order: override id, supports normalization, depends conversion.
func (m *Metadata) Finalize(overrideID string) []Diagnostic {
	var diags []Diagnostic

	if overrideID != "" {
		m.Name = overrideID
	}

	caser := cases.Title(language.Und)
	for i := range m.Supports {
		s := &m.Supports[i]
		s.OSFamily = strings.ToLower(strings.TrimSpace(s.OSFamily))
		s.OSName = strings.ToLower(strings.TrimSpace(s.OSName))
		s.Release = strings.TrimSpace(s.Release)
		if s.OSFamily == "" && s.OSName == "" && s.Release == "" {
			diags = append(diags, Diagnostic{Field: "supports", Message: "empty support entry"})
		}
		_ = caser // reserved for display-cased platform names in reporting
	}

	m.Requirements = nil
	for _, d := range m.Depends {
		req, err := requirementFromDepends(d)
		if err != nil {
			diags = append(diags, Diagnostic{Field: "depends", Message: err.Error()})
			continue
		}
		m.Requirements = append(m.Requirements, req)
	}

	return diags
}

// Valid returns the errors and warnings spec.md §4.3/§7 require.
func (m *Metadata) Valid() (errs, warnings []Diagnostic) {
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, Diagnostic{Field: "name", Message: "name is required"})
	}
	if m.Version != "" && !isSemver(m.Version) {
		errs = append(errs, Diagnostic{Field: "version", Message: "version must be semver"})
	}
	for i, s := range m.Supports {
		if s.OSFamily == "" && s.OSName == "" && s.Release == "" {
			errs = append(errs, Diagnostic{Field: fmt.Sprintf("supports[%d]", i), Message: "malformed supports entry"})
		}
	}
	for i, d := range m.Depends {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, Diagnostic{Field: fmt.Sprintf("depends[%d]", i), Message: "malformed dependency: name is required"})
		}
	}

	if m.Title == "" {
		warnings = append(warnings, Diagnostic{Field: "title", Message: "missing title"})
	}
	if m.Summary == "" {
		warnings = append(warnings, Diagnostic{Field: "summary", Message: "missing summary"})
	}
	if m.Version == "" {
		warnings = append(warnings, Diagnostic{Field: "version", Message: "missing version"})
	}
	if m.Maintainer == "" {
		warnings = append(warnings, Diagnostic{Field: "maintainer", Message: "missing maintainer"})
	}

	return errs, warnings
}

// Unsupported returns manifest keys outside the recognized set, sorted for
// determinism (spec.md §5 requires byte-stable output for a fixed input).
func (m *Metadata) Unsupported() []string {
	var keys []string
	for k := range m.raw {
		if !recognizedKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
