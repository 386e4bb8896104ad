// Package profile is the Profile façade (C8): the single entry point
// that ties fetch, source classification, metadata, and control
// evaluation together into params/info/check/archive/locked_dependencies.
package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/profilecore/internal/domain/archive"
	"github.com/felixgeelhaar/profilecore/internal/domain/control"
	"github.com/felixgeelhaar/profilecore/internal/domain/fetch"
	"github.com/felixgeelhaar/profilecore/internal/domain/metadata"
	"github.com/felixgeelhaar/profilecore/internal/domain/resolve"
	"github.com/felixgeelhaar/profilecore/internal/domain/source"
	"github.com/felixgeelhaar/profilecore/internal/ports"
)

// Options are the unresolved construction options of spec.md §4.8:
// an optional profile id override, caller-supplied attribute bindings,
// a HostLoader for the require fallback, and a vendor cache root.
// VendorRoot is stored but not read by Profile: LockedDependencies
// resolves against the provider it is given.
type Options struct {
	IDOverride string
	Attributes map[string]any
	Host       control.HostLoader
	VendorRoot string
	Logger     ports.Logger
}

// ControlInfo is one control's normalized view. Checks is populated by
// Params and stripped (nilled) by Info, per spec.md §4.8.
type ControlInfo struct {
	ID         string
	Title      string
	Desc       string
	Impact     float64
	Refs       []string
	Tags       map[string]string
	GroupTitle string
	Skip       bool
	SourceFile string
	SourceLine int
	Checks     []control.CheckSpec
}

// NormalizedParams is the shape returned by Params/Info: metadata fields
// plus the controls/groups/attributes the evaluated Context produced.
type NormalizedParams struct {
	Name           string
	Title          string
	Maintainer     string
	Copyright      string
	CopyrightEmail string
	License        string
	Summary        string
	Version        string
	Supports       []metadata.Support
	InspecVersion  string

	Controls   map[string]*ControlInfo
	Groups     map[string][]string // group title -> sorted control ids
	Attributes []control.Attribute
}

// Diagnostic is one check() error or warning entry (spec.md §7).
type Diagnostic struct {
	File      string
	Line      int
	ControlID string
	Msg       string
}

// CheckSummary is the top-level result of check() (spec.md §7).
type CheckSummary struct {
	Valid     bool
	Timestamp time.Time
	Location  string
	Profile   string
	Controls  int
}

// CheckReport is the structured, non-throwing output of Check().
type CheckReport struct {
	Summary  CheckSummary
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// ArchiveOptions controls Archive's destination and format.
type ArchiveOptions struct {
	Output    string
	Overwrite bool
	Variant   archive.Variant
}

// Profile is the façade over one fetched, classified, and evaluated
// profile tree.
type Profile struct {
	reader source.Reader
	logger ports.Logger
	opts   Options

	metaOnce sync.Once
	meta     *metadata.Metadata
	metaErr  error

	ctxOnce sync.Once
	ctx     *control.Context
	ctxErr  error

	paramsOnce  sync.Once
	paramsCache *NormalizedParams
	paramsErr   error

	lockedDepsOnce  sync.Once
	lockedDepsCache *resolve.Graph
	lockedDepsErr   error
}

// ForTarget resolves target through C1 then C2 and builds a Profile.
// Metadata is finalized eagerly so the profile id is available
// immediately, per spec.md §4.8.
func ForTarget(ctx context.Context, fetchers *fetch.Registry, readers *source.Registry, target string, opts Options) (*Profile, error) {
	tree, err := fetchers.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	reader, err := readers.Resolve(tree)
	if err != nil {
		return nil, err
	}
	return New(reader, opts), nil
}

// ForFileTree builds a Profile directly over an already-materialized
// FileTree, skipping C1, for callers that already hold a FileTree (such
// as the one vendor.LocalSpec.Target returns) and would otherwise have
// to re-fetch it.
func ForFileTree(readers *source.Registry, tree *fetch.FileTree, opts Options) (*Profile, error) {
	reader, err := readers.Resolve(tree)
	if err != nil {
		return nil, err
	}
	return New(reader, opts), nil
}

// New builds a Profile directly over an already-classified Reader.
func New(reader source.Reader, opts Options) *Profile {
	if opts.Host == nil {
		opts.Host = control.NoopHostLoader{}
	}
	if opts.Attributes == nil {
		opts.Attributes = map[string]any{}
	}
	p := &Profile{reader: reader, logger: opts.Logger, opts: opts}
	p.metadata() // eager finalize, per spec.md §4.8
	return p
}

// metadata parses and finalizes the manifest once. A parse failure is
// recorded and surfaced by Params/Info/Check rather than panicking here.
func (p *Profile) metadata() (*metadata.Metadata, error) {
	p.metaOnce.Do(func() {
		data, _, err := p.reader.Metadata()
		if err != nil {
			p.metaErr = fmt.Errorf("profile: read manifest: %w", err)
			return
		}
		m, err := metadata.Parse(data)
		if err != nil {
			p.metaErr = err
			return
		}
		m.Finalize(p.opts.IDOverride)
		p.meta = m
	})
	return p.meta, p.metaErr
}

// evalContext registers every library with the require loader, then
// evaluates every control file in sorted path order, declarations
// top-to-bottom within a file. Libraries run only when a control file
// requires them; nested profiles are not evaluated. Memoized: the
// Context (and its registered controls) is built once per Profile.
func (p *Profile) evalContext() (*control.Context, error) {
	p.ctxOnce.Do(func() {
		m, err := p.metadata()
		if err != nil {
			p.ctxErr = err
			return
		}

		ctx := control.NewContext(m.Name, p.opts.Attributes)
		ctx.Host = p.opts.Host

		libs, err := p.reader.Libraries()
		if err != nil {
			p.ctxErr = fmt.Errorf("profile: read libraries: %w", err)
			return
		}
		for _, lib := range libs {
			ctx.RequireLoader().Add(lib.Path, lib.Bytes, lib.SourceRef, lib.StartLine)
		}

		tests, err := p.reader.Tests()
		if err != nil {
			p.ctxErr = fmt.Errorf("profile: read controls: %w", err)
			return
		}
		files := make([]string, 0, len(tests))
		for f := range tests {
			files = append(files, f)
		}
		sort.Strings(files)
		for _, f := range files {
			ctx.EvalFile(f, tests[f])
		}

		p.ctx = ctx
	})
	return p.ctx, p.ctxErr
}

// Params computes the full normalized view (spec.md §4.8), memoized:
// repeat calls return the same *NormalizedParams value.
func (p *Profile) Params() (*NormalizedParams, error) {
	p.paramsOnce.Do(func() {
		p.paramsCache, p.paramsErr = p.buildParams(false)
	})
	return p.paramsCache, p.paramsErr
}

// Info is Params with execution-only fields (the raw checks list)
// stripped from every control and impact clamped/defaulted.
func (p *Profile) Info() (*NormalizedParams, error) {
	full, err := p.buildParams(true)
	if err != nil {
		return nil, err
	}
	return full, nil
}

func (p *Profile) buildParams(stripChecks bool) (*NormalizedParams, error) {
	m, err := p.metadata()
	if err != nil {
		return nil, err
	}
	ctx, err := p.evalContext()
	if err != nil {
		return nil, err
	}

	out := &NormalizedParams{
		Name:           m.Name,
		Title:          m.Title,
		Maintainer:     m.Maintainer,
		Copyright:      m.Copyright,
		CopyrightEmail: m.CopyrightEmail,
		License:        m.License,
		Summary:        m.Summary,
		Version:        m.Version,
		Supports:       m.Supports,
		InspecVersion:  m.InspecVersion,
		Controls:       map[string]*ControlInfo{},
		Groups:         map[string][]string{},
		Attributes:     ctx.Attributes(),
	}

	for _, c := range ctx.Registry().Ordered() {
		ci := &ControlInfo{
			ID:         c.ID,
			Title:      c.Title,
			Desc:       c.Desc,
			Impact:     clampImpact(c.Impact),
			Refs:       append([]string(nil), c.Refs...),
			Tags:       copyTags(c.Tags),
			GroupTitle: c.GroupTitle,
			Skip:       c.Skip,
			SourceFile: c.SourceFile,
			SourceLine: c.SourceLine,
		}
		if !stripChecks {
			ci.Checks = append([]control.CheckSpec(nil), c.Checks...)
		}
		out.Controls[c.ID] = ci
		if c.GroupTitle != "" {
			out.Groups[c.GroupTitle] = append(out.Groups[c.GroupTitle], c.ID)
		}
	}
	for g := range out.Groups {
		sort.Strings(out.Groups[g])
	}

	return out, nil
}

func clampImpact(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func copyTags(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Check runs the structured validation of spec.md §7.
func (p *Profile) Check() CheckReport {
	report := CheckReport{
		Summary: CheckSummary{Timestamp: time.Now().UTC(), Location: p.location()},
	}

	m, err := p.metadata()
	if err != nil {
		report.Errors = append(report.Errors, Diagnostic{Msg: err.Error()})
		return report
	}
	report.Summary.Profile = m.Name

	errs, warnings := m.Valid()
	for _, d := range errs {
		report.Errors = append(report.Errors, Diagnostic{Msg: d.String()})
	}
	for _, d := range warnings {
		report.Warnings = append(report.Warnings, Diagnostic{Msg: d.String()})
	}
	for _, w := range p.reader.Warnings() {
		report.Warnings = append(report.Warnings, Diagnostic{Msg: w.String()})
	}

	ctx, err := p.evalContext()
	if err != nil {
		report.Errors = append(report.Errors, Diagnostic{Msg: err.Error()})
		return report
	}
	for _, e := range ctx.Errors() {
		report.Errors = append(report.Errors, Diagnostic{File: e.File, Line: e.Line, Msg: e.Msg})
	}

	controls := ctx.Registry().Ordered()
	report.Summary.Controls = len(controls)
	if len(controls) == 0 {
		report.Warnings = append(report.Warnings, Diagnostic{Msg: "no controls are defined"})
	}

	for _, c := range controls {
		if control.IsSynthetic(c.ID) {
			continue
		}
		if strings.TrimSpace(c.ID) == "" {
			report.Errors = append(report.Errors, Diagnostic{File: c.SourceFile, Line: c.SourceLine, ControlID: c.ID, Msg: "control id is empty"})
		}
		if c.Title == "" {
			report.Warnings = append(report.Warnings, Diagnostic{File: c.SourceFile, Line: c.SourceLine, ControlID: c.ID, Msg: "missing title"})
		}
		if c.Desc == "" {
			report.Warnings = append(report.Warnings, Diagnostic{File: c.SourceFile, Line: c.SourceLine, ControlID: c.ID, Msg: "missing desc"})
		}
		if c.Impact < 0 || c.Impact > 1 {
			report.Warnings = append(report.Warnings, Diagnostic{File: c.SourceFile, Line: c.SourceLine, ControlID: c.ID, Msg: fmt.Sprintf("impact %v outside [0,1]", c.Impact)})
		}
		if len(c.Checks) == 0 {
			report.Warnings = append(report.Warnings, Diagnostic{File: c.SourceFile, Line: c.SourceLine, ControlID: c.ID, Msg: "no checks"})
		}
	}

	report.Summary.Valid = len(report.Errors) == 0
	return report
}

func (p *Profile) location() string {
	if t := p.reader.Target(); t != nil {
		return t.Prefix
	}
	return ""
}

var slugInvalidRe = regexp.MustCompile(`[^\w-]`)

// archiveName implements spec.md §4.8's derivation formula.
func archiveName(name string, variant archive.Variant) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugInvalidRe.ReplaceAllString(slug, "_")
	if variant == archive.VariantZip {
		return slug + ".zip"
	}
	return slug + ".tar.gz"
}

// Archive delegates to C9, refusing to overwrite an existing destination
// unless opts.Overwrite is set (spec.md §4.8).
func (p *Profile) Archive(fs ports.FileSystem, opts ArchiveOptions) (bool, error) {
	m, err := p.metadata()
	if err != nil {
		return false, err
	}

	tree := p.reader.Target()
	root, err := tree.AbsPath(".")
	if err != nil {
		return false, fmt.Errorf("profile: archive requires a filesystem-backed target: %w", err)
	}

	dest := opts.Output
	if dest == "" {
		dest = archiveName(m.Name, opts.Variant)
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(root), dest)
	}

	if fs.Exists(dest) {
		if !opts.Overwrite {
			return false, nil
		}
		if err := fs.Remove(dest); err != nil {
			return false, fmt.Errorf("profile: remove existing archive: %w", err)
		}
	}

	files := append([]string(nil), tree.Files...)
	sort.Strings(files)

	if err := archive.Generate(root, files, dest, opts.Variant); err != nil {
		return false, err
	}
	return true, nil
}

// LockedDependencies resolves the finalized manifest's requirements
// against provider, memoized per Profile: later calls return the first
// call's result whatever provider they pass.
func (p *Profile) LockedDependencies(provider resolve.SpecificationProvider) (*resolve.Graph, error) {
	p.lockedDepsOnce.Do(func() {
		m, err := p.metadata()
		if err != nil {
			p.lockedDepsErr = err
			return
		}
		p.lockedDepsCache, p.lockedDepsErr = resolve.Resolve(m.Requirements, provider)
	})
	return p.lockedDepsCache, p.lockedDepsErr
}
