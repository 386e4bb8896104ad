package control

import (
	"fmt"
)

// Attribute is a caller-overridable parameter declared via `attribute`
// (spec.md §3 "Attribute").
type Attribute struct {
	Name        string
	Default     string
	HasDefault  bool
	Description string
	Required    bool
	Value       any
}

// UnsetSentinel is the value returned for an attribute with no caller
// binding and no declared default.
type UnsetSentinel struct{}

// EvaluationError records a failure evaluating one definition unit. It
// does not abort the Context: evaluation continues with the next unit
// (spec.md §4.4 "Error semantics").
type EvaluationError struct {
	File string
	Line int
	Msg  string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Context is the sandboxed evaluation environment for one profile's
// control-definition units (C4). One Context per Profile; never reused
// across profiles.
type Context struct {
	ProfileID string
	Host      HostLoader

	registry   *Registry
	loader     *RequireLoader
	attributes []Attribute
	bindings   map[string]any
	skip       bool
	groupTitle string
	errs       []*EvaluationError
}

// NewContext builds a Context for profileID with caller-supplied
// attribute bindings.
func NewContext(profileID string, bindings map[string]any) *Context {
	if bindings == nil {
		bindings = map[string]any{}
	}
	return &Context{
		ProfileID: profileID,
		Host:      NoopHostLoader{},
		registry:  newRegistry(),
		loader:    NewRequireLoader(),
		bindings:  bindings,
	}
}

// Registry returns the rule registry this Context has populated so far.
func (c *Context) Registry() *Registry { return c.registry }

// RequireLoader returns the in-memory module store (C5).
func (c *Context) RequireLoader() *RequireLoader { return c.loader }

// Attributes returns every attribute declared so far, in declaration
// order.
func (c *Context) Attributes() []Attribute {
	return append([]Attribute(nil), c.attributes...)
}

// Errors returns every per-unit evaluation error recorded so far.
func (c *Context) Errors() []*EvaluationError { return c.errs }

// SkipSticky reports whether only_if has set the context-wide skip flag.
func (c *Context) SkipSticky() bool { return c.skip }

// EvalFile parses and evaluates src top to bottom. A failure evaluating
// one unit is recorded and does not abort the remaining units in file.
func (c *Context) EvalFile(file string, src []byte) {
	for _, u := range splitUnits(src) {
		c.evalUnit(file, u)
	}
}

func (c *Context) evalUnit(file string, u sourceUnit) {
	pc, ok := parseUnit(u)
	if !ok {
		return
	}
	switch pc.name {
	case "control", "rule":
		c.handleControl(file, u.startLine, pc)
	case "describe":
		c.handleDescribe(file, u.startLine, pc)
	case "skip_control", "skip_rule":
		c.handleSkip(file, u.startLine, pc)
	case "title":
		c.groupTitle = firstQuotedArg(pc.args)
	case "only_if":
		c.skip = true
	case "attribute":
		c.handleAttribute(pc)
	case "require":
		c.handleRequire(file, u.startLine, pc)
	default:
		// Unrecognized top-level statements belong to the resource DSL
		// surface, which is out of scope (spec.md §9); they are ignored
		// rather than treated as errors.
	}
}

func (c *Context) fullID(ruleID string) string {
	if c.ProfileID == "" {
		return ruleID
	}
	return c.ProfileID + "/" + ruleID
}

func (c *Context) handleControl(file string, line int, pc parsedCall) {
	id, opts := parseArgs(pc.args)
	if id == "" {
		id = syntheticID(file, line)
	}

	ctrl := &Control{
		ID:         id,
		Impact:     0.5,
		Tags:       map[string]string{},
		Code:       pc.raw,
		SourceFile: file,
		SourceLine: line,
		GroupTitle: c.groupTitle,
		Skip:       c.skip,
	}
	applyControlOpts(ctrl, opts)

	for _, su := range splitUnits([]byte(pc.body)) {
		sub, ok := parseUnit(su)
		if !ok {
			continue
		}
		switch sub.name {
		case "impact":
			ctrl.Impact = clampImpact(parseFloatArg(sub.args))
		case "title":
			ctrl.Title = unquote(firstQuotedArg(sub.args))
		case "desc", "description":
			ctrl.Desc = unquote(firstQuotedArg(sub.args))
		case "tag":
			mergeTag(ctrl.Tags, sub.args)
		case "ref":
			ctrl.Refs = append(ctrl.Refs, sub.args)
		case "only_if":
			ctrl.Skip = true
		case "describe":
			ctrl.Checks = append(ctrl.Checks, CheckSpec{Kind: "describe", Args: sub.args, Body: sub.body})
		}
	}

	c.registry.Register(c.fullID(id), ctrl)
}

func applyControlOpts(ctrl *Control, opts map[string]string) {
	if v, ok := opts["impact"]; ok {
		ctrl.Impact = clampImpact(parseFloatLiteral(v))
	}
	if v, ok := opts["title"]; ok {
		ctrl.Title = unquote(v)
	}
	if v, ok := opts["desc"]; ok {
		ctrl.Desc = unquote(v)
	}
}

func (c *Context) handleDescribe(file string, line int, pc parsedCall) {
	id := syntheticID(file, line)
	ctrl := &Control{
		ID:         id,
		Impact:     0.5,
		Tags:       map[string]string{},
		Checks:     []CheckSpec{{Kind: "describe", Args: pc.args, Body: pc.body}},
		Code:       pc.raw,
		SourceFile: file,
		SourceLine: line,
		GroupTitle: c.groupTitle,
		Skip:       c.skip,
	}
	c.registry.Register(c.fullID(id), ctrl)
}

func (c *Context) handleSkip(file string, line int, pc parsedCall) {
	id, _ := parseArgs(pc.args)
	if id == "" {
		c.recordError(file, line, "skip_control: missing id argument")
		return
	}
	if c.registry.MarkSkip(c.fullID(id)) || c.registry.MarkSkip(id) {
		return
	}
	c.recordError(file, line, fmt.Sprintf("skip_control: unknown id %q", id))
}

func (c *Context) handleAttribute(pc parsedCall) Attribute {
	name, opts := parseArgs(pc.args)
	attr := Attribute{Name: name}
	if d, ok := opts["default"]; ok {
		attr.Default = unquote(d)
		attr.HasDefault = true
	}
	if d, ok := opts["description"]; ok {
		attr.Description = unquote(d)
	}
	if r, ok := opts["required"]; ok {
		attr.Required = r == "true"
	}

	if v, ok := c.bindings[name]; ok {
		attr.Value = v
	} else if attr.HasDefault {
		attr.Value = attr.Default
	} else {
		attr.Value = UnsetSentinel{}
	}

	c.attributes = append(c.attributes, attr)
	return attr
}

func (c *Context) handleRequire(file string, line int, pc parsedCall) {
	path := unquote(firstQuotedArg(pc.args))
	if path == "" {
		c.recordError(file, line, "require: missing path argument")
		return
	}
	if _, err := c.Require(path); err != nil {
		c.recordError(file, line, fmt.Sprintf("require %q: %v", path, err))
	}
}

// Require resolves path against the in-memory loader first; only on a
// miss there does it fall through to the HostLoader seam (spec.md §4.4).
// Re-requiring an already-loaded in-memory module is a no-op.
func (c *Context) Require(path string) ([]byte, error) {
	if c.loader.Exists(path) {
		data, _, _, ok, err := c.loader.Load(path)
		if err != nil || !ok {
			return nil, err
		}
		return data, nil
	}
	return c.Host.Load(path)
}

func (c *Context) recordError(file string, line int, msg string) {
	c.errs = append(c.errs, &EvaluationError{File: file, Line: line, Msg: msg})
}
