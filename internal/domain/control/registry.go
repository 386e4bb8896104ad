package control

import "strings"

// CheckSpec is an opaque assertion body forwarded to the runner; the
// core never evaluates it (spec.md §4.4, "resource DSL out of scope").
type CheckSpec struct {
	Kind string
	Args string
	Body string
}

// Control is one registered rule: an authored control block or an
// anonymous describe. ID is the bare rule id; the registry keys entries
// by the full id ("{profileID}/{ruleID}") internally so that merging
// and lookup stay scoped to one profile context.
type Control struct {
	ID         string
	Title      string
	Desc       string
	Impact     float64
	Refs       []string
	Tags       map[string]string
	Checks     []CheckSpec
	Code       string
	SourceFile string
	SourceLine int
	GroupTitle string
	Skip       bool
}

// IsSynthetic reports whether id was generated for an anonymous describe
// block rather than authored explicitly (spec.md §3 "Control").
func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, "(generated ")
}

// Registry maps full rule ids to Controls, preserving insertion order
// for reporting stability (spec.md §3 "Rule Registry").
type Registry struct {
	controls map[string]*Control
	order    []string
}

func newRegistry() *Registry {
	return &Registry{controls: map[string]*Control{}}
}

// Get looks up a Control by its full id.
func (r *Registry) Get(fullID string) (*Control, bool) {
	c, ok := r.controls[fullID]
	return c, ok
}

// Ordered returns every registered Control in insertion order.
func (r *Registry) Ordered() []*Control {
	out := make([]*Control, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.controls[id])
	}
	return out
}

// Len reports the number of distinct registered controls.
func (r *Registry) Len() int { return len(r.order) }

// Register inserts c under fullID, or merges it into an existing entry
// sharing that id: refs are unioned, tags unioned with last-writer wins
// on key conflicts, checks concatenated, and title/desc/impact take the
// new declaration's values; skip stays set once either declaration set
// it (spec.md §4.4 "merge by...").
func (r *Registry) Register(fullID string, c *Control) {
	existing, ok := r.controls[fullID]
	if !ok {
		r.controls[fullID] = c
		r.order = append(r.order, fullID)
		return
	}
	existing.Title = c.Title
	existing.Desc = c.Desc
	existing.Impact = c.Impact
	existing.Code = c.Code
	existing.SourceFile = c.SourceFile
	existing.SourceLine = c.SourceLine
	existing.GroupTitle = c.GroupTitle
	existing.Checks = append(existing.Checks, c.Checks...)
	existing.Refs = unionStrings(existing.Refs, c.Refs)
	if existing.Tags == nil {
		existing.Tags = map[string]string{}
	}
	for k, v := range c.Tags {
		existing.Tags[k] = v
	}
	if c.Skip {
		existing.Skip = true
	}
}

// MarkSkip sets Skip on the Control registered under fullID, reporting
// whether one was found.
func (r *Registry) MarkSkip(fullID string) bool {
	c, ok := r.controls[fullID]
	if !ok {
		return false
	}
	c.Skip = true
	return true
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
