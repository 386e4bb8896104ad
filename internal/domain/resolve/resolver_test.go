package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/profilecore/internal/domain/metadata"
	"github.com/felixgeelhaar/profilecore/internal/domain/resolve"
)

// fakeProvider is an in-memory SpecificationProvider for resolver tests.
type fakeProvider struct {
	candidates map[string][]resolve.Spec
	deps       map[string][]metadata.Requirement
}

func (f *fakeProvider) SearchFor(req metadata.Requirement) ([]resolve.Spec, error) {
	return f.candidates[req.Name], nil
}

func (f *fakeProvider) DependenciesFor(spec resolve.Spec) ([]metadata.Requirement, error) {
	return f.deps[spec.String()], nil
}

func TestResolve_SimpleChain(t *testing.T) {
	p := &fakeProvider{
		candidates: map[string][]resolve.Spec{
			"a": {{Name: "a", Version: "1.0.0"}},
			"b": {{Name: "b", Version: "1.0.0"}, {Name: "b", Version: "2.0.0"}},
		},
		deps: map[string][]metadata.Requirement{
			"a@1.0.0": {{Name: "b", Constraint: ">= 1.0.0"}},
		},
	}

	g, err := resolve.Resolve([]metadata.Requirement{{Name: "a"}}, p)
	require.NoError(t, err)

	specs := g.Specs()
	require.Contains(t, specs, "a")
	require.Contains(t, specs, "b")
	assert.Equal(t, "2.0.0", specs["b"].Version)

	order := g.TopologicalOrder()
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestResolve_VersionConflict(t *testing.T) {
	p := &fakeProvider{
		candidates: map[string][]resolve.Spec{
			"a": {{Name: "a", Version: "1.0.0"}},
			"b": {{Name: "b", Version: "1.0.0"}},
			"c": {{Name: "c", Version: "1.0.0"}},
		},
		deps: map[string][]metadata.Requirement{
			"a@1.0.0": {
				{Name: "b", Constraint: "= 1.0.0"},
				{Name: "c", Constraint: "= 1.0.0"},
			},
			"b@1.0.0": {{Name: "c", Constraint: "= 2.0.0"}},
		},
	}

	_, err := resolve.Resolve([]metadata.Requirement{{Name: "a"}}, p)
	require.Error(t, err)
	var conflict *resolve.VersionConflict
	require.ErrorAs(t, err, &conflict)
}

func TestResolve_CyclicDependency(t *testing.T) {
	p := &fakeProvider{
		candidates: map[string][]resolve.Spec{
			"a": {{Name: "a", Version: "1.0.0"}},
			"b": {{Name: "b", Version: "1.0.0"}},
		},
		deps: map[string][]metadata.Requirement{
			"a@1.0.0": {{Name: "b"}},
			"b@1.0.0": {{Name: "a"}},
		},
	}

	_, err := resolve.Resolve([]metadata.Requirement{{Name: "a"}}, p)
	require.Error(t, err)
	var cyc *resolve.CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.ElementsMatch(t, []string{"a", "b"}, cyc.Names)
}

func TestSatisfies(t *testing.T) {
	cases := []struct {
		version, constraint string
		want                bool
	}{
		{"1.2.3", ">= 1.0.0", true},
		{"1.2.3", "> 1.2.3", false},
		{"1.2.3", "~> 1.2", true},
		{"1.3.0", "~> 1.2", false},
		{"2.1.5", "~> 2.1.3", true},
		{"2.2.0", "~> 2.1.3", false},
		{"1.0.0", "= 1.0.0", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, resolve.Satisfies(c.version, c.constraint), "%s %s", c.version, c.constraint)
	}
}
