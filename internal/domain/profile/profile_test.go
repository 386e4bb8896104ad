package profile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/profilecore/internal/domain/archive"
	"github.com/felixgeelhaar/profilecore/internal/domain/fetch"
	"github.com/felixgeelhaar/profilecore/internal/domain/metadata"
	"github.com/felixgeelhaar/profilecore/internal/domain/profile"
	"github.com/felixgeelhaar/profilecore/internal/domain/resolve"
	"github.com/felixgeelhaar/profilecore/internal/domain/source"
	"github.com/felixgeelhaar/profilecore/internal/ports"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newProfile(t *testing.T, files map[string]string, opts profile.Options) *profile.Profile {
	t.Helper()
	root := writeTree(t, files)
	tree, err := fetch.LocalDirFetcher{}.Fetch(context.Background(), root)
	require.NoError(t, err)
	reg := source.NewRegistry(source.NewStandardReader)
	reader, err := reg.Resolve(tree)
	require.NoError(t, err)
	return profile.New(reader, opts)
}

func TestProfile_MinimalValidProfile(t *testing.T) {
	p := newProfile(t, map[string]string{
		"inspec.yml": "name: p\nversion: 1.0.0\n",
		"controls/a.rb": `control 'c1' do
  impact 0.7
  title 't'
  desc 'd'
  describe file('/etc/hosts') do
    it { should exist }
  end
end
`,
	}, profile.Options{})

	report := p.Check()
	assert.True(t, report.Summary.Valid)
	assert.Equal(t, 1, report.Summary.Controls)
	assert.Equal(t, "p", report.Summary.Profile)

	info, err := p.Info()
	require.NoError(t, err)
	require.Contains(t, info.Controls, "c1")
	assert.Equal(t, 0.7, info.Controls["c1"].Impact)
	assert.Nil(t, info.Controls["c1"].Checks)
}

func TestProfile_MissingName(t *testing.T) {
	p := newProfile(t, map[string]string{
		"inspec.yml":    "version: 1.0.0\n",
		"controls/a.rb": "control 'c1' do\nend\n",
	}, profile.Options{})

	report := p.Check()
	assert.False(t, report.Summary.Valid)
	found := false
	for _, e := range report.Errors {
		if e.Msg == "name: name is required" {
			found = true
		}
	}
	assert.True(t, found, "expected a name-required error, got %+v", report.Errors)
}

func TestProfile_ImpactClamping(t *testing.T) {
	p := newProfile(t, map[string]string{
		"inspec.yml": "name: p\n",
		"controls/a.rb": `control 'c1' do
  impact 2.5
end
`,
	}, profile.Options{})

	info, err := p.Info()
	require.NoError(t, err)
	assert.Equal(t, 1.0, info.Controls["c1"].Impact)

	report := p.Check()
	hasWarning := false
	for _, w := range report.Warnings {
		if w.ControlID == "c1" {
			hasWarning = true
		}
	}
	assert.True(t, hasWarning)
}

func TestProfile_DuplicateControlMerge(t *testing.T) {
	p := newProfile(t, map[string]string{
		"inspec.yml": "name: p\n",
		"controls/a.rb": `control 'c1' do
  title 'first'
  describe file('/a') do
    it { should exist }
  end
end
control 'c1' do
  title 'second'
  describe file('/b') do
    it { should exist }
  end
end
`,
	}, profile.Options{})

	params, err := p.Params()
	require.NoError(t, err)
	require.Contains(t, params.Controls, "c1")
	assert.Equal(t, "second", params.Controls["c1"].Title)
	assert.Len(t, params.Controls["c1"].Checks, 2)
}

func TestProfile_AnonymousDescribe(t *testing.T) {
	p := newProfile(t, map[string]string{
		"inspec.yml":    "name: p\n",
		"controls/a.rb": "describe file('/x') do\n  it { should exist }\nend\n",
	}, profile.Options{})

	params, err := p.Params()
	require.NoError(t, err)
	require.Len(t, params.Controls, 1)
	for id := range params.Controls {
		assert.Contains(t, id, "(generated from ")
	}
}

func TestProfile_Archive(t *testing.T) {
	p := newProfile(t, map[string]string{
		"inspec.yml":    "name: My Profile\nversion: 1.0.0\n",
		"controls/a.rb": "control 'c1' do\nend\n",
	}, profile.Options{})

	fs := ports.NewRealFileSystem()
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.tar.gz")
	ok, err := p.Archive(fs, profile.ArchiveOptions{Output: dest, Variant: archive.VariantTarGz})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, fs.Exists(dest))

	// Refuses without overwrite.
	ok, err = p.Archive(fs, profile.ArchiveOptions{Output: dest, Variant: archive.VariantTarGz})
	require.NoError(t, err)
	assert.False(t, ok)

	// Succeeds with overwrite.
	ok, err = p.Archive(fs, profile.ArchiveOptions{Output: dest, Overwrite: true, Variant: archive.VariantTarGz})
	require.NoError(t, err)
	assert.True(t, ok)
}

type fakeProvider struct {
	deps map[string][]metadata.Requirement
}

func (f *fakeProvider) SearchFor(req metadata.Requirement) ([]resolve.Spec, error) {
	return []resolve.Spec{{Name: req.Name, Version: "1.0.0"}}, nil
}

func (f *fakeProvider) DependenciesFor(spec resolve.Spec) ([]metadata.Requirement, error) {
	return f.deps[spec.Name], nil
}

func TestProfile_LockedDependenciesMemoizes(t *testing.T) {
	p := newProfile(t, map[string]string{
		"inspec.yml": "name: p\ndepends:\n  - name: b\n",
	}, profile.Options{})

	provider := &fakeProvider{deps: map[string][]metadata.Requirement{}}
	g1, err := p.LockedDependencies(provider)
	require.NoError(t, err)
	g2, err := p.LockedDependencies(provider)
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.Contains(t, g1.Specs(), "b")
}
