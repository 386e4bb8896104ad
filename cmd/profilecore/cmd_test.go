package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/profilecore/internal/domain/archive"
)

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "info")
	assert.Contains(t, names, "check")
	assert.Contains(t, names, "archive")
	assert.Contains(t, names, "lock")
}

func TestParseAttributeFlags(t *testing.T) {
	bindings, err := parseAttributeFlags([]string{"os=ubuntu", "strict=true"})
	require.NoError(t, err)
	assert.Equal(t, "ubuntu", bindings["os"])
	assert.Equal(t, "true", bindings["strict"])
}

func TestParseAttributeFlags_Malformed(t *testing.T) {
	_, err := parseAttributeFlags([]string{"no-equals-sign"})
	assert.Error(t, err)
}

func TestResolveVariant(t *testing.T) {
	v, err := resolveVariant("")
	require.NoError(t, err)
	assert.Equal(t, archive.VariantTarGz, v)

	v, err = resolveVariant("zip")
	require.NoError(t, err)
	assert.Equal(t, archive.VariantZip, v)

	_, err = resolveVariant("rar")
	assert.Error(t, err)
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, 3, exitCodeFor(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
