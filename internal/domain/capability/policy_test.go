package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/profilecore/internal/domain/capability"
)

func TestPolicy_DeniesUngranted(t *testing.T) {
	p := capability.NewPolicy()
	err := p.Check(capability.CapCacheRead)
	assert.ErrorIs(t, err, capability.ErrCapabilityNotGranted)
}

func TestPolicy_GrantedAllowsNonDangerous(t *testing.T) {
	p := capability.NewPolicyBuilder().Grant(capability.CapCacheRead).Build()
	require.NoError(t, p.Check(capability.CapCacheRead))
}

func TestPolicy_BlockedWinsOverGranted(t *testing.T) {
	p := capability.NewPolicyBuilder().
		Grant(capability.CapNetworkFetch).
		Block(capability.CapNetworkFetch).
		Build()
	err := p.Check(capability.CapNetworkFetch)
	assert.ErrorIs(t, err, capability.ErrCapabilityDenied)
}

func TestPolicy_DangerousRequiresApproval(t *testing.T) {
	p := capability.NewPolicyBuilder().Grant(capability.CapHostExecute).Build()
	err := p.Check(capability.CapHostExecute)
	assert.ErrorIs(t, err, capability.ErrDangerousCapability)
}

func TestPolicy_DangerousApproved(t *testing.T) {
	p := capability.NewPolicyBuilder().
		Grant(capability.CapHostExecute).
		Approve(capability.CapHostExecute).
		Build()
	require.NoError(t, p.Check(capability.CapHostExecute))
}

func TestPolicy_DangerousWithApprovalDisabled(t *testing.T) {
	p := capability.NewPolicyBuilder().
		Grant(capability.CapHostExecute).
		RequireApproval(false).
		Build()
	require.NoError(t, p.Check(capability.CapHostExecute))
}
