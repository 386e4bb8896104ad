package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/profilecore/internal/domain/capability"
)

func TestSet_AddHas(t *testing.T) {
	s := capability.NewSet()
	assert.False(t, s.Has(capability.CapCacheRead))

	s.Add(capability.CapCacheRead)
	assert.True(t, s.Has(capability.CapCacheRead))
	assert.Equal(t, 1, s.Count())
}

func TestSet_AddZeroIsNoop(t *testing.T) {
	s := capability.NewSet()
	var zero capability.Capability
	s.Add(zero)
	assert.Equal(t, 0, s.Count())
}

func TestSet_MatchesWildcard(t *testing.T) {
	s := capability.NewSet()
	s.Add(capability.NewCapability(capability.CategoryHost, "*"))

	assert.True(t, s.Matches(capability.CapHostExecute))
	assert.False(t, s.Matches(capability.CapCacheRead))
}
