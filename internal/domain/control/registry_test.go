package control_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/profilecore/internal/domain/control"
)

func TestIsSynthetic(t *testing.T) {
	assert.True(t, control.IsSynthetic("(generated from a.rb:1 abcd)"))
	assert.False(t, control.IsSynthetic("c1"))
}

func TestRegistry_OrderedPreservesInsertionOrder(t *testing.T) {
	ctx := control.NewContext("p", nil)
	ctx.EvalFile("a.rb", []byte(`control 'b' do
end
control 'a' do
end
`))

	ids := make([]string, 0, 2)
	for _, c := range ctx.Registry().Ordered() {
		ids = append(ids, c.ID)
	}
	require.Equal(t, []string{"b", "a"}, ids)
}
