package control

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/profilecore/internal/domain/capability"
	"github.com/felixgeelhaar/profilecore/internal/domain/sandbox"
)

// executeCapability is the permission a WasmHostLoader checks before
// invoking a module: running a require target is equivalent to
// executing arbitrary host code, so it is gated behind capability.CapHostExecute.
var executeCapability = capability.CapHostExecute

// WasmHostLoader adapts a compiled WASM module as a HostLoader: a
// required path resolves by invoking the module's exported loader
// function and returning its output. This is the documented seam of
// spec.md §4.4 ("the host's module loader") for implementers who want
// required paths to resolve against real, isolated code — the core
// itself never takes this path, since executing checks against a real
// system is out of scope (spec.md §9).
//
// Policy, if set, is checked before every Load: a nil Policy means no
// gating (the zero value allows everything), matching NoopHostLoader's
// behavior of a silently absent permission layer.
type WasmHostLoader struct {
	Runtime sandbox.Runtime
	Config  sandbox.Config
	Plugin  *sandbox.Plugin
	Policy  *capability.Policy
}

// Load runs the configured plugin with path as input and returns its
// stdout as the module's source bytes.
func (h *WasmHostLoader) Load(path string) ([]byte, error) {
	if h.Policy != nil {
		if err := h.Policy.Check(executeCapability); err != nil {
			return nil, fmt.Errorf("control: require %q denied: %w", path, err)
		}
	}
	if h.Runtime == nil || h.Plugin == nil {
		return nil, ErrHostModuleNotFound
	}
	sb, err := h.Runtime.NewSandbox(h.Config)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sb.Close() }()

	result, err := sb.Execute(context.Background(), h.Plugin, []byte(path))
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, ErrHostModuleNotFound
	}
	return result.Output, nil
}
