// Package sandbox defines the contract a WASM runtime backing
// control.WasmHostLoader would implement (spec.md §4.4's host module
// loader seam): the core itself never executes required modules
// (Non-goal), so this package ships the interfaces a caller's own
// runtime plugs into, not a concrete runtime.
package sandbox

import (
	"context"
	"errors"
	"time"
)

// Sandbox errors.
var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrPluginInvalid  = errors.New("invalid plugin")
)

// Config configures a single sandbox execution.
type Config struct {
	// Timeout bounds a single Execute call.
	Timeout time.Duration
}

// Plugin is a compiled WASM module a Runtime can execute.
type Plugin struct {
	ID       string
	Name     string
	Version  string
	Module   []byte
	Checksum string
}

// Validate checks that p has the fields a Runtime needs to load it.
func (p *Plugin) Validate() error {
	if p.ID == "" {
		return errors.New("plugin ID is required")
	}
	if p.Name == "" {
		return errors.New("plugin name is required")
	}
	if len(p.Module) == 0 {
		return errors.New("plugin module is required")
	}
	return nil
}

// ExecutionResult holds the outcome of a single Sandbox.Execute call.
type ExecutionResult struct {
	// Success indicates the plugin ran without error.
	Success bool

	// Output is the plugin's result bytes.
	Output []byte

	// Errors carries any diagnostic output the plugin produced.
	Errors []byte

	// Error is set if execution itself failed (distinct from a plugin
	// that ran but reported Success: false).
	Error error
}

// Sandbox executes one loaded plugin.
type Sandbox interface {
	// Execute runs plugin with the given input.
	Execute(ctx context.Context, plugin *Plugin, input []byte) (*ExecutionResult, error)

	// Validate checks whether plugin can be loaded.
	Validate(ctx context.Context, plugin *Plugin) error

	// Close releases sandbox resources.
	Close() error
}

// Runtime constructs Sandboxes.
type Runtime interface {
	// NewSandbox creates a new sandbox with the given config.
	NewSandbox(config Config) (Sandbox, error)

	// IsAvailable reports whether the runtime can be used.
	IsAvailable() bool

	// Version returns the runtime version.
	Version() string

	// Close releases runtime resources.
	Close() error
}
