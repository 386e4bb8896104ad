package capability

import "fmt"

// Policy decides whether a required module may exercise a capability:
// a blocked capability is always denied, an ungranted one is denied, and
// a dangerous capability (CapHostExecute) additionally needs explicit
// approval unless RequireApproval(false) was set on the builder.
type Policy struct {
	granted         *Set
	blocked         *Set
	approved        *Set
	requireApproval bool
}

// NewPolicy creates an empty policy that denies everything by default
// and requires approval for dangerous capabilities.
func NewPolicy() *Policy {
	return &Policy{
		granted:         NewSet(),
		blocked:         NewSet(),
		approved:        NewSet(),
		requireApproval: true,
	}
}

// PolicyBuilder builds a Policy via chained grant/block/approve calls.
type PolicyBuilder struct {
	policy *Policy
}

// NewPolicyBuilder starts building a new Policy.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{policy: NewPolicy()}
}

// Grant adds capabilities to the granted set.
func (b *PolicyBuilder) Grant(caps ...Capability) *PolicyBuilder {
	for _, c := range caps {
		b.policy.granted.Add(c)
	}
	return b
}

// Block adds capabilities to the blocked set; a blocked capability is
// denied even if also granted.
func (b *PolicyBuilder) Block(caps ...Capability) *PolicyBuilder {
	for _, c := range caps {
		b.policy.blocked.Add(c)
	}
	return b
}

// Approve marks dangerous capabilities as pre-approved.
func (b *PolicyBuilder) Approve(caps ...Capability) *PolicyBuilder {
	for _, c := range caps {
		b.policy.approved.Add(c)
	}
	return b
}

// RequireApproval sets whether dangerous capabilities need approval.
func (b *PolicyBuilder) RequireApproval(require bool) *PolicyBuilder {
	b.policy.requireApproval = require
	return b
}

// Build returns the constructed Policy.
func (b *PolicyBuilder) Build() *Policy {
	return b.policy
}

// Check verifies that c is allowed by the policy.
func (p *Policy) Check(c Capability) error {
	if p.blocked.Matches(c) {
		return fmt.Errorf("%w: %s is blocked by policy", ErrCapabilityDenied, c)
	}
	if !p.granted.Matches(c) {
		return fmt.Errorf("%w: %s", ErrCapabilityNotGranted, c)
	}
	if c.IsDangerous() && p.requireApproval && !p.approved.Has(c) {
		return fmt.Errorf("%w: %s", ErrDangerousCapability, c)
	}
	return nil
}
