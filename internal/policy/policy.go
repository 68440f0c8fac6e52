package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned when a policy name cannot be parsed.
var ErrUnknownPolicy = errors.New("unknown visibility policy")

// Policy selects the primitive that backs a shared value.
type Policy int

const (
	// Plain is ordinary memory with no cross-goroutine guarantees.
	Plain Policy = iota
	// VisibilityOnly guarantees each access reaches memory but not atomicity.
	VisibilityOnly
	// Atomic guarantees visibility and indivisible read-modify-write.
	Atomic
)

var policyNames = map[Policy]string{
	Plain:          "plain",
	VisibilityOnly: "visibility_only",
	Atomic:         "atomic",
}

// aliases maps alternate spellings onto canonical names.
// "volatile" is the C++ keyword the visibility-only policy models.
var aliases = map[string]Policy{
	"volatile": VisibilityOnly,
}

// All returns every policy in declaration order.
func All() []Policy {
	return []Policy{Plain, VisibilityOnly, Atomic}
}

// Names returns the canonical names of all policies.
func Names() []string {
	names := make([]string, 0, len(policyNames))
	for _, p := range All() {
		names = append(names, p.String())
	}
	return names
}

// String returns the canonical name of the policy.
func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Valid reports whether p is one of the declared policies.
func (p Policy) Valid() bool {
	_, ok := policyNames[p]
	return ok
}

// Parse converts a policy name to a Policy.
// Matching is case-insensitive and accepts "-" in place of "_".
func Parse(s string) (Policy, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for p, name := range policyNames {
		if name == key {
			return p, nil
		}
	}
	if p, ok := aliases[key]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w %q: must be one of %v", ErrUnknownPolicy, s, Names())
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// yaml.v3 and encoding/json both route through it.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Set implements pflag.Value so a Policy can be bound directly to a flag.
func (p *Policy) Set(s string) error {
	return p.UnmarshalText([]byte(s))
}

// Type implements pflag.Value.
func (p *Policy) Type() string {
	return "policy"
}
