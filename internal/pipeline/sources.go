// =============================================================================
// sources.go - Source registry
// =============================================================================
//
// The registry maps a source name to its feed URL and policy flags. It is
// built from configuration (sources.yaml by default) so adding a source
// never touches the pipeline's control flow.
//
// Usage:
//
//	reg, err := NewRegistry(cfg.Sources)
//	policy, err := reg.Lookup("ActuIA")
//
// =============================================================================
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSource is returned when a name is not registered.
var ErrUnknownSource = errors.New("unknown source")

// Registry is an ordered, read-only set of source policies.
type Registry struct {
	policies []SourcePolicy
	byName   map[string]int
}

// NewRegistry validates policies and indexes them by name. Registration
// order is preserved.
func NewRegistry(policies []SourcePolicy) (*Registry, error) {
	r := &Registry{
		policies: make([]SourcePolicy, 0, len(policies)),
		byName:   make(map[string]int, len(policies)),
	}
	for i, p := range policies {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("source #%d: empty name", i+1)
		}
		if strings.TrimSpace(p.FeedURL) == "" {
			return nil, fmt.Errorf("source %q: empty feed_url", p.Name)
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("source %q registered twice", p.Name)
		}
		r.byName[p.Name] = len(r.policies)
		r.policies = append(r.policies, p)
	}
	return r, nil
}

// Lookup returns the policy registered under name.
func (r *Registry) Lookup(name string) (SourcePolicy, error) {
	i, ok := r.byName[name]
	if !ok {
		return SourcePolicy{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return r.policies[i], nil
}

// Policies returns a copy of all policies in registration order.
func (r *Registry) Policies() []SourcePolicy {
	return append([]SourcePolicy(nil), r.policies...)
}

// Names returns source names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.policies))
	for i, p := range r.policies {
		out[i] = p.Name
	}
	return out
}

// Len reports the number of registered sources.
func (r *Registry) Len() int {
	return len(r.policies)
}

// Select narrows the registry to the given names, keeping registration
// order. Matching is case-insensitive. An empty selection returns r itself.
func (r *Registry) Select(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			want[n] = true
		}
	}
	if len(want) == 0 {
		return r, nil
	}

	var picked []SourcePolicy
	for _, p := range r.policies {
		key := strings.ToLower(p.Name)
		if want[key] {
			picked = append(picked, p)
			delete(want, key)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, strings.Join(sortStrings(missing), ", "))
	}
	return NewRegistry(picked)
}
