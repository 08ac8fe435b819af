package resolver

import (
	"context"
	"strings"

	"github.com/samvad-hq/samvad-resttemplate/pkg/registry"
)

// Resolver turns logical service names into concrete instances. Each lookup
// opens its own registry session and releases it before returning.
type Resolver struct {
	opener registry.Opener
	policy Policy
	log    Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithPolicy overrides the selection policy (default: tick).
func WithPolicy(p Policy) Option {
	return func(r *Resolver) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log Logger) Option {
	return func(r *Resolver) { r.log = ensureLogger(log) }
}

// New builds a Resolver reading from opener.
func New(opener registry.Opener, opts ...Option) *Resolver {
	r := &Resolver{
		opener: opener,
		policy: NewTickPolicy(nil),
		log:    noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one instance registered under service (case-insensitive).
func (r *Resolver) Resolve(ctx context.Context, service string) (registry.Instance, error) {
	candidates, err := r.lookup(ctx, service)
	if err != nil {
		return registry.Instance{}, err
	}
	if len(candidates) == 0 {
		return registry.Instance{}, &NoInstanceFoundError{Service: service}
	}

	inst := r.policy.Select(service, candidates)
	r.log.DebugObj("service resolved", "resolution", map[string]any{
		"service":    service,
		"instance":   inst.HostPort(),
		"candidates": len(candidates),
	})
	return inst, nil
}

// ResolveURL rewrites a virtual URL into a directly dispatchable one.
func (r *Resolver) ResolveURL(ctx context.Context, rawURL string) (string, error) {
	v, err := ParseVirtualURL(rawURL)
	if err != nil {
		return "", err
	}
	inst, err := r.Resolve(ctx, v.Service)
	if err != nil {
		return "", err
	}
	return v.Rewrite(inst.HostPort()), nil
}

func (r *Resolver) lookup(ctx context.Context, service string) ([]registry.Instance, error) {
	sess, err := r.opener.Open(ctx)
	if err != nil {
		return nil, &RegistryError{Op: "open session", Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.log.WarnObj("registry session close failed", "registry_error", map[string]any{
				"service": service,
				"error":   cerr.Error(),
			})
		}
	}()

	all, err := sess.ListInstances(ctx)
	if err != nil {
		return nil, &RegistryError{Op: "list instances", Err: err}
	}

	matches := make([]registry.Instance, 0, len(all))
	for _, inst := range all {
		if strings.EqualFold(inst.Service, service) {
			matches = append(matches, inst)
		}
	}
	return matches, nil
}
