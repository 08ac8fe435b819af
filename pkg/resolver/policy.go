package resolver

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/samvad-hq/samvad-resttemplate/pkg/registry"
)

// Supported policy names for PolicyFromName.
const (
	PolicyTick       = "tick"
	PolicyRoundRobin = "round_robin"
	PolicyRandom     = "random"
	PolicyFirst      = "first"
)

// Policy picks exactly one instance from a non-empty candidate list.
type Policy interface {
	Select(service string, candidates []registry.Instance) registry.Instance
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(service string, candidates []registry.Instance) registry.Instance

func (f PolicyFunc) Select(service string, candidates []registry.Instance) registry.Instance {
	return f(service, candidates)
}

// TickPolicy indexes candidates by the current millisecond tick modulo their
// count. Calls share no state; spread comes from the clock moving between calls.
type TickPolicy struct {
	clock clockwork.Clock
	start time.Time
}

// NewTickPolicy returns a TickPolicy on clock, or the real clock when nil.
func NewTickPolicy(clock clockwork.Clock) *TickPolicy {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TickPolicy{clock: clock, start: clock.Now()}
}

func (p *TickPolicy) Select(_ string, candidates []registry.Instance) registry.Instance {
	tick := p.clock.Since(p.start).Milliseconds()
	if tick < 0 {
		tick = -tick
	}
	return candidates[tick%int64(len(candidates))]
}

// RoundRobinPolicy cycles through candidates with a shared counter.
type RoundRobinPolicy struct {
	next atomic.Uint64
}

func (p *RoundRobinPolicy) Select(_ string, candidates []registry.Instance) registry.Instance {
	n := p.next.Add(1) - 1
	return candidates[n%uint64(len(candidates))]
}

// RandomPolicy picks uniformly at random.
type RandomPolicy struct{}

func (RandomPolicy) Select(_ string, candidates []registry.Instance) registry.Instance {
	return candidates[rand.IntN(len(candidates))]
}

// FirstPolicy always picks the first candidate.
type FirstPolicy struct{}

func (FirstPolicy) Select(_ string, candidates []registry.Instance) registry.Instance {
	return candidates[0]
}

// PolicyFromName builds a policy from its configured name. Empty means tick.
func PolicyFromName(name string, clock clockwork.Clock) (Policy, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", PolicyTick:
		return NewTickPolicy(clock), nil
	case PolicyRoundRobin, "roundrobin":
		return &RoundRobinPolicy{}, nil
	case PolicyRandom:
		return RandomPolicy{}, nil
	case PolicyFirst:
		return FirstPolicy{}, nil
	default:
		return nil, fmt.Errorf("unsupported selection policy %q", name)
	}
}
