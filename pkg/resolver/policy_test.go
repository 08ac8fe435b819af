package resolver

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-resttemplate/pkg/registry"
)

func threeInstances() []registry.Instance {
	return []registry.Instance{
		{ID: "a", Service: "SvcX", Address: "10.0.0.1", Port: 80},
		{ID: "b", Service: "SvcX", Address: "10.0.0.2", Port: 80},
		{ID: "c", Service: "SvcX", Address: "10.0.0.3", Port: 80},
	}
}

func TestTickPolicySpreadsAcrossInstances(t *testing.T) {
	clock := clockwork.NewFakeClock()
	policy := NewTickPolicy(clock)
	candidates := threeInstances()

	hits := map[string]int{}
	for i := 0; i < 300; i++ {
		hits[policy.Select("SvcX", candidates).ID]++
		clock.Advance(time.Millisecond)
	}
	require.Len(t, hits, 3)
	for id, n := range hits {
		assert.Equal(t, 100, n, id)
	}
}

func TestTickPolicyStableWithinSameTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	policy := NewTickPolicy(clock)
	clock.Advance(7 * time.Millisecond)

	first := policy.Select("SvcX", threeInstances())
	second := policy.Select("SvcX", threeInstances())
	assert.Equal(t, first, second)
	assert.Equal(t, "b", first.ID)
}

func TestRoundRobinPolicyCycles(t *testing.T) {
	policy := &RoundRobinPolicy{}
	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, policy.Select("SvcX", threeInstances()).ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestRandomPolicyStaysInRange(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		seen[RandomPolicy{}.Select("SvcX", threeInstances()).ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestPolicyFromName(t *testing.T) {
	for name, want := range map[string]any{
		"":            &TickPolicy{},
		"TICK":        &TickPolicy{},
		"round_robin": &RoundRobinPolicy{},
		"random":      RandomPolicy{},
		"first":       FirstPolicy{},
	} {
		p, err := PolicyFromName(name, clockwork.NewFakeClock())
		require.NoError(t, err, name)
		assert.IsType(t, want, p, name)
	}

	_, err := PolicyFromName("weighted", nil)
	assert.Error(t, err)
}
