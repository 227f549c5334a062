package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.fiblab.net/sim/lightctl/policy"
	"git.fiblab.net/sim/lightctl/utils/randengine"
)

func TestReplayBufferFIFOBound(t *testing.T) {
	b := policy.NewReplayBuffer(5)
	for i := 0; i < 12; i++ {
		b.Append(policy.Experience{Action: i})
	}

	// 超过容量后只保留最近的条目，旧经验按FIFO淘汰
	assert.Equal(t, 5, b.Len())
	actions := make([]int, 0, 5)
	for _, e := range b.Values() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []int{7, 8, 9, 10, 11}, actions)
}

func TestReplayBufferSample(t *testing.T) {
	b := policy.NewReplayBuffer(10)
	for i := 0; i < 10; i++ {
		b.Append(policy.Experience{Action: i})
	}

	engine := randengine.New(1)
	batch := b.Sample(4, engine)
	assert.Len(t, batch, 4)

	// 单次采样内不重复
	seen := make(map[int]struct{})
	for _, e := range batch {
		seen[e.Action] = struct{}{}
	}
	assert.Len(t, seen, 4)
}
