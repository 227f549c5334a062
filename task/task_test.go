package task

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.fiblab.net/sim/lightctl/controller"
	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/utils/config"
)

func testRuntime(controllerKind string, steps int32) *config.RuntimeConfig {
	return config.NewRuntimeConfig(config.Config{
		Control: config.Control{
			Step:       config.ControlStep{Total: steps, Interval: 1},
			Controller: controllerKind,
			Seed:       1,
		},
		Scenario: config.Scenario{
			Junctions: []string{"J1", "J2"},
			Profile:   "rush_ns",
			Demand:    0.2,
		},
	})
}

func TestGeneratorAccumulatesOnRed(t *testing.T) {
	g := NewGenerator(config.Scenario{Junctions: []string{"J1"}, Demand: 0.5}, 1)
	phases := map[entity.JunctionID]entity.Phase{"J1": entity.PhaseGreenNS}

	var o entity.Observation
	for now := 1.0; now <= 60; now++ {
		o = g.Step(1, now, phases)["J1"]
	}
	// 东西方向长期受阻：排队积累且等待持续增长
	assert.Greater(t, o.EWQueue(), 10.0)
	assert.Greater(t, o.EastWait, 10.0)
	// 南北方向放行：没有滞留排队
	assert.Equal(t, 0.0, o.NSQueue())
}

func TestGeneratorDrainsOnGreen(t *testing.T) {
	g := NewGenerator(config.Scenario{Junctions: []string{"J1"}, Demand: 0.5}, 1)
	red := map[entity.JunctionID]entity.Phase{"J1": entity.PhaseGreenNS}
	green := map[entity.JunctionID]entity.Phase{"J1": entity.PhaseGreenEW}

	for now := 1.0; now <= 30; now++ {
		g.Step(1, now, red)
	}
	blocked := g.junctions["J1"][dirEast].queue
	for now := 31.0; now <= 60; now++ {
		g.Step(1, now, green)
	}
	// 绿灯按饱和流率放行
	assert.Less(t, g.junctions["J1"][dirEast].queue, blocked)
}

func TestGeneratorRushProfile(t *testing.T) {
	g := NewGenerator(config.Scenario{Junctions: []string{"J1"}, Profile: "rush_ns", Demand: 0.2}, 1)
	// 全红持续积累，比较方向间的到达量
	phases := map[entity.JunctionID]entity.Phase{"J1": entity.PhaseYellowNS}
	var o entity.Observation
	for now := 1.0; now <= 120; now++ {
		o = g.Step(1, now, phases)["J1"]
	}
	assert.Greater(t, o.NSQueue(), o.EWQueue())
}

func TestRunFixedScenario(t *testing.T) {
	ctx, err := New(testRuntime("fixed", 200))
	assert.Nil(t, err)
	assert.Nil(t, ctx.Run())

	for _, id := range []entity.JunctionID{"J1", "J2"} {
		s := ctx.stats[id]
		assert.Equal(t, 200, s.steps)
		assert.Greater(t, s.avgWait(), 0.0)
	}
}

func TestRunAdaptiveWirelessScenario(t *testing.T) {
	rc := testRuntime("adaptive_wireless", 300)
	rc.All.Channel = config.Channel{
		Variant:           "wireless",
		BaseLatency:       0.05,
		ComputationFactor: 0.1,
		Jitter:            0.02,
		DropProb:          0.05,
	}
	ctx, err := New(rc)
	assert.Nil(t, err)
	assert.Nil(t, ctx.Run())

	// 无线场景应当发生过信道采样
	ns, ok := ctx.controller.(controller.NetworkStats)
	assert.True(t, ok)
	samples, _, _ := ns.ChannelStats()
	assert.Greater(t, samples, 0)
}

func TestNewRequiresJunctions(t *testing.T) {
	rc := testRuntime("fixed", 10)
	rc.All.Scenario.Junctions = nil
	_, err := New(rc)
	assert.NotNil(t, err)
}
