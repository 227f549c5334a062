package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/netchan"
	"git.fiblab.net/sim/lightctl/obsmodel"
	"git.fiblab.net/sim/lightctl/utils/config"
)

const j1 = entity.JunctionID("J1")

func defaultRuntime(controllerKind string) *config.RuntimeConfig {
	return config.NewRuntimeConfig(config.Config{
		Control: config.Control{
			Controller: controllerKind,
			Seed:       1,
		},
		Scenario: config.Scenario{Junctions: []string{j1}},
	})
}

func eastHeavy() map[entity.JunctionID]entity.Observation {
	return map[entity.JunctionID]entity.Observation{
		j1: {EastQueue: 9, EastCount: 9},
	}
}

func TestKindFromString(t *testing.T) {
	for s, want := range map[string]Kind{
		"fixed":             KindFixedCycle,
		"adaptive_wireless": KindAdaptiveWireless,
		"q_wired":           KindQLearningWired,
		"dqn_wireless":      KindDeepQWireless,
	} {
		k, err := KindFromString(s)
		assert.Nil(t, err)
		assert.Equal(t, want, k)
		assert.Equal(t, s, k.String())
	}

	_, err := KindFromString("webster")
	assert.NotNil(t, err)
}

func TestFactory(t *testing.T) {
	for _, kind := range []string{
		"fixed", "adaptive_wired", "adaptive_wireless",
		"q_wired", "q_wireless", "dqn_wired", "dqn_wireless",
	} {
		c, err := New(defaultRuntime(kind))
		assert.Nil(t, err)
		assert.NotNil(t, c)
	}

	_, err := New(defaultRuntime("webster"))
	assert.NotNil(t, err)
}

// TestYellowInvariant 黄灯一经进入必须走满名义时长，
// 无论交通状态如何变化都不提前退出、不延长
func TestYellowInvariant(t *testing.T) {
	rc := defaultRuntime("fixed")
	c := newFixedCycleController(rc.All.Timing, obsmodel.Default(), entity.NopSink{})

	c.UpdateTrafficState(eastHeavy())
	assert.Equal(t, entity.PhaseGreenNS, c.phaseFor(j1, 0))

	// 最小绿灯后对向排队超阈值触发提前切换，进入南北黄
	assert.Equal(t, entity.PhaseYellowNS, c.phaseFor(j1, 10))

	// 黄灯期间无论观测怎样变化都只能保持
	extremes := []map[entity.JunctionID]entity.Observation{
		{j1: {NorthQueue: 99, NorthCount: 99}},
		{j1: {EastQueue: 99, EastCount: 99}},
		{},
	}
	for i, now := range []float64{10.5, 12, 14.9} {
		c.UpdateTrafficState(extremes[i])
		assert.Equal(t, entity.PhaseYellowNS, c.phaseFor(j1, now))
	}

	// 名义时长期满后强制进入循环后继
	assert.Equal(t, entity.PhaseGreenEW, c.phaseFor(j1, 15))
}

// TestAdaptiveScenario J1路口，名义绿灯30秒/黄灯5秒，排队阈值8：
// 持续供给east_queue=9的观测，动态最小绿灯(<=15秒)过后返回南北黄，
// 恰好5秒后返回东西绿
func TestAdaptiveScenario(t *testing.T) {
	rc := defaultRuntime("adaptive_wired")
	c := newAdaptiveController(rc.All.Timing, obsmodel.Default(), netchan.NewWired(0), entity.NopSink{})

	phases := make([]entity.Phase, 0, 13)
	for now := 0.0; now <= 12; now++ {
		c.UpdateTrafficState(eastHeavy())
		phases = append(phases, c.phaseFor(j1, now))
	}

	// 动态最小绿灯 = clamp(10 + 0.5*0 - 0.5*9, 5, 15) = 5.5秒
	assert.Equal(t, entity.PhaseGreenNS, phases[5])
	assert.Equal(t, entity.PhaseYellowNS, phases[6])
	for _, p := range phases[7:11] {
		assert.Equal(t, entity.PhaseYellowNS, p)
	}
	assert.Equal(t, entity.PhaseGreenEW, phases[11])
}

// TestChannelDropRepetition 丢包概率为1时每次决策都丢失，
// 相位永远维持不变，直到丢包概率归零
func TestChannelDropRepetition(t *testing.T) {
	rc := defaultRuntime("adaptive_wireless")
	wireless := netchan.NewWireless(config.Channel{DropProb: 1}, 1)
	c := newAdaptiveController(rc.All.Timing, obsmodel.Default(), wireless, entity.NopSink{})

	for now := 0.0; now <= 30; now++ {
		c.UpdateTrafficState(eastHeavy())
		assert.Equal(t, entity.PhaseGreenNS, c.phaseFor(j1, now))
	}
	samples, drops, _ := c.ChannelStats()
	assert.Equal(t, samples, drops)
	assert.Greater(t, drops, 0)

	wireless.DropProb = 0
	c.UpdateTrafficState(eastHeavy())
	assert.Equal(t, entity.PhaseYellowNS, c.phaseFor(j1, 31))
}

// TestFirstDecisionNoUpdate 路口的首次决策只记录状态与动作，
// 不产生任何Q表条目；第二次决策起才以滞后一步的奖励更新
func TestFirstDecisionNoUpdate(t *testing.T) {
	rc := defaultRuntime("q_wired")
	rc.All.RL.ExplorationRate = 0
	c := newQLearningController(rc.All.Timing, rc.All.RL, obsmodel.Default(), nil, entity.NopSink{}, 1)

	c.UpdateTrafficState(eastHeavy())
	c.phaseFor(j1, 0) // 初始化，绿灯未到期，不走学习路径
	assert.Equal(t, 0, c.Policy().Entries())

	c.phaseFor(j1, 30) // 首次决策：只选动作，不更新
	assert.Equal(t, 0, c.Policy().Entries())

	c.phaseFor(j1, 60) // 第二次决策：以上一动作的后果更新
	assert.Equal(t, 1, c.Policy().Entries())
}

func TestMissingObservationDefaults(t *testing.T) {
	rc := defaultRuntime("fixed")
	c := newFixedCycleController(rc.All.Timing, obsmodel.Default(), entity.NopSink{})

	// 观测中缺失的路口按零交通处理，绿灯走满名义时长
	c.UpdateTrafficState(map[entity.JunctionID]entity.Observation{})
	assert.Equal(t, entity.PhaseGreenNS, c.phaseFor(j1, 0))
	assert.Equal(t, entity.PhaseGreenNS, c.phaseFor(j1, 29))
	assert.Equal(t, entity.PhaseYellowNS, c.phaseFor(j1, 30))
}

// recordingSink 记录事件的测试接收器
type recordingSink struct {
	anomalies []string
	rewards   []float64
}

func (s *recordingSink) RecoverableAnomaly(id entity.JunctionID, what string) {
	s.anomalies = append(s.anomalies, what)
}
func (s *recordingSink) ChannelSampled(id entity.JunctionID, sample entity.ChannelSample) {}
func (s *recordingSink) RewardComputed(id entity.JunctionID, reward float64) {
	s.rewards = append(s.rewards, reward)
}

// corruptDecider 返回非规范相位的策略桩，模拟损坏的表项
type corruptDecider struct{}

func (corruptDecider) greenDuration(id entity.JunctionID, now float64, s *junctionState) float64 {
	return 1
}
func (corruptDecider) wantsEarlyDecision(id entity.JunctionID, now float64, s *junctionState, elapsed float64) bool {
	return false
}
func (corruptDecider) decidePhase(id entity.JunctionID, now float64, s *junctionState) entity.Phase {
	return entity.Phase(9)
}

// TestCorruptActionFallback 非规范动作退化为第一个规范相位，
// 只作为可恢复异常上报，不向外传播
func TestCorruptActionFallback(t *testing.T) {
	sink := &recordingSink{}
	b := newBaseController(config.Timing{Yellow: 5}, obsmodel.Default(), nil, sink)
	b.decider = corruptDecider{}

	b.UpdateTrafficState(map[entity.JunctionID]entity.Observation{})
	assert.Equal(t, entity.PhaseGreenNS, b.phaseFor(j1, 0))
	// 策略给出Phase(9)，回退到南北绿；与当前相位一致，保持绿灯
	assert.Equal(t, entity.PhaseGreenNS, b.phaseFor(j1, 1))
	assert.Len(t, sink.anomalies, 1)
}

func TestAverageReward(t *testing.T) {
	rc := defaultRuntime("q_wired")
	rc.All.RL.ExplorationRate = 0
	c := newQLearningController(rc.All.Timing, rc.All.RL, obsmodel.Default(), nil, entity.NopSink{}, 1)

	c.UpdateTrafficState(eastHeavy())
	assert.Equal(t, 0.0, c.AverageReward())
	c.phaseFor(j1, 0)
	c.phaseFor(j1, 30)
	c.phaseFor(j1, 60)
	// 东西方向长排队，奖励为负
	assert.Less(t, c.AverageReward(), 0.0)
}

func TestStateLengthPadding(t *testing.T) {
	rc := defaultRuntime("fixed")
	c := newFixedCycleController(rc.All.Timing, obsmodel.Default(), entity.NopSink{})

	c.UpdateTrafficState(map[entity.JunctionID]entity.Observation{})
	c.SetStateLength(j1, 8)
	assert.Equal(t, "GrYrGrYr", c.GetPhaseForJunction(j1, 0))

	c.SetStateLength(j1, 2)
	assert.Equal(t, "Gr", c.GetPhaseForJunction(j1, 1))
}

// TestDeepQControllerDecides DQN控制器完整走通决策与学习回路
func TestDeepQControllerDecides(t *testing.T) {
	rc := defaultRuntime("dqn_wired")
	rc.All.RL.BatchSize = 2
	rc.All.RL.ExplorationRate = 0
	c := newDeepQController(rc.All.Timing, rc.All.RL, obsmodel.Default(), netchan.NewWired(0.01), entity.NopSink{}, 1, []entity.JunctionID{j1})

	for now := 0.0; now <= 300; now += 30 {
		c.UpdateTrafficState(eastHeavy())
		p := c.phaseFor(j1, now)
		assert.True(t, p.Valid())
	}
	assert.Greater(t, c.Policy().BufferLen(j1), 0)
}
