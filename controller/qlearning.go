package controller

import (
	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/obsmodel"
	"git.fiblab.net/sim/lightctl/policy"
	"git.fiblab.net/sim/lightctl/reward"
	"git.fiblab.net/sim/lightctl/utils/config"
)

// qMemory 路口上一次决策的(状态,动作)记忆
type qMemory struct {
	state  obsmodel.DiscreteState
	action entity.Phase
}

// qLearningController 表格Q学习控制器
// 功能：绿灯期满时以epsilon-greedy策略在4个规范相位中选择动作，
// 并以上一动作产生的观测奖励更新Q表
// 说明：每个路口的首次决策只记录状态与动作、不做任何更新，
// 奖励滞后一步观测，这是学习回路的既定语义
type qLearningController struct {
	*baseController
	policy      *policy.QTable
	rewardModel *reward.Model
	memory      map[entity.JunctionID]*qMemory
}

// newQLearningController 创建表格Q学习控制器
func newQLearningController(timing config.Timing, rl config.RL, obs *obsmodel.Model, channel entity.IChannel, sink entity.IEventSink, seed uint64) *qLearningController {
	c := &qLearningController{
		baseController: newBaseController(timing, obs, channel, sink),
		policy:         policy.NewQTable(rl, seed),
		rewardModel:    reward.TabularProfile(),
		memory:         make(map[entity.JunctionID]*qMemory),
	}
	c.decider = c
	return c
}

// greenDuration 绿灯名义时长
func (c *qLearningController) greenDuration(id entity.JunctionID, now float64, s *junctionState) float64 {
	return c.timing.Green
}

// wantsEarlyDecision 学习型控制器只在期满时决策
func (c *qLearningController) wantsEarlyDecision(id entity.JunctionID, now float64, s *junctionState, elapsed float64) bool {
	return false
}

// decidePhase 学习并选择下一动作
// 算法说明：
// 1. 离散化当前观测得到状态
// 2. 存在上一次(状态,动作)记忆时，以当前观测计算奖励并按
//    Bellman规则更新Q表；首次决策跳过此步
// 3. epsilon-greedy选择动作并记入记忆
// 说明：即使本次决策随后在信道上丢失，学习更新照常进行，
// 策略观察到的是真实的交通后果，丢包只影响相位是否生效
func (c *qLearningController) decidePhase(id entity.JunctionID, now float64, s *junctionState) entity.Phase {
	o := c.observationOf(id)
	state := c.obs.Discretize(o)

	if m, ok := c.memory[id]; ok {
		r := c.rewardModel.Reward(o, s.phase)
		c.recordReward(id, r)
		c.policy.Update(id, m.state, m.action, r, state)
	}

	action := c.policy.SelectAction(id, state)
	c.memory[id] = &qMemory{state: state, action: action}
	return action
}

// DecayExploration 衰减探索率
func (c *qLearningController) DecayExploration() {
	c.policy.DecayExploration()
}

// SaveModel 将Q表写入文件
func (c *qLearningController) SaveModel(path string) error {
	return c.policy.SaveFile(path)
}

// LoadModel 从文件恢复Q表
func (c *qLearningController) LoadModel(path string) bool {
	return c.policy.LoadFile(path)
}

// Policy 获取底层Q学习策略（统计与测试用）
func (c *qLearningController) Policy() *policy.QTable {
	return c.policy
}
