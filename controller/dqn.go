package controller

import (
	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/obsmodel"
	"git.fiblab.net/sim/lightctl/policy"
	"git.fiblab.net/sim/lightctl/reward"
	"git.fiblab.net/sim/lightctl/utils/config"
)

// deepQMemory 路口上一次决策的(状态向量,动作)记忆
type deepQMemory struct {
	state  []float64
	action entity.Phase
}

// deepQController DQN控制器
// 功能：以归一化观测向量为状态，epsilon-greedy选择动作，
// 经验回放小批量更新在线网络，定期硬同步目标网络
// 说明：与表格Q学习共享奖励滞后一步的学习回路语义，
// 状态为连续向量而非离散桶
type deepQController struct {
	*baseController
	policy      *policy.DeepQ
	rewardModel *reward.Model
	memory      map[entity.JunctionID]*deepQMemory
	junctionIDs []entity.JunctionID
}

// newDeepQController 创建DQN控制器
// 参数：junctionIDs-受控路口列表（模型按路口分文件持久化时使用）
func newDeepQController(timing config.Timing, rl config.RL, obs *obsmodel.Model, channel entity.IChannel, sink entity.IEventSink, seed uint64, junctionIDs []entity.JunctionID) *deepQController {
	c := &deepQController{
		baseController: newBaseController(timing, obs, channel, sink),
		policy:         policy.NewDeepQ(rl, obsmodel.VectorDim, seed),
		rewardModel:    reward.DeepProfile(),
		memory:         make(map[entity.JunctionID]*deepQMemory),
		junctionIDs:    junctionIDs,
	}
	c.decider = c
	return c
}

// greenDuration 绿灯名义时长
func (c *deepQController) greenDuration(id entity.JunctionID, now float64, s *junctionState) float64 {
	return c.timing.Green
}

// wantsEarlyDecision 学习型控制器只在期满时决策
func (c *deepQController) wantsEarlyDecision(id entity.JunctionID, now float64, s *junctionState, elapsed float64) bool {
	return false
}

// decidePhase 学习并选择下一动作
// 算法说明：
// 1. 当前观测归一化为状态向量
// 2. 存在上一次记忆时计算奖励，将(上一状态,上一动作,奖励,当前状态)
//    写入回放池并尝试一次小批量学习；首次决策跳过此步
// 3. epsilon-greedy选择动作并记入记忆
// 说明：决策循环是持续任务，经验不携带终止标记
func (c *deepQController) decidePhase(id entity.JunctionID, now float64, s *junctionState) entity.Phase {
	o := c.observationOf(id)
	state := c.obs.Vector(o).RawVector().Data

	if m, ok := c.memory[id]; ok {
		r := c.rewardModel.Reward(o, s.phase)
		c.recordReward(id, r)
		c.policy.Observe(id, policy.Experience{
			State:  m.state,
			Action: int(m.action),
			Reward: r,
			Next:   state,
		})
		c.policy.Learn(id)
	}

	action := c.policy.SelectAction(id, state)
	c.memory[id] = &deepQMemory{state: state, action: action}
	return action
}

// DecayExploration 衰减探索率
func (c *deepQController) DecayExploration() {
	c.policy.DecayExploration()
}

// SaveModel 将各路口网络参数分文件写入
// 参数：path-文件名前缀
func (c *deepQController) SaveModel(path string) error {
	return c.policy.SaveFiles(path)
}

// LoadModel 从文件恢复各路口网络参数
// 说明：任一路口加载成功即返回true，失败的路口从零训练
func (c *deepQController) LoadModel(path string) bool {
	return c.policy.LoadFiles(path, c.junctionIDs) > 0
}

// Policy 获取底层DQN策略（统计与测试用）
func (c *deepQController) Policy() *policy.DeepQ {
	return c.policy
}
