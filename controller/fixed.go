package controller

import (
	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/obsmodel"
	"git.fiblab.net/sim/lightctl/utils/config"
)

// directionQueues 获取当前绿灯方向与对向的排队长度
func (b *baseController) directionQueues(id entity.JunctionID, p entity.Phase) (own, opp float64) {
	o := b.observationOf(id)
	if p == entity.PhaseGreenEW {
		return o.EWQueue(), o.NSQueue()
	}
	return o.NSQueue(), o.EWQueue()
}

// fixedCycleController 固定配时控制器
// 功能：按名义时长循环推进相位，绿灯附带两条排队阈值提前切换规则
// 说明：本地控制，不经通信信道
type fixedCycleController struct {
	*baseController
}

// newFixedCycleController 创建固定配时控制器
func newFixedCycleController(timing config.Timing, obs *obsmodel.Model, sink entity.IEventSink) *fixedCycleController {
	c := &fixedCycleController{
		baseController: newBaseController(timing, obs, nil, sink),
	}
	c.decider = c
	return c
}

// greenDuration 绿灯名义时长
func (c *fixedCycleController) greenDuration(id entity.JunctionID, now float64, s *junctionState) float64 {
	return c.timing.Green
}

// wantsEarlyDecision 排队阈值提前切换规则
// 算法说明：最小绿灯时长已过的前提下，满足任一条件即提前结束绿灯：
// 1. 对向排队超过阈值
// 2. 当前方向排队已清空而对向仍有排队
// 黄灯不在此路径上，永远不会被缩短
func (c *fixedCycleController) wantsEarlyDecision(id entity.JunctionID, now float64, s *junctionState, elapsed float64) bool {
	if elapsed < c.timing.MinGreen {
		return false
	}
	own, opp := c.directionQueues(id, s.phase)
	return opp > c.timing.QueueThreshold || (own == 0 && opp > 0)
}

// decidePhase 推进到对向绿灯
func (c *fixedCycleController) decidePhase(id entity.JunctionID, now float64, s *junctionState) entity.Phase {
	if s.phase == entity.PhaseGreenNS {
		return entity.PhaseGreenEW
	}
	return entity.PhaseGreenNS
}
