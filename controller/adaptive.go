package controller

import (
	"math"

	"github.com/samber/lo"

	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/obsmodel"
	"git.fiblab.net/sim/lightctl/utils/config"
)

// 车队绿灯延长参数
const (
	maxPlatoonExtension = 15.0 // 车队延长上限（秒）
	perVehicleExtension = 2.0  // 车队中每辆车的延长量（秒）
)

// 动态配时边界对排队长度的敏感系数
const (
	ownQueueGain = 0.5 // 当前方向排队对最小绿灯的增益
	oppQueueGain = 0.5 // 对向排队对最小绿灯的削减
	ownQueueMax  = 1.0 // 当前方向排队对最大绿灯的增益
)

// adaptiveController 启发式自适应控制器
// 功能：在固定配时的阈值规则之上叠加三类自适应行为：
// 1. 最小/最大绿灯边界随排队长度动态伸缩
// 2. 车队检测命中时延长绿灯以整队放空
// 3. 决策经通信信道下发，丢包时维持上一相位
type adaptiveController struct {
	*baseController
	platoon *PlatoonDetector
}

// newAdaptiveController 创建启发式自适应控制器
// 参数：timing-配时配置，obs-观测模型，channel-通信信道，sink-事件接收器
func newAdaptiveController(timing config.Timing, obs *obsmodel.Model, channel entity.IChannel, sink entity.IEventSink) *adaptiveController {
	c := &adaptiveController{
		baseController: newBaseController(timing, obs, channel, sink),
		platoon:        NewPlatoonDetector(),
	}
	c.decider = c
	return c
}

// minGreen 当前绿灯的动态最小时长
// 算法说明：基础最小绿灯随当前方向排队增长、随对向排队缩短，
// 夹在硬下界与基础绿灯时长之间
func (c *adaptiveController) minGreen(own, opp float64) float64 {
	return lo.Clamp(c.timing.MinGreen+ownQueueGain*own-oppQueueGain*opp,
		c.timing.AbsMinGreen, c.timing.AdaptiveGreen)
}

// maxGreen 当前绿灯的动态最大时长
// 算法说明：基础最大绿灯随当前方向排队增长、随对向排队缩短，
// 夹在基础绿灯时长与硬上界之间
func (c *adaptiveController) maxGreen(own, opp float64) float64 {
	return lo.Clamp(c.timing.MaxGreen+ownQueueMax*own-oppQueueGain*opp,
		c.timing.AdaptiveGreen, c.timing.HardMaxGreen)
}

// greenDuration 当前绿灯的目标时长
// 算法说明：基础绿灯时长，车队检测命中当前放行方向时
// 延长min(上限, (规模-1)*每车延长量)，整体不超过动态最大绿灯
func (c *adaptiveController) greenDuration(id entity.JunctionID, now float64, s *junctionState) float64 {
	o := c.observationOf(id)
	c.platoon.Observe(id, true, now, o.NSQueue())
	c.platoon.Observe(id, false, now, o.EWQueue())

	duration := c.timing.AdaptiveGreen
	ns := s.phase == entity.PhaseGreenNS
	if size, ok := c.platoon.Active(id, ns); ok {
		duration += math.Min(maxPlatoonExtension, (size-1)*perVehicleExtension)
	}
	own, opp := c.directionQueues(id, s.phase)
	return math.Min(duration, c.maxGreen(own, opp))
}

// wantsEarlyDecision 动态最小绿灯之后的排队阈值提前切换规则
// 说明：规则与固定配时相同，最小绿灯改用动态边界
func (c *adaptiveController) wantsEarlyDecision(id entity.JunctionID, now float64, s *junctionState, elapsed float64) bool {
	own, opp := c.directionQueues(id, s.phase)
	if elapsed < c.minGreen(own, opp) {
		return false
	}
	return opp > c.timing.QueueThreshold || (own == 0 && opp > 0)
}

// decidePhase 推进到对向绿灯
func (c *adaptiveController) decidePhase(id entity.JunctionID, now float64, s *junctionState) entity.Phase {
	if s.phase == entity.PhaseGreenNS {
		return entity.PhaseGreenEW
	}
	return entity.PhaseGreenNS
}
