// 奖励模型，从交通观测计算强化学习策略的标量奖励
package reward

import "git.fiblab.net/sim/lightctl/entity"

// Model 奖励模型
// 功能：按四个加权分量从观测计算标量奖励
// 说明：构造后只读，可被多个控制器共享。分量构成：
// (a) 等待时间惩罚：负值，随等待时间单调递减，可选平方惩罚以超线性
//     压制长时间等待
// (b) 排队长度惩罚：负值，与总排队长度成线性
// (c) 通行奖励：正值，与推断为行驶中的车辆数成正比
// (d) 方向均衡奖励：正值，南北与东西流量相等时取满额，
//     按min/max比例折减，双向皆空时同样取满额
type Model struct {
	WaitWeight       float64 // 等待时间惩罚权重（作用于惩罚项，应为正值）
	QuadraticWait    bool    // 等待时间是否取平方
	QueueWeight      float64 // 排队长度惩罚权重
	ThroughputWeight float64 // 通行奖励权重
	BalanceCeiling   float64 // 均衡奖励满额值

	PlatoonBonus   float64 // 车队服务奖励权重（0为不启用）
	PlatoonMinSize float64 // 构成车队的最小通行车辆数

	Clamp float64 // 奖励截断幅度（0为不截断），用于约束表格Q值数量级
}

// DeepProfile 创建DQN使用的奖励模型
// 说明：平方等待惩罚，奖励不截断
func DeepProfile() *Model {
	return &Model{
		WaitWeight:       0.5,
		QuadraticWait:    true,
		QueueWeight:      0.2,
		ThroughputWeight: 0.1,
		BalanceCeiling:   0.3,
	}
}

// TabularProfile 创建表格Q学习使用的奖励模型
// 说明：线性等待惩罚，奖励截断到[-20, +20]以约束Q表数量级
func TabularProfile() *Model {
	return &Model{
		WaitWeight:       1.0,
		QueueWeight:      2.0,
		ThroughputWeight: 0.8,
		BalanceCeiling:   0.5,
		PlatoonBonus:     0.5,
		PlatoonMinSize:   2,
		Clamp:            20,
	}
}

// Reward 计算标量奖励
// 参数：o-当前观测，phase-当前显示的相位（车队奖励需要判断放行方向）
// 返回：合成后的标量奖励，按配置截断
func (m *Model) Reward(o entity.Observation, phase entity.Phase) float64 {
	waits := [4]float64{o.NorthWait, o.SouthWait, o.EastWait, o.WestWait}
	waitPenalty := 0.0
	for _, w := range waits {
		if m.QuadraticWait {
			waitPenalty -= m.WaitWeight * w * w
		} else {
			waitPenalty -= m.WaitWeight * w
		}
	}

	queuePenalty := -m.QueueWeight * o.TotalQueue()
	throughput := m.ThroughputWeight * o.Moving()

	// 均衡奖励：min/max比例，双向皆空视为完全均衡
	ns, ew := o.NSCount(), o.EWCount()
	balance := m.BalanceCeiling
	if lo, hi := minmax(ns, ew); hi > 0 {
		balance = m.BalanceCeiling * lo / hi
	}

	total := waitPenalty + queuePenalty + throughput + balance

	// 车队服务奖励：放行方向有成队车辆通过时按通过量加成
	if m.PlatoonBonus > 0 {
		if nsPassing := ns - o.NSQueue(); phase == entity.PhaseGreenNS && nsPassing >= m.PlatoonMinSize {
			total += m.PlatoonBonus * nsPassing
		}
		if ewPassing := ew - o.EWQueue(); phase == entity.PhaseGreenEW && ewPassing >= m.PlatoonMinSize {
			total += m.PlatoonBonus * ewPassing
		}
	}

	if m.Clamp > 0 {
		if total > m.Clamp {
			total = m.Clamp
		} else if total < -m.Clamp {
			total = -m.Clamp
		}
	}
	return total
}

func minmax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}
