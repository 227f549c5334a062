package task

import (
	"math"

	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/utils/config"
	"git.fiblab.net/sim/lightctl/utils/randengine"
)

// 方向索引
const (
	dirNorth = iota
	dirSouth
	dirEast
	dirWest
	numDirections
)

// 合成流量模型参数
const (
	saturationRate   = 0.5  // 绿灯放行速率（辆/秒）
	movingDecay      = 0.5  // 已放行车辆每步驶离路口的比例
	waitRelief       = 0.8  // 绿灯期间平均等待的衰减系数
	platoonPeriod    = 60.0 // 车队注入周期（秒）
	platoonBurstSize = 6.0  // 每次注入的车队规模（辆）
)

// directionTraffic 单方向交通状态
type directionTraffic struct {
	queue  float64 // 排队车辆数
	moving float64 // 行驶中车辆数
	wait   float64 // 平均等待时间（秒）
}

// junctionTraffic 单路口四个方向的交通状态
type junctionTraffic [numDirections]directionTraffic

// Generator 合成交通流生成器
// 功能：以简化的排队模型为各路口生成逐步观测，
// 充当外部微观模拟器的替身驱动控制器做对比实验
// 说明：红灯方向按到达率积累排队并累计等待，
// 绿灯方向按饱和流率放行并衰减等待；观测字段语义与
// 外部模拟器供给的观测一致
type Generator struct {
	engine  *randengine.Engine
	demand  float64                // 每方向每秒到达率（辆/秒）
	weights [numDirections]float64 // 各方向到达权重

	platoons    bool    // 是否周期性注入车队
	nextPlatoon float64 // 下一次车队注入时刻（秒）

	junctions map[entity.JunctionID]*junctionTraffic
	ids       []entity.JunctionID
}

// NewGenerator 创建合成交通流生成器
// 参数：sc-场景配置，seed-随机种子
// 说明：流量场景决定各方向到达权重：
// uniform为四个方向均匀到达；rush_ns为南北高峰（南北3倍、东西减半）；
// platoon在均匀到达之上周期性向随机方向注入成队车辆
func NewGenerator(sc config.Scenario, seed uint64) *Generator {
	g := &Generator{
		engine:    randengine.New(seed),
		demand:    sc.Demand,
		weights:   [numDirections]float64{1, 1, 1, 1},
		junctions: make(map[entity.JunctionID]*junctionTraffic),
		ids:       sc.Junctions,
	}
	if g.demand == 0 {
		g.demand = 0.1
	}
	switch sc.Profile {
	case "rush_ns":
		g.weights = [numDirections]float64{3, 3, 0.5, 0.5}
	case "platoon":
		g.platoons = true
		g.nextPlatoon = platoonPeriod
	}
	for _, id := range g.ids {
		g.junctions[id] = &junctionTraffic{}
	}
	return g
}

// arrivals 采样一次到达车辆数
// 说明：期望值的整数部分确定到达，小数部分按伯努利采样
func (g *Generator) arrivals(expected float64) float64 {
	n := math.Floor(expected)
	if g.engine.PTrue(expected - n) {
		n++
	}
	return n
}

// Step 推进一个时间步并生成全部路口的观测
// 参数：dt-时间步长（秒），now-当前时刻（秒），
// phases-各路口当前显示的相位
// 算法说明：对每个路口的每个方向：
// 1. 按到达率与方向权重采样到达车辆
// 2. 放行方向（绿灯且方向匹配）：排队按饱和流率放行进入行驶，
//    到达车辆直接进入行驶，平均等待衰减
// 3. 受阻方向：行驶中车辆并入排队，到达车辆进入排队，
//    有排队时平均等待随时间增长
func (g *Generator) Step(dt, now float64, phases map[entity.JunctionID]entity.Phase) map[entity.JunctionID]entity.Observation {
	burstDir := -1
	if g.platoons && now >= g.nextPlatoon {
		burstDir = int(g.engine.DiscreteDistribution(g.weights[:]))
		g.nextPlatoon += platoonPeriod
	}

	observations := make(map[entity.JunctionID]entity.Observation, len(g.junctions))
	for _, id := range g.ids {
		jt := g.junctions[id]
		phase := phases[id]
		for dir := range jt {
			d := &jt[dir]
			a := g.arrivals(g.demand * g.weights[dir] * dt)
			if dir == burstDir {
				a += platoonBurstSize
			}
			if greenFor(phase, dir) {
				released := math.Min(d.queue, saturationRate*dt)
				d.queue -= released
				d.moving = d.moving*movingDecay + released + a
				d.wait *= waitRelief
				if d.queue == 0 {
					d.wait = 0
				}
			} else {
				d.queue += d.moving + a
				d.moving = 0
				if d.queue > 0 {
					d.wait += dt
				}
			}
		}
		observations[id] = jt.observation()
	}
	return observations
}

// greenFor 判断相位是否放行指定方向
func greenFor(phase entity.Phase, dir int) bool {
	switch phase {
	case entity.PhaseGreenNS:
		return dir == dirNorth || dir == dirSouth
	case entity.PhaseGreenEW:
		return dir == dirEast || dir == dirWest
	}
	return false
}

// observation 转换为控制器消费的观测
func (jt *junctionTraffic) observation() entity.Observation {
	count := func(d *directionTraffic) float64 { return d.queue + d.moving }
	return entity.Observation{
		NorthCount: count(&jt[dirNorth]),
		NorthWait:  jt[dirNorth].wait,
		NorthQueue: jt[dirNorth].queue,
		SouthCount: count(&jt[dirSouth]),
		SouthWait:  jt[dirSouth].wait,
		SouthQueue: jt[dirSouth].queue,
		EastCount:  count(&jt[dirEast]),
		EastWait:   jt[dirEast].wait,
		EastQueue:  jt[dirEast].queue,
		WestCount:  count(&jt[dirWest]),
		WestWait:   jt[dirWest].wait,
		WestQueue:  jt[dirWest].queue,
	}
}
