// 场景运行器，以合成交通流驱动信号灯决策引擎
package task

import (
	"flag"
	"fmt"

	"git.fiblab.net/general/common/v2/parallel"

	"git.fiblab.net/sim/lightctl/clock"
	"git.fiblab.net/sim/lightctl/controller"
	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/utils"
	"git.fiblab.net/sim/lightctl/utils/config"
	"git.fiblab.net/sim/lightctl/utils/container"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
	episodeSteps      = flag.Int("task.episode_steps", 1000, "探索率衰减的回合步数")
)

// junctionStats 单路口累计指标
type junctionStats struct {
	id        entity.JunctionID
	totalWait float64 // 累计等待时间（辆·秒）
	peakQueue float64 // 排队长度峰值（辆）
	steps     int     // 统计步数
}

// avgWait 每步平均等待时间
func (s *junctionStats) avgWait() float64 {
	if s.steps == 0 {
		return 0
	}
	return s.totalWait / float64(s.steps)
}

// Context 决策任务上下文
// 功能：包含一次决策任务的所有变量和状态
// 说明：每步先由合成流量生成观测，再驱动控制器逐路口决策，
// 决策回写流量模型形成闭环
type Context struct {
	// 运行时配置
	config *config.RuntimeConfig
	// 时钟
	clock *clock.Clock
	// 信号灯控制器
	controller entity.IController
	// 合成交通流生成器
	generator *Generator

	// 各路口当前显示的相位
	phases map[entity.JunctionID]entity.Phase
	// 各路口累计指标
	stats map[entity.JunctionID]*junctionStats
}

// New 创建决策任务上下文
// 功能：初始化时钟、控制器与合成流量，完成路口注册
// 参数：rc-运行时配置
// 返回：任务上下文与可能的错误
func New(rc *config.RuntimeConfig) (*Context, error) {
	if len(rc.All.Scenario.Junctions) == 0 {
		return nil, fmt.Errorf("task: no junctions in scenario config")
	}
	c, err := controller.New(rc)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		config:     rc,
		clock:      clock.New(rc.C.Step),
		controller: c,
		generator:  NewGenerator(rc.All.Scenario, rc.C.Seed+2),
		phases:     make(map[entity.JunctionID]entity.Phase),
		stats:      make(map[entity.JunctionID]*junctionStats),
	}
	for _, id := range rc.All.Scenario.Junctions {
		// 合成场景固定为规范的4灯组路口
		c.SetStateLength(id, len(entity.PhaseGreenNS.Code()))
		ctx.phases[id] = entity.PhaseGreenNS
		ctx.stats[id] = &junctionStats{id: id}
	}
	return ctx, nil
}

// prepare 准备阶段，每步执行一次
// 功能：推进时钟并定期输出心跳日志
func (ctx *Context) prepare() {
	ctx.clock.InternalStep++
	ctx.clock.T = float64(ctx.clock.InternalStep) * ctx.clock.DT

	if ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f)",
			ctx.clock.InternalStep,
			hour, minute, second,
		)
	}
}

// update 更新阶段，每步执行一次
// 算法说明：
// 1. 按各路口当前相位推进合成流量，生成本步观测
// 2. 将观测写入控制器后，逐路口获取应显示的信号灯状态
// 3. 决策回写相位表供下一步流量推进使用，并累计指标
// 说明：路口决策顺序执行，控制器内部各路口状态互不影响
func (ctx *Context) update() {
	observations := ctx.generator.Step(ctx.clock.DT, ctx.clock.T, ctx.phases)
	ctx.controller.UpdateTrafficState(observations)

	for _, id := range ctx.config.All.Scenario.Junctions {
		code := ctx.controller.GetPhaseForJunction(id, ctx.clock.T)
		phase, ok := entity.PhaseFromCode(code)
		if !ok {
			log.Errorf("junction %s: unexpected light state %q", id, code)
			continue
		}
		ctx.phases[id] = phase

		o := observations[id]
		s := ctx.stats[id]
		s.totalWait += o.TotalWait()
		s.peakQueue = max(s.peakQueue, o.TotalQueue())
		s.steps++
	}

	if t, ok := ctx.controller.(controller.Trainable); ok &&
		ctx.clock.InternalStep%int32(*episodeSteps) == 0 {
		t.DecayExploration()
	}
}

// Run 运行决策任务主循环
func (ctx *Context) Run() error {
	log.Infof("task start at step %d, total %d steps", ctx.clock.START_STEP, ctx.clock.END_STEP-ctx.clock.START_STEP)
	for !ctx.clock.Done() {
		ctx.prepare()
		ctx.update()
	}
	ctx.summary()
	return nil
}

// Close 结束任务，保存学习型控制器的模型
func (ctx *Context) Close() {
	path := ctx.config.All.RL.ModelPath
	if path == "" {
		return
	}
	if t, ok := ctx.controller.(controller.Trainable); ok {
		if err := t.SaveModel(path); err != nil {
			log.Errorf("save model to %s failed: %v", path, err)
		} else {
			log.Infof("model saved to %s", path)
		}
	}
}

// summary 输出任务结束时的汇总指标
// 功能：并行汇总各路口指标，按平均等待时间从高到低排序输出，
// 并附带信道统计量
func (ctx *Context) summary() {
	stats, missing := utils.Find(
		ctx.stats, nil, ctx.config.All.Scenario.Junctions,
	)
	if len(missing) > 0 {
		log.Warnf("junctions %v missing from stats", missing)
	}
	lines := parallel.GoMap(stats, func(s *junctionStats) string {
		return fmt.Sprintf("junction %s: avg wait %.2fs, peak queue %.1f", s.id, s.avgWait(), s.peakQueue)
	})

	// 平均等待最长的路口排在最前
	pq := container.NewPriorityQueue[string]()
	for i, s := range stats {
		pq.Push(lines[i], -s.avgWait())
	}
	pq.Heapify()
	for pq.Len() > 0 {
		line, _ := pq.HeapPop()
		log.Info(line)
	}

	if ns, ok := ctx.controller.(controller.NetworkStats); ok {
		samples, drops, totalDelay := ns.ChannelStats()
		if samples > 0 {
			log.Infof(
				"channel: %d samples, %d drops (%.2f%%), mean delay %.3fs",
				samples, drops, 100*float64(drops)/float64(samples), totalDelay/float64(samples),
			)
		}
	}
	if rs, ok := ctx.controller.(controller.RewardStats); ok {
		if avg := rs.AverageReward(); avg != 0 {
			log.Infof("learning: average reward %.3f", avg)
		}
	}
}
