// 信号灯决策控制器家族，所有控制策略共享同一个相位状态机
//
// 相位按固定4元循环推进：南北绿->南北黄->东西绿->东西黄。
// 黄灯一经进入必须走满名义时长，期满后强制进入循环后继，
// 任何策略都无法产生过短的黄灯，这是整个系统唯一的硬安全不变量。
// 绿灯的时长与切换时机由具体策略决定
package controller

import (
	"errors"
	"fmt"

	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/netchan"
	"git.fiblab.net/sim/lightctl/obsmodel"
	"git.fiblab.net/sim/lightctl/utils/config"
)

// ErrUnknownKind 未知的控制器类型
var ErrUnknownKind = errors.New("unknown controller kind")

// Kind 控制器类型
type Kind int32

const (
	KindFixedCycle        Kind = iota // 固定配时
	KindAdaptiveWired                 // 启发式自适应（有线信道）
	KindAdaptiveWireless              // 启发式自适应（无线信道）
	KindQLearningWired                // 表格Q学习（有线信道）
	KindQLearningWireless             // 表格Q学习（无线信道）
	KindDeepQWired                    // DQN（有线信道）
	KindDeepQWireless                 // DQN（无线信道）
)

// kindNames 控制器类型与配置字符串的对应关系
var kindNames = map[Kind]string{
	KindFixedCycle:        "fixed",
	KindAdaptiveWired:     "adaptive_wired",
	KindAdaptiveWireless:  "adaptive_wireless",
	KindQLearningWired:    "q_wired",
	KindQLearningWireless: "q_wireless",
	KindDeepQWired:        "dqn_wired",
	KindDeepQWireless:     "dqn_wireless",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int32(k))
}

// KindFromString 解析配置中的控制器类型字符串
func KindFromString(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("controller: %w %q", ErrUnknownKind, s)
}

// wireless 是否使用无线信道
func (k Kind) wireless() bool {
	return k == KindAdaptiveWireless || k == KindQLearningWireless || k == KindDeepQWireless
}

// learning 是否为学习型控制器
func (k Kind) learning() bool {
	return k >= KindQLearningWired
}

// Trainable 学习型控制器的训练期扩展接口
// 说明：非学习控制器不实现，调用方按需做类型断言
type Trainable interface {
	// DecayExploration 衰减探索率，每个训练回合结束后调用
	DecayExploration()
	// SaveModel 将学到的模型写入文件（DQN为每路口一个文件的前缀）
	SaveModel(path string) error
	// LoadModel 从文件恢复模型，失败时保留现有模型并返回false
	LoadModel(path string) bool
}

// NetworkStats 信道统计量访问接口
type NetworkStats interface {
	// ChannelStats 获取累计采样次数、丢包次数与累计逻辑时延
	ChannelStats() (samples, drops int, totalDelay float64)
}

// RewardStats 奖励统计量访问接口
type RewardStats interface {
	// AverageReward 获取全部学习决策的平均奖励，非学习控制器恒为0
	AverageReward() float64
}

// junctionState 单个路口的相位状态机
type junctionState struct {
	phase       entity.Phase // 当前相位
	lastChange  float64      // 上次相位提交时刻（秒）
	stateLength int          // 信号灯组数量（0为未知，按规范编码原样输出）
}

// decider 具体控制策略需要实现的决策钩子
// 说明：基础控制器负责相位状态机与信道门控，策略只回答三个问题
type decider interface {
	// greenDuration 当前绿灯相位的名义时长（秒），每个绿灯步调用一次
	greenDuration(id entity.JunctionID, now float64, s *junctionState) float64
	// wantsEarlyDecision 最小绿灯已过时是否提前结束当前绿灯
	wantsEarlyDecision(id entity.JunctionID, now float64, s *junctionState, elapsed float64) bool
	// decidePhase 绿灯期满或提前结束时给出期望显示的相位
	decidePhase(id entity.JunctionID, now float64, s *junctionState) entity.Phase
}

// baseController 控制器公共基座
// 功能：维护各路口的相位状态机，执行黄灯原子性门控与信道门控，
// 将具体策略的相位意图转换为安全的相位序列
type baseController struct {
	timing  config.Timing
	obs     *obsmodel.Model
	channel entity.IChannel // nil为本地控制（不经信道）
	sink    entity.IEventSink
	decider decider

	trafficState map[entity.JunctionID]entity.Observation
	junctions    map[entity.JunctionID]*junctionState

	channelSamples int
	channelDrops   int
	channelDelay   float64

	rewardSum   float64
	rewardCount int
}

func newBaseController(timing config.Timing, obs *obsmodel.Model, channel entity.IChannel, sink entity.IEventSink) *baseController {
	return &baseController{
		timing:       timing,
		obs:          obs,
		channel:      channel,
		sink:         sink,
		trafficState: make(map[entity.JunctionID]entity.Observation),
		junctions:    make(map[entity.JunctionID]*junctionState),
	}
}

// stateOf 获取路口相位状态，不存在时从南北绿初始化
func (b *baseController) stateOf(id entity.JunctionID, now float64) *junctionState {
	s, ok := b.junctions[id]
	if !ok {
		s = &junctionState{phase: entity.PhaseGreenNS, lastChange: now}
		b.junctions[id] = s
	}
	return s
}

// observationOf 获取路口最新观测
// 说明：最新观测中缺失的路口按零交通处理，不报错
func (b *baseController) observationOf(id entity.JunctionID) entity.Observation {
	return b.trafficState[id]
}

// UpdateTrafficState 更新控制器掌握的交通状态
// 说明：每个模拟步先于GetPhaseForJunction调用
func (b *baseController) UpdateTrafficState(observations map[entity.JunctionID]entity.Observation) {
	b.trafficState = observations
}

// SetStateLength 设置路口信号灯组数量
// 说明：外部适配层在模拟开始前调用
func (b *baseController) SetStateLength(id entity.JunctionID, length int) {
	b.stateOf(id, 0).stateLength = length
}

// ChannelStats 获取信道统计量
func (b *baseController) ChannelStats() (samples, drops int, totalDelay float64) {
	return b.channelSamples, b.channelDrops, b.channelDelay
}

// recordReward 累计一次奖励并上报事件
func (b *baseController) recordReward(id entity.JunctionID, r float64) {
	b.rewardSum += r
	b.rewardCount++
	b.sink.RewardComputed(id, r)
}

// AverageReward 获取全部学习决策的平均奖励
func (b *baseController) AverageReward() float64 {
	if b.rewardCount == 0 {
		return 0
	}
	return b.rewardSum / float64(b.rewardCount)
}

// GetPhaseForJunction 获取路口当前应显示的信号灯状态编码
// 说明：输出按路口信号灯组数量由规范4字符编码重复/截断而来
func (b *baseController) GetPhaseForJunction(id entity.JunctionID, now float64) string {
	p := b.phaseFor(id, now)
	code := p.Code()
	if length := b.junctions[id].stateLength; length > 0 {
		code = entity.AdjustToLength(code, length)
	}
	return code
}

// phaseFor 相位状态机的单步推进
// 算法说明：
// 1. 黄灯未满名义时长只能保持；期满后强制进入循环后继，
//    不征询策略也不经过信道（黄灯收尾是信号灯本地的安全行为）
// 2. 绿灯在名义/自适应时长内保持，除非策略要求提前结束
// 3. 期满或提前结束时由策略给出期望相位，经信道下发：
//    丢包时维持当前相位且不重置计时（重复即重试，下一步重新决策）
// 4. 期望相位与当前一致则重新计时（延长一个周期）；
//    不一致则切换到当前方向的黄灯，经黄灯过渡到对向绿灯
func (b *baseController) phaseFor(id entity.JunctionID, now float64) entity.Phase {
	s := b.stateOf(id, now)
	elapsed := now - s.lastChange

	if s.phase.IsYellow() {
		if elapsed < b.timing.Yellow {
			return s.phase
		}
		s.phase = s.phase.Next()
		s.lastChange = now
		return s.phase
	}

	if elapsed < b.decider.greenDuration(id, now, s) &&
		!b.decider.wantsEarlyDecision(id, now, s, elapsed) {
		return s.phase
	}

	want := b.decider.decidePhase(id, now, s)
	if !want.Valid() {
		b.sink.RecoverableAnomaly(id, fmt.Sprintf("non-canonical phase %d from policy", int32(want)))
		want = entity.PhaseGreenNS
	}

	if b.channel != nil {
		sample := b.channel.Sample(b.obs.Complexity(b.observationOf(id)))
		b.channelSamples++
		b.channelDelay += sample.Delay
		b.sink.ChannelSampled(id, sample)
		if sample.Drop {
			b.channelDrops++
			return s.phase
		}
	}

	if want != s.phase {
		// 任何切换都必须先经过当前方向的黄灯
		s.phase = s.phase.Next()
	}
	s.lastChange = now
	return s.phase
}

// New 按配置创建控制器
// 功能：控制器工厂，按类型枚举组装策略、信道与事件接收器
// 参数：rc-运行时配置
// 返回：控制器实例与可能的错误
// 说明：配置了模型路径的学习型控制器在构造时尝试加载预训练模型，
// 加载失败只告警，控制器以空模型继续运行
func New(rc *config.RuntimeConfig) (entity.IController, error) {
	kind, err := KindFromString(rc.C.Controller)
	if err != nil {
		return nil, err
	}

	obs := obsmodel.Default()
	obs.Bins = rc.All.RL.StateBins
	sink := entity.NewLogSink()

	var channel entity.IChannel
	switch {
	case kind == KindFixedCycle:
		// 固定配时为本地控制，不经信道
	case kind.wireless():
		channel = netchan.NewWireless(rc.All.Channel, rc.C.Seed+1)
	default:
		channel = netchan.NewWired(rc.All.Channel.Latency)
	}

	var c entity.IController
	switch kind {
	case KindFixedCycle:
		c = newFixedCycleController(rc.All.Timing, obs, sink)
	case KindAdaptiveWired, KindAdaptiveWireless:
		c = newAdaptiveController(rc.All.Timing, obs, channel, sink)
	case KindQLearningWired, KindQLearningWireless:
		c = newQLearningController(rc.All.Timing, rc.All.RL, obs, channel, sink, rc.C.Seed)
	case KindDeepQWired, KindDeepQWireless:
		c = newDeepQController(rc.All.Timing, rc.All.RL, obs, channel, sink, rc.C.Seed, rc.All.Scenario.Junctions)
	}

	if path := rc.All.RL.ModelPath; path != "" && kind.learning() {
		if t, ok := c.(Trainable); ok && !t.LoadModel(path) {
			log.Warnf("pretrained model %s not loaded, starting fresh", path)
		}
	}
	log.Infof("controller %s created", kind)
	return c, nil
}
