// 通信信道模型，模拟决策引擎与信号灯之间链路的时延与丢包
//
// 信道产生的是逻辑时延：决策在逻辑上被标记为now+delay生效并计入指标，
// 绝不在决策流水线中真实休眠；丢包时重复上一个已提交相位（重复即重试）
package netchan

import (
	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/utils/config"
	"git.fiblab.net/sim/lightctl/utils/randengine"
)

// Mode 信道工作模式
// 说明：训练模式下压低时延与丢包以利于学习收敛，评估模式使用原始参数；
// 两种模式共用同一套计算路径，差异只体现在此开关上
type Mode int32

const (
	ModeEvaluation Mode = iota // 评估模式
	ModeTraining               // 训练模式
)

// 训练模式的软化参数
const (
	trainingLatencyScale = 0.5   // 训练模式时延缩放
	trainingMaxLatency   = 0.1   // 训练模式时延上限（秒）
	trainingMaxDropProb  = 0.001 // 训练模式丢包概率上限
)

// Wired 有线信道
// 功能：固定时延、不丢包的通信链路
type Wired struct {
	Latency float64 // 固定时延（秒）
}

// NewWired 创建有线信道
func NewWired(latency float64) *Wired {
	return &Wired{Latency: latency}
}

// Sample 采样一次信道状态
// 说明：有线信道与交通复杂度无关，时延恒定且从不丢包
func (w *Wired) Sample(trafficComplexity float64) entity.ChannelSample {
	return entity.ChannelSample{Delay: w.Latency}
}

// Wireless 无线信道
// 功能：时延随交通复杂度变化、存在丢包的通信链路
// 说明：时延 = 基础时延 + 复杂度*计算系数 + U(0,抖动)*复杂度；
// 丢包按固定概率独立采样
type Wireless struct {
	BaseLatency       float64 // 基础时延（秒）
	ComputationFactor float64 // 计算耗时系数
	Jitter            float64 // 干扰抖动上限（秒）
	DropProb          float64 // 丢包概率
	Mode              Mode    // 工作模式

	engine *randengine.Engine
}

// NewWireless 创建无线信道
// 参数：c-信道配置，seed-随机种子
func NewWireless(c config.Channel, seed uint64) *Wireless {
	w := &Wireless{
		BaseLatency:       c.BaseLatency,
		ComputationFactor: c.ComputationFactor,
		Jitter:            c.Jitter,
		DropProb:          c.DropProb,
		engine:            randengine.New(seed),
	}
	if c.Training {
		w.Mode = ModeTraining
	}
	return w
}

// Sample 采样一次信道状态
// 算法说明：
// 1. 时延 = 基础时延 + 复杂度*计算系数 + U(0,抖动)*复杂度
// 2. 训练模式下时延项整体缩放并截断到上限
// 3. 丢包独立采样，训练模式下丢包概率取min(上限, 配置值)
func (w *Wireless) Sample(trafficComplexity float64) entity.ChannelSample {
	delay := w.BaseLatency + trafficComplexity*w.ComputationFactor +
		w.engine.Uniform(0, w.Jitter)*trafficComplexity
	dropProb := w.DropProb
	if w.Mode == ModeTraining {
		delay *= trainingLatencyScale
		if delay > trainingMaxLatency {
			delay = trainingMaxLatency
		}
		if dropProb > trainingMaxDropProb {
			dropProb = trainingMaxDropProb
		}
	}
	return entity.ChannelSample{
		Delay: delay,
		Drop:  w.engine.PTrue(dropProb),
	}
}

// New 按配置创建信道
// 参数：c-信道配置，seed-随机种子
// 说明：variant为空或wired时创建有线信道，wireless时创建无线信道
func New(c config.Channel, seed uint64) entity.IChannel {
	if c.Variant == "wireless" {
		return NewWireless(c, seed)
	}
	return NewWired(c.Latency)
}
