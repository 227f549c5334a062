package entity

// 依赖倒置，表达控制引擎各组件间的接口需求

// ChannelSample 一次通信信道采样结果
// 功能：描述决策下发到信号灯这条链路的一次模拟结果
// 说明：Delay为逻辑时延（秒），只计入指标、不阻塞决策流水线；
// Drop为true表示本次下发丢失，此时重复上一个已提交相位（重复即重试）
type ChannelSample struct {
	Delay float64 // 逻辑时延（秒）
	Drop  bool    // 是否丢包
}

// IChannel 通信信道接口
// 功能：对决策引擎与信号灯之间通信链路的抽象
// 说明：有线信道为固定时延、不丢包；无线信道时延随交通复杂度变化且存在丢包
type IChannel interface {
	// Sample 按当前交通复杂度（0=空闲/均衡，1=饱和/失衡）采样一次信道状态
	Sample(trafficComplexity float64) ChannelSample
}

// IController 信号灯控制器接口
// 功能：所有控制策略（固定配时、启发式自适应、表格Q学习、DQN）的统一接口
// 说明：每个模拟步先调用UpdateTrafficState写入最新观测，
// 再对每个路口调用GetPhaseForJunction获取应显示的信号灯状态
type IController interface {
	// UpdateTrafficState 更新控制器掌握的路口交通状态
	UpdateTrafficState(observations map[JunctionID]Observation)
	// GetPhaseForJunction 获取指定路口在当前时刻应显示的信号灯状态编码
	GetPhaseForJunction(id JunctionID, now float64) string
	// SetStateLength 设置路口信号灯组数量（外部适配层在初始化时写入）
	SetStateLength(id JunctionID, length int)
}

// IEventSink 结构化事件接收器
// 功能：控制器内部事件（异常、信道采样、奖励）的统一上报出口
// 说明：以依赖注入方式传入各组件，替代全局可变的打印式日志；
// 丢包属于设计内的降级路径，只作为普通事件上报而非故障
type IEventSink interface {
	// RecoverableAnomaly 上报可恢复异常（如查表得到非规范动作）
	RecoverableAnomaly(id JunctionID, what string)
	// ChannelSampled 上报一次信道采样结果
	ChannelSampled(id JunctionID, sample ChannelSample)
	// RewardComputed 上报一次奖励计算结果
	RewardComputed(id JunctionID, reward float64)
}
