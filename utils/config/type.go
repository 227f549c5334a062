package config

// ControlStep 指定模拟时间范围和间隔的配置项
// 说明：控制决策循环的时间范围、步长
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 决策引擎控制配置
// 说明：包含时间控制、控制器类型、随机种子等核心配置
type Control struct {
	Step       ControlStep `yaml:"step"`
	Controller string      `yaml:"controller"`     // 控制器类型（fixed|adaptive_wired|adaptive_wireless|q_wired|q_wireless|dqn_wired|dqn_wireless）
	Seed       uint64      `yaml:"seed,omitempty"` // 随机种子
}

// Timing 相位配时配置
// 说明：各相位名义时长与自适应控制的配时边界，时间单位均为秒
type Timing struct {
	Green          float64 `yaml:"green,omitempty"`           // 固定配时绿灯名义时长
	Yellow         float64 `yaml:"yellow,omitempty"`          // 黄灯名义时长（不可缩短、不可延长）
	AdaptiveGreen  float64 `yaml:"adaptive_green,omitempty"`  // 自适应控制的基础绿灯时长
	MinGreen       float64 `yaml:"min_green,omitempty"`       // 基础最小绿灯时长
	AbsMinGreen    float64 `yaml:"abs_min_green,omitempty"`   // 最小绿灯时长硬下界
	MaxGreen       float64 `yaml:"max_green,omitempty"`       // 基础最大绿灯时长
	HardMaxGreen   float64 `yaml:"hard_max_green,omitempty"`  // 最大绿灯时长硬上界
	QueueThreshold float64 `yaml:"queue_threshold,omitempty"` // 对向排队提前切换阈值（辆）
}

// RL 强化学习配置
// 说明：表格Q学习与DQN共享的超参数，零值字段使用默认值
type RL struct {
	LearningRate     float64 `yaml:"learning_rate,omitempty"`     // 学习率alpha
	DiscountFactor   float64 `yaml:"discount_factor,omitempty"`   // 折扣因子gamma
	ExplorationRate  float64 `yaml:"exploration_rate,omitempty"`  // 探索率epsilon
	ExplorationMin   float64 `yaml:"exploration_min,omitempty"`   // 探索率下限
	ExplorationDecay float64 `yaml:"exploration_decay,omitempty"` // 每次学习后的探索率衰减系数
	StateBins        int     `yaml:"state_bins,omitempty"`        // 状态离散化桶数（表格Q学习）
	MemorySize       int     `yaml:"memory_size,omitempty"`       // 经验回放容量（DQN）
	BatchSize        int     `yaml:"batch_size,omitempty"`        // 小批量大小（DQN）
	TargetUpdateFreq int     `yaml:"target_update_freq,omitempty"` // 目标网络同步周期（学习步数）
	ModelPath        string  `yaml:"model_path,omitempty"`        // 预训练模型路径（可选）
}

// Channel 通信信道配置
// 说明：有线信道仅使用latency；无线信道使用base_latency等参数；
// training显式启用训练模式（降低时延与丢包以利于学习），
// 与评估模式共用同一套计算路径
type Channel struct {
	Variant           string  `yaml:"variant,omitempty"`            // 信道类型（wired|wireless）
	Latency           float64 `yaml:"latency,omitempty"`            // 有线固定时延（秒）
	BaseLatency       float64 `yaml:"base_latency,omitempty"`       // 无线基础时延（秒）
	ComputationFactor float64 `yaml:"computation_factor,omitempty"` // 计算耗时系数
	Jitter            float64 `yaml:"jitter,omitempty"`             // 干扰抖动上限（秒）
	DropProb          float64 `yaml:"drop_prob,omitempty"`          // 丢包概率
	Training          bool    `yaml:"training,omitempty"`           // 是否为训练模式
}

// Scenario 合成交通场景配置
// 说明：场景运行器用合成流量驱动控制器，替代外部微观模拟器做对比实验
type Scenario struct {
	Junctions []string `yaml:"junctions"`          // 受控路口ID列表
	Profile   string   `yaml:"profile,omitempty"`  // 流量场景（uniform|rush_ns|platoon）
	Demand    float64  `yaml:"demand,omitempty"`   // 每方向每秒车辆到达率
}

// Config YAML配置文件的根结构
type Config struct {
	Control  Control  `yaml:"control"`            // 模拟过程控制
	Timing   Timing   `yaml:"timing,omitempty"`   // 相位配时
	RL       RL       `yaml:"rl,omitempty"`       // 强化学习
	Channel  Channel  `yaml:"channel,omitempty"`  // 通信信道
	Scenario Scenario `yaml:"scenario,omitempty"` // 合成交通场景
}
