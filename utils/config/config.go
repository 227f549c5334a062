package config

// RuntimeConfig 运行时配置
// 功能：存储决策引擎运行时的配置信息
// 说明：将YAML配置转换为运行时可用的配置对象，并补全默认值
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// 各配置项的默认值，与既有对比实验使用的参数保持一致
const (
	DefaultStepInterval = 1.0

	DefaultGreen          = 30.0
	DefaultYellow         = 5.0
	DefaultAdaptiveGreen  = 15.0
	DefaultMinGreen       = 10.0
	DefaultAbsMinGreen    = 5.0
	DefaultMaxGreen       = 45.0
	DefaultHardMaxGreen   = 60.0
	DefaultQueueThreshold = 8.0

	DefaultLearningRate     = 0.1
	DefaultDiscountFactor   = 0.9
	DefaultExplorationRate  = 0.3
	DefaultStateBins        = 8
	DefaultMemorySize       = 10000
	DefaultBatchSize        = 32
	DefaultTargetUpdateFreq = 100
)

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象，补全未显式指定的默认值
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control
	fill(&rc.C.Step.Interval, DefaultStepInterval)
	rc.All.Control = rc.C

	t := &rc.All.Timing
	fill(&t.Green, DefaultGreen)
	fill(&t.Yellow, DefaultYellow)
	fill(&t.AdaptiveGreen, DefaultAdaptiveGreen)
	fill(&t.MinGreen, DefaultMinGreen)
	fill(&t.AbsMinGreen, DefaultAbsMinGreen)
	fill(&t.MaxGreen, DefaultMaxGreen)
	fill(&t.HardMaxGreen, DefaultHardMaxGreen)
	fill(&t.QueueThreshold, DefaultQueueThreshold)

	r := &rc.All.RL
	fill(&r.LearningRate, DefaultLearningRate)
	fill(&r.DiscountFactor, DefaultDiscountFactor)
	fill(&r.ExplorationRate, DefaultExplorationRate)
	if r.StateBins == 0 {
		r.StateBins = DefaultStateBins
	}
	if r.MemorySize == 0 {
		r.MemorySize = DefaultMemorySize
	}
	if r.BatchSize == 0 {
		r.BatchSize = DefaultBatchSize
	}
	if r.TargetUpdateFreq == 0 {
		r.TargetUpdateFreq = DefaultTargetUpdateFreq
	}

	return rc
}

// fill 零值时写入默认值
func fill(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}
