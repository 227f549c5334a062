package policy

import (
	"git.fiblab.net/sim/lightctl/utils/container"
	"git.fiblab.net/sim/lightctl/utils/randengine"
)

// Experience 一条经验
// 说明：DQN策略在每次决策后（首次决策除外）追加一条经验；
// 奖励对应的是上一动作产生的观测，滞后一步是有意保留的语义
type Experience struct {
	State    []float64 // 动作前状态向量
	Action   int       // 采取的动作（相位枚举序号）
	Reward   float64   // 观测到的奖励
	Next     []float64 // 动作后状态向量
	Terminal bool      // 是否为终止经验
}

// ReplayBuffer 经验回放缓冲
// 功能：容量受限的FIFO经验存储，溢出时淘汰最旧的经验
// 说明：用于打散训练样本间的相关性；缓冲由所属策略实例独占
type ReplayBuffer struct {
	window *container.Window[Experience]
}

// NewReplayBuffer 创建经验回放缓冲
// 参数：capacity-容量上限
func NewReplayBuffer(capacity int) *ReplayBuffer {
	return &ReplayBuffer{window: container.NewWindow[Experience](capacity)}
}

// Len 获取当前经验数量
func (b *ReplayBuffer) Len() int {
	return b.window.Len()
}

// Append 追加一条经验
// 说明：缓冲已满时淘汰最旧的经验
func (b *ReplayBuffer) Append(e Experience) {
	b.window.Push(e)
}

// Sample 均匀随机抽取n条经验
// 说明：单次调用内不重复抽取；跨调用相互独立。
// n大于当前数量时按当前数量抽取
func (b *ReplayBuffer) Sample(n int, engine *randengine.Engine) []Experience {
	size := b.window.Len()
	if n > size {
		n = size
	}
	out := make([]Experience, 0, n)
	for _, i := range engine.Perm(size)[:n] {
		out = append(out, b.window.At(i))
	}
	return out
}

// Values 按从最旧到最新的顺序返回全部经验
func (b *ReplayBuffer) Values() []Experience {
	return b.window.Values()
}
