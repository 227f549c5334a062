// 观测模型，将模拟器提供的原始交通观测转换为策略消费的状态表示
package obsmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"git.fiblab.net/sim/lightctl/entity"
)

// VectorDim 连续状态向量维度（4方向×{车辆数,等待时间,排队长度}）
const VectorDim = 12

// Model 观测模型
// 功能：提供连续（DQN）与离散（表格Q学习）两种状态表示，
// 以及无线信道使用的交通复杂度计算
// 说明：构造后只读，可被多个控制器共享
type Model struct {
	CountCeil float64 // 车辆数归一化上界
	WaitCeil  float64 // 等待时间归一化上界
	QueueCeil float64 // 排队长度归一化上界

	Bins      int     // 离散化桶数
	CountStep float64 // 车辆数聚合的分桶步长
	QueueStep float64 // 排队长度聚合的分桶步长

	// 交通复杂度混合权重
	// 复杂度 = VolumeWeight*min(1, 总车辆数/VolumeCeil) + ImbalanceWeight*失衡度，
	// 0为空闲/均衡、1为饱和/失衡；权重为策略参数而非物理规律，
	// 默认取0.7/0.3并以50辆为饱和上界
	VolumeCeil      float64
	VolumeWeight    float64
	ImbalanceWeight float64
}

// Default 创建默认参数的观测模型
func Default() *Model {
	return &Model{
		CountCeil:       30,
		WaitCeil:        60,
		QueueCeil:       20,
		Bins:            8,
		CountStep:       2,
		QueueStep:       1.5,
		VolumeCeil:      50,
		VolumeWeight:    0.7,
		ImbalanceWeight: 0.3,
	}
}

// Vector 连续状态表示
// 功能：将观测转换为12维归一化向量
// 说明：各字段除以对应上界，不做截断，越界输入产生大于1的分量，
// 由策略自行容忍
func (m *Model) Vector(o entity.Observation) *mat.VecDense {
	return mat.NewVecDense(VectorDim, []float64{
		o.NorthCount / m.CountCeil,
		o.SouthCount / m.CountCeil,
		o.EastCount / m.CountCeil,
		o.WestCount / m.CountCeil,
		o.NorthWait / m.WaitCeil,
		o.SouthWait / m.WaitCeil,
		o.EastWait / m.WaitCeil,
		o.WestWait / m.WaitCeil,
		o.NorthQueue / m.QueueCeil,
		o.SouthQueue / m.QueueCeil,
		o.EastQueue / m.QueueCeil,
		o.WestQueue / m.QueueCeil,
	})
}

// DiscreteState 离散状态表示
// 说明：四元组依次为南北车辆数、东西车辆数、南北排队、东西排队的桶号；
// 可比较、可作map键
type DiscreteState [4]int

// Key 获取离散状态的字符串键
// 说明：用于模型导出时的序列化键
func (s DiscreteState) Key() string {
	return fmt.Sprintf("%d,%d,%d,%d", s[0], s[1], s[2], s[3])
}

// ParseDiscreteState 从字符串键还原离散状态
func ParseDiscreteState(key string) (DiscreteState, error) {
	var s DiscreteState
	if _, err := fmt.Sscanf(key, "%d,%d,%d,%d", &s[0], &s[1], &s[2], &s[3]); err != nil {
		return s, fmt.Errorf("obsmodel: bad state key %q: %w", key, err)
	}
	return s, nil
}

// Discretize 离散状态表示
// 功能：将观测聚合为南北/东西两个方向组后做等宽分桶
// 算法说明：
// 1. 方向对求和：北+南、东+西的车辆数与排队长度
// 2. 各聚合值按步长分桶：桶号 = min(Bins-1, floor(值/步长))
// 说明：同一观测与分桶配置下结果确定
func (m *Model) Discretize(o entity.Observation) DiscreteState {
	return DiscreteState{
		m.bucket(o.NSCount(), m.CountStep),
		m.bucket(o.EWCount(), m.CountStep),
		m.bucket(o.NSQueue(), m.QueueStep),
		m.bucket(o.EWQueue(), m.QueueStep),
	}
}

func (m *Model) bucket(value, step float64) int {
	b := int(math.Floor(value / step))
	if b > m.Bins-1 {
		b = m.Bins - 1
	}
	return b
}

// Complexity 交通复杂度
// 功能：计算无线信道模型使用的交通复杂度（0.0-1.0）
// 算法说明：
// 1. 流量因子：总车辆数相对VolumeCeil归一化，上限1
// 2. 失衡度：|南北-东西|/总车辆数
// 3. 按混合权重合成；无车时复杂度为0
func (m *Model) Complexity(o entity.Observation) float64 {
	total := o.TotalCount()
	if total <= 0 {
		return 0
	}
	volume := math.Min(1, total/m.VolumeCeil)
	imbalance := math.Abs(o.NSCount()-o.EWCount()) / total
	return volume*m.VolumeWeight + imbalance*m.ImbalanceWeight
}
