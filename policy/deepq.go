// 基于经验回放与目标网络的深度Q学习策略
package policy

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/utils/config"
	"git.fiblab.net/sim/lightctl/utils/randengine"
)

// 隐层宽度
const deepQHiddenDim = 24

// deepQState 单个路口的学习状态
type deepQState struct {
	online     *ValueFunction        // 在线网络（动作选择与梯度更新）
	target     *ValueFunction        // 目标网络（自举目标计算）
	replay     *ReplayBuffer         // 经验回放池
	learnSteps int                   // 已执行的学习步数
}

// DeepQ 深度Q学习策略
// 功能：为每个路口维护独立的在线/目标网络与回放池，
// 以ε-贪婪方式选择相位动作，按小批量回放更新在线网络
// 说明：各路口之间不共享参数
type DeepQ struct {
	alpha            float64 // 学习率
	gamma            float64 // 折扣因子
	epsilon          float64 // 探索率
	epsilonMin       float64 // 探索率下限
	epsilonDecay     float64 // 每回合探索率衰减系数
	batchSize        int     // 小批量大小
	memorySize       int     // 回放池容量
	targetUpdateFreq int     // 目标网络同步周期（学习步数）
	stateDim         int

	junctions map[entity.JunctionID]*deepQState
	engine    *randengine.Engine
}

// NewDeepQ 创建深度Q学习策略
// 参数：rl-学习超参数，stateDim-状态向量维度，seed-随机种子
func NewDeepQ(rl config.RL, stateDim int, seed uint64) *DeepQ {
	return &DeepQ{
		alpha:            rl.LearningRate,
		gamma:            rl.DiscountFactor,
		epsilon:          rl.ExplorationRate,
		epsilonMin:       rl.ExplorationMin,
		epsilonDecay:     rl.ExplorationDecay,
		batchSize:        rl.BatchSize,
		memorySize:       rl.MemorySize,
		targetUpdateFreq: rl.TargetUpdateFreq,
		stateDim:         stateDim,
		junctions:        make(map[entity.JunctionID]*deepQState),
		engine:           randengine.New(seed),
	}
}

// stateOf 获取路口学习状态，不存在时初始化
// 说明：目标网络初始时与在线网络参数一致
func (d *DeepQ) stateOf(id entity.JunctionID) *deepQState {
	s, ok := d.junctions[id]
	if !ok {
		online := NewValueFunction(d.stateDim, deepQHiddenDim, int(entity.NumPhases), d.engine)
		target := NewValueFunction(d.stateDim, deepQHiddenDim, int(entity.NumPhases), d.engine)
		target.CopyFrom(online)
		s = &deepQState{
			online: online,
			target: target,
			replay: NewReplayBuffer(d.memorySize),
		}
		d.junctions[id] = s
	}
	return s
}

// Epsilon 当前探索率
func (d *DeepQ) Epsilon() float64 { return d.epsilon }

// SelectAction ε-贪婪动作选择
// 参数：id-路口编号，state-状态向量
// 返回：选中的相位动作
// 说明：贪婪分支按在线网络取价值最大的动作，
// 并列时取相位枚举序中最靠前者
func (d *DeepQ) SelectAction(id entity.JunctionID, state []float64) entity.Phase {
	if d.engine.PTrue(d.epsilon) {
		return entity.Phase(d.engine.Intn(int(entity.NumPhases)))
	}
	s := d.stateOf(id)
	q := s.online.Forward(mat.NewVecDense(len(state), state))
	best := entity.PhaseGreenNS
	bestValue := q.AtVec(0)
	for _, p := range entity.Phases() {
		if v := q.AtVec(int(p)); v > bestValue {
			best, bestValue = p, v
		}
	}
	return best
}

// Observe 记录一条状态转移经验
// 参数：id-路口编号，exp-经验条目
func (d *DeepQ) Observe(id entity.JunctionID, exp Experience) {
	d.stateOf(id).replay.Append(exp)
}

// Learn 从回放池采样小批量并更新在线网络
// 功能：以目标网络计算自举目标，对在线网络执行一次梯度步，
// 每满targetUpdateFreq个学习步将在线网络参数硬同步到目标网络
// 参数：id-路口编号
// 返回：是否实际执行了更新（回放池不足一个批量时跳过）
func (d *DeepQ) Learn(id entity.JunctionID) bool {
	s := d.stateOf(id)
	if s.replay.Len() < d.batchSize {
		return false
	}
	batch := s.replay.Sample(d.batchSize, d.engine)
	samples := make([]TrainSample, len(batch))
	for i, e := range batch {
		target := e.Reward
		if !e.Terminal {
			q := s.target.Forward(mat.NewVecDense(len(e.Next), e.Next))
			maxNext := q.AtVec(0)
			for j := 1; j < q.Len(); j++ {
				if v := q.AtVec(j); v > maxNext {
					maxNext = v
				}
			}
			target += d.gamma * maxNext
		}
		samples[i] = TrainSample{
			X:      mat.NewVecDense(len(e.State), e.State),
			Action: e.Action,
			Target: target,
		}
	}
	s.online.Step(samples, d.alpha)

	s.learnSteps++
	if d.targetUpdateFreq > 0 && s.learnSteps%d.targetUpdateFreq == 0 {
		s.target.CopyFrom(s.online)
		log.Debugf("junction %s: target network synced at learn step %d", id, s.learnSteps)
	}
	return true
}

// DecayExploration 按衰减系数降低探索率，受下限约束
func (d *DeepQ) DecayExploration() {
	if d.epsilonDecay <= 0 || d.epsilonDecay >= 1 {
		return
	}
	d.epsilon *= d.epsilonDecay
	if d.epsilon < d.epsilonMin {
		d.epsilon = d.epsilonMin
	}
}

// BufferLen 指定路口回放池中的经验条数
func (d *DeepQ) BufferLen(id entity.JunctionID) int {
	if s, ok := d.junctions[id]; ok {
		return s.replay.Len()
	}
	return 0
}

// ExportJunction 导出指定路口的在线网络参数
func (d *DeepQ) ExportJunction(id entity.JunctionID) ([]byte, error) {
	s, ok := d.junctions[id]
	if !ok {
		return nil, fmt.Errorf("policy: junction %s has no learned model", id)
	}
	return s.online.Export()
}

// ImportJunction 恢复指定路口的网络参数
// 说明：目标网络同步为导入的在线网络
func (d *DeepQ) ImportJunction(id entity.JunctionID, data []byte) error {
	s := d.stateOf(id)
	if err := s.online.Import(data); err != nil {
		return err
	}
	s.target.CopyFrom(s.online)
	return nil
}

// SaveFiles 将各路口模型分别写入文件
// 参数：prefix-文件名前缀，实际文件为{prefix}_{路口编号}
func (d *DeepQ) SaveFiles(prefix string) error {
	for id := range d.junctions {
		data, err := d.ExportJunction(id)
		if err != nil {
			return err
		}
		path := fmt.Sprintf("%s_%s", prefix, id)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("policy: write model %s: %w", path, err)
		}
	}
	return nil
}

// LoadFiles 从文件恢复各路口模型
// 参数：prefix-文件名前缀，ids-需要加载的路口
// 返回：成功加载的路口数
// 说明：单个文件缺失或损坏时跳过该路口并保留现有参数，
// 与找不到模型时从零训练的语义一致
func (d *DeepQ) LoadFiles(prefix string, ids []entity.JunctionID) int {
	loaded := 0
	for _, id := range ids {
		path := fmt.Sprintf("%s_%s", prefix, id)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("junction %s: model file %s not loaded: %v", id, path, err)
			continue
		}
		if err := d.ImportJunction(id, data); err != nil {
			log.Warnf("junction %s: model file %s rejected: %v", id, path, err)
			continue
		}
		loaded++
	}
	return loaded
}
