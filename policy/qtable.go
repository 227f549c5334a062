// 提供表格Q学习策略
// 按路口维护稀疏的(状态,动作)->价值映射，epsilon-greedy选择动作，
// Bellman规则更新价值
package policy

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/obsmodel"
	"git.fiblab.net/sim/lightctl/utils/config"
	"git.fiblab.net/sim/lightctl/utils/randengine"
)

// qKey Q表的键
type qKey struct {
	State  obsmodel.DiscreteState
	Action entity.Phase
}

// QTable 表格Q学习策略
// 功能：维护每个路口独立的稀疏Q表，提供动作选择与价值更新
// 说明：未见过的(状态,动作)对默认价值为0；各路口的子状态按路口ID隔离，
// 互不污染
type QTable struct {
	Alpha   float64 // 学习率
	Gamma   float64 // 折扣因子
	Epsilon float64 // 探索率

	EpsilonMin   float64 // 探索率下限
	EpsilonDecay float64 // 探索率衰减系数（0为不衰减）

	stateBins int // 离散化桶数（随模型一同导出）

	tables map[entity.JunctionID]map[qKey]float64
	engine *randengine.Engine

	explorationCount  int // 探索动作计数
	exploitationCount int // 利用动作计数
}

// NewQTable 创建表格Q学习策略
// 参数：c-强化学习配置，seed-随机种子
func NewQTable(c config.RL, seed uint64) *QTable {
	return &QTable{
		Alpha:        c.LearningRate,
		Gamma:        c.DiscountFactor,
		Epsilon:      c.ExplorationRate,
		EpsilonMin:   c.ExplorationMin,
		EpsilonDecay: c.ExplorationDecay,
		stateBins:    c.StateBins,
		tables:       make(map[entity.JunctionID]map[qKey]float64),
		engine:       randengine.New(seed),
	}
}

// Value 获取(状态,动作)对的价值
// 说明：未见过的对返回默认值0，不会在表中创建条目
func (q *QTable) Value(id entity.JunctionID, s obsmodel.DiscreteState, a entity.Phase) float64 {
	return q.tables[id][qKey{State: s, Action: a}]
}

// SelectAction 按epsilon-greedy策略选择动作
// 算法说明：
// 1. 以epsilon概率在规范相位集中均匀随机选择（探索）
// 2. 否则选择当前状态下价值最大的动作（利用），
//    并列时取枚举顺序在前者；全部未见过时退化为第一个动作，
//    这是有意的确定性默认行为，不是随机行为
func (q *QTable) SelectAction(id entity.JunctionID, s obsmodel.DiscreteState) entity.Phase {
	phases := entity.Phases()
	if q.engine.PTrue(q.Epsilon) {
		q.explorationCount++
		return phases[q.engine.Intn(len(phases))]
	}
	q.exploitationCount++
	best := phases[0]
	bestValue := q.Value(id, s, best)
	for _, a := range phases[1:] {
		if v := q.Value(id, s, a); v > bestValue {
			best, bestValue = a, v
		}
	}
	return best
}

// Update 按Q学习规则更新价值
// 功能：Q(s,a) += alpha * (reward + gamma * max_a' Q(s',a') - Q(s,a))
// 说明：从未见过的(s',a')对取默认值0，全负价值的后继状态取其真实最大值
func (q *QTable) Update(id entity.JunctionID, s obsmodel.DiscreteState, a entity.Phase, reward float64, next obsmodel.DiscreteState) {
	table, ok := q.tables[id]
	if !ok {
		table = make(map[qKey]float64)
		q.tables[id] = table
	}
	phases := entity.Phases()
	maxNext := q.Value(id, next, phases[0])
	for _, na := range phases[1:] {
		if v := q.Value(id, next, na); v > maxNext {
			maxNext = v
		}
	}
	key := qKey{State: s, Action: a}
	table[key] += q.Alpha * (reward + q.Gamma*maxNext - table[key])
}

// DecayExploration 衰减探索率
// 说明：每个学习回合结束后调用，按衰减系数收缩到下限为止
func (q *QTable) DecayExploration() {
	if q.EpsilonDecay <= 0 {
		return
	}
	q.Epsilon *= q.EpsilonDecay
	if q.Epsilon < q.EpsilonMin {
		q.Epsilon = q.EpsilonMin
	}
}

// Entries 获取全部路口Q表条目总数
func (q *QTable) Entries() int {
	total := 0
	for _, t := range q.tables {
		total += len(t)
	}
	return total
}

// UniqueStates 获取出现过的不同状态数
func (q *QTable) UniqueStates() int {
	seen := make(map[obsmodel.DiscreteState]struct{})
	for _, t := range q.tables {
		for k := range t {
			seen[k.State] = struct{}{}
		}
	}
	return len(seen)
}

// ExplorationStats 获取探索/利用计数
func (q *QTable) ExplorationStats() (exploration, exploitation int) {
	return q.explorationCount, q.exploitationCount
}

// qTableSnapshot Q表导出格式
// 说明：状态与动作均编码为字符串键，动作为规范相位编码
type qTableSnapshot struct {
	Tables map[string]map[string]map[interface{}]float64 `msgpack:"q_tables"` // 路口->状态键->动作编码->价值
	Alpha  float64                                       `msgpack:"learning_rate"`
	Gamma  float64                                       `msgpack:"discount_factor"`
	Eps    float64                                       `msgpack:"exploration_rate"`
	Bins   int                                           `msgpack:"state_bins"`
	NExplo int                                           `msgpack:"exploration_count"`
	NExplt int                                           `msgpack:"exploitation_count"`
}

// Export 将Q表与超参数、计数器导出为不透明的序列化数据
func (q *QTable) Export() ([]byte, error) {
	snap := qTableSnapshot{
		Tables: make(map[string]map[string]map[interface{}]float64, len(q.tables)),
		Alpha:  q.Alpha,
		Gamma:  q.Gamma,
		Eps:    q.Epsilon,
		Bins:   q.stateBins,
		NExplo: q.explorationCount,
		NExplt: q.exploitationCount,
	}
	for id, table := range q.tables {
		byState := make(map[string]map[interface{}]float64)
		for k, v := range table {
			stateKey := k.State.Key()
			if _, ok := byState[stateKey]; !ok {
				byState[stateKey] = make(map[interface{}]float64)
			}
			byState[stateKey][k.Action.Code()] = v
		}
		snap.Tables[id] = byState
	}
	return msgpack.Marshal(snap)
}

// Import 从序列化数据恢复Q表
// 功能：解析导出数据并重建各路口Q表
// 说明：动作键必须是规范相位编码的字符串，否则整体拒绝加载；
// 调用方在加载失败时应继续使用空表运行
func (q *QTable) Import(data []byte) error {
	var snap qTableSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("policy: unmarshal q-table: %w", err)
	}
	tables := make(map[entity.JunctionID]map[qKey]float64, len(snap.Tables))
	for id, byState := range snap.Tables {
		table := make(map[qKey]float64)
		for stateKey, byAction := range byState {
			state, err := obsmodel.ParseDiscreteState(stateKey)
			if err != nil {
				return err
			}
			for actionKey, v := range byAction {
				code, ok := actionKey.(string)
				if !ok {
					return fmt.Errorf("policy: non-string action %v in q-table for junction %s", actionKey, id)
				}
				action, ok := entity.PhaseFromCode(code)
				if !ok {
					return fmt.Errorf("policy: unknown action %q in q-table for junction %s", code, id)
				}
				table[qKey{State: state, Action: action}] = v
			}
		}
		tables[id] = table
	}
	q.tables = tables
	q.Alpha = snap.Alpha
	q.Gamma = snap.Gamma
	q.Epsilon = snap.Eps
	q.stateBins = snap.Bins
	q.explorationCount = snap.NExplo
	q.exploitationCount = snap.NExplt
	return nil
}

// SaveFile 将Q表保存到文件
func (q *QTable) SaveFile(path string) error {
	data, err := q.Export()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile 从文件加载Q表
// 返回：是否加载成功
// 说明：文件缺失或数据损坏时返回false并保持现有表不变，
// 控制器继续以空表运行而不是构造失败
func (q *QTable) LoadFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("q-table file %s not loaded: %v", path, err)
		return false
	}
	if err := q.Import(data); err != nil {
		log.Warnf("q-table file %s rejected: %v", path, err)
		return false
	}
	log.Infof("q-table loaded from %s (%d entries)", path, q.Entries())
	return true
}
