// 提供DQN使用的参数化价值函数
// 两层ReLU隐层加线性输出的多层感知机，输出每个规范相位的动作价值；
// 仅实现DQN所需的前向计算与针对所采取动作的均方误差梯度步，
// 不是通用的神经网络训练库
package policy

import (
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"git.fiblab.net/sim/lightctl/utils/randengine"
)

// ValueFunction 参数化动作价值函数
// 功能：将状态向量映射为各动作的期望回报估计
// 说明：结构为 输入-隐层(ReLU)-隐层(ReLU)-线性输出
type ValueFunction struct {
	inDim, hidDim, outDim int

	w1, w2, w3 *mat.Dense    // 各层权重
	b1, b2, b3 *mat.VecDense // 各层偏置
}

// NewValueFunction 创建并随机初始化价值函数
// 参数：inDim-输入维度，hidDim-隐层宽度，outDim-动作数，engine-随机引擎
// 说明：权重按He初始化（标准差sqrt(2/fan_in)的正态分布），偏置为0
func NewValueFunction(inDim, hidDim, outDim int, engine *randengine.Engine) *ValueFunction {
	f := &ValueFunction{
		inDim:  inDim,
		hidDim: hidDim,
		outDim: outDim,
		w1:     mat.NewDense(hidDim, inDim, nil),
		w2:     mat.NewDense(hidDim, hidDim, nil),
		w3:     mat.NewDense(outDim, hidDim, nil),
		b1:     mat.NewVecDense(hidDim, nil),
		b2:     mat.NewVecDense(hidDim, nil),
		b3:     mat.NewVecDense(outDim, nil),
	}
	initHe(f.w1, inDim, engine)
	initHe(f.w2, hidDim, engine)
	initHe(f.w3, hidDim, engine)
	return f
}

func initHe(w *mat.Dense, fanIn int, engine *randengine.Engine) {
	std := math.Sqrt(2 / float64(fanIn))
	raw := w.RawMatrix()
	for i := range raw.Data {
		raw.Data[i] = engine.NormFloat64() * std
	}
}

// Forward 前向计算
// 参数：x-状态向量
// 返回：各动作的价值估计
func (f *ValueFunction) Forward(x *mat.VecDense) *mat.VecDense {
	_, _, y := f.forward(x)
	return y
}

// forward 前向计算并保留隐层激活值（反向传播需要）
func (f *ValueFunction) forward(x *mat.VecDense) (h1, h2, y *mat.VecDense) {
	h1 = mat.NewVecDense(f.hidDim, nil)
	h1.MulVec(f.w1, x)
	h1.AddVec(h1, f.b1)
	relu(h1)

	h2 = mat.NewVecDense(f.hidDim, nil)
	h2.MulVec(f.w2, h1)
	h2.AddVec(h2, f.b2)
	relu(h2)

	y = mat.NewVecDense(f.outDim, nil)
	y.MulVec(f.w3, h2)
	y.AddVec(y, f.b3)
	return
}

func relu(v *mat.VecDense) {
	raw := v.RawVector()
	for i := 0; i < v.Len(); i++ {
		if raw.Data[i*raw.Inc] < 0 {
			raw.Data[i*raw.Inc] = 0
		}
	}
}

// TrainSample 一条训练样本
type TrainSample struct {
	X      *mat.VecDense // 状态向量
	Action int           // 采取的动作
	Target float64       // 该动作的目标价值
}

// Step 对一个小批量执行一次梯度下降
// 功能：最小化所采取动作的预测价值与目标价值间的均方误差
// 参数：batch-小批量样本，lr-学习率
// 算法说明：
// 1. 对每条样本前向计算，仅所采取动作的输出参与损失，
//    其余动作输出梯度为0
// 2. 反向传播累积各层梯度
// 3. 按批量均值更新参数
func (f *ValueFunction) Step(batch []TrainSample, lr float64) {
	if len(batch) == 0 {
		return
	}
	gw1 := mat.NewDense(f.hidDim, f.inDim, nil)
	gw2 := mat.NewDense(f.hidDim, f.hidDim, nil)
	gw3 := mat.NewDense(f.outDim, f.hidDim, nil)
	gb1 := mat.NewVecDense(f.hidDim, nil)
	gb2 := mat.NewVecDense(f.hidDim, nil)
	gb3 := mat.NewVecDense(f.outDim, nil)

	outer := mat.NewDense(f.outDim, f.hidDim, nil)
	hidOuter := mat.NewDense(f.hidDim, f.hidDim, nil)
	inOuter := mat.NewDense(f.hidDim, f.inDim, nil)
	gy := mat.NewVecDense(f.outDim, nil)
	gh1 := mat.NewVecDense(f.hidDim, nil)
	gh2 := mat.NewVecDense(f.hidDim, nil)

	for _, s := range batch {
		h1, h2, y := f.forward(s.X)

		// 输出层梯度：仅所采取动作有误差
		gy.Zero()
		gy.SetVec(s.Action, y.AtVec(s.Action)-s.Target)

		outer.Outer(1, gy, h2)
		gw3.Add(gw3, outer)
		gb3.AddVec(gb3, gy)

		gh2.MulVec(f.w3.T(), gy)
		reluGrad(gh2, h2)
		hidOuter.Outer(1, gh2, h1)
		gw2.Add(gw2, hidOuter)
		gb2.AddVec(gb2, gh2)

		gh1.MulVec(f.w2.T(), gh2)
		reluGrad(gh1, h1)
		inOuter.Outer(1, gh1, s.X)
		gw1.Add(gw1, inOuter)
		gb1.AddVec(gb1, gh1)
	}

	scale := lr / float64(len(batch))
	gw1.Scale(scale, gw1)
	gw2.Scale(scale, gw2)
	gw3.Scale(scale, gw3)
	gb1.ScaleVec(scale, gb1)
	gb2.ScaleVec(scale, gb2)
	gb3.ScaleVec(scale, gb3)

	f.w1.Sub(f.w1, gw1)
	f.w2.Sub(f.w2, gw2)
	f.w3.Sub(f.w3, gw3)
	f.b1.SubVec(f.b1, gb1)
	f.b2.SubVec(f.b2, gb2)
	f.b3.SubVec(f.b3, gb3)
}

// reluGrad 将ReLU失活位置的梯度清零
// 参数：g-待处理梯度，h-对应的激活值
func reluGrad(g, h *mat.VecDense) {
	for i := 0; i < g.Len(); i++ {
		if h.AtVec(i) <= 0 {
			g.SetVec(i, 0)
		}
	}
}

// CopyFrom 从另一价值函数逐参数复制
// 说明：用于目标网络的硬同步，两个网络结构必须一致
func (f *ValueFunction) CopyFrom(o *ValueFunction) {
	f.w1.Copy(o.w1)
	f.w2.Copy(o.w2)
	f.w3.Copy(o.w3)
	f.b1.CopyVec(o.b1)
	f.b2.CopyVec(o.b2)
	f.b3.CopyVec(o.b3)
}

// valueFnSnapshot 价值函数导出格式
type valueFnSnapshot struct {
	InDim  int       `msgpack:"in_dim"`
	HidDim int       `msgpack:"hid_dim"`
	OutDim int       `msgpack:"out_dim"`
	W1     []float64 `msgpack:"w1"`
	W2     []float64 `msgpack:"w2"`
	W3     []float64 `msgpack:"w3"`
	B1     []float64 `msgpack:"b1"`
	B2     []float64 `msgpack:"b2"`
	B3     []float64 `msgpack:"b3"`
}

// Export 将参数导出为不透明的序列化数据
func (f *ValueFunction) Export() ([]byte, error) {
	return msgpack.Marshal(valueFnSnapshot{
		InDim:  f.inDim,
		HidDim: f.hidDim,
		OutDim: f.outDim,
		W1:     append([]float64(nil), f.w1.RawMatrix().Data...),
		W2:     append([]float64(nil), f.w2.RawMatrix().Data...),
		W3:     append([]float64(nil), f.w3.RawMatrix().Data...),
		B1:     append([]float64(nil), f.b1.RawVector().Data...),
		B2:     append([]float64(nil), f.b2.RawVector().Data...),
		B3:     append([]float64(nil), f.b3.RawVector().Data...),
	})
}

// Import 从序列化数据恢复参数
// 说明：维度与当前网络不一致时拒绝加载
func (f *ValueFunction) Import(data []byte) error {
	var snap valueFnSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("policy: unmarshal value function: %w", err)
	}
	if snap.InDim != f.inDim || snap.HidDim != f.hidDim || snap.OutDim != f.outDim {
		return fmt.Errorf("policy: value function shape mismatch: got %d-%d-%d, want %d-%d-%d",
			snap.InDim, snap.HidDim, snap.OutDim, f.inDim, f.hidDim, f.outDim)
	}
	for _, c := range []struct {
		name string
		got  int
		want int
	}{
		{"w1", len(snap.W1), f.hidDim * f.inDim},
		{"w2", len(snap.W2), f.hidDim * f.hidDim},
		{"w3", len(snap.W3), f.outDim * f.hidDim},
		{"b1", len(snap.B1), f.hidDim},
		{"b2", len(snap.B2), f.hidDim},
		{"b3", len(snap.B3), f.outDim},
	} {
		if c.got != c.want {
			return fmt.Errorf("policy: value function %s length mismatch: got %d, want %d",
				c.name, c.got, c.want)
		}
	}
	f.w1 = mat.NewDense(f.hidDim, f.inDim, snap.W1)
	f.w2 = mat.NewDense(f.hidDim, f.hidDim, snap.W2)
	f.w3 = mat.NewDense(f.outDim, f.hidDim, snap.W3)
	f.b1 = mat.NewVecDense(f.hidDim, snap.B1)
	f.b2 = mat.NewVecDense(f.hidDim, snap.B2)
	f.b3 = mat.NewVecDense(f.outDim, snap.B3)
	return nil
}
