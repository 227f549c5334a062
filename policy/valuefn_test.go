package policy_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"git.fiblab.net/sim/lightctl/policy"
	"git.fiblab.net/sim/lightctl/utils/randengine"
)

func TestValueFunctionForwardShape(t *testing.T) {
	f := policy.NewValueFunction(12, 24, 4, randengine.New(1))
	x := mat.NewVecDense(12, nil)
	y := f.Forward(x)
	assert.Equal(t, 4, y.Len())
}

func TestValueFunctionLearning(t *testing.T) {
	f := policy.NewValueFunction(4, 24, 4, randengine.New(1))
	x := mat.NewVecDense(4, []float64{0.5, 0.2, 0.8, 0.1})

	errorOf := func() float64 {
		return math.Abs(f.Forward(x).AtVec(2) - 1.0)
	}
	before := errorOf()
	batch := []policy.TrainSample{{X: x, Action: 2, Target: 1.0}}
	for i := 0; i < 500; i++ {
		f.Step(batch, 0.05)
	}

	// 针对所采取动作的均方误差随梯度步下降
	assert.Less(t, errorOf(), before)
	assert.Less(t, errorOf(), 0.05)
}

func TestValueFunctionGradientIsolation(t *testing.T) {
	f := policy.NewValueFunction(4, 24, 4, randengine.New(3))
	x := mat.NewVecDense(4, []float64{1, 0, 0, 1})

	// 与当前预测一致的目标不产生梯度
	current := f.Forward(x).AtVec(1)
	snapshot := f.Forward(x)
	f.Step([]policy.TrainSample{{X: x, Action: 1, Target: current}}, 0.1)
	after := f.Forward(x)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, snapshot.AtVec(i), after.AtVec(i), 1e-9)
	}
}

func TestValueFunctionCopy(t *testing.T) {
	engine := randengine.New(7)
	online := policy.NewValueFunction(4, 24, 4, engine)
	target := policy.NewValueFunction(4, 24, 4, engine)
	x := mat.NewVecDense(4, []float64{0.3, 0.6, 0.1, 0.9})

	target.CopyFrom(online)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, online.Forward(x).AtVec(i), target.Forward(x).AtVec(i), 1e-12)
	}

	// 同步后继续训练在线网络，目标网络保持滞后
	f := []policy.TrainSample{{X: x, Action: 0, Target: 5}}
	for i := 0; i < 50; i++ {
		online.Step(f, 0.05)
	}
	assert.Greater(t, math.Abs(online.Forward(x).AtVec(0)-target.Forward(x).AtVec(0)), 1e-6)
}

func TestValueFunctionExportImport(t *testing.T) {
	f := policy.NewValueFunction(4, 24, 4, randengine.New(11))
	x := mat.NewVecDense(4, []float64{0.2, 0.4, 0.6, 0.8})
	data, err := f.Export()
	assert.Nil(t, err)

	g := policy.NewValueFunction(4, 24, 4, randengine.New(12))
	assert.Nil(t, g.Import(data))
	for i := 0; i < 4; i++ {
		assert.InDelta(t, f.Forward(x).AtVec(i), g.Forward(x).AtVec(i), 1e-12)
	}

	// 结构不一致的参数拒绝加载
	h := policy.NewValueFunction(12, 24, 4, randengine.New(13))
	assert.NotNil(t, h.Import(data))
}

func TestValueFunctionImportTruncated(t *testing.T) {
	f := policy.NewValueFunction(4, 24, 4, randengine.New(14))
	before := f.Forward(mat.NewVecDense(4, []float64{1, 0, 0, 0})).AtVec(0)

	// 维度字段一致但权重数据长度不符的损坏数据报错而不崩溃
	data, err := msgpack.Marshal(map[string]interface{}{
		"in_dim":  4,
		"hid_dim": 24,
		"out_dim": 4,
		"w1":      []float64{1},
	})
	assert.Nil(t, err)
	assert.NotPanics(t, func() {
		assert.NotNil(t, f.Import(data))
	})

	// 加载失败时网络参数保持不变
	assert.InDelta(t, before, f.Forward(mat.NewVecDense(4, []float64{1, 0, 0, 0})).AtVec(0), 1e-12)
}
