package netchan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.fiblab.net/sim/lightctl/netchan"
	"git.fiblab.net/sim/lightctl/utils/config"
)

func TestWired(t *testing.T) {
	w := netchan.NewWired(0.02)
	for i := 0; i < 100; i++ {
		sample := w.Sample(float64(i) / 100)
		// 有线信道时延恒定且从不丢包
		assert.Equal(t, 0.02, sample.Delay)
		assert.False(t, sample.Drop)
	}
}

func TestWirelessDelay(t *testing.T) {
	w := netchan.NewWireless(config.Channel{
		BaseLatency:       0.05,
		ComputationFactor: 0.1,
		Jitter:            0.02,
	}, 42)

	// 空闲路口只剩基础时延
	assert.InDelta(t, 0.05, w.Sample(0).Delay, 1e-9)

	// 饱和路口：基础 + 计算项 + [0, 抖动)的干扰项
	for i := 0; i < 100; i++ {
		d := w.Sample(1).Delay
		assert.GreaterOrEqual(t, d, 0.15)
		assert.Less(t, d, 0.17)
	}
}

func TestWirelessDrop(t *testing.T) {
	w := netchan.NewWireless(config.Channel{DropProb: 1}, 42)
	for i := 0; i < 100; i++ {
		assert.True(t, w.Sample(0.5).Drop)
	}

	w.DropProb = 0
	for i := 0; i < 100; i++ {
		assert.False(t, w.Sample(0.5).Drop)
	}
}

func TestWirelessTrainingMode(t *testing.T) {
	w := netchan.NewWireless(config.Channel{
		BaseLatency:       0.5,
		ComputationFactor: 0.5,
		DropProb:          0.5,
		Training:          true,
	}, 42)
	assert.Equal(t, netchan.ModeTraining, w.Mode)

	drops := 0
	for i := 0; i < 1000; i++ {
		sample := w.Sample(1)
		// 训练模式时延缩放后截断到上限
		assert.LessOrEqual(t, sample.Delay, 0.1)
		if sample.Drop {
			drops++
		}
	}
	// 训练模式丢包概率被压到不高于0.001
	assert.Less(t, drops, 20)
}

func TestFactory(t *testing.T) {
	c := netchan.New(config.Channel{Variant: "wireless"}, 1)
	assert.IsType(t, &netchan.Wireless{}, c)

	c = netchan.New(config.Channel{Latency: 0.01}, 1)
	assert.IsType(t, &netchan.Wired{}, c)
}
