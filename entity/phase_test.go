package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.fiblab.net/sim/lightctl/entity"
)

func TestPhaseCycle(t *testing.T) {
	// 南北绿->南北黄->东西绿->东西黄->南北绿
	assert.Equal(t, entity.PhaseYellowNS, entity.PhaseGreenNS.Next())
	assert.Equal(t, entity.PhaseGreenEW, entity.PhaseYellowNS.Next())
	assert.Equal(t, entity.PhaseYellowEW, entity.PhaseGreenEW.Next())
	assert.Equal(t, entity.PhaseGreenNS, entity.PhaseYellowEW.Next())
}

func TestPhaseKind(t *testing.T) {
	assert.True(t, entity.PhaseGreenNS.IsGreen())
	assert.True(t, entity.PhaseGreenEW.IsGreen())
	assert.True(t, entity.PhaseYellowNS.IsYellow())
	assert.True(t, entity.PhaseYellowEW.IsYellow())
	assert.False(t, entity.PhaseGreenNS.IsYellow())
}

func TestPhaseCode(t *testing.T) {
	assert.Equal(t, "GrYr", entity.PhaseGreenNS.Code())
	assert.Equal(t, "ryrG", entity.PhaseYellowEW.Code())

	p, ok := entity.PhaseFromCode("rGry")
	assert.True(t, ok)
	assert.Equal(t, entity.PhaseGreenEW, p)

	_, ok = entity.PhaseFromCode("GGGG")
	assert.False(t, ok)

	// 非法相位退化为第一个规范编码
	assert.Equal(t, "GrYr", entity.Phase(99).Code())
	assert.False(t, entity.Phase(99).Valid())
}

func TestAdjustToLength(t *testing.T) {
	// 灯组数量与规范编码不一致时重复/截断，不做语义重排
	assert.Equal(t, "GrYr", entity.AdjustToLength("GrYr", 4))
	assert.Equal(t, "Gr", entity.AdjustToLength("GrYr", 2))
	assert.Equal(t, "GrYrGr", entity.AdjustToLength("GrYr", 6))
	assert.Equal(t, "GrYrGrYr", entity.AdjustToLength("GrYr", 8))
}

func TestObservationAggregates(t *testing.T) {
	o := entity.Observation{
		NorthCount: 4, SouthCount: 6, EastCount: 3, WestCount: 2,
		NorthQueue: 2, SouthQueue: 1, EastQueue: 3, WestQueue: 0,
		NorthWait: 5, SouthWait: 0, EastWait: 10, WestWait: 0,
	}
	assert.Equal(t, 10.0, o.NSCount())
	assert.Equal(t, 5.0, o.EWCount())
	assert.Equal(t, 3.0, o.NSQueue())
	assert.Equal(t, 3.0, o.EWQueue())
	assert.Equal(t, 15.0, o.TotalCount())
	assert.Equal(t, 15.0, o.TotalWait())
	// 行驶中车辆 = max(0, 总数-排队)
	assert.Equal(t, 9.0, o.Moving())
}

func TestObservationMapRoundTrip(t *testing.T) {
	o := entity.Observation{NorthCount: 1, SouthWait: 2, EastQueue: 3, WestCount: 4}
	got := entity.ObservationFromMap(o.ToMap())
	assert.Equal(t, o, got)
}
