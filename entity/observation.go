package entity

// JunctionID 路口唯一标识
type JunctionID = string

// Observation 单个路口的交通观测
// 功能：存储模拟器每步提供的路口四个方向的交通状态
// 说明：每个方向包含车辆数、平均等待时间（秒）、排队长度（辆）共12个标量；
// 仅在本步的奖励与状态计算中使用，除排队趋势的短滚动历史外不做保留
type Observation struct {
	NorthCount float64 `yaml:"north_count" msgpack:"north_count"` // 北向车辆数
	SouthCount float64 `yaml:"south_count" msgpack:"south_count"` // 南向车辆数
	EastCount  float64 `yaml:"east_count" msgpack:"east_count"`   // 东向车辆数
	WestCount  float64 `yaml:"west_count" msgpack:"west_count"`   // 西向车辆数
	NorthWait  float64 `yaml:"north_wait" msgpack:"north_wait"`   // 北向平均等待时间
	SouthWait  float64 `yaml:"south_wait" msgpack:"south_wait"`   // 南向平均等待时间
	EastWait   float64 `yaml:"east_wait" msgpack:"east_wait"`     // 东向平均等待时间
	WestWait   float64 `yaml:"west_wait" msgpack:"west_wait"`     // 西向平均等待时间
	NorthQueue float64 `yaml:"north_queue" msgpack:"north_queue"` // 北向排队长度
	SouthQueue float64 `yaml:"south_queue" msgpack:"south_queue"` // 南向排队长度
	EastQueue  float64 `yaml:"east_queue" msgpack:"east_queue"`   // 东向排队长度
	WestQueue  float64 `yaml:"west_queue" msgpack:"west_queue"`   // 西向排队长度
}

// NSCount 南北方向车辆数合计
func (o Observation) NSCount() float64 { return o.NorthCount + o.SouthCount }

// EWCount 东西方向车辆数合计
func (o Observation) EWCount() float64 { return o.EastCount + o.WestCount }

// NSQueue 南北方向排队长度合计
func (o Observation) NSQueue() float64 { return o.NorthQueue + o.SouthQueue }

// EWQueue 东西方向排队长度合计
func (o Observation) EWQueue() float64 { return o.EastQueue + o.WestQueue }

// TotalCount 全部方向车辆数合计
func (o Observation) TotalCount() float64 { return o.NSCount() + o.EWCount() }

// TotalQueue 全部方向排队长度合计
func (o Observation) TotalQueue() float64 { return o.NSQueue() + o.EWQueue() }

// TotalWait 全部方向等待时间合计
func (o Observation) TotalWait() float64 {
	return o.NorthWait + o.SouthWait + o.EastWait + o.WestWait
}

// Moving 推断为在行驶中的车辆数
// 说明：车辆数与排队长度之差，下限为0
func (o Observation) Moving() float64 {
	if m := o.TotalCount() - o.TotalQueue(); m > 0 {
		return m
	}
	return 0
}

// ObservationFromMap 从模拟器的字段映射构造观测
// 功能：按{north,south,east,west}_{count,wait,queue}的键名读取12个数值字段
// 说明：缺失的键按0处理，与零流量默认状态一致
func ObservationFromMap(m map[string]float64) Observation {
	return Observation{
		NorthCount: m["north_count"],
		SouthCount: m["south_count"],
		EastCount:  m["east_count"],
		WestCount:  m["west_count"],
		NorthWait:  m["north_wait"],
		SouthWait:  m["south_wait"],
		EastWait:   m["east_wait"],
		WestWait:   m["west_wait"],
		NorthQueue: m["north_queue"],
		SouthQueue: m["south_queue"],
		EastQueue:  m["east_queue"],
		WestQueue:  m["west_queue"],
	}
}

// ToMap 将观测转换为模拟器的字段映射
func (o Observation) ToMap() map[string]float64 {
	return map[string]float64{
		"north_count": o.NorthCount,
		"south_count": o.SouthCount,
		"east_count":  o.EastCount,
		"west_count":  o.WestCount,
		"north_wait":  o.NorthWait,
		"south_wait":  o.SouthWait,
		"east_wait":   o.EastWait,
		"west_wait":   o.WestWait,
		"north_queue": o.NorthQueue,
		"south_queue": o.SouthQueue,
		"east_queue":  o.EastQueue,
		"west_queue":  o.WestQueue,
	}
}
