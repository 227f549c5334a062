package controller

import (
	"git.fiblab.net/sim/lightctl/entity"
	"git.fiblab.net/sim/lightctl/utils/container"
)

// 车队检测参数
const (
	platoonWindowSize  = 8   // 排队趋势滚动窗口长度
	platoonMinInterval = 1.0 // 相邻采样的最小时间间隔（秒）
	platoonMinSize     = 2.0 // 构成车队的最小排队车辆数
)

// platoonSample 一次排队长度采样
type platoonSample struct {
	t     float64 // 采样时刻（秒）
	queue float64 // 排队长度（辆）
}

// platoonKey 按路口与方向索引滚动窗口
type platoonKey struct {
	id entity.JunctionID
	ns bool // true为南北方向
}

// PlatoonDetector 车队检测器
// 功能：以不小于1秒的节奏记录各方向排队长度，
// 当排队超过最小规模且在相邻采样间缩小时判定为正在通过的车队
// 说明：排队缩小意味着车辆成簇驶出停车线，延长绿灯可整队放空
type PlatoonDetector struct {
	windows map[platoonKey]*container.Window[platoonSample]
}

// NewPlatoonDetector 创建车队检测器
func NewPlatoonDetector() *PlatoonDetector {
	return &PlatoonDetector{
		windows: make(map[platoonKey]*container.Window[platoonSample]),
	}
}

func (d *PlatoonDetector) windowOf(key platoonKey) *container.Window[platoonSample] {
	w, ok := d.windows[key]
	if !ok {
		w = container.NewWindow[platoonSample](platoonWindowSize)
		d.windows[key] = w
	}
	return w
}

// Observe 记录一次排队长度采样
// 说明：距上次采样不足最小间隔时丢弃，保证趋势比较跨越真实时间
func (d *PlatoonDetector) Observe(id entity.JunctionID, ns bool, now, queue float64) {
	w := d.windowOf(platoonKey{id: id, ns: ns})
	if last, ok := w.Last(); ok && now-last.t < platoonMinInterval {
		return
	}
	w.Push(platoonSample{t: now, queue: queue})
}

// Active 判断指定方向当前是否有车队正在通过
// 返回：车队规模（辆）与是否检测到车队
// 算法说明：取窗口内最近两次采样，最近一次排队不小于最小规模
// 且严格小于前一次（排队正在缩小）时判定为车队，
// 规模取缩小前的排队长度
func (d *PlatoonDetector) Active(id entity.JunctionID, ns bool) (size float64, ok bool) {
	w, found := d.windows[platoonKey{id: id, ns: ns}]
	if !found || w.Len() < 2 {
		return 0, false
	}
	prev, cur := w.At(w.Len()-2), w.At(w.Len()-1)
	if cur.queue >= platoonMinSize && cur.queue < prev.queue {
		return prev.queue, true
	}
	return 0, false
}
