package entity

import "strings"

// Phase 信号灯相位
// 功能：表示路口信号灯控制循环中的一个相位
// 说明：控制循环固定为四个相位：南北绿灯、南北黄灯、东西绿灯、东西黄灯，
// 按此顺序循环切换
type Phase int32

const (
	PhaseGreenNS  Phase = iota // 南北绿灯（东西红灯）
	PhaseYellowNS              // 南北黄灯（过渡到东西绿灯）
	PhaseGreenEW               // 东西绿灯（南北红灯）
	PhaseYellowEW              // 东西黄灯（过渡到南北绿灯）

	NumPhases = 4 // 相位总数
)

// phaseCodes 各相位对应的信号灯状态编码
// 说明：与微观模拟器的red-yellow-green状态字符串格式一致，
// 字符集为{G,g,Y,y,R,r}，四个字符分别对应四组信号灯
var phaseCodes = [NumPhases]string{"GrYr", "yrGr", "rGry", "ryrG"}

// Phases 规范相位序列
// 功能：返回按循环顺序排列的全部相位
// 说明：同时也是学习类控制器的动作空间，动作枚举顺序即此顺序
func Phases() [NumPhases]Phase {
	return [NumPhases]Phase{PhaseGreenNS, PhaseYellowNS, PhaseGreenEW, PhaseYellowEW}
}

// Next 获取循环后继相位
func (p Phase) Next() Phase {
	return (p + 1) % NumPhases
}

// IsYellow 判断是否为黄灯相位
// 说明：黄灯相位一旦进入必须走满全程，是全系统唯一的硬安全不变量
func (p Phase) IsYellow() bool {
	return p == PhaseYellowNS || p == PhaseYellowEW
}

// IsGreen 判断是否为绿灯相位
func (p Phase) IsGreen() bool {
	return p == PhaseGreenNS || p == PhaseGreenEW
}

// Valid 判断相位值是否在规范相位集内
// 说明：用于校验反序列化或查表得到的动作值
func (p Phase) Valid() bool {
	return p >= 0 && p < NumPhases
}

// Code 获取相位的信号灯状态编码
// 返回：四字符的规范编码，非法相位返回第一个规范相位的编码
func (p Phase) Code() string {
	if !p.Valid() {
		return phaseCodes[PhaseGreenNS]
	}
	return phaseCodes[p]
}

// String 获取相位的字符串表示
func (p Phase) String() string {
	return p.Code()
}

// PhaseFromCode 根据信号灯状态编码查找相位
// 参数：code-四字符规范编码
// 返回：相位与是否找到
func PhaseFromCode(code string) (Phase, bool) {
	for i, c := range phaseCodes {
		if c == code {
			return Phase(i), true
		}
	}
	return PhaseGreenNS, false
}

// AdjustToLength 将相位编码调整到模拟器期望的信号灯组数量
// 功能：按重复或截断的方式调整编码长度，不做语义上的重新解释
// 参数：code-规范相位编码，length-模拟器期望的长度
// 返回：调整后的编码
// 算法说明：
// 1. 长度相同或未知（<=0）时原样返回
// 2. 不足时重复整个编码直到覆盖期望长度，再截断
// 3. 超出时直接截断
func AdjustToLength(code string, length int) string {
	if length <= 0 || len(code) == length {
		return code
	}
	if len(code) < length {
		code = strings.Repeat(code, length/len(code)+1)
	}
	return code[:length]
}
