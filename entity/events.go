package entity

import "github.com/sirupsen/logrus"

// log 实体模块的日志记录器
var log = logrus.WithField("module", "entity")

// logSink 基于logrus的默认事件接收器
// 功能：将控制器事件输出为结构化日志
// 说明：异常按warn级别输出并计数，信道采样与奖励按debug级别输出
type logSink struct {
	anomalies int // 可恢复异常计数
}

// NewLogSink 创建默认的日志事件接收器
func NewLogSink() IEventSink {
	return &logSink{}
}

func (s *logSink) RecoverableAnomaly(id JunctionID, what string) {
	s.anomalies++
	log.Warnf("junction %s: recoverable anomaly: %s (total %d)", id, what, s.anomalies)
}

func (s *logSink) ChannelSampled(id JunctionID, sample ChannelSample) {
	if sample.Drop {
		// 丢包是设计内的降级路径，不作为故障记录
		log.Debugf("junction %s: channel sample dropped", id)
		return
	}
	log.Debugf("junction %s: channel delay %.4fs", id, sample.Delay)
}

func (s *logSink) RewardComputed(id JunctionID, reward float64) {
	log.Debugf("junction %s: reward %.3f", id, reward)
}

// NopSink 空事件接收器
// 说明：不需要事件上报时使用
type NopSink struct{}

func (NopSink) RecoverableAnomaly(id JunctionID, what string) {}
func (NopSink) ChannelSampled(id JunctionID, sample ChannelSample) {}
func (NopSink) RewardComputed(id JunctionID, reward float64) {}
