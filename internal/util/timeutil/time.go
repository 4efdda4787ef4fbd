// Package timeutil 提供时间戳相关的工具函数。
// 实时行情模式下用于为到达的消息打高精度时间戳，以及在 Unix 毫秒/纳秒
// 与 time.Time 之间转换（交易所 K 线时间戳通常为毫秒）。
package timeutil

import (
	"time"
)

var (
	// baseTime 基准时间点（包含单调时钟读数）
	baseTime = time.Now()
	// baseUnixNs 基准时间点对应的 Unix 纳秒时间戳
	baseUnixNs = baseTime.UnixNano()
)

// NowNano 获取当前时间的纳秒时间戳
// 采用“单调时钟 + 启动时 Unix 时间”组合，系统时间被 NTP 或手动调整时
// 时间差仍保持单调，不会污染消息到达顺序。
func NowNano() int64 {
	return baseUnixNs + time.Since(baseTime).Nanoseconds()
}

// NanoToTime 将纳秒时间戳转换为 time.Time
func NanoToTime(ns int64) time.Time {
	return time.Unix(0, ns)
}

// MsToTime 将毫秒时间戳转换为 time.Time（UTC）
// 用于交易所 K 线的开盘/收盘时间字段。
func MsToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
