// Package model 定义回测器使用的核心数据结构。
package model

import (
	"time"
)

// PositionState 价差仓位状态
// 三态状态机: 空仓 / 做多价差 / 做空价差，由回测引擎每步更新一次。
type PositionState string

const (
	// PositionFlat 空仓
	PositionFlat PositionState = "flat"
	// PositionLongSpread 做多价差（买 Y、按 beta 对冲卖 X）
	// 当 z_score < -entry_threshold 时开仓
	PositionLongSpread PositionState = "long_spread"
	// PositionShortSpread 做空价差（卖 Y、按 beta 对冲买 X）
	// 当 z_score > entry_threshold 时开仓
	PositionShortSpread PositionState = "short_spread"
)

// Direction 获取方向系数
// 做多价差返回 1，做空价差返回 -1，空仓返回 0。
// 盯市公式: pnl = Direction × (dY − beta × dX)
func (p PositionState) Direction() float64 {
	switch p {
	case PositionLongSpread:
		return 1
	case PositionShortSpread:
		return -1
	default:
		return 0
	}
}

// IsOpen 判断是否持有仓位
func (p PositionState) IsOpen() bool {
	return p == PositionLongSpread || p == PositionShortSpread
}

// Trade 一笔完整的价差交易（开仓到平仓）
// 盈亏按持仓期间的逐步盯市结果累计，单位为货币。
type Trade struct {
	// Side 交易方向: long_spread 或 short_spread
	Side PositionState
	// EntryIndex 开仓所在步的序号
	EntryIndex int
	// EntryTime 开仓时间
	EntryTime time.Time
	// EntryZ 开仓时的 z_score
	EntryZ float64
	// ExitIndex 平仓所在步的序号
	ExitIndex int
	// ExitTime 平仓时间
	ExitTime time.Time
	// ExitZ 平仓时的 z_score
	ExitZ float64
	// PnL 持仓期间累计盈亏（货币）
	PnL float64
	// BarsHeld 持仓步数（按进入每步时持有仓位计）
	BarsHeld int
	// Closed 是否已平仓
	Closed bool
}

// IsWin 判断是否盈利
func (t *Trade) IsWin() bool {
	return t.PnL > 0
}

// TradeRecord 成交记录输出结构（JSONL）
type TradeRecord struct {
	// Side 交易方向
	Side string `json:"side"`
	// TEntryNs 开仓时间（纳秒）
	TEntryNs int64 `json:"t_entry_ns"`
	// TExitNs 平仓时间（纳秒）
	TExitNs int64 `json:"t_exit_ns"`
	// EntryZ 开仓 z_score
	EntryZ float64 `json:"entry_z"`
	// ExitZ 平仓 z_score
	ExitZ float64 `json:"exit_z"`
	// PnL 累计盈亏（货币）
	PnL float64 `json:"pnl"`
	// BarsHeld 持仓步数
	BarsHeld int `json:"bars_held"`
}

// ToRecord 将 Trade 转换为 JSONL 输出格式
func (t *Trade) ToRecord() *TradeRecord {
	return &TradeRecord{
		Side:     string(t.Side),
		TEntryNs: t.EntryTime.UnixNano(),
		TExitNs:  t.ExitTime.UnixNano(),
		EntryZ:   t.EntryZ,
		ExitZ:    t.ExitZ,
		PnL:      t.PnL,
		BarsHeld: t.BarsHeld,
	}
}
