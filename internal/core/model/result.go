// Package model 定义回测器使用的核心数据结构。
package model

import (
	"time"
)

// StepResult 单个时间步的回测结果
// 流式模式下逐步产出；批量模式下汇总为 ResultSeries。
type StepResult struct {
	// Index 步序号（从 0 开始）
	Index int
	// Timestamp 该步的时间戳
	Timestamp time.Time
	// HedgeRatio 本步估计的对冲比率 beta
	HedgeRatio float64
	// Intercept 本步估计的截距 alpha
	Intercept float64
	// Residual 滤波器新息（原始价差信号）
	Residual float64
	// ZScore 按滚动标准差归一后的价差
	ZScore float64
	// Position 本步更新后的仓位
	Position PositionState
	// PnL 本步盯市盈亏（首步为 0）
	PnL float64
	// Equity 本步权益
	Equity float64
}

// StepRecord 逐步结果输出结构（JSONL）
type StepRecord struct {
	// TsUnixNs 该步时间戳（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// Equity 权益（货币）
	Equity float64 `json:"equity"`
	// HedgeRatio 对冲比率 beta
	HedgeRatio float64 `json:"hedge_ratio"`
	// ZScore 归一化价差
	ZScore float64 `json:"z_score"`
	// Position 本步仓位
	Position string `json:"position"`
}

// ToRecord 将 StepResult 转换为 JSONL 输出格式
func (s *StepResult) ToRecord() *StepRecord {
	return &StepRecord{
		TsUnixNs:   s.Timestamp.UnixNano(),
		Equity:     s.Equity,
		HedgeRatio: s.HedgeRatio,
		ZScore:     s.ZScore,
		Position:   string(s.Position),
	}
}

// ResultSeries 整次回测的结果序列
// 四条平行序列共用输入序列的时间戳，每个输入时间步恰好一条记录。
// 回测结束后只读。
type ResultSeries struct {
	// Timestamps 各步时间戳
	Timestamps []time.Time
	// Equity 权益曲线（货币）
	Equity []float64
	// HedgeRatio 对冲比率 beta 序列
	HedgeRatio []float64
	// ZScore 归一化价差序列
	ZScore []float64

	// positions 各步仓位（JSONL 输出用）
	positions []PositionState
}

// NewResultSeries 创建结果序列
// 参数 capacity: 预期步数，用于预分配
func NewResultSeries(capacity int) *ResultSeries {
	return &ResultSeries{
		Timestamps: make([]time.Time, 0, capacity),
		Equity:     make([]float64, 0, capacity),
		HedgeRatio: make([]float64, 0, capacity),
		ZScore:     make([]float64, 0, capacity),
		positions:  make([]PositionState, 0, capacity),
	}
}

// Append 追加一步结果
func (r *ResultSeries) Append(step StepResult) {
	r.Timestamps = append(r.Timestamps, step.Timestamp)
	r.Equity = append(r.Equity, step.Equity)
	r.HedgeRatio = append(r.HedgeRatio, step.HedgeRatio)
	r.ZScore = append(r.ZScore, step.ZScore)
	r.positions = append(r.positions, step.Position)
}

// Len 结果步数
func (r *ResultSeries) Len() int {
	return len(r.Timestamps)
}

// Record 获取第 i 步的 JSONL 输出记录
func (r *ResultSeries) Record(i int) *StepRecord {
	return &StepRecord{
		TsUnixNs:   r.Timestamps[i].UnixNano(),
		Equity:     r.Equity[i],
		HedgeRatio: r.HedgeRatio[i],
		ZScore:     r.ZScore[i],
		Position:   string(r.positions[i]),
	}
}
