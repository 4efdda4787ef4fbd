// Package model 定义回测器使用的核心数据结构。
// 包含价格序列、仓位状态、逐步结果、成交记录等核心类型。
package model

import (
	"fmt"
	"math"
	"time"
)

// PricePoint 单个时间步的两资产价格对
type PricePoint struct {
	// Timestamp 该步的时间戳
	Timestamp time.Time
	// X 自变量资产价格（对冲参照腿，如 KO）
	X float64
	// Y 因变量资产价格（目标腿，如 PEP）
	Y float64
}

// IsFinite 检查价格是否全部为有限值
// NaN 与 ±Inf 均视为非法。
func (p *PricePoint) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// PriceSeries 按时间升序排列的双列价格序列
// 调用方负责对齐与清洗；核心只做校验，不做修补。
type PriceSeries []PricePoint

// Validate 校验价格序列是否满足回测前置条件
// 要求: 至少 2 行（否则无法计算盈亏）、价格全部有限、
// 时间戳严格递增（重复时间戳同样视为数据错误）。
func (s PriceSeries) Validate() error {
	if len(s) < 2 {
		return fmt.Errorf("价格序列至少需要 2 行，当前 %d 行", len(s))
	}
	for i := range s {
		if !s[i].IsFinite() {
			return fmt.Errorf("第 %d 行包含非有限价格: x=%v y=%v", i, s[i].X, s[i].Y)
		}
		if i > 0 && !s[i].Timestamp.After(s[i-1].Timestamp) {
			return fmt.Errorf("时间戳必须严格递增: 第 %d 行 %s 不晚于第 %d 行 %s",
				i, s[i].Timestamp.Format(time.RFC3339), i-1, s[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
