// Package report 根据回测权益曲线计算绩效汇总指标。
package report

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear 年化系数（日线数据按交易日计）
const tradingDaysPerYear = 252

// Summary 回测绩效汇总
type Summary struct {
	// Steps 回测步数
	Steps int
	// TotalReturn 总收益率（期末/期初 - 1）
	TotalReturn float64
	// SharpeRatio 年化夏普比率（无风险利率按 0 计）
	SharpeRatio float64
	// MaxDrawdown 最大回撤（非正数，-0.25 表示回撤 25%）
	MaxDrawdown float64
}

// Summarize 从权益曲线计算绩效汇总。
// 曲线至少包含两个点，且首值必须为正。
func Summarize(equity []float64) (*Summary, error) {
	if len(equity) < 2 {
		return nil, errors.New("权益曲线至少需要两个点")
	}
	for i, v := range equity {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("权益曲线第 %d 个点非有限值: %v", i, v)
		}
	}
	if equity[0] <= 0 {
		return nil, fmt.Errorf("权益曲线首值必须为正: %v", equity[0])
	}

	s := &Summary{Steps: len(equity)}
	s.TotalReturn = equity[len(equity)-1]/equity[0] - 1
	s.SharpeRatio = sharpe(equity)
	s.MaxDrawdown = maxDrawdown(equity)
	return s, nil
}

// sharpe 计算年化夏普比率。
// 使用简单收益率的样本标准差；波动为零时返回 0。
func sharpe(equity []float64) float64 {
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			return 0
		}
		returns = append(returns, equity[i]/equity[i-1]-1)
	}

	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown 计算相对历史最高点的最大回撤。
func maxDrawdown(equity []float64) float64 {
	peak := equity[0]
	worst := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := v/peak - 1
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
