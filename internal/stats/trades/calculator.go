// Package trades 实现已平仓交易的滚动统计。
// 期望值 Expectancy = p × W - (1 - p) × L
// 其中 p 为胜率，W 为平均盈利，L 为平均亏损绝对值。
package trades

import (
	"kalman-statarb-backtester/internal/core/model"
)

type tradeSample struct {
	win      bool
	pnl      float64
	barsHeld int
	side     model.PositionState
}

// Stats 滚动窗口交易统计
type Stats struct {
	// Count 样本数
	Count int64
	// WinCount 盈利样本数（净利>0）
	WinCount int64
	// LossCount 亏损样本数（净利<=0）
	LossCount int64

	// WinRate 胜率 p
	WinRate float64
	// AvgWin 平均盈利 W（报价货币）
	AvgWin float64
	// AvgLoss 平均亏损 L（绝对值，报价货币）
	AvgLoss float64
	// AvgBarsHeld 平均持仓步数
	AvgBarsHeld float64

	// Expectancy 单笔期望值（报价货币）
	Expectancy float64
	// TotalPnL 窗口内净盈亏合计
	TotalPnL float64
}

// Calculator 交易统计计算器（滚动窗口）
// 输入来自回测引擎的已平仓交易记录。
type Calculator struct {
	// windowSize 滚动窗口大小
	windowSize int
	// buf 环形缓冲区
	buf []tradeSample
	// pos 写入位置
	pos int
	// full 是否已填满
	full bool

	// 维护滚动统计（O(1) 更新）
	count     int64
	winCount  int64
	lossCount int64
	sumWin    float64
	sumLoss   float64
	sumPnL    float64
	sumBars   int64
}

// NewCalculator 创建交易统计计算器
// 参数 windowSize: 滚动窗口大小（建议 1000）
func NewCalculator(windowSize int) *Calculator {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &Calculator{
		windowSize: windowSize,
		buf:        make([]tradeSample, windowSize),
	}
}

// Add 添加一笔已平仓交易到滚动统计
func (c *Calculator) Add(tr *model.Trade) {
	if tr == nil || !tr.Closed {
		return
	}

	s := tradeSample{
		win:      tr.IsWin(),
		pnl:      tr.PnL,
		barsHeld: tr.BarsHeld,
		side:     tr.Side,
	}

	// 若环已满，移除旧样本对统计的贡献
	if c.full {
		old := c.buf[c.pos]
		c.count--
		if old.win {
			c.winCount--
			c.sumWin -= old.pnl
		} else {
			c.lossCount--
			c.sumLoss -= abs(old.pnl)
		}
		c.sumPnL -= old.pnl
		c.sumBars -= int64(old.barsHeld)
	}

	c.buf[c.pos] = s
	c.pos++
	if c.pos >= c.windowSize {
		c.pos = 0
		c.full = true
	}

	c.count++
	if s.win {
		c.winCount++
		c.sumWin += s.pnl
	} else {
		c.lossCount++
		c.sumLoss += abs(s.pnl)
	}
	c.sumPnL += s.pnl
	c.sumBars += int64(s.barsHeld)
}

// Stats 返回滚动窗口统计
func (c *Calculator) Stats() Stats {
	out := Stats{
		Count:     c.count,
		WinCount:  c.winCount,
		LossCount: c.lossCount,
	}
	if c.count <= 0 {
		return out
	}

	out.WinRate = float64(c.winCount) / float64(c.count)
	out.TotalPnL = c.sumPnL
	out.AvgBarsHeld = float64(c.sumBars) / float64(c.count)

	if c.winCount > 0 {
		out.AvgWin = c.sumWin / float64(c.winCount)
	}
	if c.lossCount > 0 {
		out.AvgLoss = c.sumLoss / float64(c.lossCount)
	}

	// Expectancy = p × W - (1 - p) × L
	p := out.WinRate
	out.Expectancy = p*out.AvgWin - (1-p)*out.AvgLoss

	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
