// Package trades 交易统计计算器测试
package trades

import (
	"math"
	"testing"

	"kalman-statarb-backtester/internal/core/model"
)

func TestCalculator_Empty(t *testing.T) {
	c := NewCalculator(10)
	stats := c.Stats()
	if stats.Count != 0 {
		t.Fatalf("Count=%d, want 0", stats.Count)
	}
	if stats.Expectancy != 0 {
		t.Fatalf("Expectancy=%f, want 0", stats.Expectancy)
	}
}

func TestCalculator_IgnoresOpenTrades(t *testing.T) {
	c := NewCalculator(10)
	c.Add(nil)
	c.Add(&model.Trade{Closed: false, PnL: 100})
	if got := c.Stats().Count; got != 0 {
		t.Fatalf("Count=%d, want 0", got)
	}
}

func TestCalculator_ExpectancyFormula(t *testing.T) {
	c := NewCalculator(100)

	// 2 赢 1 输
	c.Add(&model.Trade{Closed: true, PnL: 10, BarsHeld: 4, Side: model.PositionLongSpread})
	c.Add(&model.Trade{Closed: true, PnL: 20, BarsHeld: 2, Side: model.PositionShortSpread})
	c.Add(&model.Trade{Closed: true, PnL: -15, BarsHeld: 6, Side: model.PositionLongSpread})

	stats := c.Stats()
	if stats.Count != 3 {
		t.Fatalf("Count=%d, want 3", stats.Count)
	}
	if stats.WinCount != 2 || stats.LossCount != 1 {
		t.Fatalf("WinCount=%d LossCount=%d, want 2/1", stats.WinCount, stats.LossCount)
	}

	// p=2/3, W=15, L=15 => Expectancy=5
	if math.Abs(stats.Expectancy-5.0) > 1e-9 {
		t.Fatalf("Expectancy=%f, want 5", stats.Expectancy)
	}
	if math.Abs(stats.TotalPnL-15.0) > 1e-9 {
		t.Fatalf("TotalPnL=%f, want 15", stats.TotalPnL)
	}
	if math.Abs(stats.AvgBarsHeld-4.0) > 1e-9 {
		t.Fatalf("AvgBarsHeld=%f, want 4", stats.AvgBarsHeld)
	}
}

func TestCalculator_RollingWindow(t *testing.T) {
	c := NewCalculator(2)

	c.Add(&model.Trade{Closed: true, PnL: 10, BarsHeld: 1})
	c.Add(&model.Trade{Closed: true, PnL: -10, BarsHeld: 1})
	c.Add(&model.Trade{Closed: true, PnL: 20, BarsHeld: 3})

	stats := c.Stats()
	if stats.Count != 2 {
		t.Fatalf("Count=%d, want 2", stats.Count)
	}
	// 窗口内应包含：loss(-10) 与 win(20)
	if stats.WinCount != 1 || stats.LossCount != 1 {
		t.Fatalf("WinCount=%d LossCount=%d, want 1/1", stats.WinCount, stats.LossCount)
	}
	if math.Abs(stats.AvgWin-20.0) > 1e-9 {
		t.Fatalf("AvgWin=%f, want 20", stats.AvgWin)
	}
	if math.Abs(stats.AvgLoss-10.0) > 1e-9 {
		t.Fatalf("AvgLoss=%f, want 10", stats.AvgLoss)
	}
	if math.Abs(stats.TotalPnL-10.0) > 1e-9 {
		t.Fatalf("TotalPnL=%f, want 10", stats.TotalPnL)
	}
}

func TestCalculator_ZeroPnLCountsAsLoss(t *testing.T) {
	c := NewCalculator(10)
	c.Add(&model.Trade{Closed: true, PnL: 0})
	stats := c.Stats()
	if stats.LossCount != 1 || stats.WinCount != 0 {
		t.Fatalf("WinCount=%d LossCount=%d, want 0/1", stats.WinCount, stats.LossCount)
	}
}
