// Package engine 回测引擎属性测试
package engine

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"go.uber.org/zap"

	"kalman-statarb-backtester/internal/config"
	"kalman-statarb-backtester/internal/core/kalman"
	"kalman-statarb-backtester/internal/core/model"
)

// **Feature: kalman-statarb-backtester, Property 4: Entry/Exit Boundary Semantics**

func TestNextPosition_Boundaries_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("空仓时开仓为严格不等", prop.ForAll(
		func(entry float64, eps float64) bool {
			exit := 0.0
			// 阈值上不动，略超阈值开空、略破负阈值开多
			if NextPosition(model.PositionFlat, entry, entry, exit) != model.PositionFlat {
				return false
			}
			if NextPosition(model.PositionFlat, -entry, entry, exit) != model.PositionFlat {
				return false
			}
			if NextPosition(model.PositionFlat, entry+eps, entry, exit) != model.PositionShortSpread {
				return false
			}
			return NextPosition(model.PositionFlat, -entry-eps, entry, exit) == model.PositionLongSpread
		},
		gen.Float64Range(0.1, 10),
		gen.Float64Range(1e-6, 1),
	))

	properties.Property("持仓时平仓为闭区间", prop.ForAll(
		func(exit float64, eps float64) bool {
			entry := exit + 1
			if NextPosition(model.PositionShortSpread, exit, entry, exit) != model.PositionFlat {
				return false
			}
			if NextPosition(model.PositionShortSpread, exit+eps, entry, exit) != model.PositionShortSpread {
				return false
			}
			if NextPosition(model.PositionLongSpread, -exit, entry, exit) != model.PositionFlat {
				return false
			}
			return NextPosition(model.PositionLongSpread, -exit-eps, entry, exit) == model.PositionLongSpread
		},
		gen.Float64Range(0, 5),
		gen.Float64Range(1e-6, 1),
	))

	properties.TestingRun(t)
}

// **Feature: kalman-statarb-backtester, Property 5: Determinism and Trade/Equity Balance**

func TestRun_Consistency_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 60
	properties := gopter.NewProperties(parameters)

	newSeries := func(seed int64, n int) model.PriceSeries {
		base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
		series := make(model.PriceSeries, n)
		for i := 0; i < n; i++ {
			// 简单确定性伪随机游走，避免隐藏随机源
			noise := math.Sin(float64(seed)+float64(i)*1.7) * 3
			x := 100 + math.Sin(float64(i)/6)*10
			series[i] = model.PricePoint{
				Timestamp: base.AddDate(0, 0, i),
				X:         x,
				Y:         1.5*x + 10 + noise,
			}
		}
		return series
	}

	run := func(series model.PriceSeries) (*model.ResultSeries, *Engine, bool) {
		e, err := New(config.StrategyConfig{
			EntryThreshold: 2.0,
			ExitThreshold:  0.0,
			VolWindow:      30,
			InitialEquity:  100000,
		}, kalman.NewDefault(), zap.NewNop())
		if err != nil {
			return nil, nil, false
		}
		res, err := e.Run(series)
		if err != nil {
			return nil, nil, false
		}
		return res, e, true
	}

	properties.Property("两次运行结果逐位一致", prop.ForAll(
		func(seed int64, n int) bool {
			series := newSeries(seed, n)
			r1, _, ok1 := run(series)
			r2, _, ok2 := run(series)
			if !ok1 || !ok2 {
				return false
			}
			for i := 0; i < r1.Len(); i++ {
				if r1.Equity[i] != r2.Equity[i] ||
					r1.HedgeRatio[i] != r2.HedgeRatio[i] ||
					r1.ZScore[i] != r2.ZScore[i] {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1000),
		gen.IntRange(2, 200),
	))

	properties.Property("交易盈亏合计等于权益变化", prop.ForAll(
		func(seed int64, n int) bool {
			series := newSeries(seed, n)
			res, e, ok := run(series)
			if !ok {
				return false
			}

			var sum float64
			for _, tr := range e.Trades() {
				sum += tr.PnL
			}
			if open := e.OpenTrade(); open != nil {
				sum += open.PnL
			}
			diff := res.Equity[res.Len()-1] - 100000
			return math.Abs(sum-diff) < 1e-6
		},
		gen.Int64Range(0, 1000),
		gen.IntRange(2, 200),
	))

	properties.TestingRun(t)
}
