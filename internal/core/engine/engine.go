// Package engine 实现事件驱动的价差均值回归回测引擎。
// 引擎独占一个卡尔曼滤波器实例，按时间升序逐步处理价格对：
// 更新滤波器、计算滚动 z_score、驱动三态仓位状态机、逐步盯市。
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kalman-statarb-backtester/internal/config"
	"kalman-statarb-backtester/internal/core/kalman"
	"kalman-statarb-backtester/internal/core/model"
	"kalman-statarb-backtester/internal/stats/rolling"
)

// warmupStd 预热期（滚动窗口未满时）使用的固定价差标准差
// 避免早期样本不足导致的除法不稳定。
const warmupStd = 1.0

// NextPosition 仓位状态机转移函数
// (当前仓位, z_score, 开仓阈值, 平仓阈值) 的纯函数，便于独立测试边界条件。
// 边界约定: 开仓为严格不等（z 恰好等于阈值不开仓），平仓为闭区间。
func NextPosition(cur model.PositionState, z, entry, exit float64) model.PositionState {
	switch cur {
	case model.PositionFlat:
		if z > entry {
			// 价差偏贵，做空价差（卖 Y、按 beta 买 X）
			return model.PositionShortSpread
		}
		if z < -entry {
			return model.PositionLongSpread
		}
		return model.PositionFlat
	case model.PositionLongSpread:
		if z >= -exit {
			return model.PositionFlat
		}
		return model.PositionLongSpread
	case model.PositionShortSpread:
		if z <= exit {
			return model.PositionFlat
		}
		return model.PositionShortSpread
	default:
		return model.PositionFlat
	}
}

// Engine 回测引擎
// 每次回测必须创建独立实例：滤波器协方差、价差窗口、仓位都是逐步
// 依赖前一步的可变状态，实例不可复用，也不可被并发回测共享。
type Engine struct {
	// cfg 策略参数
	cfg config.StrategyConfig
	// filter 引擎独占的卡尔曼滤波器
	filter *kalman.Filter
	// window 价差滚动标准差窗口
	window *rolling.Window
	// logger 日志记录器
	logger *zap.Logger

	// position 当前仓位，每步由状态机更新一次
	position model.PositionState
	// equity 当前权益
	equity float64
	// prevX/prevY 前一步价格（盯市用）
	prevX, prevY float64
	// stepIndex 下一步的序号
	stepIndex int
	// started 引擎是否已被使用（单次运行保护）
	started bool

	// openTrade 未平仓交易
	openTrade *model.Trade
	// trades 已平仓交易
	trades []*model.Trade

	// degradedWarned 协方差退化告警是否已输出（每次运行至多一次）
	degradedWarned bool
}

// New 创建回测引擎
// 参数 cfg: 策略参数，构造期验证
// 参数 filter: 引擎独占的滤波器实例，不可与其他引擎共享
// 参数 logger: 日志记录器
func New(cfg config.StrategyConfig, filter *kalman.Filter, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("策略参数无效: %w", err)
	}
	if filter == nil {
		return nil, fmt.Errorf("滤波器实例不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	window, err := rolling.NewWindow(cfg.VolWindow, warmupStd)
	if err != nil {
		return nil, fmt.Errorf("创建价差窗口失败: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		filter:   filter,
		window:   window,
		logger:   logger.Named("engine"),
		position: model.PositionFlat,
		equity:   cfg.InitialEquity,
	}, nil
}

// Run 在给定价格序列上执行一次完整回测
// 序列校验失败立即返回错误，不产生部分结果。
// 返回: 与输入时间戳一一对应的结果序列。
func (e *Engine) Run(series model.PriceSeries) (*model.ResultSeries, error) {
	if err := e.markStarted(); err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("价格序列校验失败: %w", err)
	}

	res := model.NewResultSeries(len(series))
	for i := range series {
		res.Append(e.step(series[i]))
	}

	e.logger.Info("回测完成",
		zap.Int("steps", res.Len()),
		zap.Float64("final_equity", e.equity),
		zap.Int("closed_trades", len(e.trades)))
	return res, nil
}

// RunStream 流式回测
// 从 in 逐个消费价格对，按与 Run 完全相同的逐步算法处理，并把每步结果
// 实时发送到 out；返回前关闭 out。逐点校验价格有限与时间戳严格递增，
// 校验失败立即返回错误。in 被关闭或 ctx 被取消时结束。
func (e *Engine) RunStream(ctx context.Context, in <-chan model.PricePoint, out chan<- model.StepResult) error {
	if err := e.markStarted(); err != nil {
		return err
	}
	defer close(out)

	var lastTs time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pt, ok := <-in:
			if !ok {
				return nil
			}
			if !pt.IsFinite() {
				return fmt.Errorf("流式行情第 %d 步包含非有限价格: x=%v y=%v", e.stepIndex, pt.X, pt.Y)
			}
			if e.stepIndex > 0 && !pt.Timestamp.After(lastTs) {
				return fmt.Errorf("流式行情时间戳未严格递增: %s 不晚于 %s",
					pt.Timestamp.Format(time.RFC3339), lastTs.Format(time.RFC3339))
			}
			lastTs = pt.Timestamp

			step := e.step(pt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- step:
			}
		}
	}
}

// Trades 已平仓交易（按平仓顺序）
func (e *Engine) Trades() []*model.Trade {
	return e.trades
}

// OpenTrade 当前未平仓交易，可能为 nil
func (e *Engine) OpenTrade() *model.Trade {
	return e.openTrade
}

func (e *Engine) markStarted() error {
	if e.started {
		return fmt.Errorf("引擎实例只能执行一次回测，请为每次回测创建独立实例")
	}
	e.started = true
	return nil
}

// step 处理一个时间步
// 执行顺序固定：滤波器更新 → 价差入窗 → z_score → 状态机 → 盯市 → 记录。
func (e *Engine) step(pt model.PricePoint) model.StepResult {
	// 1. 更新滤波器，得到本步的 (beta, alpha, residual)
	beta, alpha, residual := e.filter.Update(pt.X, pt.Y)

	// 2-4. 价差入窗并归一化；标准差为 0（如价差恒定）时 z 记 0
	e.window.Push(residual)
	stdSpread := e.window.StdDev()
	z := 0.0
	if stdSpread > 0 {
		z = residual / stdSpread
	}

	// 5. 状态机：本步决定的仓位变化对本步盈亏立即生效（按收盘价零延迟成交），
	// 但盯市使用进入本步时持有的仓位
	posBefore := e.position
	e.position = NextPosition(posBefore, z, e.cfg.EntryThreshold, e.cfg.ExitThreshold)

	// 6. 盯市：首步没有前收盘价，权益固定为初始值
	// 约定：对冲腿权重取本步的 beta，不是前一步的
	pnl := 0.0
	if e.stepIndex > 0 {
		pnl = posBefore.Direction() * ((pt.Y - e.prevY) - beta*(pt.X-e.prevX))
		e.equity += pnl
	}

	e.recordTrade(posBefore, pt.Timestamp, z, pnl)

	if !e.degradedWarned && !e.filter.Healthy() {
		e.degradedWarned = true
		e.logger.Warn("滤波器协方差出现数值退化（对角元为负），继续运行", zap.Int("step", e.stepIndex))
	}

	step := model.StepResult{
		Index:      e.stepIndex,
		Timestamp:  pt.Timestamp,
		HedgeRatio: beta,
		Intercept:  alpha,
		Residual:   residual,
		ZScore:     z,
		Position:   e.position,
		PnL:        pnl,
		Equity:     e.equity,
	}

	e.prevX, e.prevY = pt.X, pt.Y
	e.stepIndex++
	return step
}

// recordTrade 维护开平仓账目
// 本步盈亏按进入本步时的仓位累计到未平仓交易，与盯市口径一致。
func (e *Engine) recordTrade(posBefore model.PositionState, ts time.Time, z, pnl float64) {
	if e.openTrade != nil {
		e.openTrade.PnL += pnl
		e.openTrade.BarsHeld++
	}

	switch {
	case posBefore == model.PositionFlat && e.position.IsOpen():
		e.openTrade = &model.Trade{
			Side:       e.position,
			EntryIndex: e.stepIndex,
			EntryTime:  ts,
			EntryZ:     z,
		}
	case posBefore.IsOpen() && e.position == model.PositionFlat:
		if e.openTrade == nil {
			return
		}
		e.openTrade.ExitIndex = e.stepIndex
		e.openTrade.ExitTime = ts
		e.openTrade.ExitZ = z
		e.openTrade.Closed = true
		e.trades = append(e.trades, e.openTrade)
		e.openTrade = nil
	}
}
