// Package main 是卡尔曼统计套利回测器的入口点。
// 回测器用时变卡尔曼滤波器估计两个资产间的对冲比率 (beta, alpha)，
// 对归一化价差跑均值回归策略并逐步盯市，输出绩效汇总与 JSONL 结果。
//
// 数据源支持本地 CSV、Yahoo Finance 日线，以及 Binance 1 分钟 K 线实时流。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kalman-statarb-backtester/internal/config"
	"kalman-statarb-backtester/internal/core/engine"
	"kalman-statarb-backtester/internal/core/kalman"
	"kalman-statarb-backtester/internal/core/model"
	"kalman-statarb-backtester/internal/feed/binance"
	"kalman-statarb-backtester/internal/feed/pairing"
	"kalman-statarb-backtester/internal/marketdata/csvfile"
	"kalman-statarb-backtester/internal/marketdata/yahoo"
	"kalman-statarb-backtester/internal/output/chart"
	"kalman-statarb-backtester/internal/output/jsonl"
	"kalman-statarb-backtester/internal/stats/report"
	"kalman-statarb-backtester/internal/stats/trades"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	logger.Info("回测器启动",
		zap.String("source", cfg.Data.Source),
		zap.Float64("entry_threshold", cfg.Strategy.EntryThreshold),
		zap.Float64("exit_threshold", cfg.Strategy.ExitThreshold),
		zap.Int("vol_window", cfg.Strategy.VolWindow))

	switch cfg.Data.Source {
	case config.SourceLive:
		err = runLive(ctx, cfg, logger)
	default:
		err = runBatch(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("回测失败", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newEngine 按配置组装滤波器与回测引擎
func newEngine(cfg *config.Config, logger *zap.Logger) (*engine.Engine, error) {
	filter, err := kalman.New(cfg.Filter.Delta, cfg.Filter.R)
	if err != nil {
		return nil, fmt.Errorf("创建滤波器失败: %w", err)
	}
	return engine.New(cfg.Strategy, filter, logger)
}

// loadSeries 按数据源配置加载批量价格序列
func loadSeries(ctx context.Context, cfg *config.Config, logger *zap.Logger) (model.PriceSeries, error) {
	switch cfg.Data.Source {
	case config.SourceCSV:
		logger.Info("从 CSV 加载价格序列", zap.String("path", cfg.Data.CSV.Path))
		return csvfile.Load(cfg.Data.CSV)
	case config.SourceYahoo:
		logger.Info("从 Yahoo Finance 拉取价格序列",
			zap.String("symbol_x", cfg.Data.Yahoo.SymbolX),
			zap.String("symbol_y", cfg.Data.Yahoo.SymbolY))
		client := yahoo.NewClient(cfg.Data.Yahoo)
		return client.FetchPair(ctx, cfg.Data.Yahoo)
	default:
		return nil, fmt.Errorf("数据源 %s 不支持批量回测", cfg.Data.Source)
	}
}

// runBatch 执行批量回测：加载完整序列、一次性跑完、输出结果与绩效
func runBatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	series, err := loadSeries(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("价格序列加载完成", zap.Int("steps", len(series)))

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	res, err := eng.Run(series)
	if err != nil {
		return err
	}

	return writeOutputs(cfg, logger, res, eng)
}

// runLive 执行流式回测：订阅实时 K 线、配对后逐步驱动引擎
func runLive(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client := binance.NewClient(cfg.Data.Live, logger)

	connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
	defer connectCancel()
	if err := client.Connect(connectCtx); err != nil {
		return err
	}
	if err := client.Subscribe(); err != nil {
		_ = client.Close()
		return err
	}

	go client.Run(ctx)
	defer client.Close()

	pairer := pairing.New(
		strings.ToUpper(cfg.Data.Live.SymbolX),
		strings.ToUpper(cfg.Data.Live.SymbolY),
		logger)

	in := make(chan model.PricePoint, 64)
	out := make(chan model.StepResult, 64)

	// 配对泵：消费单边 K 线，配齐后投递给引擎；
	// 达到 max_steps 或行情通道关闭时结束输入。
	go func() {
		defer close(in)
		steps := 0
		for {
			select {
			case <-ctx.Done():
				return
			case bar, ok := <-client.BarCh():
				if !ok {
					return
				}
				pt := pairer.Push(bar)
				if pt == nil {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case in <- *pt:
				}
				steps++
				if cfg.Data.Live.MaxSteps > 0 && steps >= cfg.Data.Live.MaxSteps {
					logger.Info("达到最大步数，结束流式回测", zap.Int("max_steps", cfg.Data.Live.MaxSteps))
					return
				}
			}
		}
	}()

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- eng.RunStream(ctx, in, out)
	}()

	var resultsWriter *jsonl.Writer
	if cfg.Output.ResultsEnabled {
		resultsWriter, err = jsonl.NewWriter(filepath.Join(cfg.Output.Dir, "results.jsonl"))
		if err != nil {
			return fmt.Errorf("创建 results writer 失败: %w", err)
		}
		defer resultsWriter.Close()
	}

	// 逐步消费结果，同时汇总为序列供收尾统计
	res := model.NewResultSeries(1024)
	for step := range out {
		res.Append(step)
		logger.Info("流式回测步进",
			zap.Int("step", step.Index),
			zap.Float64("z_score", step.ZScore),
			zap.String("position", string(step.Position)),
			zap.Float64("equity", step.Equity))
		if resultsWriter != nil {
			if werr := resultsWriter.Write(step.ToRecord()); werr != nil {
				logger.Warn("写入逐步结果失败", zap.Error(werr))
			}
			_ = resultsWriter.Flush()
		}
	}

	runErr := <-errCh
	if runErr != nil && runErr != context.Canceled {
		return runErr
	}

	if res.Len() < 2 {
		logger.Info("流式回测结束，样本不足，跳过绩效汇总", zap.Int("steps", res.Len()))
		return nil
	}
	return writeSummary(cfg, logger, res, eng)
}

// writeOutputs 输出批量回测的结果文件、成交记录与绩效汇总
func writeOutputs(cfg *config.Config, logger *zap.Logger, res *model.ResultSeries, eng *engine.Engine) error {
	if cfg.Output.ResultsEnabled {
		w, err := jsonl.NewWriter(filepath.Join(cfg.Output.Dir, "results.jsonl"))
		if err != nil {
			return fmt.Errorf("创建 results writer 失败: %w", err)
		}
		for i := 0; i < res.Len(); i++ {
			if werr := w.Write(res.Record(i)); werr != nil {
				_ = w.Close()
				return fmt.Errorf("写入逐步结果失败: %w", werr)
			}
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("关闭 results writer 失败: %w", err)
		}
		logger.Info("逐步结果已输出", zap.String("path", w.Path()), zap.Int("records", res.Len()))
	}

	return writeSummary(cfg, logger, res, eng)
}

// writeSummary 输出成交记录、成交统计与绩效汇总（批量与流式共用）
func writeSummary(cfg *config.Config, logger *zap.Logger, res *model.ResultSeries, eng *engine.Engine) error {
	closed := eng.Trades()

	if cfg.Output.TradesEnabled {
		w, err := jsonl.NewWriter(filepath.Join(cfg.Output.Dir, "trades.jsonl"))
		if err != nil {
			return fmt.Errorf("创建 trades writer 失败: %w", err)
		}
		for _, tr := range closed {
			if werr := w.Write(tr.ToRecord()); werr != nil {
				_ = w.Close()
				return fmt.Errorf("写入成交记录失败: %w", werr)
			}
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("关闭 trades writer 失败: %w", err)
		}
		logger.Info("成交记录已输出", zap.String("path", w.Path()), zap.Int("trades", len(closed)))
	}

	calc := trades.NewCalculator(cfg.Output.TradeStatsWindow)
	for _, tr := range closed {
		calc.Add(tr)
	}
	stats := calc.Stats()
	logger.Info("成交统计",
		zap.Int64("count", stats.Count),
		zap.Float64("win_rate", stats.WinRate),
		zap.Float64("avg_win", stats.AvgWin),
		zap.Float64("avg_loss", stats.AvgLoss),
		zap.Float64("expectancy", stats.Expectancy),
		zap.Float64("total_pnl", stats.TotalPnL))
	if open := eng.OpenTrade(); open != nil {
		logger.Info("存在未平仓交易",
			zap.String("side", string(open.Side)),
			zap.Float64("pnl", open.PnL),
			zap.Int("bars_held", open.BarsHeld))
	}

	summary, err := report.Summarize(res.Equity)
	if err != nil {
		return fmt.Errorf("计算绩效汇总失败: %w", err)
	}
	logger.Info("绩效汇总",
		zap.Int("steps", summary.Steps),
		zap.Float64("total_return", summary.TotalReturn),
		zap.Float64("sharpe_ratio", summary.SharpeRatio),
		zap.Float64("max_drawdown", summary.MaxDrawdown))

	if cfg.Output.PlotEnabled {
		equityPath := filepath.Join(cfg.Output.Dir, "equity.png")
		if err := chart.SaveEquityCurve(res, equityPath); err != nil {
			return fmt.Errorf("渲染权益曲线失败: %w", err)
		}
		zscorePath := filepath.Join(cfg.Output.Dir, "zscore.png")
		if err := chart.SaveZScore(res, cfg.Strategy.EntryThreshold, cfg.Strategy.ExitThreshold, zscorePath); err != nil {
			return fmt.Errorf("渲染 z-score 曲线失败: %w", err)
		}
		logger.Info("图表已输出",
			zap.String("equity", equityPath),
			zap.String("zscore", zscorePath))
	}

	return nil
}
