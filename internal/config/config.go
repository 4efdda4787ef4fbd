// Package config 负责加载和验证 YAML 配置文件。
// 提供应用程序所需的所有配置项，包括数据源、策略阈值、滤波器噪声参数、输出设置等。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 数据源类型常量
const (
	// SourceCSV 本地 CSV 文件
	SourceCSV = "csv"
	// SourceYahoo Yahoo Finance 日线接口
	SourceYahoo = "yahoo"
	// SourceLive 实时 K 线 WebSocket 流
	SourceLive = "live"
)

// dateLayout 配置中日期字段的格式
const dateLayout = "2006-01-02"

// Config 应用配置根结构
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Data 数据源配置
	Data DataConfig `yaml:"data"`
	// Strategy 策略参数配置
	Strategy StrategyConfig `yaml:"strategy"`
	// Filter 卡尔曼滤波器噪声参数
	Filter FilterConfig `yaml:"filter"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// DataConfig 数据源配置
// Source 决定使用哪个子配置。
type DataConfig struct {
	// Source 数据源类型: csv, yahoo, live
	Source string `yaml:"source"`
	// CSV 本地 CSV 文件配置
	CSV CSVConfig `yaml:"csv"`
	// Yahoo Yahoo Finance 日线配置
	Yahoo YahooConfig `yaml:"yahoo"`
	// Live 实时行情配置
	Live LiveConfig `yaml:"live"`
}

// CSVConfig 本地 CSV 数据源配置
// 文件需包含时间戳列与两条价格列，已去重、升序、无缺失。
type CSVConfig struct {
	// Path CSV 文件路径
	Path string `yaml:"path"`
	// TimestampColumn 时间戳列名
	TimestampColumn string `yaml:"timestamp_column"`
	// XColumn 自变量资产价格列名
	XColumn string `yaml:"x_column"`
	// YColumn 因变量资产价格列名
	YColumn string `yaml:"y_column"`
}

// YahooConfig Yahoo Finance 数据源配置
type YahooConfig struct {
	// BaseURL 接口根地址
	BaseURL string `yaml:"base_url"`
	// SymbolX 自变量资产代码（如 KO）
	SymbolX string `yaml:"symbol_x"`
	// SymbolY 因变量资产代码（如 PEP）
	SymbolY string `yaml:"symbol_y"`
	// Start 起始日期（2006-01-02 格式）
	Start string `yaml:"start"`
	// End 结束日期（2006-01-02 格式）
	End string `yaml:"end"`
	// TimeoutMs HTTP 请求超时时间（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
}

// LiveConfig 实时行情数据源配置
// 订阅两个 symbol 的 1 分钟 K 线，按开盘时间配对后流式驱动回测引擎。
type LiveConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// SymbolX 自变量资产交易对（如 ETHUSDT）
	SymbolX string `yaml:"symbol_x"`
	// SymbolY 因变量资产交易对（如 BTCUSDT）
	SymbolY string `yaml:"symbol_y"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
	// MaxSteps 最多处理的配对 K 线数，0 表示直到收到退出信号
	MaxSteps int `yaml:"max_steps"`
}

// StrategyConfig 均值回归策略参数
type StrategyConfig struct {
	// EntryThreshold 开仓 z_score 阈值（绝对值），必须为正数
	// 开仓判断为严格不等: z > entry 做空价差，z < -entry 做多价差
	EntryThreshold float64 `yaml:"entry_threshold"`
	// ExitThreshold 平仓 z_score 阈值（绝对值），必须非负且小于 EntryThreshold
	// 平仓判断为闭区间: 多仓 z >= -exit 平仓，空仓 z <= exit 平仓
	ExitThreshold float64 `yaml:"exit_threshold"`
	// VolWindow 价差滚动标准差窗口大小
	VolWindow int `yaml:"vol_window"`
	// InitialEquity 初始权益（货币）
	InitialEquity float64 `yaml:"initial_equity"`
}

// FilterConfig 卡尔曼滤波器噪声参数
type FilterConfig struct {
	// Delta 过程噪声比例，控制对冲关系允许漂移的速度
	Delta float64 `yaml:"delta"`
	// R 测量噪声方差，控制单个观测的权重
	R float64 `yaml:"r"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// ResultsEnabled 是否输出逐步结果文件 results.jsonl
	ResultsEnabled bool `yaml:"results_enabled"`
	// TradesEnabled 是否输出成交记录文件 trades.jsonl
	TradesEnabled bool `yaml:"trades_enabled"`
	// PlotEnabled 是否渲染权益曲线 equity.png
	PlotEnabled bool `yaml:"plot_enabled"`
	// TradeStatsWindow 成交统计滚动窗口大小
	TradeStatsWindow int `yaml:"trade_stats_window"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "kalman-statarb-backtester"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.Data.Source == "" {
		c.Data.Source = SourceCSV
	}
	if c.Data.CSV.TimestampColumn == "" {
		c.Data.CSV.TimestampColumn = "timestamp"
	}
	if c.Data.CSV.XColumn == "" {
		c.Data.CSV.XColumn = "asset_x"
	}
	if c.Data.CSV.YColumn == "" {
		c.Data.CSV.YColumn = "asset_y"
	}
	if c.Data.Yahoo.BaseURL == "" {
		c.Data.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Data.Yahoo.TimeoutMs == 0 {
		c.Data.Yahoo.TimeoutMs = 10000 // 10 秒
	}
	if c.Data.Live.URL == "" {
		c.Data.Live.URL = "wss://stream.binance.com:9443/ws"
	}
	if c.Data.Live.PingIntervalMs == 0 {
		c.Data.Live.PingIntervalMs = 25000 // 25 秒
	}
	if c.Data.Live.ReadTimeoutMs == 0 {
		c.Data.Live.ReadTimeoutMs = 180000 // 1m K 线频率低，放宽到 3 分钟
	}

	if c.Strategy.EntryThreshold == 0 {
		c.Strategy.EntryThreshold = 2.0
	}
	// ExitThreshold 的默认值就是 0，无需区分“未设置”
	if c.Strategy.VolWindow == 0 {
		c.Strategy.VolWindow = 30
	}
	if c.Strategy.InitialEquity == 0 {
		c.Strategy.InitialEquity = 100000
	}

	if c.Filter.Delta == 0 {
		c.Filter.Delta = 1e-5
	}
	if c.Filter.R == 0 {
		c.Filter.R = 1e-3
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.TradeStatsWindow == 0 {
		c.Output.TradeStatsWindow = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	switch c.Data.Source {
	case SourceCSV:
		if c.Data.CSV.Path == "" {
			errs = append(errs, "data.csv.path: CSV 文件路径不能为空")
		}
	case SourceYahoo:
		if c.Data.Yahoo.SymbolX == "" || c.Data.Yahoo.SymbolY == "" {
			errs = append(errs, "data.yahoo: symbol_x 与 symbol_y 均不能为空")
		}
		if c.Data.Yahoo.SymbolX != "" && c.Data.Yahoo.SymbolX == c.Data.Yahoo.SymbolY {
			errs = append(errs, "data.yahoo: symbol_x 与 symbol_y 不能相同")
		}
		for _, field := range []struct{ name, value string }{
			{"data.yahoo.start", c.Data.Yahoo.Start},
			{"data.yahoo.end", c.Data.Yahoo.End},
		} {
			if field.value == "" {
				errs = append(errs, fmt.Sprintf("%s: 日期不能为空", field.name))
				continue
			}
			if _, err := time.Parse(dateLayout, field.value); err != nil {
				errs = append(errs, fmt.Sprintf("%s: 日期格式应为 %s，当前值: %s", field.name, dateLayout, field.value))
			}
		}
	case SourceLive:
		if c.Data.Live.SymbolX == "" || c.Data.Live.SymbolY == "" {
			errs = append(errs, "data.live: symbol_x 与 symbol_y 均不能为空")
		}
		if c.Data.Live.SymbolX != "" && c.Data.Live.SymbolX == c.Data.Live.SymbolY {
			errs = append(errs, "data.live: symbol_x 与 symbol_y 不能相同")
		}
		if c.Data.Live.MaxSteps < 0 {
			errs = append(errs, "data.live.max_steps: 不能为负数")
		}
	default:
		errs = append(errs, fmt.Sprintf("data.source: 无效的数据源 '%s'，有效值: csv, yahoo, live", c.Data.Source))
	}

	if err := c.Strategy.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Filter.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Output.TradeStatsWindow < 0 {
		errs = append(errs, "output.trade_stats_window: 不能为负数")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Validate 验证策略参数
// 返回: 若参数无效则返回描述性错误
func (c *StrategyConfig) Validate() error {
	var errs []string

	if c.EntryThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("strategy.entry_threshold: 开仓阈值必须为正数，当前值: %g", c.EntryThreshold))
	}
	if c.ExitThreshold < 0 {
		errs = append(errs, fmt.Sprintf("strategy.exit_threshold: 平仓阈值不能为负数，当前值: %g", c.ExitThreshold))
	}
	if c.EntryThreshold > 0 && c.ExitThreshold >= c.EntryThreshold {
		// 平仓带不低于开仓带时任何仓位都会在开仓当步立刻平掉，属配置错误
		errs = append(errs, fmt.Sprintf("strategy.exit_threshold: 平仓阈值必须小于开仓阈值，当前 %g >= %g", c.ExitThreshold, c.EntryThreshold))
	}
	if c.VolWindow < 2 {
		errs = append(errs, fmt.Sprintf("strategy.vol_window: 窗口大小必须至少为 2，当前值: %d", c.VolWindow))
	}
	if c.InitialEquity <= 0 {
		errs = append(errs, fmt.Sprintf("strategy.initial_equity: 初始权益必须为正数，当前值: %g", c.InitialEquity))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Validate 验证滤波器噪声参数
// 返回: 若参数无效则返回描述性错误
func (c *FilterConfig) Validate() error {
	var errs []string

	if c.Delta <= 0 {
		errs = append(errs, fmt.Sprintf("filter.delta: 过程噪声比例必须为正数，当前值: %g", c.Delta))
	}
	if c.R <= 0 {
		// R=0 在观测到 x=0 时使新息方差退化为 0，除法未定义
		errs = append(errs, fmt.Sprintf("filter.r: 测量噪声方差必须为正数，当前值: %g", c.R))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// StartTime 解析 Yahoo 数据源的起始日期
func (c *YahooConfig) StartTime() (time.Time, error) {
	return time.Parse(dateLayout, c.Start)
}

// EndTime 解析 Yahoo 数据源的结束日期
func (c *YahooConfig) EndTime() (time.Time, error) {
	return time.Parse(dateLayout, c.End)
}
