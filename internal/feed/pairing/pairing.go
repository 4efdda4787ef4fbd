// Package pairing 将两个标的的 K 线按开盘时间对齐成配对价格点。
// 使用单写者模式避免锁和竞态条件。
package pairing

import (
	"time"

	"go.uber.org/zap"

	"kalman-statarb-backtester/internal/core/model"
)

// maxPending 待配对桶数量上限，超出时按开盘时间淘汰最旧的桶
const maxPending = 128

// LegBar 单个标的的已收盘 K 线
type LegBar struct {
	// Symbol 交易对（大写，如 BTCUSDT）
	Symbol string
	// OpenTimeMs K 线开盘时间（毫秒）
	OpenTimeMs int64
	// Close 收盘价
	Close float64
	// ArrivedAtUnixNs 本地接收时间（纳秒）
	ArrivedAtUnixNs int64
}

// partial 同一开盘时间下已到达的单边价格
type partial struct {
	x    float64
	y    float64
	hasX bool
	hasY bool
}

// Pairer K 线配对器（单写者）
// 注意：本结构体默认由行情消费 goroutine 单线程调用 Push。
type Pairer struct {
	// symbolX X 腿交易对
	symbolX string
	// symbolY Y 腿交易对
	symbolY string
	// pending 按开盘时间缓存未配齐的单边价格
	pending map[int64]*partial
	// lastEmittedMs 最近一次产出的开盘时间，保证输出单调递增
	lastEmittedMs int64
	logger        *zap.Logger
}

// New 创建 K 线配对器
func New(symbolX, symbolY string, logger *zap.Logger) *Pairer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pairer{
		symbolX: symbolX,
		symbolY: symbolY,
		pending: make(map[int64]*partial, maxPending),
		logger:  logger.Named("pairing"),
	}
}

// Push 接收一条单边 K 线。
// 当同一开盘时间两边都到齐且晚于上次产出时，返回配对价格点；否则返回 nil。
func (p *Pairer) Push(bar *LegBar) *model.PricePoint {
	if bar == nil {
		return nil
	}

	// 迟到的 K 线直接丢弃，保证下游时间戳严格递增
	if bar.OpenTimeMs <= p.lastEmittedMs {
		p.logger.Debug("丢弃迟到 K 线",
			zap.String("symbol", bar.Symbol),
			zap.Int64("open_time_ms", bar.OpenTimeMs),
			zap.Int64("last_emitted_ms", p.lastEmittedMs))
		return nil
	}

	if bar.Symbol != p.symbolX && bar.Symbol != p.symbolY {
		p.logger.Warn("收到未订阅交易对的 K 线", zap.String("symbol", bar.Symbol))
		return nil
	}

	buf, ok := p.pending[bar.OpenTimeMs]
	if !ok {
		buf = &partial{}
		p.pending[bar.OpenTimeMs] = buf
	}

	if bar.Symbol == p.symbolX {
		buf.x = bar.Close
		buf.hasX = true
	} else {
		buf.y = bar.Close
		buf.hasY = true
	}

	if !buf.hasX || !buf.hasY {
		p.evictStale()
		return nil
	}

	delete(p.pending, bar.OpenTimeMs)
	p.lastEmittedMs = bar.OpenTimeMs
	p.dropOutdated()

	return &model.PricePoint{
		Timestamp: time.UnixMilli(bar.OpenTimeMs).UTC(),
		X:         buf.x,
		Y:         buf.y,
	}
}

// PendingCount 返回未配齐的开盘时间桶数量
func (p *Pairer) PendingCount() int {
	return len(p.pending)
}

// dropOutdated 清理早于最近产出时间的残留桶（对端缺数据的 K 线）
func (p *Pairer) dropOutdated() {
	for ts := range p.pending {
		if ts <= p.lastEmittedMs {
			delete(p.pending, ts)
		}
	}
}

// evictStale 控制待配对桶数量，防止对端长时间断流导致内存增长
func (p *Pairer) evictStale() {
	if len(p.pending) <= maxPending {
		return
	}
	oldest := int64(0)
	for ts := range p.pending {
		if oldest == 0 || ts < oldest {
			oldest = ts
		}
	}
	delete(p.pending, oldest)
	p.logger.Warn("待配对桶超限，淘汰最旧桶", zap.Int64("open_time_ms", oldest))
}
