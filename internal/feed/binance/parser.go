// Package binance 实现 Binance K 线消息解析。
// 仅产出已收盘的 K 线（k.x == true），未收盘的中间推送丢弃。
package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"kalman-statarb-backtester/internal/feed/pairing"
	"kalman-statarb-backtester/internal/util/fastparse"
	"kalman-statarb-backtester/internal/util/timeutil"
)

// Parser Binance K 线消息解析器
type Parser struct {
	// symbols 已订阅交易对集合（大写），用于过滤无关推送
	symbols map[string]struct{}
}

// NewParser 创建 Binance K 线消息解析器
// 参数 symbols: 已订阅交易对列表（任意大小写）
func NewParser(symbols []string) *Parser {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[strings.ToUpper(s)] = struct{}{}
	}
	return &Parser{symbols: set}
}

// Parse 解析 Binance WebSocket 消息为单边 K 线
// 参数 data: 原始消息字节
// 返回: 已收盘 K 线，非 K 线消息或未收盘推送返回 nil
func (p *Parser) Parse(data []byte) (*pairing.LegBar, error) {
	arrivedAt := timeutil.NowNano()

	var msg KlineEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Binance 消息失败: %w", err)
	}

	if msg.EventType != "kline" {
		return nil, nil
	}

	symbol := strings.ToUpper(msg.Symbol)
	if symbol == "" {
		return nil, nil
	}
	if _, ok := p.symbols[symbol]; !ok {
		return nil, nil
	}

	if !msg.Kline.Closed {
		return nil, nil
	}

	closePx, err := fastparse.ParseFloat(msg.Kline.Close)
	if err != nil {
		return nil, fmt.Errorf("解析收盘价失败: %w", err)
	}
	if closePx <= 0 {
		return nil, fmt.Errorf("收盘价非法: %v", closePx)
	}

	return &pairing.LegBar{
		Symbol:          symbol,
		OpenTimeMs:      msg.Kline.OpenTimeMs,
		Close:           closePx,
		ArrivedAtUnixNs: arrivedAt,
	}, nil
}
