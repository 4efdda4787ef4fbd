// Package binance 定义 Binance 行情消息类型。
package binance

// SubscribeRequest Binance WebSocket 订阅请求
// 订阅 kline_1m 行情流。
type SubscribeRequest struct {
	// Method 订阅方法: SUBSCRIBE
	Method string `json:"method"`
	// Params 订阅参数列表，如 "btcusdt@kline_1m"
	Params []string `json:"params"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// SubscribeResponse Binance WebSocket 订阅响应
// 通常形如 {"result":null,"id":1}。
type SubscribeResponse struct {
	// Result 结果（成功为 null）
	Result any `json:"result"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// KlineEvent Binance K 线推送消息（kline）
// 字段映射：
// - e: 事件类型（kline）
// - E: 事件时间（毫秒）
// - s: Symbol（如 BTCUSDT）
// - k: K 线数据
type KlineEvent struct {
	// EventType 事件类型: kline
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对（大写）
	Symbol string `json:"s"`
	// Kline K 线数据
	Kline Kline `json:"k"`
}

// Kline K 线数据
// 收盘价为字符串，需要解析；x 为 true 表示该 K 线已收盘。
type Kline struct {
	// OpenTimeMs K 线开盘时间（毫秒）
	OpenTimeMs int64 `json:"t"`
	// CloseTimeMs K 线收盘时间（毫秒）
	CloseTimeMs int64 `json:"T"`
	// Symbol 交易对
	Symbol string `json:"s"`
	// Interval K 线周期，如 1m
	Interval string `json:"i"`
	// Close 收盘价（字符串）
	Close string `json:"c"`
	// Closed 该 K 线是否已收盘
	Closed bool `json:"x"`
}
