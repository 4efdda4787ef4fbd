// Package binance 实现 Binance 现货 WebSocket 客户端。
// 连接地址: wss://stream.binance.com:9443/ws
// 订阅频道: kline_1m
// 心跳机制: 协议层 ping/pong
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kalman-statarb-backtester/internal/config"
	"kalman-statarb-backtester/internal/feed/pairing"
	"kalman-statarb-backtester/internal/util/backoff"
	"kalman-statarb-backtester/internal/util/timeutil"
)

// Client Binance WebSocket 客户端
type Client struct {
	// cfg 实时数据源配置
	cfg config.LiveConfig
	// logger 日志记录器
	logger *zap.Logger
	// parser 消息解析器
	parser *Parser

	// conn WebSocket 连接
	conn *websocket.Conn
	// connMu 连接锁
	connMu sync.Mutex

	// barCh 已收盘 K 线输出通道
	barCh chan *pairing.LegBar

	// lastMsgTime 最后消息时间（纳秒）
	lastMsgTime int64
	// backoff 重连退避
	backoff *backoff.Backoff
	// closed 是否已关闭
	closed int32
}

// NewClient 创建 Binance WebSocket 客户端
// 参数 cfg: 实时数据源配置
// 参数 logger: 日志记录器
func NewClient(cfg config.LiveConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		logger:  logger.Named("binance"),
		parser:  NewParser([]string{cfg.SymbolX, cfg.SymbolY}),
		barCh:   make(chan *pairing.LegBar, 256),
		backoff: backoff.NewDefault(),
	}
}

// Connect 建立 WebSocket 连接
// 参数 ctx: 上下文，用于取消连接
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	header := http.Header{}
	header.Set("User-Agent", "kalman-statarb-backtester/1.0")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("连接 Binance WebSocket 失败: %w", err)
	}

	readTimeout := time.Duration(c.readTimeoutMs()) * time.Millisecond
	if readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			atomic.StoreInt64(&c.lastMsgTime, timeutil.NowNano())
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	}

	c.conn = conn
	c.backoff.Reset()
	c.logger.Info("Binance WebSocket 连接成功", zap.String("url", c.cfg.URL))
	return nil
}

// Subscribe 订阅两条腿的 kline_1m 行情流
func (c *Client) Subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("WebSocket 未连接")
	}

	// Binance 订阅参数要求小写 symbol
	params := []string{
		fmt.Sprintf("%s@kline_1m", strings.ToLower(c.cfg.SymbolX)),
		fmt.Sprintf("%s@kline_1m", strings.ToLower(c.cfg.SymbolY)),
	}

	req := SubscribeRequest{
		Method: "SUBSCRIBE",
		Params: params,
		ID:     1,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("序列化订阅请求失败: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("发送订阅请求失败: %w", err)
	}

	c.logger.Info("Binance 订阅请求已发送", zap.Strings("params", params))
	return nil
}

// Run 启动客户端主循环
// 包含读取循环与心跳循环，ctx 取消后返回
func (c *Client) Run(ctx context.Context) {
	go c.pingLoop(ctx)
	c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	readTimeout := time.Duration(c.readTimeoutMs()) * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if atomic.LoadInt32(&c.closed) == 1 {
			return
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			c.reconnect(ctx)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("读取 Binance 消息失败", zap.Error(err))
			c.reconnect(ctx)
			continue
		}

		if readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}

		atomic.StoreInt64(&c.lastMsgTime, timeutil.NowNano())

		bar, err := c.parser.Parse(data)
		if err != nil {
			c.logger.Warn("解析 Binance 消息失败", zap.Error(err))
			continue
		}
		if bar == nil {
			continue
		}

		select {
		case c.barCh <- bar:
		default:
			c.logger.Warn("Binance barCh 已满，丢弃 K 线",
				zap.String("symbol", bar.Symbol),
				zap.Int64("open_time_ms", bar.OpenTimeMs))
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	intervalMs := c.cfg.PingIntervalMs
	if intervalMs <= 0 {
		intervalMs = c.readTimeoutMs() / 2
		if intervalMs <= 0 {
			intervalMs = 15000
		}
	}

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}

			c.connMu.Lock()
			conn := c.conn
			if conn == nil {
				c.connMu.Unlock()
				continue
			}

			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				c.connMu.Unlock()
				c.logger.Warn("发送 Binance ping 失败", zap.Error(err))
				continue
			}
			c.connMu.Unlock()
		}
	}
}

func (c *Client) reconnect(ctx context.Context) {
	c.closeConn()

	delay := c.backoff.Next()
	c.logger.Info("Binance 准备重连", zap.Duration("delay", delay))

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if err := c.Connect(ctx); err != nil {
		c.logger.Error("Binance 重连失败", zap.Error(err))
		return
	}
	if err := c.Subscribe(); err != nil {
		c.logger.Error("Binance 重新订阅失败", zap.Error(err))
	}
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	c.closeConn()
	close(c.barCh)
	c.logger.Info("Binance 客户端已关闭")
	return nil
}

// BarCh 获取已收盘 K 线通道
func (c *Client) BarCh() <-chan *pairing.LegBar {
	return c.barCh
}

func (c *Client) readTimeoutMs() int {
	if c.cfg.ReadTimeoutMs > 0 {
		return c.cfg.ReadTimeoutMs
	}
	// 未配置时使用 3 分钟（kline_1m 至少每分钟一条推送）
	return 180000
}
