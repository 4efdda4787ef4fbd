// Package yahoo 通过 Yahoo Finance chart 接口拉取日线收盘价并构建配对价格序列。
package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"kalman-statarb-backtester/internal/config"
	"kalman-statarb-backtester/internal/core/model"
)

// Client Yahoo Finance 行情客户端
type Client struct {
	// client HTTP 客户端
	client *http.Client
	// baseURL 接口根地址
	baseURL string
}

// NewClient 创建 Yahoo Finance 客户端
// 参数 cfg: 数据源配置（接口地址与超时）
func NewClient(cfg config.YahooConfig) *Client {
	return &Client{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
		baseURL: cfg.BaseURL,
	}
}

// FetchPair 拉取两个标的的日线序列并按时间戳做内连接。
// 仅保留两边都有有效收盘价的交易日。
func (c *Client) FetchPair(ctx context.Context, cfg config.YahooConfig) (model.PriceSeries, error) {
	start, err := cfg.StartTime()
	if err != nil {
		return nil, fmt.Errorf("解析开始日期失败: %w", err)
	}
	end, err := cfg.EndTime()
	if err != nil {
		return nil, fmt.Errorf("解析结束日期失败: %w", err)
	}

	xBars, err := c.fetchDaily(ctx, cfg.SymbolX, start, end)
	if err != nil {
		return nil, fmt.Errorf("拉取 %s 行情失败: %w", cfg.SymbolX, err)
	}
	yBars, err := c.fetchDaily(ctx, cfg.SymbolY, start, end)
	if err != nil {
		return nil, fmt.Errorf("拉取 %s 行情失败: %w", cfg.SymbolY, err)
	}

	series := joinPair(xBars, yBars)
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("Yahoo 价格序列校验失败: %w", err)
	}
	return series, nil
}

// fetchDaily 拉取单个标的的日线收盘价，键为 Unix 秒时间戳。
func (c *Client) fetchDaily(ctx context.Context, symbol string, start, end time.Time) (map[int64]float64, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=history",
		c.baseURL, url.PathEscape(symbol), start.Unix(), end.Unix())

	body, err := c.doRequest(ctx, u)
	if err != nil {
		return nil, err
	}

	return parseChart(body)
}

// joinPair 按时间戳内连接两条收盘价序列，输出按时间升序。
func joinPair(xBars, yBars map[int64]float64) model.PriceSeries {
	keys := make([]int64, 0, len(xBars))
	for ts := range xBars {
		if _, ok := yBars[ts]; ok {
			keys = append(keys, ts)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	series := make(model.PriceSeries, 0, len(keys))
	for _, ts := range keys {
		series = append(series, model.PricePoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			X:         xBars[ts],
			Y:         yBars[ts],
		})
	}
	return series
}

// doRequest 执行 HTTP GET 请求
// 参数 ctx: 上下文
// 参数 url: 请求地址
// 返回: 响应体字节数组
func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	// 设置请求头
	req.Header.Set("User-Agent", "kalman-statarb-backtester/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	return body, nil
}
