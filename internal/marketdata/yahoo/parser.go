// Package yahoo chart 响应解析
package yahoo

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// parseChart 解析 chart 接口响应，返回 Unix 秒时间戳到收盘价的映射。
// 优先使用复权收盘价 adjclose，缺失时回退到 quote.close；空值条目丢弃。
func parseChart(body []byte) (map[int64]float64, error) {
	if errMsg := gjson.GetBytes(body, "chart.error.description"); errMsg.Exists() {
		return nil, fmt.Errorf("chart 接口返回错误: %s", errMsg.Str)
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, errors.New("chart 响应缺少 result")
	}

	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return nil, errors.New("chart 响应缺少时间戳")
	}

	closes := result.Get("indicators.adjclose.0.adjclose").Array()
	if len(closes) == 0 {
		closes = result.Get("indicators.quote.0.close").Array()
	}
	if len(closes) != len(timestamps) {
		return nil, fmt.Errorf("chart 响应长度不一致: 时间戳 %d 个，收盘价 %d 个",
			len(timestamps), len(closes))
	}

	bars := make(map[int64]float64, len(timestamps))
	for i, ts := range timestamps {
		c := closes[i]
		// 停牌日等场景收盘价为 null
		if c.Type == gjson.Null {
			continue
		}
		v := c.Float()
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		bars[ts.Int()] = v
	}

	if len(bars) == 0 {
		return nil, errors.New("chart 响应无有效收盘价")
	}
	return bars, nil
}
