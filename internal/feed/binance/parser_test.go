// Package binance Binance K 线解析器测试
package binance

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// **Feature: kalman-statarb-backtester, Property 6: Kline Parser Round-Trip Consistency**

// TestParser_RoundTrip 测试解析器往返一致性
// 属性: 解析后的 LegBar 应保留交易对、开盘时间与收盘价
func TestParser_RoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	parser := NewParser([]string{"btcusdt", "ethusdt"})

	properties.Property("解析保留收盘价与开盘时间", prop.ForAll(
		func(closePx float64, openTimeMs int64) bool {
			msg := KlineEvent{
				EventType:   "kline",
				EventTimeMs: openTimeMs + 59999,
				Symbol:      "BTCUSDT",
				Kline: Kline{
					OpenTimeMs:  openTimeMs,
					CloseTimeMs: openTimeMs + 59999,
					Symbol:      "BTCUSDT",
					Interval:    "1m",
					Close:       fmt.Sprintf("%.2f", closePx),
					Closed:      true,
				},
			}

			data, err := json.Marshal(msg)
			if err != nil {
				return false
			}

			bar, err := parser.Parse(data)
			if err != nil || bar == nil {
				return false
			}
			if bar.Symbol != "BTCUSDT" || bar.OpenTimeMs != openTimeMs {
				return false
			}

			diff := bar.Close - closePx
			return diff < 0.01 && diff > -0.01
		},
		gen.Float64Range(0.01, 100000),               // closePx
		gen.Int64Range(1700000000000, 1800000000000), // openTimeMs
	))

	properties.TestingRun(t)
}

func TestParser_MessageKinds(t *testing.T) {
	parser := NewParser([]string{"BTCUSDT", "ETHUSDT"})

	tests := []struct {
		name      string
		message   string
		wantBar   bool
		wantSym   string
		wantOpen  int64
		wantClose float64
	}{
		{
			name: "已收盘 kline 消息",
			message: `{
				"e":"kline",
				"E":1700000059999,
				"s":"BTCUSDT",
				"k":{"t":1700000000000,"T":1700000059999,"s":"BTCUSDT","i":"1m","c":"50000.5","x":true}
			}`,
			wantBar:   true,
			wantSym:   "BTCUSDT",
			wantOpen:  1700000000000,
			wantClose: 50000.5,
		},
		{
			name:    "未收盘 kline 消息",
			message: `{"e":"kline","E":1700000030000,"s":"BTCUSDT","k":{"t":1700000000000,"s":"BTCUSDT","i":"1m","c":"50000.5","x":false}}`,
			wantBar: false,
		},
		{
			name:    "非 kline 事件",
			message: `{"e":"aggTrade","E":1700000000000}`,
			wantBar: false,
		},
		{
			name:    "未订阅的交易对",
			message: `{"e":"kline","E":1700000059999,"s":"SOLUSDT","k":{"t":1700000000000,"s":"SOLUSDT","i":"1m","c":"1.0","x":true}}`,
			wantBar: false,
		},
		{
			name:    "订阅确认响应",
			message: `{"result":null,"id":1}`,
			wantBar: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, err := parser.Parse([]byte(tt.message))
			if err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			if tt.wantBar {
				if bar == nil {
					t.Fatalf("期望产出 K 线，实际为 nil")
				}
				if bar.Symbol != tt.wantSym {
					t.Errorf("Symbol=%s, want %s", bar.Symbol, tt.wantSym)
				}
				if bar.OpenTimeMs != tt.wantOpen {
					t.Errorf("OpenTimeMs=%d, want %d", bar.OpenTimeMs, tt.wantOpen)
				}
				if bar.Close != tt.wantClose {
					t.Errorf("Close=%f, want %f", bar.Close, tt.wantClose)
				}
				if bar.ArrivedAtUnixNs <= 0 {
					t.Errorf("ArrivedAtUnixNs=%d, want > 0", bar.ArrivedAtUnixNs)
				}
			} else if bar != nil {
				t.Fatalf("期望 nil，实际产出 K 线: %+v", bar)
			}
		})
	}
}

func TestParser_InvalidMessages(t *testing.T) {
	parser := NewParser([]string{"BTCUSDT"})

	if _, err := parser.Parse([]byte(`{invalid json}`)); err == nil {
		t.Fatalf("期望错误但得到 nil")
	}
	if _, err := parser.Parse([]byte(`{"e":"kline","s":"BTCUSDT","k":{"t":1,"s":"BTCUSDT","c":"abc","x":true}}`)); err == nil {
		t.Fatalf("非法收盘价期望错误但得到 nil")
	}
}
