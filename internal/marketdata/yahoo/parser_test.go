// Package yahoo chart 解析测试
package yahoo

import (
	"testing"
)

func TestParseChart_AdjClose(t *testing.T) {
	body := []byte(`{
		"chart": {
			"result": [{
				"timestamp": [1672617600, 1672704000, 1672790400],
				"indicators": {
					"quote": [{"close": [99.0, 100.0, 101.0]}],
					"adjclose": [{"adjclose": [98.5, 99.5, 100.5]}]
				}
			}],
			"error": null
		}
	}`)

	bars, err := parseChart(body)
	if err != nil {
		t.Fatalf("parseChart 失败: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("len=%d, want 3", len(bars))
	}
	// 有复权价时优先使用复权价
	if bars[1672617600] != 98.5 {
		t.Fatalf("bars[1672617600]=%f, want 98.5", bars[1672617600])
	}
}

func TestParseChart_FallbackToQuoteClose(t *testing.T) {
	body := []byte(`{
		"chart": {
			"result": [{
				"timestamp": [1672617600, 1672704000],
				"indicators": {
					"quote": [{"close": [99.0, 100.0]}]
				}
			}],
			"error": null
		}
	}`)

	bars, err := parseChart(body)
	if err != nil {
		t.Fatalf("parseChart 失败: %v", err)
	}
	if bars[1672704000] != 100.0 {
		t.Fatalf("bars[1672704000]=%f, want 100", bars[1672704000])
	}
}

func TestParseChart_DropsNullCloses(t *testing.T) {
	body := []byte(`{
		"chart": {
			"result": [{
				"timestamp": [1672617600, 1672704000, 1672790400],
				"indicators": {
					"quote": [{"close": [99.0, null, 101.0]}]
				}
			}],
			"error": null
		}
	}`)

	bars, err := parseChart(body)
	if err != nil {
		t.Fatalf("parseChart 失败: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("len=%d, want 2", len(bars))
	}
	if _, ok := bars[1672704000]; ok {
		t.Fatalf("空值条目未被丢弃")
	}
}

func TestParseChart_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"接口错误", `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"缺少 result", `{"chart":{"result":[]}}`},
		{"缺少时间戳", `{"chart":{"result":[{"indicators":{"quote":[{"close":[1.0]}]}}]}}`},
		{"长度不一致", `{"chart":{"result":[{"timestamp":[1,2],"indicators":{"quote":[{"close":[1.0]}]}}]}}`},
		{"全部为空值", `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[{"close":[null]}]}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseChart([]byte(tt.body)); err == nil {
				t.Fatalf("期望返回错误，实际为 nil")
			}
		})
	}
}

func TestJoinPair_InnerJoinSorted(t *testing.T) {
	x := map[int64]float64{100: 1.0, 200: 2.0, 300: 3.0}
	y := map[int64]float64{200: 20.0, 300: 30.0, 400: 40.0}

	series := joinPair(x, y)
	if len(series) != 2 {
		t.Fatalf("len=%d, want 2", len(series))
	}
	if !series[0].Timestamp.Before(series[1].Timestamp) {
		t.Fatalf("连接结果未按时间升序")
	}
	if series[0].X != 2.0 || series[0].Y != 20.0 {
		t.Fatalf("连接结果错误: %+v", series[0])
	}
}
