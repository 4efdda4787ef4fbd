// Package csvfile 从本地 CSV 文件加载配对价格序列。
// 文件需包含表头行，时间戳列与两条价格列的列名可配置。
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"kalman-statarb-backtester/internal/config"
	"kalman-statarb-backtester/internal/core/model"
)

// 支持的时间戳格式，按顺序尝试
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// Load 读取 CSV 文件并构造价格序列。
// 返回的序列已通过 Validate 校验（有限值、时间戳严格递增）。
func Load(cfg config.CSVConfig) (model.PriceSeries, error) {
	file, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("打开 CSV 文件失败: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取 CSV 表头失败: %w", err)
	}

	headerMap := make(map[string]int, len(headers))
	for index, header := range headers {
		headerMap[header] = index
	}

	var indexMap [3]int
	for i, column := range []string{cfg.TimestampColumn, cfg.XColumn, cfg.YColumn} {
		index, ok := headerMap[column]
		if !ok {
			return nil, fmt.Errorf("CSV 文件 %s 缺少列 %q", cfg.Path, column)
		}
		indexMap[i] = index
	}

	var series model.PriceSeries
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取 CSV 第 %d 行失败: %w", line+1, err)
		}
		line++

		ts, err := parseTime(record[indexMap[0]])
		if err != nil {
			return nil, fmt.Errorf("CSV 第 %d 行时间戳无效: %w", line, err)
		}
		x, err := parsePrice(record[indexMap[1]])
		if err != nil {
			return nil, fmt.Errorf("CSV 第 %d 行 X 价格无效: %w", line, err)
		}
		y, err := parsePrice(record[indexMap[2]])
		if err != nil {
			return nil, fmt.Errorf("CSV 第 %d 行 Y 价格无效: %w", line, err)
		}

		series = append(series, model.PricePoint{Timestamp: ts, X: x, Y: y})
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("CSV 价格序列校验失败: %w", err)
	}
	return series, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间戳 %q", s)
}

// parsePrice 使用 decimal 严格解析价格，拒绝空串与非数字文本。
func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("无法解析价格 %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}
