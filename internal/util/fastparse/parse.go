// Package fastparse 提供热路径上的字符串解析函数。
// 交易所 K 线推送中价格以字符串形式出现，使用 strconv 直接转换，
// 避免 fmt 包的额外开销。
package fastparse

import (
	"strconv"
)

// ParseFloat 解析浮点数字符串
// 参数 s: 待解析的字符串，如 "12345.67"
// 返回: 解析后的浮点数和可能的错误
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// MustParseFloat 解析浮点数，失败时返回 0
// 用于已知格式正确的场景，简化错误处理
func MustParseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatFloat 格式化浮点数为字符串
// 参数 prec: 小数位数，-1 表示最短表示
func FormatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
