// Package rolling 实现固定窗口的滚动样本标准差。
// 回测引擎用它把滤波器新息归一化为 z_score：
// 窗口未满时返回固定的预热值（避免早期除零不稳定），
// 窗口满后返回最近 size 个样本的样本标准差。
package rolling

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Window 固定大小的滚动窗口（环形缓冲区）
// 追加为 O(1)，标准差为 O(size)；对日频步长的回测完全够用。
type Window struct {
	// size 窗口大小
	size int
	// warmup 预热期返回的固定标准差
	warmup float64

	// buf 环形缓冲区
	buf []float64
	// pos 写入位置
	pos int
	// full 是否已填满
	full bool
	// count 已观测样本总数
	count int

	// scratch 标准差计算缓冲（样本顺序无关）
	scratch []float64
}

// NewWindow 创建滚动窗口
// 参数 size: 窗口大小，至少为 2（样本标准差需要 n-1 自由度）
// 参数 warmup: 窗口未满时 StdDev 返回的固定值
func NewWindow(size int, warmup float64) (*Window, error) {
	if size < 2 {
		return nil, fmt.Errorf("窗口大小必须至少为 2，当前值: %d", size)
	}
	return &Window{
		size:    size,
		warmup:  warmup,
		buf:     make([]float64, size),
		scratch: make([]float64, size),
	}, nil
}

// Push 追加一个样本
func (w *Window) Push(v float64) {
	w.buf[w.pos] = v
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
		w.full = true
	}
	w.count++
}

// Count 已观测样本总数（含被窗口淘汰的）
func (w *Window) Count() int {
	return w.count
}

// Full 窗口是否已满
func (w *Window) Full() bool {
	return w.full
}

// StdDev 当前滚动标准差
// 窗口未满（预热期）返回固定预热值；窗口满后返回最近 size 个
// 样本的样本标准差（n-1 自由度）。
func (w *Window) StdDev() float64 {
	if !w.full {
		return w.warmup
	}
	copy(w.scratch, w.buf)
	return stat.StdDev(w.scratch, nil)
}
