// Package rolling 滚动窗口测试
package rolling

import (
	"math"
	"testing"
)

// naiveStdDev 朴素样本标准差（n-1 自由度），作为对照实现
func naiveStdDev(values []float64) float64 {
	n := len(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

func TestNewWindow_InvalidSize(t *testing.T) {
	for _, size := range []int{-1, 0, 1} {
		if _, err := NewWindow(size, 1.0); err == nil {
			t.Fatalf("NewWindow(%d) 应返回错误", size)
		}
	}
}

// TestWindow_Warmup 预热期语义
// 前 size-1 个样本期间无论离散度多大，StdDev 都固定为预热值；
// 第 size 个样本起等于最近 size 个样本的样本标准差。
func TestWindow_Warmup(t *testing.T) {
	const size = 30
	w, err := NewWindow(size, 1.0)
	if err != nil {
		t.Fatalf("NewWindow 失败: %v", err)
	}

	values := make([]float64, 0, 40)
	for i := 0; i < 40; i++ {
		v := float64(i*i%17) - 8 // 人为制造高离散度
		w.Push(v)
		values = append(values, v)

		if i < size-1 {
			if got := w.StdDev(); got != 1.0 {
				t.Fatalf("第 %d 个样本后 StdDev=%g, 预热期应为 1.0", i+1, got)
			}
			continue
		}

		want := naiveStdDev(values[len(values)-size:])
		if got := w.StdDev(); math.Abs(got-want) > 1e-9*(1+math.Abs(want)) {
			t.Fatalf("第 %d 个样本后 StdDev=%g, want %g", i+1, got, want)
		}
	}
}

func TestWindow_ConstantValues(t *testing.T) {
	w, _ := NewWindow(5, 1.0)
	for i := 0; i < 10; i++ {
		w.Push(3.14)
	}
	if got := w.StdDev(); got != 0 {
		t.Fatalf("常量序列 StdDev=%g, want 0", got)
	}
}

func TestWindow_CountAndFull(t *testing.T) {
	w, _ := NewWindow(3, 1.0)
	if w.Full() {
		t.Fatalf("空窗口不应为满")
	}
	for i := 0; i < 5; i++ {
		w.Push(float64(i))
	}
	if !w.Full() {
		t.Fatalf("5 个样本后窗口应为满")
	}
	if w.Count() != 5 {
		t.Fatalf("Count()=%d, want 5", w.Count())
	}
}
