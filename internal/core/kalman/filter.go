// Package kalman 实现二状态随机游走线性回归卡尔曼滤波器。
// 递推估计 y = alpha + beta·x 中时变的 (beta, alpha)，
// 每个观测只更新一次，无 I/O，无隐藏全局状态。
package kalman

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultDelta 默认过程噪声比例
	// 控制 (beta, alpha) 允许漂移的速度，越大越灵敏。
	DefaultDelta = 1e-5
	// DefaultR 默认测量噪声方差
	// 控制单个观测相对先验信念的权重，越大越迟钝。
	DefaultR = 1e-3
)

// Filter 二状态卡尔曼滤波器
// 状态向量 [beta, alpha]，协方差矩阵 P 为 2×2 对称半正定矩阵。
// 每次 Update 就地更新 state 与 P，运行期间不重置。
// 注意：实例不可在多次回测间共享，每次回测创建独立实例。
type Filter struct {
	// state 状态向量 [beta, alpha]
	state *mat.VecDense
	// p 误差协方差矩阵（对状态的不确定性）
	p *mat.Dense
	// q 过程噪声矩阵 delta·I（常量，对角）
	q *mat.Dense
	// r 测量噪声方差（常量，标量）
	r float64

	// eye 2×2 单位矩阵（常量）
	eye *mat.Dense
	// 以下为复用的计算缓冲，避免每步分配
	h    *mat.VecDense
	ph   *mat.VecDense
	gain *mat.VecDense
	kh   *mat.Dense
	ikh  *mat.Dense
	next *mat.Dense
}

// New 创建滤波器
// 参数 delta: 过程噪声比例，必须为正数
// 参数 r: 测量噪声方差，必须为正数（r=0 时若观测到 x=0，新息方差退化为 0，
// 属于致命的配置错误，因此在构造期拒绝）
// 初始状态 beta=alpha=0，初始协方差为单位矩阵（最大不确定性）。
func New(delta, r float64) (*Filter, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("过程噪声比例 delta 必须为正数，当前值: %g", delta)
	}
	if r <= 0 {
		return nil, fmt.Errorf("测量噪声方差 R 必须为正数，当前值: %g", r)
	}

	eye := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	return &Filter{
		state: mat.NewVecDense(2, nil),
		p:     mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		q:     mat.NewDense(2, 2, []float64{delta, 0, 0, delta}),
		r:     r,
		eye:   eye,
		h:     mat.NewVecDense(2, nil),
		ph:    mat.NewVecDense(2, nil),
		gain:  mat.NewVecDense(2, nil),
		kh:    mat.NewDense(2, 2, nil),
		ikh:   mat.NewDense(2, 2, nil),
		next:  mat.NewDense(2, 2, nil),
	}, nil
}

// NewDefault 创建默认参数的滤波器
func NewDefault() *Filter {
	f, err := New(DefaultDelta, DefaultR)
	if err != nil {
		// 默认参数恒为正，不可达
		panic(err)
	}
	return f
}

// Update 按单个观测 (x, y) 更新状态
// 参数 x: 自变量资产价格（调用方保证有限）
// 参数 y: 因变量资产价格
// 返回: (beta, alpha, residual)，residual 为带符号的定价误差，
// 即下游使用的原始价差信号。
func (f *Filter) Update(x, y float64) (beta, alpha, residual float64) {
	// 1. 预测：随机游走先验，状态不变，协方差 P ← P + Q
	f.p.Add(f.p, f.q)

	// 2. 观测向量 H = [x, 1]
	f.h.SetVec(0, x)
	f.h.SetVec(1, 1)

	// 3. 新息 residual = y − H·state
	residual = y - mat.Dot(f.h, f.state)

	// 4. 新息方差 S = H·P·Hᵗ + R（标量）
	f.ph.MulVec(f.p, f.h)
	s := mat.Dot(f.h, f.ph) + f.r

	// 5. 增益 K = P·Hᵗ / S
	f.gain.ScaleVec(1/s, f.ph)

	// 6. 状态更新 state ← state + K·residual
	f.state.AddScaledVec(f.state, residual, f.gain)

	// 7. 协方差更新 P ← (I − K·H)·P
	f.kh.Outer(1, f.gain, f.h)
	f.ikh.Sub(f.eye, f.kh)
	f.next.Mul(f.ikh, f.p)

	// 对称化 P ← (P + Pᵗ)/2，抵御长序列下的浮点漂移
	f.p.Add(f.next, f.next.T())
	f.p.Scale(0.5, f.p)

	return f.state.AtVec(0), f.state.AtVec(1), residual
}

// State 获取当前状态估计 (beta, alpha)
func (f *Filter) State() (beta, alpha float64) {
	return f.state.AtVec(0), f.state.AtVec(1)
}

// Healthy 检查协方差矩阵是否出现数值退化
// 对角元为负说明 P 失去半正定性；这是需要记录但不中止运行的情况。
func (f *Filter) Healthy() bool {
	return f.p.At(0, 0) >= 0 && f.p.At(1, 1) >= 0
}
