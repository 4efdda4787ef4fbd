// Package pairing K 线配对器测试
package pairing

import (
	"testing"
	"time"
)

func TestPush_PairsWhenBothLegsArrive(t *testing.T) {
	p := New("BTCUSDT", "ETHUSDT", nil)

	if pt := p.Push(&LegBar{Symbol: "BTCUSDT", OpenTimeMs: 60000, Close: 100}); pt != nil {
		t.Fatalf("单边到达不应产出价格点")
	}
	pt := p.Push(&LegBar{Symbol: "ETHUSDT", OpenTimeMs: 60000, Close: 200})
	if pt == nil {
		t.Fatalf("两边到齐应产出价格点")
	}
	if pt.X != 100 || pt.Y != 200 {
		t.Fatalf("价格点错误: %+v", pt)
	}
	want := time.UnixMilli(60000).UTC()
	if !pt.Timestamp.Equal(want) {
		t.Fatalf("时间戳=%v, want %v", pt.Timestamp, want)
	}
	if p.PendingCount() != 0 {
		t.Fatalf("产出后桶未清空: %d", p.PendingCount())
	}
}

func TestPush_OrderIndependent(t *testing.T) {
	p := New("BTCUSDT", "ETHUSDT", nil)

	p.Push(&LegBar{Symbol: "ETHUSDT", OpenTimeMs: 60000, Close: 200})
	pt := p.Push(&LegBar{Symbol: "BTCUSDT", OpenTimeMs: 60000, Close: 100})
	if pt == nil || pt.X != 100 || pt.Y != 200 {
		t.Fatalf("先 Y 后 X 配对失败: %+v", pt)
	}
}

func TestPush_DropsLateBars(t *testing.T) {
	p := New("BTCUSDT", "ETHUSDT", nil)

	p.Push(&LegBar{Symbol: "BTCUSDT", OpenTimeMs: 120000, Close: 101})
	p.Push(&LegBar{Symbol: "ETHUSDT", OpenTimeMs: 120000, Close: 201})

	// 迟到的旧 K 线不得产出，也不得进入缓存
	if pt := p.Push(&LegBar{Symbol: "BTCUSDT", OpenTimeMs: 60000, Close: 100}); pt != nil {
		t.Fatalf("迟到 K 线不应产出价格点")
	}
	if pt := p.Push(&LegBar{Symbol: "ETHUSDT", OpenTimeMs: 60000, Close: 200}); pt != nil {
		t.Fatalf("迟到 K 线不应产出价格点")
	}
	if p.PendingCount() != 0 {
		t.Fatalf("迟到 K 线进入了缓存: %d", p.PendingCount())
	}
}

func TestPush_CleansOutdatedBucketsAfterEmit(t *testing.T) {
	p := New("BTCUSDT", "ETHUSDT", nil)

	// X 腿在 60000 缺少对端，随后 120000 两边到齐
	p.Push(&LegBar{Symbol: "BTCUSDT", OpenTimeMs: 60000, Close: 99})
	p.Push(&LegBar{Symbol: "BTCUSDT", OpenTimeMs: 120000, Close: 101})
	pt := p.Push(&LegBar{Symbol: "ETHUSDT", OpenTimeMs: 120000, Close: 201})
	if pt == nil {
		t.Fatalf("两边到齐应产出价格点")
	}
	if p.PendingCount() != 0 {
		t.Fatalf("产出后残留旧桶: %d", p.PendingCount())
	}
}

func TestPush_IgnoresUnknownSymbolAndNil(t *testing.T) {
	p := New("BTCUSDT", "ETHUSDT", nil)

	if pt := p.Push(nil); pt != nil {
		t.Fatalf("nil 输入不应产出价格点")
	}
	if pt := p.Push(&LegBar{Symbol: "SOLUSDT", OpenTimeMs: 60000, Close: 1}); pt != nil {
		t.Fatalf("未订阅交易对不应产出价格点")
	}
	if p.PendingCount() != 0 {
		t.Fatalf("PendingCount=%d, want 0", p.PendingCount())
	}
}

func TestPush_EvictsOldestWhenOverLimit(t *testing.T) {
	p := New("BTCUSDT", "ETHUSDT", nil)

	for i := 0; i <= maxPending; i++ {
		p.Push(&LegBar{Symbol: "BTCUSDT", OpenTimeMs: int64((i + 1) * 60000), Close: 100})
	}
	if p.PendingCount() > maxPending {
		t.Fatalf("PendingCount=%d, 超过上限 %d", p.PendingCount(), maxPending)
	}
}
