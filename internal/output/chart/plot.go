// Package chart 将回测结果绘制为 PNG 图表。
package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"kalman-statarb-backtester/internal/core/model"
)

// SaveEquityCurve 将权益曲线保存为 PNG 文件。
func SaveEquityCurve(res *model.ResultSeries, path string) error {
	if res == nil || res.Len() < 2 {
		return fmt.Errorf("结果序列至少需要两个点")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	plotterData := make(plotter.XYs, res.Len())
	for i := 0; i < res.Len(); i++ {
		plotterData[i].X = float64(res.Timestamps[i].Unix())
		plotterData[i].Y = res.Equity[i]
	}

	p := plot.New()
	p.Title.Text = "Equity Curve"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Equity"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	grid := plotter.NewGrid()
	dashes := []vg.Length{vg.Points(2), vg.Points(2)}
	grid.Horizontal.Dashes = dashes
	grid.Vertical.Dashes = dashes
	p.Add(grid)

	line, err := plotter.NewLine(plotterData)
	if err != nil {
		return fmt.Errorf("创建权益曲线失败: %w", err)
	}
	line.LineStyle.Color = color.RGBA{R: 255, A: 255}
	p.Add(line)

	if err := p.Save(12*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("保存图表失败: %w", err)
	}
	return nil
}

// SaveZScore 将 z-score 序列与进出场阈值保存为 PNG 文件。
func SaveZScore(res *model.ResultSeries, entry, exit float64, path string) error {
	if res == nil || res.Len() < 2 {
		return fmt.Errorf("结果序列至少需要两个点")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	plotterData := make(plotter.XYs, res.Len())
	for i := 0; i < res.Len(); i++ {
		plotterData[i].X = float64(res.Timestamps[i].Unix())
		plotterData[i].Y = res.ZScore[i]
	}

	p := plot.New()
	p.Title.Text = "Spread Z-Score"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Z-Score"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	line, err := plotter.NewLine(plotterData)
	if err != nil {
		return fmt.Errorf("创建 z-score 曲线失败: %w", err)
	}
	line.LineStyle.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	// 进出场阈值参考线
	for _, level := range []float64{entry, -entry, exit, -exit} {
		ref := plotter.XYs{
			{X: plotterData[0].X, Y: level},
			{X: plotterData[len(plotterData)-1].X, Y: level},
		}
		refLine, err := plotter.NewLine(ref)
		if err != nil {
			return fmt.Errorf("创建阈值参考线失败: %w", err)
		}
		refLine.LineStyle.Color = color.RGBA{R: 128, G: 128, B: 128, A: 255}
		refLine.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(refLine)
	}

	if err := p.Save(12*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("保存图表失败: %w", err)
	}
	return nil
}
