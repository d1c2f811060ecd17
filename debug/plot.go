package debug

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot PNG 曲线图
type Plot struct {
	Record
	Width, Height vg.Length // 零值使用 8x4 英寸
}

// Render 输出节点水头曲线
func (p *Plot) Render(w io.Writer) error {
	return p.render(w, "Node head", "H (m)", p.Nodes, p.Head)
}

// RenderFlow 输出管段流量曲线
func (p *Plot) RenderFlow(w io.Writer) error {
	return p.render(w, "Link flow", "Q (m3/s)", p.Links, p.Flow)
}

func (p *Plot) render(w io.Writer, title, unit string, names []string, rows [][]float64) error {
	if p.Len() == 0 {
		return fmt.Errorf("no converged steps recorded")
	}
	pl := plot.New()
	pl.Title.Text = title
	pl.X.Label.Text = "t (s)"
	pl.Y.Label.Text = unit
	pl.Add(plotter.NewGrid())
	for i, name := range names {
		col := column(rows, i)
		xys := make(plotter.XYs, 0, len(col))
		for k, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			xys = append(xys, plotter.XY{X: p.Time[k], Y: v})
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
		pl.Add(line)
		pl.Legend.Add(name, line)
	}
	pl.Legend.Top = true
	width, height := p.Width, p.Height
	if width == 0 || height == 0 {
		width, height = 8*vg.Inch, 4*vg.Inch
	}
	wt, err := pl.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
