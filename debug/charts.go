package debug

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Charts 曲线绘制
type Charts struct {
	Record
}

var legend = opts.Legend{
	Type:   "scroll",
	Orient: "vertical",
	Right:  "10",
	Top:    "20",
	Bottom: "20",
}

// newLine 时间曲线
func newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithLegendOpts(legend),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "t (s)",
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	return line
}

// addSeries 每个量一条曲线
func (c *Charts) addSeries(line *charts.Line, names []string, rows [][]float64) {
	line.SetXAxis(c.Time)
	for i, name := range names {
		col := column(rows, i)
		items := make([]opts.LineData, len(col))
		for k, v := range col {
			items[k] = opts.LineData{Value: v}
		}
		line.AddSeries(name, items)
	}
}

// nodeColors 按节点类别着色：用水节点、水库、水池
var nodeColors = [...]string{"#1987c7b7", "#c71979b7", "#19c77bb7"}

// network 管网拓扑图，边值为最后一步流量
func (c *Charts) network() *charts.Graph {
	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "管网节点信息",
			Subtitle: "节点与管段连接图",
		}),
		charts.WithLegendOpts(legend),
	)
	category := map[string]int{"junction": 0, "reservoir": 1, "tank": 2}
	nodes := make([]opts.GraphNode, len(c.Nodes))
	for i := range c.Nodes {
		k := category[c.NodeTypes[i]]
		nodes[i] = opts.GraphNode{
			Name:      c.nodeLabel(i),
			Category:  k,
			ItemStyle: &opts.ItemStyle{Color: nodeColors[k]},
			Tooltip:   &opts.Tooltip{Show: opts.Bool(true)},
		}
	}
	var last []float64
	if n := len(c.Flow); n > 0 {
		last = c.Flow[n-1]
	}
	links := make([]opts.GraphLink, len(c.Edges))
	for i, e := range c.Edges {
		links[i] = opts.GraphLink{
			Source: nodes[e[0]].Name,
			Target: nodes[e[1]].Name,
		}
		if last != nil {
			links[i].Value = float32(last[i])
		}
	}
	graph.AddSeries("管网", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Categories: []*opts.GraphCategory{
				{Name: "用水节点"},
				{Name: "水库"},
				{Name: "水池"},
			},
			Roam:               opts.Bool(true),
			Force:              &opts.GraphForce{Repulsion: 80},
			EdgeLabel:          &opts.EdgeLabel{Show: opts.Bool(true)},
			FocusNodeAdjacency: opts.Bool(true),
		}),
	)
	graph.SetSeriesOptions(
		charts.WithLineStyleOpts(opts.LineStyle{
			Curveness: 0.3,
		}),
	)
	return graph
}

// Render 格式化
func (c *Charts) Render(w io.Writer) error {
	if c.Len() == 0 {
		return fmt.Errorf("no converged steps recorded")
	}
	head := newLine("水头曲线", "节点水头随时间变化曲线")
	c.addSeries(head, c.Nodes, c.Head)
	flow := newLine("流量曲线", "管段流量随时间变化曲线")
	c.addSeries(flow, c.Links, c.Flow)
	demand := newLine("需水曲线", "节点实际需水随时间变化曲线")
	c.addSeries(demand, c.Nodes, c.Demand)

	page := components.NewPage()
	page.AddCharts(
		c.network(),
		head,
		flow,
		demand,
	)
	return page.Render(w)
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		c.Error(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
