// Package debug 仿真过程记录与可视化：JSON 记录、echarts 网页与 PNG 曲线。
package debug

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"hydraulic/network"
	"hydraulic/results"
	"hydraulic/types"
)

// Record 记录历史状态
type Record struct {
	Nodes     []string    // 节点名（含类型）
	NodeTypes []string    // 节点类型
	Links     []string    // 管段名
	Edges     [][2]int    // 管段起止节点
	Time      []float64   // 时间列
	Head      [][]float64 // 水头列
	Flow      [][]float64 // 流量列
	Demand    [][]float64 // 需水列
	Flags     []string    // 每步标记
	Gaps      []float64   // 失败步时间（不进入数值列）
}

// Init 初始化
func (r *Record) Init(net *network.Network) {
	r.Nodes = net.NodeNames()
	r.Links = net.LinkNames()
	r.NodeTypes = make([]string, net.NumNodes())
	for i := range r.NodeTypes {
		r.NodeTypes[i] = net.Node(types.NodeID(i)).Type.String()
	}
	r.Edges = make([][2]int, net.NumLinks())
	for i := range r.Edges {
		l := net.Link(types.LinkID(i))
		r.Edges[i] = [2]int{int(l.Start), int(l.End)}
	}
}

// Update 记录一步
func (r *Record) Update(step results.Step) {
	if step.Flags.Has(results.FlagFailed) {
		r.Gaps = append(r.Gaps, step.Time)
		return
	}
	r.Time = append(r.Time, step.Time)
	r.Head = append(r.Head, append([]float64{}, step.Head...))
	r.Flow = append(r.Flow, append([]float64{}, step.Flow...))
	r.Demand = append(r.Demand, append([]float64{}, step.Demand...))
	r.Flags = append(r.Flags, step.Flags.String())
}

// Render 格式和输出内容
func (r *Record) Render(w io.Writer) error { return json.NewEncoder(w).Encode(r) }

// Len 已记录的收敛步数
func (r *Record) Len() int { return len(r.Time) }

// column 第 i 个量的时间序列
func column(rows [][]float64, i int) []float64 {
	out := make([]float64, len(rows))
	for k, row := range rows {
		out[k] = row[i]
	}
	return out
}

func (r *Record) Error(err error) { slog.Error("debug render", "error", err) }

func (r *Record) nodeLabel(i int) string { return fmt.Sprintf("%s(%s)", r.Nodes[i], r.NodeTypes[i]) }
