// Package element 管段元件注册表：各类管段的能量方程与状态判定。
package element

import (
	"fmt"

	"hydraulic/network"
	"hydraulic/types"
)

// Link 组装时元件可见的管段量
type Link struct {
	ID        types.LinkID
	*network.Link
	Curve     network.PumpCurve // 水泵曲线
	Setting   float64           // 当前设定值
	Status    types.Status      // 当前实际状态
	Headloss  types.Headloss    // 管道水头损失公式
	StartElev float64           // 起点高程
	EndElev   float64           // 终点高程
}

// Row 管段方程残差及对 (起点水头, 终点水头, 流量) 的偏导
type Row struct {
	R      float64
	DStart float64
	DEnd   float64
	DFlow  float64
}

// Element 管段元件实现接口
type Element interface {
	// Equation 非关闭状态下的管段方程
	Equation(l *Link, hs, he, q float64) Row
	// CheckStatus 依据收敛解判定新的实际状态
	CheckStatus(l *Link, hs, he, q float64) types.Status
}

// ElementList 元件类型注册表
var ElementList = map[types.LinkType]Element{}

// AddElement 注册元件类型，重复注册触发 panic
func AddElement(t types.LinkType, e Element) types.LinkType {
	if _, ok := ElementList[t]; ok {
		panic(fmt.Sprintf("元件重复注册: %s", t))
	}
	ElementList[t] = e
	return t
}

// Get 取已注册元件，未注册触发 panic
func Get(t types.LinkType) Element {
	e, ok := ElementList[t]
	if !ok {
		panic(fmt.Sprintf("元件未注册: %s", t))
	}
	return e
}

// Closed 关闭管段方程 Q = 0
func Closed(q float64) Row { return Row{R: q, DFlow: 1} }
