package base

import (
	"hydraulic/element"
	"hydraulic/types"
)

// ValveType 定义元件
var ValveType = element.AddElement(types.Valve, Valve{})

// Valve 阀门：PRV 减压、FCV 限流、TCV 节流
//
//	开启    Hs - He - 局部损失 = 0
//	PRV 激活 He = 终点高程 + 设定压力
//	FCV 激活 Q = 设定流量
type Valve struct{}

// Equation 按当前实际状态给出方程
func (Valve) Equation(l *element.Link, hs, he, q float64) element.Row {
	v := l.Valve
	if l.Status == types.Active {
		switch v.Kind {
		case types.PRV:
			return element.Row{R: he - (l.EndElev + l.Setting), DEnd: 1}
		case types.FCV:
			return element.Row{R: q - l.Setting, DFlow: 1}
		}
	}
	km := v.MinorLoss
	if v.Kind == types.TCV {
		km = l.Setting
	}
	ml, dml := MinorLoss(km, v.Diameter, q)
	return element.Row{R: hs - he - ml, DStart: 1, DEnd: -1, DFlow: -dml}
}

// CheckStatus 判定开启/激活/关闭，TCV 保持当前状态
func (Valve) CheckStatus(l *element.Link, hs, he, q float64) types.Status {
	switch l.Valve.Kind {
	case types.PRV:
		return prvStatus(l, hs, he, q)
	case types.FCV:
		return fcvStatus(l, hs, he, q)
	}
	return l.Status
}

func prvStatus(l *element.Link, hs, he, q float64) types.Status {
	hset := l.EndElev + l.Setting
	tol := types.StatusHeadTol
	switch l.Status {
	case types.Active:
		if q < -types.StatusFlowTol {
			return types.Closed
		}
		if hs < hset-tol {
			return types.Open
		}
		return types.Active
	case types.Open:
		if q < -types.StatusFlowTol {
			return types.Closed
		}
		if he > hset+tol {
			return types.Active
		}
		return types.Open
	}
	if hs >= hset+tol && he < hset-tol {
		return types.Active
	}
	if hs < hset-tol && hs > he+tol {
		return types.Open
	}
	return types.Closed
}

func fcvStatus(l *element.Link, hs, he, q float64) types.Status {
	tol := types.StatusHeadTol
	switch l.Status {
	case types.Active:
		if hs-he < -tol {
			return types.Open
		}
		return types.Active
	case types.Open:
		if q < -types.StatusFlowTol {
			return types.Closed
		}
		if q > l.Setting+types.StatusFlowTol {
			return types.Active
		}
		return types.Open
	}
	if hs-he > tol {
		return types.Open
	}
	return types.Closed
}
