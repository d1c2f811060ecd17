package network

import "hydraulic/types"

// Point 曲线点
type Point struct {
	X, Y float64
}

// Demand 单项需水（同一节点可有多项，按类别区分）
type Demand struct {
	Base     float64 // 基础需水量 (m³/s)
	Pattern  string  // 模式名，空表示恒定
	Category string  // 类别
}

// Leak 节点漏损
type Leak struct {
	Area      float64 // 漏口面积 (m²)
	Discharge float64 // 流量系数 Cd
	Active    bool    // 初始是否开启
}

// Junction 用水节点属性
type Junction struct {
	Elevation       float64
	Demands         []Demand
	MinPressure     *float64 // PDD 最小压力，空使用全局选项
	NominalPressure *float64 // PDD 额定压力，空使用全局选项
	Leak            *Leak
}

// Pressures 以节点设置覆盖全局 PDD 最小/额定压力
func (j *Junction) Pressures(pmin, pnom float64) (float64, float64) {
	if j.MinPressure != nil {
		pmin = *j.MinPressure
	}
	if j.NominalPressure != nil {
		pnom = *j.NominalPressure
	}
	return pmin, pnom
}

// Reservoir 水库属性
type Reservoir struct {
	Head    float64
	Pattern string // 水头模式
}

// Tank 水池属性
type Tank struct {
	Elevation   float64
	MinLevel    float64
	MaxLevel    float64
	InitLevel   float64
	Diameter    float64 // 圆柱截面直径
	VolumeCurve []Point // 液位-容积曲线，非空时优先
}

// Node 节点（按类型标记的变体）
type Node struct {
	Name      string
	Type      types.NodeType
	Junction  *Junction
	Reservoir *Reservoir
	Tank      *Tank
}

// Elevation 节点高程（水库取其水头）
func (n *Node) Elevation() float64 {
	switch n.Type {
	case types.Junction:
		return n.Junction.Elevation
	case types.Tank:
		return n.Tank.Elevation
	default:
		return n.Reservoir.Head
	}
}

// Pipe 管道参数
type Pipe struct {
	Length     float64
	Diameter   float64
	Roughness  float64 // HW 为 C 系数，DW 为绝对粗糙度 (mm)
	MinorLoss  float64
	CheckValve bool
}

// Pump 水泵参数
type Pump struct {
	Curve []Point // 1 点（设计点）或 3 点曲线
	Speed float64 // 初始转速比，0 视为 1
}

// Valve 阀门参数
type Valve struct {
	Kind      types.ValveKind
	Diameter  float64
	MinorLoss float64
	Setting   float64 // PRV 压力 (m) / FCV 流量 (m³/s) / TCV 局部损失系数
}

// Link 管段（按类型标记的变体）
type Link struct {
	Name   string
	Type   types.LinkType
	Start  types.NodeID
	End    types.NodeID
	Status types.Status // 初始状态
	Pipe   *Pipe
	Pump   *Pump
	Valve  *Valve
}

// Diameter 过流直径（水泵为 0）
func (l *Link) Diameter() float64 {
	switch l.Type {
	case types.Pipe:
		return l.Pipe.Diameter
	case types.Valve:
		return l.Valve.Diameter
	}
	return 0
}

// InitialSetting 初始设定值
func (l *Link) InitialSetting() float64 {
	switch l.Type {
	case types.Pump:
		if l.Pump.Speed > 0 {
			return l.Pump.Speed
		}
		return 1
	case types.Valve:
		return l.Valve.Setting
	}
	return 0
}
