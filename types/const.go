package types

// 物理常量
const (
	Gravity   = 9.81     // 重力加速度 (m/s²)
	Viscosity = 1.004e-6 // 20°C 水运动粘度 (m²/s)
	HWConst   = 10.667   // Hazen-Williams 国际单位系数
	HWExpo    = 1.852    // Hazen-Williams 流量指数
)

// 默认参数常量定义
var (
	Tolerance          = 1e-6 // 残差收敛容差（无穷范数）
	MaxIterations      = 3000 // 最大牛顿迭代次数
	MaxStatusRetries   = 20   // 单步最大状态切换重装配次数
	MaxControlTrials   = 40   // 单步后处理控制最大重解次数
	MaxOscillation     = 25   // 阻尼模式最大震荡次数
	BacktrackRho       = 0.5  // 回溯线搜索缩减系数
	BacktrackMaxIter   = 20   // 回溯线搜索最大次数
	PDDSmoothing       = 0.01 // PDD 平滑区宽度（归一化压力比例）
	LeakSmoothing      = 0.01 // 漏损平滑区宽度 (m)
	DefaultHydraulicDt = 3600.0
	DefaultMinStep     = 1.0
	MaxStepReductions  = 8
	InitialFlow        = 0.001 // 初始流量猜测 (m³/s)
	StatusFlowTol      = 1e-7  // 状态判定流量容差
	StatusHeadTol      = 1e-4  // 状态判定水头容差
	TimeEpsilon        = 1e-6  // 时间比较容差 (s)
)
