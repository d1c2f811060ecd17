// Package hydraulic 管网水力仿真：构造管网、设置控制与选项后按时间步求解。
package hydraulic

import (
	"context"
	"fmt"
	"os"

	"hydraulic/config"
	"hydraulic/control"
	"hydraulic/network"
	"hydraulic/results"
	"hydraulic/simulation"
)

// Hydraulic 管网模拟器
type Hydraulic struct {
	*network.Builder
	Rules   []control.Rule
	Options config.Options
}

// New 初始化
func New() *Hydraulic {
	return &Hydraulic{Builder: network.NewBuilder(), Options: config.Default()}
}

// LoadOptions 加载 YAML 选项文件
func (h *Hydraulic) LoadOptions(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	opts, err := config.Load(file)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	opts.Logger = h.Options.Logger
	h.Options = opts
	return nil
}

// AddRule 添加控制规则
func (h *Hydraulic) AddRule(rule control.Rule) { h.Rules = append(h.Rules, rule) }

// Simulate 构建管网并运行，init 可在运行前调整仿真（如设置调试记录）
func (h *Hydraulic) Simulate(ctx context.Context, init func(sim *simulation.Simulation)) (*results.Series, error) {
	net, err := h.Build()
	if err != nil {
		return nil, err
	}
	sim, err := simulation.New(net, h.Rules, h.Options)
	if err != nil {
		return nil, err
	}
	if init != nil {
		init(sim)
	}
	return sim.Run(ctx)
}
