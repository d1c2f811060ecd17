// Package config 仿真选项：默认值、YAML 加载与校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"hydraulic/logging"
	"hydraulic/types"
)

// Options 仿真选项，时间单位为秒，压力单位为米
type Options struct {
	Mode              types.Mode           `yaml:"mode"`
	HydraulicStep     float64              `yaml:"hydraulic_step"`
	Duration          float64              `yaml:"duration"`
	ReportStep        float64              `yaml:"report_step"` // 0 表示每步记录
	RuleStep          float64              `yaml:"rule_step"`   // 0 表示不额外细分
	Tolerance         float64              `yaml:"tolerance"`
	MaxIterations     int                  `yaml:"max_iterations"`
	MaxStatusRetries  int                  `yaml:"max_status_retries"`
	MaxControlTrials  int                  `yaml:"max_control_trials"`
	PDDSmoothing      float64              `yaml:"pdd_smoothing"`
	MinimumPressure   float64              `yaml:"minimum_pressure"`
	NominalPressure   float64              `yaml:"nominal_pressure"`
	TankPolicy        types.TankPolicy     `yaml:"tank_policy"`
	FailurePolicy     types.FailurePolicy  `yaml:"failure_policy"`
	MinStep           float64              `yaml:"min_step"`
	MaxStepReductions int                  `yaml:"max_step_reductions"`
	DemandMultiplier  float64              `yaml:"demand_multiplier"`
	Headloss          types.Headloss       `yaml:"headloss"`
	ConflictPolicy    types.ConflictPolicy `yaml:"conflict_policy"`
	LineSearch        types.LineSearch     `yaml:"line_search"`
	LinearSolver      types.LinearSolver   `yaml:"linear_solver"`
	LogLevel          string               `yaml:"log_level"`

	// Logger 非空时优先于 LogLevel
	Logger *slog.Logger `yaml:"-"`
}

// Default 默认选项
func Default() Options {
	return Options{
		Mode:              types.DemandDriven,
		HydraulicStep:     types.DefaultHydraulicDt,
		Duration:          0,
		Tolerance:         types.Tolerance,
		MaxIterations:     types.MaxIterations,
		MaxStatusRetries:  types.MaxStatusRetries,
		MaxControlTrials:  types.MaxControlTrials,
		PDDSmoothing:      types.PDDSmoothing,
		MinimumPressure:   0,
		NominalPressure:   20,
		TankPolicy:        types.TankClampAndFlag,
		FailurePolicy:     types.FailAbort,
		MinStep:           types.DefaultMinStep,
		MaxStepReductions: types.MaxStepReductions,
		DemandMultiplier:  1,
		Headloss:          types.HazenWilliams,
		ConflictPolicy:    types.LastWins,
		LineSearch:        types.Backtracking,
		LinearSolver:      types.SparseLU,
	}
}

// Load 在默认值基础上解码 YAML，未知字段报错，空输入返回默认值
func Load(r io.Reader) (Options, error) {
	opts := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("parsing options: %w", err)
	}
	return opts, opts.Validate()
}

// Validate 校验选项取值
func (o Options) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(o.HydraulicStep > 0, "hydraulic_step must be positive, got %v", o.HydraulicStep)
	check(o.Duration >= 0, "duration must not be negative, got %v", o.Duration)
	check(o.ReportStep >= 0, "report_step must not be negative, got %v", o.ReportStep)
	check(o.RuleStep >= 0, "rule_step must not be negative, got %v", o.RuleStep)
	check(o.Tolerance > 0, "tolerance must be positive, got %v", o.Tolerance)
	check(o.MaxIterations > 0, "max_iterations must be positive, got %d", o.MaxIterations)
	check(o.MaxStatusRetries >= 0, "max_status_retries must not be negative, got %d", o.MaxStatusRetries)
	check(o.MaxControlTrials >= 0, "max_control_trials must not be negative, got %d", o.MaxControlTrials)
	check(o.PDDSmoothing >= 0 && o.PDDSmoothing <= 0.5, "pdd_smoothing must be in [0, 0.5], got %v", o.PDDSmoothing)
	check(o.NominalPressure > o.MinimumPressure, "nominal_pressure %v must exceed minimum_pressure %v", o.NominalPressure, o.MinimumPressure)
	check(o.MinStep > 0 && o.MinStep <= o.HydraulicStep, "min_step must be in (0, hydraulic_step], got %v", o.MinStep)
	check(o.MaxStepReductions >= 0, "max_step_reductions must not be negative, got %d", o.MaxStepReductions)
	check(o.DemandMultiplier >= 0, "demand_multiplier must not be negative, got %v", o.DemandMultiplier)
	return errors.Join(errs...)
}

// Log 运行日志：Logger 优先，其次按 LogLevel 写 stderr，均未设置时丢弃
func (o Options) Log() *slog.Logger {
	switch {
	case o.Logger != nil:
		return o.Logger
	case o.LogLevel != "":
		return logging.NewLogger(o.LogLevel, os.Stderr)
	}
	return logging.Discard()
}
