package simulation

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"hydraulic/config"
	"hydraulic/control"
	"hydraulic/network"
	"hydraulic/results"
)

// Scenario 批量运行中的一个场景
type Scenario struct {
	Name    string
	Rules   []control.Rule
	Options config.Options
}

// BatchResult 单个场景的结果，失败场景仍保留已完成的步
type BatchResult struct {
	Name   string
	Series *results.Series
	Err    error
}

// RunBatch 并行运行多个场景，网络只读共享，每个场景独占状态
// workers <= 0 时使用 GOMAXPROCS；单场景失败不影响其它场景，只有 ctx 取消会中止整批
func RunBatch(ctx context.Context, net *network.Network, scenarios []Scenario, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]BatchResult, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range scenarios {
		i := i
		sc := scenarios[i]
		out[i].Name = sc.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = err
				return err
			}
			sim, err := New(net, sc.Rules, sc.Options)
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Series, out[i].Err = sim.Run(gctx)
			if errors.Is(out[i].Err, context.Canceled) || errors.Is(out[i].Err, context.DeadlineExceeded) {
				return out[i].Err
			}
			return nil
		})
	}
	return out, g.Wait()
}
