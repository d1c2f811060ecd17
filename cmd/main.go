package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"hydraulic"
	"hydraulic/debug"
	"hydraulic/logging"
	"hydraulic/network"
	"hydraulic/pattern"
	"hydraulic/simulation"
	"hydraulic/types"
)

func main() {
	h := hydraulic.New()
	h.Options.Duration = 24 * 3600
	h.Options.Mode = types.PressureDependent
	h.Options.Logger = logging.NewLogger("info", os.Stderr)
	if len(os.Args) > 1 {
		if err := h.LoadOptions(os.Args[1]); err != nil {
			log.Fatal(err)
		}
	}

	day, err := pattern.New("day", 3600, []float64{
		0.5, 0.4, 0.4, 0.4, 0.5, 0.8, 1.2, 1.5, 1.4, 1.2, 1.1, 1.0,
		1.1, 1.0, 0.9, 0.9, 1.0, 1.2, 1.4, 1.3, 1.1, 0.9, 0.7, 0.6,
	}, pattern.Wrap)
	if err != nil {
		log.Fatal(err)
	}
	h.AddPattern(day)
	h.AddReservoir("R1", network.Reservoir{Head: 45})
	h.AddJunction("J1", network.Junction{Elevation: 10, Demands: []network.Demand{{Base: 0.01, Pattern: "day"}}})
	h.AddJunction("J2", network.Junction{Elevation: 12, Demands: []network.Demand{{Base: 0.015, Pattern: "day"}}})
	h.AddTank("T1", network.Tank{Elevation: 40, MaxLevel: 6, InitLevel: 3, Diameter: 15})
	h.AddPipe("P1", "R1", "J1", network.Pipe{Length: 800, Diameter: 0.3, Roughness: 120})
	h.AddPipe("P2", "J1", "J2", network.Pipe{Length: 500, Diameter: 0.2, Roughness: 110})
	h.AddPipe("P3", "J2", "T1", network.Pipe{Length: 400, Diameter: 0.2, Roughness: 110})

	charts := &debug.Charts{}
	series, err := h.Simulate(context.Background(), func(sim *simulation.Simulation) {
		sim.SetDebug(charts)
	})
	if series == nil {
		log.Fatal(err)
	}
	if err != nil {
		log.Println(err)
	}
	for _, step := range series.Steps() {
		fmt.Printf("t=%6.0f  H=%v  Q=%v  %s\n", step.Time, step.Head, step.Flow, step.Flags)
	}
	http.HandleFunc("/", charts.Handler)
	log.Println("charts at http://localhost:8081")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
