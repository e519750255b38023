// Package telemetry computes and logs per-turn balance statistics across
// alive players: mean and standard deviation of population, army, and
// territory. Grounded in the teacher's simulator.GetStatistics /
// CalculatePopulationVariance (a hand-rolled variance calculation over
// the settler population), generalized here to a three-metric summary
// computed with github.com/montanaflynn/stats instead of the teacher's
// inline math, and logged with golang.org/x/text/message for the
// teacher's habit of printing large counts in human-readable form.
package telemetry

import (
	"log"

	"github.com/montanaflynn/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ensi/pkg/ensimodel"
)

// Snapshot is one turn's cross-player summary.
type Snapshot struct {
	Turn            uint32
	AliveCount      int
	MeanPopulation  float64
	StdevPopulation float64
	MeanArmy        float64
	StdevArmy       float64
	MeanTerritory   float64
	StdevTerritory  float64
}

// Summarize computes a Snapshot for turn from the alive players' cached
// PlayerStats. Players must have had RecomputeStats called for this turn
// already; Summarize does not recompute anything itself.
func Summarize(turn uint32, players []*ensimodel.Player) Snapshot {
	var pop, army, territory stats.Float64Data
	for _, p := range players {
		if !p.Alive {
			continue
		}
		pop = append(pop, float64(p.Stats.TotalPopulation))
		army = append(army, float64(p.Stats.TotalArmy))
		territory = append(territory, float64(p.Stats.Territory))
	}

	snap := Snapshot{Turn: turn, AliveCount: len(pop)}
	if len(pop) == 0 {
		return snap
	}

	snap.MeanPopulation, _ = pop.Mean()
	snap.StdevPopulation, _ = pop.StandardDeviation()
	snap.MeanArmy, _ = army.Mean()
	snap.StdevArmy, _ = army.StandardDeviation()
	snap.MeanTerritory, _ = territory.Mean()
	snap.StdevTerritory, _ = territory.StandardDeviation()
	return snap
}

var printer = message.NewPrinter(language.English)

// Log writes snap as a single line via the standard log package,
// mirroring the teacher's "<Subsystem> %s: ..." message shape. Counts
// are formatted with a comma-grouped printer so large population/army
// figures stay readable, the way the teacher's milestone logs do for
// year/population counters.
func Log(snap Snapshot) {
	msg := printer.Sprintf("turn=%d alive=%d pop=%.1f±%.1f army=%.1f±%.1f territory=%.1f±%.1f",
		snap.Turn, snap.AliveCount,
		snap.MeanPopulation, snap.StdevPopulation,
		snap.MeanArmy, snap.StdevArmy,
		snap.MeanTerritory, snap.StdevTerritory,
	)
	log.Printf("Telemetry %s", msg)
}
