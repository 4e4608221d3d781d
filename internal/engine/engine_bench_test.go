package engine

import (
	"strconv"
	"testing"

	"experiment-bridge/internal/host"
)

func BenchmarkNormalizeClassic(b *testing.B) {
	d := &host.ClassicData{
		Experiments: map[host.ID]host.Experiment{},
		Sections:    map[host.ID]host.Section{},
		State: &host.ClassicState{
			VariationNamesMap:  map[host.ID]string{},
			VariationIDsMap:    map[host.ID][]host.ID{},
			RedirectExperiment: &host.RedirectExperiment{ExperimentID: "redirect", VariationID: "1"},
		},
	}
	for i := 0; i < 50; i++ {
		id := host.ID(strconv.Itoa(i))
		d.Experiments[id] = host.Experiment{Name: "Experiment " + string(id)}
		d.State.ActiveExperiments = append(d.State.ActiveExperiments, id)
		d.State.VariationNamesMap[id] = "Variation"
		d.State.VariationIDsMap[id] = []host.ID{id + "0"}
		if i%5 == 0 {
			d.Sections[id] = host.Section{Name: "Section", VariationIDs: []host.ID{id + "0", id + "1", id + "2"}}
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizeClassic(d)
	}
}
