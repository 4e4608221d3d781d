// Package engine normalizes experimentation state into descriptors.
//
// Two upstream shapes are supported: the classic data object with its
// multi-experiment maps, and the newer campaign states handed out by the
// host accessor. Both are normalized without side effects; emission is
// somebody else's job.
package engine

import (
	"strings"

	"experiment-bridge/internal/host"
)

// Classic is the result of one classic normalization pass.
type Classic struct {
	Descriptors []ExperimentDescriptor
	// Unknown holds active ids with no experiment record.
	Unknown []host.ID
}

// NormalizeClassic walks the active experiments in order. Unknown ids are
// skipped. A redirect experiment that is not already active is appended
// last as a RedirectOnly descriptor.
func NormalizeClassic(d *host.ClassicData) Classic {
	var out Classic
	if !d.Usable() {
		return out
	}
	st := d.State

	active := make(map[host.ID]struct{}, len(st.ActiveExperiments))
	for _, id := range st.ActiveExperiments {
		active[id] = struct{}{}

		exp, ok := d.Experiments[id]
		if !ok {
			out.Unknown = append(out.Unknown, id)
			continue
		}
		desc := ExperimentDescriptor{
			ID:            id,
			Name:          exp.Name,
			VariationName: st.VariationNamesMap[id],
		}
		for _, vid := range st.VariationIDsMap[id] {
			desc.Variations = append(desc.Variations, Variation{ID: vid})
		}
		if len(desc.Variations) > 0 {
			desc.Variations[0].Name = desc.VariationName
			desc.VariationID = desc.Variations[0].ID.String()
		}
		if section, ok := d.Sections[id]; ok {
			desc.SectionName = section.Name
			desc.VariationID = joinIDs(section.VariationIDs, ",")
		}
		if r := st.RedirectExperiment; r != nil && r.ExperimentID == id {
			desc.Referrer = r.Referrer
		}
		out.Descriptors = append(out.Descriptors, desc)
	}

	if r := st.RedirectExperiment; r != nil && r.ExperimentID != "" {
		if _, dup := active[r.ExperimentID]; !dup {
			out.Descriptors = append(out.Descriptors, ExperimentDescriptor{
				ID:           r.ExperimentID,
				VariationID:  r.VariationID.String(),
				Variations:   []Variation{{ID: r.VariationID}},
				Referrer:     r.Referrer,
				RedirectOnly: true,
			})
		}
	}
	return out
}

// FlattenExperiment turns a pre-joined experiment state into a descriptor.
// One variation gives flat fields; two or more give joined ids and names
// plus the section name.
func FlattenExperiment(s ExperimentState) ExperimentDescriptor {
	desc := ExperimentDescriptor{
		ID:         s.Experiment.ID,
		Name:       s.Experiment.Name,
		Referrer:   s.Experiment.Referrer,
		Variations: append([]Variation(nil), s.Variations...),
	}
	switch len(s.Variations) {
	case 0:
	case 1:
		desc.VariationID = s.Variations[0].ID.String()
		desc.VariationName = s.Variations[0].Name
	default:
		ids := make([]host.ID, len(s.Variations))
		names := make([]string, len(s.Variations))
		for i, v := range s.Variations {
			ids[i] = v.ID
			names[i] = v.Name
		}
		desc.VariationID = joinIDs(ids, ",")
		desc.VariationName = strings.Join(names, ", ")
		if s.Section != nil {
			desc.SectionName = s.Section.Name
		}
	}
	return desc
}

func joinIDs(ids []host.ID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, sep)
}
