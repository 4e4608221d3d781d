package engine

import (
	"slices"

	"experiment-bridge/internal/host"
)

// NormalizeCampaign maps one campaign activation 1:1. The host guarantees
// every referenced id resolves, so there are no fallbacks here.
func NormalizeCampaign(c host.CampaignState) CampaignDescriptor {
	return CampaignDescriptor{
		ID:                   c.ID,
		CampaignName:         c.CampaignName,
		Experiment:           c.Experiment,
		Variation:            c.Variation,
		Audiences:            append([]host.Ref(nil), c.Audiences...),
		IsInCampaignHoldback: c.IsInCampaignHoldback,
	}
}

// WithRedirect attaches the redirect referrer when the redirect belongs to
// this campaign's experiment.
func (d CampaignDescriptor) WithRedirect(r *host.RedirectInfo) CampaignDescriptor {
	if r != nil && r.Referrer != "" && r.ExperimentID == d.Experiment.ID {
		d.Referrer = r.Referrer
	}
	return d
}

// SortedCampaignIDs gives map-backed campaign states a stable order.
func SortedCampaignIDs(states map[host.ID]host.CampaignState) []host.ID {
	ids := make([]host.ID, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
