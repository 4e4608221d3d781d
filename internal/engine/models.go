package engine

import (
	"strings"

	"experiment-bridge/internal/host"
)

// Property keys on outbound experiment events.
const (
	PropExperimentID         = "experimentId"
	PropExperimentName       = "experimentName"
	PropVariationID          = "variationId"
	PropVariationName        = "variationName"
	PropSectionName          = "sectionName"
	PropReferrer             = "referrer"
	PropCampaignID           = "campaignId"
	PropCampaignName         = "campaignName"
	PropAudienceID           = "audienceId"
	PropAudienceName         = "audienceName"
	PropIsInCampaignHoldback = "isInCampaignHoldback"
)

type Variation struct {
	ID   host.ID `json:"id"`
	Name string  `json:"name"`
}

// ExperimentDescriptor is one classic experiment ready for emission.
// VariationID and VariationName hold the flattened form: a single id, or
// the comma-joined section ids for multivariate experiments.
type ExperimentDescriptor struct {
	ID            host.ID
	Name          string
	Referrer      string
	Variations    []Variation
	VariationID   string
	VariationName string
	SectionName   string
	// RedirectOnly descriptors come straight from the redirect structure
	// and carry raw ids without resolved names.
	RedirectOnly bool
}

// ExperimentState is an experiment already joined with its variations and
// section by the caller.
type ExperimentState struct {
	Experiment Experiment    `json:"experiment"`
	Variations []Variation   `json:"variations"`
	Section    *host.Section `json:"section,omitempty"`
}

type Experiment struct {
	ID       host.ID `json:"id"`
	Name     string  `json:"name"`
	Referrer string  `json:"referrer,omitempty"`
}

func (d ExperimentDescriptor) Properties() map[string]any {
	props := map[string]any{PropExperimentID: d.ID.String()}
	if d.VariationID != "" {
		props[PropVariationID] = d.VariationID
	}
	if d.Referrer != "" {
		props[PropReferrer] = d.Referrer
	}
	if d.RedirectOnly {
		return props
	}
	props[PropExperimentName] = d.Name
	if d.VariationName != "" {
		props[PropVariationName] = d.VariationName
	}
	if d.SectionName != "" {
		props[PropSectionName] = d.SectionName
	}
	return props
}

// CampaignDescriptor is one campaign activation ready for emission.
type CampaignDescriptor struct {
	ID                   host.ID
	CampaignName         string
	Experiment           host.Ref
	Variation            host.Ref
	Audiences            []host.Ref
	IsInCampaignHoldback bool
	Referrer             string
}

func (d CampaignDescriptor) AudienceIDs() string {
	ids := make([]string, len(d.Audiences))
	for i, a := range d.Audiences {
		ids[i] = a.ID.String()
	}
	return strings.Join(ids, ",")
}

func (d CampaignDescriptor) AudienceNames() string {
	names := make([]string, len(d.Audiences))
	for i, a := range d.Audiences {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func (d CampaignDescriptor) Properties() map[string]any {
	props := map[string]any{
		PropCampaignName:         d.CampaignName,
		PropCampaignID:           d.ID.String(),
		PropExperimentID:         d.Experiment.ID.String(),
		PropExperimentName:       d.Experiment.Name,
		PropVariationName:        d.Variation.Name,
		PropVariationID:          d.Variation.ID.String(),
		PropAudienceID:           d.AudienceIDs(),
		PropAudienceName:         d.AudienceNames(),
		PropIsInCampaignHoldback: d.IsInCampaignHoldback,
	}
	if d.Referrer != "" {
		props[PropReferrer] = d.Referrer
	}
	return props
}
