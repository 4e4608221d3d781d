// Package host models the experimentation platform's in-page global: the
// classic data object, the newer state accessor and the push queue used to
// register lifecycle listeners.
//
// The adapter never looks the host up ambiently; a Host is handed to the
// registrar at construction time.
package host

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Lifecycle listener names understood by Push.
const (
	FilterTypeLifecycle = "lifecycle"

	EventCampaignDecided = "campaignDecided"
	EventInitialized     = "initialized"
)

// Push command types.
const (
	CommandAddListener = "addListener"
	CommandIntegration = "integration"
)

// ID is an experiment, variation, campaign or audience id. The host emits
// ids both as JSON numbers and as strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("host id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Experiment is a record in the classic experiments map.
type Experiment struct {
	Name string `json:"name"`
}

// Section backs a multivariate experiment in the classic model.
type Section struct {
	Name         string `json:"name"`
	VariationIDs []ID   `json:"variation_ids"`
}

// RedirectExperiment is the single redirect the classic state may carry.
type RedirectExperiment struct {
	ExperimentID ID     `json:"experimentId"`
	VariationID  ID     `json:"variationId"`
	Referrer     string `json:"referrer"`
}

type ClassicState struct {
	ActiveExperiments  []ID                `json:"activeExperiments"`
	VariationNamesMap  map[ID]string       `json:"variationNamesMap"`
	VariationIDsMap    map[ID][]ID         `json:"variationIdsMap"`
	RedirectExperiment *RedirectExperiment `json:"redirectExperiment,omitempty"`
}

// ClassicData mirrors the legacy data object.
type ClassicData struct {
	Experiments map[ID]Experiment `json:"experiments"`
	Sections    map[ID]Section    `json:"sections,omitempty"`
	State       *ClassicState     `json:"state"`
}

// Usable reports whether the object carries enough to normalize.
func (d *ClassicData) Usable() bool {
	return d != nil && d.State != nil && d.Experiments != nil
}

type Ref struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// CampaignState is one campaign as resolved by the host state accessor.
type CampaignState struct {
	ID                   ID     `json:"id"`
	CampaignName         string `json:"campaignName"`
	Experiment           Ref    `json:"experiment"`
	Variation            Ref    `json:"variation"`
	Audiences            []Ref  `json:"audiences"`
	IsActive             bool   `json:"isActive"`
	IsInCampaignHoldback bool   `json:"isInCampaignHoldback"`
}

type CampaignFilter struct {
	IsActive *bool
}

// Active is the filter used to enumerate campaigns already decided.
func Active() CampaignFilter {
	t := true
	return CampaignFilter{IsActive: &t}
}

type RedirectInfo struct {
	ExperimentID ID     `json:"experimentId"`
	VariationID  ID     `json:"variationId"`
	Referrer     string `json:"referrer"`
}

// Accessor is the newer generation's state object.
type Accessor interface {
	GetCampaignStates(filter CampaignFilter) map[ID]CampaignState
	GetRedirectInfo() *RedirectInfo
}

type Filter struct {
	Type string
	Name string
}

// Event is delivered to lifecycle listeners. CampaignID is set for
// campaignDecided.
type Event struct {
	Name       string
	CampaignID ID
}

type Handler func(Event)

// Subscription is returned by listener registration.
type Subscription interface {
	Unsubscribe()
}

// Command is anything the adapter pushes onto the host queue.
type Command struct {
	Type          string
	Filter        Filter
	Handler       Handler
	OAuthClientID string
}

// Host is the injected global. Push returns a Subscription for
// addListener commands and nil for everything else.
type Host interface {
	Snapshot() Snapshot
	Push(cmd Command) Subscription
}

type Kind int

const (
	KindNone Kind = iota
	KindClassic
	KindNew
	KindBoth
)

func (k Kind) String() string {
	switch k {
	case KindClassic:
		return "classic"
	case KindNew:
		return "new"
	case KindBoth:
		return "both"
	default:
		return "none"
	}
}

// Snapshot is what the host exposes at one point in time. Either side may
// be missing: the classic snippet, the new snippet, both or neither.
type Snapshot struct {
	Classic *ClassicData
	State   Accessor
}

func (s Snapshot) Kind() Kind {
	classic := s.Classic.Usable()
	fresh := s.State != nil
	switch {
	case classic && fresh:
		return KindBoth
	case classic:
		return KindClassic
	case fresh:
		return KindNew
	default:
		return KindNone
	}
}

func (s Snapshot) HasClassic() bool {
	k := s.Kind()
	return k == KindClassic || k == KindBoth
}

func (s Snapshot) HasNew() bool {
	k := s.Kind()
	return k == KindNew || k == KindBoth
}
