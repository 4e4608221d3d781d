// Package emitter maps normalized descriptors and page-level calls onto the
// downstream analytics interface.
package emitter

import (
	"strings"

	"experiment-bridge/internal/config"
	"experiment-bridge/internal/revenue"
)

const (
	EventExperimentViewed = "Experiment Viewed"

	CommandTrackEvent = "trackEvent"
	CommandSetUserID  = "setUserId"

	TraitPrefix = "Experiment: "

	IntegrationName    = "optimizely"
	IntegrationVersion = "1.0.0"
)

// Metadata rides along on every experiment track call.
type Metadata struct {
	Context Context `json:"context"`
}

type Context struct {
	Integration IntegrationInfo `json:"integration"`
}

type IntegrationInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func DefaultMetadata() Metadata {
	return Metadata{Context: Context{Integration: IntegrationInfo{
		Name:    IntegrationName,
		Version: IntegrationVersion,
	}}}
}

// Analytics is the downstream analytics library.
type Analytics interface {
	Track(event string, props map[string]any, meta Metadata)
	Identify(traits map[string]any)
}

// Dispatcher is the platform's own command queue, used for raw
// pass-through events.
type Dispatcher interface {
	Push(command string, args ...any)
}

// Descriptor is anything that can be rendered as experiment properties.
type Descriptor interface {
	Properties() map[string]any
}

type Emitter struct {
	analytics Analytics
	dispatch  Dispatcher
	opts      config.Integration
	meta      Metadata
}

func New(a Analytics, d Dispatcher, opts config.Integration) *Emitter {
	return &Emitter{analytics: a, dispatch: d, opts: opts, meta: DefaultMetadata()}
}

func (e *Emitter) Options() config.Integration { return e.opts }

// EmitExperimentViewed tracks one descriptor. nonInteraction is 1 when the
// option is set and absent otherwise.
func (e *Emitter) EmitExperimentViewed(d Descriptor) {
	props := d.Properties()
	if e.opts.NonInteraction {
		props["nonInteraction"] = 1
	}
	e.analytics.Track(EventExperimentViewed, props, e.meta)
}

// EmitIdentify sends one identify per experiment.
func (e *Emitter) EmitIdentify(experimentName, variationName string) {
	if experimentName == "" {
		return
	}
	e.analytics.Identify(map[string]any{TraitPrefix + experimentName: variationName})
}

// Track forwards a page-level event. Only the resolved revenue survives;
// other properties are dropped.
func (e *Emitter) Track(event string, props map[string]any) {
	payload := map[string]any{}
	if cents, ok := revenue.Resolve(props); ok {
		payload["revenue"] = cents
	}
	e.dispatch.Push(CommandTrackEvent, event, payload)
}

// Identify forwards the user id when there is one.
func (e *Emitter) Identify(userID string) {
	if strings.TrimSpace(userID) == "" {
		return
	}
	e.dispatch.Push(CommandSetUserID, userID)
}
