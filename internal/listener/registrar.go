package listener

import (
	"github.com/rs/zerolog/log"

	"experiment-bridge/internal/emitter"
	"experiment-bridge/internal/engine"
	"experiment-bridge/internal/host"
	"experiment-bridge/internal/observability"
	"experiment-bridge/internal/referrer"
)

// OAuthClientID marks the integration on the platform side.
const OAuthClientID = "5360906403"

// Registrar bridges the host's two notification styles into the
// normalizers. It is not safe for concurrent use; callers serialize.
type Registrar struct {
	host     host.Host
	emit     *emitter.Emitter
	queue    *Queue
	detector *referrer.Detector

	started     bool
	closed      bool
	detectedNew bool
	decided     host.Subscription
	initialized host.Subscription
	seen        map[host.ID]struct{}
}

func NewRegistrar(h host.Host, em *emitter.Emitter, q *Queue, d *referrer.Detector) *Registrar {
	return &Registrar{
		host:     h,
		emit:     em,
		queue:    q,
		detector: d,
		seen:     map[host.ID]struct{}{},
	}
}

// Init announces the integration, registers the campaignDecided listener
// and defers reading already-present state to the next turn. Calling it
// more than once is a no-op.
func (r *Registrar) Init() {
	if r.started || r.closed {
		return
	}
	r.started = true

	r.host.Push(host.Command{Type: host.CommandIntegration, OAuthClientID: OAuthClientID})
	r.decided = r.host.Push(host.Command{
		Type:    host.CommandAddListener,
		Filter:  host.Filter{Type: host.FilterTypeLifecycle, Name: host.EventCampaignDecided},
		Handler: r.onCampaignDecided,
	})

	r.queue.Post(func() {
		r.safely("classic", r.readClassic)
		r.safely("new", r.readNew)
	})
}

// Close unsubscribes every listener this registrar registered.
func (r *Registrar) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for _, sub := range []host.Subscription{r.decided, r.initialized} {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
	r.decided, r.initialized = nil, nil
}

func (r *Registrar) readClassic() {
	if r.closed {
		return
	}
	snap := r.host.Snapshot()
	if !snap.HasClassic() {
		log.Debug().Str("kind", snap.Kind().String()).Msg("no classic data")
		return
	}
	res := engine.NormalizeClassic(snap.Classic)
	if n := len(res.Unknown); n > 0 {
		observability.DescriptorsSkipped.WithLabelValues("unknown_experiment").Add(float64(n))
		log.Debug().Int("count", n).Msg("skipped unknown experiments")
	}
	if re := snap.Classic.State.RedirectExperiment; re != nil {
		r.detector.Observe(re.Referrer)
	}

	opts := r.emit.Options()
	for _, d := range res.Descriptors {
		if opts.Listen {
			r.emit.EmitExperimentViewed(d)
		}
		if opts.Variations && !d.RedirectOnly {
			r.emit.EmitIdentify(d.Name, d.VariationName)
		}
	}
}

func (r *Registrar) readNew() {
	if r.closed || r.detectedNew {
		return
	}
	snap := r.host.Snapshot()
	if snap.State == nil {
		if r.initialized == nil {
			r.initialized = r.host.Push(host.Command{
				Type:    host.CommandAddListener,
				Filter:  host.Filter{Type: host.FilterTypeLifecycle, Name: host.EventInitialized},
				Handler: r.onInitialized,
			})
		}
		return
	}
	r.detectedNew = true

	r.observeRedirect(snap.State)
	active := snap.State.GetCampaignStates(host.Active())
	for _, id := range engine.SortedCampaignIDs(active) {
		r.processCampaign(snap.State, active[id])
	}
}

func (r *Registrar) onInitialized(host.Event) {
	r.safely("initialized", r.readNew)
}

func (r *Registrar) onCampaignDecided(evt host.Event) {
	if r.closed {
		return
	}
	r.safely("campaignDecided", func() {
		state := r.host.Snapshot().State
		if state == nil {
			return
		}
		c, ok := state.GetCampaignStates(host.CampaignFilter{})[evt.CampaignID]
		if !ok {
			observability.DescriptorsSkipped.WithLabelValues("unknown_campaign").Inc()
			log.Debug().Str("campaign", evt.CampaignID.String()).Msg("decided campaign not in state")
			return
		}
		r.observeRedirect(state)
		r.processCampaign(state, c)
	})
}

func (r *Registrar) processCampaign(state host.Accessor, c host.CampaignState) {
	if _, dup := r.seen[c.ID]; dup {
		return
	}

	d := engine.NormalizeCampaign(c).WithRedirect(state.GetRedirectInfo())
	opts := r.emit.Options()
	if opts.Listen {
		r.emit.EmitExperimentViewed(d)
	}
	if opts.Variations {
		r.emit.EmitIdentify(d.Experiment.Name, d.Variation.Name)
	}
	// seen only after a complete emission
	r.seen[c.ID] = struct{}{}
}

// ProcessExperiments emits experiments the caller already joined with
// their variations.
func (r *Registrar) ProcessExperiments(states []engine.ExperimentState) {
	if r.closed {
		return
	}
	r.safely("experiments", func() {
		opts := r.emit.Options()
		for _, s := range states {
			d := engine.FlattenExperiment(s)
			if opts.Listen {
				r.emit.EmitExperimentViewed(d)
			}
			if opts.Variations {
				r.emit.EmitIdentify(d.Name, d.VariationName)
			}
		}
	})
}

func (r *Registrar) observeRedirect(state host.Accessor) {
	if info := state.GetRedirectInfo(); info != nil {
		r.detector.Observe(info.Referrer)
	}
}

// safely keeps a misbehaving sink or host from taking the caller down.
func (r *Registrar) safely(stage string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("stage", stage).Interface("panic", rec).Msg("experiment pass aborted")
		}
	}()
	fn()
}
