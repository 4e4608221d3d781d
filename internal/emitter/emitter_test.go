package emitter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experiment-bridge/internal/config"
)

type props map[string]any

func (p props) Properties() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func newTestEmitter(opts config.Integration) (*Emitter, *Pipeline) {
	p := NewPipeline("s1")
	return New(p, p, opts), p
}

func TestEmitExperimentViewed(t *testing.T) {
	desc := props{"experimentId": "0", "experimentName": "Test", "variationId": "123", "variationName": "Variation1"}

	t.Run("without nonInteraction", func(t *testing.T) {
		e, p := newTestEmitter(config.DefaultIntegration())
		e.EmitExperimentViewed(desc)

		got := p.Drain()
		require.Len(t, got, 1)
		assert.Equal(t, TypeTrack, got[0].Type)
		assert.Equal(t, "Experiment Viewed", got[0].Name)
		assert.Equal(t, map[string]any(desc), got[0].Properties)
		assert.NotContains(t, got[0].Properties, "nonInteraction")
		assert.Equal(t, &Context{Integration: IntegrationInfo{Name: "optimizely", Version: "1.0.0"}}, got[0].Context)
	})

	t.Run("with nonInteraction", func(t *testing.T) {
		opts := config.DefaultIntegration()
		opts.NonInteraction = true
		e, p := newTestEmitter(opts)
		e.EmitExperimentViewed(desc)
		e.EmitExperimentViewed(props{"experimentId": "11"})

		got := p.Drain()
		require.Len(t, got, 2)
		for _, evt := range got {
			assert.Equal(t, 1, evt.Properties["nonInteraction"])
		}
		// the descriptor's own map is never mutated
		assert.NotContains(t, desc, "nonInteraction")
	})
}

func TestEmitIdentify(t *testing.T) {
	e, p := newTestEmitter(config.DefaultIntegration())
	e.EmitIdentify("Test", "Variation1")
	e.EmitIdentify("Other", "B")
	e.EmitIdentify("", "ignored")

	got := p.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"Experiment: Test": "Variation1"}, got[0].Traits)
	assert.Equal(t, map[string]any{"Experiment: Other": "B"}, got[1].Traits)
}

func TestTrack_Revenue(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  map[string]any
	}{
		{"plain event", nil, map[string]any{}},
		{"drops unknown properties", map[string]any{"property": true}, map[string]any{}},
		{"revenue in cents", map[string]any{"revenue": 9.99}, map[string]any{"revenue": int64(999)}},
		{"total fallback", map[string]any{"total": 9.99}, map[string]any{"revenue": int64(999)}},
		{"value fallback", map[string]any{"value": 9.99}, map[string]any{"revenue": int64(999)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, p := newTestEmitter(config.DefaultIntegration())
			e.Track("event", tt.props)

			got := p.Drain()
			require.Len(t, got, 1)
			assert.Equal(t, TypePush, got[0].Type)
			assert.Equal(t, "trackEvent", got[0].Command)
			assert.Equal(t, []any{"event", tt.want}, got[0].Args)
		})
	}
}

func TestIdentify_UserID(t *testing.T) {
	e, p := newTestEmitter(config.DefaultIntegration())
	e.Identify("")
	e.Identify("user-1")

	got := p.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "setUserId", got[0].Command)
	assert.Equal(t, []any{"user-1"}, got[0].Args)
}

func TestEmitPageTrack(t *testing.T) {
	tests := []struct {
		name       string
		page       Page
		categories bool
		named      bool
		want       []string
	}{
		{"named page", Page{Name: "Home"}, true, true, []string{"Viewed Home Page"}},
		{"categorized and named", Page{Category: "Blog", Name: "New Integration"}, true, true,
			[]string{"Viewed Blog Page", "Viewed Blog New Integration Page"}},
		{"categories disabled", Page{Category: "Blog", Name: "New Integration"}, false, true,
			[]string{"Viewed Blog New Integration Page"}},
		{"names disabled", Page{Category: "Blog", Name: "New Integration"}, true, false,
			[]string{"Viewed Blog Page"}},
		{"category only", Page{Category: "Blog"}, true, true, []string{"Viewed Blog Page"}},
		{"empty page", Page{}, true, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := config.DefaultIntegration()
			opts.TrackCategorizedPages = tt.categories
			opts.TrackNamedPages = tt.named
			e, p := newTestEmitter(opts)

			e.EmitPageTrack(tt.page)

			var names []string
			for _, evt := range p.Drain() {
				names = append(names, evt.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Name() string { return "failing" }
func (f *failingSink) Write(context.Context, Event) error {
	f.calls++
	return errors.New("boom")
}

func TestPipeline_SinkErrorsDoNotPropagate(t *testing.T) {
	sink := &failingSink{}
	p := NewPipeline("s1", sink, LogSink{})

	p.Identify(map[string]any{"a": "b"})
	p.Push("trackEvent", []any{"legacy", map[string]any{}})

	got := p.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, 2, sink.calls)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.NotEmpty(t, got[0].MessageID)
	assert.Equal(t, "legacy", got[1].Name)
	assert.Len(t, got[1].Args, 2)
	assert.Empty(t, p.Drain())
}
