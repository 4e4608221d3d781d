package emitter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"experiment-bridge/internal/observability"
)

// Outbound call types.
const (
	TypeTrack    = "track"
	TypeIdentify = "identify"
	TypePush     = "push"
)

// Event is one outbound call as seen by sinks.
type Event struct {
	MessageID  string         `json:"messageId"`
	SessionID  string         `json:"sessionId,omitempty"`
	Type       string         `json:"type"`
	Name       string         `json:"event,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Traits     map[string]any `json:"traits,omitempty"`
	Command    string         `json:"command,omitempty"`
	Args       []any          `json:"args,omitempty"`
	Context    *Context       `json:"context,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Sink receives every outbound event.
type Sink interface {
	Name() string
	Write(ctx context.Context, evt Event) error
}

// Pipeline implements Analytics and Dispatcher by turning each call into
// an Event, keeping it until Drain and handing it to every sink. Sink
// failures are logged and counted, never returned to the caller.
type Pipeline struct {
	sessionID string
	sinks     []Sink
	now       func() time.Time

	mu      sync.Mutex
	pending []Event
}

func NewPipeline(sessionID string, sinks ...Sink) *Pipeline {
	return &Pipeline{sessionID: sessionID, sinks: sinks, now: time.Now}
}

func (p *Pipeline) Track(event string, props map[string]any, meta Metadata) {
	c := meta.Context
	p.record(Event{Type: TypeTrack, Name: event, Properties: props, Context: &c})
}

func (p *Pipeline) Identify(traits map[string]any) {
	p.record(Event{Type: TypeIdentify, Traits: traits})
}

// Push accepts both the variadic form and a single []any argument.
func (p *Pipeline) Push(command string, args ...any) {
	if len(args) == 1 {
		if inner, ok := args[0].([]any); ok {
			args = inner
		}
	}
	evt := Event{Type: TypePush, Command: command, Args: args}
	if len(args) > 0 {
		if name, ok := args[0].(string); ok {
			evt.Name = name
		}
	}
	p.record(evt)
}

// Drain returns and forgets the events recorded so far.
func (p *Pipeline) Drain() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pending
	p.pending = nil
	return out
}

func (p *Pipeline) record(evt Event) {
	evt.MessageID = uuid.NewString()
	evt.SessionID = p.sessionID
	evt.Timestamp = p.now().UTC()

	p.mu.Lock()
	p.pending = append(p.pending, evt)
	p.mu.Unlock()

	observability.EventsEmitted.WithLabelValues(evt.Type).Inc()
	for _, s := range p.sinks {
		if err := s.Write(context.Background(), evt); err != nil {
			observability.SinkErrors.WithLabelValues(s.Name()).Inc()
			log.Error().Err(err).Str("sink", s.Name()).Str("type", evt.Type).Msg("sink write failed")
		}
	}
}

// LogSink writes events to the structured log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Write(_ context.Context, evt Event) error {
	log.Debug().
		Str("session", evt.SessionID).
		Str("type", evt.Type).
		Str("event", evt.Name).
		Interface("properties", evt.Properties).
		Interface("traits", evt.Traits).
		Msg("analytics event")
	return nil
}
