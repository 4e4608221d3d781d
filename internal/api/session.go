package api

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"experiment-bridge/internal/config"
	"experiment-bridge/internal/emitter"
	"experiment-bridge/internal/host"
	"experiment-bridge/internal/listener"
	"experiment-bridge/internal/observability"
	"experiment-bridge/internal/referrer"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one page load: a host, one adapter instance and the events
// it produced. Calls are serialized.
type Session struct {
	ID string

	mu    sync.Mutex
	host  *host.Memory
	pipe  *emitter.Pipeline
	emit  *emitter.Emitter
	queue *listener.Queue
	reg   *listener.Registrar
	ref   *referrer.Slot
}

// Do runs fn as the next external event: deferred work left from the
// previous turn runs first, then fn, then anything fn deferred.
func (s *Session) Do(fn func(h *host.Memory, em *emitter.Emitter)) []emitter.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Drain()
	fn(s.host, s.emit)
	s.queue.Drain()
	return s.pipe.Drain()
}

// Referrer returns the override this session's redirect produced.
func (s *Session) Referrer() (string, bool) {
	return s.ref.Current()
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.Close()
}

// Sessions is a bounded registry; the least recently used session is torn
// down when full.
type Sessions struct {
	cache    *lru.Cache[string, *Session]
	settings *listener.Settings
	sinks    []emitter.Sink
}

func NewSessions(max int, settings *listener.Settings, sinks ...emitter.Sink) (*Sessions, error) {
	c, err := lru.NewWithEvict(max, func(id string, s *Session) {
		s.close()
		observability.SessionsActive.Dec()
		log.Debug().Str("session", id).Msg("session closed")
	})
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	return &Sessions{cache: c, settings: settings, sinks: sinks}, nil
}

// Create builds an adapter for doc, initializes it and drains the first
// turn.
func (m *Sessions) Create(doc host.Document, patch *config.IntegrationPatch) (*Session, []emitter.Event) {
	id := uuid.NewString()
	opts := m.settings.Current().Apply(patch)

	h := host.NewMemory(doc)
	pipe := emitter.NewPipeline(id, m.sinks...)
	em := emitter.New(pipe, pipe, opts)
	q := &listener.Queue{}
	slot := &referrer.Slot{}
	s := &Session{
		ID:    id,
		host:  h,
		pipe:  pipe,
		emit:  em,
		queue: q,
		reg:   listener.NewRegistrar(h, em, q, referrer.NewDetector(slot.Apply)),
		ref:   slot,
	}

	m.cache.Add(id, s)
	observability.SessionsActive.Inc()

	events := s.Do(func(*host.Memory, *emitter.Emitter) { s.reg.Init() })
	log.Debug().Str("session", id).Int("events", len(events)).Msg("session created")
	return s, events
}

func (m *Sessions) Get(id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove tears a session down.
func (m *Sessions) Remove(id string) error {
	if !m.cache.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

func (m *Sessions) Len() int { return m.cache.Len() }

// Purge closes every session.
func (m *Sessions) Purge() { m.cache.Purge() }
