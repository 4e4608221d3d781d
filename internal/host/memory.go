package host

import (
	"slices"
	"sync"
)

// Document is the serialized form of a page's host global.
type Document struct {
	Classic   *ClassicData    `json:"classic,omitempty"`
	Campaigns []CampaignState `json:"campaigns,omitempty"`
	Redirect  *RedirectInfo   `json:"redirect,omitempty"`
	// Ready reports whether the state accessor is already available.
	Ready bool `json:"ready"`
}

// Memory is an in-process Host. Handlers are invoked synchronously and
// without the lock held, so they may call back into the accessor.
type Memory struct {
	mu        sync.Mutex
	classic   *ClassicData
	campaigns map[ID]CampaignState
	redirect  *RedirectInfo
	ready     bool

	nextID    int
	listeners map[int]listener
	pushed    []Command
}

type listener struct {
	filter  Filter
	handler Handler
}

func NewMemory(doc Document) *Memory {
	m := &Memory{
		classic:   doc.Classic,
		campaigns: make(map[ID]CampaignState, len(doc.Campaigns)),
		redirect:  doc.Redirect,
		ready:     doc.Ready,
		listeners: map[int]listener{},
	}
	for _, c := range doc.Campaigns {
		m.campaigns[c.ID] = c
	}
	return m
}

func (m *Memory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{Classic: m.classic}
	if m.ready {
		s.State = m
	}
	return s
}

func (m *Memory) Push(cmd Command) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushed = append(m.pushed, cmd)
	if cmd.Type != CommandAddListener || cmd.Handler == nil {
		return nil
	}
	m.nextID++
	id := m.nextID
	m.listeners[id] = listener{filter: cmd.Filter, handler: cmd.Handler}
	return &memorySub{m: m, id: id}
}

func (m *Memory) GetCampaignStates(filter CampaignFilter) map[ID]CampaignState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ID]CampaignState, len(m.campaigns))
	for id, c := range m.campaigns {
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		out[id] = c
	}
	return out
}

func (m *Memory) GetRedirectInfo() *RedirectInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redirect == nil {
		return nil
	}
	r := *m.redirect
	return &r
}

// SetRedirect replaces the redirect info the accessor reports.
func (m *Memory) SetRedirect(r *RedirectInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirect = r
}

// Decide activates a campaign and notifies campaignDecided listeners.
func (m *Memory) Decide(c CampaignState) {
	c.IsActive = true
	m.mu.Lock()
	m.campaigns[c.ID] = c
	m.mu.Unlock()
	m.fire(Event{Name: EventCampaignDecided, CampaignID: c.ID})
}

// MarkInitialized makes the accessor available and notifies initialized
// listeners. Repeated calls fire again.
func (m *Memory) MarkInitialized() {
	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
	m.fire(Event{Name: EventInitialized})
}

// Pushed returns every command pushed so far.
func (m *Memory) Pushed() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.pushed...)
}

// ListenerCount returns the number of live listener registrations.
func (m *Memory) ListenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

func (m *Memory) fire(evt Event) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.listeners))
	for id, l := range m.listeners {
		if l.filter.Type == FilterTypeLifecycle && l.filter.Name == evt.Name {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	// registration order
	slices.Sort(ids)
	for _, id := range ids {
		m.mu.Lock()
		l, ok := m.listeners[id]
		m.mu.Unlock()
		if ok {
			l.handler(evt)
		}
	}
}

type memorySub struct {
	m    *Memory
	id   int
	once sync.Once
}

func (s *memorySub) Unsubscribe() {
	s.once.Do(func() {
		s.m.mu.Lock()
		delete(s.m.listeners, s.id)
		s.m.mu.Unlock()
	})
}
