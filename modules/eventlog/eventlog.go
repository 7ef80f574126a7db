// Package eventlog provides a module that records heartbeat beats in a
// bounded in-memory log.
package eventlog

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/specialistvlad/linen/internal/eventbus"
	"github.com/specialistvlad/linen/internal/module"
	"github.com/specialistvlad/linen/internal/registry"
	"github.com/specialistvlad/linen/modules/heartbeat"
	"github.com/vmihailenco/msgpack/v5"
)

// Name is the registry key of the module.
const Name = "eventlog"

// DefaultCapacity bounds the log when no capacity setting is given.
const DefaultCapacity = 64

// Entry is one recorded beat.
type Entry struct {
	Seq      uint64        `msgpack:"seq"`
	Uptime   time.Duration `msgpack:"uptime"`
	Priority string        `msgpack:"priority"`
}

// Module keeps the most recent beats, oldest first.
type Module struct {
	module.Base

	capacity int
	topic    string

	mu      sync.Mutex
	entries []Entry
	total   uint64

	bus    *eventbus.Bus
	sub    eventbus.Subscription
	logger *slog.Logger
}

// New creates the module. Settings: capacity (positive integer) and topic
// (only record beats delivered through this filter tag).
func New(settings map[string]string) (module.Module, error) {
	m := &Module{
		Base:     module.NewBase(Name, heartbeat.Name),
		capacity: DefaultCapacity,
		topic:    settings["topic"],
	}
	if v := settings["capacity"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid capacity %q: must be a positive integer", v)
		}
		m.capacity = n
	}
	return m, nil
}

// Factory is the catalog entry for this module.
var Factory = registry.Factory{Name: Name, New: New}

func (m *Module) Initialize(rt module.Runtime) error {
	if _, err := rt.Lookup(heartbeat.Name); err != nil {
		return err
	}
	m.bus = rt.Bus()
	m.logger = rt.Logger()

	var filter []string
	if m.topic != "" {
		filter = []string{m.topic}
	}
	m.sub = m.bus.Subscribe(heartbeat.Beat{}.EventType(), m.record, filter...)
	return nil
}

func (m *Module) Shutdown() error {
	if m.bus != nil {
		m.bus.Unsubscribe(m.sub)
		m.bus = nil
	}
	return nil
}

// record keeps one entry per publication. A filtered subscriber is reached
// through the global bucket as well, so with a topic only the filtered
// delivery counts and without one only the global delivery does.
func (m *Module) record(env eventbus.Envelope) error {
	if env.Filtered != (m.topic != "") {
		return nil
	}
	beat, ok := env.Payload.(heartbeat.Beat)
	if !ok {
		return fmt.Errorf("%w: %T", eventbus.ErrPayloadType, env.Payload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.entries = append(m.entries, Entry{Seq: beat.Seq, Uptime: beat.Uptime, Priority: env.Priority.String()})
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = slices.Delete(m.entries, 0, over)
	}
	m.logger.Debug("Beat recorded.", "seq", beat.Seq, "uptime", beat.Uptime)
	return nil
}

// Entries returns a copy of the retained entries, oldest first.
func (m *Module) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// Total returns how many beats were recorded, including evicted ones.
func (m *Module) Total() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

type state struct {
	Total   uint64  `msgpack:"total"`
	Entries []Entry `msgpack:"entries"`
}

func (m *Module) Serialize(w io.Writer) error {
	m.mu.Lock()
	s := state{Total: m.total, Entries: slices.Clone(m.entries)}
	m.mu.Unlock()
	return msgpack.NewEncoder(w).Encode(s)
}

func (m *Module) Deserialize(r io.Reader) error {
	var s state
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("eventlog: %w", err)
	}
	if over := len(s.Entries) - m.capacity; over > 0 {
		s.Entries = s.Entries[over:]
	}
	m.mu.Lock()
	m.total, m.entries = s.Total, s.Entries
	m.mu.Unlock()
	return nil
}
