// Package heartbeat provides a module that publishes a Beat event at a fixed
// interval of simulated time.
package heartbeat

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/specialistvlad/linen/internal/eventbus"
	"github.com/specialistvlad/linen/internal/module"
	"github.com/specialistvlad/linen/internal/registry"
	"github.com/vmihailenco/msgpack/v5"
)

// Name is the registry key of the module.
const Name = "heartbeat"

// DefaultInterval is used when no interval setting is given.
const DefaultInterval = time.Second

// Beat is published once per elapsed interval.
type Beat struct {
	Seq    uint64
	Uptime time.Duration
}

func (Beat) EventType() eventbus.Type { return "heartbeat.beat" }

// Module accumulates tick time and publishes beats.
type Module struct {
	module.Base

	interval time.Duration
	priority eventbus.Priority
	topic    string

	bus    *eventbus.Bus
	logger *slog.Logger

	seq     uint64
	uptime  time.Duration
	pending time.Duration
}

// New creates the module. Settings: interval (duration), priority
// (low|normal|high|critical) and topic (filter tag for published beats).
func New(settings map[string]string) (module.Module, error) {
	m := &Module{
		Base:     module.NewBase(Name),
		interval: DefaultInterval,
		priority: eventbus.Normal,
		topic:    settings["topic"],
	}
	if v := settings["interval"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("interval must be positive, got %s", d)
		}
		m.interval = d
	}
	p, err := eventbus.ParsePriority(settings["priority"])
	if err != nil {
		return nil, err
	}
	m.priority = p
	return m, nil
}

// Factory is the catalog entry for this module.
var Factory = registry.Factory{Name: Name, New: New}

func (m *Module) Initialize(rt module.Runtime) error {
	m.bus = rt.Bus()
	m.logger = rt.Logger()
	m.logger.Debug("Heartbeat armed.", "interval", m.interval, "priority", m.priority, "topic", m.topic)
	return nil
}

func (m *Module) Shutdown() error {
	m.bus = nil
	return nil
}

// Update publishes one beat per whole interval contained in the accumulated time.
func (m *Module) Update(dt time.Duration) error {
	if m.bus == nil {
		return fmt.Errorf("heartbeat updated before initialization")
	}
	m.uptime += dt
	m.pending += dt
	for m.pending >= m.interval {
		m.pending -= m.interval
		m.seq++
		beat := Beat{Seq: m.seq, Uptime: m.uptime - m.pending}
		var err error
		if m.topic != "" {
			err = m.bus.Publish(beat, m.priority, m.topic)
		} else {
			err = m.bus.Publish(beat, m.priority)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Seq returns the number of beats published so far.
func (m *Module) Seq() uint64 { return m.seq }

// Uptime returns the total simulated time seen by Update.
func (m *Module) Uptime() time.Duration { return m.uptime }

type state struct {
	Seq     uint64        `msgpack:"seq"`
	Uptime  time.Duration `msgpack:"uptime"`
	Pending time.Duration `msgpack:"pending"`
}

func (m *Module) Serialize(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(state{Seq: m.seq, Uptime: m.uptime, Pending: m.pending})
}

func (m *Module) Deserialize(r io.Reader) error {
	var s state
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	m.seq, m.uptime, m.pending = s.Seq, s.Uptime, s.Pending
	return nil
}
