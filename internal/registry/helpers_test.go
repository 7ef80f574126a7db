package registry

import (
	"sync"
	"time"

	"github.com/specialistvlad/linen/internal/eventbus"
	"github.com/specialistvlad/linen/internal/module"
)

// journal is a shared, ordered log of lifecycle calls across modules.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

type fakeModule struct {
	module.Base
	j *journal

	initErr     error
	shutdownErr error
	updateErr   error
	updatePanic bool
	onInit      func(rt module.Runtime) error
	onShutdown  func() error
	onUpdate    func() error

	inits     int
	shutdowns int
	updates   int
}

func newFake(j *journal, name string, deps ...string) *fakeModule {
	return &fakeModule{Base: module.NewBase(name, deps...), j: j}
}

func (m *fakeModule) Initialize(rt module.Runtime) error {
	m.j.add("init:" + m.Name())
	if m.initErr != nil {
		return m.initErr
	}
	if m.onInit != nil {
		if err := m.onInit(rt); err != nil {
			return err
		}
	}
	m.inits++
	return nil
}

func (m *fakeModule) Shutdown() error {
	m.j.add("shutdown:" + m.Name())
	m.shutdowns++
	if m.onShutdown != nil {
		if err := m.onShutdown(); err != nil {
			return err
		}
	}
	return m.shutdownErr
}

func (m *fakeModule) Update(time.Duration) error {
	m.j.add("update:" + m.Name())
	m.updates++
	if m.updatePanic {
		panic("update exploded")
	}
	if m.onUpdate != nil {
		return m.onUpdate()
	}
	return m.updateErr
}

// greeter is a capability some test modules implement.
type greeter interface {
	Greet() string
}

type greetingModule struct {
	*fakeModule
	greeting string
}

func (g *greetingModule) Greet() string { return g.greeting }

type tickEvent struct{ From string }

func (tickEvent) EventType() eventbus.Type { return "test.tick" }
