package eventlog

import (
	"bytes"
	"testing"
	"time"

	"github.com/specialistvlad/linen/internal/registry"
	"github.com/specialistvlad/linen/modules/heartbeat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, hbSettings, logSettings map[string]string) (*registry.Registry, *Module) {
	t.Helper()
	reg := registry.New(nil)

	hb, err := heartbeat.New(hbSettings)
	require.NoError(t, err)
	el, err := New(logSettings)
	require.NoError(t, err)

	require.NoError(t, reg.Register(el))
	require.NoError(t, reg.Register(hb))
	require.NoError(t, reg.Load(Name))
	return reg, el.(*Module)
}

func TestNew_Settings(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{heartbeat.Name}, m.Dependencies())
	assert.Equal(t, DefaultCapacity, m.(*Module).capacity)

	for _, bad := range []string{"zero", "0", "-3"} {
		_, err := New(map[string]string{"capacity": bad})
		assert.ErrorContains(t, err, "invalid capacity")
	}
}

func TestRecordsBeatsInOrder(t *testing.T) {
	reg, el := setup(t, map[string]string{"interval": "10ms"}, map[string]string{"capacity": "3"})
	assert.Equal(t, []string{heartbeat.Name, Name}, reg.Order())

	reg.Tick(50 * time.Millisecond)

	assert.Equal(t, uint64(5), el.Total())
	assert.Equal(t, []Entry{
		{Seq: 3, Uptime: 30 * time.Millisecond, Priority: "normal"},
		{Seq: 4, Uptime: 40 * time.Millisecond, Priority: "normal"},
		{Seq: 5, Uptime: 50 * time.Millisecond, Priority: "normal"},
	}, el.Entries())
}

func TestTopic_CountsEachPublicationOnce(t *testing.T) {
	t.Run("matching topic", func(t *testing.T) {
		reg, el := setup(t, map[string]string{"interval": "10ms", "topic": "pulse"}, map[string]string{"topic": "pulse"})
		reg.Tick(20 * time.Millisecond)
		assert.Equal(t, uint64(2), el.Total())
	})

	t.Run("no topic on the log", func(t *testing.T) {
		reg, el := setup(t, map[string]string{"interval": "10ms", "topic": "pulse"}, nil)
		reg.Tick(20 * time.Millisecond)
		assert.Equal(t, uint64(2), el.Total())
	})

	t.Run("other topic", func(t *testing.T) {
		reg, el := setup(t, map[string]string{"interval": "10ms", "topic": "pulse"}, map[string]string{"topic": "other"})
		reg.Tick(20 * time.Millisecond)
		assert.Zero(t, el.Total())
	})
}

func TestShutdown_Unsubscribes(t *testing.T) {
	reg, el := setup(t, map[string]string{"interval": "10ms"}, nil)
	require.NoError(t, reg.Unload(Name))
	assert.Zero(t, reg.Bus().HandlerCount(heartbeat.Beat{}.EventType()))

	reg.Tick(20 * time.Millisecond)
	assert.Zero(t, el.Total())

	assert.NoError(t, reg.Unload(heartbeat.Name))
}

func TestInitialize_RequiresHeartbeat(t *testing.T) {
	reg := registry.New(nil)
	el, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, reg.Register(el))
	assert.ErrorIs(t, reg.Load(Name), registry.ErrMissingDependency)
}

func TestSerialize_RoundTrip(t *testing.T) {
	reg, el := setup(t, map[string]string{"interval": "10ms"}, map[string]string{"capacity": "4"})
	reg.Tick(30 * time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, el.Serialize(&buf))

	smaller, err := New(map[string]string{"capacity": "2"})
	require.NoError(t, err)
	require.NoError(t, smaller.Deserialize(bytes.NewReader(buf.Bytes())))

	restored := smaller.(*Module)
	assert.Equal(t, uint64(3), restored.Total())
	require.Len(t, restored.Entries(), 2, "capacity still applies")
	assert.Equal(t, uint64(3), restored.Entries()[1].Seq)
}
