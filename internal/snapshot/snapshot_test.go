package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/specialistvlad/linen/internal/module"
	"github.com/specialistvlad/linen/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type counterModule struct {
	module.Base
	value   int
	saveErr error
	loadErr error
}

func newCounter(name string, value int, deps ...string) *counterModule {
	return &counterModule{Base: module.NewBase(name, deps...), value: value}
}

func (c *counterModule) Serialize(w io.Writer) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	_, err := io.WriteString(w, strconv.Itoa(c.value))
	return err
}

func (c *counterModule) Deserialize(r io.Reader) error {
	if c.loadErr != nil {
		return c.loadErr
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.value, err = strconv.Atoi(string(raw))
	return err
}

func setup(t *testing.T, mods ...module.Module) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)
	for _, m := range mods {
		require.NoError(t, reg.Register(m))
	}
	return reg
}

func TestSaveRestore_RoundTrip(t *testing.T) {
	clock := newCounter("clock", 7)
	quests := newCounter("quests", 3, "clock")
	idle := newCounter("idle", 99)
	reg := setup(t, quests, clock, idle)
	require.NoError(t, reg.Load("quests"))

	var buf bytes.Buffer
	require.NoError(t, Save(context.Background(), reg, &buf))

	var env Envelope
	require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, Version, env.Version)
	assert.Equal(t, []Frame{
		{Name: "clock", Data: []byte("7")},
		{Name: "quests", Data: []byte("3")},
	}, env.Modules, "frames follow initialization order, inactive modules are left out")

	clock.value, quests.value = 0, 0
	require.NoError(t, Restore(context.Background(), reg, bytes.NewReader(buf.Bytes())))
	assert.Equal(t, 7, clock.value)
	assert.Equal(t, 3, quests.value)
	assert.Equal(t, 99, idle.value)
}

func TestRestore_SkipsUnknownAndInactive(t *testing.T) {
	active := newCounter("active", 0)
	dormant := newCounter("dormant", 5)
	reg := setup(t, active, dormant)
	require.NoError(t, reg.Load("active"))

	payload, err := msgpack.Marshal(&Envelope{
		Version: Version,
		Modules: []Frame{
			{Name: "ghost", Data: []byte("1")},
			{Name: "dormant", Data: []byte("2")},
			{Name: "active", Data: []byte("3")},
		},
	})
	require.NoError(t, err)

	require.NoError(t, Restore(context.Background(), reg, bytes.NewReader(payload)))
	assert.Equal(t, 3, active.value)
	assert.Equal(t, 5, dormant.value)
}

func TestSave_ModuleFailure(t *testing.T) {
	broken := newCounter("broken", 1)
	broken.saveErr = errors.New("disk full")
	reg := setup(t, broken)
	require.NoError(t, reg.Load("broken"))

	var buf bytes.Buffer
	err := Save(context.Background(), reg, &buf)
	assert.ErrorContains(t, err, "failed to serialize module 'broken': disk full")
	assert.Zero(t, buf.Len(), "nothing is written on failure")
}

func TestRestore_Failures(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		reg := setup(t)
		err := Restore(context.Background(), reg, bytes.NewReader([]byte{0xc1}))
		assert.ErrorContains(t, err, "failed to decode snapshot")
	})

	t.Run("version", func(t *testing.T) {
		reg := setup(t)
		payload, err := msgpack.Marshal(&Envelope{Version: 42})
		require.NoError(t, err)
		assert.ErrorIs(t, Restore(context.Background(), reg, bytes.NewReader(payload)), ErrVersion)
	})

	t.Run("module rejects data", func(t *testing.T) {
		picky := newCounter("picky", 0)
		picky.loadErr = errors.New("checksum mismatch")
		reg := setup(t, picky)
		require.NoError(t, reg.Load("picky"))

		payload, err := msgpack.Marshal(&Envelope{Version: Version, Modules: []Frame{{Name: "picky", Data: []byte("1")}}})
		require.NoError(t, err)
		err = Restore(context.Background(), reg, bytes.NewReader(payload))
		assert.ErrorContains(t, err, "failed to deserialize module 'picky'")
	})
}
