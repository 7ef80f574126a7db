package registry

import (
	"errors"
	"testing"

	"github.com/specialistvlad/linen/internal/eventbus"
	"github.com/specialistvlad/linen/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndResolve(t *testing.T) {
	j := &journal{}
	reg := New(nil)
	hello := &greetingModule{fakeModule: newFake(j, "hello"), greeting: "hi"}
	plain := newFake(j, "plain")
	require.NoError(t, reg.Register(hello))
	require.NoError(t, reg.Register(plain))
	require.NoError(t, reg.Register(newFake(j, "dormant")))
	require.NoError(t, reg.Load("hello"))
	require.NoError(t, reg.Load("plain"))

	t.Run("active module of the right type", func(t *testing.T) {
		g, ok := Get[greeter](reg, "hello")
		require.True(t, ok)
		assert.Equal(t, "hi", g.Greet())

		concrete, ok := Get[*greetingModule](reg, "hello")
		require.True(t, ok)
		assert.Same(t, hello, concrete)
	})

	t.Run("misses return not found", func(t *testing.T) {
		_, ok := Get[greeter](reg, "plain")
		assert.False(t, ok)
		_, ok = Get[greeter](reg, "dormant")
		assert.False(t, ok)
		_, ok = Get[greeter](reg, "ghost")
		assert.False(t, ok)
	})

	t.Run("resolve explains misses", func(t *testing.T) {
		_, err := Resolve[greeter](reg, "plain")
		assert.ErrorIs(t, err, ErrTypeMismatch)
		assert.ErrorContains(t, err, "registry.greeter")

		_, err = Resolve[greeter](reg, "dormant")
		assert.ErrorIs(t, err, ErrNotActive)

		_, err = Resolve[greeter](reg, "ghost")
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("module", func(t *testing.T) {
		m, err := reg.Module("plain")
		require.NoError(t, err)
		assert.Same(t, plain, m)
	})
}

func TestFind_ByCapabilityInOrder(t *testing.T) {
	j := &journal{}
	reg := New(nil)
	late := &greetingModule{fakeModule: newFake(j, "late", "early"), greeting: "late"}
	early := &greetingModule{fakeModule: newFake(j, "early"), greeting: "early"}
	require.NoError(t, reg.Register(late))
	require.NoError(t, reg.Register(early))

	_, ok := Find[greeter](reg)
	assert.False(t, ok, "inactive modules are not found")

	require.NoError(t, reg.Load("late"))
	g, ok := Find[greeter](reg)
	require.True(t, ok)
	assert.Equal(t, "early", g.Greet())

	_, ok = Find[interface{ Fly() }](reg)
	assert.False(t, ok)
}

func TestRuntime_GivenToInitialize(t *testing.T) {
	j := &journal{}
	reg := New(eventbus.New())
	require.NoError(t, reg.Register(newFake(j, "store")))

	var seen module.Module
	consumer := newFake(j, "consumer", "store")
	consumer.onInit = func(rt module.Runtime) error {
		assert.Same(t, reg.Bus(), rt.Bus())
		assert.NotNil(t, rt.Logger())

		dep, err := rt.Lookup("store")
		if err != nil {
			return err
		}
		seen = dep

		if _, err := rt.Lookup("consumer"); !errors.Is(err, ErrNotActive) {
			return errors.New("a module must not see itself as active during Initialize")
		}
		return nil
	}
	require.NoError(t, reg.Register(consumer))

	require.NoError(t, reg.Load("consumer"))
	require.NotNil(t, seen)
	assert.Equal(t, "store", seen.Name())
}
