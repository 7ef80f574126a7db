package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/linen/internal/config"
	"github.com/specialistvlad/linen/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeFactory(name string, deps ...string) Factory {
	return Factory{
		Name: name,
		New: func(map[string]string) (module.Module, error) {
			return newFake(&journal{}, name, deps...), nil
		},
	}
}

func TestNewCatalog(t *testing.T) {
	t.Run("keeps given order", func(t *testing.T) {
		c, err := NewCatalog(fakeFactory("ui"), fakeFactory("core"))
		require.NoError(t, err)
		assert.Equal(t, []string{"ui", "core"}, c.Names())
		assert.True(t, c.Has("core"))
		assert.False(t, c.Has("net"))
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := NewCatalog(fakeFactory("core"), fakeFactory("core"))
		assert.ErrorIs(t, err, ErrDuplicateRegistration)
	})

	t.Run("incomplete", func(t *testing.T) {
		_, err := NewCatalog(Factory{Name: "core"})
		assert.ErrorIs(t, err, ErrInvalidModule)
		_, err = NewCatalog(Factory{New: fakeFactory("x").New})
		assert.ErrorIs(t, err, ErrInvalidModule)
	})
}

func TestCatalog_Build(t *testing.T) {
	liar := Factory{
		Name: "liar",
		New: func(map[string]string) (module.Module, error) {
			return newFake(&journal{}, "someone-else"), nil
		},
	}
	broken := Factory{
		Name: "broken",
		New: func(map[string]string) (module.Module, error) {
			return nil, errors.New("bad setting")
		},
	}
	c, err := NewCatalog(fakeFactory("core"), liar, broken)
	require.NoError(t, err)

	m, err := c.Build("core", nil)
	require.NoError(t, err)
	assert.Equal(t, "core", m.Name())

	_, err = c.Build("missing", nil)
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = c.Build("liar", nil)
	assert.ErrorIs(t, err, ErrInvalidModule)

	_, err = c.Build("broken", nil)
	assert.ErrorContains(t, err, "failed to build module 'broken': bad setting")
}

func TestValidateDeclarations(t *testing.T) {
	c, err := NewCatalog(fakeFactory("core"), fakeFactory("ui", "core"))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		decls   []config.ModuleDecl
		wantErr []string
	}{
		{
			name: "valid",
			decls: []config.ModuleDecl{
				{Name: "core", Enabled: true},
				{Name: "ui", Enabled: true, DependsOn: []string{"core"}},
			},
		},
		{
			name: "disabled module is not built",
			decls: []config.ModuleDecl{
				{Name: "ui", Enabled: false, Autoload: true},
			},
		},
		{
			name:    "unknown module",
			decls:   []config.ModuleDecl{{Name: "net", Enabled: true}},
			wantErr: []string{"module 'net': declared, but no such module is compiled in (known: core, ui)"},
		},
		{
			name: "duplicate declaration",
			decls: []config.ModuleDecl{
				{Name: "core", Enabled: true},
				{Name: "core", Enabled: true},
			},
			wantErr: []string{"module 'core': declared more than once"},
		},
		{
			name: "undeclared dependency edge",
			decls: []config.ModuleDecl{
				{Name: "core", Enabled: true, DependsOn: []string{"ui"}},
				{Name: "ui", Enabled: true},
			},
			wantErr: []string{"module 'core': declaration depends on 'ui', which the Go module does not declare"},
		},
		{
			name: "dependency not enabled",
			decls: []config.ModuleDecl{
				{Name: "core", Enabled: false},
				{Name: "ui", Enabled: true},
			},
			wantErr: []string{"module 'ui': depends on 'core', which is not an enabled module"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDeclarations(context.Background(), tc.decls, c)
			if len(tc.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "registry validation failed:")
			for _, want := range tc.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
