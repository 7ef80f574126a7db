package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/specialistvlad/linen/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Success(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want app.Config
	}{
		{
			name: "no arguments",
			args: nil,
			want: app.Config{},
		},
		{
			name: "positional path",
			args: []string{"linen.hcl"},
			want: app.Config{ConfigPath: "linen.hcl"},
		},
		{
			name: "flag wins over positional",
			args: []string{"-config", "a.hcl", "b.hcl"},
			want: app.Config{ConfigPath: "a.hcl"},
		},
		{
			name: "shorthand",
			args: []string{"-c", "conf.d"},
			want: app.Config{ConfigPath: "conf.d"},
		},
		{
			name: "all options",
			args: []string{
				"-config", "linen.yaml",
				"-ticks", "100",
				"-tick-rate", "20ms",
				"-log-format", "JSON",
				"-log-level", "Debug",
				"-snapshot", "/tmp/state.msgpack",
				"-healthcheck-port", "8080",
				"-print-order",
			},
			want: app.Config{
				ConfigPath:      "linen.yaml",
				Ticks:           100,
				TickRate:        20 * time.Millisecond,
				LogFormat:       "json",
				LogLevel:        "debug",
				SnapshotPath:    "/tmp/state.msgpack",
				HealthcheckPort: 8080,
				PrintOrder:      true,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, exit, err := Parse(tc.args, &bytes.Buffer{})
			require.NoError(t, err)
			assert.False(t, exit)
			require.NotNil(t, cfg)
			assert.Equal(t, tc.want, *cfg)
		})
	}
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "LINEN_TICK_RATE")
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown flag", []string{"-nope"}, "flag provided but not defined: -nope"},
		{"bad log format", []string{"-log-format", "xml"}, "invalid log-format"},
		{"bad log level", []string{"-log-level", "loud"}, "invalid log-level"},
		{"sub millisecond tick", []string{"-tick-rate", "10us"}, "invalid tick-rate"},
		{"negative tick", []string{"-tick-rate", "-1s"}, "invalid tick-rate"},
		{"negative ticks", []string{"-ticks", "-1"}, "ticks must not be negative"},
		{"port out of range", []string{"-healthcheck-port", "70000"}, "healthcheck port out of range"},
		{"extra arguments", []string{"a.hcl", "b.hcl"}, "unexpected arguments: b.hcl"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, exit, err := Parse(tc.args, &bytes.Buffer{})
			assert.Nil(t, cfg)
			assert.False(t, exit)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
