package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/linen/internal/config"
	"github.com/specialistvlad/linen/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance for system testing. The loader
// ignores the process environment so tests are not affected by LINEN_*
// variables set on the machine.
func SetupAppTest(t *testing.T, appConfig *Config, catalog ...registry.Factory) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	if appConfig.LogLevel == "" {
		appConfig.LogLevel = "debug"
	}
	testApp := NewApp(logBuffer, appConfig, config.NewLoader(config.WithEnviron(nil)), catalog...)

	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv("LINEN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
