// Package snapshot saves and restores the state of active modules.
//
// The registry guarantees the visiting order (initialization order); this
// package only frames each module's opaque bytes in a versioned msgpack
// envelope. What a module writes inside its frame is its own business.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/specialistvlad/linen/internal/ctxlog"
	"github.com/specialistvlad/linen/internal/module"
	"github.com/specialistvlad/linen/internal/registry"
	"github.com/vmihailenco/msgpack/v5"
)

// Version is the envelope format written by Save.
const Version = 1

// ErrVersion indicates an envelope written by an unsupported format version.
var ErrVersion = errors.New("unsupported snapshot version")

// Envelope is the on-disk frame.
type Envelope struct {
	Version int     `msgpack:"version"`
	Modules []Frame `msgpack:"modules"`
}

// Frame holds one module's serialized state.
type Frame struct {
	Name string `msgpack:"name"`
	Data []byte `msgpack:"data"`
}

// Save serializes every active module, in initialization order, into w.
func Save(ctx context.Context, reg *registry.Registry, w io.Writer) error {
	logger := ctxlog.Component(ctx, "snapshot")

	env := Envelope{Version: Version}
	err := reg.Each(func(m module.Module) error {
		var buf bytes.Buffer
		if err := m.Serialize(&buf); err != nil {
			return fmt.Errorf("failed to serialize module '%s': %w", m.Name(), err)
		}
		env.Modules = append(env.Modules, Frame{Name: m.Name(), Data: buf.Bytes()})
		return nil
	})
	if err != nil {
		return err
	}

	if err := msgpack.NewEncoder(w).Encode(&env); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	logger.Debug("Snapshot saved.", "modules", len(env.Modules))
	return nil
}

// Restore reads an envelope from r and hands each frame to the active module
// of the same name. Frames for unknown or inactive modules are skipped.
func Restore(ctx context.Context, reg *registry.Registry, r io.Reader) error {
	logger := ctxlog.Component(ctx, "snapshot")

	var env Envelope
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if env.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, env.Version)
	}

	restored := 0
	for _, frame := range env.Modules {
		m, err := reg.Module(frame.Name)
		if err != nil {
			logger.Warn("Skipping snapshot frame.", "module", frame.Name, "reason", err)
			continue
		}
		if err := m.Deserialize(bytes.NewReader(frame.Data)); err != nil {
			return fmt.Errorf("failed to deserialize module '%s': %w", frame.Name, err)
		}
		restored++
	}
	logger.Debug("Snapshot restored.", "modules", restored, "frames", len(env.Modules))
	return nil
}
