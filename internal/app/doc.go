// Package app contains the driver of the runtime. It wires the logger, event
// bus and module registry together from a configuration model, registers the
// declared catalog modules and drives the per-tick cycle, decoupled from any
// specific entrypoint like a CLI or server.
package app
