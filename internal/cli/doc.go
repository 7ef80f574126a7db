// Package cli is the command-line front of the runtime. It turns arguments
// into an app.Config and reports invalid input as an ExitError carrying the
// process exit code.
package cli
