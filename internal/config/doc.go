// Package config defines the format-agnostic driver configuration: the
// runtime settings and the list of module declarations.
//
// Configuration comes from .hcl, .yaml or .yml files; the Loader picks the
// decoder by extension and merges every file into one Model. HCL files may
// reference the process environment as env.NAME. Selected runtime settings
// can then be overridden by LINEN_* environment variables.
package config
