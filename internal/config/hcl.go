package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclRoot is used to decode all top-level blocks from one file.
type hclRoot struct {
	Runtime []*hclRuntime `hcl:"runtime,block"`
	Modules []*hclModule  `hcl:"module,block"`
}

type hclRuntime struct {
	TickRate        *string `hcl:"tick_rate,optional"`
	Ticks           *int    `hcl:"ticks,optional"`
	LogLevel        *string `hcl:"log_level,optional"`
	LogFormat       *string `hcl:"log_format,optional"`
	SnapshotPath    *string `hcl:"snapshot_path,optional"`
	HealthcheckPort *int    `hcl:"healthcheck_port,optional"`
}

type hclModule struct {
	Name      string            `hcl:"name,label"`
	Enabled   *bool             `hcl:"enabled,optional"`
	Autoload  *bool             `hcl:"autoload,optional"`
	DependsOn []string          `hcl:"depends_on,optional"`
	Settings  map[string]string `hcl:"settings,optional"`
}

func decodeHCL(path string, src []byte, environ []string) (*filePart, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root hclRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(environ), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	part := &filePart{}
	for _, rt := range root.Runtime {
		part.runtime = append(part.runtime, runtimePatch{
			TickRate:        rt.TickRate,
			Ticks:           rt.Ticks,
			LogLevel:        rt.LogLevel,
			LogFormat:       rt.LogFormat,
			SnapshotPath:    rt.SnapshotPath,
			HealthcheckPort: rt.HealthcheckPort,
		})
	}
	for _, m := range root.Modules {
		part.modules = append(part.modules, ModuleDecl{
			Name:      m.Name,
			Enabled:   boolOr(m.Enabled, true),
			Autoload:  boolOr(m.Autoload, false),
			DependsOn: m.DependsOn,
			Settings:  m.Settings,
			Source:    path,
		})
	}
	return part, nil
}

// evalContext exposes the environment to expressions as env.NAME.
func evalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}
