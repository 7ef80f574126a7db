package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlRoot struct {
	Runtime *yamlRuntime  `yaml:"runtime"`
	Modules []*yamlModule `yaml:"modules"`
}

type yamlRuntime struct {
	TickRate        *string `yaml:"tick_rate"`
	Ticks           *int    `yaml:"ticks"`
	LogLevel        *string `yaml:"log_level"`
	LogFormat       *string `yaml:"log_format"`
	SnapshotPath    *string `yaml:"snapshot_path"`
	HealthcheckPort *int    `yaml:"healthcheck_port"`
}

type yamlModule struct {
	Name      string            `yaml:"name"`
	Enabled   *bool             `yaml:"enabled"`
	Autoload  *bool             `yaml:"autoload"`
	DependsOn []string          `yaml:"depends_on"`
	Settings  map[string]string `yaml:"settings"`
}

// decodeYAML reads a YAML config file. YAML values are taken literally; only
// HCL files can reference the environment.
func decodeYAML(path string, src []byte, _ []string) (*filePart, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)

	var root yamlRoot
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	part := &filePart{}
	if rt := root.Runtime; rt != nil {
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
		if m == nil {
			continue
		}
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
