package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the command line options that can be fixed in a YAML file.
// Absent keys leave the flag defaults untouched.
type Config struct {
	Task         *string  `yaml:"task"`
	Function     *string  `yaml:"fun"`
	GoPath       *string  `yaml:"gopath"`
	ModulePath   *string  `yaml:"modulepath"`
	OutputFormat *string  `yaml:"format"`
	Output       *string  `yaml:"output"`
	Jobs         *uint    `yaml:"jobs"`
	Minlen       *uint    `yaml:"minlen"`
	Nodesep      *float64 `yaml:"nodesep"`
	Metrics      *bool    `yaml:"metrics"`
	NoColorize   *bool    `yaml:"no_colorize"`
	Verbose      *bool    `yaml:"verbose"`
	IncludeTests *bool    `yaml:"include_tests"`
	Write        *bool    `yaml:"write"`
	DCE          *bool    `yaml:"dce"`
}

// ReadConfig decodes the YAML configuration file at path.
// Unknown keys are rejected.
func ReadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

// apply copies every configured value into o, unless the corresponding
// flag was given explicitly.
func (c *Config) apply(o *options, explicit map[string]bool) {
	str := func(name string, dst *string, v *string) {
		if v != nil && !explicit[name] {
			*dst = *v
		}
	}
	uns := func(name string, dst *uint, v *uint) {
		if v != nil && !explicit[name] {
			*dst = *v
		}
	}
	boolean := func(name string, dst *bool, v *bool) {
		if v != nil && !explicit[name] {
			*dst = *v
		}
	}

	str("task", &o.task, c.Task)
	str("fun", &o.function, c.Function)
	str("gopath", &o.gopath, c.GoPath)
	str("modulepath", &o.modulePath, c.ModulePath)
	str("format", &o.outputFormat, c.OutputFormat)
	str("o", &o.output, c.Output)
	uns("jobs", &o.jobs, c.Jobs)
	uns("minlen", &o.minlen, c.Minlen)
	if c.Nodesep != nil && !explicit["nodesep"] {
		o.nodesep = *c.Nodesep
	}
	boolean("metrics", &o.metrics, c.Metrics)
	boolean("no-colorize", &o.noColorize, c.NoColorize)
	boolean("verbose", &o.verbose, c.Verbose)
	boolean("include-tests", &o.includeTests, c.IncludeTests)
	boolean("w", &o.write, c.Write)
	boolean("dce", &o.dce, c.DCE)
}
