package config

import (
	"errors"
	"fmt"

	"fileflows/internal/library"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateFlows(); err != nil {
		return err
	}
	return c.validateLibraries()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateFlows() error {
	seen := make(map[string]struct{}, len(c.Flows))
	for i, f := range c.Flows {
		if f.Name == "" {
			return fmt.Errorf("flows[%d].name must be set", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("flows[%d]: duplicate flow name %q", i, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Command == "" {
			return fmt.Errorf("flows.%s.command must be set", f.Name)
		}
	}
	return nil
}

func (c *Config) validateLibraries() error {
	flows := make(map[string]struct{}, len(c.Flows))
	for _, f := range c.Flows {
		flows[f.Name] = struct{}{}
	}
	names := make(map[string]struct{}, len(c.Libraries))
	for i, lib := range c.Libraries {
		if lib.Name == "" {
			return fmt.Errorf("libraries[%d].name must be set", i)
		}
		if _, dup := names[lib.Name]; dup {
			return fmt.Errorf("libraries[%d]: duplicate library name %q", i, lib.Name)
		}
		names[lib.Name] = struct{}{}
		if lib.Path == "" {
			return fmt.Errorf("libraries.%s.path must be set", lib.Name)
		}
		if lib.Flow == "" {
			return fmt.Errorf("libraries.%s.flow must be set", lib.Name)
		}
		if _, ok := flows[lib.Flow]; !ok {
			return fmt.Errorf("libraries.%s.flow: unknown flow %q", lib.Name, lib.Flow)
		}
		if err := library.CompilePattern(lib.Filter); err != nil {
			return fmt.Errorf("libraries.%s.filter: %w", lib.Name, err)
		}
		if err := library.CompilePattern(lib.ExclusionFilter); err != nil {
			return fmt.Errorf("libraries.%s.exclusion_filter: %w", lib.Name, err)
		}
		if err := library.Schedule(lib.Schedule).Validate(); err != nil {
			return fmt.Errorf("libraries.%s.schedule: %w", lib.Name, err)
		}
	}
	if len(c.Libraries) > 0 && len(c.Flows) == 0 {
		return errors.New("at least one [[flows]] entry is required when libraries are configured")
	}
	return nil
}
