// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references from the environment,
// decodes it over target and validates the result.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := decode(data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return validate(target)
}

// LoadOptional behaves like Load but keeps target's current values when
// filename does not exist. It reports whether a file was read.
func LoadOptional[T any](filename string, target *T) (bool, error) {
	err := Load(filename, target)
	if errors.Is(err, os.ErrNotExist) {
		return false, validate(target)
	}
	return err == nil, err
}

func decode[T any](data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))
	return yaml.Unmarshal([]byte(expanded), target)
}

func validate[T any](target *T) error {
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
