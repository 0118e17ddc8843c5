package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy holds the booking rules an operator may tune without a rebuild.
// Values are read from a YAML file; ${VAR} references are expanded from
// the environment before parsing.
//
//	min_duration: 15m
//	max_duration: 12h
//	max_purpose_length: 500
//	lock_completed: false
//	sweep_interval: 1m
type Policy struct {
	MinDuration      time.Duration `yaml:"min_duration"`
	MaxDuration      time.Duration `yaml:"max_duration"`
	MaxPurposeLength int           `yaml:"max_purpose_length"`
	LockCompleted    bool          `yaml:"lock_completed"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

// DefaultPolicy mirrors the reference booking rules.
func DefaultPolicy() Policy {
	return Policy{
		MinDuration:      15 * time.Minute,
		MaxDuration:      12 * time.Hour,
		MaxPurposeLength: 500,
		SweepInterval:    time.Minute,
	}
}

// LoadPolicy overlays the file at path on DefaultPolicy.  An empty path
// returns the defaults.  Keys absent from the file keep their default.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects bounds that would make every booking invalid.
func (p Policy) Validate() error {
	switch {
	case p.MinDuration <= 0:
		return fmt.Errorf("min_duration must be positive")
	case p.MaxDuration < p.MinDuration:
		return fmt.Errorf("max_duration %s is below min_duration %s", p.MaxDuration, p.MinDuration)
	case p.MaxDuration > 24*time.Hour:
		return fmt.Errorf("max_duration cannot exceed one day")
	case p.MaxPurposeLength <= 0:
		return fmt.Errorf("max_purpose_length must be positive")
	case p.SweepInterval <= 0:
		return fmt.Errorf("sweep_interval must be positive")
	}
	return nil
}
