package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// File is the optional YAML configuration file.
//
//	filter: "^ci-.*"
//	sweep: false
//	verify: true
//	timeouts:
//	  retry_attempts: 5
//	  network_retry_delay: 10s
type File struct {
	Filter   string    `mapstructure:"filter"`
	Sweep    *bool     `mapstructure:"sweep"`
	Verify   *bool     `mapstructure:"verify"`
	Timeouts *Timeouts `mapstructure:"timeouts"`
}

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*File, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: "config", Msg: "failed to read config file", Err: err}
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes. Unknown keys are rejected so that
// typos do not silently fall back to defaults.
func Parse(data []byte) (*File, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Field: "config", Msg: "failed to unmarshal yaml", Err: err}
	}

	var f File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      &f,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &Error{Field: "config", Msg: "failed to decode config", Err: err}
	}
	return &f, nil
}
