package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File holds the optional settings read from taskman.yaml. Environment
// variables win over file values so a deployment can override a checked-in
// file without editing it.
type File struct {
	HTTPHost string `yaml:"http_host,omitempty"`
	HTTPPort string `yaml:"http_port,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
	Scenario struct {
		Path  string `yaml:"path,omitempty"`
		Watch bool   `yaml:"watch,omitempty"`
	} `yaml:"scenario,omitempty"`
}

const DefaultFilePath = "taskman.yaml"

// LoadFile reads the config file at path. A missing file is not an error;
// it yields an empty File so defaults and environment take over.
func LoadFile(path string) (*File, error) {
	if path == "" {
		path = DefaultFilePath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &f, nil
}

// Merge folds file values into env for every field the environment left at
// its zero or default value. Env is mutated in place and returned.
func Merge(env *Env, f *File) *Env {
	if f == nil {
		return env
	}
	if env.HTTPHost == "" && f.HTTPHost != "" {
		env.HTTPHost = f.HTTPHost
	}
	if f.HTTPPort != "" && !isSet("HTTP_PORT") {
		env.HTTPPort = f.HTTPPort
	}
	if f.LogLevel != "" && !isSet("LOG_LEVEL") {
		env.LogLevel = f.LogLevel
	}
	if env.Scenario().Path == "" && f.Scenario.Path != "" {
		env.ScenarioEnv.Path = f.Scenario.Path
	}
	if f.Scenario.Watch && !isSet("SCENARIO_WATCH") {
		env.ScenarioEnv.Watch = true
	}
	return env
}

func (e *Env) Scenario() *ScenarioEnv {
	return &e.ScenarioEnv
}

func isSet(key string) bool {
	_, ok := os.LookupEnv(namespace + "_" + key)
	return ok
}

// Load resolves the effective configuration: environment variables layered
// over the optional config file.
func Load(filePath string) (*Env, error) {
	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	f, err := LoadFile(filePath)
	if err != nil {
		return nil, err
	}
	return Merge(env, f), nil
}
