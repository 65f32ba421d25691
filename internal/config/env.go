package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	LogColor bool   `envconfig:"LOG_COLOR" default:"true"`
}

type ScenarioEnv struct {
	Path  string `envconfig:"SCENARIO_PATH"`
	Watch bool   `envconfig:"SCENARIO_WATCH" default:"false"`
}

type Env struct {
	BaseEnv
	ScenarioEnv
}

const namespace = "TASKMAN"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func ScenarioEnvFromEnv(env *Env) *ScenarioEnv {
	return &env.ScenarioEnv
}
