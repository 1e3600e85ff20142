package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/balaji-balu/wjdeploy/internal/azcli"
	"github.com/balaji-balu/wjdeploy/internal/logger"
	"github.com/balaji-balu/wjdeploy/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. WJDEPLOY_LOGIN.
const EnvPrefix = "WJDEPLOY"

// LoginPolicy decides what happens when no authenticated session exists.
type LoginPolicy string

const (
	LoginAuto   LoginPolicy = "auto"
	LoginAlways LoginPolicy = "always"
	LoginNever  LoginPolicy = "never"
)

type Config struct {
	CLI    string      `mapstructure:"cli"`
	Login  LoginPolicy `mapstructure:"login"`
	LogEnv string      `mapstructure:"log_env"`
	Trace  struct {
		Exporter string `mapstructure:"exporter"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"trace"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cli", azcli.DefaultBinary)
	v.SetDefault("login", string(LoginAuto))
	v.SetDefault("log_env", logger.EnvProduction)
	v.SetDefault("trace.exporter", telemetry.ExporterNone)
	v.SetDefault("trace.endpoint", "")
}

// NewViper returns a viper instance reading WJDEPLOY_* environment
// variables, with nested keys joined by underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if v.GetBool("verbose") {
		cfg.LogEnv = logger.EnvDevelopment
	}

	switch cfg.Login {
	case LoginAuto, LoginAlways, LoginNever:
	default:
		return Config{}, fmt.Errorf("invalid login policy %q (want auto, always or never)", cfg.Login)
	}
	switch cfg.Trace.Exporter {
	case telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterOTLP:
	default:
		return Config{}, fmt.Errorf("invalid trace exporter %q (want none, stdout or otlp)", cfg.Trace.Exporter)
	}
	if cfg.CLI == "" {
		return Config{}, fmt.Errorf("cli must not be empty")
	}
	return cfg, nil
}
