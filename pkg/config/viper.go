package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvConfigFile names an explicit config file, overriding the search path.
const EnvConfigFile = "CONFIG_FILE"

// Load reads configuration from an optional YAML file and the environment.
// configPath is searched first, then "." and "./config". A missing file is
// not an error: defaults and environment variables are enough to run.
func Load(configPath, configName string) (*viper.Viper, error) {
	v := viper.New()

	if file := os.Getenv(EnvConfigFile); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(configPath)
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}

// BindEnvs binds each viper key to an explicit environment variable name.
func BindEnvs(v *viper.Viper, bindings map[string]string) error {
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}
	return nil
}

// Watch calls onChange after every write to the config file v was read
// from. It does nothing when v was built from defaults and environment
// alone.
func Watch(v *viper.Viper, onChange func(fsnotify.Event)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	v.OnConfigChange(onChange)
	v.WatchConfig()
	return true
}
