// Package config loads typed settings from the environment. An env
// file named by the -env flag, or ./.env when one exists, is merged
// into the process environment first, so local runs and deployed runs
// share one mechanism.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	parseOnce   sync.Once
)

// MustNew is New but panics on failure. Intended for service startup,
// where a missing required setting should stop the process.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New fills a configuration struct from environment variables carrying
// the given prefix.
func New[T any](prefix string) (*T, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// loadDotEnv exports the env file's settings into the process
// environment. A missing file is an error only when -env named it
// explicitly.
func loadDotEnv() error {
	path := envFlagValue()
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return fmt.Errorf("env file %s: %w", path, err)
		}
		return nil
	case err != nil:
		return err
	case info.IsDir():
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	for key, value := range viper.AllSettings() {
		if err := os.Setenv(strings.ToUpper(key), fmt.Sprint(value)); err != nil {
			return err
		}
	}
	return nil
}

func envFlagValue() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}
