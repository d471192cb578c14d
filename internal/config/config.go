// Package config resolves vekta's configuration from an optional
// vekta_config file plus VEKTA_-prefixed environment variables, using
// viper to merge a config file with environment overrides.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/rahulunair/vekta/internal/search"
	"github.com/rahulunair/vekta/internal/vektaerr"
)

// Config is vekta's resolved runtime configuration.
type Config struct {
	Path                string
	Dimensions          int
	LabelSize           int
	TopK                int
	SearchMethod        search.Method
	SimilarityThreshold float64
	Verbose             bool
}

// Load resolves configuration: an optional vekta_config.* file in the
// current directory, overridden by VEKTA_-prefixed environment variables.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("vekta_config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("vekta")
	v.AutomaticEnv()

	v.SetDefault("top_k", 10)
	v.SetDefault("search_method", "exact")
	v.SetDefault("similarity_threshold", 0.0)
	v.SetDefault("verbose", false)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, vektaerr.Wrap("config.Load", fmt.Errorf("%w: %v", vektaerr.ErrConfig, err))
		}
	}

	if !v.IsSet("path") {
		return Config{}, vektaerr.Wrap("config.Load", fmt.Errorf("%w: path not set", vektaerr.ErrConfig))
	}
	if !v.IsSet("dimensions") {
		return Config{}, vektaerr.Wrap("config.Load", fmt.Errorf("%w: dimensions not set", vektaerr.ErrConfig))
	}
	if !v.IsSet("label_size") {
		return Config{}, vektaerr.Wrap("config.Load", fmt.Errorf("%w: label_size not set", vektaerr.ErrConfig))
	}

	dimensions := v.GetInt("dimensions")
	if dimensions <= 0 || dimensions%8 != 0 {
		return Config{}, vektaerr.Wrap("config.Load", fmt.Errorf("%w: dimensions must be a positive multiple of 8, got %d", vektaerr.ErrConfig, dimensions))
	}

	method := search.Method(v.GetString("search_method"))
	switch method {
	case search.Exact, search.ANN, search.Hybrid:
	default:
		return Config{}, vektaerr.Wrap("config.Load", fmt.Errorf("%w: unknown search_method %q", vektaerr.ErrConfig, method))
	}

	return Config{
		Path:                v.GetString("path"),
		Dimensions:          dimensions,
		LabelSize:           v.GetInt("label_size"),
		TopK:                v.GetInt("top_k"),
		SearchMethod:        method,
		SimilarityThreshold: v.GetFloat64("similarity_threshold"),
		Verbose:             v.GetBool("verbose"),
	}, nil
}

// Print writes resolved configuration as key=value pairs, one per line.
func (c Config) Print(w func(format string, args ...interface{})) {
	w("path=%s\n", c.Path)
	w("dimensions=%d\n", c.Dimensions)
	w("label_size=%d\n", c.LabelSize)
	w("top_k=%d\n", c.TopK)
	w("search_method=%s\n", c.SearchMethod)
	w("similarity_threshold=%v\n", c.SimilarityThreshold)
	w("verbose=%v\n", c.Verbose)
}
