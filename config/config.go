/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads entitykit settings from .env files, the environment
// and an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/suparena/entitykit/errors"
)

// Environment variables read by Load.
const (
	EnvRegion       = "AWS_REGION"
	EnvAccessKey    = "AWS_ACCESS_KEY"
	EnvSecretKey    = "AWS_SECRET_KEY"
	EnvTable        = "AWS_DDB_TABLE"
	EnvEndpoint     = "AWS_DDB_ENDPOINT"
	EnvIndexMapFile = "ENTITYKIT_INDEXMAP_FILE"
	EnvLogLevel     = "ENTITYKIT_LOG_LEVEL"
)

// DefaultLogLevel is used when no level is configured.
const DefaultLogLevel = "info"

// AWS holds DynamoDB connection settings.
type AWS struct {
	Region    string
	AccessKey string
	SecretKey string
	Table     string
	// Endpoint overrides the DynamoDB endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// Config is the resolved configuration.
type Config struct {
	AWS          AWS
	IndexMapFile string
	LogLevel     string
}

type options struct {
	envFiles   []string
	configFile string
}

// Option customizes Load.
type Option func(*options)

// WithEnvFiles replaces the default ".env" with the given files. Missing
// files are skipped.
func WithEnvFiles(files ...string) Option {
	return func(o *options) {
		o.envFiles = files
	}
}

// WithConfigFile reads settings from a YAML file. Environment variables
// take precedence over the file.
//
//	aws:
//	  region: eu-west-1
//	  table: entities
//	index_map_file: indexmaps.yaml
//	log_level: debug
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// Load resolves the configuration. Values already present in the process
// environment are not overridden by .env files.
func Load(opts ...Option) (Config, error) {
	o := options{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}

	for _, f := range o.envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetDefault("log_level", DefaultLogLevel)
	bindings := map[string]string{
		"aws.region":     EnvRegion,
		"aws.access_key": EnvAccessKey,
		"aws.secret_key": EnvSecretKey,
		"aws.table":      EnvTable,
		"aws.endpoint":   EnvEndpoint,
		"index_map_file": EnvIndexMapFile,
		"log_level":      EnvLogLevel,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", o.configFile, err)
		}
	}

	return Config{
		AWS: AWS{
			Region:    v.GetString("aws.region"),
			AccessKey: v.GetString("aws.access_key"),
			SecretKey: v.GetString("aws.secret_key"),
			Table:     v.GetString("aws.table"),
			Endpoint:  v.GetString("aws.endpoint"),
		},
		IndexMapFile: v.GetString("index_map_file"),
		LogLevel:     v.GetString("log_level"),
	}, nil
}

// Validate reports settings required to reach DynamoDB that are missing.
func (c Config) Validate() error {
	if c.AWS.Region == "" {
		return errors.NewValidationError(EnvRegion, "AWS region is required")
	}
	if c.AWS.Table == "" {
		return errors.NewValidationError(EnvTable, "DynamoDB table name is required")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
