/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entitykit/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvRegion, EnvAccessKey, EnvSecretKey, EnvTable, EnvEndpoint, EnvIndexMapFile, EnvLogLevel} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("AWS_REGION=eu-west-1\nAWS_DDB_TABLE=entities\nENTITYKIT_LOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(WithEnvFiles(envFile))
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "entities", cfg.AWS.Table)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingEnvFileIsSkipped(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRegion, "us-east-1")

	cfg, err := Load(WithEnvFiles(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "entitykit.yaml")
	require.NoError(t, os.WriteFile(file, []byte("aws:\n  region: ap-south-1\n  table: from-file\nindex_map_file: maps.yaml\n"), 0o600))
	t.Setenv(EnvTable, "from-env")

	cfg, err := Load(WithEnvFiles(), WithConfigFile(file))
	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", cfg.AWS.Region)
	assert.Equal(t, "from-env", cfg.AWS.Table)
	assert.Equal(t, "maps.yaml", cfg.IndexMapFile)
}

func TestValidate(t *testing.T) {
	err := Config{AWS: AWS{Table: "t"}}.Validate()
	assert.True(t, errors.IsValidationError(err))

	err = Config{AWS: AWS{Region: "r"}}.Validate()
	assert.True(t, errors.IsValidationError(err))
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelError, Config{LogLevel: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "bogus"}.SlogLevel())
}
