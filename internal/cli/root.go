/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package cli implements the entitykit command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/suparena/entitykit"
	"github.com/suparena/entitykit/config"
	"github.com/suparena/entitykit/internal/ctxlog"
	"github.com/suparena/entitykit/object"
	"github.com/suparena/entitykit/registry"
)

// Record stands in for entity types that only have an index map. Rows of
// such types are read as plain field maps.
type Record struct {
	object.Base
}

type options struct {
	configFile string
	envFiles   []string
	logLevel   string
	indexMap   string
}

// app holds what every command needs once flags are parsed.
type app struct {
	opts     *options
	cfg      config.Config
	registry *registry.Registry
	factory  *entitykit.Factory
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// over a fresh registry holding the built-in types.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "entitykit",
		Short:         "Inspect entity types and read entities from DynamoDB",
		Version:       entitykit.Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, ".env files to load (missing files are skipped)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides ENTITYKIT_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&opts.indexMap, "indexmap", "", "index map YAML file (overrides ENTITYKIT_INDEXMAP_FILE)")

	root.AddCommand(
		newVersionCmd(),
		newTypesCmd(a),
		newIndexMapCmd(),
		newGetCmd(a),
	)
	return root
}

// init loads configuration, sets up logging and registers the types the
// index map file names.
func (a *app) init(cmd *cobra.Command) error {
	loadOpts := []config.Option{config.WithEnvFiles(a.opts.envFiles...)}
	if a.opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(a.opts.configFile))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return err
	}
	if a.opts.logLevel != "" {
		cfg.LogLevel = a.opts.logLevel
	}
	if a.opts.indexMap != "" {
		cfg.IndexMapFile = a.opts.indexMap
	}
	a.cfg = cfg

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(ctxlog.WithLogger(ctx, logger))

	a.registry = registry.New(registry.WithLogger(logger))
	if err := registry.RegisterBuiltins(a.registry); err != nil {
		return err
	}
	a.factory = entitykit.NewFactory(a.registry, entitykit.WithFactoryLogger(logger))

	if cfg.IndexMapFile == "" {
		return nil
	}
	f, err := os.Open(cfg.IndexMapFile)
	if err != nil {
		return fmt.Errorf("failed to open index map file: %w", err)
	}
	defer f.Close()

	names, err := registry.RegisterIndexMaps(f)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", cfg.IndexMapFile, err)
	}
	for _, name := range names {
		if _, ok := a.registry.Resolve(name); ok {
			continue
		}
		if err := a.registry.Register(name, (*Record)(nil)); err != nil {
			return err
		}
	}
	logger.Debug("loaded index maps", "file", cfg.IndexMapFile, "types", names)
	return nil
}
