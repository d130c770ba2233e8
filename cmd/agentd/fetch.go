package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"agentd/internal/config"
	"agentd/internal/registry"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <name> <url>",
		Short: "Download a model into the storage tree",
		Long: "Downloads a model file into the downloads directory, verifies it " +
			"against the hash manifest when one exists, and installs it into the " +
			"models directory.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.System.LogLevel)
			paths, err := config.ResolveStorage(cfg.System)
			if err != nil {
				return err
			}
			manifest, err := registry.LoadHashManifest(filepath.Join(paths.Models, "model_hashes.json"))
			if err != nil {
				logger.Warn().Err(err).Msg("hash manifest unreadable, download will not be verified")
				manifest = registry.HashManifest{}
			}
			fetcher := registry.NewFetcher(paths.Downloads, paths.Models, manifest, logger)
			dest, err := fetcher.Fetch(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println("installed", dest)
			return nil
		},
	}
}
