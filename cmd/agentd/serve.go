package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"agentd/internal/automation"
	"agentd/internal/chat"
	"agentd/internal/config"
	"agentd/internal/httpapi"
	"agentd/internal/lifecycle"
	"agentd/internal/metrics"
	"agentd/internal/registry"
	"agentd/internal/search"
	"agentd/internal/sysinfo"
	"agentd/internal/vision"
	"agentd/internal/voice"
)

func newServeCmd() *cobra.Command {
	var (
		safeMode     bool
		noVoice      bool
		noVision     bool
		noAutomation bool
		modelsDir    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.HTTP.Addr = addr
			}
			if safeMode {
				cfg.System.SafeMode = true
			}
			if noVoice {
				cfg.Voice.Enabled = false
			}
			if noVision {
				cfg.Vision.Enabled = false
			}
			if noAutomation {
				cfg.Automation.Enabled = false
			}
			return runServe(cfg, modelsDir)
		},
	}
	cmd.Flags().BoolVar(&safeMode, "safe", false, "Disable desktop automation and force confirmation prompts")
	cmd.Flags().BoolVar(&noVoice, "no-voice", false, "Disable the wake-word listener")
	cmd.Flags().BoolVar(&noVision, "no-vision", false, "Disable vision endpoints")
	cmd.Flags().BoolVar(&noAutomation, "no-automation", false, "Disable automation endpoints")
	cmd.Flags().StringVar(&modelsDir, "models-dir", "", "Model directory (overrides storage auto-detection)")
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.Load(path)
	}
	return config.FromEnv()
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

func runServe(cfg config.Config, modelsDir string) error {
	logger := newLogger(cfg.System.LogLevel)

	paths, err := config.ResolveStorage(cfg.System)
	if err != nil {
		return err
	}
	if modelsDir != "" {
		paths.Models, err = config.ExpandHome(modelsDir)
		if err != nil {
			return err
		}
	}
	logger.Info().Str("root", paths.Root).Str("models", paths.Models).Msg("storage resolved")

	hub := httpapi.NewEventHub(logger)
	collector := metrics.NewLifecycleCollector(prometheus.DefaultRegisterer)
	lc := lifecycle.NewWithConfig(lifecycle.Config{
		LoadWait:  cfg.Perf.LoadWait,
		Logger:    &logger,
		Publisher: hub,
		Metrics:   collector,
	})

	catalog, err := registry.LoadDir(paths.Models)
	if err != nil {
		return err
	}
	manifest, err := registry.LoadHashManifest(filepath.Join(paths.Models, "model_hashes.json"))
	if err != nil {
		logger.Warn().Err(err).Msg("hash manifest unreadable, integrity checks disabled")
		manifest = registry.HashManifest{}
	}

	chatSvc, err := chat.New(chat.Options{
		Config:    cfg,
		Paths:     paths,
		Lifecycle: lc,
		Catalog:   catalog,
		Manifest:  manifest,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	deps := httpapi.Deps{
		Lifecycle:    lc,
		Chat:         chatSvc,
		Events:       hub,
		System:       func() sysinfo.Report { return sysinfo.Collect(paths.Root) },
		Logger:       logger,
		CORSEnabled:  cfg.HTTP.CORSEnabled,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		StartTime:    time.Now(),
	}

	var janitor *search.Janitor
	if cfg.Search.Enabled {
		searchSvc := search.New(search.Options{
			Config:    cfg.Search,
			CachePath: filepath.Join(paths.Cache, "search_cache.json"),
			Lifecycle: lc,
			Logger:    logger,
		})
		deps.Search = searchSvc
		janitor, err = search.StartJanitor(searchSvc, 0, logger)
		if err != nil {
			return err
		}
	}

	if cfg.Vision.Enabled {
		visionSvc, err := vision.New(vision.Options{
			Config:    cfg.Vision,
			AI:        cfg.AI,
			Paths:     paths,
			Lifecycle: lc,
			Catalog:   catalog,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		deps.Vision = visionSvc
	}

	if cfg.Automation.Enabled {
		deps.Automation = automation.New(automation.Options{
			Config:    cfg,
			Paths:     paths,
			Lifecycle: lc,
			Logger:    logger,
		})
	}

	var listener *voice.Listener
	if cfg.Voice.Enabled {
		listener = voice.NewListener(voice.Options{
			Config:    cfg.Voice,
			AudioDir:  paths.Voice,
			Lifecycle: lc,
			Logger:    logger,
			OnActivation: func(command string) {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				res, err := chatSvc.Ask(ctx, command, nil)
				if err != nil {
					logger.Error().Err(err).Str("command", command).Msg("voice command failed")
					return
				}
				logger.Info().Str("command", command).Str("response", res.Response).Msg("voice command answered")
			},
		})
		if err := listener.Start(context.Background()); err != nil {
			// A desktop without audio hardware is normal; run without voice.
			logger.Warn().Err(err).Msg("voice listener unavailable")
			listener = nil
		}
	}

	// Optional warmups run in the background so the HTTP server is up first.
	var warmups errgroup.Group
	if cfg.Perf.BackgroundWarmup {
		warmups.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := chatSvc.Warmup(ctx); err != nil {
				logger.Warn().Err(err).Msg("chat model warmup failed")
			}
			return nil
		})
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewMux(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("agentd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	if listener != nil {
		listener.Stop()
	}
	if janitor != nil {
		janitor.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown incomplete")
	}
	hub.Close()
	_ = warmups.Wait()
	lc.Close()
	return nil
}
