package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"cnlistener/internal/api"
	"cnlistener/internal/config"
	"cnlistener/internal/lightsail"
	"cnlistener/internal/listener"
	"cnlistener/internal/monitor"
	"cnlistener/internal/publicip"
	"cnlistener/internal/relay"
	"cnlistener/internal/supervisor"
	"cnlistener/internal/tracker"
	"cnlistener/internal/webhook"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "cnlistener",
	Short: "UDP connectivity listener with supervised self-healing",
	Long: `cnlistener receives connectivity reports from remote probes on UDP port
7171, forwards them to a domain update endpoint, and replaces the backing
Lightsail instance's static IP when a domain stays unreachable. The
listener and the public IP monitor run under an in-process supervisor
controllable over a small HTTP API.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "cnlistener.yaml", "path to configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if verr := cfg.Validate(); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, lerr := newLogger(level)
	if lerr != nil {
		return lerr
	}
	defer logger.Sync()

	if err != nil {
		logger.Warn("could not load config, using defaults",
			zap.String("path", configPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ls, err := lightsail.NewClient(ctx, cfg.Lightsail, logger.Named("lightsail"))
	if err != nil {
		return err
	}

	trk := tracker.New(cfg.Outage.Threshold(), ls, logger.Named("tracker"))
	wh := webhook.NewClient(cfg.Webhook, logger.Named("webhook"))
	res := publicip.NewResolver(cfg.Monitor, logger.Named("publicip"))
	rly := relay.New(wh, trk, logger.Named("relay"))
	lst := listener.New(cfg.Listener, rly, logger.Named("listener"))
	mon := monitor.New(cfg.Monitor, res, wh, logger.Named("monitor"))

	sup := supervisor.New(logger.Named("supervisor"))
	sup.Register(supervisor.UnitConfig{
		Name:        "listener",
		AutoStart:   true,
		AutoRestart: true,
		StartDelay:  2 * time.Second,
	}, lst)
	sup.Register(supervisor.UnitConfig{
		Name:        "ip-monitor",
		AutoStart:   true,
		AutoRestart: true,
		StartDelay:  2 * time.Second,
	}, mon)

	router := api.NewRouter(sup, mon, trk, logger.Named("api"))

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	sup.StartAll()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("control api listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		sup.StopAll()

		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}
