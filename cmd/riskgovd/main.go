package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/config"
	"riskgov/core/state"
	"riskgov/gateway/middleware"
	"riskgov/gateway/routes"
	"riskgov/native/controller"
	"riskgov/native/ethcall"
	"riskgov/native/riskpolicy"
	"riskgov/native/timelock"
	"riskgov/observability"
	"riskgov/observability/logging"
	"riskgov/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("RISKGOV_ENV"))
	logger := logging.Setup("riskgovd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if env == "" {
		logger = logging.Setup("riskgovd", cfg.Env)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config incomplete", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)

	store := riskpolicy.NewStore(cfg.ConfiguratorAddr())
	store.SetState(manager)
	evaluator := riskpolicy.NewEvaluator(store)

	queue := timelock.NewEngine(cfg.SelfAddr())
	queue.SetState(manager)
	if cfg.VetoAdmin != "" {
		queue.SetVetoAdmin(cfg.VetoAdminAddr())
	}
	// A persisted rotation overrides the configured default.
	if rotated, ok, err := manager.VetoAdminGet(); err != nil {
		logger.Error("failed to load veto admin", slog.Any("error", err))
		os.Exit(1)
	} else if ok {
		queue.SetVetoAdmin(rotated)
		logger.Info("restored veto admin", slog.String("address", rotated.Hex()))
	}

	registry := ethcall.NewRegistry()
	queue.SetBackend(registry)

	engine := controller.NewEngine(cfg.SelfAddr(), cfg.ConfiguratorAddr(), store, evaluator, queue)
	engine.SetState(manager)
	engine.RegisterSelf(registry)

	if cfg.BackendRPC != "" {
		backend, err := ethcall.DialRPC(cfg.BackendRPC, cfg.ExecutorAddr())
		if err != nil {
			logger.Error("failed to dial backend RPC", slog.Any("error", err))
			os.Exit(1)
		}
		defer backend.Close()
		registry.SetFallback(backend)

		for _, raw := range cfg.Pools {
			addr := common.HexToAddress(raw)
			if err := engine.RegisterRemotePool(backend, addr); err != nil {
				logger.Error("failed to register pool", slog.String("pool", addr.Hex()), slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("registered pool", slog.String("pool", addr.Hex()))
		}
		for _, raw := range cfg.CreditManagers {
			addr := common.HexToAddress(raw)
			if err := engine.RegisterRemoteCreditManager(backend, addr); err != nil {
				logger.Error("failed to register credit manager", slog.String("creditManager", addr.Hex()), slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("registered credit manager", slog.String("creditManager", addr.Hex()))
		}
	} else if len(cfg.Pools) > 0 || len(cfg.CreditManagers) > 0 {
		logger.Warn("collaborator addresses configured without BackendRPC, ignoring")
	}

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.Auth.Enabled,
		HMACSecret: cfg.Auth.HMACSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ScopeClaim: cfg.Auth.ScopeClaim,
	}, logger)
	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   "riskgovd",
		MetricsPrefix: cfg.Observability.MetricsPrefix,
		LogRequests:   cfg.Observability.LogRequests,
		Enabled:       cfg.Observability.Enabled,
	}, logger)

	emitter := observability.NewEventEmitter(logger, obs.Registry())
	store.SetEmitter(emitter)
	queue.SetEmitter(emitter)

	handler := routes.New(routes.Config{
		Engine:        engine,
		Audit:         manager,
		Authenticator: auth,
		Observability: obs,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("governance API listening", slog.String("addr", cfg.ListenAddress))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("stopped")
}
