package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vicent00/swap-facade/internal/cache"
	"github.com/vicent00/swap-facade/internal/config"
	"github.com/vicent00/swap-facade/internal/controls"
	"github.com/vicent00/swap-facade/internal/evm"
	"github.com/vicent00/swap-facade/internal/facade"
	"github.com/vicent00/swap-facade/internal/intent"
	"github.com/vicent00/swap-facade/internal/ledger"
	"github.com/vicent00/swap-facade/internal/router"
	"github.com/vicent00/swap-facade/internal/server"
	"github.com/vicent00/swap-facade/internal/storage"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// buildBackend wires the ledger and router for the configured backend.
// The returned close function releases any held connections.
func buildBackend(cfg *config.Config, logger *logrus.Logger) (ledger.Ledger, router.Router, router.Quoter, facade.PairConfig, func(), error) {
	pair := facade.PairConfig{
		TokenIn:  cfg.TokenIn,
		TokenOut: cfg.TokenOut,
		Fee:      router.FeeTier(cfg.FeeTier),
	}

	switch cfg.Backend {
	case config.BackendMemory:
		l := ledger.NewMemoryLedger()
		l.Mint(cfg.TokenIn, cfg.PoolAccount, big.NewInt(cfg.PoolReserve))
		l.Mint(cfg.TokenOut, cfg.PoolAccount, big.NewInt(cfg.PoolReserve))

		amm := router.NewAMM(l, cfg.RouterAccount, logger)
		if err := amm.AddPool(router.Pool{
			TokenA:  cfg.TokenIn,
			TokenB:  cfg.TokenOut,
			Fee:     router.FeeTier(cfg.FeeTier),
			Account: cfg.PoolAccount,
		}); err != nil {
			return nil, nil, nil, pair, nil, err
		}

		pair.Account = cfg.FacadeAccount
		pair.RouterAccount = cfg.RouterAccount
		return l, amm, amm, pair, func() {}, nil

	case config.BackendEVM:
		client, err := evm.NewClient(evm.ClientConfig{
			RPCURL:     cfg.EVMRPCUrl,
			PrivateKey: cfg.EVMPrivateKey,
			ChainID:    int64(cfg.EVMChainID),
			GasLimit:   uint64(cfg.EVMGasLimit),
		}, logger)
		if err != nil {
			return nil, nil, nil, pair, nil, err
		}

		uni, err := evm.NewUniswapRouter(client, cfg.RouterAddress, cfg.QuoterAddress)
		if err != nil {
			client.Close()
			return nil, nil, nil, pair, nil, err
		}

		var quoter router.Quoter
		if cfg.QuoterAddress != "" {
			quoter = uni
		}

		pair.Account = client.Address()
		pair.RouterAccount = uni.Address()
		return evm.NewERC20Ledger(client), uni, quoter, pair, client.Close, nil

	default:
		return nil, nil, nil, pair, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	l, r, quoter, pair, closeBackend, err := buildBackend(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build ledger backend")
	}
	defer closeBackend()

	// Redis backs the recent-swap feed, pub/sub, and operational switches.
	// An empty REDIS_ADDR runs the facade standalone without them.
	var (
		swapCache   storage.EventCache
		switchStore *controls.Store
	)
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0, // Use default database for main application
		})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		swapCache = cache.NewRedisCacheFromClient(rclient, logger)

		switchStore, err = controls.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create controls store")
		}
	}

	// ClickHouse keeps the durable swap history. Best effort: the facade
	// keeps settling swaps when the warehouse is down.
	var eventStore storage.EventStore
	if cfg.ClickHouseAddr != "" {
		store, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, swap history disabled")
		} else {
			eventStore = store
			defer store.Close()
		}
	}

	sink := cache.NewFanoutSink(swapCache, eventStore, logger)

	f, err := facade.New(pair, l, r,
		facade.WithEventSink(sink),
		facade.WithLogger(logger),
		facade.WithDeadlineGrace(cfg.DeadlineGrace),
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to create swap facade")
	}

	// Optional LLM fallback for natural language intents
	var refiner *intent.Refiner
	if cfg.OpenRouterAPIKey != "" {
		refiner, err = intent.NewRefiner(intent.RefinerConfig{
			OpenRouterAPIKey: cfg.OpenRouterAPIKey,
			Model:            cfg.OpenRouterModel,
			Logger:           logger,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to initialize intent refiner")
		}
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Facade:   f,
		Quoter:   quoter,
		Ledger:   l,
		Cache:    swapCache,
		Controls: switchStore,
		Refiner:  refiner,
		DevMode:  cfg.APIDevMode,
		Logger:   logger,
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.APIDevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithFields(logrus.Fields{
		"addr":    cfg.APIAddr,
		"pair":    cfg.Pair(),
		"backend": cfg.Backend,
	}).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
