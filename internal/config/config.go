package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Ledger backends.
const (
	BackendMemory = "memory"
	BackendEVM    = "evm"
)

type Config struct {
	// Pair settings
	TokenIn   string
	TokenOut  string
	FeeTier   int
	PairLabel string

	// Account settings
	FacadeAccount string
	RouterAccount string

	// Ledger backend: "memory" or "evm"
	Backend string

	// Memory backend settings: a local pool seeded with liquidity
	PoolAccount string
	PoolReserve int64

	// EVM settings (backend "evm")
	EVMRPCUrl     string
	EVMPrivateKey string
	EVMChainID    int
	EVMGasLimit   int
	RouterAddress string
	QuoterAddress string

	// Deadline grace applied to delegated execution
	DeadlineGrace time.Duration

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// API server settings
	APIAddr    string
	APIKey     string
	APIDevMode bool

	// Intent parsing (optional LLM fallback)
	OpenRouterAPIKey string
	OpenRouterModel  string
}

func Load() *Config {
	return &Config{
		// Pair
		TokenIn:   getEnv("TOKEN_IN", "TOKA"),
		TokenOut:  getEnv("TOKEN_OUT", "TOKB"),
		FeeTier:   getIntEnv("FEE_TIER", 3000),
		PairLabel: getEnv("PAIR_LABEL", ""),

		// Accounts
		FacadeAccount: getEnv("FACADE_ACCOUNT", "facade"),
		RouterAccount: getEnv("ROUTER_ACCOUNT", "router"),

		Backend: getEnv("LEDGER_BACKEND", BackendMemory),

		// Memory backend
		PoolAccount: getEnv("POOL_ACCOUNT", "pool"),
		PoolReserve: int64(getIntEnv("POOL_RESERVE", 1_000_000_000)),

		// EVM
		EVMRPCUrl:     getEnv("EVM_RPC_URL", ""),
		EVMPrivateKey: getEnv("EVM_PRIVATE_KEY", ""),
		EVMChainID:    getIntEnv("EVM_CHAIN_ID", 1),
		EVMGasLimit:   getIntEnv("EVM_GAS_LIMIT", 0),
		RouterAddress: getEnv("ROUTER_ADDRESS", ""),
		QuoterAddress: getEnv("QUOTER_ADDRESS", ""),

		DeadlineGrace: getDurationEnv("DEADLINE_GRACE", 0),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "swaps"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// API
		APIAddr:    getEnv("API_ADDR", ":8080"),
		APIKey:     getEnv("API_KEY", ""),
		APIDevMode: getBoolEnv("API_DEV_MODE", false),

		// Intent
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", ""),
	}
}

// Pair returns the display label for the configured pair.
func (c *Config) Pair() string {
	if c.PairLabel != "" {
		return c.PairLabel
	}
	return c.TokenIn + "/" + c.TokenOut
}

// Validate checks cross-field requirements that Load cannot default away.
func (c *Config) Validate() error {
	if c.TokenIn == "" || c.TokenOut == "" {
		return fmt.Errorf("TOKEN_IN and TOKEN_OUT are required")
	}
	if c.TokenIn == c.TokenOut {
		return fmt.Errorf("TOKEN_IN and TOKEN_OUT must differ")
	}

	switch c.Backend {
	case BackendMemory:
	case BackendEVM:
		if c.EVMRPCUrl == "" {
			return fmt.Errorf("EVM_RPC_URL is required for the evm backend")
		}
		if c.EVMPrivateKey == "" {
			return fmt.Errorf("EVM_PRIVATE_KEY is required for the evm backend")
		}
		if c.RouterAddress == "" {
			return fmt.Errorf("ROUTER_ADDRESS is required for the evm backend")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Backend)
	}

	if !c.APIDevMode && c.APIKey == "" {
		return fmt.Errorf("API_KEY is required unless API_DEV_MODE is set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
