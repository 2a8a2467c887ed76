package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

// Config is the rebalancer's complete runtime configuration. Most fields
// are sourced from environment variables (the operator's recognized key
// list); the YAML file carries only the ambient, rarely-changed settings —
// log format, ledger path, HTTP timeouts — the way the teacher splits
// scanner behavior (YAML) from secrets/overrides (.env).
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Network NetworkConfig `yaml:"network"`

	NetworkMode            domain.Mode
	OperatorAddress        domain.Address
	IgnoredNetworkIDs      []uint64
	WhitelistedNetworkIDs  []uint64
	NetworkUpdateInterval  time.Duration
	BalanceUpdateInterval  time.Duration
	RebalanceCheckInterval time.Duration
	DeficitThreshold       *uint256.Int
	SurplusThreshold       *uint256.Int
	NetTotalAllowance      *uint256.Int
	MinAllowanceUSDC       *uint256.Int
	MinAllowanceIOU        *uint256.Int
	OpportunityMinScore    float64
	DryRun                 bool

	ManifestPoolsURL   string
	ManifestTokensURL  string
	NetworkRegistryURL string
}

// NetworkConfig carries ambient HTTP/RPC settings that don't vary per
// deployment, the way the teacher's APIConfig holds base URLs.
type NetworkConfig struct {
	RPCRequestTimeoutSeconds int     `yaml:"rpc_request_timeout_seconds"`
	RPCRatePerSecond         float64 `yaml:"rpc_rate_per_second"`
}

// LedgerConfig controls where the execution audit trail is persisted.
type LedgerConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

func (c *Config) RPCRequestTimeout() time.Duration {
	return time.Duration(c.Network.RPCRequestTimeoutSeconds) * time.Second
}

// Load reads the ambient YAML file, loads .env if present, and then layers
// the recognized environment variables on top — mirroring the teacher's
// YAML-plus-env-override `Load`, generalized so nearly every field comes
// from the environment rather than the YAML file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("NETWORK_MODE"); v != "" {
		mode, ok := domain.ParseMode(v)
		if !ok {
			return domain.NewError(domain.ErrConfigInvalid, "config.applyEnv", fmt.Errorf("invalid NETWORK_MODE %q", v))
		}
		cfg.NetworkMode = mode
	}
	if v := os.Getenv("OPERATOR_ADDRESS"); v != "" {
		addr, err := domain.ParseAddress(v)
		if err != nil {
			return domain.NewError(domain.ErrConfigInvalid, "config.applyEnv", fmt.Errorf("invalid OPERATOR_ADDRESS: %w", err))
		}
		cfg.OperatorAddress = addr
	}

	var err error
	if cfg.IgnoredNetworkIDs, err = parseU64List(os.Getenv("IGNORED_NETWORK_IDS")); err != nil {
		return fmt.Errorf("IGNORED_NETWORK_IDS: %w", err)
	}
	if cfg.WhitelistedNetworkIDs, err = parseU64List(os.Getenv("WHITELISTED_NETWORK_IDS")); err != nil {
		return fmt.Errorf("WHITELISTED_NETWORK_IDS: %w", err)
	}

	if cfg.NetworkUpdateInterval, err = parseMillis("LANCA_NETWORK_UPDATE_INTERVAL_MS", 300_000); err != nil {
		return err
	}
	if cfg.BalanceUpdateInterval, err = parseMillis("BALANCE_UPDATE_INTERVAL_MS", 60_000); err != nil {
		return err
	}
	if cfg.RebalanceCheckInterval, err = parseMillis("REBALANCER_CHECK_INTERVAL_MS", 30_000); err != nil {
		return err
	}

	if cfg.DeficitThreshold, err = parseUint256("DEFICIT_THRESHOLD"); err != nil {
		return err
	}
	if cfg.SurplusThreshold, err = parseUint256("SURPLUS_THRESHOLD"); err != nil {
		return err
	}
	if cfg.NetTotalAllowance, err = parseUint256("NET_TOTAL_ALLOWANCE"); err != nil {
		return err
	}
	if cfg.MinAllowanceUSDC, err = parseUint256("MIN_ALLOWANCE_USDC"); err != nil {
		return err
	}
	if cfg.MinAllowanceIOU, err = parseUint256("MIN_ALLOWANCE_IOU"); err != nil {
		return err
	}

	if v := os.Getenv("OPPORTUNITY_SCORER_MIN_SCORE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.NewError(domain.ErrConfigInvalid, "config.applyEnv", fmt.Errorf("invalid OPPORTUNITY_SCORER_MIN_SCORE: %w", err))
		}
		cfg.OpportunityMinScore = f
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.NewError(domain.ErrConfigInvalid, "config.applyEnv", fmt.Errorf("invalid DRY_RUN: %w", err))
		}
		cfg.DryRun = b
	}

	if v := os.Getenv("MANIFEST_POOLS_URL"); v != "" {
		cfg.ManifestPoolsURL = v
	}
	if v := os.Getenv("MANIFEST_TOKENS_URL"); v != "" {
		cfg.ManifestTokensURL = v
	}
	if v := os.Getenv("NETWORK_REGISTRY_URL"); v != "" {
		cfg.NetworkRegistryURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LEDGER_DSN"); v != "" {
		cfg.Ledger.DSN = v
	}

	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Ledger.DSN == "" {
		cfg.Ledger.DSN = "rebalancer.db"
	}
	if cfg.Network.RPCRequestTimeoutSeconds <= 0 {
		cfg.Network.RPCRequestTimeoutSeconds = 10
	}
	if cfg.Network.RPCRatePerSecond <= 0 {
		cfg.Network.RPCRatePerSecond = 10
	}
	if cfg.DeficitThreshold == nil {
		cfg.DeficitThreshold = zeroUint256()
	}
	if cfg.SurplusThreshold == nil {
		cfg.SurplusThreshold = zeroUint256()
	}
	if cfg.NetTotalAllowance == nil {
		cfg.NetTotalAllowance = zeroUint256()
	}
	if cfg.MinAllowanceUSDC == nil {
		cfg.MinAllowanceUSDC = zeroUint256()
	}
	if cfg.MinAllowanceIOU == nil {
		cfg.MinAllowanceIOU = zeroUint256()
	}
}

func parseU64List(v string) ([]uint64, error) {
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, domain.NewError(domain.ErrConfigInvalid, "config.parseU64List", fmt.Errorf("invalid id %q: %w", p, err))
		}
		out = append(out, n)
	}
	return out, nil
}

func parseUint256(key string) (*uint256.Int, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	n, err := uint256.FromDecimal(v)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfigInvalid, "config.parseUint256", fmt.Errorf("invalid %s: %w", key, err))
	}
	return n, nil
}

func zeroUint256() *uint256.Int {
	return uint256.NewInt(0)
}

func parseMillis(key string, def int64) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Millisecond, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, domain.NewError(domain.ErrConfigInvalid, "config.parseMillis", fmt.Errorf("invalid %s: %w", key, err))
	}
	return time.Duration(n) * time.Millisecond, nil
}
