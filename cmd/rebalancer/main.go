package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lbf-labs/rebalancer/config"
	"github.com/lbf-labs/rebalancer/internal/adapters/httpmanifest"
	"github.com/lbf-labs/rebalancer/internal/adapters/ledger"
	"github.com/lbf-labs/rebalancer/internal/adapters/onchain"
	"github.com/lbf-labs/rebalancer/internal/adapters/registry"
	"github.com/lbf-labs/rebalancer/internal/adapters/report"
	"github.com/lbf-labs/rebalancer/internal/adapters/signer"
	"github.com/lbf-labs/rebalancer/internal/balance"
	"github.com/lbf-labs/rebalancer/internal/core"
	"github.com/lbf-labs/rebalancer/internal/deployment"
	"github.com/lbf-labs/rebalancer/internal/network"
	"github.com/lbf-labs/rebalancer/internal/pool"
	"github.com/lbf-labs/rebalancer/internal/rebalance"
)

// Gas limits are conservative fixed estimates for the pool contract's three
// state-changing methods; the config surface has no per-method override.
const (
	gasLimitFillDeficit = 150_000
	gasLimitTakeSurplus = 150_000
	gasLimitBridgeIOU   = 200_000
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log intended transactions instead of submitting them")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full opportunity table (default: compact one-line summary)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *dryRun {
		cfg.DryRun = true
	}
	setupLogger(cfg.Log)

	slog.Info("rebalancer starting",
		"config", *configPath,
		"mode", cfg.NetworkMode,
		"operator", cfg.OperatorAddress,
		"dry_run", cfg.DryRun,
	)

	ledgerStore, err := ledger.Open(cfg.Ledger.DSN)
	if err != nil {
		slog.Error("failed to open execution ledger", "err", err, "dsn", cfg.Ledger.DSN)
		os.Exit(1)
	}
	defer ledgerStore.Close()

	signerRegistry := signer.New()
	chainClient := onchain.NewClient(signerRegistry, cfg.RPCRequestTimeout(), cfg.Network.RPCRatePerSecond)

	poolsSource := httpmanifest.New(cfg.ManifestPoolsURL, cfg.RPCRequestTimeout())
	tokensSource := httpmanifest.New(cfg.ManifestTokensURL, cfg.RPCRequestTimeout())
	deployments := deployment.New(deployment.Config{Mode: cfg.NetworkMode}, poolsSource, tokensSource)

	networkRegistry := registry.New(cfg.NetworkRegistryURL, cfg.RPCRequestTimeout())
	netCoord := network.New(network.Config{
		UpdateInterval: cfg.NetworkUpdateInterval,
		Mode:           cfg.NetworkMode,
		Whitelist:      cfg.WhitelistedNetworkIDs,
		Blacklist:      cfg.IgnoredNetworkIDs,
	}, networkRegistry, deployments)

	// chainClient dials and signerRegistry loads keys for every network that
	// becomes active; both must run before the balance tracker and pool
	// observer start watching, so they register first — Register order is
	// listener notification order.
	netCoord.Register(chainClient)
	netCoord.Register(signerRegistry)

	deploymentsSnapshot := deployments.Snapshot

	balTracker := balance.New(balance.Config{
		TokenUpdateInterval: cfg.BalanceUpdateInterval,
	}, chainClient, signerRegistry, deploymentsSnapshot)

	poolObserver := pool.New(pool.Config{
		UpdateInterval: cfg.BalanceUpdateInterval,
	}, chainClient, deploymentsSnapshot)

	discoverer := rebalance.NewDiscoverer(rebalance.Thresholds{
		Deficit: cfg.DeficitThreshold,
		Surplus: cfg.SurplusThreshold,
	}, cfg.NetTotalAllowance)

	scorer := rebalance.NewScorer(cfg.OpportunityMinScore)

	executor := rebalance.NewExecutor(rebalance.Config{
		Floors: balance.Floors{
			USDC: cfg.MinAllowanceUSDC,
			IOU:  cfg.MinAllowanceIOU,
		},
		GasLimits: rebalance.GasLimits{
			FillDeficit: gasLimitFillDeficit,
			TakeSurplus: gasLimitTakeSurplus,
			BridgeIOU:   gasLimitBridgeIOU,
		},
		DryRun: cfg.DryRun,
	}, chainClient, balTracker, balTracker, deploymentsSnapshot, ledgerStore)

	rebalancer := rebalance.NewRebalancer(discoverer, scorer, executor, balTracker, poolObserver.Snapshot)
	rebalancer.SetNotifier(report.NewConsole(*table))

	loop := core.NewLoop(core.Config{
		NetworkRefreshInterval: cfg.NetworkUpdateInterval,
		RebalanceCheckInterval: cfg.RebalanceCheckInterval,
	}, netCoord, balTracker, poolObserver, rebalancer)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		slog.Error("rebalancer exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("rebalancer stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
