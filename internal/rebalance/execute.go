package rebalance

import (
	"context"
	"log/slog"
	"time"

	"github.com/holiman/uint256"

	"github.com/lbf-labs/rebalancer/internal/balance"
	"github.com/lbf-labs/rebalancer/internal/chainabi"
	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

// AllowanceManager is the allowance surface the executor needs from the
// balance tracker.
type AllowanceManager interface {
	EnsureAllowance(ctx context.Context, network domain.NetworkName, token, spender domain.Address, symbol domain.TokenSymbol, floors balance.Floors, required *uint256.Int) error
}

// ForceUpdater is the refresh surface the executor needs from the balance
// tracker: it must see the effect of one write before evaluating the next.
type ForceUpdater interface {
	ForceUpdate(ctx context.Context, active []domain.Network) error
}

// DeploymentsSnapshot returns the current deployment set.
type DeploymentsSnapshot func() domain.Deployments

// GasLimits configures the gas limit passed with each pool-function call.
type GasLimits struct {
	FillDeficit uint64
	TakeSurplus uint64
	BridgeIOU   uint64
}

// Config controls executor behavior.
type Config struct {
	Floors    balance.Floors
	GasLimits GasLimits
	DryRun    bool
}

// Executor issues on-chain calls for scored opportunities, strictly
// sequentially and highest score first. totalRedeemedUsdc is the only
// mutable "earned progress" counter in the system and is only ever
// incremented here.
type Executor struct {
	cfg         Config
	chain       ports.ChainClient
	allowance   AllowanceManager
	forceUpdate ForceUpdater
	deployments DeploymentsSnapshot
	ledger      ports.ExecutionLedger

	totalRedeemedUsdc *uint256.Int
}

func NewExecutor(cfg Config, chain ports.ChainClient, allowance AllowanceManager, forceUpdate ForceUpdater, deployments DeploymentsSnapshot, ledger ports.ExecutionLedger) *Executor {
	return &Executor{
		cfg:               cfg,
		chain:             chain,
		allowance:         allowance,
		forceUpdate:       forceUpdate,
		deployments:       deployments,
		ledger:            ledger,
		totalRedeemedUsdc: uint256.NewInt(0),
	}
}

// TotalRedeemedUsdc returns the current monotone counter value.
func (e *Executor) TotalRedeemedUsdc() *uint256.Int {
	return e.totalRedeemedUsdc
}

// Execute runs the batch sequentially; a failure on one opportunity is
// logged and does not stop the remaining opportunities from being tried.
func (e *Executor) Execute(ctx context.Context, eventID string, scored []domain.ScoredOpportunity, active []domain.Network) []domain.ExecutionRecord {
	chainIDs := make(map[domain.NetworkName]uint64, len(active))
	for _, n := range active {
		chainIDs[n.Name] = n.ChainID
	}

	records := make([]domain.ExecutionRecord, 0, len(scored))
	for _, s := range scored {
		record := e.executeOne(ctx, eventID, s.Opportunity, chainIDs)
		records = append(records, record)

		if e.ledger != nil {
			if err := e.ledger.RecordExecution(ctx, record); err != nil {
				slog.Warn("rebalance: execution ledger write failed", "event", eventID, "err", err)
			}
		}

		if err := e.forceUpdate.ForceUpdate(ctx, active); err != nil {
			slog.Warn("rebalance: force balance update failed after execution", "event", eventID, "err", err)
		}
	}
	return records
}

func (e *Executor) executeOne(ctx context.Context, eventID string, opp domain.Opportunity, chainIDs map[domain.NetworkName]uint64) domain.ExecutionRecord {
	record := domain.ExecutionRecord{EventID: eventID, Opportunity: opp}

	network := opp.GasNetwork()
	symbol := tokenSymbolFor(opp.Kind)

	deps := e.deployments()
	poolAddr, ok := deps.PoolAddress(network)
	if !ok {
		err := domain.NewError(domain.ErrMissingDeployment, "rebalance.Execute", nil)
		record.Error = err.Error()
		slog.Error("rebalance: missing pool deployment, configuration bug", "event", eventID, "network", network, "kind", opp.Kind)
		return record
	}
	tokenAddr, ok := deps.TokenAddress(network, symbol)
	if !ok {
		err := domain.NewError(domain.ErrMissingDeployment, "rebalance.Execute", nil)
		record.Error = err.Error()
		slog.Error("rebalance: missing token deployment, configuration bug", "event", eventID, "network", network, "kind", opp.Kind)
		return record
	}

	data, gasLimit, err := e.packCall(opp, chainIDs)
	if err != nil {
		record.Error = err.Error()
		slog.Error("rebalance: pack call failed", "event", eventID, "network", network, "kind", opp.Kind, "err", err)
		return record
	}

	if e.cfg.DryRun {
		slog.Info("rebalance: dry run, not submitting", "event", eventID, "network", network, "kind", opp.Kind, "amount", opp.Amount)
		record.Success = true
		record.ExecutedAt = time.Now()
		return record
	}

	if err := e.allowance.EnsureAllowance(ctx, network, tokenAddr, poolAddr, symbol, e.cfg.Floors, opp.Amount); err != nil {
		record.Error = err.Error()
		slog.Error("rebalance: ensure allowance failed", "event", eventID, "network", network, "kind", opp.Kind, "err", err)
		return record
	}

	txHash, err := e.chain.Write(ctx, ports.WriteCall{Network: network, To: poolAddr, Data: data, GasLimit: gasLimit})
	if err != nil {
		record.Error = err.Error()
		slog.Error("rebalance: submit transaction failed", "event", eventID, "network", network, "kind", opp.Kind, "err", err)
		return record
	}
	record.TxHash = txHash

	receipt, err := e.chain.WaitForReceipt(ctx, network, txHash)
	if err != nil {
		record.Error = err.Error()
		slog.Error("rebalance: wait for receipt failed", "event", eventID, "network", network, "tx", txHash, "err", err)
		return record
	}
	if !receipt.Success {
		record.Error = "transaction reverted on-chain"
		slog.Error("rebalance: transaction reverted", "event", eventID, "network", network, "tx", txHash)
		return record
	}

	record.Success = true
	record.ExecutedAt = time.Now()
	slog.Info("rebalance: opportunity executed", "event", eventID, "network", network, "kind", opp.Kind, "amount", opp.Amount, "tx", txHash)

	if opp.Kind == domain.TakeSurplus {
		e.totalRedeemedUsdc = new(uint256.Int).Add(e.totalRedeemedUsdc, opp.Amount)
	}
	return record
}

func (e *Executor) packCall(opp domain.Opportunity, chainIDs map[domain.NetworkName]uint64) ([]byte, uint64, error) {
	switch opp.Kind {
	case domain.FillDeficit:
		data, err := chainabi.PackFillDeficit(opp.Amount)
		return data, e.cfg.GasLimits.FillDeficit, err
	case domain.TakeSurplus:
		data, err := chainabi.PackTakeSurplus(opp.Amount)
		return data, e.cfg.GasLimits.TakeSurplus, err
	case domain.BridgeIOU:
		destChainID := chainIDs[opp.To]
		data, err := chainabi.PackBridgeIOU(opp.Amount, destChainID)
		return data, e.cfg.GasLimits.BridgeIOU, err
	default:
		return nil, 0, domain.NewError(domain.ErrConfigInvalid, "rebalance.packCall", nil)
	}
}

func tokenSymbolFor(kind domain.OpportunityKind) domain.TokenSymbol {
	if kind == domain.FillDeficit {
		return domain.USDC
	}
	return domain.IOU
}
