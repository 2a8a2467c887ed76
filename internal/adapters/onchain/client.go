// Package onchain implements ports.ChainClient against real Ethereum-style
// JSON-RPC endpoints via go-ethereum's ethclient, one connection per network.
package onchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"golang.org/x/time/rate"

	"github.com/lbf-labs/rebalancer/internal/domain"
	"github.com/lbf-labs/rebalancer/internal/ports"
)

const (
	gasPriceUpdateInterval = 5 * time.Minute
	receiptPollInterval    = 3 * time.Second
	fallbackGasPriceWei    = 30_000_000_000 // 30 gwei
)

type networkConn struct {
	client  *ethclient.Client
	chainID *big.Int
	limiter *rate.Limiter

	mu           sync.RWMutex
	cachedGas    *big.Int
	gasUpdatedAt time.Time
}

// Client is a multi-network ports.ChainClient. Each network is dialed once
// via AddNetwork before use; Read/Write/WaitForReceipt dispatch to the
// matching connection.
type Client struct {
	signer         ports.SignerRegistry
	defaultTimeout time.Duration
	ratePerSecond  float64

	mu    sync.RWMutex
	conns map[domain.NetworkName]*networkConn
}

func NewClient(signer ports.SignerRegistry, defaultTimeout time.Duration, ratePerSecond float64) *Client {
	return &Client{
		signer:         signer,
		defaultTimeout: defaultTimeout,
		ratePerSecond:  ratePerSecond,
		conns:          make(map[domain.NetworkName]*networkConn),
	}
}

// Name implements ports.NetworkUpdateListener.
func (c *Client) Name() string { return "onchain" }

// OnNetworksUpdated dials any network in active that isn't already
// connected. Already-connected networks are left untouched, so a dropped
// network from a later refresh keeps its live connection rather than being
// torn down mid-flight.
func (c *Client) OnNetworksUpdated(ctx context.Context, active []domain.Network) error {
	for _, n := range active {
		if c.hasConn(n.Name) {
			continue
		}
		if len(n.RPCURLs) == 0 {
			return domain.NewError(domain.ErrConfigInvalid, "onchain.OnNetworksUpdated",
				fmt.Errorf("network %s has no RPC URLs", n.Name))
		}
		if err := c.AddNetwork(ctx, n.Name, n.ChainID, n.RPCURLs[0], c.ratePerSecond); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) hasConn(name domain.NetworkName) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.conns[name]
	return ok
}

// AddNetwork dials rpcURL and registers it under name. ratePerSecond bounds
// outbound RPC calls on this connection (burst is ratePerSecond, minimum 1).
func (c *Client) AddNetwork(ctx context.Context, name domain.NetworkName, chainID uint64, rpcURL string, ratePerSecond float64) error {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return domain.NewError(domain.ErrConfigInvalid, "onchain.AddNetwork", fmt.Errorf("dial %s: %w", rpcURL, err))
	}

	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}

	c.mu.Lock()
	c.conns[name] = &networkConn{
		client:  client,
		chainID: new(big.Int).SetUint64(chainID),
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) conn(network domain.NetworkName) (*networkConn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.conns[network]
	if !ok {
		return nil, domain.NewError(domain.ErrNetworkNotActive, "onchain.conn", fmt.Errorf("no connection for %s", network))
	}
	return conn, nil
}

func (c *Client) DefaultTimeout() time.Duration { return c.defaultTimeout }

// Read performs a view call against call.To.
func (c *Client) Read(ctx context.Context, call ports.ReadCall) ([]byte, error) {
	conn, err := c.conn(call.Network)
	if err != nil {
		return nil, err
	}
	if err := conn.limiter.Wait(ctx); err != nil {
		return nil, domain.NewError(domain.ErrCancelled, "onchain.Read", err)
	}

	to := toCommon(call.To)
	out, err := conn.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: call.Data}, nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrRPCReadFailed, "onchain.Read", err)
	}
	return out, nil
}

// Write signs and submits a transaction, returning its hash once accepted by
// the node's mempool (not once mined — callers use WaitForReceipt for that).
func (c *Client) Write(ctx context.Context, call ports.WriteCall) (domain.TxHash, error) {
	conn, err := c.conn(call.Network)
	if err != nil {
		return domain.TxHash{}, err
	}
	if err := conn.limiter.Wait(ctx); err != nil {
		return domain.TxHash{}, domain.NewError(domain.ErrCancelled, "onchain.Write", err)
	}

	operator, err := c.signer.OperatorAddress(call.Network)
	if err != nil {
		return domain.TxHash{}, domain.NewError(domain.ErrRPCWriteFailed, "onchain.Write", fmt.Errorf("operator address: %w", err))
	}

	nonce, err := conn.client.PendingNonceAt(ctx, toCommon(operator))
	if err != nil {
		return domain.TxHash{}, domain.NewError(domain.ErrRPCWriteFailed, "onchain.Write", fmt.Errorf("nonce: %w", err))
	}

	gasPrice, err := c.gasPrice(ctx, conn)
	if err != nil {
		return domain.TxHash{}, domain.NewError(domain.ErrRPCWriteFailed, "onchain.Write", fmt.Errorf("gas price: %w", err))
	}

	to := toCommon(call.To)
	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      call.GasLimit,
		GasPrice: gasPrice,
		Data:     call.Data,
	})

	unsignedBytes, err := unsigned.MarshalBinary()
	if err != nil {
		return domain.TxHash{}, domain.NewError(domain.ErrRPCWriteFailed, "onchain.Write", fmt.Errorf("marshal tx: %w", err))
	}

	signedBytes, err := c.signer.Sign(call.Network, unsignedBytes)
	if err != nil {
		return domain.TxHash{}, domain.NewError(domain.ErrRPCWriteFailed, "onchain.Write", fmt.Errorf("sign tx: %w", err))
	}

	var signed types.Transaction
	if err := signed.UnmarshalBinary(signedBytes); err != nil {
		return domain.TxHash{}, domain.NewError(domain.ErrRPCWriteFailed, "onchain.Write", fmt.Errorf("unmarshal signed tx: %w", err))
	}

	if err := conn.client.SendTransaction(ctx, &signed); err != nil {
		return domain.TxHash{}, domain.NewError(domain.ErrRPCWriteFailed, "onchain.Write", err)
	}

	return domain.TxHash(signed.Hash()), nil
}

// WaitForReceipt polls for a mined receipt until confirmed or ctx is done,
// the same poll-on-a-ticker shape the teacher uses for merge transactions.
func (c *Client) WaitForReceipt(ctx context.Context, network domain.NetworkName, tx domain.TxHash) (ports.Receipt, error) {
	conn, err := c.conn(network)
	if err != nil {
		return ports.Receipt{}, err
	}

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	hash := common.Hash(tx)
	for {
		select {
		case <-ctx.Done():
			return ports.Receipt{}, domain.NewError(domain.ErrReceiptTimeout, "onchain.WaitForReceipt", ctx.Err())
		case <-ticker.C:
			receipt, err := conn.client.TransactionReceipt(ctx, hash)
			if err != nil {
				continue // not yet mined
			}
			return ports.Receipt{
				TxHash:  tx,
				Success: receipt.Status == types.ReceiptStatusSuccessful,
				GasUsed: receipt.GasUsed,
			}, nil
		}
	}
}

// NativeBalance returns addr's native gas balance on network.
func (c *Client) NativeBalance(ctx context.Context, network domain.NetworkName, addr domain.Address) (*uint256.Int, error) {
	conn, err := c.conn(network)
	if err != nil {
		return nil, err
	}
	if err := conn.limiter.Wait(ctx); err != nil {
		return nil, domain.NewError(domain.ErrCancelled, "onchain.NativeBalance", err)
	}

	balance, err := conn.client.BalanceAt(ctx, toCommon(addr), nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrRPCReadFailed, "onchain.NativeBalance", err)
	}
	v, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, domain.NewError(domain.ErrRPCReadFailed, "onchain.NativeBalance", fmt.Errorf("balance overflows uint256"))
	}
	return v, nil
}

// gasPrice returns conn's cached gas price, refreshing it from the node if
// stale. Grounded on the teacher's getGasPrice cache-with-RWMutex shape.
func (c *Client) gasPrice(ctx context.Context, conn *networkConn) (*big.Int, error) {
	conn.mu.RLock()
	cached := conn.cachedGas
	updatedAt := conn.gasUpdatedAt
	conn.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceUpdateInterval {
		return cached, nil
	}

	price, err := conn.client.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return big.NewInt(fallbackGasPriceWei), nil
	}

	// 10% buffer for faster inclusion.
	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	conn.mu.Lock()
	conn.cachedGas = buffered
	conn.gasUpdatedAt = time.Now()
	conn.mu.Unlock()

	return buffered, nil
}

func toCommon(a domain.Address) common.Address {
	return common.Address(a)
}
