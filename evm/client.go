package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/RomanDevelop/alien-manager/common"
)

const defaultTxTimeout = 5 * time.Minute

// backend is the node API used by Client, ethclient.Client implements it.
type backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ethereum.ChainIDReader
	ethereum.ChainStateReader
}

type Client struct {
	NetworkConfig
	TxTimeout time.Duration

	eth      backend
	closeEth func()
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	from     ethcommon.Address
}

// ParsePrivateKey accepts a hex key with or without 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" || hexKey == "your_private_key" {
		return nil, common.ErrNoSigner
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("cannot parse private key: %w", err)
	}
	return key, nil
}

// NewClient connects to the network RPC. privateKey may be empty, then
// the client is read only and address is used as the wallet address.
func NewClient(ctx context.Context, config NetworkConfig, privateKey string, address ethcommon.Address) (*Client, error) {
	dialCtx, cancel := (&Client{NetworkConfig: config}).rpcContext(ctx)
	defer cancel()
	eth, err := ethclient.DialContext(dialCtx, config.URL)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", config.URL, err)
	}
	c, err := newClient(dialCtx, config, eth, privateKey, address)
	if err != nil {
		eth.Close()
		return nil, err
	}
	c.closeEth = eth.Close
	return c, nil
}

func newClient(ctx context.Context, config NetworkConfig, eth backend, privateKey string, address ethcommon.Address) (*Client, error) {
	c := &Client{
		NetworkConfig: config,
		TxTimeout:     defaultTxTimeout,
		eth:           eth,
		from:          address,
	}
	if privateKey != "" {
		key, err := ParsePrivateKey(privateKey)
		if err != nil {
			return nil, err
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
		if address != (ethcommon.Address{}) && address != c.from {
			log.Printf("Wallet address %s does not match private key address %s, using the latter", address.Hex(), c.from.Hex())
		}
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get chain ID from %s: %w", config.URL, err)
	}
	if config.ChainID != 0 && chainID.Int64() != config.ChainID {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrChainIDMismatch, config.ChainID, chainID.Int64())
	}
	c.chainID = chainID
	return c, nil
}

func (c *Client) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

func (c *Client) Account() ethcommon.Address {
	return c.from
}

func (c *Client) CanSign() bool {
	return c.key != nil
}

func (c *Client) Close() error {
	if c.closeEth != nil {
		c.closeEth()
	}
	return nil
}

func (c *Client) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.from}
}

// transactOpts builds signing options. gasLimit 0 lets the node estimate.
func (c *Client) transactOpts(ctx context.Context, value *big.Int, gasLimit uint64) (*bind.TransactOpts, error) {
	if c.key == nil {
		return nil, common.ErrNoSigner
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("cannot create transactor: %w", err)
	}
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice := c.GasPriceWei()
	if gasPrice == nil {
		gasPrice, err = c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("get gas price: %w", err)
		}
	}
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasPrice = gasPrice
	opts.GasLimit = gasLimit
	if value != nil {
		opts.Value = new(big.Int).Set(value)
	}
	return opts, nil
}

// WaitMined blocks until tx is included and returns its result. A reverted
// transaction is returned together with ErrReverted.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (common.TxResult, error) {
	timeout := c.TxTimeout
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.eth, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return common.TxResult{Hash: tx.Hash()}, fmt.Errorf("%w: tx %s not mined after %s", ErrTimeout, tx.Hash().Hex(), timeout)
		}
		return common.TxResult{Hash: tx.Hash()}, fmt.Errorf("wait for tx %s: %w", tx.Hash().Hex(), err)
	}
	res := receiptResult(receipt)
	if !res.Success {
		return res, fmt.Errorf("%w: tx %s in block %d", ErrReverted, tx.Hash().Hex(), res.BlockNumber)
	}
	return res, nil
}

func receiptResult(receipt *types.Receipt) common.TxResult {
	res := common.TxResult{
		Hash:    receipt.TxHash,
		GasUsed: receipt.GasUsed,
		Success: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res
}

func (c *Client) NativeBalance(ctx context.Context, addr ethcommon.Address) (*big.Int, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()
	balance, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("get balance of %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

// Head returns the latest block number and its timestamp.
func (c *Client) Head(ctx context.Context) (uint64, time.Time, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("get latest header: %w", err)
	}
	return header.Number.Uint64(), time.Unix(int64(header.Time), 0).UTC(), nil
}

func (c *Client) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()
	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, fmt.Errorf("get header %d: %w", number, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

func (c *Client) AddressURL(addr ethcommon.Address) string {
	return fmt.Sprintf("%s/address/%s", c.ExplorerURL, addr.Hex())
}

func (c *Client) TxURL(hash ethcommon.Hash) string {
	return fmt.Sprintf("%s/tx/%s", c.ExplorerURL, hash.Hex())
}
