package evm

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/RomanDevelop/alien-manager/common"
)

const (
	TransferGas   = 200000
	transferEvent = "Transfer"
)

// Token is an ERC-20 binding.
type Token struct {
	client   *Client
	address  ethcommon.Address
	contract *bind.BoundContract
}

func (c *Client) Token(addr ethcommon.Address) *Token {
	return &Token{
		client:   c,
		address:  addr,
		contract: bind.NewBoundContract(addr, erc20ABI, c.eth, c.eth, c.eth),
	}
}

func (t *Token) Address() ethcommon.Address {
	return t.address
}

func (t *Token) call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	ctx, cancel := t.client.rpcContext(ctx)
	defer cancel()
	var out []interface{}
	if err := t.contract.Call(t.client.callOpts(ctx), &out, method, args...); err != nil {
		return nil, fmt.Errorf("call token %s: %w", method, parseRPCError(err))
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("call token %s: expected 1 value, got %d", method, len(out))
	}
	return out[0], nil
}

func (t *Token) BalanceOf(ctx context.Context, owner ethcommon.Address) (*big.Int, error) {
	v, err := t.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(v, new(*big.Int)).(**big.Int), nil
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	v, err := t.call(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(v, new(*big.Int)).(**big.Int), nil
}

func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	v, err := t.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(v, new(uint8)).(*uint8), nil
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	v, err := t.call(ctx, "symbol")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(v, new(string)).(*string), nil
}

func (t *Token) Transfer(ctx context.Context, to ethcommon.Address, amount *big.Int) (*types.Transaction, error) {
	opts, err := t.client.transactOpts(ctx, nil, TransferGas)
	if err != nil {
		return nil, err
	}
	tx, err := t.contract.Transact(opts, "transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("send token transfer: %w", parseRPCError(err))
	}
	log.Printf("Token %s: transfer of %s to %s sent in tx %s", t.address.Hex(), common.FormatEther(amount), to.Hex(), tx.Hash().Hex())
	return tx, nil
}

// Transfers scans Transfer events of the token in [from, to].
func (t *Token) Transfers(ctx context.Context, from, to, window uint64) ([]common.TokenTransfer, error) {
	logs, err := scanLogs(ctx, t.client.eth, LogScan{
		Address: t.address,
		Topics:  [][]ethcommon.Hash{{erc20ABI.Events[transferEvent].ID}},
		From:    from,
		To:      to,
		Window:  window,
	})
	if err != nil {
		return nil, err
	}
	transfers := make([]common.TokenTransfer, 0, len(logs))
	for _, lg := range logs {
		transfer, err := DecodeTransfer(lg)
		if err != nil {
			continue
		}
		transfers = append(transfers, transfer)
	}
	return transfers, nil
}

// DecodeTransfer decodes an ERC-20 Transfer log.
func DecodeTransfer(lg types.Log) (common.TokenTransfer, error) {
	event := erc20ABI.Events[transferEvent]
	if len(lg.Topics) != 3 || lg.Topics[0] != event.ID {
		return common.TokenTransfer{}, fmt.Errorf("not a %s log", transferEvent)
	}
	values, err := event.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil || len(values) != 1 {
		return common.TokenTransfer{}, fmt.Errorf("unpack %s data: %v", transferEvent, err)
	}
	return common.TokenTransfer{
		From:  ethcommon.BytesToAddress(lg.Topics[1].Bytes()),
		To:    ethcommon.BytesToAddress(lg.Topics[2].Bytes()),
		Value: *abi.ConvertType(values[0], new(*big.Int)).(**big.Int),
	}, nil
}
