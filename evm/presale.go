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

// Gas limits of presale transactions.
const (
	BuyGas           = 200000
	ClaimGas         = 150000
	WithdrawGas      = 100000
	EmergencyGas     = 200000
	PauseGas         = 100000
	UpdatePriceGas   = 150000
	UpdateHardCapGas = 150000
	UpdateTimesGas   = 300000
)

const purchaseEvent = "TokensPurchased"

// Presale is a binding of a deployed AlienPresale contract.
type Presale struct {
	client   *Client
	address  ethcommon.Address
	contract *bind.BoundContract
}

func (c *Client) Presale(addr ethcommon.Address) (*Presale, error) {
	if addr == (ethcommon.Address{}) {
		return nil, common.ErrNoPresale
	}
	return &Presale{
		client:   c,
		address:  addr,
		contract: bind.NewBoundContract(addr, presaleABI, c.eth, c.eth, c.eth),
	}, nil
}

func (p *Presale) Address() ethcommon.Address {
	return p.address
}

func (p *Presale) call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	ctx, cancel := p.client.rpcContext(ctx)
	defer cancel()
	var out []interface{}
	if err := p.contract.Call(p.client.callOpts(ctx), &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, parseRPCError(err))
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("call %s: expected 1 value, got %d", method, len(out))
	}
	return out[0], nil
}

func (p *Presale) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	v, err := p.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(v, new(*big.Int)).(**big.Int), nil
}

func (p *Presale) callAddress(ctx context.Context, method string) (ethcommon.Address, error) {
	v, err := p.call(ctx, method)
	if err != nil {
		return ethcommon.Address{}, err
	}
	return *abi.ConvertType(v, new(ethcommon.Address)).(*ethcommon.Address), nil
}

func (p *Presale) Owner(ctx context.Context) (ethcommon.Address, error) {
	return p.callAddress(ctx, "owner")
}

func (p *Presale) TotalRaised(ctx context.Context) (*big.Int, error) {
	return p.callBig(ctx, "totalRaised")
}

func (p *Presale) HardCap(ctx context.Context) (*big.Int, error) {
	return p.callBig(ctx, "hardCap")
}

func (p *Presale) TokenPrice(ctx context.Context) (*big.Int, error) {
	return p.callBig(ctx, "tokenPrice")
}

// Params reads all public parameters of the presale.
func (p *Presale) Params(ctx context.Context) (*common.PresaleParams, error) {
	var params common.PresaleParams
	var err error
	if params.Token, err = p.callAddress(ctx, "token"); err != nil {
		return nil, err
	}
	if params.Owner, err = p.Owner(ctx); err != nil {
		return nil, err
	}
	start, err := p.callBig(ctx, "startTime")
	if err != nil {
		return nil, err
	}
	end, err := p.callBig(ctx, "endTime")
	if err != nil {
		return nil, err
	}
	params.StartTime = common.TimeFromBig(start)
	params.EndTime = common.TimeFromBig(end)
	if params.HardCap, err = p.HardCap(ctx); err != nil {
		return nil, err
	}
	if params.TokenPrice, err = p.TokenPrice(ctx); err != nil {
		return nil, err
	}
	if params.TotalRaised, err = p.TotalRaised(ctx); err != nil {
		return nil, err
	}
	paused, err := p.call(ctx, "paused")
	if err != nil {
		return nil, err
	}
	params.Paused = *abi.ConvertType(paused, new(bool)).(*bool)
	return &params, nil
}

func (p *Presale) UserInfo(ctx context.Context, user ethcommon.Address) (*common.UserInfo, error) {
	contribution, err := p.callBig(ctx, "contributions", user)
	if err != nil {
		return nil, err
	}
	claimable, err := p.callBig(ctx, "claimableTokens", user)
	if err != nil {
		return nil, err
	}
	return &common.UserInfo{
		Address:         user,
		Contribution:    contribution,
		ClaimableTokens: claimable,
	}, nil
}

func (p *Presale) transact(ctx context.Context, value *big.Int, gasLimit uint64, method string, args ...interface{}) (*types.Transaction, error) {
	opts, err := p.client.transactOpts(ctx, value, gasLimit)
	if err != nil {
		return nil, err
	}
	tx, err := p.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", method, parseRPCError(err))
	}
	log.Printf("Presale %s: %s sent in tx %s", p.address.Hex(), method, tx.Hash().Hex())
	return tx, nil
}

func (p *Presale) BuyTokens(ctx context.Context, value *big.Int) (*types.Transaction, error) {
	return p.transact(ctx, value, BuyGas, "buyTokens")
}

func (p *Presale) ClaimTokens(ctx context.Context) (*types.Transaction, error) {
	return p.transact(ctx, nil, ClaimGas, "claimTokens")
}

func (p *Presale) WithdrawFunds(ctx context.Context) (*types.Transaction, error) {
	return p.transact(ctx, nil, WithdrawGas, "withdrawFunds")
}

// EmergencyWithdraw is withdrawFunds with a higher gas limit.
func (p *Presale) EmergencyWithdraw(ctx context.Context) (*types.Transaction, error) {
	return p.transact(ctx, nil, EmergencyGas, "withdrawFunds")
}

func (p *Presale) WithdrawUnsoldTokens(ctx context.Context) (*types.Transaction, error) {
	return p.transact(ctx, nil, WithdrawGas, "withdrawUnsoldTokens")
}

func (p *Presale) PausePresale(ctx context.Context, paused bool) (*types.Transaction, error) {
	return p.transact(ctx, nil, PauseGas, "pausePresale", paused)
}

func (p *Presale) UpdateTokenPrice(ctx context.Context, price *big.Int) (*types.Transaction, error) {
	return p.transact(ctx, nil, UpdatePriceGas, "updateTokenPrice", price)
}

func (p *Presale) UpdateHardCap(ctx context.Context, hardCap *big.Int) (*types.Transaction, error) {
	return p.transact(ctx, nil, UpdateHardCapGas, "updateHardCap", hardCap)
}

func (p *Presale) UpdatePresaleTimes(ctx context.Context, start, end int64) (*types.Transaction, error) {
	return p.transact(ctx, nil, UpdateTimesGas, "updatePresaleTimes", big.NewInt(start), big.NewInt(end))
}

// Purchases scans TokensPurchased events in [from, to]. Time of purchases is
// left empty.
func (p *Presale) Purchases(ctx context.Context, from, to, window uint64) ([]common.Purchase, error) {
	logs, err := scanLogs(ctx, p.client.eth, LogScan{
		Address: p.address,
		Topics:  [][]ethcommon.Hash{{PurchaseTopic()}},
		From:    from,
		To:      to,
		Window:  window,
	})
	if err != nil {
		return nil, err
	}
	purchases := make([]common.Purchase, 0, len(logs))
	for _, lg := range logs {
		purchase, err := DecodePurchase(lg)
		if err != nil {
			log.Printf("Skipping log %s/%d: %v", lg.TxHash.Hex(), lg.Index, err)
			continue
		}
		purchases = append(purchases, purchase)
	}
	return purchases, nil
}

// PurchaseTopic is the topic of TokensPurchased event.
func PurchaseTopic() ethcommon.Hash {
	return presaleABI.Events[purchaseEvent].ID
}

type purchaseLog struct {
	Buyer  ethcommon.Address
	Amount *big.Int
	Tokens *big.Int
}

// DecodePurchase decodes a TokensPurchased log.
func DecodePurchase(lg types.Log) (common.Purchase, error) {
	event := presaleABI.Events[purchaseEvent]
	if len(lg.Topics) != 2 || lg.Topics[0] != event.ID {
		return common.Purchase{}, fmt.Errorf("not a %s log", purchaseEvent)
	}
	var ev purchaseLog
	if err := presaleABI.UnpackIntoInterface(&ev, purchaseEvent, lg.Data); err != nil {
		return common.Purchase{}, fmt.Errorf("unpack %s data: %w", purchaseEvent, err)
	}
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(&ev, indexed, lg.Topics[1:]); err != nil {
		return common.Purchase{}, fmt.Errorf("parse %s topics: %w", purchaseEvent, err)
	}
	return common.Purchase{
		Buyer:       ev.Buyer,
		Amount:      ev.Amount,
		Tokens:      ev.Tokens,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
	}, nil
}
