package manager

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/schedule"
)

type sendFunc func(ctx context.Context) (*types.Transaction, error)

// execute sends a transaction, waits for it and records the outcome.
func (m *Manager) execute(ctx context.Context, action, amount string, send sendFunc) (*common.TxResult, error) {
	tx, err := send(ctx)
	if err != nil {
		m.record(ctx, action, "", amount, m.chain.Account(), err)
		return nil, err
	}
	log.Printf("%s: waiting for %s", action, m.chain.TxURL(tx.Hash()))
	res, err := m.chain.WaitMined(ctx, tx)
	m.record(ctx, action, tx.Hash().Hex(), amount, m.chain.Account(), err)
	if err != nil {
		return &res, fmt.Errorf("%w: %w", common.ErrTxFailed, err)
	}
	log.Printf("%s: confirmed in block %d, gas used %d", action, res.BlockNumber, res.GasUsed)
	return &res, nil
}

// ownerParams checks that the wallet can sign and owns the presale.
func (m *Manager) ownerParams(ctx context.Context) (Presale, *common.PresaleParams, error) {
	presale, err := m.requirePresale()
	if err != nil {
		return nil, nil, err
	}
	if err := m.requireSigner(); err != nil {
		return nil, nil, err
	}
	params, err := presale.Params(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read presale params: %w", err)
	}
	if params.Owner != m.chain.Account() {
		return nil, nil, fmt.Errorf("%w: owner is %s", common.ErrNotOwner, params.Owner.Hex())
	}
	return presale, params, nil
}

// Buy sends amount wei to the presale after checking the phase, the hard
// cap and the wallet balance.
// phaseError tells why a presale in phase p does not accept purchases.
func phaseError(p common.Phase) error {
	switch p {
	case common.Active:
		return nil
	case common.BeforeStart:
		return common.ErrNotStarted
	case common.Ended:
		return common.ErrEnded
	case common.Paused:
		return common.ErrPaused
	default:
		return common.ErrNotActive
	}
}

func (m *Manager) Buy(ctx context.Context, amount *big.Int) (*common.TxResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if err := m.requireSigner(); err != nil {
		return nil, err
	}
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	if err := phaseError(status.Phase); err != nil {
		return nil, err
	}
	if status.HardCapReached {
		return nil, common.ErrHardCapReached
	}
	if amount.Cmp(status.RemainingCap) > 0 {
		return nil, fmt.Errorf("%w: remaining %s %s", common.ErrExceedsRemainingCap, common.FormatEther(status.RemainingCap), common.NativeSymbol)
	}
	balance, err := m.chain.NativeBalance(ctx, m.chain.Account())
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: have %s %s", common.ErrInsufficientBalance, common.FormatEther(balance), common.NativeSymbol)
	}
	log.Printf("Buying for %s %s, expecting %s tokens", common.FormatEther(amount), common.NativeSymbol,
		common.FormatEther(common.TokensForAmount(amount, status.TokenPrice)))
	return m.execute(ctx, common.ActionBuy, common.FormatEther(amount), func(ctx context.Context) (*types.Transaction, error) {
		return m.presale.BuyTokens(ctx, amount)
	})
}

func (m *Manager) Claim(ctx context.Context) (*common.TxResult, error) {
	presale, err := m.requirePresale()
	if err != nil {
		return nil, err
	}
	if err := m.requireSigner(); err != nil {
		return nil, err
	}
	info, err := presale.UserInfo(ctx, m.chain.Account())
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}
	if info.ClaimableTokens == nil || info.ClaimableTokens.Sign() == 0 {
		return nil, common.ErrNothingToClaim
	}
	return m.execute(ctx, common.ActionClaim, common.FormatEther(info.ClaimableTokens), presale.ClaimTokens)
}

func (m *Manager) WithdrawFunds(ctx context.Context) (*common.TxResult, error) {
	presale, _, err := m.ownerParams(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := m.chain.NativeBalance(ctx, presale.Address())
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, common.ActionWithdrawFunds, common.FormatEther(balance), presale.WithdrawFunds)
}

// EmergencyWithdraw withdraws the presale balance with a higher gas limit.
// It refuses to send a transaction when there is nothing to withdraw.
func (m *Manager) EmergencyWithdraw(ctx context.Context) (*common.TxResult, error) {
	presale, err := m.requirePresale()
	if err != nil {
		return nil, err
	}
	balance, err := m.chain.NativeBalance(ctx, presale.Address())
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, common.ErrNothingToWithdraw
	}
	if _, _, err := m.ownerParams(ctx); err != nil {
		return nil, err
	}
	log.Printf("Emergency withdraw of %s %s", common.FormatEther(balance), common.NativeSymbol)
	return m.execute(ctx, common.ActionEmergency, common.FormatEther(balance), presale.EmergencyWithdraw)
}

func (m *Manager) WithdrawUnsoldTokens(ctx context.Context) (*common.TxResult, error) {
	presale, _, err := m.ownerParams(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := m.token.BalanceOf(ctx, presale.Address())
	if err != nil {
		return nil, fmt.Errorf("read presale token balance: %w", err)
	}
	return m.execute(ctx, common.ActionWithdrawTokens, common.FormatEther(balance), presale.WithdrawUnsoldTokens)
}

func (m *Manager) Pause(ctx context.Context, paused bool) (*common.TxResult, error) {
	presale, _, err := m.ownerParams(ctx)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, common.ActionPause, fmt.Sprint(paused), func(ctx context.Context) (*types.Transaction, error) {
		return presale.PausePresale(ctx, paused)
	})
}

// UpdatePrice sets the token price and returns the value read back after
// confirmation.
func (m *Manager) UpdatePrice(ctx context.Context, price *big.Int) (*common.TxResult, *big.Int, error) {
	if price == nil || price.Sign() <= 0 {
		return nil, nil, common.ErrInvalidAmount
	}
	presale, _, err := m.ownerParams(ctx)
	if err != nil {
		return nil, nil, err
	}
	res, err := m.execute(ctx, common.ActionUpdatePrice, common.FormatEther(price), func(ctx context.Context) (*types.Transaction, error) {
		return presale.UpdateTokenPrice(ctx, price)
	})
	if err != nil {
		return res, nil, err
	}
	params, err := presale.Params(ctx)
	if err != nil {
		return res, nil, fmt.Errorf("read back price: %w", err)
	}
	return res, params.TokenPrice, nil
}

func (m *Manager) UpdateHardCap(ctx context.Context, hardCap *big.Int) (*common.TxResult, *big.Int, error) {
	if hardCap == nil || hardCap.Sign() <= 0 {
		return nil, nil, common.ErrInvalidAmount
	}
	presale, _, err := m.ownerParams(ctx)
	if err != nil {
		return nil, nil, err
	}
	res, err := m.execute(ctx, common.ActionUpdateHardCap, common.FormatEther(hardCap), func(ctx context.Context) (*types.Transaction, error) {
		return presale.UpdateHardCap(ctx, hardCap)
	})
	if err != nil {
		return res, nil, err
	}
	params, err := presale.Params(ctx)
	if err != nil {
		return res, nil, fmt.Errorf("read back hard cap: %w", err)
	}
	return res, params.HardCap, nil
}

func (m *Manager) UpdateTimes(ctx context.Context, start, end time.Time) (*common.TxResult, error) {
	if err := schedule.ValidateTimes(start, end); err != nil {
		return nil, err
	}
	presale, _, err := m.ownerParams(ctx)
	if err != nil {
		return nil, err
	}
	return m.updateTimes(ctx, presale, common.ActionUpdateTimes, start, end)
}

func (m *Manager) updateTimes(ctx context.Context, presale Presale, action string, start, end time.Time) (*common.TxResult, error) {
	amount := fmt.Sprintf("%d-%d", start.Unix(), end.Unix())
	return m.execute(ctx, action, amount, func(ctx context.Context) (*types.Transaction, error) {
		return presale.UpdatePresaleTimes(ctx, start.Unix(), end.Unix())
	})
}

// ExtendPlan describes an extension of the presale end.
type ExtendPlan struct {
	Start  time.Time `json:"start"`
	OldEnd time.Time `json:"old_end"`
	NewEnd time.Time `json:"new_end"`
}

// PlanExtend computes a new end duration from now keeping the start. Zero
// duration means the configured default.
func (m *Manager) PlanExtend(ctx context.Context, duration time.Duration) (*ExtendPlan, error) {
	if duration <= 0 {
		duration = m.settings.ExtendDuration
	}
	_, params, err := m.ownerParams(ctx)
	if err != nil {
		return nil, err
	}
	newEnd, err := m.rules.Extend(params.StartTime, duration)
	if err != nil {
		return nil, err
	}
	return &ExtendPlan{Start: params.StartTime, OldEnd: params.EndTime, NewEnd: newEnd}, nil
}

func (m *Manager) Extend(ctx context.Context, plan *ExtendPlan) (*common.TxResult, error) {
	if err := schedule.ValidateTimes(plan.Start, plan.NewEnd); err != nil {
		return nil, err
	}
	presale, _, err := m.ownerParams(ctx)
	if err != nil {
		return nil, err
	}
	return m.updateTimes(ctx, presale, common.ActionExtend, plan.Start, plan.NewEnd)
}

type TransferResult struct {
	Tx             *common.TxResult `json:"tx"`
	WalletBalance  *big.Int         `json:"wallet_balance"`
	PresaleBalance *big.Int         `json:"presale_balance"`
}

// TransferToPresale moves amount tokens from the wallet to the presale
// contract and returns balances after the transfer.
func (m *Manager) TransferToPresale(ctx context.Context, amount *big.Int) (*TransferResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, common.ErrInvalidAmount
	}
	presale, err := m.requirePresale()
	if err != nil {
		return nil, err
	}
	if err := m.requireSigner(); err != nil {
		return nil, err
	}
	if _, err := m.checkTokenDecimals(ctx); err != nil {
		return nil, err
	}
	wallet := m.chain.Account()
	balance, err := m.token.BalanceOf(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("read wallet token balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: have %s", common.ErrInsufficientBalance, common.FormatTokenBalance(balance, common.TokenSymbol))
	}
	res, err := m.execute(ctx, common.ActionTransfer, common.FormatEther(amount), func(ctx context.Context) (*types.Transaction, error) {
		return m.token.Transfer(ctx, presale.Address(), amount)
	})
	if err != nil {
		return &TransferResult{Tx: res}, err
	}
	result := &TransferResult{Tx: res}
	if result.WalletBalance, err = m.token.BalanceOf(ctx, wallet); err != nil {
		return result, err
	}
	if result.PresaleBalance, err = m.token.BalanceOf(ctx, presale.Address()); err != nil {
		return result, err
	}
	return result, nil
}
