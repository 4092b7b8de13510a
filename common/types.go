package common

import (
	"errors"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoSigner            = errors.New("private key is not configured")
	ErrNoPresale           = errors.New("presale address is not configured")
	ErrNotStarted          = errors.New("presale has not started yet")
	ErrEnded               = errors.New("presale has already ended")
	ErrPaused              = errors.New("presale is paused")
	ErrNotActive           = errors.New("presale is not active")
	ErrHardCapReached      = errors.New("hard cap reached")
	ErrExceedsRemainingCap = errors.New("amount exceeds remaining hard cap")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNothingToClaim      = errors.New("no tokens to claim")
	ErrNothingToWithdraw   = errors.New("presale balance is empty")
	ErrNotOwner            = errors.New("wallet is not the presale owner")
	ErrTxFailed            = errors.New("transaction failed")
	ErrInvalidTimes        = errors.New("end time must be after start time")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNoDeployer          = errors.New("contract artifact is not loaded")
	ErrNoExplorer          = errors.New("explorer API key is not configured")
	ErrTokenDecimals       = errors.New("unsupported token decimals")
)

type Phase int

const (
	BeforeStart Phase = iota
	Active
	Ended
	Paused
)

func (p Phase) String() string {
	switch p {
	case BeforeStart:
		return "before_start"
	case Active:
		return "active"
	case Ended:
		return "ended"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// DeployParams are the AlienPresale constructor arguments.
type DeployParams struct {
	Token      ethcommon.Address `json:"token"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time"`
	HardCap    *big.Int          `json:"hard_cap"`
	TokenPrice *big.Int          `json:"token_price"`
}

type TxResult struct {
	Hash        ethcommon.Hash `json:"hash"`
	BlockNumber uint64         `json:"block_number"`
	GasUsed     uint64         `json:"gas_used"`
	Success     bool           `json:"success"`
}

type Deployment struct {
	Address ethcommon.Address `json:"address"`
	Tx      TxResult          `json:"tx"`
	Params  DeployParams      `json:"params"`

	// Values read back from the deployed contract.
	OnChain PresaleParams `json:"on_chain"`

	ExplorerURL string `json:"explorer_url"`
}

type PresaleParams struct {
	Token       ethcommon.Address `json:"token"`
	Owner       ethcommon.Address `json:"owner"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
	HardCap     *big.Int          `json:"hard_cap"`
	TokenPrice  *big.Int          `json:"token_price"`
	TotalRaised *big.Int          `json:"total_raised"`
	Paused      bool              `json:"paused"`
}

type PresaleStatus struct {
	Address     ethcommon.Address `json:"address"`
	CurrentTime time.Time         `json:"current_time"`
	PresaleParams

	Phase           Phase    `json:"phase"`
	IsActive        bool     `json:"is_active"`
	IsBeforeStart   bool     `json:"is_before_start"`
	IsAfterEnd      bool     `json:"is_after_end"`
	IsPaused        bool     `json:"is_paused"`
	HardCapReached  bool     `json:"is_hardcap_reached"`
	RemainingCap    *big.Int `json:"remaining_cap"`
	ProgressPercent float64  `json:"progress_percent"`
}

type UserInfo struct {
	Address         ethcommon.Address `json:"address"`
	Contribution    *big.Int          `json:"contribution"`
	ClaimableTokens *big.Int          `json:"claimable_tokens"`
}

type PresaleInfo struct {
	PresaleStatus
	User UserInfo `json:"user"`
}

type PurchaseExample struct {
	Amount *big.Int `json:"amount"`
	Tokens *big.Int `json:"tokens"`
}

type Conditions struct {
	PresaleStatus
	TokensForSale       *big.Int          `json:"tokens_for_sale"`
	TokensSold          *big.Int          `json:"tokens_sold"`
	TokensRemaining     *big.Int          `json:"tokens_remaining"`
	Examples            []PurchaseExample `json:"examples"`
	IsOwner             bool              `json:"is_owner"`
	PresaleTokenBalance *big.Int          `json:"presale_token_balance"`
	TokenSymbol         string            `json:"token_symbol"`
	TokenDecimals       uint8             `json:"token_decimals"`
}

type Balances struct {
	Address ethcommon.Address `json:"address"`
	Native  *big.Int          `json:"native"`
	Token   *big.Int          `json:"token"`
}

type Purchase struct {
	Buyer       ethcommon.Address `json:"buyer"`
	Amount      *big.Int          `json:"amount"`
	Tokens      *big.Int          `json:"tokens"`
	TxHash      ethcommon.Hash    `json:"tx_hash"`
	BlockNumber uint64            `json:"block_number"`
	Time        time.Time         `json:"time"`
}

type BuyerTotal struct {
	Buyer  ethcommon.Address `json:"buyer"`
	Amount *big.Int          `json:"amount"`
}

type PurchaseReport struct {
	FromBlock uint64       `json:"from_block"`
	ToBlock   uint64       `json:"to_block"`
	Purchases []Purchase   `json:"purchases"`
	Total     *big.Int     `json:"total"`
	Buyers    []BuyerTotal `json:"buyers"`
}

type TokenTransfer struct {
	From  ethcommon.Address `json:"from"`
	To    ethcommon.Address `json:"to"`
	Value *big.Int          `json:"value"`
}

type Holder struct {
	Address ethcommon.Address `json:"address"`
	Balance *big.Int          `json:"balance"`
	Percent float64           `json:"percent"`
}

// Action is a single history record.
type Action struct {
	Time    time.Time `json:"timestamp"`
	Action  string    `json:"action"`
	TxHash  string    `json:"tx_hash"`
	Amount  string    `json:"amount"`
	Address string    `json:"address"`
	Status  string    `json:"status"`
}

type Statistics struct {
	TotalActions  int            `json:"total_actions"`
	ActionsByType map[string]int `json:"actions_by_type"`
	SuccessRate   float64        `json:"success_rate"`
	LastAction    string         `json:"last_action"`
	LastTimestamp time.Time      `json:"last_timestamp"`
}

// ComputeStatistics summarizes records ordered from oldest to newest.
func ComputeStatistics(actions []Action) Statistics {
	stats := Statistics{TotalActions: len(actions)}
	if len(actions) == 0 {
		return stats
	}
	stats.ActionsByType = make(map[string]int)
	success := 0
	for _, a := range actions {
		stats.ActionsByType[a.Action]++
		if a.Status == StatusSuccess {
			success++
		}
	}
	stats.SuccessRate = float64(success) / float64(len(actions)) * 100
	last := actions[len(actions)-1]
	stats.LastAction = last.Action
	stats.LastTimestamp = last.Time
	return stats
}
