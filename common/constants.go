package common

import (
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	DefaultTokenAddress = ethcommon.HexToAddress("0xa8e302849DdF86769C026d9A2405e1cdA01ED992")
	DefaultStartDelay   = 5 * time.Minute
	DefaultDuration     = 20 * 24 * time.Hour
	DefaultHardCap      = "100"
	DefaultTokenPrice   = "0.0005"

	TokenSymbol    = "ALIEN"
	NativeSymbol   = "MATIC"
	TokenDecimals  = uint8(18)
	PurchaseProbes = []string{"0.01", "0.1", "1", "10"}
)

// History action names.
const (
	ActionBalance        = "balance"
	ActionBuy            = "buy"
	ActionClaim          = "claim"
	ActionWithdrawFunds  = "withdraw_funds"
	ActionWithdrawTokens = "withdraw_tokens"
	ActionPause          = "pause_presale"
	ActionUpdatePrice    = "update_price"
	ActionUpdateHardCap  = "update_hardcap"
	ActionUpdateTimes    = "update_times"
	ActionExtend         = "extend_presale"
	ActionTransfer       = "transfer_tokens"
	ActionEmergency      = "emergency_withdraw"
	ActionDeploy         = "deploy"
	ActionVerify         = "verify_contract"

	StatusSuccess = "success"
	StatusError   = "error"
)
