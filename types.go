package manager

import (
	"context"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/explorer"
)

type Rules interface {
	Now() time.Time
	DeployWindow() (start, end time.Time)
	Extend(start time.Time, duration time.Duration) (time.Time, error)
}

type Chain interface {
	Account() ethcommon.Address
	CanSign() bool
	NativeBalance(ctx context.Context, addr ethcommon.Address) (*big.Int, error)
	Head(ctx context.Context) (uint64, time.Time, error)
	BlockTime(ctx context.Context, number uint64) (time.Time, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (common.TxResult, error)
	AddressURL(addr ethcommon.Address) string
	TxURL(hash ethcommon.Hash) string
}

type Presale interface {
	Address() ethcommon.Address
	Params(ctx context.Context) (*common.PresaleParams, error)
	UserInfo(ctx context.Context, user ethcommon.Address) (*common.UserInfo, error)

	BuyTokens(ctx context.Context, value *big.Int) (*types.Transaction, error)
	ClaimTokens(ctx context.Context) (*types.Transaction, error)
	WithdrawFunds(ctx context.Context) (*types.Transaction, error)
	EmergencyWithdraw(ctx context.Context) (*types.Transaction, error)
	WithdrawUnsoldTokens(ctx context.Context) (*types.Transaction, error)
	PausePresale(ctx context.Context, paused bool) (*types.Transaction, error)
	UpdateTokenPrice(ctx context.Context, price *big.Int) (*types.Transaction, error)
	UpdateHardCap(ctx context.Context, hardCap *big.Int) (*types.Transaction, error)
	UpdatePresaleTimes(ctx context.Context, start, end int64) (*types.Transaction, error)

	// Purchases scans TokensPurchased logs over RPC.
	Purchases(ctx context.Context, from, to, window uint64) ([]common.Purchase, error)
}

type Token interface {
	Address() ethcommon.Address
	BalanceOf(ctx context.Context, owner ethcommon.Address) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
	Symbol(ctx context.Context) (string, error)
	Transfer(ctx context.Context, to ethcommon.Address, amount *big.Int) (*types.Transaction, error)
	Transfers(ctx context.Context, from, to, window uint64) ([]common.TokenTransfer, error)
}

type Explorer interface {
	HasKey() bool
	BlockNumber(ctx context.Context) (uint64, error)
	ScanLogs(ctx context.Context, address ethcommon.Address, topic0 ethcommon.Hash, from, to, step uint64) ([]types.Log, error)
	TokenHolders(ctx context.Context, token ethcommon.Address, page, offset int) ([]common.Holder, error)
	TokenTransfers(ctx context.Context, token ethcommon.Address) ([]common.TokenTransfer, error)
	TokenSupply(ctx context.Context, token ethcommon.Address) (*big.Int, error)
	VerifySource(ctx context.Context, r explorer.VerifyRequest) (string, error)
	WaitVerified(ctx context.Context, guid string) (string, error)
}

type History interface {
	LogAction(ctx context.Context, action common.Action) error
	Actions(ctx context.Context, limit int) ([]common.Action, error)
	Statistics(ctx context.Context) (common.Statistics, error)
	Clear(ctx context.Context) error
}

type Deployer interface {
	SendDeploy(ctx context.Context, params common.DeployParams) (ethcommon.Address, *types.Transaction, error)
	WaitDeployed(ctx context.Context, tx *types.Transaction) (ethcommon.Address, common.TxResult, error)
	EncodeConstructorArgs(params common.DeployParams) ([]byte, error)
}

// Deps are the backends of a Manager. Presale, Explorer and Deployer may be
// nil, operations that need them fail then.
type Deps struct {
	Rules       Rules
	Chain       Chain
	Token       Token
	Presale     Presale
	BindPresale func(addr ethcommon.Address) (Presale, error)
	Explorer    Explorer
	History     History
	Deployer    Deployer
}

// VerifySettings are compiler settings reported to the explorer.
type VerifySettings struct {
	ContractName    string
	CompilerVersion string
	Optimizer       bool
	Runs            int
}

type Settings struct {
	// First block of the purchase scan. Zero means searching the block of
	// the presale start time.
	PresaleStartBlock uint64

	// How many blocks back from the head to scan when the start block is
	// unknown.
	FromBlocks uint64

	// Initial eth_getLogs window.
	LogWindow uint64

	// Block step of explorer getLogs.
	ExplorerStep uint64

	TopN           int
	ExtendDuration time.Duration
	StatusInterval time.Duration

	Verify VerifySettings
}

func DefaultSettings() Settings {
	return Settings{
		FromBlocks:     2_000_000,
		LogWindow:      1000,
		ExplorerStep:   50000,
		TopN:           20,
		ExtendDuration: common.DefaultDuration,
		StatusInterval: 10 * time.Minute,
		Verify: VerifySettings{
			ContractName:    "AlienPresale",
			CompilerVersion: "v0.8.19+commit.7dd6d404",
			Optimizer:       true,
			Runs:            200,
		},
	}
}
