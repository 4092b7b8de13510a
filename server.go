package manager

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/schedule"
)

type Manager struct {
	settings Settings

	rules       Rules
	chain       Chain
	token       Token
	presale     Presale
	bindPresale func(addr ethcommon.Address) (Presale, error)
	explorer    Explorer
	history     History
	deployer    Deployer

	mu         sync.Mutex
	lastStatus *common.PresaleStatus

	cancel context.CancelFunc
	stopWg sync.WaitGroup // Close waits for this WaitGroup.
}

func New(settings Settings, deps Deps) (*Manager, error) {
	if deps.Chain == nil {
		return nil, fmt.Errorf("chain is required")
	}
	if deps.Token == nil {
		return nil, fmt.Errorf("token is required")
	}
	if deps.History == nil {
		return nil, fmt.Errorf("history is required")
	}
	if deps.Rules == nil {
		deps.Rules = schedule.Default()
	}
	defaults := DefaultSettings()
	if settings.FromBlocks == 0 {
		settings.FromBlocks = defaults.FromBlocks
	}
	if settings.LogWindow == 0 {
		settings.LogWindow = defaults.LogWindow
	}
	if settings.ExplorerStep == 0 {
		settings.ExplorerStep = defaults.ExplorerStep
	}
	if settings.TopN <= 0 {
		settings.TopN = defaults.TopN
	}
	if settings.ExtendDuration <= 0 {
		settings.ExtendDuration = defaults.ExtendDuration
	}
	return &Manager{
		settings:    settings,
		rules:       deps.Rules,
		chain:       deps.Chain,
		token:       deps.Token,
		presale:     deps.Presale,
		bindPresale: deps.BindPresale,
		explorer:    deps.Explorer,
		history:     deps.History,
		deployer:    deps.Deployer,
	}, nil
}

func (m *Manager) Settings() Settings {
	return m.settings
}

func (m *Manager) Account() ethcommon.Address {
	return m.chain.Account()
}

func (m *Manager) AddressURL(addr ethcommon.Address) string {
	return m.chain.AddressURL(addr)
}

func (m *Manager) TxURL(hash ethcommon.Hash) string {
	return m.chain.TxURL(hash)
}

func (m *Manager) requirePresale() (Presale, error) {
	if m.presale == nil {
		return nil, common.ErrNoPresale
	}
	return m.presale, nil
}

func (m *Manager) requireSigner() error {
	if !m.chain.CanSign() {
		return common.ErrNoSigner
	}
	return nil
}

func (m *Manager) hasExplorer() bool {
	return m.explorer != nil && m.explorer.HasKey()
}

func buildStatus(addr ethcommon.Address, now time.Time, params *common.PresaleParams) *common.PresaleStatus {
	raised := params.TotalRaised
	if raised == nil {
		raised = new(big.Int)
	}
	hardCap := params.HardCap
	if hardCap == nil {
		hardCap = new(big.Int)
	}
	phase := schedule.Phase(now, params.StartTime, params.EndTime, params.Paused)
	return &common.PresaleStatus{
		Address:         addr,
		CurrentTime:     now,
		PresaleParams:   *params,
		Phase:           phase,
		IsActive:        phase == common.Active,
		IsBeforeStart:   now.Before(params.StartTime),
		IsAfterEnd:      now.After(params.EndTime),
		IsPaused:        params.Paused,
		HardCapReached:  raised.Cmp(hardCap) >= 0,
		RemainingCap:    common.SubFloor(hardCap, raised),
		ProgressPercent: common.Percent(raised, hardCap),
	}
}

// Status reads the presale parameters and evaluates them at the time of the
// latest block.
func (m *Manager) Status(ctx context.Context) (*common.PresaleStatus, error) {
	presale, err := m.requirePresale()
	if err != nil {
		return nil, err
	}
	params, err := presale.Params(ctx)
	if err != nil {
		return nil, fmt.Errorf("read presale params: %w", err)
	}
	_, now, err := m.chain.Head(ctx)
	if err != nil {
		return nil, err
	}
	return buildStatus(presale.Address(), now, params), nil
}

// Info is Status plus the contribution of user. Zero user means the wallet.
func (m *Manager) Info(ctx context.Context, user ethcommon.Address) (*common.PresaleInfo, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	if user == (ethcommon.Address{}) {
		user = m.chain.Account()
	}
	info, err := m.presale.UserInfo(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}
	return &common.PresaleInfo{PresaleStatus: *status, User: *info}, nil
}

func (m *Manager) Conditions(ctx context.Context) (*common.Conditions, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	forSale := common.TokensForAmount(status.HardCap, status.TokenPrice)
	sold := common.TokensForAmount(status.TotalRaised, status.TokenPrice)
	cond := &common.Conditions{
		PresaleStatus:   *status,
		TokensForSale:   forSale,
		TokensSold:      sold,
		TokensRemaining: common.SubFloor(forSale, sold),
		IsOwner:         status.Owner == m.chain.Account(),
	}
	for _, probe := range common.PurchaseProbes {
		amount, err := common.ParseEther(probe)
		if err != nil {
			return nil, err
		}
		cond.Examples = append(cond.Examples, common.PurchaseExample{
			Amount: amount,
			Tokens: common.TokensForAmount(amount, status.TokenPrice),
		})
	}
	cond.PresaleTokenBalance, err = m.token.BalanceOf(ctx, status.Address)
	if err != nil {
		return nil, fmt.Errorf("read presale token balance: %w", err)
	}
	if cond.TokenDecimals, err = m.checkTokenDecimals(ctx); err != nil {
		return nil, err
	}
	if cond.TokenSymbol, err = m.token.Symbol(ctx); err != nil {
		return nil, fmt.Errorf("read token symbol: %w", err)
	}
	return cond, nil
}

// checkTokenDecimals fails unless the token has 18 decimals, all token
// amounts are computed with 18 decimals.
func (m *Manager) checkTokenDecimals(ctx context.Context) (uint8, error) {
	decimals, err := m.token.Decimals(ctx)
	if err != nil {
		return 0, fmt.Errorf("read token decimals: %w", err)
	}
	if decimals != common.TokenDecimals {
		return decimals, fmt.Errorf("%w: %s has %d, expected %d", common.ErrTokenDecimals, m.token.Address().Hex(), decimals, common.TokenDecimals)
	}
	return decimals, nil
}

// Balances returns native and token balances of addr. Zero addr means the
// wallet. Checks of the wallet are recorded in the history.
func (m *Manager) Balances(ctx context.Context, addr ethcommon.Address) (*common.Balances, error) {
	wallet := addr == (ethcommon.Address{}) || addr == m.chain.Account()
	if addr == (ethcommon.Address{}) {
		addr = m.chain.Account()
	}
	native, err := m.chain.NativeBalance(ctx, addr)
	if err != nil {
		return nil, err
	}
	tokens, err := m.token.BalanceOf(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("read token balance: %w", err)
	}
	if wallet {
		m.record(ctx, common.ActionBalance, "", common.FormatEther(native), addr, nil)
	}
	return &common.Balances{Address: addr, Native: native, Token: tokens}, nil
}

// record appends an action to the history. History failures are only
// logged, the operation result stays as is.
func (m *Manager) record(ctx context.Context, action, txHash, amount string, addr ethcommon.Address, opErr error) {
	status := common.StatusSuccess
	if opErr != nil {
		status = common.StatusError
	}
	var address string
	if addr != (ethcommon.Address{}) {
		address = addr.Hex()
	}
	if err := m.history.LogAction(ctx, common.Action{
		Time:    m.rules.Now().UTC().Truncate(time.Second),
		Action:  action,
		TxHash:  txHash,
		Amount:  amount,
		Address: address,
		Status:  status,
	}); err != nil {
		log.Printf("Failed to record %s in history: %v", action, err)
	}
}

func (m *Manager) History(ctx context.Context, limit int) ([]common.Action, error) {
	return m.history.Actions(ctx, limit)
}

func (m *Manager) Stats(ctx context.Context) (common.Statistics, error) {
	return m.history.Statistics(ctx)
}

func (m *Manager) ClearHistory(ctx context.Context) error {
	return m.history.Clear(ctx)
}
