package manager

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/explorer"
	"github.com/RomanDevelop/alien-manager/historydb"
	"github.com/RomanDevelop/alien-manager/schedule"
)

var (
	testNow     = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	testWallet  = ethcommon.HexToAddress("0x1000000000000000000000000000000000000001")
	testOther   = ethcommon.HexToAddress("0x2000000000000000000000000000000000000002")
	testPresale = ethcommon.HexToAddress("0x3000000000000000000000000000000000000003")
	testToken   = common.DefaultTokenAddress
)

const testBlockInterval = 2 * time.Second

func ether(t *testing.T, s string) *big.Int {
	v, err := common.ParseEther(s)
	require.NoError(t, err)
	return v
}

type fakeChain struct {
	account  ethcommon.Address
	canSign  bool
	balances map[ethcommon.Address]*big.Int
	head     uint64
	now      time.Time
	mineErr  error
	headErr  error

	blockTimeCalls int
}

func (c *fakeChain) Account() ethcommon.Address { return c.account }
func (c *fakeChain) CanSign() bool              { return c.canSign }

func (c *fakeChain) NativeBalance(ctx context.Context, addr ethcommon.Address) (*big.Int, error) {
	if b, ok := c.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (c *fakeChain) Head(ctx context.Context) (uint64, time.Time, error) {
	if c.headErr != nil {
		return 0, time.Time{}, c.headErr
	}
	return c.head, c.now, nil
}

// Blocks are produced every testBlockInterval ending at head.
func (c *fakeChain) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	c.blockTimeCalls++
	if c.headErr != nil {
		return time.Time{}, c.headErr
	}
	if number > c.head {
		return time.Time{}, fmt.Errorf("block %d not found", number)
	}
	return c.now.Add(-time.Duration(c.head-number) * testBlockInterval), nil
}

func (c *fakeChain) WaitMined(ctx context.Context, tx *types.Transaction) (common.TxResult, error) {
	if c.mineErr != nil {
		return common.TxResult{Hash: tx.Hash(), BlockNumber: c.head}, c.mineErr
	}
	return common.TxResult{Hash: tx.Hash(), BlockNumber: c.head, GasUsed: 21000, Success: true}, nil
}

func (c *fakeChain) AddressURL(addr ethcommon.Address) string {
	return "https://polygonscan.com/address/" + addr.Hex()
}

func (c *fakeChain) TxURL(hash ethcommon.Hash) string {
	return "https://polygonscan.com/tx/" + hash.Hex()
}

type fakePresale struct {
	addr         ethcommon.Address
	params       common.PresaleParams
	users        map[ethcommon.Address]*common.UserInfo
	purchases    []common.Purchase
	purchasesErr error
	scanned      [2]uint64

	nonce uint64
	sent  []string
}

func (p *fakePresale) Address() ethcommon.Address { return p.addr }

func (p *fakePresale) Params(ctx context.Context) (*common.PresaleParams, error) {
	params := p.params
	return &params, nil
}

func (p *fakePresale) UserInfo(ctx context.Context, user ethcommon.Address) (*common.UserInfo, error) {
	if info, ok := p.users[user]; ok {
		return info, nil
	}
	return &common.UserInfo{Address: user, Contribution: new(big.Int), ClaimableTokens: new(big.Int)}, nil
}

func (p *fakePresale) tx(method string) (*types.Transaction, error) {
	p.nonce++
	p.sent = append(p.sent, method)
	return types.NewTx(&types.LegacyTx{Nonce: p.nonce, To: &p.addr, Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

func (p *fakePresale) BuyTokens(ctx context.Context, value *big.Int) (*types.Transaction, error) {
	return p.tx("buyTokens")
}

func (p *fakePresale) ClaimTokens(ctx context.Context) (*types.Transaction, error) {
	return p.tx("claimTokens")
}

func (p *fakePresale) WithdrawFunds(ctx context.Context) (*types.Transaction, error) {
	return p.tx("withdrawFunds")
}

func (p *fakePresale) EmergencyWithdraw(ctx context.Context) (*types.Transaction, error) {
	return p.tx("emergencyWithdraw")
}

func (p *fakePresale) WithdrawUnsoldTokens(ctx context.Context) (*types.Transaction, error) {
	return p.tx("withdrawUnsoldTokens")
}

func (p *fakePresale) PausePresale(ctx context.Context, paused bool) (*types.Transaction, error) {
	p.params.Paused = paused
	return p.tx("pausePresale")
}

func (p *fakePresale) UpdateTokenPrice(ctx context.Context, price *big.Int) (*types.Transaction, error) {
	p.params.TokenPrice = price
	return p.tx("updateTokenPrice")
}

func (p *fakePresale) UpdateHardCap(ctx context.Context, hardCap *big.Int) (*types.Transaction, error) {
	p.params.HardCap = hardCap
	return p.tx("updateHardCap")
}

func (p *fakePresale) UpdatePresaleTimes(ctx context.Context, start, end int64) (*types.Transaction, error) {
	p.params.StartTime = time.Unix(start, 0).UTC()
	p.params.EndTime = time.Unix(end, 0).UTC()
	return p.tx("updatePresaleTimes")
}

func (p *fakePresale) Purchases(ctx context.Context, from, to, window uint64) ([]common.Purchase, error) {
	p.scanned = [2]uint64{from, to}
	if p.purchasesErr != nil {
		return nil, p.purchasesErr
	}
	return append([]common.Purchase(nil), p.purchases...), nil
}

type fakeToken struct {
	addr      ethcommon.Address
	decimals  uint8
	balances  map[ethcommon.Address]*big.Int
	supply    *big.Int
	transfers []common.TokenTransfer
}

func (t *fakeToken) Address() ethcommon.Address { return t.addr }

func (t *fakeToken) BalanceOf(ctx context.Context, owner ethcommon.Address) (*big.Int, error) {
	if b, ok := t.balances[owner]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (t *fakeToken) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.supply, nil
}

func (t *fakeToken) Decimals(ctx context.Context) (uint8, error) {
	return t.decimals, nil
}

func (t *fakeToken) Symbol(ctx context.Context) (string, error) {
	return common.TokenSymbol, nil
}

func (t *fakeToken) Transfer(ctx context.Context, to ethcommon.Address, amount *big.Int) (*types.Transaction, error) {
	from := t.balances[testWallet]
	from.Sub(from, amount)
	if _, ok := t.balances[to]; !ok {
		t.balances[to] = new(big.Int)
	}
	t.balances[to].Add(t.balances[to], amount)
	return types.NewTx(&types.LegacyTx{Nonce: 100, To: &t.addr}), nil
}

func (t *fakeToken) Transfers(ctx context.Context, from, to, window uint64) ([]common.TokenTransfer, error) {
	return t.transfers, nil
}

type fakeExplorer struct {
	logs      []types.Log
	holders   []common.Holder
	transfers []common.TokenTransfer
	supply    *big.Int
	head      uint64

	verifyErr error
	requests  []explorer.VerifyRequest
}

func (e *fakeExplorer) HasKey() bool { return true }

func (e *fakeExplorer) BlockNumber(ctx context.Context) (uint64, error) {
	if e.head == 0 {
		return 0, fmt.Errorf("explorer head is unknown")
	}
	return e.head, nil
}

func (e *fakeExplorer) ScanLogs(ctx context.Context, address ethcommon.Address, topic0 ethcommon.Hash, from, to, step uint64) ([]types.Log, error) {
	return e.logs, nil
}

func (e *fakeExplorer) TokenHolders(ctx context.Context, token ethcommon.Address, page, offset int) ([]common.Holder, error) {
	return e.holders, nil
}

func (e *fakeExplorer) TokenTransfers(ctx context.Context, token ethcommon.Address) ([]common.TokenTransfer, error) {
	return e.transfers, nil
}

func (e *fakeExplorer) TokenSupply(ctx context.Context, token ethcommon.Address) (*big.Int, error) {
	return e.supply, nil
}

func (e *fakeExplorer) VerifySource(ctx context.Context, r explorer.VerifyRequest) (string, error) {
	e.requests = append(e.requests, r)
	if e.verifyErr != nil {
		return "", e.verifyErr
	}
	return "guid", nil
}

func (e *fakeExplorer) WaitVerified(ctx context.Context, guid string) (string, error) {
	return "Pass - Verified", nil
}

type fakeDeployer struct {
	params *common.DeployParams
}

func (d *fakeDeployer) SendDeploy(ctx context.Context, params common.DeployParams) (ethcommon.Address, *types.Transaction, error) {
	d.params = &params
	return testPresale, types.NewTx(&types.LegacyTx{Nonce: 1}), nil
}

func (d *fakeDeployer) WaitDeployed(ctx context.Context, tx *types.Transaction) (ethcommon.Address, common.TxResult, error) {
	return testPresale, common.TxResult{Hash: tx.Hash(), BlockNumber: 10, Success: true}, nil
}

func (d *fakeDeployer) EncodeConstructorArgs(params common.DeployParams) ([]byte, error) {
	return []byte{1, 2, 3}, nil
}

type testEnv struct {
	m        *Manager
	chain    *fakeChain
	presale  *fakePresale
	token    *fakeToken
	explorer *fakeExplorer
	history  *historydb.CSVFile
	deployer *fakeDeployer
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{
		chain: &fakeChain{
			account: testWallet,
			canSign: true,
			balances: map[ethcommon.Address]*big.Int{
				testWallet:  ether(t, "100"),
				testPresale: ether(t, "40"),
			},
			head: 1_000_000,
			now:  testNow,
		},
		presale: &fakePresale{
			addr: testPresale,
			params: common.PresaleParams{
				Token:       testToken,
				Owner:       testWallet,
				StartTime:   testNow.Add(-time.Hour),
				EndTime:     testNow.Add(10 * 24 * time.Hour),
				HardCap:     ether(t, "100"),
				TokenPrice:  ether(t, "0.0005"),
				TotalRaised: ether(t, "40"),
			},
			users: make(map[ethcommon.Address]*common.UserInfo),
		},
		token: &fakeToken{
			addr:     testToken,
			decimals: 18,
			balances: map[ethcommon.Address]*big.Int{
				testWallet:  ether(t, "1000000"),
				testPresale: ether(t, "200000"),
			},
			supply: ether(t, "10000000"),
		},
		explorer: &fakeExplorer{},
		history:  historydb.NewCSVFile(filepath.Join(t.TempDir(), "history.csv")),
		deployer: &fakeDeployer{},
	}
	rules := schedule.Default().WithClock(func() time.Time { return testNow })
	m, err := New(DefaultSettings(), Deps{
		Rules:   rules,
		Chain:   env.chain,
		Token:   env.token,
		Presale: env.presale,
		BindPresale: func(addr ethcommon.Address) (Presale, error) {
			return env.presale, nil
		},
		Explorer: env.explorer,
		History:  env.history,
		Deployer: env.deployer,
	})
	require.NoError(t, err)
	env.m = m
	return env
}

func (env *testEnv) lastAction(t *testing.T) common.Action {
	actions, err := env.history.Actions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	return actions[0]
}
