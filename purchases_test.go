package manager

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/evm"
)

func purchaseLog(t *testing.T, buyer ethcommon.Address, amount *big.Int, block uint64) types.Log {
	event := evm.PresaleABI().Events["TokensPurchased"]
	tokens := common.TokensForAmount(amount, ether(t, "0.0005"))
	data, err := event.Inputs.NonIndexed().Pack(amount, tokens)
	require.NoError(t, err)
	return types.Log{
		Address:     testPresale,
		Topics:      []ethcommon.Hash{event.ID, ethcommon.BytesToHash(buyer.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      ethcommon.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func TestFindBlockByTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	head := env.chain.head

	block, err := env.m.findBlockByTime(ctx, testNow.Add(-time.Hour), head)
	require.NoError(t, err)
	require.Equal(t, head-1800, block)

	block, err = env.m.findBlockByTime(ctx, testNow.Add(-time.Hour+time.Second), head)
	require.NoError(t, err)
	require.Equal(t, head-1799, block)

	block, err = env.m.findBlockByTime(ctx, testNow.Add(time.Hour), head)
	require.NoError(t, err)
	require.Equal(t, head, block)
	require.LessOrEqual(t, env.chain.blockTimeCalls, 3*20)
}

func TestPurchasesRPC(t *testing.T) {
	env := newTestEnv(t)
	buyer2 := ethcommon.HexToAddress("0x4000000000000000000000000000000000000004")
	head := env.chain.head
	env.presale.purchases = []common.Purchase{
		{Buyer: testOther, Amount: ether(t, "1"), BlockNumber: head - 10},
		{Buyer: buyer2, Amount: ether(t, "5"), BlockNumber: head - 100},
		{Buyer: testOther, Amount: ether(t, "2"), BlockNumber: head - 10},
	}

	report, err := env.m.Purchases(context.Background())
	require.NoError(t, err)
	require.Equal(t, head-1800-startBlockMargin, report.FromBlock)
	require.Equal(t, head, report.ToBlock)
	require.Equal(t, [2]uint64{report.FromBlock, head}, env.presale.scanned)

	require.Len(t, report.Purchases, 3)
	require.Equal(t, head-100, report.Purchases[0].BlockNumber)
	require.Equal(t, testNow.Add(-200*time.Second), report.Purchases[0].Time)
	require.Equal(t, testNow.Add(-20*time.Second), report.Purchases[1].Time)

	require.Equal(t, "8", common.FormatEther(report.Total))
	require.Len(t, report.Buyers, 2)
	require.Equal(t, buyer2, report.Buyers[0].Buyer)
	require.Equal(t, "5", common.FormatEther(report.Buyers[0].Amount))
	require.Equal(t, testOther, report.Buyers[1].Buyer)
	require.Equal(t, "3", common.FormatEther(report.Buyers[1].Amount))
}

func TestPurchasesStartBlockSetting(t *testing.T) {
	env := newTestEnv(t)
	env.m.settings.PresaleStartBlock = 123
	report, err := env.m.Purchases(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(123), report.FromBlock)
	require.Empty(t, report.Purchases)
	require.Equal(t, 0, report.Total.Sign())
}

func TestPurchasesExplorerFallback(t *testing.T) {
	env := newTestEnv(t)
	env.presale.purchasesErr = errors.New("rate limited")
	head := env.chain.head
	broken := purchaseLog(t, testOther, ether(t, "1"), head-3)
	broken.Data = broken.Data[:8]
	env.explorer.logs = []types.Log{
		purchaseLog(t, testOther, ether(t, "0.5"), head-1),
		broken,
		purchaseLog(t, testWallet, ether(t, "2"), head-2),
	}

	report, err := env.m.Purchases(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Purchases, 2)
	require.Equal(t, testWallet, report.Purchases[0].Buyer)
	require.Equal(t, "4000", common.FormatEther(report.Purchases[0].Tokens))
	require.Equal(t, "2.5", common.FormatEther(report.Total))
	require.Equal(t, testWallet, report.Buyers[0].Buyer)
}

func TestPurchasesExplorerHead(t *testing.T) {
	env := newTestEnv(t)
	env.chain.headErr = errors.New("connection refused")
	env.explorer.head = 3_000_000
	env.explorer.logs = []types.Log{purchaseLog(t, testOther, ether(t, "1"), 2_999_000)}

	report, err := env.m.Purchases(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(3_000_000), report.ToBlock)
	require.Equal(t, uint64(1_000_000), report.FromBlock)
	require.Len(t, report.Purchases, 1)
	require.True(t, report.Purchases[0].Time.IsZero())

	env.explorer.head = 0
	_, err = env.m.Purchases(context.Background())
	require.ErrorContains(t, err, "connection refused")
}

func TestPurchasesNoFallback(t *testing.T) {
	env := newTestEnv(t)
	env.m.explorer = nil
	env.presale.purchasesErr = errors.New("rpc down")
	_, err := env.m.Purchases(context.Background())
	require.ErrorContains(t, err, "rpc down")
}
