package evm

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func purchaseLogFor(t *testing.T, buyer ethcommon.Address, amount, tokens *big.Int, block uint64) types.Log {
	data, err := presaleABI.Events[purchaseEvent].Inputs.NonIndexed().Pack(amount, tokens)
	require.NoError(t, err)
	return types.Log{
		Address:     ethcommon.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics:      []ethcommon.Hash{PurchaseTopic(), ethcommon.BytesToHash(buyer.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      ethcommon.HexToHash("0xabcdef"),
	}
}

func TestDecodePurchase(t *testing.T) {
	buyer := ethcommon.HexToAddress("0x2222222222222222222222222222222222222222")
	amount := big.NewInt(1_000_000_000_000_000_000)
	tokens := new(big.Int).Mul(big.NewInt(2000), amount)

	purchase, err := DecodePurchase(purchaseLogFor(t, buyer, amount, tokens, 42))
	require.NoError(t, err)
	require.Equal(t, buyer, purchase.Buyer)
	require.Equal(t, 0, amount.Cmp(purchase.Amount))
	require.Equal(t, 0, tokens.Cmp(purchase.Tokens))
	require.Equal(t, uint64(42), purchase.BlockNumber)
	require.Equal(t, ethcommon.HexToHash("0xabcdef"), purchase.TxHash)
}

func TestDecodePurchaseWrongLog(t *testing.T) {
	lg := purchaseLogFor(t, ethcommon.Address{}, big.NewInt(1), big.NewInt(1), 1)
	lg.Topics[0] = erc20ABI.Events[transferEvent].ID
	_, err := DecodePurchase(lg)
	require.Error(t, err)

	lg = purchaseLogFor(t, ethcommon.Address{}, big.NewInt(1), big.NewInt(1), 1)
	lg.Topics = lg.Topics[:1]
	_, err = DecodePurchase(lg)
	require.Error(t, err)

	lg = purchaseLogFor(t, ethcommon.Address{}, big.NewInt(1), big.NewInt(1), 1)
	lg.Data = lg.Data[:10]
	_, err = DecodePurchase(lg)
	require.Error(t, err)
}

func TestDecodeTransfer(t *testing.T) {
	from := ethcommon.HexToAddress("0x3333333333333333333333333333333333333333")
	to := ethcommon.HexToAddress("0x4444444444444444444444444444444444444444")
	value := big.NewInt(12345)
	data, err := erc20ABI.Events[transferEvent].Inputs.NonIndexed().Pack(value)
	require.NoError(t, err)

	transfer, err := DecodeTransfer(types.Log{
		Topics: []ethcommon.Hash{
			erc20ABI.Events[transferEvent].ID,
			ethcommon.BytesToHash(from.Bytes()),
			ethcommon.BytesToHash(to.Bytes()),
		},
		Data: data,
	})
	require.NoError(t, err)
	require.Equal(t, from, transfer.From)
	require.Equal(t, to, transfer.To)
	require.Equal(t, 0, value.Cmp(transfer.Value))

	_, err = DecodeTransfer(types.Log{Topics: []ethcommon.Hash{PurchaseTopic()}})
	require.Error(t, err)
}

func TestPresaleRequiresAddress(t *testing.T) {
	c := &Client{}
	_, err := c.Presale(ethcommon.Address{})
	require.Error(t, err)
}
