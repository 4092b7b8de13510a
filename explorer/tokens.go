package explorer

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/RomanDevelop/alien-manager/common"
)

type apiHolder struct {
	Address  string `json:"TokenHolderAddress"`
	Quantity string `json:"TokenHolderQuantity"`
}

type apiTransfer struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// TokenHolders returns one page of the token holder list. Percent of the
// holders is not set.
func (c *Client) TokenHolders(ctx context.Context, token ethcommon.Address, page, offset int) ([]common.Holder, error) {
	var raw []apiHolder
	err := c.call(ctx, http.MethodGet, url.Values{
		"module":          {"token"},
		"action":          {"tokenholderlist"},
		"contractaddress": {token.Hex()},
		"page":            {strconv.Itoa(page)},
		"offset":          {strconv.Itoa(offset)},
	}, &raw)
	if err != nil {
		return nil, err
	}
	holders := make([]common.Holder, 0, len(raw))
	for _, r := range raw {
		balance, err := parseDecimal(r.Quantity)
		if err != nil {
			return nil, err
		}
		holders = append(holders, common.Holder{
			Address: ethcommon.HexToAddress(r.Address),
			Balance: balance,
		})
	}
	return holders, nil
}

// TokenTransfers returns transfers of the token in ascending order. It
// reads pages until a short page or the explorer's result window limit.
func (c *Client) TokenTransfers(ctx context.Context, token ethcommon.Address) ([]common.TokenTransfer, error) {
	var transfers []common.TokenTransfer
	for page := 1; page <= maxPages; page++ {
		var raw []apiTransfer
		err := c.call(ctx, http.MethodGet, url.Values{
			"module":          {"account"},
			"action":          {"tokentx"},
			"contractaddress": {token.Hex()},
			"page":            {strconv.Itoa(page)},
			"offset":          {strconv.Itoa(c.pageSize)},
			"sort":            {"asc"},
		}, &raw)
		if err != nil {
			return nil, err
		}
		for _, r := range raw {
			value, err := parseDecimal(r.Value)
			if err != nil {
				return nil, err
			}
			transfers = append(transfers, common.TokenTransfer{
				From:  ethcommon.HexToAddress(r.From),
				To:    ethcommon.HexToAddress(r.To),
				Value: value,
			})
		}
		if len(raw) < c.pageSize {
			break
		}
	}
	return transfers, nil
}
