package manager

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sort"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/RomanDevelop/alien-manager/common"
)

// Holders returns the topN token holders with their share of the supply.
// The explorer holder list is used when available, otherwise balances are
// rebuilt from transfers (explorer first, then RPC logs).
func (m *Manager) Holders(ctx context.Context, topN int) ([]common.Holder, error) {
	if topN <= 0 {
		topN = m.settings.TopN
	}
	token := m.token.Address()
	var holders []common.Holder
	if m.hasExplorer() {
		var err error
		holders, err = m.explorer.TokenHolders(ctx, token, 1, topN)
		if err != nil {
			log.Printf("Explorer holder list failed: %v", err)
			holders = nil
		}
		if len(holders) == 0 {
			transfers, err := m.explorer.TokenTransfers(ctx, token)
			if err != nil {
				log.Printf("Explorer token transfers failed: %v", err)
			} else {
				holders = balancesFromTransfers(transfers)
			}
		}
	}
	if len(holders) == 0 {
		latest, _, err := m.chain.Head(ctx)
		if err != nil {
			return nil, err
		}
		from := subFloor(latest, m.settings.FromBlocks)
		transfers, err := m.token.Transfers(ctx, from, latest, m.settings.LogWindow)
		if err != nil {
			return nil, fmt.Errorf("scan token transfers: %w", err)
		}
		holders = balancesFromTransfers(transfers)
	}

	sortHolders(holders)
	if len(holders) > topN {
		holders = holders[:topN]
	}
	supply, err := m.tokenSupply(ctx)
	if err != nil {
		return nil, err
	}
	for i := range holders {
		holders[i].Percent = common.Percent(holders[i].Balance, supply)
	}
	return holders, nil
}

func (m *Manager) tokenSupply(ctx context.Context) (*big.Int, error) {
	supply, err := m.token.TotalSupply(ctx)
	if err == nil {
		return supply, nil
	}
	if !m.hasExplorer() {
		return nil, fmt.Errorf("read token supply: %w", err)
	}
	log.Printf("RPC total supply failed, asking the explorer: %v", err)
	return m.explorer.TokenSupply(ctx, m.token.Address())
}

// balancesFromTransfers replays transfers and returns positive balances.
// Mints come from the zero address which is not a holder.
func balancesFromTransfers(transfers []common.TokenTransfer) []common.Holder {
	balances := make(map[ethcommon.Address]*big.Int)
	get := func(addr ethcommon.Address) *big.Int {
		b, ok := balances[addr]
		if !ok {
			b = new(big.Int)
			balances[addr] = b
		}
		return b
	}
	for _, t := range transfers {
		if t.Value == nil {
			continue
		}
		if t.From != (ethcommon.Address{}) {
			from := get(t.From)
			from.Sub(from, t.Value)
		}
		if t.To != (ethcommon.Address{}) {
			to := get(t.To)
			to.Add(to, t.Value)
		}
	}
	holders := make([]common.Holder, 0, len(balances))
	for addr, balance := range balances {
		if balance.Sign() > 0 {
			holders = append(holders, common.Holder{Address: addr, Balance: balance})
		}
	}
	return holders
}

func sortHolders(holders []common.Holder) {
	sort.Slice(holders, func(i, j int) bool {
		if c := holders[i].Balance.Cmp(holders[j].Balance); c != 0 {
			return c > 0
		}
		return holders[i].Address.Hex() < holders[j].Address.Hex()
	})
}
