package manager

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sort"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/evm"
)

// Blocks before the block of the start time that are scanned too.
const startBlockMargin = 500

// findBlockByTime returns the first block with timestamp at or after t.
func (m *Manager) findBlockByTime(ctx context.Context, t time.Time, latest uint64) (uint64, error) {
	lo, hi := uint64(0), latest
	for lo < hi {
		mid := lo + (hi-lo)/2
		blockTime, err := m.chain.BlockTime(ctx, mid)
		if err != nil {
			return 0, err
		}
		if blockTime.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func subFloor(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// scanStart picks the first block of the purchase scan.
func (m *Manager) scanStart(ctx context.Context, presale Presale, latest uint64) uint64 {
	if m.settings.PresaleStartBlock != 0 {
		return m.settings.PresaleStartBlock
	}
	params, err := presale.Params(ctx)
	if err == nil {
		var block uint64
		block, err = m.findBlockByTime(ctx, params.StartTime, latest)
		if err == nil {
			return subFloor(block, startBlockMargin)
		}
	}
	fallback := subFloor(latest, m.settings.FromBlocks)
	log.Printf("Cannot find presale start block (%v), scanning from %d", err, fallback)
	return fallback
}

// Purchases collects TokensPurchased events. RPC is tried first, the
// explorer is used when RPC fails or finds nothing.
func (m *Manager) Purchases(ctx context.Context) (*common.PurchaseReport, error) {
	presale, err := m.requirePresale()
	if err != nil {
		return nil, err
	}
	latest, err := m.latestBlock(ctx)
	if err != nil {
		return nil, err
	}
	from := m.scanStart(ctx, presale, latest)
	log.Printf("Scanning purchases in blocks %d-%d", from, latest)

	purchases, rpcErr := presale.Purchases(ctx, from, latest, m.settings.LogWindow)
	if rpcErr != nil {
		log.Printf("RPC purchase scan failed: %v", rpcErr)
	}
	if (rpcErr != nil || len(purchases) == 0) && m.hasExplorer() {
		log.Printf("Scanning purchases with the explorer")
		logs, err := m.explorer.ScanLogs(ctx, presale.Address(), evm.PurchaseTopic(), from, latest, m.settings.ExplorerStep)
		if err != nil {
			if rpcErr != nil {
				return nil, fmt.Errorf("rpc: %v; explorer: %w", rpcErr, err)
			}
			return nil, err
		}
		purchases = purchases[:0]
		for _, lg := range logs {
			p, err := evm.DecodePurchase(lg)
			if err != nil {
				log.Printf("Skipping explorer log in tx %s: %v", lg.TxHash.Hex(), err)
				continue
			}
			purchases = append(purchases, p)
		}
		rpcErr = nil
	}
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := m.fillBlockTimes(ctx, purchases); err != nil {
		log.Printf("Purchase times are unknown: %v", err)
	}
	return buildReport(from, latest, purchases), nil
}

// latestBlock asks the node for the head, the explorer is asked when the
// node is not reachable.
func (m *Manager) latestBlock(ctx context.Context) (uint64, error) {
	latest, _, err := m.chain.Head(ctx)
	if err == nil || !m.hasExplorer() {
		return latest, err
	}
	log.Printf("Cannot get the head from RPC (%v), asking the explorer", err)
	latest, explorerErr := m.explorer.BlockNumber(ctx)
	if explorerErr != nil {
		return 0, fmt.Errorf("rpc: %v; explorer: %w", err, explorerErr)
	}
	return latest, nil
}

func (m *Manager) fillBlockTimes(ctx context.Context, purchases []common.Purchase) error {
	times := make(map[uint64]time.Time)
	for i := range purchases {
		n := purchases[i].BlockNumber
		t, ok := times[n]
		if !ok {
			var err error
			t, err = m.chain.BlockTime(ctx, n)
			if err != nil {
				return err
			}
			times[n] = t
		}
		purchases[i].Time = t
	}
	return nil
}

func buildReport(from, to uint64, purchases []common.Purchase) *common.PurchaseReport {
	sort.SliceStable(purchases, func(i, j int) bool {
		return purchases[i].BlockNumber < purchases[j].BlockNumber
	})
	total := new(big.Int)
	perBuyer := make(map[ethcommon.Address]*big.Int)
	for _, p := range purchases {
		total.Add(total, p.Amount)
		sum, ok := perBuyer[p.Buyer]
		if !ok {
			sum = new(big.Int)
			perBuyer[p.Buyer] = sum
		}
		sum.Add(sum, p.Amount)
	}
	buyers := make([]common.BuyerTotal, 0, len(perBuyer))
	for buyer, amount := range perBuyer {
		buyers = append(buyers, common.BuyerTotal{Buyer: buyer, Amount: amount})
	}
	sort.Slice(buyers, func(i, j int) bool {
		if c := buyers[i].Amount.Cmp(buyers[j].Amount); c != 0 {
			return c > 0
		}
		return buyers[i].Buyer.Hex() < buyers[j].Buyer.Hex()
	})
	return &common.PurchaseReport{
		FromBlock: from,
		ToBlock:   to,
		Purchases: purchases,
		Total:     total,
		Buyers:    buyers,
	}
}
