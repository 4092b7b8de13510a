package evm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/avast/retry-go"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	DefaultLogWindow = 1000

	minRangeWindow = 100
	minOtherWindow = 200
	rateLimitTries = 3
)

var rateLimitDelay = 15 * time.Second

type logFilterer interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// LogScan describes a paged eth_getLogs scan over [From, To].
type LogScan struct {
	Address ethcommon.Address
	Topics  [][]ethcommon.Hash
	From    uint64
	To      uint64
	Window  uint64
}

// scanLogs pages through the block range. When the node rejects the range
// the window is halved down to 100 blocks and then scanned block by block.
// Rate limit errors are retried a few times with a fixed delay.
func scanLogs(ctx context.Context, f logFilterer, scan LogScan) ([]types.Log, error) {
	window := scan.Window
	if window == 0 {
		window = DefaultLogWindow
	}
	var collected []types.Log
	cur := scan.From
	for cur <= scan.To {
		end := cur + window - 1
		if end > scan.To {
			end = scan.To
		}
		logs, err := filterWithRetry(ctx, f, scan, cur, end)
		if err == nil {
			collected = append(collected, logs...)
			cur = end + 1
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		switch {
		case errors.Is(err, ErrRateLimited):
			return nil, err
		case errors.Is(err, ErrRangeTooLarge):
			if window > minRangeWindow {
				window = max(minRangeWindow, window/2)
				continue
			}
			for b := cur; b <= end; b++ {
				logs, err := filterWithRetry(ctx, f, scan, b, b)
				if err != nil {
					log.Printf("get logs of block %d failed, skipping: %v", b, err)
					continue
				}
				collected = append(collected, logs...)
			}
			cur = end + 1
		default:
			if window > minOtherWindow {
				window = max(minOtherWindow, window/2)
				continue
			}
			return nil, fmt.Errorf("get logs %d-%d: %w", cur, end, err)
		}
	}
	return collected, nil
}

func filterWithRetry(ctx context.Context, f logFilterer, scan LogScan, from, to uint64) (logs []types.Log, err error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []ethcommon.Address{scan.Address},
		Topics:    scan.Topics,
	}
	err = retry.Do(
		func() error {
			var ferr error
			logs, ferr = f.FilterLogs(ctx, query)
			return parseRPCError(ferr)
		},
		retry.Context(ctx),
		retry.Attempts(rateLimitTries+1),
		retry.Delay(rateLimitDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrRateLimited)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("get logs %d-%d rate limited (attempt %d), waiting %s", from, to, n+1, rateLimitDelay)
		}),
	)
	return logs, err
}
