package explorer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

const DefaultLogStep = 50000

type apiLog struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	LogIndex         string   `json:"logIndex"`
}

func (l apiLog) toLog() (types.Log, error) {
	block, err := parseHexUint(l.BlockNumber)
	if err != nil {
		return types.Log{}, err
	}
	data, err := hexutil.Decode(l.Data)
	if err != nil {
		return types.Log{}, fmt.Errorf("%w: log data: %v", ErrBadResponse, err)
	}
	lg := types.Log{
		Address:     ethcommon.HexToAddress(l.Address),
		Data:        data,
		BlockNumber: block,
		TxHash:      ethcommon.HexToHash(l.TransactionHash),
	}
	for _, topic := range l.Topics {
		if topic == "" {
			continue
		}
		lg.Topics = append(lg.Topics, ethcommon.HexToHash(topic))
	}
	if l.TransactionIndex != "" && l.TransactionIndex != "0x" {
		if idx, err := parseHexUint(l.TransactionIndex); err == nil {
			lg.TxIndex = uint(idx)
		}
	}
	if l.LogIndex != "" && l.LogIndex != "0x" {
		if idx, err := parseHexUint(l.LogIndex); err == nil {
			lg.Index = uint(idx)
		}
	}
	return lg, nil
}

// Logs returns logs of address with the given first topic in [from, to].
// The explorer returns at most one page of records per request, pages are
// read until a short one.
func (c *Client) Logs(ctx context.Context, address ethcommon.Address, topic0 ethcommon.Hash, from, to uint64) ([]types.Log, error) {
	var logs []types.Log
	for page := 1; ; page++ {
		var raw []apiLog
		err := c.call(ctx, http.MethodGet, url.Values{
			"module":    {"logs"},
			"action":    {"getLogs"},
			"address":   {address.Hex()},
			"topic0":    {topic0.Hex()},
			"fromBlock": {strconv.FormatUint(from, 10)},
			"toBlock":   {strconv.FormatUint(to, 10)},
			"page":      {strconv.Itoa(page)},
			"offset":    {strconv.Itoa(c.pageSize)},
		}, &raw)
		if err != nil {
			return nil, err
		}
		for _, r := range raw {
			lg, err := r.toLog()
			if err != nil {
				return nil, err
			}
			logs = append(logs, lg)
		}
		if len(raw) < c.pageSize {
			return logs, nil
		}
	}
}

// ScanLogs calls Logs over [from, to] in steps of step blocks.
func (c *Client) ScanLogs(ctx context.Context, address ethcommon.Address, topic0 ethcommon.Hash, from, to, step uint64) ([]types.Log, error) {
	if step == 0 {
		step = DefaultLogStep
	}
	var all []types.Log
	for cur := from; cur <= to; cur += step {
		end := cur + step - 1
		if end > to {
			end = to
		}
		logs, err := c.Logs(ctx, address, topic0, cur, end)
		if err != nil {
			return nil, fmt.Errorf("explorer logs %d-%d: %w", cur, end, err)
		}
		if len(logs) > 0 {
			log.Printf("Explorer: %d logs in blocks %d-%d", len(logs), cur, end)
		}
		all = append(all, logs...)
	}
	return all, nil
}
