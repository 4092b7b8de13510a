package manager

//go:generate go run ./gen/...

import (
	"context"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/RomanDevelop/alien-manager/common"
)

type Service interface {
	PresaleStatus(ctx context.Context, req *StatusRequest) (*StatusResponse, error)
	PresaleInfo(ctx context.Context, req *InfoRequest) (*InfoResponse, error)
	PresaleConditions(ctx context.Context, req *ConditionsRequest) (*ConditionsResponse, error)
	WalletBalances(ctx context.Context, req *BalancesRequest) (*BalancesResponse, error)
	PurchaseList(ctx context.Context, req *PurchasesRequest) (*PurchasesResponse, error)
	HolderList(ctx context.Context, req *HoldersRequest) (*HoldersResponse, error)
	ActionHistory(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error)
	ActionStats(ctx context.Context, req *StatsRequest) (*StatsResponse, error)
}

type StatusRequest struct {
	// Return the status of the last poll instead of reading the chain.
	Cached bool `json:"cached"`
}

type StatusResponse struct {
	Status common.PresaleStatus `json:"status"`
}

type InfoRequest struct {
	User *ethcommon.Address `json:"user,omitempty"`
}

type InfoResponse struct {
	Info common.PresaleInfo `json:"info"`
}

type ConditionsRequest struct {
}

type ConditionsResponse struct {
	Conditions common.Conditions `json:"conditions"`
}

type BalancesRequest struct {
	Address *ethcommon.Address `json:"address,omitempty"`
}

type BalancesResponse struct {
	Balances common.Balances `json:"balances"`
}

type PurchasesRequest struct {
}

type PurchasesResponse struct {
	Report common.PurchaseReport `json:"report"`
}

type HoldersRequest struct {
	Top int `json:"top"`
}

type HoldersResponse struct {
	Holders []common.Holder `json:"holders"`
}

type HistoryRequest struct {
	Limit int `json:"limit"`
}

type HistoryResponse struct {
	Actions []common.Action `json:"actions"`
}

type StatsRequest struct {
}

type StatsResponse struct {
	Stats common.Statistics `json:"stats"`
}

type Error struct {
	Msg string
}

func (err Error) Error() string {
	return err.Msg
}
