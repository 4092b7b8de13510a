package manager

import (
	"context"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

const defaultHistoryLimit = 10

var _ Service = (*Manager)(nil)

func apiError(err error) error {
	return Error{Msg: err.Error()}
}

func (m *Manager) PresaleStatus(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	if req.Cached {
		if status := m.LastStatus(); status != nil {
			return &StatusResponse{Status: *status}, nil
		}
	}
	status, err := m.Status(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &StatusResponse{Status: *status}, nil
}

func (m *Manager) PresaleInfo(ctx context.Context, req *InfoRequest) (*InfoResponse, error) {
	var user ethcommon.Address
	if req.User != nil {
		user = *req.User
	}
	info, err := m.Info(ctx, user)
	if err != nil {
		return nil, apiError(err)
	}
	return &InfoResponse{Info: *info}, nil
}

func (m *Manager) PresaleConditions(ctx context.Context, req *ConditionsRequest) (*ConditionsResponse, error) {
	cond, err := m.Conditions(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &ConditionsResponse{Conditions: *cond}, nil
}

func (m *Manager) WalletBalances(ctx context.Context, req *BalancesRequest) (*BalancesResponse, error) {
	var addr ethcommon.Address
	if req.Address != nil {
		addr = *req.Address
	}
	balances, err := m.Balances(ctx, addr)
	if err != nil {
		return nil, apiError(err)
	}
	return &BalancesResponse{Balances: *balances}, nil
}

func (m *Manager) PurchaseList(ctx context.Context, req *PurchasesRequest) (*PurchasesResponse, error) {
	report, err := m.Purchases(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &PurchasesResponse{Report: *report}, nil
}

func (m *Manager) HolderList(ctx context.Context, req *HoldersRequest) (*HoldersResponse, error) {
	holders, err := m.Holders(ctx, req.Top)
	if err != nil {
		return nil, apiError(err)
	}
	return &HoldersResponse{Holders: holders}, nil
}

func (m *Manager) ActionHistory(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	actions, err := m.History(ctx, limit)
	if err != nil {
		return nil, apiError(err)
	}
	return &HistoryResponse{Actions: actions}, nil
}

func (m *Manager) ActionStats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	stats, err := m.Stats(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &StatsResponse{Stats: stats}, nil
}
