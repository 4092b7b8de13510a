package manager

import (
	"fmt"
	"net/http"

	"github.com/starius/api2"
)

func route(s Service, handler, name, httpMethod string) api2.Route {
	return api2.Route{
		Method:  httpMethod,
		Path:    fmt.Sprintf("/v1/presale/%s", name),
		Handler: api2.Method(&s, handler),
		Transport: &api2.JsonTransport{
			Errors: map[string]error{
				"Error": Error{},
			},
		},
	}
}

func GetRoutes(s Service) []api2.Route {
	return []api2.Route{
		route(s, "PresaleStatus", "status", http.MethodGet),
		route(s, "PresaleInfo", "info", http.MethodPost),
		route(s, "PresaleConditions", "conditions", http.MethodGet),
		route(s, "WalletBalances", "balances", http.MethodPost),
		route(s, "PurchaseList", "purchases", http.MethodGet),
		route(s, "HolderList", "holders", http.MethodPost),
		route(s, "ActionHistory", "history", http.MethodPost),
		route(s, "ActionStats", "stats", http.MethodGet),
	}
}
