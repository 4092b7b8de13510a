package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	testToken   = ethcommon.HexToAddress("0xa8e302849DdF86769C026d9A2405e1cdA01ED992")
	testPresale = ethcommon.HexToAddress("0x1111111111111111111111111111111111111111")
	testTopic   = ethcommon.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func ok(result interface{}) map[string]interface{} {
	return map[string]interface{}{"status": "1", "message": "OK", "result": result}
}

func notOk(message, result string) map[string]interface{} {
	return map[string]interface{}{"status": "0", "message": message, "result": result}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		APIURL: server.URL,
		WebURL: "https://polygonscan.com/",
		APIKey: "key",
	})
}

func TestNoAPIKey(t *testing.T) {
	c := New(Config{APIURL: "http://127.0.0.1:1"})
	require.False(t, c.HasKey())
	_, err := c.BlockNumber(context.Background())
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestURLs(t *testing.T) {
	c := New(Config{WebURL: "https://polygonscan.com/"})
	require.Equal(t, "https://polygonscan.com/address/"+testToken.Hex(), c.AddressURL(testToken))
	hash := ethcommon.HexToHash("0x01")
	require.Equal(t, "https://polygonscan.com/tx/"+hash.Hex(), c.TxURL(hash))
}

func TestBlockNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "proxy", r.URL.Query().Get("module"))
		require.Equal(t, "eth_blockNumber", r.URL.Query().Get("action"))
		require.Equal(t, "key", r.URL.Query().Get("apikey"))
		writeJSON(w, map[string]interface{}{"jsonrpc": "2.0", "id": 83, "result": "0x3039"})
	})
	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(12345), n)
}

func TestLogs(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "getLogs", q.Get("action"))
		require.Equal(t, testPresale.Hex(), q.Get("address"))
		require.Equal(t, testTopic.Hex(), q.Get("topic0"))
		calls = append(calls, q.Get("fromBlock")+"-"+q.Get("toBlock"))
		if q.Get("fromBlock") != "100000" {
			writeJSON(w, notOk("No records found", "[]"))
			return
		}
		writeJSON(w, ok([]map[string]interface{}{{
			"address":         testPresale.Hex(),
			"topics":          []string{testTopic.Hex(), "0x0000000000000000000000003333333333333333333333333333333333333333"},
			"data":            "0x01",
			"blockNumber":     "0x186a5",
			"transactionHash": "0x" + fmt.Sprintf("%064x", 7),
			"logIndex":        "0x2",
		}}))
	})
	logs, err := c.ScanLogs(context.Background(), testPresale, testTopic, 0, 120000, 50000)
	require.NoError(t, err)
	require.Equal(t, []string{"0-49999", "50000-99999", "100000-120000"}, calls)
	require.Len(t, logs, 1)
	require.Equal(t, uint64(100005), logs[0].BlockNumber)
	require.Equal(t, []byte{1}, logs[0].Data)
	require.Len(t, logs[0].Topics, 2)
	require.Equal(t, uint(2), logs[0].Index)
	require.Equal(t, ethcommon.HexToHash("0x07"), logs[0].TxHash)
}

func TestLogsPaging(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "2", q.Get("offset"))
		require.Equal(t, "100", q.Get("fromBlock"))
		require.Equal(t, "200", q.Get("toBlock"))
		page, err := strconv.Atoi(q.Get("page"))
		require.NoError(t, err)
		pages = append(pages, q.Get("page"))
		n := 2
		if page == 3 {
			n = 1
		}
		var result []map[string]interface{}
		for i := 0; i < n; i++ {
			result = append(result, map[string]interface{}{
				"address":         testPresale.Hex(),
				"topics":          []string{testTopic.Hex()},
				"data":            "0x",
				"blockNumber":     fmt.Sprintf("0x%x", 100+page),
				"transactionHash": fmt.Sprintf("0x%064x", page*10+i),
			})
		}
		writeJSON(w, ok(result))
	})
	c.pageSize = 2
	logs, err := c.Logs(context.Background(), testPresale, testTopic, 100, 200)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3"}, pages)
	require.Len(t, logs, 5)
	require.Equal(t, uint64(101), logs[0].BlockNumber)
	require.Equal(t, uint64(103), logs[4].BlockNumber)
}

func TestAPIErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "tokensupply":
			writeJSON(w, notOk("NOTOK", "Max rate limit reached"))
		case "tokenholderlist":
			writeJSON(w, notOk("NOTOK", "Invalid API Key"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	_, err := c.TokenSupply(context.Background(), testToken)
	require.ErrorIs(t, err, ErrRateLimited)

	_, err = c.TokenHolders(context.Background(), testToken, 1, 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid API Key", apiErr.Result)

	_, err = c.TokenTransfers(context.Background(), testToken)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestTokenHoldersAndSupply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "tokensupply":
			writeJSON(w, ok("1000000000000000000000"))
		case "tokenholderlist":
			require.Equal(t, "2", r.URL.Query().Get("page"))
			writeJSON(w, ok([]map[string]string{
				{"TokenHolderAddress": testPresale.Hex(), "TokenHolderQuantity": "600000000000000000000"},
			}))
		}
	})
	supply, err := c.TokenSupply(context.Background(), testToken)
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000000", supply.String())

	holders, err := c.TokenHolders(context.Background(), testToken, 2, 20)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	require.Equal(t, testPresale, holders[0].Address)
	require.Equal(t, "600000000000000000000", holders[0].Balance.String())
}

func TestTokenTransfersPaging(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)
		require.Equal(t, "2", r.URL.Query().Get("offset"))
		var result []map[string]string
		if page <= 2 {
			result = append(result, map[string]string{"from": testToken.Hex(), "to": testPresale.Hex(), "value": strconv.Itoa(page)})
			result = append(result, map[string]string{"from": testPresale.Hex(), "to": testToken.Hex(), "value": "1"})
		} else {
			result = append(result, map[string]string{"from": testToken.Hex(), "to": testPresale.Hex(), "value": "5"})
		}
		writeJSON(w, ok(result))
	})
	c.pageSize = 2
	transfers, err := c.TokenTransfers(context.Background(), testToken)
	require.NoError(t, err)
	require.Len(t, transfers, 5)
	require.Equal(t, "5", transfers[4].Value.String())
}

func TestVerify(t *testing.T) {
	defer func(d time.Duration) { verifyPollDelay = d }(verifyPollDelay)
	verifyPollDelay = time.Millisecond

	var polls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			require.NoError(t, r.ParseForm())
			require.Equal(t, "verifysourcecode", r.PostForm.Get("action"))
			require.Equal(t, "1", r.PostForm.Get("optimizationUsed"))
			require.Equal(t, "200", r.PostForm.Get("runs"))
			require.Equal(t, "0a0b", r.PostForm.Get("constructorArguements"))
			require.Equal(t, "v0.8.19+commit.7dd6d404", r.PostForm.Get("compilerversion"))
			writeJSON(w, ok("guid-1"))
			return
		}
		require.Equal(t, "guid-1", r.URL.Query().Get("guid"))
		if atomic.AddInt32(&polls, 1) < 3 {
			writeJSON(w, notOk("NOTOK", "Pending in queue"))
			return
		}
		writeJSON(w, ok("Pass - Verified"))
	})
	guid, err := c.VerifySource(context.Background(), VerifyRequest{
		Address:         testPresale,
		SourceCode:      "contract AlienPresale {}",
		ContractName:    "AlienPresale",
		CompilerVersion: "v0.8.19+commit.7dd6d404",
		Optimizer:       true,
		Runs:            200,
		ConstructorArgs: []byte{0x0a, 0x0b},
	})
	require.NoError(t, err)
	require.Equal(t, "guid-1", guid)

	status, err := c.WaitVerified(context.Background(), guid)
	require.NoError(t, err)
	require.Equal(t, "Pass - Verified", status)
	require.Equal(t, int32(3), atomic.LoadInt32(&polls))
}

func TestVerifyFailed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, notOk("NOTOK", "Contract source code already verified"))
			return
		}
		writeJSON(w, notOk("NOTOK", "Fail - Unable to verify"))
	})
	_, err := c.VerifySource(context.Background(), VerifyRequest{Address: testPresale})
	require.ErrorIs(t, err, ErrAlreadyVerified)

	status, err := c.WaitVerified(context.Background(), "guid")
	require.ErrorIs(t, err, ErrVerifyFailed)
	require.Equal(t, "Fail - Unable to verify", status)
}
