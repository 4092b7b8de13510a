// Package explorer is a client of Etherscan compatible block explorer APIs
// such as Polygonscan.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoAPIKey     = errors.New("explorer API key is not configured")
	ErrRateLimited  = errors.New("explorer rate limit reached")
	ErrBadResponse  = errors.New("unexpected explorer response")
	ErrVerifyFailed = errors.New("contract verification failed")

	ErrAlreadyVerified = errors.New("contract source code already verified")

	// errVerifyPending is returned by VerifyStatus while the explorer is
	// still processing a verification request.
	errVerifyPending = errors.New("verification is pending")
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 1000
	maxPages        = 10
	noRecords       = "No records found"
)

type Config struct {
	// API root, e.g. https://api.polygonscan.com/api.
	APIURL string

	// Web UI root used in links, e.g. https://polygonscan.com.
	WebURL string

	APIKey  string
	Timeout time.Duration
}

type Client struct {
	apiURL     string
	webURL     string
	apiKey     string
	httpClient *http.Client
	pageSize   int
}

func New(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiURL:     config.APIURL,
		webURL:     strings.TrimSuffix(config.WebURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		pageSize:   defaultPageSize,
	}
}

func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

func (c *Client) AddressURL(addr ethcommon.Address) string {
	return fmt.Sprintf("%s/address/%s", c.webURL, addr.Hex())
}

func (c *Client) TxURL(hash ethcommon.Hash) string {
	return fmt.Sprintf("%s/tx/%s", c.webURL, hash.Hex())
}

// APIError is an explorer reply with status "0".
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result == "" {
		return fmt.Sprintf("explorer error: %s", e.Message)
	}
	return fmt.Sprintf("explorer error: %s: %s", e.Message, e.Result)
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// proxyResponse is the JSON-RPC style reply of module=proxy.
type proxyResponse struct {
	Result string          `json:"result"`
	Error  json.RawMessage `json:"error"`
}

func (c *Client) newRequest(ctx context.Context, method string, params url.Values) (*http.Request, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	params.Set("apikey", c.apiKey)
	if method == http.MethodGet {
		return http.NewRequestWithContext(ctx, method, c.apiURL+"?"+params.Encode(), nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read explorer response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrBadResponse, resp.StatusCode)
	}
	return body, nil
}

// call sends the request and decodes the result field into result. Empty
// "No records found" replies leave result untouched.
func (c *Client) call(ctx context.Context, method string, params url.Values, result interface{}) error {
	req, err := c.newRequest(ctx, method, params)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if resp.Status != "1" {
		var text string
		_ = json.Unmarshal(resp.Result, &text)
		if strings.Contains(resp.Message, noRecords) || strings.Contains(text, noRecords) {
			return nil
		}
		if strings.Contains(strings.ToLower(text), "rate limit") {
			return fmt.Errorf("%w: %s", ErrRateLimited, text)
		}
		return &APIError{Message: resp.Message, Result: text}
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("%w: decode result: %v", ErrBadResponse, err)
	}
	return nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url.Values{
		"module": {"proxy"},
		"action": {"eth_blockNumber"},
	})
	if err != nil {
		return 0, err
	}
	body, err := c.do(req)
	if err != nil {
		return 0, err
	}
	var resp proxyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(resp.Error) != 0 || resp.Result == "" {
		return 0, fmt.Errorf("%w: %s", ErrBadResponse, string(body))
	}
	return parseHexUint(resp.Result)
}

// TokenSupply returns total supply of the token in its smallest units.
func (c *Client) TokenSupply(ctx context.Context, token ethcommon.Address) (*big.Int, error) {
	var supply string
	err := c.call(ctx, http.MethodGet, url.Values{
		"module":          {"stats"},
		"action":          {"tokensupply"},
		"contractaddress": {token.Hex()},
	}, &supply)
	if err != nil {
		return nil, err
	}
	return parseDecimal(supply)
}

func parseHexUint(s string) (uint64, error) {
	v, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok || !v.IsUint64() {
		return 0, fmt.Errorf("%w: bad hex number %q", ErrBadResponse, s)
	}
	return v.Uint64(), nil
}

func parseDecimal(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad number %q", ErrBadResponse, s)
	}
	return v, nil
}
