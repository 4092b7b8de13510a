package explorer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// VerifyRequest is a single file source verification request.
type VerifyRequest struct {
	Address         ethcommon.Address
	SourceCode      string
	ContractName    string
	CompilerVersion string
	Optimizer       bool
	Runs            int
	ConstructorArgs []byte
	LicenseType     int
}

var (
	verifyPollDelay    = 5 * time.Second
	verifyPollAttempts = uint(24)
)

// VerifySource submits the source and returns the verification GUID.
func (c *Client) VerifySource(ctx context.Context, r VerifyRequest) (string, error) {
	optimization := "0"
	if r.Optimizer {
		optimization = "1"
	}
	params := url.Values{
		"module":           {"contract"},
		"action":           {"verifysourcecode"},
		"contractaddress":  {r.Address.Hex()},
		"sourceCode":       {r.SourceCode},
		"codeformat":       {"solidity-single-file"},
		"contractname":     {r.ContractName},
		"compilerversion":  {r.CompilerVersion},
		"optimizationUsed": {optimization},
		"runs":             {strconv.Itoa(r.Runs)},
		// Misspelled in the explorer API.
		"constructorArguements": {hex.EncodeToString(r.ConstructorArgs)},
	}
	if r.LicenseType != 0 {
		params.Set("licenseType", strconv.Itoa(r.LicenseType))
	}
	var guid string
	if err := c.call(ctx, http.MethodPost, params, &guid); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Result), "already verified") {
			return "", ErrAlreadyVerified
		}
		return "", fmt.Errorf("submit verification: %w", err)
	}
	if guid == "" {
		return "", fmt.Errorf("%w: empty verification guid", ErrBadResponse)
	}
	return guid, nil
}

// VerifyStatus returns the status text of a verification request.
func (c *Client) VerifyStatus(ctx context.Context, guid string) (string, error) {
	var status string
	err := c.call(ctx, http.MethodGet, url.Values{
		"module": {"contract"},
		"action": {"checkverifystatus"},
		"guid":   {guid},
	}, &status)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		// Pending and failed requests come with status "0".
		return apiErr.Result, nil
	}
	return status, err
}

func classifyStatus(status string) error {
	lower := strings.ToLower(status)
	switch {
	case strings.Contains(lower, "pending"), strings.Contains(lower, "in queue"):
		return errVerifyPending
	case strings.HasPrefix(lower, "pass"), strings.Contains(lower, "already verified"):
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrVerifyFailed, status)
	}
}

// WaitVerified polls the verification status until it passes or fails.
func (c *Client) WaitVerified(ctx context.Context, guid string) (string, error) {
	var status string
	err := retry.Do(
		func() error {
			var err error
			status, err = c.VerifyStatus(ctx, guid)
			if err != nil {
				return err
			}
			return classifyStatus(status)
		},
		retry.Context(ctx),
		retry.Attempts(verifyPollAttempts),
		retry.Delay(verifyPollDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errVerifyPending) || errors.Is(err, ErrRateLimited)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("Verification %s: %v", guid, err)
		}),
	)
	if errors.Is(err, errVerifyPending) {
		return status, fmt.Errorf("verification %s is still pending: %w", guid, ErrVerifyFailed)
	}
	return status, err
}
