package evm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrTimeout = fmt.Errorf("timeout")

	// ErrReverted indicates that the transaction was mined with failed status
	// or that the call was rejected by the contract.
	ErrReverted = fmt.Errorf("execution reverted")

	// ErrNoCode indicates that deployment receipt succeeded but there is no
	// code at the contract address.
	ErrNoCode = fmt.Errorf("no code at contract address")

	ErrNotContractCreation = fmt.Errorf("transaction is not a contract creation")

	// ErrRangeTooLarge indicates that the node refused a log query because
	// of the block range.
	ErrRangeTooLarge = fmt.Errorf("block range is too large")

	// ErrRateLimited indicates that the node throttles requests.
	ErrRateLimited = fmt.Errorf("rate limited")

	ErrChainIDMismatch = fmt.Errorf("chain ID mismatch")
)

// Error codes used by public Polygon RPC providers.
var codeErrorMap = map[int]error{
	-32062: ErrRangeTooLarge,
	-32090: ErrRateLimited,
	-32005: ErrRateLimited,
}

// RevertError carries the decoded reason of a reverted call.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return ErrReverted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrReverted.Error(), e.Reason)
}

func (e *RevertError) Unwrap() error {
	return ErrReverted
}

// parseRPCError maps RPC errors to the package errors. Unknown errors are
// returned as is.
func parseRPCError(origErr error) error {
	if origErr == nil {
		return nil
	}
	var dataErr rpc.DataError
	if errors.As(origErr, &dataErr) {
		if reason, ok := decodeRevertData(dataErr.ErrorData()); ok {
			return fmt.Errorf("%w (%s)", &RevertError{Reason: reason}, origErr.Error())
		}
	}
	var codeErr rpc.Error
	if errors.As(origErr, &codeErr) {
		if mapped, ok := codeErrorMap[codeErr.ErrorCode()]; ok {
			return fmt.Errorf("%w: %v", mapped, origErr)
		}
	}
	msg := strings.ToLower(origErr.Error())
	switch {
	case strings.Contains(msg, "too many requests"):
		return fmt.Errorf("%w: %v", ErrRateLimited, origErr)
	case strings.Contains(msg, "block range is too large"), strings.Contains(msg, "range too large"):
		return fmt.Errorf("%w: %v", ErrRangeTooLarge, origErr)
	case strings.Contains(msg, "execution reverted"):
		return fmt.Errorf("%w: %v", ErrReverted, origErr)
	}
	return origErr
}

func decodeRevertData(data interface{}) (string, bool) {
	hexData, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil || len(raw) < 4 {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return "", false
	}
	return reason, true
}
