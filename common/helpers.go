package common

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const etherDecimals = 18

var (
	weiPerEther   = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)
	decimalAmount = regexp.MustCompile(`^([0-9]+)(?:\.([0-9]+))?$`)
)

// ParseEther converts a decimal amount such as "0.0005" into wei. Only
// plain decimal notation is accepted.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	parts := decimalAmount.FindStringSubmatch(s)
	if parts == nil {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	whole, frac := parts[1], parts[2]
	if len(frac) > etherDecimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, etherDecimals)
	}
	frac += strings.Repeat("0", etherDecimals-len(frac))
	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return wei, nil
}

// FormatEther renders wei as a decimal string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, weiPerEther).FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func weiToFloat(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(wei, weiPerEther).Float64()
	return f
}

// FormatTokenBalance renders a token balance with K/M suffixes.
func FormatTokenBalance(wei *big.Int, symbol string) string {
	balance := weiToFloat(wei)
	switch {
	case balance >= 1_000_000:
		return fmt.Sprintf("%.2fM %s", balance/1_000_000, symbol)
	case balance >= 1_000:
		return fmt.Sprintf("%.2fK %s", balance/1_000, symbol)
	default:
		return fmt.Sprintf("%.2f %s", balance, symbol)
	}
}

// TokensForAmount returns how many token units (18 decimals) the given
// amount of wei buys at price wei per whole token.
func TokensForAmount(amount, price *big.Int) *big.Int {
	if price == nil || price.Sign() == 0 || amount == nil {
		return new(big.Int)
	}
	tokens := new(big.Int).Mul(amount, weiPerEther)
	return tokens.Div(tokens, price)
}

// Percent returns part/total*100 or 0 when total is zero.
func Percent(part, total *big.Int) float64 {
	if total == nil || total.Sign() == 0 || part == nil {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(new(big.Int).Mul(part, big.NewInt(100)), total).Float64()
	return f
}

// SubFloor returns a-b, or zero when b > a.
func SubFloor(a, b *big.Int) *big.Int {
	res := new(big.Int).Sub(a, b)
	if res.Sign() < 0 {
		return new(big.Int)
	}
	return res
}

func UnixBig(t time.Time) *big.Int {
	return big.NewInt(t.Unix())
}

func TimeFromBig(v *big.Int) time.Time {
	if v == nil {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
