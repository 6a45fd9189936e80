package format

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DivisionDigits is the number of fractional digits kept when a share is
// divided by a precision that is not a power of ten.
const DivisionDigits = 18

// ErrFormat is matched by every FormatError.
var ErrFormat = errors.New("invalid fixed-point amount")

// FormatError reports an amount or divisor that cannot be rendered.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

var ten = big.NewInt(10)

// ParseAmount parses a base-10 non-negative integer as returned by the ledger.
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &FormatError{Input: s, Reason: "not a base-10 integer"}
	}
	if amount.Sign() < 0 {
		return nil, &FormatError{Input: s, Reason: "negative amount"}
	}
	return amount, nil
}

// ToDecimal converts a raw ledger amount to a decimal string by shifting it
// baseDecimals places. Trailing fractional zeros are trimmed but at least one
// fractional digit is kept:
//
//	ToDecimal(2500000000000000000, 18)  -> "2.5"
//	ToDecimal(10000000000000000000, 18) -> "10.0"
//	ToDecimal(1, 18)                    -> "0.000000000000000001"
func ToDecimal(amount *big.Int, baseDecimals uint8) (string, error) {
	if err := checkAmount(amount); err != nil {
		return "", err
	}
	return shift(amount, int(baseDecimals)), nil
}

// ToDecimalByDivisor converts amount / precision to a decimal string.
// A power-of-ten precision is rendered exactly; any other divisor keeps
// DivisionDigits fractional digits, truncated.
func ToDecimalByDivisor(amount, precision *big.Int) (string, error) {
	if err := checkAmount(amount); err != nil {
		return "", err
	}
	if precision == nil {
		return "", &FormatError{Input: "<nil>", Reason: "missing precision"}
	}
	if precision.Sign() <= 0 {
		return "", &FormatError{Input: precision.String(), Reason: "precision must be positive"}
	}

	if k, ok := powerOfTen(precision); ok {
		return shift(amount, k), nil
	}

	q, _ := decimal.NewFromBigInt(amount, 0).QuoRem(decimal.NewFromBigInt(precision, 0), DivisionDigits)
	return withFraction(q.String()), nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return &FormatError{Input: "<nil>", Reason: "missing amount"}
	}
	if amount.Sign() < 0 {
		return &FormatError{Input: amount.String(), Reason: "negative amount"}
	}
	return nil
}

func shift(amount *big.Int, decimals int) string {
	if decimals == 0 {
		return amount.String() + ".0"
	}

	divisor := new(big.Int).Exp(ten, big.NewInt(int64(decimals)), nil)
	intPart, remainder := new(big.Int).QuoRem(amount, divisor, new(big.Int))

	if remainder.Sign() == 0 {
		return intPart.String() + ".0"
	}

	fracStr := fmt.Sprintf("%0*s", decimals, remainder.String())
	fracStr = strings.TrimRight(fracStr, "0")
	return intPart.String() + "." + fracStr
}

// powerOfTen reports k when p == 10^k.
func powerOfTen(p *big.Int) (int, bool) {
	s := p.String()
	if s[0] != '1' || strings.Trim(s[1:], "0") != "" {
		return 0, false
	}
	return len(s) - 1, true
}

func withFraction(s string) string {
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
