package utils

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const MaturationLayout = "2006-01-02T15:04:05Z"

// NormalizeOutcome divides an outcome by 10^shift, rounding half away from zero.
func NormalizeOutcome(value *big.Int, shift int) *big.Int {
	if value == nil {
		return nil
	}

	return decimal.NewFromBigInt(value, 0).Shift(int32(-shift)).Round(0).BigInt()
}

// OutcomesMatch compares a chain reported outcome with the outcome reported by the attestor. The
// attestor works on the normalized scale since it is always called with a normalized value.
func OutcomesMatch(chainOutcome, oracleOutcome *big.Int, shift int) bool {
	if chainOutcome == nil || oracleOutcome == nil {
		return false
	}

	return NormalizeOutcome(chainOutcome, shift).Cmp(oracleOutcome) == 0
}

// FormatMaturation turns a unix timestamp (seconds) minus shift into the attestor's maturation
// format.
func FormatMaturation(unixSeconds uint64, shift int64) string {
	ts := int64(unixSeconds) - shift
	if ts < 0 {
		ts = 0
	}

	return time.Unix(ts, 0).UTC().Format(MaturationLayout)
}

func ParseOutcome(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid outcome %q: %w", s, err)
	}
	if !d.IsInteger() || d.IsNegative() {
		return nil, fmt.Errorf("outcome must be a non negative integer, got %s", s)
	}

	return d.BigInt(), nil
}
