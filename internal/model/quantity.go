package model

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityBucket is a coarse share-count range such as "10-100". Legacy
// records carry a bare integer, which is treated as the degenerate range
// (n, n).
type QuantityBucket string

// The fixed enumeration accepted for new trades.
const (
	BucketSmall  QuantityBucket = "1-10"
	BucketMedium QuantityBucket = "10-100"
	BucketLarge  QuantityBucket = "100-1000"
)

// Buckets lists the accepted quantity ranges in display order.
func Buckets() []QuantityBucket {
	return []QuantityBucket{BucketSmall, BucketMedium, BucketLarge}
}

// ValidBucket reports whether q is one of the fixed enumeration values.
func ValidBucket(q QuantityBucket) bool {
	for _, b := range Buckets() {
		if q == b {
			return true
		}
	}
	return false
}

// Bounds parses the bucket into its minimum and maximum share counts.
// A bare integer n yields (n, n). ok is false when the value is neither
// a range nor an integer.
func (q QuantityBucket) Bounds() (min, max int64, ok bool) {
	s := strings.TrimSpace(string(q))
	if lo, hi, found := strings.Cut(s, "-"); found {
		minQty, errLo := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		maxQty, errHi := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if errLo != nil || errHi != nil {
			return 0, 0, false
		}
		return minQty, maxQty, true
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}

// TotalRange multiplies both bounds by the unit price. Unparseable buckets
// degrade to a zero range.
func (q QuantityBucket) TotalRange(price decimal.Decimal) (min, max decimal.Decimal) {
	lo, hi, ok := q.Bounds()
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(lo)), price.Mul(decimal.NewFromInt(hi))
}

// Midpoint resolves the bucket to its single representative share count, the
// arithmetic mean of its bounds. A bare integer's midpoint is itself, and an
// unparseable bucket degrades to zero.
func (q QuantityBucket) Midpoint() decimal.Decimal {
	lo, hi, ok := q.Bounds()
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromInt(lo + hi).Div(decimal.NewFromInt(2))
}

// Exact reports whether the bucket collapses to a single figure.
func (q QuantityBucket) Exact() bool {
	lo, hi, ok := q.Bounds()
	return ok && lo == hi
}
