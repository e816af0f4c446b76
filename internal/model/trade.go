package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a buy/sell record against a group ledger. Quantity is a range
// bucket, not an exact share count. Trades are immutable once created; only
// the author may delete one.
type Trade struct {
	ID        string          `json:"id"`
	GroupID   string          `json:"group_id"`
	Symbol    string          `json:"symbol"`
	Quantity  QuantityBucket  `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Side      Side            `json:"type"`
	User      string          `json:"user"`
	CreatedAt time.Time       `json:"timestamp"`
}

// TotalRange returns the minimum and maximum total value of the trade.
func (t Trade) TotalRange() (min, max decimal.Decimal) {
	return t.Quantity.TotalRange(t.Price)
}

// SignedValue is the trade's contribution to the group net position:
// sign(side) x midpoint(quantity) x price.
func (t Trade) SignedValue() decimal.Decimal {
	return t.Quantity.Midpoint().Mul(t.Price).Mul(decimal.NewFromInt(t.Side.Sign()))
}
