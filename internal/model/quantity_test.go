package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBucketBounds(t *testing.T) {
	tests := []struct {
		name     string
		bucket   QuantityBucket
		min, max int64
		ok       bool
	}{
		{name: "small range", bucket: BucketSmall, min: 1, max: 10, ok: true},
		{name: "medium range", bucket: BucketMedium, min: 10, max: 100, ok: true},
		{name: "large range", bucket: BucketLarge, min: 100, max: 1000, ok: true},
		{name: "legacy bare integer", bucket: "250", min: 250, max: 250, ok: true},
		{name: "garbage", bucket: "lots", ok: false},
		{name: "half range", bucket: "10-x", ok: false},
		{name: "empty", bucket: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := tt.bucket.Bounds()
			if ok != tt.ok {
				t.Fatalf("Bounds() ok = %v, want %v", ok, tt.ok)
			}
			if lo != tt.min || hi != tt.max {
				t.Errorf("Bounds() = (%d, %d), want (%d, %d)", lo, hi, tt.min, tt.max)
			}
		})
	}
}

func TestBucketBoundsOrdered(t *testing.T) {
	for _, b := range Buckets() {
		lo, hi, ok := b.Bounds()
		if !ok {
			t.Fatalf("bucket %q did not parse", b)
		}
		if lo > hi {
			t.Errorf("bucket %q has min %d > max %d", b, lo, hi)
		}
	}
}

func TestBucketTotalRange(t *testing.T) {
	price := decimal.RequireFromString("2.00")

	lo, hi := BucketMedium.TotalRange(price)
	if want := decimal.NewFromInt(20); !lo.Equal(want) {
		t.Errorf("min total = %s, want %s", lo, want)
	}
	if want := decimal.NewFromInt(200); !hi.Equal(want) {
		t.Errorf("max total = %s, want %s", hi, want)
	}

	// Legacy integer collapses to a single figure.
	lo, hi = QuantityBucket("5").TotalRange(price)
	if !lo.Equal(hi) {
		t.Errorf("bare integer total should collapse, got %s - %s", lo, hi)
	}
	if !QuantityBucket("5").Exact() {
		t.Error("bare integer bucket should be exact")
	}
	if BucketSmall.Exact() {
		t.Error("range bucket should not be exact")
	}

	// Unknown buckets degrade to zero rather than failing.
	lo, hi = QuantityBucket("bogus").TotalRange(price)
	if !lo.IsZero() || !hi.IsZero() {
		t.Errorf("invalid bucket totals = %s - %s, want zero", lo, hi)
	}
}

func TestBucketMidpoint(t *testing.T) {
	tests := []struct {
		bucket QuantityBucket
		want   string
	}{
		{BucketSmall, "5.5"},
		{BucketMedium, "55"},
		{BucketLarge, "550"},
		{"42", "42"},
		{"junk", "0"},
	}

	for _, tt := range tests {
		got := tt.bucket.Midpoint()
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Midpoint(%q) = %s, want %s", tt.bucket, got, tt.want)
		}
	}
}

func TestTradeSignedValue(t *testing.T) {
	buy := Trade{Quantity: BucketMedium, Price: decimal.RequireFromString("2.00"), Side: SideBuy}
	if want := decimal.NewFromInt(110); !buy.SignedValue().Equal(want) {
		t.Errorf("buy signed value = %s, want %s", buy.SignedValue(), want)
	}

	sell := buy
	sell.Side = SideSell
	if !buy.SignedValue().Add(sell.SignedValue()).IsZero() {
		t.Error("equal and opposite trades should cancel out")
	}
}
