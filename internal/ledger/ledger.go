package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tradecircle/tradecircle/internal/api"
	"github.com/tradecircle/tradecircle/internal/model"
)

// ErrNotAuthor gates trade deletion on the client side. The server enforces
// the same rule; the gate just avoids a call that is known to fail.
var ErrNotAuthor = errors.New("only the trade author may delete it")

// TradeService is the slice of the collaborator API the ledger depends on.
// Satisfied by *api.Client.
type TradeService interface {
	CreateTrade(ctx context.Context, candidate model.Trade) (model.Trade, error)
	DeleteTrade(ctx context.Context, tradeID, user string) error
}

// Ledger is the locally cached trade sequence for one group. Display order is
// insertion order of server confirmations; every mutation is all-or-nothing
// relative to the cache.
type Ledger struct {
	svc     TradeService
	groupID string
	user    string
	log     *zerolog.Logger

	mu      sync.Mutex
	trades  []model.Trade
	pending int
}

// New builds an empty ledger cache for one group, acting as user.
func New(svc TradeService, groupID, user string, logger *zerolog.Logger) *Ledger {
	return &Ledger{svc: svc, groupID: groupID, user: user, log: logger}
}

// Replace installs the authoritative trade set fetched from the service,
// discarding any in-flight optimistic markers.
func (l *Ledger) Replace(trades []model.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append([]model.Trade(nil), trades...)
	l.pending = 0
}

// Trades returns a snapshot of the sequence in display order.
func (l *Ledger) Trades() []model.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Len reports the number of confirmed trades in the cache.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.trades)
}

// Add validates the candidate locally, submits it, and appends the canonical
// trade the server returns. The candidate itself never enters the cache: the
// server owns identity and timestamp. On failure the sequence is unchanged.
func (l *Ledger) Add(ctx context.Context, candidate model.Trade) (model.Trade, error) {
	if candidate.Symbol == "" || candidate.Quantity == "" || !candidate.Side.Valid() {
		return model.Trade{}, api.NewValidationError("please fill in all fields")
	}
	if candidate.Price.IsNegative() {
		return model.Trade{}, api.NewValidationError("price must not be negative")
	}

	candidate.GroupID = l.groupID
	candidate.User = l.user

	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	confirmed, err := l.svc.CreateTrade(ctx, candidate)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending--
	if err != nil {
		// Discard the optimistic marker; the authoritative cache was never
		// touched, so no divergence to repair.
		return model.Trade{}, err
	}
	l.trades = append(l.trades, confirmed)
	l.log.Debug().Str("trade_id", confirmed.ID).Str("symbol", confirmed.Symbol).Msg("trade confirmed")
	return confirmed, nil
}

// Remove deletes a trade by identity. Only trades authored by the acting user
// pass the local gate; the server re-checks regardless. On failure the
// sequence is unchanged.
func (l *Ledger) Remove(ctx context.Context, tradeID string) error {
	l.mu.Lock()
	var found *model.Trade
	for i := range l.trades {
		if l.trades[i].ID == tradeID {
			found = &l.trades[i]
			break
		}
	}
	if found == nil {
		l.mu.Unlock()
		return api.NewValidationError("unknown trade %q", tradeID)
	}
	if found.User != l.user {
		l.mu.Unlock()
		return ErrNotAuthor
	}
	l.mu.Unlock()

	if err := l.svc.DeleteTrade(ctx, tradeID, l.user); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.trades {
		if l.trades[i].ID == tradeID {
			l.trades = append(l.trades[:i], l.trades[i+1:]...)
			break
		}
	}
	return nil
}

// NetPosition sums sign(side) x midpoint(quantity) x price over the cached
// trades. Recomputed on demand, never cached.
func (l *Ledger) NetPosition() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, t := range l.trades {
		total = total.Add(t.SignedValue())
	}
	return total
}

// InFlight reports whether any optimistic additions await confirmation.
func (l *Ledger) InFlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending > 0
}
