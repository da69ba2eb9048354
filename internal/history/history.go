// Package history keeps an append-only log of past calculations.
package history

import (
	"context"
	"sync"
	"time"

	"optionpricer/internal/bsm"
)

// DefaultLimit is how many records the history view shows.
const DefaultLimit = 10

// Record is one saved calculation.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	Spot       float64   `json:"spot_price"`
	Strike     float64   `json:"strike_price"`
	Expiry     float64   `json:"time_to_expiry"`
	Rate       float64   `json:"risk_free_rate"`
	Volatility float64   `json:"volatility"`
	CallPrice  float64   `json:"call_price"`
	PutPrice   float64   `json:"put_price"`
}

// NewRecord captures a valuation at time at, in UTC to the second.
func NewRecord(at time.Time, v bsm.Valuation) Record {
	return Record{
		Timestamp:  at.UTC().Truncate(time.Second),
		Spot:       v.Quote.Spot,
		Strike:     v.Quote.Strike,
		Expiry:     v.Quote.Expiry,
		Rate:       v.Quote.Rate,
		Volatility: v.Quote.Volatility,
		CallPrice:  v.CallPrice,
		PutPrice:   v.PutPrice,
	}
}

// Store persists records. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, r Record) error
	// Recent returns at most limit records, most recent first.
	// limit <= 0 yields an empty result.
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// MemoryStore is an in-process Store, used when no driver is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []Record
	capacity int
}

// NewMemoryStore keeps at most capacity records; capacity <= 0 means unbounded.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity}
}

func (m *MemoryStore) Append(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	if m.capacity > 0 && len(m.records) > m.capacity {
		m.records = append(m.records[:0:0], m.records[len(m.records)-m.capacity:]...)
	}
	return nil
}

func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Record{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := min(limit, len(m.records))
	out := make([]Record, 0, n)
	for i := len(m.records) - 1; i >= len(m.records)-n; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
