package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FxRate is a stored conversion rate: one unit of Quote costs Rate units of Base.
type FxRate struct {
	ID     int64
	Base   string
	Quote  string
	Rate   decimal.Decimal
	AsOf   time.Time
	Source string
}

// CurrencyPair names a base/quote combination, used to report missing rates.
type CurrencyPair struct {
	Base  string
	Quote string
}

func (p CurrencyPair) String() string {
	return p.Base + "/" + p.Quote
}

// PriceQuote is a stored market price snapshot for a symbol.
type PriceQuote struct {
	ID       int64
	Symbol   string
	Market   string
	Currency string
	Price    decimal.Decimal
	AsOf     time.Time
	Source   string
}

// SyncStatus is the outcome of a provider sync run.
type SyncStatus string

const (
	SyncRunning SyncStatus = "running"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// SyncLogEntry records one provider sync run.
type SyncLogEntry struct {
	ID         int64
	DataType   string // "fx" or "price"
	Provider   string
	Status     SyncStatus
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
}
