package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is an independently tracked holding linked to a posting account.
type Asset struct {
	ID              int64
	Name            string
	AssetClass      string
	LinkedAccountID int64
	AcquisitionDate time.Time
	AcquisitionCost decimal.Decimal
	DisposalDate    *time.Time
	Note            string
}

// Disposed reports whether the asset has left the books.
func (a Asset) Disposed() bool {
	return a.DisposalDate != nil
}

// AssetValuation is an externally recorded market estimate of an asset.
type AssetValuation struct {
	ID          int64
	AssetID     int64
	AsOfDate    time.Time
	ValueNative decimal.Decimal
	Currency    string
	Method      string
	Source      string
	Note        string
	UpdatedAt   time.Time
}
