package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SortDirection orders ledger reads by timestamp.
type SortDirection int

const (
	Descending SortDirection = -1
	Ascending  SortDirection = 1
)

// ParseSortDirection accepts "asc"; anything else is newest first.
func ParseSortDirection(raw string) SortDirection {
	if raw == "asc" {
		return Ascending
	}
	return Descending
}

// HistoryEntry is the immutable audit record of one quantity change. The
// category, supplier and unit cost are copied from the item at write time.
// UnitCost is invalid only for rows written without a cost snapshot; a
// recorded zero cost is valid.
type HistoryEntry struct {
	ID          string              `json:"id"`
	ItemID      string              `json:"itemId"`
	Change      int                 `json:"change"`
	Type        Movement            `json:"type"`
	Reason      Reason              `json:"reason,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	User        string              `json:"user"`
	FleetNumber string              `json:"fleetNumber,omitempty"`
	Category    string              `json:"category"`
	Supplier    string              `json:"supplier"`
	UnitCost    decimal.NullDecimal `json:"unitCost"`
}

// IsIssuance reports whether the entry is stock issued to a fleet vehicle.
// Legacy stock-out rows that name a fleet count as issuance.
func (e HistoryEntry) IsIssuance() bool {
	if e.Type != StockOut {
		return false
	}
	return e.Reason == ReasonIssuance || e.FleetNumber != ""
}

// Magnitude is |Change|.
func (e HistoryEntry) Magnitude() int {
	if e.Change < 0 {
		return -e.Change
	}
	return e.Change
}

// Cost is |Change| x snapshot unit cost, zero without a snapshot.
func (e HistoryEntry) Cost() decimal.Decimal {
	if !e.UnitCost.Valid {
		return decimal.Zero
	}
	return e.UnitCost.Decimal.Mul(decimal.NewFromInt(int64(e.Magnitude())))
}
