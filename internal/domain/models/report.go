package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fallback labels used when joined data is missing.
const (
	UnknownLabel    = "Unknown"
	UnassignedFleet = "Unassigned"
	AllFilter       = "All"
)

// PageSizes are the page sizes offered by the history table.
var PageSizes = []int{5, 10, 20, 50}

// HistoryQuery is the filter and page request for the history table.
type HistoryQuery struct {
	Search    string
	Category  string
	Fleet     string
	Page      int
	PageSize  int
	Direction SortDirection
}

// HistoryRow is a ledger entry joined with the item it refers to.
type HistoryRow struct {
	EntryID     string          `json:"entryId"`
	ItemID      string          `json:"itemId"`
	Date        time.Time       `json:"date"`
	PartNumber  string          `json:"partNumber"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Quantity    *int            `json:"quantity"`
	User        string          `json:"user"`
	Change      int             `json:"change"`
	Type        Movement        `json:"type"`
	Reason      Reason          `json:"reason,omitempty"`
	FleetNumber string          `json:"fleetNumber"`
	Category    string          `json:"category"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	Cost        decimal.Decimal `json:"cost"`
	Issuance    bool            `json:"issuance"`
}

// HistoryPage is one page of filtered history rows.
type HistoryPage struct {
	Rows       []HistoryRow `json:"rows"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalRows  int          `json:"totalRows"`
	TotalPages int          `json:"totalPages"`
}

// CostSummary holds issuance cost grouped by category and by fleet.
type CostSummary struct {
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
	ByFleet    map[string]decimal.Decimal `json:"byFleet"`
	Total      decimal.Decimal            `json:"total"`
}

// Reconciliation compares the stored quantity with the one implied by the ledger.
type Reconciliation struct {
	ItemID          string `json:"itemId"`
	InitialQuantity int    `json:"initialQuantity"`
	LedgerSum       int    `json:"ledgerSum"`
	Entries         int    `json:"entries"`
	Expected        int    `json:"expected"`
	Stored          int    `json:"stored"`
	Drift           int    `json:"drift"`
}

// Consistent reports whether the stored quantity matches the ledger.
func (r Reconciliation) Consistent() bool {
	return r.Drift == 0
}
