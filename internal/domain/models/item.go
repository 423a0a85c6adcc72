package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the quantity at or below which an item is flagged.
const LowStockThreshold = 4

// Categories offered by the history and item filters.
var Categories = []string{"Filters", "Man Diesel", "Volvo", "GET", "Lubricants", "Tyres"}

// Item is a trackable inventory record with quantity on hand.
type Item struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	PartNumber      string          `json:"partNumber"`
	Location        string          `json:"location"`
	Category        string          `json:"category"`
	Supplier        string          `json:"supplier"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	Quantity        int             `json:"quantity"`
	InitialQuantity int             `json:"initialQuantity"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// LowStock reports whether the item sits at or below LowStockThreshold.
func (i Item) LowStock() bool {
	return i.Quantity <= LowStockThreshold
}

// Validate checks the fields required to create an item.
func (i Item) Validate() error {
	switch {
	case strings.TrimSpace(i.Description) == "":
		return NewValidationError("description is required")
	case strings.TrimSpace(i.PartNumber) == "":
		return NewValidationError("part number is required")
	case strings.TrimSpace(i.Category) == "":
		return NewValidationError("category is required")
	case i.Quantity < 0:
		return NewValidationError("quantity must not be negative")
	case i.UnitCost.IsNegative():
		return NewValidationError("unit cost must not be negative")
	}
	return nil
}

// ItemPatch names the fields an update overwrites; nil fields stay untouched.
type ItemPatch struct {
	Description *string          `json:"description,omitempty"`
	PartNumber  *string          `json:"partNumber,omitempty"`
	Location    *string          `json:"location,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Supplier    *string          `json:"supplier,omitempty"`
	UnitCost    *decimal.Decimal `json:"unitCost,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
}

// Empty reports whether the patch names no field at all.
func (p ItemPatch) Empty() bool {
	return p.Description == nil && p.PartNumber == nil && p.Location == nil &&
		p.Category == nil && p.Supplier == nil && p.UnitCost == nil && p.Quantity == nil
}

// Validate rejects patches that would blank a required field or break the
// non-negative invariants.
func (p ItemPatch) Validate() error {
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return NewValidationError("description must not be empty")
	}
	if p.PartNumber != nil && strings.TrimSpace(*p.PartNumber) == "" {
		return NewValidationError("part number must not be empty")
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return NewValidationError("category must not be empty")
	}
	if p.UnitCost != nil && p.UnitCost.IsNegative() {
		return NewValidationError("unit cost must not be negative")
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return NewValidationError("quantity must not be negative")
	}
	return nil
}

// Apply returns a copy of item with the patch fields written over it.
func (p ItemPatch) Apply(item Item) Item {
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.PartNumber != nil {
		item.PartNumber = *p.PartNumber
	}
	if p.Location != nil {
		item.Location = *p.Location
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Supplier != nil {
		item.Supplier = *p.Supplier
	}
	if p.UnitCost != nil {
		item.UnitCost = *p.UnitCost
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	return item
}

// ItemFilter is an equality predicate over items; empty fields match everything.
type ItemFilter struct {
	Category   string
	PartNumber string
}

// Matches evaluates the filter against a single item.
func (f ItemFilter) Matches(item Item) bool {
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.PartNumber != "" && item.PartNumber != f.PartNumber {
		return false
	}
	return true
}
