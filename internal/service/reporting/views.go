package reporting

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

// JoinRows joins every entry with its item. Category and unit cost come from
// the entry snapshot, falling back to the live item for rows written before
// snapshots existed. Deleted items show as Unknown.
func JoinRows(entries []models.HistoryEntry, items map[string]models.Item) []models.HistoryRow {
	rows := make([]models.HistoryRow, 0, len(entries))
	for _, e := range entries {
		row := models.HistoryRow{
			EntryID:     e.ID,
			ItemID:      e.ItemID,
			Date:        e.Timestamp,
			PartNumber:  models.UnknownLabel,
			Description: models.UnknownLabel,
			Location:    models.UnknownLabel,
			User:        e.User,
			Change:      e.Change,
			Type:        e.Type,
			Reason:      e.Reason,
			FleetNumber: e.FleetNumber,
			Category:    e.Category,
			UnitCost:    e.UnitCost.Decimal,
			Issuance:    e.IsIssuance(),
		}

		item, ok := items[e.ItemID]
		if ok {
			qty := item.Quantity
			row.PartNumber = item.PartNumber
			row.Description = item.Description
			row.Location = item.Location
			row.Quantity = &qty
			if row.Category == "" {
				row.Category = item.Category
			}
			if !e.UnitCost.Valid {
				row.UnitCost = item.UnitCost
			}
		}
		if row.Category == "" {
			row.Category = models.UnknownLabel
		}
		if row.User == "" {
			row.User = models.UnknownUser
		}

		row.Cost = row.UnitCost.Mul(decimal.NewFromInt(int64(abs(row.Change))))
		rows = append(rows, row)
	}
	return rows
}

// FilterRows keeps rows whose part number or description contains the search
// term (case-insensitive) and whose category and fleet equal the requested
// ones. Empty or "All" disables a filter. The input is never modified.
func FilterRows(rows []models.HistoryRow, q models.HistoryQuery) []models.HistoryRow {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	category := normalizeFilter(q.Category)
	fleet := normalizeFilter(q.Fleet)

	out := make([]models.HistoryRow, 0, len(rows))
	for _, row := range rows {
		if search != "" &&
			!strings.Contains(strings.ToLower(row.PartNumber), search) &&
			!strings.Contains(strings.ToLower(row.Description), search) {
			continue
		}
		if category != "" && row.Category != category {
			continue
		}
		if fleet != "" && row.FleetNumber != fleet {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Paginate slices rows into fixed-size pages. Pages are ceil(N/size) and an
// out-of-range page is clamped into [1, pages].
func Paginate(rows []models.HistoryRow, page, size int) models.HistoryPage {
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(rows)
	pages := (total + size - 1) / size

	switch {
	case page < 1:
		page = 1
	case pages > 0 && page > pages:
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return models.HistoryPage{
		Rows:       rows[start:end],
		Page:       page,
		PageSize:   size,
		TotalRows:  total,
		TotalPages: pages,
	}
}

// SummarizeCosts sums |change| x unit cost over issuance rows, grouped by
// category and by fleet (Unassigned when the row names none).
func SummarizeCosts(rows []models.HistoryRow) models.CostSummary {
	summary := models.CostSummary{
		ByCategory: make(map[string]decimal.Decimal),
		ByFleet:    make(map[string]decimal.Decimal),
		Total:      decimal.Zero,
	}

	for _, row := range rows {
		if !row.Issuance {
			continue
		}

		fleet := row.FleetNumber
		if fleet == "" {
			fleet = models.UnassignedFleet
		}

		summary.ByCategory[row.Category] = summary.ByCategory[row.Category].Add(row.Cost)
		summary.ByFleet[fleet] = summary.ByFleet[fleet].Add(row.Cost)
		summary.Total = summary.Total.Add(row.Cost)
	}
	return summary
}

// ValidPageSize reports whether size is one of the offered page sizes.
func ValidPageSize(size int) bool {
	for _, s := range models.PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

func normalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, models.AllFilter) {
		return ""
	}
	return v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
