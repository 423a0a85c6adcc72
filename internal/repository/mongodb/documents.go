package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/repository"
)

type itemDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Description     string             `bson:"description"`
	PartNumber      string             `bson:"partnumber"`
	Location        string             `bson:"location"`
	Category        string             `bson:"category"`
	Supplier        string             `bson:"supplier"`
	UnitCost        costValue          `bson:"unitcost"`
	Quantity        int                `bson:"quantity"`
	InitialQuantity int                `bson:"initialQuantity"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func newItemDocument(item models.Item) (itemDocument, error) {
	if _, err := toDecimal128(item.UnitCost); err != nil {
		return itemDocument{}, err
	}
	return itemDocument{
		Description:     item.Description,
		PartNumber:      item.PartNumber,
		Location:        item.Location,
		Category:        item.Category,
		Supplier:        item.Supplier,
		UnitCost:        newCost(item.UnitCost),
		Quantity:        item.Quantity,
		InitialQuantity: item.InitialQuantity,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}, nil
}

func (d itemDocument) model() models.Item {
	return models.Item{
		ID:              d.ID.Hex(),
		Description:     d.Description,
		PartNumber:      d.PartNumber,
		Location:        d.Location,
		Category:        d.Category,
		Supplier:        d.Supplier,
		UnitCost:        d.UnitCost.Decimal,
		Quantity:        d.Quantity,
		InitialQuantity: d.InitialQuantity,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// historyDocument keeps the field names of the legacy ledger. Type is a
// plain string so rows written as "issued" still decode, and unitcost accepts
// the numeric and string forms older rows carry.
type historyDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ItemID      string             `bson:"itemId"`
	Change      int                `bson:"change"`
	Type        string             `bson:"type"`
	Reason      string             `bson:"reason,omitempty"`
	Timestamp   time.Time          `bson:"timestamp,omitempty"`
	User        string             `bson:"user"`
	FleetNumber string             `bson:"fleetNumber,omitempty"`
	Category    string             `bson:"category"`
	Supplier    string             `bson:"supplier"`
	UnitCost    costValue          `bson:"unitcost"`
}

func newHistoryDocument(entry models.HistoryEntry) (historyDocument, error) {
	if entry.UnitCost.Valid {
		if _, err := toDecimal128(entry.UnitCost.Decimal); err != nil {
			return historyDocument{}, err
		}
	}
	return historyDocument{
		ItemID:      entry.ItemID,
		Change:      entry.Change,
		Type:        string(entry.Type),
		Reason:      string(entry.Reason),
		User:        entry.User,
		FleetNumber: entry.FleetNumber,
		Category:    entry.Category,
		Supplier:    entry.Supplier,
		UnitCost:    costValue{entry.UnitCost},
	}, nil
}

func (d historyDocument) model() models.HistoryEntry {
	entry := models.HistoryEntry{
		ID:          d.ID.Hex(),
		ItemID:      d.ItemID,
		Change:      d.Change,
		Reason:      models.Reason(d.Reason),
		Timestamp:   d.Timestamp,
		User:        d.User,
		FleetNumber: d.FleetNumber,
		Category:    d.Category,
		Supplier:    d.Supplier,
		UnitCost:    d.UnitCost.NullDecimal,
	}

	movement, reason, err := models.ParseMovement(d.Type)
	if err != nil {
		// Unknown vocabulary: fall back to the sign of the change.
		movement = models.StockIn
		if d.Change < 0 {
			movement = models.StockOut
		}
	}
	entry.Type = movement
	if entry.Reason == models.ReasonNone {
		entry.Reason = reason
	}
	return entry
}

type referenceDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d referenceDocument) model(kind models.ReferenceKind) models.Reference {
	return models.Reference{ID: d.ID.Hex(), Kind: kind, Name: d.Name, CreatedAt: d.CreatedAt}
}

type messageDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Channel   string             `bson:"channel"`
	Recipient string             `bson:"recipient"`
	Body      string             `bson:"body"`
	Status    string             `bson:"status"`
	Error     string             `bson:"error,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d messageDocument) model() models.Message {
	return models.Message{
		ID:        d.ID.Hex(),
		Channel:   d.Channel,
		Recipient: d.Recipient,
		Body:      d.Body,
		Status:    models.MessageStatus(d.Status),
		Error:     d.Error,
		CreatedAt: d.CreatedAt,
	}
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert unit cost %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// objectID parses a hex id; malformed ids are reported as not found.
func objectID(id, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return oid, nil
}

var _ repository.ItemRepository = (*ItemRepository)(nil)
var _ repository.HistoryRepository = (*HistoryRepository)(nil)
var _ repository.ReferenceRepository = (*ReferenceRepository)(nil)
var _ repository.MessageRepository = (*MessageRepository)(nil)
