package mongodb

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// costValue is a unit cost field. Ledger rows written before costs were
// stored as decimal128 hold a double, an integer or a string such as
// "Unknown"; those decode too, and a non-numeric string decodes as absent.
type costValue struct {
	decimal.NullDecimal
}

func newCost(d decimal.Decimal) costValue {
	return costValue{decimal.NewNullDecimal(d)}
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (c *costValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Decimal128:
		c.NullDecimal = decimal.NewNullDecimal(fromDecimal128(raw.Decimal128()))
	case bsontype.Double:
		c.NullDecimal = decimal.NewNullDecimal(decimal.NewFromFloat(raw.Double()))
	case bsontype.Int32:
		c.NullDecimal = decimal.NewNullDecimal(decimal.NewFromInt32(raw.Int32()))
	case bsontype.Int64:
		c.NullDecimal = decimal.NewNullDecimal(decimal.NewFromInt(raw.Int64()))
	case bsontype.String:
		d, err := decimal.NewFromString(strings.TrimSpace(raw.StringValue()))
		if err != nil {
			c.NullDecimal = decimal.NullDecimal{}
			return nil
		}
		c.NullDecimal = decimal.NewNullDecimal(d)
	case bsontype.Null, bsontype.Undefined:
		c.NullDecimal = decimal.NullDecimal{}
	default:
		return fmt.Errorf("decode unit cost: unsupported bson type %s", t)
	}
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler. Present costs are
// always written as decimal128.
func (c costValue) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !c.Valid {
		return bsontype.Null, nil, nil
	}
	v, err := toDecimal128(c.Decimal)
	if err != nil {
		return 0, nil, err
	}
	return bson.MarshalValue(v)
}
