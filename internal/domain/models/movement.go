package models

import (
	"fmt"
	"strings"
)

// Movement is the closed set of ledger movement kinds.
type Movement string

const (
	StockIn  Movement = "stock-in"
	StockOut Movement = "stock-out"
)

// Reason qualifies a movement. Only issuance to a fleet vehicle exists today.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonIssuance Reason = "issuance"
)

// Sign returns +1 for StockIn and -1 for StockOut.
func (m Movement) Sign() int {
	if m == StockOut {
		return -1
	}
	return 1
}

func (m Movement) Valid() bool {
	return m == StockIn || m == StockOut
}

// ParseMovement maps stored or legacy vocabulary onto the closed movement
// type. "issued" and "stock-out" are the same event; the returned reason
// tells the two apart when the legacy value carried it.
func ParseMovement(raw string) (Movement, Reason, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stock-in", "in", "receipt", "received":
		return StockIn, ReasonNone, nil
	case "stock-out", "out":
		return StockOut, ReasonNone, nil
	case "issued", "issue", "issuance":
		return StockOut, ReasonIssuance, nil
	default:
		return "", ReasonNone, fmt.Errorf("unknown movement type %q", raw)
	}
}
