package models

import (
	"fmt"
	"strings"
	"time"
)

// ReferenceKind names one of the free-text choice lists.
type ReferenceKind string

const (
	FleetNumbers ReferenceKind = "fleetNumbers"
	Suppliers    ReferenceKind = "suppliers"
)

func (k ReferenceKind) Valid() bool {
	return k == FleetNumbers || k == Suppliers
}

// Reference is one named entry of a reference list.
type Reference struct {
	ID        string        `json:"id"`
	Kind      ReferenceKind `json:"kind"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NormalizeReferenceName trims the name and rejects empty input.
func NormalizeReferenceName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", NewValidationError("name is required")
	}
	return name, nil
}

// Label is used in log lines and events.
func (r Reference) Label() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.Name)
}
