package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemTypeBounceHouse ItemType = "BOUNCE_HOUSE"
	ItemTypeInflatable  ItemType = "INFLATABLE"
	ItemTypeGame        ItemType = "GAME"
	ItemTypeOther       ItemType = "OTHER"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeBounceHouse, ItemTypeInflatable, ItemTypeGame, ItemTypeOther:
		return true
	}
	return false
}

type ItemStatus string

const (
	ItemStatusAvailable   ItemStatus = "AVAILABLE"
	ItemStatusMaintenance ItemStatus = "MAINTENANCE"
	ItemStatusRetired     ItemStatus = "RETIRED"
)

// InventoryItem is a rentable unit type owned by a business. Read-mostly: it is
// treated as immutable for the duration of a single allocation decision.
type InventoryItem struct {
	ID              string
	BusinessID      string
	Name            string
	Type            ItemType
	QuantityOwned   int
	SetupMinutes    int
	TeardownMinutes int
	Status          ItemStatus
	UnitPrice       decimal.Decimal
	CreatedAt       time.Time
}

// Bookable reports whether the item can appear on a new booking at all.
// Capacity is checked separately against committed quantity.
func (i InventoryItem) Bookable() bool {
	return i.Status == ItemStatusAvailable
}
