// models.go
package model

import "time"

// Lifecycle states, in shipping order.
const (
	StatusNotArrivedDXB = "NOT_ARRIVED_DXB"
	StatusArrivedDXB    = "ARRIVED_DXB"
	StatusInTransitIR   = "IN_TRANSIT_IR"
	StatusArrivedTEH    = "ARRIVED_TEH"
)

// Statuses lists every recognized lifecycle state in order.
var Statuses = []string{
	StatusNotArrivedDXB,
	StatusArrivedDXB,
	StatusInTransitIR,
	StatusArrivedTEH,
}

// InitialStatus is assigned when an order is first created.
const InitialStatus = StatusNotArrivedDXB

// ArrivedStatus is assigned when a photo is attached without an explicit status.
const ArrivedStatus = StatusArrivedDXB

func IsValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Order is one customer shipment, keyed by its canonical code.
type Order struct {
	ID        uint      `gorm:"primaryKey" bson:"-" json:"-"`
	Code      string    `gorm:"uniqueIndex;size:64;not null" bson:"code" json:"code"`
	Status    string    `gorm:"size:32;not null" bson:"status" json:"status"`
	ImagePath string    `gorm:"size:512" bson:"image_path,omitempty" json:"image,omitempty"`
	CreatedAt time.Time `gorm:"index" bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// OrderAlias maps a label/invoice/carrier code onto an order code.
type OrderAlias struct {
	ID        uint      `gorm:"primaryKey" bson:"-" json:"-"`
	OrderCode string    `gorm:"index;size:64;not null" bson:"order_code" json:"orderCode"`
	AliasCode string    `gorm:"uniqueIndex;size:64;not null" bson:"alias_code" json:"aliasCode"`
	Carrier   string    `gorm:"size:64" bson:"carrier,omitempty" json:"carrier,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

func (Order) TableName() string { return "orders" }

func (OrderAlias) TableName() string { return "order_aliases" }
