package repository

import (
	"errors"
	"time"

	"order-tracking-service/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Collection and table names shared by both stores.
const (
	ordersCollection  = "orders"
	aliasesCollection = "order_aliases"
)

// stamp fills timestamps left zero by the caller.
func stamp(o *model.Order) {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now
	}
}
