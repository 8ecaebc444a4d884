package service

import (
	"context"
	"errors"
	"log/slog"

	"order-tracking-service/internal/model"
	"order-tracking-service/internal/recognition"
	"order-tracking-service/internal/repository"
)

// OrderResolver maps any code a customer or operator may hold (the order's
// own code or a registered alias) onto the order.
type OrderResolver struct {
	repo OrderRepository
}

func NewOrderResolver(r OrderRepository) *OrderResolver {
	return &OrderResolver{repo: r}
}

// ResolveAny looks the code up as an order code first, then as an alias.
// Aliases are followed exactly one hop. ErrNotFound means nothing resolved.
func (r *OrderResolver) ResolveAny(ctx context.Context, code string) (*model.Order, error) {
	code = recognition.NormalizeCode(code)
	if code == "" {
		return nil, ErrNotFound
	}

	// 1. Direct hit on the order code
	o, err := r.repo.FindOrderByCode(ctx, code)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 2. Alias, one hop only
	a, err := r.repo.FindAliasByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o, err = r.repo.FindOrderByCode(ctx, a.OrderCode)
	if errors.Is(err, repository.ErrNotFound) {
		slog.Warn("alias points at a missing order", "alias", a.AliasCode, "order", a.OrderCode)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}
