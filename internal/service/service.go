package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"order-tracking-service/internal/model"
	"order-tracking-service/internal/recognition"
	"order-tracking-service/internal/repository"
)

// Interface the repository must implement. Both the Mongo and the SQL store do.
type OrderRepository interface {
	FindOrderByCode(ctx context.Context, code string) (*model.Order, error)
	FindAliasByCode(ctx context.Context, aliasCode string) (*model.OrderAlias, error)
	FindAliasesForOrder(ctx context.Context, orderCode string) ([]*model.OrderAlias, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	InsertAlias(ctx context.Context, a *model.OrderAlias) error
	UpdateOrder(ctx context.Context, o *model.Order) error
	FindOrdersInRange(ctx context.Context, start, end time.Time) ([]*model.Order, error)
	UpdateStatusForCodes(ctx context.Context, codes []string, status string, at time.Time) (int64, error)
	FindAll(ctx context.Context) ([]*model.Order, error)
	FindByStatus(ctx context.Context, status string) ([]*model.Order, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Business errors, mapped to HTTP statuses by the controller.
var (
	ErrAlreadyExists     = errors.New("order already exists")
	ErrNotFound          = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrEmptyCode         = errors.New("code must not be empty")
	ErrAliasShadowsOrder = errors.New("alias code is already an order code")
)

// MaxAffectedCodes caps the code list echoed by a bulk update.
const MaxAffectedCodes = 100

type OrderService struct {
	repo     OrderRepository
	resolver *OrderResolver
	codes    CodeResolver
	now      func() time.Time
}

func NewOrderService(r OrderRepository, codes CodeResolver) *OrderService {
	return &OrderService{
		repo:     r,
		resolver: NewOrderResolver(r),
		codes:    codes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder is the strict creation path: an existing code is an error.
func (s *OrderService) CreateOrder(ctx context.Context, code string) (*model.Order, error) {
	code = recognition.NormalizeCode(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	var created *model.Order
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		// 1. Already there?
		_, err := s.repo.FindOrderByCode(ctx, code)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		// 2. Create it in the initial status
		created, err = s.insertOrder(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("order created", "code", created.Code)
	return created, nil
}

func (s *OrderService) insertOrder(ctx context.Context, code string) (*model.Order, error) {
	// An order under an alias code would hide the alias from ResolveAny.
	a, err := s.repo.FindAliasByCode(ctx, code)
	if err == nil {
		return nil, fmt.Errorf("%w: %s is an alias of order %s", ErrAlreadyExists, code, a.OrderCode)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	o := &model.Order{
		Code:      code,
		Status:    model.InitialStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertOrder(ctx, o); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return o, nil
}

// EnsureOrder returns the order with exactly this code, creating it when absent.
func (s *OrderService) EnsureOrder(ctx context.Context, code string) (*model.Order, error) {
	code = recognition.NormalizeCode(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	var out *model.Order
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.ensureOrder(ctx, code)
		return err
	})
	return out, err
}

func (s *OrderService) ensureOrder(ctx context.Context, code string) (*model.Order, error) {
	o, err := s.repo.FindOrderByCode(ctx, code)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	slog.Info("order created implicitly", "code", code)
	return s.insertOrder(ctx, code)
}

// SetStatus moves the order resolved from code (order code or alias) to status.
func (s *OrderService) SetStatus(ctx context.Context, code, status string) (*model.Order, error) {
	if !model.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	var out *model.Order
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.resolver.ResolveAny(ctx, code)
		if err != nil {
			return err
		}
		o.Status = status
		o.UpdatedAt = s.now()
		if err := s.repo.UpdateOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("order status set", "code", out.Code, "status", status)
	return out, nil
}

// AttachImage records a photo on the order resolved from code, creating the
// order under code when nothing resolves. An empty or unknown status falls
// back to the arrived status.
func (s *OrderService) AttachImage(ctx context.Context, code, imagePath, status string) (*model.Order, error) {
	code = recognition.NormalizeCode(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	var out *model.Order
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.resolver.ResolveAny(ctx, code)
		if errors.Is(err, ErrNotFound) {
			o, err = s.ensureOrder(ctx, code)
		}
		if err != nil {
			return err
		}
		out, err = s.attach(ctx, o, imagePath, status)
		return err
	})
	return out, err
}

func (s *OrderService) attach(ctx context.Context, o *model.Order, imagePath, status string) (*model.Order, error) {
	if !model.IsValidStatus(status) {
		status = model.ArrivedStatus
	}
	o.ImagePath = imagePath
	o.Status = status
	o.UpdatedAt = s.now()
	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	slog.Info("image attached", "code", o.Code, "status", o.Status, "image", imagePath)
	return o, nil
}

// RegisterAlias maps aliasCode onto orderCode, creating the order when absent.
// Registering an existing alias returns the stored mapping unchanged.
func (s *OrderService) RegisterAlias(ctx context.Context, orderCode, aliasCode, carrier string) (*model.OrderAlias, error) {
	orderCode = recognition.NormalizeCode(orderCode)
	aliasCode = recognition.NormalizeCode(aliasCode)
	if orderCode == "" || aliasCode == "" {
		return nil, ErrEmptyCode
	}

	var out *model.OrderAlias
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		// 1. The target order must exist; an alias given as target maps onto its order
		target, err := s.resolver.ResolveAny(ctx, orderCode)
		if errors.Is(err, ErrNotFound) {
			target, err = s.ensureOrder(ctx, orderCode)
		}
		if err != nil {
			return err
		}
		orderCode = target.Code

		// 2. Existing aliases are echoed, never moved
		existing, err := s.repo.FindAliasByCode(ctx, aliasCode)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		// 3. An alias equal to an order code could never be reached
		if _, err := s.repo.FindOrderByCode(ctx, aliasCode); err == nil {
			return ErrAliasShadowsOrder
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		a := &model.OrderAlias{
			OrderCode: orderCode,
			AliasCode: aliasCode,
			Carrier:   strings.TrimSpace(carrier),
			CreatedAt: s.now(),
		}
		if err := s.repo.InsertAlias(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent registration of the same alias.
		return s.existingAlias(ctx, aliasCode)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OrderService) existingAlias(ctx context.Context, aliasCode string) (*model.OrderAlias, error) {
	a, err := s.repo.FindAliasByCode(ctx, aliasCode)
	if err != nil {
		return nil, fmt.Errorf("reload alias %s: %w", aliasCode, err)
	}
	return a, nil
}

// BulkResult reports a bulk status change.
type BulkResult struct {
	UpdatedCount int
	// AffectedCodes lists at most MaxAffectedCodes of the updated codes.
	AffectedCodes []string
}

// BulkSetStatus sets status on every order created between the start of
// startDate and the end of endDate (UTC, both inclusive), except the
// excluded codes.
func (s *OrderService) BulkSetStatus(ctx context.Context, startDate, endDate time.Time, status string, exclude []string) (*BulkResult, error) {
	if !model.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	start := dayStart(startDate)
	end := dayStart(endDate).Add(24*time.Hour - time.Nanosecond)

	skip := make(map[string]struct{}, len(exclude))
	for _, c := range exclude {
		if c = recognition.NormalizeCode(c); c != "" {
			skip[c] = struct{}{}
		}
	}

	res := &BulkResult{AffectedCodes: []string{}}
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		orders, err := s.repo.FindOrdersInRange(ctx, start, end)
		if err != nil {
			return err
		}
		var codes []string
		for _, o := range orders {
			if _, ok := skip[o.Code]; ok {
				continue
			}
			codes = append(codes, o.Code)
		}
		if len(codes) == 0 {
			return nil
		}
		if _, err := s.repo.UpdateStatusForCodes(ctx, codes, status, s.now()); err != nil {
			return err
		}
		res.UpdatedCount = len(codes)
		res.AffectedCodes = codes[:min(len(codes), MaxAffectedCodes)]
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("bulk status update", "status", status, "start", start, "end", end, "updated", res.UpdatedCount)
	return res, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Track resolves a code or alias for the public lookup.
func (s *OrderService) Track(ctx context.Context, code string) (*model.Order, error) {
	return s.resolver.ResolveAny(ctx, code)
}

// Getters
func (s *OrderService) GetAll(ctx context.Context) ([]*model.Order, error) {
	return s.repo.FindAll(ctx)
}

func (s *OrderService) GetByStatus(ctx context.Context, status string) ([]*model.Order, error) {
	if !model.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.repo.FindByStatus(ctx, status)
}

// ListAliases returns the aliases registered for the order resolved from code.
func (s *OrderService) ListAliases(ctx context.Context, code string) ([]*model.OrderAlias, error) {
	o, err := s.resolver.ResolveAny(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.repo.FindAliasesForOrder(ctx, o.Code)
}
