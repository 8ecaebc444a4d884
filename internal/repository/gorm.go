package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"order-tracking-service/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type txKey struct{}

// GormOrderRepository is the SQL store, used with Postgres in production and
// SQLite for single-box deployments and tests.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger: logger.New(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// OpenPostgres retries while the database container is still starting.
func OpenPostgres(dsn string, attempts int) (*gorm.DB, error) {
	var lastErr error
	for i := range attempts {
		db, err := gorm.Open(postgres.Open(dsn), gormConfig())
		if err == nil {
			slog.Info("connected to postgres", "attempt", i+1)
			return db, nil
		}
		lastErr = err
		slog.Warn("postgres connection failed", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to postgres: %w", lastErr)
}

func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer; serialize through one connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func (r *GormOrderRepository) Migrate() error {
	return r.db.AutoMigrate(&model.Order{}, &model.OrderAlias{})
}

// conn returns the transaction carried by ctx, or the base handle.
func (r *GormOrderRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// WithTransaction runs fn in a database transaction carried through ctx.
// Calls nested in an open transaction join it.
func (r *GormOrderRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (r *GormOrderRepository) FindOrderByCode(ctx context.Context, code string) (*model.Order, error) {
	var o model.Order
	if err := r.conn(ctx).Where("code = ?", code).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormOrderRepository) FindAliasByCode(ctx context.Context, aliasCode string) (*model.OrderAlias, error) {
	var a model.OrderAlias
	if err := r.conn(ctx).Where("alias_code = ?", aliasCode).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *GormOrderRepository) InsertOrder(ctx context.Context, o *model.Order) error {
	stamp(o)
	return translate(r.conn(ctx).Create(o).Error)
}

func (r *GormOrderRepository) InsertAlias(ctx context.Context, a *model.OrderAlias) error {
	return translate(r.conn(ctx).Create(a).Error)
}

func (r *GormOrderRepository) UpdateOrder(ctx context.Context, o *model.Order) error {
	res := r.conn(ctx).Model(&model.Order{}).
		Where("code = ?", o.Code).
		Updates(map[string]interface{}{
			"status":     o.Status,
			"image_path": o.ImagePath,
			"updated_at": o.UpdatedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormOrderRepository) FindOrdersInRange(ctx context.Context, start, end time.Time) ([]*model.Order, error) {
	var out []*model.Order
	err := r.conn(ctx).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, translate(err)
}

func (r *GormOrderRepository) UpdateStatusForCodes(ctx context.Context, codes []string, status string, at time.Time) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	res := r.conn(ctx).Model(&model.Order{}).
		Where("code IN ?", codes).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		})
	return res.RowsAffected, translate(res.Error)
}

func (r *GormOrderRepository) FindAll(ctx context.Context) ([]*model.Order, error) {
	var out []*model.Order
	err := r.conn(ctx).Order("created_at DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (r *GormOrderRepository) FindByStatus(ctx context.Context, status string) ([]*model.Order, error) {
	var out []*model.Order
	err := r.conn(ctx).Where("status = ?", status).Order("created_at DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (r *GormOrderRepository) FindAliasesForOrder(ctx context.Context, orderCode string) ([]*model.OrderAlias, error) {
	var out []*model.OrderAlias
	err := r.conn(ctx).Where("order_code = ?", orderCode).Order("id ASC").Find(&out).Error
	return out, translate(err)
}
