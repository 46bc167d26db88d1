package repository

import (
	"context"
	"fmt"
	"time"

	"erpcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	UpdateProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, page, limit int) ([]model.Product, int64, error)

	CreateLines(ctx context.Context, lines []model.PurchaseOrderLine) error
	// FindLinesForUpdate locks all lines of a purchase order while a
	// receipt is applied.
	FindLinesForUpdate(ctx context.Context, requestID uuid.UUID) ([]model.PurchaseOrderLine, error)
	FindLines(ctx context.Context, requestID uuid.UUID) ([]model.PurchaseOrderLine, error)
	UpdateLine(ctx context.Context, line *model.PurchaseOrderLine) error
	ReplaceLines(ctx context.Context, requestID uuid.UUID, lines []model.PurchaseOrderLine) error

	RecordInventoryTx(ctx context.Context, tx *model.InventoryTransaction) error
	// NextPONumber generates a per-day sequential purchase order number
	// under a Postgres advisory lock to avoid duplicates.
	NextPONumber(ctx context.Context, now time.Time) (string, error)
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) CreateProduct(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *purchaseRepository) FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *purchaseRepository) FindProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *purchaseRepository) UpdateProduct(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *purchaseRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *purchaseRepository) ListProducts(ctx context.Context, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Product{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *purchaseRepository) CreateLines(ctx context.Context, lines []model.PurchaseOrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&lines).Error
}

func (r *purchaseRepository) FindLinesForUpdate(ctx context.Context, requestID uuid.UUID) ([]model.PurchaseOrderLine, error) {
	var lines []model.PurchaseOrderLine
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", requestID).
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *purchaseRepository) FindLines(ctx context.Context, requestID uuid.UUID) ([]model.PurchaseOrderLine, error) {
	var lines []model.PurchaseOrderLine
	if err := GetDB(ctx, r.db).Preload("Product").Where("request_id = ?", requestID).Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *purchaseRepository) UpdateLine(ctx context.Context, line *model.PurchaseOrderLine) error {
	return GetDB(ctx, r.db).Save(line).Error
}

func (r *purchaseRepository) ReplaceLines(ctx context.Context, requestID uuid.UUID, lines []model.PurchaseOrderLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("request_id = ?", requestID).Delete(&model.PurchaseOrderLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

func (r *purchaseRepository) RecordInventoryTx(ctx context.Context, tx *model.InventoryTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *purchaseRepository) NextPONumber(ctx context.Context, now time.Time) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "PO-" + now.UTC().Format("20060102") + "-"

	// Advisory lock prevents concurrent duplicate numbers within the day.
	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Request{}).
		Where("po_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
