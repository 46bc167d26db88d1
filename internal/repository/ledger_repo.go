package repository

import (
	"context"

	"erpcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository interface {
	// Find returns the ledger row for a key, or nil when none exists yet.
	// Absent rows are treated as an all-zero balance by callers.
	Find(ctx context.Context, subjectID uuid.UUID, resourceType string, period int) (*model.BalanceLedger, error)
	// FindOrCreateForUpdate lazily creates the row on first reference and
	// locks it. Ledger mutations for the same key serialize on this lock.
	FindOrCreateForUpdate(ctx context.Context, subjectID uuid.UUID, resourceType string, period int) (*model.BalanceLedger, error)
	Update(ctx context.Context, ledger *model.BalanceLedger) error
	ListForSubject(ctx context.Context, subjectID uuid.UUID, period int) ([]model.BalanceLedger, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Find(ctx context.Context, subjectID uuid.UUID, resourceType string, period int) (*model.BalanceLedger, error) {
	var ledger model.BalanceLedger
	err := GetDB(ctx, r.db).
		Where("subject_id = ? AND resource_type = ? AND period = ?", subjectID, resourceType, period).
		First(&ledger).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *ledgerRepository) FindOrCreateForUpdate(ctx context.Context, subjectID uuid.UUID, resourceType string, period int) (*model.BalanceLedger, error) {
	db := GetDB(ctx, r.db)

	// Ensure the row exists before locking it; the unique key makes the
	// create a no-op race loser at worst.
	seed := model.BalanceLedger{SubjectID: subjectID, ResourceType: resourceType, Period: period}
	if err := db.Where("subject_id = ? AND resource_type = ? AND period = ?", subjectID, resourceType, period).
		FirstOrCreate(&seed).Error; err != nil {
		return nil, err
	}

	var ledger model.BalanceLedger
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("subject_id = ? AND resource_type = ? AND period = ?", subjectID, resourceType, period).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *ledgerRepository) Update(ctx context.Context, ledger *model.BalanceLedger) error {
	return GetDB(ctx, r.db).Save(ledger).Error
}

func (r *ledgerRepository) ListForSubject(ctx context.Context, subjectID uuid.UUID, period int) ([]model.BalanceLedger, error) {
	var ledgers []model.BalanceLedger
	q := GetDB(ctx, r.db).Where("subject_id = ?", subjectID)
	if period > 0 {
		q = q.Where("period = ?", period)
	}
	if err := q.Order("resource_type asc").Find(&ledgers).Error; err != nil {
		return nil, err
	}
	return ledgers, nil
}
