package repository

import (
	"context"
	"errors"
	"time"

	"erpcore/internal/model"
	"erpcore/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestFilter drives the read-side listing. Zero values mean "no filter".
type RequestFilter struct {
	RequesterID *uuid.UUID
	ManagerID   *uuid.UUID // team view: requests whose requester reports to this user
	Kind        workflow.Kind
	Status      workflow.Status
	From        *time.Time
	To          *time.Time
	Page        int
	Limit       int
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error)
	// FindForUpdate locks the request row for the duration of the
	// surrounding transaction, serializing concurrent transitions.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error)
	Update(ctx context.Context, req *model.Request) error
	List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error)
	// HasOverlappingLeave reports whether any pending or approved leave
	// for the requester intersects [start, end], excluding excludeID.
	HasOverlappingLeave(ctx context.Context, requesterID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("DecidedBy").
		Preload("Vendor").
		Preload("Lines").
		Preload("Lines.Product").
		Preload("Attachments").
		First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) Update(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error) {
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.RequesterID != nil {
			q = q.Where("requester_id = ?", *filter.RequesterID)
		}
		if filter.ManagerID != nil {
			q = q.Where("requester_id IN (?)",
				db.Session(&gorm.Session{NewDB: true}).Model(&model.User{}).Select("id").Where("manager_id = ?", *filter.ManagerID))
		}
		if filter.Kind != "" {
			q = q.Where("kind = ?", filter.Kind)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.From != nil {
			q = q.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("created_at <= ?", *filter.To)
		}
		return q
	}

	var total int64
	if err := apply(db.Model(&model.Request{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var requests []model.Request
	err := apply(db.Preload("Requester").Preload("DecidedBy")).
		Order("created_at DESC, id DESC"). // id breaks created_at ties for stable paging
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) HasOverlappingLeave(ctx context.Context, requesterID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	q := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("kind = ?", workflow.KindLeave).
		Where("requester_id = ?", requesterID).
		Where("status IN ?", []workflow.Status{workflow.StatusPending, workflow.StatusApproved}).
		Where("start_date <= ? AND end_date >= ?", end, start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
