package repository

import (
	"context"
	"errors"
	"time"

	"erpcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttendanceRepository interface {
	Upsert(ctx context.Context, entry *model.AttendanceEntry) error
	FindByEmployeeAndDate(ctx context.Context, employeeID uuid.UUID, workDate time.Time) (*model.AttendanceEntry, error)
	ListForEmployee(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]model.AttendanceEntry, error)
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
	CreateHoliday(ctx context.Context, holiday *model.Holiday) error
	ListHolidays(ctx context.Context, year int) ([]model.Holiday, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Upsert(ctx context.Context, entry *model.AttendanceEntry) error {
	db := GetDB(ctx, r.db)

	var existing model.AttendanceEntry
	err := db.Where("employee_id = ? AND work_date = ?", entry.EmployeeID, entry.WorkDate).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(entry).Error
	}
	if err != nil {
		return err
	}

	existing.ClockIn = entry.ClockIn
	existing.ClockOut = entry.ClockOut
	*entry = existing
	return db.Save(&existing).Error
}

func (r *attendanceRepository) FindByEmployeeAndDate(ctx context.Context, employeeID uuid.UUID, workDate time.Time) (*model.AttendanceEntry, error) {
	var entry model.AttendanceEntry
	err := GetDB(ctx, r.db).
		Where("employee_id = ? AND work_date = ?", employeeID, workDate).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *attendanceRepository) ListForEmployee(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]model.AttendanceEntry, error) {
	var entries []model.AttendanceEntry
	err := GetDB(ctx, r.db).
		Where("employee_id = ? AND work_date >= ? AND work_date <= ?", employeeID, from, to).
		Order("work_date asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *attendanceRepository) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Holiday{}).
		Where("date = ?", date).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *attendanceRepository) CreateHoliday(ctx context.Context, holiday *model.Holiday) error {
	return GetDB(ctx, r.db).Create(holiday).Error
}

func (r *attendanceRepository) ListHolidays(ctx context.Context, year int) ([]model.Holiday, error) {
	var holidays []model.Holiday
	q := GetDB(ctx, r.db)
	if year > 0 {
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		q = q.Where("date >= ? AND date < ?", start, start.AddDate(1, 0, 0))
	}
	if err := q.Order("date asc").Find(&holidays).Error; err != nil {
		return nil, err
	}
	return holidays, nil
}
