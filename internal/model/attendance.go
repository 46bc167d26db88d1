package model

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceEntry records one worked day for an employee. Comp-off claims
// are validated against these rows; approved regularizations overwrite the
// clock times.
type AttendanceEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EmployeeID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_day" json:"employee_id"`
	WorkDate   time.Time  `gorm:"type:date;not null;uniqueIndex:idx_attendance_day" json:"work_date"`
	ClockIn    *time.Time `json:"clock_in"`
	ClockOut   *time.Time `json:"clock_out"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Holiday is one entry in the company holiday calendar.
type Holiday struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Date      time.Time `gorm:"type:date;uniqueIndex;not null" json:"date"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
