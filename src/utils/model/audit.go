package model

import (
	"database/sql"
	"time"
)

type Audit struct {
	ID       string `gorm:"primaryKey"`
	ReportId string `gorm:"index;not null"`

	Audited bool `gorm:"not null;default:false"`

	// Null until an auditor picks the report up
	AuditorId sql.NullString

	Comments string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Audit) TableName() string {
	return TableAudits
}
