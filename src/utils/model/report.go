package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type RecyclingReport struct {
	ID          string `gorm:"primaryKey"`
	SubmittedBy string `gorm:"index;not null"`
	ReportDate  time.Time
	Phone       string

	// Aggregated (category, totalKg) summary of the submitted line items
	Materials datatypes.JSON

	WalletAddress string

	// URL of the uploaded proof photo
	EvidenceUrl string

	// Mirrors the audit decision, set by the audit flow only
	Audited bool `gorm:"not null;default:false"`

	// Certificate document, replaced wholesale by the evidence worker
	Metadata datatypes.JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RecyclingReport) TableName() string {
	return TableRecyclingReports
}

func (self *RecyclingReport) SetMaterials(materials []Material) (err error) {
	data, err := json.Marshal(materials)
	if err != nil {
		return
	}
	self.Materials = datatypes.JSON(data)
	return
}

func (self *RecyclingReport) GetMaterials() (materials []Material, err error) {
	if len(self.Materials) == 0 {
		return
	}
	err = json.Unmarshal(self.Materials, &materials)
	return
}
