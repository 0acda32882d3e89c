package server

import (
	"time"

	"github.com/detrash/recy-pipeline/src/utils/model"
)

type MaterialDto struct {
	MaterialType model.MaterialCategory `json:"materialType" binding:"required"`
	WeightKg     float64                `json:"weightKg" binding:"required,gt=0"`
}

type CreateReportRequest struct {
	SubmittedBy   string        `json:"submittedBy" binding:"required"`
	ReportDate    time.Time     `json:"reportDate"`
	Phone         string        `json:"phone"`
	Materials     []MaterialDto `json:"materials" binding:"required,min=1,dive"`
	WalletAddress string        `json:"walletAddress"`

	// Proof photo, either already hosted or attached base64-encoded
	EvidenceUrl  string `json:"evidenceUrl"`
	EvidenceFile []byte `json:"evidenceFile"`
}

type CreateAuditRequest struct {
	ReportId  string `json:"reportId" binding:"required"`
	Audited   bool   `json:"audited"`
	AuditorId string `json:"auditorId"`
	Comments  string `json:"comments"`
}

type ValidateAuditRequest struct {
	AuditorId string `json:"auditorId" binding:"required"`
	Comments  string `json:"comments"`
}

func (self *CreateReportRequest) materials() (materials []model.Material) {
	for _, dto := range self.Materials {
		materials = append(materials, model.Material{
			Category: dto.MaterialType,
			WeightKg: dto.WeightKg,
		})
	}
	return
}
