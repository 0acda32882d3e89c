package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/detrash/recy-pipeline/src/evidence"
	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/logger"
	"github.com/detrash/recy-pipeline/src/utils/model"
	"github.com/detrash/recy-pipeline/src/utils/monitoring"
	"github.com/detrash/recy-pipeline/src/utils/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report submission and retrieval.
// Submission renders a provisional certificate right away, the verified one
// replaces it once an auditor validates the report.
type ReportService struct {
	config *config.Config
	log    *logrus.Entry

	db       *gorm.DB
	store    storage.ArtifactStore
	renderer *evidence.Renderer
	monitor  monitoring.Monitor
}

func NewReportService(config *config.Config) (self *ReportService) {
	self = new(ReportService)
	self.config = config
	self.log = logger.NewSublogger("report-service")
	return
}

func (self *ReportService) WithDB(db *gorm.DB) *ReportService {
	self.db = db
	return self
}

func (self *ReportService) WithStore(store storage.ArtifactStore) *ReportService {
	self.store = store
	return self
}

func (self *ReportService) WithRenderer(renderer *evidence.Renderer) *ReportService {
	self.renderer = renderer
	return self
}

func (self *ReportService) WithMonitor(monitor monitoring.Monitor) *ReportService {
	self.monitor = monitor
	return self
}

func validateMaterials(materials []model.Material) (err error) {
	for _, material := range materials {
		if !material.Category.IsValid() {
			return invalid("unknown material category: %s", material.Category)
		}
		if material.WeightKg <= 0 || math.IsNaN(material.WeightKg) || math.IsInf(material.WeightKg, 0) {
			return invalid("weight of %s must be a finite positive number", material.Category)
		}
	}
	return
}

func (self *ReportService) CreateReport(ctx context.Context, request *CreateReportRequest) (report *model.RecyclingReport, err error) {
	materials := request.materials()
	err = validateMaterials(materials)
	if err != nil {
		return
	}

	var user model.User
	err = self.db.WithContext(ctx).First(&user, "id = ?", request.SubmittedBy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user %s does not exist", request.SubmittedBy)
	}
	if err != nil {
		return
	}

	reportId := model.NewID()

	// An attached proof photo goes to the private bucket, a hosted one wins
	evidenceUrl := request.EvidenceUrl
	if evidenceUrl == "" && len(request.EvidenceFile) > 0 {
		evidenceUrl, err = self.store.Put(ctx, self.config.Storage.PrivateBucket, fmt.Sprintf("%s.png", reportId), "image/png", request.EvidenceFile)
		if err != nil {
			return nil, fmt.Errorf("failed to upload evidence photo: %w", err)
		}
	}

	totals := evidence.AggregateMaterials(materials)

	// Provisional certificate, replaced by the evidence worker after validation
	metadata := evidence.BuildMetadata(user.Email, user.WalletAddress, evidence.AuditNotVerified, totals)

	data, err := evidence.EncodePNG(self.renderer.Render(metadata, reportId, user.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}

	imageKey := fmt.Sprintf("images/%s.png", reportId)
	metadata.Image, err = self.store.Put(ctx, self.config.Storage.PublicBucket, imageKey, "image/png", data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload certificate image: %w", err)
	}

	document, err := json.Marshal(metadata)
	if err != nil {
		return
	}

	report = &model.RecyclingReport{
		ID:            reportId,
		SubmittedBy:   user.ID,
		ReportDate:    request.ReportDate,
		Phone:         request.Phone,
		WalletAddress: request.WalletAddress,
		EvidenceUrl:   evidenceUrl,
		Audited:       false,
		Metadata:      datatypes.JSON(document),
	}
	err = report.SetMaterials(totals)
	if err != nil {
		return nil, err
	}

	// Report and its placeholder audit land together
	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		err = tx.Create(report).Error
		if err != nil {
			return
		}
		return tx.Create(&model.Audit{
			ID:       model.NewID(),
			ReportId: reportId,
			Audited:  false,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	self.monitor.GetReport().Api.State.ReportsCreated.Inc()
	self.log.WithField("report_id", reportId).Info("Report created")
	return
}

func (self *ReportService) GetReport(ctx context.Context, id string) (report *model.RecyclingReport, err error) {
	report = new(model.RecyclingReport)
	err = self.db.WithContext(ctx).First(report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("report %s does not exist", id)
	}
	if err != nil {
		return nil, err
	}
	return
}

func (self *ReportService) ListReportsByUser(ctx context.Context, userId string) (reports []model.RecyclingReport, err error) {
	var user model.User
	err = self.db.WithContext(ctx).First(&user, "id = ?", userId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user %s does not exist", userId)
	}
	if err != nil {
		return
	}

	err = self.db.WithContext(ctx).
		Where("submitted_by = ?", userId).
		Order("id").
		Find(&reports).
		Error
	return
}
