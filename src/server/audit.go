package server

import (
	"context"
	"errors"

	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/logger"
	"github.com/detrash/recy-pipeline/src/utils/model"
	"github.com/detrash/recy-pipeline/src/utils/monitoring"
	"github.com/detrash/recy-pipeline/src/utils/queue"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Enqueues evidence jobs, satisfied by queue.Producer
type JobProducer interface {
	Enqueue(ctx context.Context, job *queue.Job) (id string, err error)
}

// Audit lifecycle. Validation is the sole producer of evidence jobs.
type AuditService struct {
	config *config.Config
	log    *logrus.Entry

	db       *gorm.DB
	producer JobProducer
	monitor  monitoring.Monitor
}

func NewAuditService(config *config.Config) (self *AuditService) {
	self = new(AuditService)
	self.config = config
	self.log = logger.NewSublogger("audit-service")
	return
}

func (self *AuditService) WithDB(db *gorm.DB) *AuditService {
	self.db = db
	return self
}

func (self *AuditService) WithProducer(producer JobProducer) *AuditService {
	self.producer = producer
	return self
}

func (self *AuditService) WithMonitor(monitor monitoring.Monitor) *AuditService {
	self.monitor = monitor
	return self
}

// CreateAudit records an audit entry and mirrors the decision onto the report.
// It never enqueues evidence jobs, only validation does.
func (self *AuditService) CreateAudit(ctx context.Context, request *CreateAuditRequest) (audit *model.Audit, err error) {
	audit = &model.Audit{
		ID:       model.NewID(),
		ReportId: request.ReportId,
		Audited:  request.Audited,
		Comments: request.Comments,
	}
	if request.AuditorId != "" {
		audit.AuditorId.String = request.AuditorId
		audit.AuditorId.Valid = true
	}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		var report model.RecyclingReport
		err = tx.First(&report, "id = ?", request.ReportId).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("report %s does not exist", request.ReportId)
		}
		if err != nil {
			return
		}

		err = tx.Create(audit).Error
		if err != nil {
			return
		}

		return tx.Model(&model.RecyclingReport{}).
			Where("id = ?", request.ReportId).
			Update("audited", request.Audited).
			Error
	})
	if err != nil {
		return nil, err
	}

	self.monitor.GetReport().Api.State.AuditsCreated.Inc()
	self.log.WithField("audit_id", audit.ID).WithField("report_id", audit.ReportId).Info("Audit created")
	return
}

func (self *AuditService) GetAudit(ctx context.Context, id string) (audit *model.Audit, err error) {
	audit = new(model.Audit)
	err = self.db.WithContext(ctx).First(audit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("audit %s does not exist", id)
	}
	if err != nil {
		return nil, err
	}
	return
}

// ValidateAudit marks an audit as verified. The first transition from
// unverified to verified enqueues exactly one evidence job, repeating the
// call is a no-op on the queue.
func (self *AuditService) ValidateAudit(ctx context.Context, id string, request *ValidateAuditRequest) (audit *model.Audit, err error) {
	audit = new(model.Audit)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		err = tx.First(audit, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("audit %s does not exist", id)
		}
		if err != nil {
			return
		}

		var report model.RecyclingReport
		err = tx.First(&report, "id = ?", audit.ReportId).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("report %s does not exist", audit.ReportId)
		}
		if err != nil {
			return
		}

		// Transition decided on the value read inside the transaction
		wasAudited := audit.Audited

		audit.Audited = true
		audit.AuditorId.String = request.AuditorId
		audit.AuditorId.Valid = true
		audit.Comments = request.Comments
		err = tx.Save(audit).Error
		if err != nil {
			return
		}

		err = tx.Model(&model.RecyclingReport{}).
			Where("id = ?", audit.ReportId).
			Update("audited", true).
			Error
		if err != nil {
			return
		}

		if wasAudited {
			// Already verified, nothing to enqueue
			return nil
		}

		// Enqueue before commit so a failed enqueue rolls the transition
		// back and the client can retry
		materials, err := report.GetMaterials()
		if err != nil {
			return
		}
		var user model.User
		err = tx.First(&user, "id = ?", report.SubmittedBy).Error
		if err != nil {
			return
		}

		jobId, err := self.producer.Enqueue(ctx, &queue.Job{
			Kind: queue.KindReportEvidence,
			Evidence: &queue.EvidencePayload{
				ReportID: report.ID,
				Report: queue.ReportSnapshot{
					SubmittedBy:   report.SubmittedBy,
					Materials:     materials,
					WalletAddress: report.WalletAddress,
				},
				User: queue.UserSnapshot{
					ID:            user.ID,
					Email:         user.Email,
					WalletAddress: user.WalletAddress,
				},
			},
		})
		if err != nil {
			return err
		}

		self.log.WithField("audit_id", audit.ID).
			WithField("report_id", report.ID).
			WithField("job_id", jobId).
			Info("Evidence job enqueued")
		return nil
	})
	if err != nil {
		return nil, err
	}

	self.monitor.GetReport().Api.State.AuditsValidated.Inc()
	return
}
