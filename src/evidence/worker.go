package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/logger"
	"github.com/detrash/recy-pipeline/src/utils/model"
	"github.com/detrash/recy-pipeline/src/utils/monitoring"
	"github.com/detrash/recy-pipeline/src/utils/queue"
	"github.com/detrash/recy-pipeline/src/utils/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Handles evidence jobs: renders the certificate, uploads both artifacts
// and persists the final document on the report.
// Handle is idempotent, a redelivered job overwrites the same keys.
type Worker struct {
	config *config.Config
	log    *logrus.Entry

	db       *gorm.DB
	store    storage.ArtifactStore
	renderer *Renderer
	monitor  monitoring.Monitor
}

func NewWorker(config *config.Config) (self *Worker) {
	self = new(Worker)
	self.config = config
	self.log = logger.NewSublogger("evidence-worker")
	return
}

func (self *Worker) WithDB(db *gorm.DB) *Worker {
	self.db = db
	return self
}

func (self *Worker) WithStore(store storage.ArtifactStore) *Worker {
	self.store = store
	return self
}

func (self *Worker) WithRenderer(renderer *Renderer) *Worker {
	self.renderer = renderer
	return self
}

func (self *Worker) WithMonitor(monitor monitoring.Monitor) *Worker {
	self.monitor = monitor
	return self
}

func (self *Worker) Handle(ctx context.Context, job *queue.Job) (err error) {
	self.monitor.GetReport().Evidence.State.JobsProcessed.Inc()

	reportId := job.Evidence.ReportID
	log := self.log.WithField("report_id", reportId)

	// The snapshot in the payload is context only, canonical state
	// is re-read so a stale job can't resurrect old data
	var report model.RecyclingReport
	err = self.db.WithContext(ctx).First(&report, "id = ?", reportId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		self.monitor.GetReport().Evidence.Errors.ReportNotFound.Inc()
		return queue.Permanent(fmt.Errorf("report %s does not exist", reportId))
	}
	if err != nil {
		return err
	}

	var user model.User
	err = self.db.WithContext(ctx).First(&user, "id = ?", report.SubmittedBy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		self.monitor.GetReport().Evidence.Errors.UserNotFound.Inc()
		return queue.Permanent(fmt.Errorf("user %s does not exist", report.SubmittedBy))
	}
	if err != nil {
		return err
	}

	materials, err := report.GetMaterials()
	if err != nil {
		return queue.Permanent(fmt.Errorf("report %s has malformed materials: %w", reportId, err))
	}

	totals := AggregateMaterials(materials)
	metadata := BuildMetadata(user.Email, user.WalletAddress, AuditVerified, totals)

	data, err := EncodePNG(self.renderer.Render(metadata, report.ID, user.Email))
	if err != nil {
		self.monitor.GetReport().Evidence.Errors.Render.Inc()
		return fmt.Errorf("failed to render certificate: %w", err)
	}
	self.monitor.GetReport().Evidence.State.CertificatesRendered.Inc()

	// The image URL is deterministic, so the document can embed it
	// before either upload finished and both can run concurrently
	bucket := self.config.Storage.PublicBucket
	imageKey := fmt.Sprintf("images/%s.png", report.ID)
	metadataKey := fmt.Sprintf("metadata/%s.json", report.ID)
	metadata.Image = self.store.URL(bucket, imageKey)

	document, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		_, err = self.store.Put(groupCtx, bucket, imageKey, "image/png", data)
		return
	})
	group.Go(func() (err error) {
		_, err = self.store.Put(groupCtx, bucket, metadataKey, "application/json", document)
		return
	})
	err = group.Wait()
	if err != nil {
		self.monitor.GetReport().Evidence.Errors.Upload.Inc()
		return fmt.Errorf("failed to upload certificate artifacts: %w", err)
	}
	self.monitor.GetReport().Evidence.State.ArtifactsUploaded.Add(2)

	err = self.db.WithContext(ctx).
		Model(&model.RecyclingReport{}).
		Where("id = ?", report.ID).
		Update("metadata", datatypes.JSON(document)).
		Error
	if err != nil {
		self.monitor.GetReport().Evidence.Errors.Persist.Inc()
		return fmt.Errorf("failed to persist certificate metadata: %w", err)
	}
	self.monitor.GetReport().Evidence.State.ReportsPersisted.Inc()

	log.WithField("image", metadata.Image).Info("Certificate generated")
	return nil
}
