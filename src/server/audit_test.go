package server

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/model"
	monitor_api "github.com/detrash/recy-pipeline/src/utils/monitoring/api"
	"github.com/detrash/recy-pipeline/src/utils/queue"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestAuditServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuditServiceTestSuite))
}

type AuditServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	config   *config.Config
	db       *gorm.DB
	producer *fakeProducer
	monitor  *monitor_api.Monitor
	audits   *AuditService
}

func (s *AuditServiceTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.config = config.Default()

	var err error
	s.db, err = gorm.Open(sqlite.Open(filepath.Join(s.T().TempDir(), "test.db")), &gorm.Config{})
	require.Nil(s.T(), err)
	require.Nil(s.T(), s.db.AutoMigrate(&model.User{}, &model.RecyclingReport{}, &model.Audit{}))

	s.producer = new(fakeProducer)
	s.monitor = monitor_api.NewMonitor()

	s.audits = NewAuditService(s.config).
		WithDB(s.db).
		WithProducer(s.producer).
		WithMonitor(s.monitor)

	require.Nil(s.T(), s.db.Create(&model.User{
		ID:    "user-1",
		Email: "user@example.com",
	}).Error)

	report := model.RecyclingReport{
		ID:          "report-1",
		SubmittedBy: "user-1",
	}
	require.Nil(s.T(), report.SetMaterials([]model.Material{
		{Category: model.MaterialPlastic, WeightKg: 15},
	}))
	require.Nil(s.T(), s.db.Create(&report).Error)
}

func (s *AuditServiceTestSuite) TearDownTest() {
	s.cancel()
}

func (s *AuditServiceTestSuite) createAudit() *model.Audit {
	audit, err := s.audits.CreateAudit(s.ctx, &CreateAuditRequest{
		ReportId: "report-1",
	})
	require.Nil(s.T(), err)
	return audit
}

func (s *AuditServiceTestSuite) TestCreateAuditMirrorsDecision() {
	audit, err := s.audits.CreateAudit(s.ctx, &CreateAuditRequest{
		ReportId:  "report-1",
		Audited:   true,
		AuditorId: "auditor-1",
		Comments:  "all good",
	})
	require.Nil(s.T(), err)
	assert.True(s.T(), audit.Audited)
	assert.Equal(s.T(), "auditor-1", audit.AuditorId.String)

	var report model.RecyclingReport
	require.Nil(s.T(), s.db.First(&report, "id = ?", "report-1").Error)
	assert.True(s.T(), report.Audited)

	// Audit creation never enqueues
	assert.Equal(s.T(), 0, s.producer.count())
}

func (s *AuditServiceTestSuite) TestCreateAuditUnknownReport() {
	audit, err := s.audits.CreateAudit(s.ctx, &CreateAuditRequest{
		ReportId: "no-such-report",
	})
	assert.Nil(s.T(), audit)
	assert.True(s.T(), errors.Is(err, ErrNotFound))
}

func (s *AuditServiceTestSuite) TestValidateAuditEnqueuesOnce() {
	audit := s.createAudit()

	validated, err := s.audits.ValidateAudit(s.ctx, audit.ID, &ValidateAuditRequest{
		AuditorId: "auditor-1",
		Comments:  "Audit completed successfully.",
	})
	require.Nil(s.T(), err)
	assert.True(s.T(), validated.Audited)
	assert.Equal(s.T(), "auditor-1", validated.AuditorId.String)

	var report model.RecyclingReport
	require.Nil(s.T(), s.db.First(&report, "id = ?", "report-1").Error)
	assert.True(s.T(), report.Audited)

	require.Equal(s.T(), 1, s.producer.count())
	job := s.producer.jobs[0]
	assert.Equal(s.T(), queue.KindReportEvidence, job.Kind)
	assert.Equal(s.T(), "report-1", job.Evidence.ReportID)
	assert.Equal(s.T(), "user@example.com", job.Evidence.User.Email)
}

func (s *AuditServiceTestSuite) TestRepeatedValidationDoesNotReEnqueue() {
	audit := s.createAudit()

	_, err := s.audits.ValidateAudit(s.ctx, audit.ID, &ValidateAuditRequest{AuditorId: "auditor-1"})
	require.Nil(s.T(), err)
	_, err = s.audits.ValidateAudit(s.ctx, audit.ID, &ValidateAuditRequest{AuditorId: "auditor-2"})
	require.Nil(s.T(), err)

	assert.Equal(s.T(), 1, s.producer.count())
	assert.EqualValues(s.T(), 2, s.monitor.Report.Api.State.AuditsValidated.Load())
}

func (s *AuditServiceTestSuite) TestValidateAuditUnknownAudit() {
	audit, err := s.audits.ValidateAudit(s.ctx, "no-such-audit", &ValidateAuditRequest{AuditorId: "auditor-1"})
	assert.Nil(s.T(), audit)
	assert.True(s.T(), errors.Is(err, ErrNotFound))
}

func (s *AuditServiceTestSuite) TestFailedEnqueueRollsBack() {
	audit := s.createAudit()
	s.producer.fail = errors.New("redis is down")

	validated, err := s.audits.ValidateAudit(s.ctx, audit.ID, &ValidateAuditRequest{AuditorId: "auditor-1"})
	assert.Nil(s.T(), validated)
	assert.NotNil(s.T(), err)

	// Transition rolled back, a retry enqueues again
	var stored model.Audit
	require.Nil(s.T(), s.db.First(&stored, "id = ?", audit.ID).Error)
	assert.False(s.T(), stored.Audited)

	s.producer.fail = nil
	_, err = s.audits.ValidateAudit(s.ctx, audit.ID, &ValidateAuditRequest{AuditorId: "auditor-1"})
	require.Nil(s.T(), err)
	assert.Equal(s.T(), 1, s.producer.count())
}
