package server

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/detrash/recy-pipeline/src/evidence"
	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/model"
	monitor_api "github.com/detrash/recy-pipeline/src/utils/monitoring/api"
	"github.com/detrash/recy-pipeline/src/utils/queue"
	"github.com/detrash/recy-pipeline/src/utils/storage"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"image"
	"image/color"
	"image/png"
	"os"
)

// Records enqueued jobs, stands in for queue.Producer
type fakeProducer struct {
	mtx  sync.Mutex
	jobs []*queue.Job
	fail error
}

func (self *fakeProducer) Enqueue(ctx context.Context, job *queue.Job) (id string, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.fail != nil {
		return "", self.fail
	}
	self.jobs = append(self.jobs, job)
	return "job-1", nil
}

func (self *fakeProducer) count() int {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return len(self.jobs)
}

func writeTestTemplate(t *testing.T) string {
	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for x := 0; x < 1280; x += 1 {
		for y := 0; y < 720; y += 1 {
			img.Set(x, y, color.White)
		}
	}

	path := filepath.Join(t.TempDir(), "template.png")
	file, err := os.Create(path)
	require.Nil(t, err)
	defer file.Close()
	require.Nil(t, png.Encode(file, img))

	return path
}

func TestReportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceTestSuite))
}

type ReportServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	config  *config.Config
	db      *gorm.DB
	store   *storage.MemoryStore
	monitor *monitor_api.Monitor
	reports *ReportService
}

func (s *ReportServiceTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.config = config.Default()
	s.config.Evidence.TemplatePath = writeTestTemplate(s.T())

	var err error
	s.db, err = gorm.Open(sqlite.Open(filepath.Join(s.T().TempDir(), "test.db")), &gorm.Config{})
	require.Nil(s.T(), err)
	require.Nil(s.T(), s.db.AutoMigrate(&model.User{}, &model.RecyclingReport{}, &model.Audit{}))

	renderer, err := evidence.NewRenderer(s.config)
	require.Nil(s.T(), err)

	s.store = storage.NewMemoryStore()
	s.monitor = monitor_api.NewMonitor()

	s.reports = NewReportService(s.config).
		WithDB(s.db).
		WithStore(s.store).
		WithRenderer(renderer).
		WithMonitor(s.monitor)

	require.Nil(s.T(), s.db.Create(&model.User{
		ID:            "user-1",
		Email:         "user@example.com",
		WalletAddress: "0xABC",
	}).Error)
}

func (s *ReportServiceTestSuite) TearDownTest() {
	s.cancel()
}

func (s *ReportServiceTestSuite) createRequest() *CreateReportRequest {
	return &CreateReportRequest{
		SubmittedBy: "user-1",
		Phone:       "+551199234-5678",
		Materials: []MaterialDto{
			{MaterialType: model.MaterialPlastic, WeightKg: 12.5},
			{MaterialType: model.MaterialMetal, WeightKg: 7.3},
			{MaterialType: model.MaterialPlastic, WeightKg: 2.5},
		},
		WalletAddress: "0xABC",
		EvidenceUrl:   "https://example.com/evidence.jpg",
	}
}

func (s *ReportServiceTestSuite) TestCreateReport() {
	report, err := s.reports.CreateReport(s.ctx, s.createRequest())
	require.Nil(s.T(), err)
	require.NotNil(s.T(), report)
	assert.NotEmpty(s.T(), report.ID)
	assert.False(s.T(), report.Audited)

	// Materials stored aggregated
	materials, err := report.GetMaterials()
	require.Nil(s.T(), err)
	assert.Equal(s.T(), []model.Material{
		{Category: model.MaterialPlastic, WeightKg: 15.0},
		{Category: model.MaterialMetal, WeightKg: 7.3},
	}, materials)

	// Provisional certificate uploaded and referenced
	var metadata evidence.Metadata
	require.Nil(s.T(), json.Unmarshal(report.Metadata, &metadata))
	assert.Equal(s.T(), evidence.Attribute{TraitType: "Audit", Value: "Not Verified"}, metadata.Attributes[2])
	imageKey := "images/" + report.ID + ".png"
	assert.Equal(s.T(), s.store.URL(s.config.Storage.PublicBucket, imageKey), metadata.Image)
	_, ok := s.store.Get(s.config.Storage.PublicBucket, imageKey)
	assert.True(s.T(), ok)

	// Placeholder audit created alongside
	var audits []model.Audit
	require.Nil(s.T(), s.db.Where("report_id = ?", report.ID).Find(&audits).Error)
	require.Len(s.T(), audits, 1)
	assert.False(s.T(), audits[0].Audited)
	assert.False(s.T(), audits[0].AuditorId.Valid)

	assert.EqualValues(s.T(), 1, s.monitor.Report.Api.State.ReportsCreated.Load())
}

func (s *ReportServiceTestSuite) TestCreateReportUnknownUser() {
	request := s.createRequest()
	request.SubmittedBy = "no-such-user"

	report, err := s.reports.CreateReport(s.ctx, request)
	assert.Nil(s.T(), report)
	assert.True(s.T(), errors.Is(err, ErrNotFound))
}

func (s *ReportServiceTestSuite) TestCreateReportUnknownCategory() {
	request := s.createRequest()
	request.Materials[0].MaterialType = "unobtainium"

	report, err := s.reports.CreateReport(s.ctx, request)
	assert.Nil(s.T(), report)
	assert.True(s.T(), errors.Is(err, ErrValidation))
}

func (s *ReportServiceTestSuite) TestCreateReportNegativeWeight() {
	request := s.createRequest()
	request.Materials[0].WeightKg = -1

	report, err := s.reports.CreateReport(s.ctx, request)
	assert.Nil(s.T(), report)
	assert.True(s.T(), errors.Is(err, ErrValidation))
}

func (s *ReportServiceTestSuite) TestGetReportNotFound() {
	report, err := s.reports.GetReport(s.ctx, "no-such-report")
	assert.Nil(s.T(), report)
	assert.True(s.T(), errors.Is(err, ErrNotFound))
}

func (s *ReportServiceTestSuite) TestListReportsByUser() {
	first, err := s.reports.CreateReport(s.ctx, s.createRequest())
	require.Nil(s.T(), err)
	second, err := s.reports.CreateReport(s.ctx, s.createRequest())
	require.Nil(s.T(), err)

	reports, err := s.reports.ListReportsByUser(s.ctx, "user-1")
	require.Nil(s.T(), err)
	require.Len(s.T(), reports, 2)

	// ULIDs sort in creation order
	assert.Equal(s.T(), first.ID, reports[0].ID)
	assert.Equal(s.T(), second.ID, reports[1].ID)
}

func (s *ReportServiceTestSuite) TestCreateReportUploadsEvidencePhoto() {
	request := s.createRequest()
	request.EvidenceUrl = ""
	request.EvidenceFile = []byte("proof photo bytes")

	report, err := s.reports.CreateReport(s.ctx, request)
	require.Nil(s.T(), err)

	key := report.ID + ".png"
	require.Equal(s.T(), s.store.URL(s.config.Storage.PrivateBucket, key), report.EvidenceUrl)

	data, ok := s.store.Get(s.config.Storage.PrivateBucket, key)
	require.True(s.T(), ok)
	assert.Equal(s.T(), []byte("proof photo bytes"), data)
	assert.Equal(s.T(), "image/png", s.store.ContentType(s.config.Storage.PrivateBucket, key))
}

func (s *ReportServiceTestSuite) TestCreateReportPrefersHostedEvidenceUrl() {
	request := s.createRequest()
	request.EvidenceFile = []byte("proof photo bytes")

	report, err := s.reports.CreateReport(s.ctx, request)
	require.Nil(s.T(), err)

	assert.Equal(s.T(), "https://example.com/evidence.jpg", report.EvidenceUrl)
	_, ok := s.store.Get(s.config.Storage.PrivateBucket, report.ID+".png")
	assert.False(s.T(), ok)
}
