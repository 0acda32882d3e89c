package server

import (
	"github.com/detrash/recy-pipeline/src/evidence"
	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/model"
	"github.com/detrash/recy-pipeline/src/utils/monitoring"
	monitor_api "github.com/detrash/recy-pipeline/src/utils/monitoring/api"
	"github.com/detrash/recy-pipeline/src/utils/queue"
	"github.com/detrash/recy-pipeline/src/utils/storage"
	"github.com/detrash/recy-pipeline/src/utils/task"
)

// Wires the REST API: report and audit services, job producer and monitoring.
type Controller struct {
	*task.Task
}

func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "server")

	// SQL database
	db, err := model.NewConnection(self.Ctx, config, "server")
	if err != nil {
		return
	}

	// Monitoring
	monitor := monitor_api.NewMonitor()
	monitoringServer := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Renders the provisional certificate at submission time
	renderer, err := evidence.NewRenderer(config)
	if err != nil {
		self.Log.WithError(err).Error("Failed to initialize the certificate renderer")
		return
	}

	// Object storage for the rendered artifacts
	store, err := storage.NewS3Store(config)
	if err != nil {
		self.Log.WithError(err).Error("Failed to initialize the artifact store")
		return
	}

	// Sole producer of evidence jobs
	producer := queue.NewProducer(config).
		WithMonitor(monitor)

	reports := NewReportService(config).
		WithDB(db).
		WithStore(store).
		WithRenderer(renderer).
		WithMonitor(monitor)

	audits := NewAuditService(config).
		WithDB(db).
		WithProducer(producer).
		WithMonitor(monitor)

	restServer := NewServer(config).
		WithMonitor(monitor).
		WithReportService(reports).
		WithAuditService(audits)

	// Setup everything, will start upon calling Controller.Start()
	self.Task.
		WithSubtask(monitor.Task).
		WithSubtask(monitoringServer.Task).
		WithSubtask(producer.Task).
		WithSubtask(restServer.Task)
	return
}
