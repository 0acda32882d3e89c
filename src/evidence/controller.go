package evidence

import (
	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/model"
	"github.com/detrash/recy-pipeline/src/utils/monitoring"
	monitor_evidence "github.com/detrash/recy-pipeline/src/utils/monitoring/evidence"
	"github.com/detrash/recy-pipeline/src/utils/publisher"
	"github.com/detrash/recy-pipeline/src/utils/queue"
	"github.com/detrash/recy-pipeline/src/utils/storage"
	"github.com/detrash/recy-pipeline/src/utils/task"
)

// Wires the evidence worker: queue consumer, certificate renderer,
// artifact store, event publisher and monitoring.
type Controller struct {
	*task.Task
}

func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "evidence")

	// SQL database
	db, err := model.NewConnection(self.Ctx, config, "evidence")
	if err != nil {
		return
	}

	// Monitoring
	monitor := monitor_evidence.NewMonitor()
	server := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Certificate renderer, template missing is a deployment error
	renderer, err := NewRenderer(config)
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

	// Handles claimed jobs
	worker := NewWorker(config).
		WithDB(db).
		WithStore(store).
		WithRenderer(renderer).
		WithMonitor(monitor)

	// Job lifecycle events, shared between consumer incarnations so the
	// publisher survives a watchdog restart
	eventsChannel := make(chan *queue.JobEvent, 100)

	// Forwards job lifecycle events to the pub/sub channel
	events := publisher.NewRedisPublisher[*queue.JobEvent](config, "event-publisher").
		WithChannelName(config.Queue.EventsChannel).
		WithMonitor(monitor).
		WithInputChannel(eventsChannel)

	// Claims jobs from the wait queue, restarted when the poll loop gets stuck
	watchdog := task.NewWatchdog(config).
		WithTask(func() *task.Task {
			consumer := queue.NewConsumer(config).
				WithMonitor(monitor).
				WithHandler(queue.KindReportEvidence, worker.Handle).
				WithEventsChannel(eventsChannel)
			return consumer.Task
		}).
		WithIsOK(config.Queue.VisibilityTimeout, func() bool {
			isOK := monitor.IsOK()
			if !isOK {
				monitor.GetReport().Run.State.NumWatchdogRestarts.Inc()
			}
			return isOK
		})

	// Setup everything, will start upon calling Controller.Start()
	self.Task.
		WithSubtask(monitor.Task).
		WithSubtask(server.Task).
		WithSubtask(events.Task).
		WithSubtask(watchdog.Task).
		WithOnStop(func() {
			// Consumer is stopped by now, safe to end the event stream
			close(eventsChannel)
		})
	return
}
