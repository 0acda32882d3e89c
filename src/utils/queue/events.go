package queue

import (
	"encoding/json"
	"time"
)

type EventName string

const (
	EventActive    EventName = "active"
	EventCompleted EventName = "completed"
	EventFailed    EventName = "failed"
)

// Job lifecycle notification published on the events channel
type JobEvent struct {
	Event     EventName `json:"event"`
	JobID     string    `json:"jobId"`
	Kind      Kind      `json:"kind"`
	ReportID  string    `json:"reportId,omitempty"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

func (self *JobEvent) MarshalBinary() (data []byte, err error) {
	return json.Marshal(self)
}

func newJobEvent(name EventName, job *Job, jobErr error) *JobEvent {
	event := &JobEvent{
		Event:     name,
		JobID:     job.ID,
		Kind:      job.Kind,
		ReportID:  job.ReportID(),
		Attempts:  job.Attempts,
		Timestamp: time.Now().Unix(),
	}
	if jobErr != nil {
		event.Error = jobErr.Error()
	}
	return event
}
