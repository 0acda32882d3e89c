package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/detrash/recy-pipeline/src/utils/model"
)

// Job kind discriminant. One handler per kind, dispatch must be exhaustive.
type Kind string

const (
	KindReportEvidence Kind = "generate-report-evidence"
)

// Denormalized copy of the report taken at enqueue time.
// Used for routing and dead-letter context only, the worker re-fetches
// canonical state by id before acting.
type ReportSnapshot struct {
	SubmittedBy   string           `json:"submittedBy"`
	Materials     []model.Material `json:"materials"`
	WalletAddress string           `json:"walletAddress,omitempty"`
}

type UserSnapshot struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

type EvidencePayload struct {
	ReportID string         `json:"reportId"`
	Report   ReportSnapshot `json:"report"`
	User     UserSnapshot   `json:"user"`
}

// A unit of queued work. Exactly one payload field is set, selected by Kind.
type Job struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	Evidence *EvidencePayload `json:"evidence,omitempty"`

	// Delivery metadata owned by the queue
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	LastError  string    `json:"last_error,omitempty"`
}

func (self *Job) MarshalBinary() (data []byte, err error) {
	return json.Marshal(self)
}

func (self *Job) UnmarshalBinary(data []byte) (err error) {
	return json.Unmarshal(data, self)
}

// ReportID returns the id of the report the job concerns, used in events and logs
func (self *Job) ReportID() string {
	switch self.Kind {
	case KindReportEvidence:
		if self.Evidence != nil {
			return self.Evidence.ReportID
		}
	}
	return ""
}

func (self *Job) Validate() (err error) {
	switch self.Kind {
	case KindReportEvidence:
		if self.Evidence == nil || self.Evidence.ReportID == "" {
			return errors.New("evidence payload missing")
		}
	default:
		return fmt.Errorf("unknown job kind: %s", self.Kind)
	}
	return
}

// Terminal error, the job goes straight to the dead letter list, no retries
type PermanentError struct {
	Err error
}

func (self *PermanentError) Error() string {
	return self.Err.Error()
}

func (self *PermanentError) Unwrap() error {
	return self.Err
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}
