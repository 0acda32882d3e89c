package report

import (
	"go.uber.org/atomic"
)

type ApiErrors struct {
	BadRequest atomic.Int64 `json:"bad_request"`
	NotFound   atomic.Int64 `json:"not_found"`
	Internal   atomic.Int64 `json:"internal"`
}

type ApiState struct {
	ReportsCreated  atomic.Uint64 `json:"reports_created"`
	AuditsCreated   atomic.Uint64 `json:"audits_created"`
	AuditsValidated atomic.Uint64 `json:"audits_validated"`
}

type ApiReport struct {
	State  ApiState  `json:"state"`
	Errors ApiErrors `json:"errors"`
}
