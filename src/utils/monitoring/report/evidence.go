package report

import (
	"go.uber.org/atomic"
)

type EvidenceErrors struct {
	ReportNotFound atomic.Int64 `json:"report_not_found"`
	UserNotFound   atomic.Int64 `json:"user_not_found"`
	Render         atomic.Int64 `json:"render"`
	Upload         atomic.Int64 `json:"upload"`
	Persist        atomic.Int64 `json:"persist"`
}

type EvidenceState struct {
	JobsProcessed        atomic.Uint64 `json:"jobs_processed"`
	CertificatesRendered atomic.Uint64 `json:"certificates_rendered"`
	ArtifactsUploaded    atomic.Uint64 `json:"artifacts_uploaded"`
	ReportsPersisted     atomic.Uint64 `json:"reports_persisted"`
}

type EvidenceReport struct {
	State  EvidenceState  `json:"state"`
	Errors EvidenceErrors `json:"errors"`
}
