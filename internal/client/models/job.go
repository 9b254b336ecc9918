package models

import "io"

// JobStatus represents the lifecycle stage of a processing job.
type JobStatus string

const (
	JobStatusIdle       JobStatus = "idle"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// SourceFile is a user-selected document. Open may be called more than once;
// each call returns a fresh reader positioned at the start.
type SourceFile struct {
	Name        string
	Size        int64
	ContentType string
	// PageCount is known for PDFs whose structure could be read.
	PageCount *int
	Open      func() (io.ReadCloser, error)
}

// ProcessResult is the body returned by POST /process.
type ProcessResult struct {
	Message     string `json:"message"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename,omitempty"`
}

// Job is a snapshot of the processing workflow. Result is set only when
// Status is Completed and ErrorMessage only when Status is Failed.
type Job struct {
	File         *SourceFile
	Status       JobStatus
	Result       *ProcessResult
	ErrorMessage string
	// Progress is the upload percentage in [0,100]; it never decreases
	// within one submission.
	Progress int
}

// IsDone reports whether the job reached a terminal state.
func (j Job) IsDone() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
