package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeReconcileRun represents one full pipeline run.
	JobTypeReconcileRun JobType = "reconcile_run"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ReconcileRunJob represents one scheduled execution of the reconciliation
// pipeline. A run is all-or-nothing: a retry recomputes the entire batch
// and relies on the sink's idempotent inserts for replay safety.
type ReconcileRunJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// RunID identifies the pipeline run; it also names the archive object.
	RunID string `json:"run_id"`

	// TriggeredBy records what scheduled the run ("ticker", "cli", ...).
	TriggeredBy string `json:"triggered_by"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`

	// RetryDelay is how long to wait before re-enqueueing a failed run.
	RetryDelay time.Duration `json:"retry_delay"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ReconcileRunJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ReconcileRunJob) GetType() JobType {
	return JobTypeReconcileRun
}

// GetStatus implements the Job interface.
func (j *ReconcileRunJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishReconcileRun publishes a pipeline-run job.
	PublishReconcileRun(ctx context.Context, job *ReconcileRunJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job. A returned error marks
// the job failed and eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *ReconcileRunJob) error
	GetJob(ctx context.Context, jobID string) (*ReconcileRunJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ReconcileRunJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// RunID filters jobs by pipeline run.
	RunID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
