package pipeline

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDecoding    JobStatus = "decoding"
	StatusClassifying JobStatus = "classifying"
	StatusStoring     JobStatus = "storing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusDupSkipped  JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDupSkipped
}

// Job tracks the state of a single document conversion.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	SiteID string `json:"site_id,omitempty"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Force    bool      `json:"force"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress counts what the conversion produced so far.
type Progress struct {
	Paragraphs int      `json:"paragraphs"`
	Sections   int      `json:"sections"`
	Items      int      `json:"items"`
	Errors     []string `json:"errors"`
}

// NewJob returns a queued job for an uploaded file.
func NewJob(filename string, data []byte, force bool) *Job {
	now := time.Now()
	return &Job{
		ID:        NewID(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Force:     force,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// NewID returns a time-ordered identifier for jobs and sites.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetParagraphs records the decoded paragraph count.
func (j *Job) SetParagraphs(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Paragraphs = n
	j.UpdatedAt = time.Now()
}

// SetModelCounts records the section and item counts of the built site.
func (j *Job) SetModelCounts(sections, items int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Sections = sections
	j.Progress.Items = items
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the decoded stream.
func (j *Job) SetContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// SetSiteID links the job to the stored site it produced or matched.
func (j *Job) SetSiteID(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.SiteID = id
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	SiteID      string    `json:"site_id,omitempty"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:          j.ID,
		SiteID:      j.SiteID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress: Progress{
			Paragraphs: j.Progress.Paragraphs,
			Sections:   j.Progress.Sections,
			Items:      j.Progress.Items,
			Errors:     errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes the BLAKE3-256 digest of content as hex.
func ContentHashHex(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
