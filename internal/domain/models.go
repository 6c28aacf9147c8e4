package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceFormat is the declared format of the source document
type SourceFormat string

const (
	FormatPPT  SourceFormat = "ppt"
	FormatPPTX SourceFormat = "pptx"
	FormatODP  SourceFormat = "odp"
	FormatPDF  SourceFormat = "pdf"
)

// IsOffice reports whether the format needs conversion to the canonical PDF form
func (f SourceFormat) IsOffice() bool {
	switch f {
	case FormatPPT, FormatPPTX, FormatODP:
		return true
	default:
		return false
	}
}

// Supported reports whether the pipeline accepts the format at all
func (f SourceFormat) Supported() bool {
	return f == FormatPDF || f.IsOffice()
}

// ConvertRequest is the inbound request body accepted by every front-end
type ConvertRequest struct {
	DownloadData     DownloadData      `json:"downloadData"`
	UploadData       UploadData        `json:"uploadData"`
	ConversionParams *ConversionParams `json:"conversionParams"`
}

// DownloadData describes the source document
type DownloadData struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// UploadData describes where page artifacts and the final callback go
type UploadData struct {
	URL      string   `json:"url"`
	Callback Callback `json:"callback"`
}

// Callback holds the notification endpoint
type Callback struct {
	URL string `json:"url"`
}

// ConversionParams holds optional conversion switches; every field may be null
type ConversionParams struct {
	PreserveTransparency *bool `json:"preserveTransparency"`
}

// PreserveTransparency resolves the transparency option, defaulting to false
func (r ConvertRequest) PreserveTransparency() bool {
	if r.ConversionParams == nil || r.ConversionParams.PreserveTransparency == nil {
		return false
	}
	return *r.ConversionParams.PreserveTransparency
}

// Validate checks the request shape and the declared source format
func (r ConvertRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.DownloadData.URL) == "" {
		missing = append(missing, "downloadData.url")
	}
	if strings.TrimSpace(r.UploadData.URL) == "" {
		missing = append(missing, "uploadData.url")
	}
	if strings.TrimSpace(r.UploadData.Callback.URL) == "" {
		missing = append(missing, "uploadData.callback.url")
	}
	if len(missing) > 0 {
		return ValidationError(fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")), nil)
	}

	if !SourceFormat(strings.ToLower(r.DownloadData.Type)).Supported() {
		return UnsupportedFormatError(r.DownloadData.Type)
	}
	return nil
}

// Job is the working state of one conversion request
type Job struct {
	ID                   string
	SourceURL            string
	SourceFormat         SourceFormat
	DestinationURL       string
	CallbackURL          string
	PreserveTransparency bool

	PageCount int
	Pages     []PageArtifact

	Workspace Workspace

	pagesAllocated bool
}

// NewJob builds a job from a request under the given id
func NewJob(id string, req ConvertRequest) *Job {
	return &Job{
		ID:                   id,
		SourceURL:            req.DownloadData.URL,
		SourceFormat:         SourceFormat(strings.ToLower(req.DownloadData.Type)),
		DestinationURL:       req.UploadData.URL,
		CallbackURL:          req.UploadData.Callback.URL,
		PreserveTransparency: req.PreserveTransparency(),
	}
}

// AllocatePages fixes the page count and allocates one empty slot per page.
// It may be called only once per job.
func (j *Job) AllocatePages(n int) error {
	if j.pagesAllocated {
		return errors.New("pages already allocated")
	}
	if n < 0 {
		return fmt.Errorf("negative page count %d", n)
	}

	j.PageCount = n
	j.Pages = make([]PageArtifact, n)
	for i := range j.Pages {
		j.Pages[i].Index = i + 1
	}
	j.pagesAllocated = true
	return nil
}

// Page returns the slot for a 1-based index, or nil when out of range
func (j *Job) Page(index int) *PageArtifact {
	if index < 1 || index > len(j.Pages) {
		return nil
	}
	return &j.Pages[index-1]
}

// PageArtifact holds the per-page outputs.
// Render tasks own ImagePath/RenderFailed, extraction tasks own Text/ExtractFailed
// and upload tasks own UploadFailed; each slot is written by one task per stage.
type PageArtifact struct {
	Index         int
	ImagePath     string
	Text          string
	RenderFailed  bool
	ExtractFailed bool
	UploadFailed  bool
}

// PageUpload is the multipart payload for one page
type PageUpload struct {
	Current   int
	Total     int
	SlideText string
	ImagePath string
}

// Notification status values
const (
	NotifyStatusSuccess = "success"
	NotifyStatusError   = "error"
)

// Notification is the terminal callback body
type Notification struct {
	Success string `json:"success"`
	Message string `json:"message"`
}

// TaskResult is the outcome of one fan-out task
type TaskResult struct {
	Index    int
	Err      error
	Duration time.Duration
}

// OK reports whether the task succeeded
func (r TaskResult) OK() bool {
	return r.Err == nil
}

// StageResult collects every task result of a fan-out stage, ordered by page index
type StageResult struct {
	Stage string
	Tasks []TaskResult
}

// Failures returns the failed task results
func (s StageResult) Failures() []TaskResult {
	var failed []TaskResult
	for _, t := range s.Tasks {
		if !t.OK() {
			failed = append(failed, t)
		}
	}
	return failed
}

// FailureCount returns the number of failed tasks
func (s StageResult) FailureCount() int {
	return len(s.Failures())
}

// Err joins the task errors, or returns nil when every task succeeded
func (s StageResult) Err() error {
	failed := s.Failures()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, t := range failed {
		errs = append(errs, t.Err)
	}
	return errors.Join(errs...)
}

// JobState is a position in the per-job state machine
type JobState string

const (
	StateCreated    JobState = "created"
	StateDownloaded JobState = "downloaded"
	StateNormalized JobState = "normalized"
	StateCounted    JobState = "counted"
	StateSplit      JobState = "split"
	StateProcessing JobState = "processing"
	StateAggregated JobState = "aggregated"
	StateUploaded   JobState = "uploaded"
	StateNotified   JobState = "notified"
	StateCleanedUp  JobState = "cleaned_up"
)

// Outcome is the terminal result of a job
type Outcome string

const (
	OutcomePending Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// EventType represents the type of progress event
type EventType string

const (
	EventStageStarted  EventType = "stage_started"
	EventStageFinished EventType = "stage_finished"
	EventPageRendered  EventType = "page_rendered"
	EventPageExtracted EventType = "page_extracted"
	EventPageUploaded  EventType = "page_uploaded"
	EventJobFinished   EventType = "job_finished"
)

// Event represents a progress event emitted while a job runs
type Event struct {
	Type       EventType   `json:"type"`
	JobID      string      `json:"job_id"`
	Stage      string      `json:"stage,omitempty"`
	PageNumber int         `json:"page_number,omitempty"`
	Total      int         `json:"total,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
