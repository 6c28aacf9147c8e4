// Package pipeline runs conversion jobs: download, normalize, count and split the source,
// render and extract every page concurrently, upload the pages, notify once and clean up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/spherical/slide-converter/internal/domain"
	"github.com/spherical/slide-converter/internal/jobstore"
	"github.com/spherical/slide-converter/internal/observability"
)

const (
	stageDownload  = "download"
	stageNormalize = "normalize"
	stageCount     = "count"
	stageSplit     = "split"
	stageRender    = "render"
	stageExtract   = "extract"
	stageUpload    = "upload"

	// ErrorMessage is the short public message of a failed job
	ErrorMessage = "Error happened in the extraction"
)

// Capabilities are the external operations a job depends on
type Capabilities struct {
	Downloader domain.Downloader
	Normalizer domain.Normalizer
	Counter    domain.PageCounter
	Splitter   domain.PageSplitter
	Renderer   domain.Renderer
	Extractor  domain.TextExtractor
	Uploader   domain.Uploader
	Notifier   domain.Notifier
}

// Options tunes scheduling and rendering
type Options struct {
	Workers            int
	DPI                int
	TaskTimeout        time.Duration
	ToolTimeout        time.Duration
	FailFast           bool
	MaxConcurrentJobs  int64
	MaxConcurrentTasks int64
}

// DefaultOptions returns the stock scheduling settings
func DefaultOptions() Options {
	return Options{
		Workers:            10,
		DPI:                150,
		TaskTimeout:        2 * time.Minute,
		ToolTimeout:        10 * time.Minute,
		MaxConcurrentJobs:  4,
		MaxConcurrentTasks: 20,
	}
}

// Result is the terminal state of one job
type Result struct {
	JobID     string
	PageCount int
	Outcome   domain.Outcome
	Err       error
	Duration  time.Duration
}

// Message returns the short plain-text message for front-ends
func (r *Result) Message() string {
	if r.Outcome == domain.OutcomeSuccess {
		return successMessage(r.PageCount)
	}
	return ErrorMessage
}

func successMessage(pages int) string {
	return fmt.Sprintf("Successfully extracted %d slides", pages)
}

// Pipeline orchestrates conversion jobs
type Pipeline struct {
	caps       Capabilities
	workspaces domain.WorkspaceProvider
	store      jobstore.Store
	opts       Options
	jobs       *semaphore.Weighted
	tasks      *semaphore.Weighted
	logger     *observability.Logger
	newID      func() string
}

// New creates a pipeline. Jobs and page tasks are admitted through process-wide semaphores.
func New(caps Capabilities, workspaces domain.WorkspaceProvider, store jobstore.Store, opts Options, logger *observability.Logger) *Pipeline {
	defaults := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.DPI <= 0 {
		opts.DPI = defaults.DPI
	}
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = defaults.MaxConcurrentJobs
	}
	if opts.MaxConcurrentTasks <= 0 {
		opts.MaxConcurrentTasks = defaults.MaxConcurrentTasks
	}

	return &Pipeline{
		caps:       caps,
		workspaces: workspaces,
		store:      store,
		opts:       opts,
		jobs:       semaphore.NewWeighted(opts.MaxConcurrentJobs),
		tasks:      semaphore.NewWeighted(opts.MaxConcurrentTasks),
		logger:     logger.WithStage("pipeline"),
		newID:      uuid.NewString,
	}
}

// Run executes one job to completion. Requests missing required fields are rejected
// without creating a job. Every created job notifies exactly once and is cleaned up
// exactly once, after the notification. events may be nil.
func (p *Pipeline) Run(ctx context.Context, req domain.ConvertRequest, events chan<- domain.Event) *Result {
	if err := req.Validate(); err != nil && domain.IsType(err, domain.ErrorTypeValidation) {
		return &Result{Outcome: domain.OutcomeError, Err: err}
	}

	job := domain.NewJob(p.newID(), req)
	logger := p.logger.WithJob(job.ID)
	start := time.Now()

	if err := p.store.Create(context.WithoutCancel(ctx), job); err != nil {
		logger.Warn().Err(err).Msg("Failed to record job")
	}
	logger.Info().
		Str("source", job.SourceURL).
		Str("format", string(job.SourceFormat)).
		Bool("preserve_transparency", job.PreserveTransparency).
		Msg("Job started")

	res := &Result{JobID: job.ID}
	defer p.cleanup(ctx, job, res, logger, events)

	err := p.process(ctx, job, logger, events)

	res.PageCount = job.PageCount
	res.Duration = time.Since(start)
	if err != nil {
		res.Outcome = domain.OutcomeError
		res.Err = err
		logger.Error().Err(err).Dur("duration", res.Duration).Msg("Job failed")
	} else {
		res.Outcome = domain.OutcomeSuccess
		logger.Info().Int("pages", job.PageCount).Dur("duration", res.Duration).Msg("Job succeeded")
	}

	p.notify(ctx, job, res, logger)
	return res
}

// process runs every stage up to and including upload
func (p *Pipeline) process(ctx context.Context, job *domain.Job, logger *observability.Logger, events chan<- domain.Event) error {
	if !job.SourceFormat.Supported() {
		return domain.UnsupportedFormatError(string(job.SourceFormat))
	}

	if err := p.jobs.Acquire(ctx, 1); err != nil {
		return domain.AdmissionError("job was not admitted", err)
	}
	defer p.jobs.Release(1)

	ws, err := p.workspaces.Create(job.ID)
	if err != nil {
		return domain.DownloadError("failed to create workspace", err)
	}
	job.Workspace = ws

	if err := p.runStage(ctx, job, stageDownload, domain.StateDownloaded, logger, events, func(ctx context.Context) error {
		if err := p.caps.Downloader.Download(ctx, job.SourceURL, ws.SourcePath()); err != nil {
			return domain.DownloadError("failed to download source", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if err := p.runStage(ctx, job, stageNormalize, domain.StateNormalized, logger, events, func(ctx context.Context) error {
		return p.normalize(ctx, job)
	}); err != nil {
		return err
	}

	if err := p.runStage(ctx, job, stageCount, domain.StateCounted, logger, events, func(ctx context.Context) error {
		return p.count(ctx, job)
	}); err != nil {
		return err
	}
	p.recordPageCount(ctx, job, logger)

	if err := p.runStage(ctx, job, stageSplit, domain.StateSplit, logger, events, func(ctx context.Context) error {
		return p.split(ctx, job)
	}); err != nil {
		return err
	}

	p.record(ctx, job.ID, domain.StateProcessing, logger)
	if err := p.processPages(ctx, job, logger, events); err != nil {
		return err
	}
	p.record(ctx, job.ID, domain.StateAggregated, logger)

	if err := p.uploadPages(ctx, job, logger, events); err != nil {
		return err
	}
	p.record(ctx, job.ID, domain.StateUploaded, logger)

	return nil
}

// runStage runs one sequential stage under the tool timeout and records its state on success
func (p *Pipeline) runStage(ctx context.Context, job *domain.Job, stage string, state domain.JobState, logger *observability.Logger, events chan<- domain.Event, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	p.emit(events, logger, domain.Event{Type: domain.EventStageStarted, JobID: job.ID, Stage: stage, Total: job.PageCount})

	stageCtx := ctx
	if p.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, p.opts.ToolTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := callStage(stageCtx, stage, fn); err != nil {
		return err
	}

	logger.Debug().Str("stage", stage).Dur("duration", time.Since(start)).Msg("Stage finished")
	p.record(ctx, job.ID, state, logger)
	p.emit(events, logger, domain.Event{Type: domain.EventStageFinished, JobID: job.ID, Stage: stage, Total: job.PageCount})
	return nil
}

// callStage runs fn and turns a panic into a typed failure of that stage
func callStage(ctx context.Context, stage string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = stageError(stage, fmt.Sprintf("%s panicked", stage), fmt.Errorf("%v", r))
		}
	}()
	return fn(ctx)
}

func stageError(stage, message string, err error) error {
	switch stage {
	case stageDownload:
		return domain.DownloadError(message, err)
	case stageNormalize:
		return domain.ConversionToolError(message, err)
	case stageCount:
		return domain.PageCountError(message, err)
	case stageSplit:
		return domain.PageSplitError(message, err)
	default:
		return fmt.Errorf("%s: %w", message, err)
	}
}

// normalize puts the canonical PDF in place. A pdf source is only renamed.
func (p *Pipeline) normalize(ctx context.Context, job *domain.Job) error {
	ws := job.Workspace
	switch {
	case job.SourceFormat == domain.FormatPDF:
		if err := os.Rename(ws.SourcePath(), ws.CanonicalPath()); err != nil {
			return domain.ConversionToolError("failed to move pdf into place", err)
		}
	case job.SourceFormat.IsOffice():
		if err := p.caps.Normalizer.Normalize(ctx, ws.SourcePath(), ws.CanonicalPath()); err != nil {
			return domain.ConversionToolError("failed to convert source to pdf", err)
		}
	default:
		return domain.UnsupportedFormatError(string(job.SourceFormat))
	}
	return nil
}

func (p *Pipeline) count(ctx context.Context, job *domain.Job) error {
	n, err := p.caps.Counter.Count(ctx, job.Workspace.CanonicalPath())
	if err != nil {
		return domain.PageCountError("failed to count pages", err)
	}
	if err := job.AllocatePages(n); err != nil {
		return domain.PageCountError("invalid page count", err)
	}
	return nil
}

// split writes one PDF per page and requires every one of them to exist
func (p *Pipeline) split(ctx context.Context, job *domain.Job) error {
	if job.PageCount == 0 {
		return nil
	}

	ws := job.Workspace
	if err := p.caps.Splitter.Split(ctx, ws.CanonicalPath(), ws.PagePattern()); err != nil {
		return domain.PageSplitError("failed to split pages", err)
	}

	var missing []string
	for i := 1; i <= job.PageCount; i++ {
		if _, err := os.Stat(ws.PagePDFPath(i)); err != nil {
			missing = append(missing, fmt.Sprint(i))
		}
	}
	if len(missing) > 0 {
		return domain.PageSplitError(fmt.Sprintf("split produced %d of %d pages, missing %s",
			job.PageCount-len(missing), job.PageCount, strings.Join(missing, ",")), nil)
	}
	return nil
}

// processPages renders and extracts every page concurrently and joins both pools
func (p *Pipeline) processPages(ctx context.Context, job *domain.Job, logger *observability.Logger, events chan<- domain.Event) error {
	ws := job.Workspace
	n := job.PageCount
	renderOpts := domain.RenderOptions{DPI: p.opts.DPI, PreserveTransparency: job.PreserveTransparency}

	var rendered, extracted domain.StageResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p.emit(events, logger, domain.Event{Type: domain.EventStageStarted, JobID: job.ID, Stage: stageRender, Total: n})
		rendered = p.runPool(gctx, stageRender, n, func(ctx context.Context, index int) error {
			imagePath := ws.PageImagePath(index)
			if err := p.caps.Renderer.Render(ctx, ws.PagePDFPath(index), imagePath, renderOpts); err != nil {
				return err
			}
			job.Page(index).ImagePath = imagePath
			p.emit(events, logger, domain.Event{Type: domain.EventPageRendered, JobID: job.ID, Stage: stageRender, PageNumber: index, Total: n})
			return nil
		}, func(index int, err error) error {
			job.Page(index).RenderFailed = true
			return domain.RenderError(index, err)
		})
		p.emit(events, logger, domain.Event{Type: domain.EventStageFinished, JobID: job.ID, Stage: stageRender, Total: n})
		return p.poolErr(rendered)
	})

	g.Go(func() error {
		p.emit(events, logger, domain.Event{Type: domain.EventStageStarted, JobID: job.ID, Stage: stageExtract, Total: n})
		extracted = p.runPool(gctx, stageExtract, n, func(ctx context.Context, index int) error {
			text, err := p.caps.Extractor.ExtractText(ctx, ws.PagePDFPath(index))
			if err != nil {
				return err
			}
			job.Page(index).Text = strings.TrimSpace(text)
			p.emit(events, logger, domain.Event{Type: domain.EventPageExtracted, JobID: job.ID, Stage: stageExtract, PageNumber: index, Total: n})
			return nil
		}, func(index int, err error) error {
			job.Page(index).ExtractFailed = true
			return domain.ExtractError(index, err)
		})
		p.emit(events, logger, domain.Event{Type: domain.EventStageFinished, JobID: job.ID, Stage: stageExtract, Total: n})
		return p.poolErr(extracted)
	})

	_ = g.Wait()

	renderFailed, extractFailed := rendered.FailureCount(), extracted.FailureCount()
	if renderFailed == 0 && extractFailed == 0 {
		return nil
	}

	for _, r := range append(rendered.Failures(), extracted.Failures()...) {
		logger.Warn().Int("page", r.Index).Err(r.Err).Msg("Page failed")
	}
	return fmt.Errorf("%d of %d pages failed to render, %d failed text extraction: %w",
		renderFailed, n, extractFailed, errors.Join(rendered.Err(), extracted.Err()))
}

// uploadPages sends every page to the destination; any failed upload fails the job
func (p *Pipeline) uploadPages(ctx context.Context, job *domain.Job, logger *observability.Logger, events chan<- domain.Event) error {
	n := job.PageCount
	p.emit(events, logger, domain.Event{Type: domain.EventStageStarted, JobID: job.ID, Stage: stageUpload, Total: n})

	uploaded := p.runPool(ctx, stageUpload, n, func(ctx context.Context, index int) error {
		page := job.Page(index)
		err := p.caps.Uploader.Upload(ctx, job.DestinationURL, domain.PageUpload{
			Current:   index,
			Total:     n,
			SlideText: page.Text,
			ImagePath: page.ImagePath,
		})
		if err != nil {
			return err
		}
		p.emit(events, logger, domain.Event{Type: domain.EventPageUploaded, JobID: job.ID, Stage: stageUpload, PageNumber: index, Total: n})
		return nil
	}, func(index int, err error) error {
		job.Page(index).UploadFailed = true
		return domain.UploadError(index, err)
	})

	p.emit(events, logger, domain.Event{Type: domain.EventStageFinished, JobID: job.ID, Stage: stageUpload, Total: n})

	if failed := uploaded.FailureCount(); failed > 0 {
		return fmt.Errorf("%d of %d pages failed to upload: %w", failed, n, uploaded.Err())
	}
	return nil
}

// poolErr lets a failing pool cancel its sibling when FailFast is set
func (p *Pipeline) poolErr(res domain.StageResult) error {
	if p.opts.FailFast {
		return res.Err()
	}
	return nil
}

// notify sends the single terminal callback. Failures are logged only.
func (p *Pipeline) notify(ctx context.Context, job *domain.Job, res *Result, logger *observability.Logger) {
	n := domain.Notification{Success: domain.NotifyStatusSuccess, Message: successMessage(res.PageCount)}
	if res.Outcome != domain.OutcomeSuccess {
		n = domain.Notification{Success: domain.NotifyStatusError, Message: res.Err.Error()}
	}

	// the callback is owed even when the caller has gone away
	notifyCtx := context.WithoutCancel(ctx)
	if p.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		notifyCtx, cancel = context.WithTimeout(notifyCtx, p.opts.ToolTimeout)
		defer cancel()
	}

	if err := p.store.Finish(notifyCtx, job.ID, res.Outcome, n.Message); err != nil {
		logger.Warn().Err(err).Msg("Failed to record job outcome")
	}

	if err := sendNotification(notifyCtx, p.caps.Notifier, job.CallbackURL, n); err != nil {
		logger.Error().Err(domain.NotifyError("failed to send callback", err)).Msg("Notify failed")
		return
	}
	p.record(notifyCtx, job.ID, domain.StateNotified, logger)
	logger.Debug().Str("status", n.Success).Msg("Callback sent")
}

func sendNotification(ctx context.Context, notifier domain.Notifier, url string, n domain.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
	}()
	return notifier.Notify(ctx, url, n)
}

// cleanup removes the workspace. It runs exactly once per job, after notify.
func (p *Pipeline) cleanup(ctx context.Context, job *domain.Job, res *Result, logger *observability.Logger, events chan<- domain.Event) {
	if job.Workspace != nil {
		if err := job.Workspace.Remove(); err != nil {
			logger.Error().Err(domain.CleanupError("failed to remove workspace", err)).Msg("Cleanup failed")
		}
	}
	p.record(context.WithoutCancel(ctx), job.ID, domain.StateCleanedUp, logger)

	p.emit(events, logger, domain.Event{
		Type:    domain.EventJobFinished,
		JobID:   job.ID,
		Total:   res.PageCount,
		Payload: res.Message(),
	})
}

func (p *Pipeline) record(ctx context.Context, id string, state domain.JobState, logger *observability.Logger) {
	if err := p.store.Transition(context.WithoutCancel(ctx), id, state); err != nil {
		logger.Warn().Err(err).Str("state", string(state)).Msg("Failed to record job state")
	}
}

func (p *Pipeline) recordPageCount(ctx context.Context, job *domain.Job, logger *observability.Logger) {
	if err := p.store.SetPageCount(context.WithoutCancel(ctx), job.ID, job.PageCount); err != nil {
		logger.Warn().Err(err).Msg("Failed to record page count")
	}
}

// emit safely emits an event to the channel
func (p *Pipeline) emit(events chan<- domain.Event, logger *observability.Logger, event domain.Event) {
	if events == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case events <- event:
	default:
		logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}
