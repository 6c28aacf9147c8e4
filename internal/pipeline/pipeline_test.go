package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/slide-converter/internal/domain"
	"github.com/spherical/slide-converter/internal/jobstore"
	"github.com/spherical/slide-converter/internal/observability"
	"github.com/spherical/slide-converter/internal/storage"
)

// harness fakes every capability and records what the pipeline asked for
type harness struct {
	mu            sync.Mutex
	calls         []string
	uploads       []domain.PageUpload
	notifications []domain.Notification
	renderOpts    []domain.RenderOptions

	pageCount    int
	splitOnly    int
	downloadErr  error
	normalizeErr error
	countErr     error
	splitErr     error
	notifyErr    error
	renderErr    map[int]error
	extractErr   map[int]error
	uploadErr    map[int]error
	renderPanic  int
	panicOn      string

	// workspace root seen by Download and whether it still existed at Notify
	root              string
	workspaceAtNotify bool

	beforeExtract func(ctx context.Context, index int) error
}

func (h *harness) log(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

func (h *harness) called(prefix string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == prefix || strings.HasPrefix(c, prefix+":") {
			n++
		}
	}
	return n
}

func (h *harness) Download(_ context.Context, _ string, dst string) error {
	h.log("download")
	h.mu.Lock()
	h.root = filepath.Dir(dst)
	h.mu.Unlock()
	h.maybePanic("download")
	if h.downloadErr != nil {
		return h.downloadErr
	}
	return os.WriteFile(dst, []byte("%PDF-1.7"), 0o644)
}

func (h *harness) Normalize(_ context.Context, _ string, dst string) error {
	h.log("normalize")
	h.maybePanic("normalize")
	if h.normalizeErr != nil {
		return h.normalizeErr
	}
	return os.WriteFile(dst, []byte("%PDF-1.7"), 0o644)
}

func (h *harness) Count(_ context.Context, pdfPath string) (int, error) {
	h.log("count")
	h.maybePanic("count")
	if _, err := os.Stat(pdfPath); err != nil {
		return 0, err
	}
	if h.countErr != nil {
		return 0, h.countErr
	}
	return h.pageCount, nil
}

func (h *harness) Split(_ context.Context, _ string, pattern string) error {
	h.log("split")
	h.maybePanic("split")
	if h.splitErr != nil {
		return h.splitErr
	}
	n := h.pageCount
	if h.splitOnly > 0 {
		n = h.splitOnly
	}
	dir, name := filepath.Dir(pattern), filepath.Base(pattern)
	for i := 1; i <= n; i++ {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf(name, i)), []byte("%PDF-1.7"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (h *harness) Render(_ context.Context, pdfPath, imagePath string, opts domain.RenderOptions) error {
	index := pageIndex(pdfPath)
	h.log(fmt.Sprintf("render:%d", index))
	h.mu.Lock()
	h.renderOpts = append(h.renderOpts, opts)
	h.mu.Unlock()

	if h.renderPanic == index {
		panic("renderer crashed")
	}
	if err := h.renderErr[index]; err != nil {
		return err
	}
	return os.WriteFile(imagePath, []byte("png"), 0o644)
}

func (h *harness) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	index := pageIndex(pdfPath)
	h.log(fmt.Sprintf("extract:%d", index))
	if h.beforeExtract != nil {
		if err := h.beforeExtract(ctx, index); err != nil {
			return "", err
		}
	}
	if err := h.extractErr[index]; err != nil {
		return "", err
	}
	return fmt.Sprintf("  text %d \n\n", index), nil
}

func (h *harness) Upload(_ context.Context, _ string, page domain.PageUpload) error {
	h.log(fmt.Sprintf("upload:%d", page.Current))
	if err := h.uploadErr[page.Current]; err != nil {
		return err
	}
	if _, err := os.Stat(page.ImagePath); err != nil {
		return err
	}
	h.mu.Lock()
	h.uploads = append(h.uploads, page)
	h.mu.Unlock()
	return nil
}

func (h *harness) Notify(_ context.Context, _ string, n domain.Notification) error {
	h.mu.Lock()
	h.notifications = append(h.notifications, n)
	if h.root != "" {
		_, err := os.Stat(h.root)
		h.workspaceAtNotify = err == nil
	}
	h.mu.Unlock()
	h.maybePanic("notify")
	return h.notifyErr
}

func (h *harness) maybePanic(stage string) {
	if h.panicOn == stage {
		panic(stage + " binding crashed")
	}
}

// pageIndex parses the page number out of "<dir>/<n>.pdf"
func pageIndex(path string) int {
	var n int
	base := path[strings.LastIndex(path, "/")+1:]
	_, _ = fmt.Sscanf(base, "%d.pdf", &n)
	return n
}

// countingProvider counts workspace creations and removals
type countingProvider struct {
	inner   *storage.DirProvider
	mu      sync.Mutex
	roots   []string
	removes int
}

func (c *countingProvider) Create(jobID string) (domain.Workspace, error) {
	ws, err := c.inner.Create(jobID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.roots = append(c.roots, ws.Root())
	c.mu.Unlock()
	return &countingWorkspace{Workspace: ws, provider: c}, nil
}

type countingWorkspace struct {
	domain.Workspace
	provider *countingProvider
}

func (w *countingWorkspace) Remove() error {
	w.provider.mu.Lock()
	w.provider.removes++
	w.provider.mu.Unlock()
	return w.Workspace.Remove()
}

type fixture struct {
	h        *harness
	provider *countingProvider
	store    jobstore.Store
	pipeline *Pipeline
}

func newFixture(t *testing.T, h *harness, opts Options) *fixture {
	t.Helper()
	provider := &countingProvider{inner: storage.NewDirProvider(t.TempDir())}
	store := jobstore.NewTracker(jobstore.NewMemoryBackend())
	caps := Capabilities{
		Downloader: h,
		Normalizer: h,
		Counter:    h,
		Splitter:   h,
		Renderer:   h,
		Extractor:  h,
		Uploader:   h,
		Notifier:   h,
	}
	return &fixture{
		h:        h,
		provider: provider,
		store:    store,
		pipeline: New(caps, provider, store, opts, observability.NewNopLogger()),
	}
}

func request(format string, transparent *bool) domain.ConvertRequest {
	req := domain.ConvertRequest{
		DownloadData: domain.DownloadData{Type: format, URL: "http://source/deck"},
		UploadData: domain.UploadData{
			URL:      "http://dest/upload",
			Callback: domain.Callback{URL: "http://dest/callback"},
		},
	}
	if transparent != nil {
		req.ConversionParams = &domain.ConversionParams{PreserveTransparency: transparent}
	}
	return req
}

func TestRun_EndToEnd(t *testing.T) {
	h := &harness{pageCount: 3}
	f := newFixture(t, h, DefaultOptions())

	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	require.NoError(t, res.Err)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, "Successfully extracted 3 slides", res.Message())

	assert.Equal(t, 0, h.called("normalize"), "a pdf source never reaches the converter")
	assert.Equal(t, 3, h.called("render"))
	assert.Equal(t, 3, h.called("extract"))

	require.Len(t, h.uploads, 3)
	sort.Slice(h.uploads, func(i, j int) bool { return h.uploads[i].Current < h.uploads[j].Current })
	for i, u := range h.uploads {
		assert.Equal(t, i+1, u.Current)
		assert.Equal(t, 3, u.Total)
		assert.Equal(t, fmt.Sprintf("text %d", i+1), u.SlideText)
	}

	require.Len(t, h.notifications, 1)
	assert.Equal(t, domain.Notification{Success: "success", Message: "Successfully extracted 3 slides"}, h.notifications[0])
	assert.True(t, h.workspaceAtNotify, "the workspace is removed only after the callback")

	assert.Equal(t, 1, f.provider.removes)
	require.Len(t, f.provider.roots, 1)
	assert.NoDirExists(t, f.provider.roots[0])

	for _, opts := range h.renderOpts {
		assert.False(t, opts.PreserveTransparency)
		assert.Equal(t, 150, opts.DPI)
	}

	rec, err := f.store.Get(context.Background(), res.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, 3, rec.PageCount)

	var states []domain.JobState
	for _, tr := range rec.History {
		states = append(states, tr.State)
	}
	assert.Equal(t, []domain.JobState{
		domain.StateCreated,
		domain.StateDownloaded,
		domain.StateNormalized,
		domain.StateCounted,
		domain.StateSplit,
		domain.StateProcessing,
		domain.StateAggregated,
		domain.StateUploaded,
		domain.StateNotified,
		domain.StateCleanedUp,
	}, states)
}

func TestRun_OfficeSourceUsesNormalizer(t *testing.T) {
	yes := true
	h := &harness{pageCount: 2}
	f := newFixture(t, h, DefaultOptions())

	res := f.pipeline.Run(context.Background(), request("PPTX", &yes), nil)

	require.NoError(t, res.Err)
	assert.Equal(t, 1, h.called("normalize"))
	for _, opts := range h.renderOpts {
		assert.True(t, opts.PreserveTransparency)
	}
}

func TestRun_ReverseCompletionOrder(t *testing.T) {
	const pages = 5
	done := make([]chan struct{}, pages+2)
	for i := range done {
		done[i] = make(chan struct{})
	}
	close(done[pages+1])

	var order []int
	var mu sync.Mutex

	// page i may only finish after page i+1 did
	h := &harness{pageCount: pages}
	h.beforeExtract = func(ctx context.Context, index int) error {
		select {
		case <-done[index+1]:
		case <-ctx.Done():
			return ctx.Err()
		}
		mu.Lock()
		order = append(order, index)
		mu.Unlock()
		close(done[index])
		return nil
	}

	f := newFixture(t, h, DefaultOptions())
	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	require.NoError(t, res.Err)
	assert.Equal(t, []int{5, 4, 3, 2, 1}, order)

	require.Len(t, h.uploads, pages)
	for _, u := range h.uploads {
		assert.Equal(t, fmt.Sprintf("text %d", u.Current), u.SlideText)
	}
}

func TestRunPool_ResultsKeyedByIndex(t *testing.T) {
	f := newFixture(t, &harness{}, Options{Workers: 4, MaxConcurrentTasks: 8})

	res := f.pipeline.runPool(context.Background(), "test", 8, func(_ context.Context, index int) error {
		time.Sleep(time.Duration(8-index) * time.Millisecond)
		if index%3 == 0 {
			return fmt.Errorf("boom %d", index)
		}
		return nil
	}, func(index int, err error) error {
		return domain.RenderError(index, err)
	})

	require.Len(t, res.Tasks, 8)
	for i, task := range res.Tasks {
		assert.Equal(t, i+1, task.Index)
	}
	assert.Equal(t, 2, res.FailureCount())
	assert.True(t, domain.IsType(res.Err(), domain.ErrorTypeRender))
}

func TestRun_PageFailuresSkipUpload(t *testing.T) {
	tests := []struct {
		name     string
		h        *harness
		wantType domain.ErrorType
	}{
		{
			name:     "render failure",
			h:        &harness{pageCount: 3, renderErr: map[int]error{2: errors.New("cairo error")}},
			wantType: domain.ErrorTypeRender,
		},
		{
			name:     "extract failure",
			h:        &harness{pageCount: 3, extractErr: map[int]error{1: errors.New("bad font")}},
			wantType: domain.ErrorTypeExtract,
		},
		{
			name:     "render panic",
			h:        &harness{pageCount: 3, renderPanic: 3},
			wantType: domain.ErrorTypeRender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.h, DefaultOptions())
			res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

			assert.Equal(t, domain.OutcomeError, res.Outcome)
			assert.True(t, domain.IsType(res.Err, tt.wantType), "got %v", res.Err)
			assert.Equal(t, ErrorMessage, res.Message())

			assert.Equal(t, 3, tt.h.called("render"), "every page is attempted")
			assert.Equal(t, 3, tt.h.called("extract"), "every page is attempted")
			assert.Zero(t, tt.h.called("upload"))

			require.Len(t, tt.h.notifications, 1)
			assert.Equal(t, "error", tt.h.notifications[0].Success)
			assert.Equal(t, 1, f.provider.removes)
		})
	}
}

func TestRun_CleanupOnceAtEveryFailurePoint(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name        string
		format      string
		h           *harness
		wantOutcome domain.Outcome
	}{
		{name: "download", format: "pdf", h: &harness{pageCount: 2, downloadErr: boom}, wantOutcome: domain.OutcomeError},
		{name: "normalize", format: "odp", h: &harness{pageCount: 2, normalizeErr: boom}, wantOutcome: domain.OutcomeError},
		{name: "count", format: "pdf", h: &harness{pageCount: 2, countErr: boom}, wantOutcome: domain.OutcomeError},
		{name: "split", format: "pdf", h: &harness{pageCount: 2, splitErr: boom}, wantOutcome: domain.OutcomeError},
		{name: "render", format: "pdf", h: &harness{pageCount: 2, renderErr: map[int]error{1: boom}}, wantOutcome: domain.OutcomeError},
		{name: "extract", format: "pdf", h: &harness{pageCount: 2, extractErr: map[int]error{2: boom}}, wantOutcome: domain.OutcomeError},
		{name: "upload", format: "pdf", h: &harness{pageCount: 2, uploadErr: map[int]error{2: boom}}, wantOutcome: domain.OutcomeError},
		{name: "notify", format: "pdf", h: &harness{pageCount: 2, notifyErr: boom}, wantOutcome: domain.OutcomeSuccess},
		{name: "download panic", format: "pdf", h: &harness{pageCount: 2, panicOn: "download"}, wantOutcome: domain.OutcomeError},
		{name: "normalize panic", format: "pptx", h: &harness{pageCount: 2, panicOn: "normalize"}, wantOutcome: domain.OutcomeError},
		{name: "count panic", format: "pdf", h: &harness{pageCount: 2, panicOn: "count"}, wantOutcome: domain.OutcomeError},
		{name: "split panic", format: "pdf", h: &harness{pageCount: 2, panicOn: "split"}, wantOutcome: domain.OutcomeError},
		{name: "notify panic", format: "pdf", h: &harness{pageCount: 2, panicOn: "notify"}, wantOutcome: domain.OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.h, DefaultOptions())
			res := f.pipeline.Run(context.Background(), request(tt.format, nil), nil)

			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, 1, f.provider.removes)
			assert.Len(t, tt.h.notifications, 1)
			for _, root := range f.provider.roots {
				assert.NoDirExists(t, root)
			}
		})
	}
}

func TestRun_UploadFailureFailsJob(t *testing.T) {
	h := &harness{pageCount: 3, uploadErr: map[int]error{2: errors.New("413")}}
	f := newFixture(t, h, DefaultOptions())

	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	assert.Equal(t, domain.OutcomeError, res.Outcome)
	assert.True(t, domain.IsType(res.Err, domain.ErrorTypeUpload))
	assert.Equal(t, 3, h.called("upload"), "sibling uploads still run")
	require.Len(t, h.notifications, 1)
	assert.Equal(t, "error", h.notifications[0].Success)
	assert.Contains(t, h.notifications[0].Message, "1 of 3 pages failed to upload")
}

func TestRun_UnparseablePageCount(t *testing.T) {
	h := &harness{pageCount: 3, countErr: errors.New(`unparseable page count "abc"`)}
	f := newFixture(t, h, DefaultOptions())

	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	assert.True(t, domain.IsType(res.Err, domain.ErrorTypePageCount))
	assert.Zero(t, h.called("split"))
	assert.Zero(t, h.called("upload"))
	require.Len(t, h.notifications, 1)
	assert.Equal(t, "error", h.notifications[0].Success)
	assert.Equal(t, 1, f.provider.removes)
}

func TestRun_PartialSplitFailsStage(t *testing.T) {
	h := &harness{pageCount: 3, splitOnly: 2}
	f := newFixture(t, h, DefaultOptions())

	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	assert.True(t, domain.IsType(res.Err, domain.ErrorTypePageSplit))
	assert.Contains(t, res.Err.Error(), "missing 3")
	assert.Zero(t, h.called("render"))
}

func TestRun_UnsupportedFormatRejectedBeforeTools(t *testing.T) {
	h := &harness{pageCount: 3}
	f := newFixture(t, h, DefaultOptions())

	res := f.pipeline.Run(context.Background(), request("docx", nil), nil)

	assert.True(t, domain.IsType(res.Err, domain.ErrorTypeUnsupportedFormat))
	assert.Empty(t, h.calls, "no download and no tool may run")
	assert.Empty(t, f.provider.roots)
	require.Len(t, h.notifications, 1)
	assert.Equal(t, "error", h.notifications[0].Success)
}

func TestRun_InvalidRequestCreatesNoJob(t *testing.T) {
	h := &harness{pageCount: 1}
	f := newFixture(t, h, DefaultOptions())

	req := request("pdf", nil)
	req.UploadData.Callback.URL = ""
	res := f.pipeline.Run(context.Background(), req, nil)

	assert.True(t, domain.IsType(res.Err, domain.ErrorTypeValidation))
	assert.Empty(t, res.JobID)
	assert.Empty(t, h.notifications)
	assert.Empty(t, h.calls)
}

func TestRun_ZeroPages(t *testing.T) {
	h := &harness{pageCount: 0}
	f := newFixture(t, h, DefaultOptions())

	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	require.NoError(t, res.Err)
	assert.Equal(t, "Successfully extracted 0 slides", res.Message())
	assert.Zero(t, h.called("split"))
	assert.Empty(t, h.uploads)
	assert.Len(t, h.notifications, 1)
}

func TestRun_AdmissionTimeout(t *testing.T) {
	h := &harness{pageCount: 1}
	opts := DefaultOptions()
	opts.MaxConcurrentJobs = 1
	f := newFixture(t, h, opts)

	require.NoError(t, f.pipeline.jobs.Acquire(context.Background(), 1))
	defer f.pipeline.jobs.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := f.pipeline.Run(ctx, request("pdf", nil), nil)

	assert.True(t, domain.IsType(res.Err, domain.ErrorTypeAdmission))
	assert.Empty(t, h.calls)
	require.Len(t, h.notifications, 1, "the callback is sent even though the caller gave up")
	assert.Equal(t, "error", h.notifications[0].Success)
}

func TestRun_FailFastCancelsRemainingPages(t *testing.T) {
	h := &harness{pageCount: 5, renderErr: map[int]error{1: errors.New("boom")}}
	opts := DefaultOptions()
	opts.Workers = 1
	opts.FailFast = true
	f := newFixture(t, h, opts)

	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	assert.Equal(t, domain.OutcomeError, res.Outcome)
	assert.Equal(t, 1, h.called("render"))
	assert.Contains(t, res.Err.Error(), "5 of 5 pages failed to render")
}

func TestRun_TaskTimeout(t *testing.T) {
	h := &harness{pageCount: 2}
	h.beforeExtract = func(ctx context.Context, index int) error {
		if index != 2 {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}
	opts := DefaultOptions()
	opts.TaskTimeout = 20 * time.Millisecond
	f := newFixture(t, h, opts)

	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	assert.True(t, domain.IsType(res.Err, domain.ErrorTypeExtract))
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Zero(t, h.called("upload"))
}

func TestRun_EmitsEvents(t *testing.T) {
	h := &harness{pageCount: 3}
	f := newFixture(t, h, DefaultOptions())
	events := make(chan domain.Event, 100)

	res := f.pipeline.Run(context.Background(), request("pdf", nil), events)
	require.NoError(t, res.Err)
	close(events)

	counts := map[domain.EventType]int{}
	var last domain.Event
	for ev := range events {
		assert.Equal(t, res.JobID, ev.JobID)
		counts[ev.Type]++
		last = ev
	}

	assert.Equal(t, 3, counts[domain.EventPageRendered])
	assert.Equal(t, 3, counts[domain.EventPageExtracted])
	assert.Equal(t, 3, counts[domain.EventPageUploaded])
	assert.Equal(t, domain.EventJobFinished, last.Type)
	assert.Equal(t, "Successfully extracted 3 slides", last.Payload)
}

func TestRun_NotifyFailureKeepsOutcome(t *testing.T) {
	h := &harness{pageCount: 2, notifyErr: errors.New("callback unreachable")}
	f := newFixture(t, h, DefaultOptions())

	res := f.pipeline.Run(context.Background(), request("pdf", nil), nil)

	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.Len(t, h.notifications, 1, "a failed callback is not resent")
	assert.Equal(t, 1, f.provider.removes)

	rec, err := f.store.Get(context.Background(), res.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, rec.Outcome)

	last := rec.History[len(rec.History)-1]
	assert.Equal(t, domain.StateCleanedUp, last.State)
	for _, tr := range rec.History {
		assert.NotEqual(t, domain.StateNotified, tr.State)
	}
}

func TestRun_StagePanicFailsOnlyTheJob(t *testing.T) {
	tests := []struct {
		stage    string
		wantType domain.ErrorType
	}{
		{stage: "download", wantType: domain.ErrorTypeDownload},
		{stage: "normalize", wantType: domain.ErrorTypeConversionTool},
		{stage: "count", wantType: domain.ErrorTypePageCount},
		{stage: "split", wantType: domain.ErrorTypePageSplit},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			h := &harness{pageCount: 2, panicOn: tt.stage}
			f := newFixture(t, h, DefaultOptions())

			var res *Result
			require.NotPanics(t, func() {
				res = f.pipeline.Run(context.Background(), request("odp", nil), nil)
			})

			assert.Equal(t, domain.OutcomeError, res.Outcome)
			assert.True(t, domain.IsType(res.Err, tt.wantType), "got %v", res.Err)
			assert.Contains(t, res.Err.Error(), tt.stage+" binding crashed")
			assert.Zero(t, h.called("render"))

			require.Len(t, h.notifications, 1)
			assert.Equal(t, "error", h.notifications[0].Success)
			assert.True(t, h.workspaceAtNotify)
			assert.Equal(t, 1, f.provider.removes)
		})
	}
}

func TestRun_PercentInWorkspaceBaseDir(t *testing.T) {
	h := &harness{pageCount: 3}
	provider := &countingProvider{inner: storage.NewDirProvider(filepath.Join(t.TempDir(), "jobs%dtmp"))}
	caps := Capabilities{
		Downloader: h, Normalizer: h, Counter: h, Splitter: h,
		Renderer: h, Extractor: h, Uploader: h, Notifier: h,
	}
	store := jobstore.NewTracker(jobstore.NewMemoryBackend())
	p := New(caps, provider, store, DefaultOptions(), observability.NewNopLogger())

	res := p.Run(context.Background(), request("pdf", nil), nil)

	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.PageCount)
	assert.Len(t, h.uploads, 3)
}
