package services

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/dmitrijs2005/ocrdesk/internal/client/client"
	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/events"
	"github.com/dmitrijs2005/ocrdesk/internal/filex"
	"github.com/dmitrijs2005/ocrdesk/internal/formatting"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
)

// DefaultMaxUploadSize is the largest file SelectFile accepts by default.
const DefaultMaxUploadSize int64 = 10 << 20

// AcceptedContentTypes is the upload allow-list.
var AcceptedContentTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/jpg"}

// Saver stores a downloaded artifact and returns where it went.
type Saver interface {
	Save(name string, fill func(w io.Writer) error) (string, error)
}

// ProcessingWorkflow drives one document through select, submit and
// download. State changes are published as Job snapshots.
type ProcessingWorkflow struct {
	api     client.ProcessClient
	saver   Saver
	msgs    *messages.Catalog
	log     logging.Logger
	maxSize int64
	allowed map[string]struct{}
	events  *events.Hub[models.Job]

	mu          sync.Mutex
	job         models.Job
	gen         uint64
	inFlight    bool
	downloading bool
}

func NewProcessingWorkflow(api client.ProcessClient, saver Saver, msgs *messages.Catalog, log logging.Logger, maxSize int64) *ProcessingWorkflow {
	if log == nil {
		log = logging.Nop()
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	allowed := make(map[string]struct{}, len(AcceptedContentTypes))
	for _, ct := range AcceptedContentTypes {
		allowed[ct] = struct{}{}
	}
	return &ProcessingWorkflow{
		api:     api,
		saver:   saver,
		msgs:    msgs,
		log:     log.With("component", "processing"),
		maxSize: maxSize,
		allowed: allowed,
		events:  events.NewHub[models.Job](),
		job:     models.Job{Status: models.JobStatusIdle},
	}
}

func (w *ProcessingWorkflow) Subscribe(fn func(models.Job)) func() {
	return w.events.Subscribe(fn)
}

// Snapshot returns a copy of the current job.
func (w *ProcessingWorkflow) Snapshot() models.Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *ProcessingWorkflow) snapshotLocked() models.Job {
	j := w.job
	if j.Result != nil {
		r := *j.Result
		j.Result = &r
	}
	return j
}

func (w *ProcessingWorkflow) IsDownloading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.downloading
}

// SelectFile accepts file as the new working document, in any state.
// A rejected file leaves the workflow untouched. An accepted one replaces
// the job; a submission still running for the old job is superseded.
func (w *ProcessingWorkflow) SelectFile(file *models.SourceFile) error {
	if err := w.checkFile(file); err != nil {
		w.log.Info(context.Background(), "file rejected", "error", err)
		return err
	}

	w.mu.Lock()
	w.gen++
	w.inFlight = false
	w.job = models.Job{File: file, Status: models.JobStatusIdle}
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.events.Publish(snap)
	return nil
}

func (w *ProcessingWorkflow) checkFile(file *models.SourceFile) error {
	if file == nil {
		return &FileRejectedError{Rule: messages.NoFileSelected, Message: w.msgs.Text(messages.NoFileSelected)}
	}
	if _, ok := w.allowed[normalizeContentType(file.ContentType)]; !ok {
		return &FileRejectedError{Name: file.Name, Rule: messages.FileTypeRejected, Message: w.msgs.Text(messages.FileTypeRejected)}
	}
	if file.Size > w.maxSize {
		return &FileRejectedError{
			Name:    file.Name,
			Rule:    messages.FileTooLarge,
			Message: w.msgs.Text(messages.FileTooLarge, formatting.FormatMegabytes(w.maxSize)),
		}
	}
	if file.Size == 0 {
		return &FileRejectedError{Name: file.Name, Rule: messages.FileEmpty, Message: w.msgs.Text(messages.FileEmpty)}
	}
	return nil
}

// Submit uploads the selected file and waits for the service's answer.
// It needs a selected file in Idle; a call while another submission runs
// returns ErrInFlight and changes nothing. There is no timeout or retry.
func (w *ProcessingWorkflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return ErrInFlight
	}
	if w.job.File == nil {
		w.mu.Unlock()
		return &WorkflowError{Op: "submit", Message: w.msgs.Text(messages.NoFileSelected)}
	}
	if w.job.Status != models.JobStatusIdle {
		w.mu.Unlock()
		return &WorkflowError{Op: "submit", Message: w.msgs.Text(messages.JobNotIdle)}
	}

	w.inFlight = true
	gen := w.gen
	file := w.job.File
	w.job.Status = models.JobStatusProcessing
	w.job.Progress = 0
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.events.Publish(snap)
	w.log.Info(ctx, "submitting", "file", file.Name, "size", file.Size)

	result, err := w.api.Process(ctx, file, func(sent, total int64) {
		w.advance(gen, percent(sent, total))
	})

	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		w.log.Info(ctx, "discarding superseded result", "file", file.Name)
		return ErrSuperseded
	}
	w.inFlight = false

	var werr *WorkflowError
	if err != nil {
		_, text := normalize(w.msgs, err, messages.ProcessFailed)
		w.job.Status = models.JobStatusFailed
		w.job.Result = nil
		w.job.ErrorMessage = text
		werr = &WorkflowError{Op: "submit", Message: text, Err: err}
	} else {
		w.job.Status = models.JobStatusCompleted
		w.job.Result = result
		w.job.ErrorMessage = ""
		w.job.Progress = 100
	}
	snap = w.snapshotLocked()
	w.mu.Unlock()

	w.events.Publish(snap)
	if werr != nil {
		w.log.Warn(ctx, "processing failed", "file", file.Name, "error", err)
		return werr
	}
	w.log.Info(ctx, "processing completed", "file", file.Name, "download_url", result.DownloadURL)
	return nil
}

// advance raises progress for generation gen; it never lowers it.
func (w *ProcessingWorkflow) advance(gen uint64, pct int) {
	w.mu.Lock()
	if w.gen != gen || w.job.Status != models.JobStatusProcessing || pct <= w.job.Progress {
		w.mu.Unlock()
		return
	}
	w.job.Progress = pct
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.events.Publish(snap)
}

func percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(sent * 100 / total)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Download saves the artifact of a completed job and returns its path.
// A failure leaves the job Completed.
func (w *ProcessingWorkflow) Download(ctx context.Context) (string, error) {
	w.mu.Lock()
	if w.job.Status != models.JobStatusCompleted || w.job.Result == nil {
		w.mu.Unlock()
		return "", &WorkflowError{Op: "download", Message: w.msgs.Text(messages.JobNotCompleted)}
	}
	if w.downloading {
		w.mu.Unlock()
		return "", ErrInFlight
	}
	w.downloading = true
	name := ArtifactName(w.job.Result)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.downloading = false
		w.mu.Unlock()
	}()

	saved, err := saveArtifact(ctx, w.api, w.saver, name)
	if err != nil {
		_, text := normalize(w.msgs, err, messages.DownloadFailed)
		w.log.Warn(ctx, "download failed", "file", name, "error", err)
		return "", &WorkflowError{Op: "download", Message: text, Err: err}
	}
	w.log.Info(ctx, "artifact saved", "path", saved)
	return saved, nil
}

// Reset discards the file, result and error and returns to Idle.
func (w *ProcessingWorkflow) Reset() {
	w.mu.Lock()
	w.gen++
	w.inFlight = false
	w.job = models.Job{Status: models.JobStatusIdle}
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.events.Publish(snap)
}

// ArtifactName is the last path segment of the result's download URL, or
// its filename when the URL has none.
func ArtifactName(r *models.ProcessResult) string {
	if r == nil {
		return ""
	}
	raw := r.DownloadURL
	if u, err := url.Parse(raw); err == nil {
		raw = u.EscapedPath()
	}
	raw = strings.TrimRight(raw, "/")
	if raw != "" {
		seg := path.Base(raw)
		if unescaped, err := url.PathUnescape(seg); err == nil {
			seg = unescaped
		}
		if seg != "" && seg != "." && seg != "/" {
			return seg
		}
	}
	return r.Filename
}

func saveArtifact(ctx context.Context, api client.ProcessClient, saver Saver, name string) (string, error) {
	safe, err := filex.SanitizeName(name)
	if err != nil {
		return "", err
	}
	return saver.Save(safe, func(wr io.Writer) error {
		_, err := api.Download(ctx, name, wr)
		return err
	})
}
