package services

import (
	"context"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/ocrdesk/internal/client/client"
	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/events"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
	"golang.org/x/sync/singleflight"
)

// DefaultHistoryPageSize is the limit sent with GET /history.
const DefaultHistoryPageSize = 20

type HistoryState string

const (
	HistoryIdle    HistoryState = "idle"
	HistoryLoading HistoryState = "loading"
	HistoryLoaded  HistoryState = "loaded"
	HistoryFailed  HistoryState = "failed"
)

// Authenticator reports whether a session exists.
type Authenticator interface {
	IsAuthenticated() bool
}

// HistorySnapshot is a copy of the workflow state for rendering.
type HistorySnapshot struct {
	State HistoryState
	// Error is the fetch failure text; set only in Failed.
	Error string
	// ActionError is the text of the last failed download or delete.
	ActionError   string
	Entries       []models.HistoryEntry
	Downloading   map[string]bool
	Deleting      map[models.EntryID]bool
	PendingDelete *models.HistoryEntry
}

// historyArena stores entries by identity with an explicit order, so a
// removal can never hit the wrong row.
type historyArena struct {
	byID  map[models.EntryID]models.HistoryEntry
	order []models.EntryID
}

func newHistoryArena(entries []models.HistoryEntry) (historyArena, int) {
	a := historyArena{
		byID:  make(map[models.EntryID]models.HistoryEntry, len(entries)),
		order: make([]models.EntryID, 0, len(entries)),
	}
	dups := 0
	for _, e := range entries {
		if _, seen := a.byID[e.ID]; seen {
			dups++
			continue
		}
		a.byID[e.ID] = e
		a.order = append(a.order, e.ID)
	}
	return a, dups
}

func (a *historyArena) get(id models.EntryID) (models.HistoryEntry, bool) {
	e, ok := a.byID[id]
	return e, ok
}

func (a *historyArena) remove(id models.EntryID) bool {
	if _, ok := a.byID[id]; !ok {
		return false
	}
	delete(a.byID, id)
	for i, cur := range a.order {
		if cur == id {
			a.order = append(a.order[:i:i], a.order[i+1:]...)
			break
		}
	}
	return true
}

func (a *historyArena) list() []models.HistoryEntry {
	out := make([]models.HistoryEntry, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.byID[id])
	}
	return out
}

// HistoryWorkflow owns the list of previously processed files.
type HistoryWorkflow struct {
	api      client.HistoryClient
	files    client.ProcessClient
	session  Authenticator
	saver    Saver
	msgs     *messages.Catalog
	log      logging.Logger
	pageSize int
	group    singleflight.Group
	events   *events.Hub[HistorySnapshot]

	mu          sync.Mutex
	state       HistoryState
	errMsg      string
	actionErr   string
	arena       historyArena
	downloading map[string]bool
	deleting    map[models.EntryID]bool
	pending     *models.EntryID
	// gen changes on Clear; fetches and deletes started under an older
	// gen do not touch the list.
	gen uint64
	// removed holds ids deleted in this gen, so a fetch that was in flight
	// during the delete cannot bring them back.
	removed map[models.EntryID]struct{}
}

func NewHistoryWorkflow(api client.HistoryClient, files client.ProcessClient, session Authenticator, saver Saver,
	msgs *messages.Catalog, log logging.Logger, pageSize int) *HistoryWorkflow {
	if log == nil {
		log = logging.Nop()
	}
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	arena, _ := newHistoryArena(nil)
	return &HistoryWorkflow{
		api:         api,
		files:       files,
		session:     session,
		saver:       saver,
		msgs:        msgs,
		log:         log.With("component", "history"),
		pageSize:    pageSize,
		events:      events.NewHub[HistorySnapshot](),
		state:       HistoryIdle,
		arena:       arena,
		downloading: make(map[string]bool),
		deleting:    make(map[models.EntryID]bool),
		removed:     make(map[models.EntryID]struct{}),
	}
}

func (h *HistoryWorkflow) Subscribe(fn func(HistorySnapshot)) func() {
	return h.events.Subscribe(fn)
}

func (h *HistoryWorkflow) Snapshot() HistorySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *HistoryWorkflow) snapshotLocked() HistorySnapshot {
	s := HistorySnapshot{
		State:       h.state,
		Error:       h.errMsg,
		ActionError: h.actionErr,
		Entries:     h.arena.list(),
		Downloading: make(map[string]bool, len(h.downloading)),
		Deleting:    make(map[models.EntryID]bool, len(h.deleting)),
	}
	for k := range h.downloading {
		s.Downloading[k] = true
	}
	for k := range h.deleting {
		s.Deleting[k] = true
	}
	if h.pending != nil {
		if e, ok := h.arena.get(*h.pending); ok {
			s.PendingDelete = &e
		}
	}
	return s
}

func (h *HistoryWorkflow) publish() {
	h.mu.Lock()
	snap := h.snapshotLocked()
	h.mu.Unlock()
	h.events.Publish(snap)
}

// Clear forgets everything loaded for the current session: entries,
// pending confirmation, errors and per-item flags. Work still in flight
// finishes without touching the list.
func (h *HistoryWorkflow) Clear() {
	h.mu.Lock()
	h.resetLocked()
	h.state = HistoryIdle
	h.mu.Unlock()
	h.publish()
}

func (h *HistoryWorkflow) resetLocked() {
	h.gen++
	h.arena, _ = newHistoryArena(nil)
	h.errMsg = ""
	h.actionErr = ""
	h.pending = nil
	h.downloading = make(map[string]bool)
	h.deleting = make(map[models.EntryID]bool)
	h.removed = make(map[models.EntryID]struct{})
}

// Fetch replaces the list with the first page from the service. Without a
// session it drops the list, fails immediately and makes no call.
//
// Concurrent fetches share one request. The shared request is not bound to
// any single caller's ctx: a caller that gives up gets ctx.Err() while the
// others still receive the result.
func (h *HistoryWorkflow) Fetch(ctx context.Context) error {
	if h.session == nil || !h.session.IsAuthenticated() {
		text := h.msgs.Text(messages.LoginRequired)
		h.mu.Lock()
		h.resetLocked()
		h.state = HistoryFailed
		h.errMsg = text
		h.mu.Unlock()
		h.publish()
		return &WorkflowError{Op: "history", Message: text, Err: ErrNotAuthenticated}
	}

	h.mu.Lock()
	gen := h.gen
	h.state = HistoryLoading
	h.errMsg = ""
	h.mu.Unlock()
	h.publish()

	key := "history-" + strconv.FormatUint(gen, 10)
	ch := h.group.DoChan(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		entries, err := h.api.History(callCtx, 0, h.pageSize)
		return nil, h.applyFetch(callCtx, gen, entries, err)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *HistoryWorkflow) applyFetch(ctx context.Context, gen uint64, entries []models.HistoryEntry, err error) error {
	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		h.log.Debug(ctx, "dropping history of a previous session")
		return ErrSuperseded
	}

	if err != nil {
		_, text := normalize(h.msgs, err, messages.HistoryFailed)
		h.state = HistoryFailed
		h.errMsg = text
		h.mu.Unlock()
		h.publish()
		h.log.Warn(ctx, "history fetch failed", "error", err)
		return &WorkflowError{Op: "history", Message: text, Err: err}
	}

	kept := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if _, gone := h.removed[e.ID]; !gone {
			kept = append(kept, e)
		}
	}
	arena, dups := newHistoryArena(kept)

	h.arena = arena
	h.state = HistoryLoaded
	h.errMsg = ""
	if h.pending != nil {
		if _, ok := arena.get(*h.pending); !ok {
			h.pending = nil
		}
	}
	h.mu.Unlock()
	h.publish()

	if dups > 0 {
		h.log.Warn(ctx, "history contained duplicate ids", "count", dups)
	}
	h.log.Debug(ctx, "history loaded", "entries", len(kept))
	return nil
}

// Download saves one processed file. Other items are unaffected; a second
// call for the same name while the first runs returns ErrInFlight.
func (h *HistoryWorkflow) Download(ctx context.Context, processedFilename string) (string, error) {
	h.mu.Lock()
	if h.downloading[processedFilename] {
		h.mu.Unlock()
		return "", ErrInFlight
	}
	h.downloading[processedFilename] = true
	h.actionErr = ""
	gen := h.gen
	h.mu.Unlock()
	h.publish()

	saved, err := saveArtifact(ctx, h.files, h.saver, processedFilename)

	h.mu.Lock()
	var werr *WorkflowError
	if err != nil {
		_, text := normalize(h.msgs, err, messages.DownloadFailed)
		werr = &WorkflowError{Op: "download", Message: text, Err: err}
	}
	if gen == h.gen {
		delete(h.downloading, processedFilename)
		if werr != nil {
			h.actionErr = werr.Message
		}
	}
	h.mu.Unlock()
	h.publish()

	if werr != nil {
		h.log.Warn(ctx, "download failed", "file", processedFilename, "error", err)
		return "", werr
	}
	return saved, nil
}

// RequestDelete opens the confirmation step for id. Nothing is deleted
// until ConfirmDelete.
func (h *HistoryWorkflow) RequestDelete(id models.EntryID) (*models.HistoryEntry, error) {
	h.mu.Lock()
	e, ok := h.arena.get(id)
	if !ok {
		h.mu.Unlock()
		return nil, &WorkflowError{Op: "delete", Message: h.msgs.Text(messages.EntryNotFound)}
	}
	h.pending = &id
	h.mu.Unlock()
	h.publish()
	return &e, nil
}

// CancelDelete dismisses the confirmation step.
func (h *HistoryWorkflow) CancelDelete() {
	h.mu.Lock()
	h.pending = nil
	h.mu.Unlock()
	h.publish()
}

// ConfirmDelete deletes the pending entry. On success exactly that entry
// leaves the list; on failure the list is unchanged. The confirmation step
// is dismissed either way.
func (h *HistoryWorkflow) ConfirmDelete(ctx context.Context) error {
	h.mu.Lock()
	if h.pending == nil {
		h.mu.Unlock()
		return &WorkflowError{Op: "delete", Message: h.msgs.Text(messages.NoPendingDelete)}
	}
	id := *h.pending
	gen := h.gen
	h.pending = nil
	if h.deleting[id] {
		h.mu.Unlock()
		h.publish()
		return ErrInFlight
	}
	h.deleting[id] = true
	h.actionErr = ""
	h.mu.Unlock()
	h.publish()

	_, err := h.api.DeleteFile(ctx, id)

	h.mu.Lock()
	var werr *WorkflowError
	if err != nil {
		_, text := normalize(h.msgs, err, messages.DeleteFailed)
		werr = &WorkflowError{Op: "delete", Message: text, Err: err}
	}
	if gen == h.gen {
		delete(h.deleting, id)
		if werr != nil {
			h.actionErr = werr.Message
		} else {
			h.arena.remove(id)
			h.removed[id] = struct{}{}
		}
	}
	h.mu.Unlock()
	h.publish()

	if werr != nil {
		h.log.Warn(ctx, "delete failed", "id", id.String(), "error", err)
		return werr
	}
	h.log.Info(ctx, "file deleted", "id", id.String())
	return nil
}

// EntryAt resolves a 1-based position in the current list, as shown by the
// CLI, to an entry.
func (h *HistoryWorkflow) EntryAt(pos string) (models.HistoryEntry, bool) {
	n, err := strconv.Atoi(pos)
	if err != nil {
		return models.HistoryEntry{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if n < 1 || n > len(h.arena.order) {
		return models.HistoryEntry{}, false
	}
	return h.arena.byID[h.arena.order[n-1]], true
}
