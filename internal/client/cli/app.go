package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/ocrdesk/internal/client/client"
	"github.com/dmitrijs2005/ocrdesk/internal/client/config"
	"github.com/dmitrijs2005/ocrdesk/internal/client/gateway"
	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/ocrdesk/internal/client/services"
	"github.com/dmitrijs2005/ocrdesk/internal/filex"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config     *config.Config
	log        logging.Logger
	msgs       *messages.Catalog
	db         *sql.DB
	api        client.Client
	session    *services.SessionManager
	processing *services.ProcessingWorkflow
	history    *services.HistoryWorkflow

	in    *bufio.Reader
	outMu sync.Mutex
	out   io.Writer

	mu           sync.Mutex
	mode         Mode
	lastProgress int
	unsubscribe  []func()
}

// NewApp opens the local database and wires the service graph against
// c.ServerURL. The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}

	locale, err := messages.ParseLocale(c.Locale)
	if err != nil {
		return nil, err
	}
	msgs := messages.New(locale)

	gw, err := gateway.New(c.ServerURL,
		gateway.WithDefaultTimeout(c.RequestTimeout),
		gateway.WithLogger(log.With("component", "gateway")))
	if err != nil {
		return nil, err
	}

	saver, err := filex.NewDirSaver(c.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("prepare download dir: %w", err)
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	api := client.NewHTTPClient(gw, client.Timeouts{
		Auth:     c.RequestTimeout,
		History:  c.HistoryTimeout,
		Ping:     c.PingTimeout,
		Process:  gateway.Unbounded,
		Download: gateway.Unbounded,
	})

	session := services.NewSessionManager(api, credentials.NewSQLiteStore(db), msgs, log)
	gw.Attach(session)

	a := &App{
		config:     c,
		log:        log,
		msgs:       msgs,
		db:         db,
		api:        api,
		session:    session,
		processing: services.NewProcessingWorkflow(api, saver, msgs, log, c.MaxUploadSize),
		history:    services.NewHistoryWorkflow(api, api, session, saver, msgs, log, c.HistoryPageSize),
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}
	a.subscribe()
	return a, nil
}

func (a *App) subscribe() {
	a.unsubscribe = append(a.unsubscribe,
		a.session.Subscribe(a.onSessionEvent),
		a.processing.Subscribe(a.onJobChange),
	)
}

// onSessionEvent drops the history of the previous session whenever the
// signed-in user changes, and sends the user back to the anonymous landing
// prompt when the service rejected the stored token.
func (a *App) onSessionEvent(e services.SessionEvent) {
	switch e.Kind {
	case services.SignedIn, services.SignedOut, services.Expired:
		a.history.Clear()
	}
	if e.Kind == services.Expired {
		a.println(a.msgs.Text(messages.SessionExpired))
		a.println(anonymousHelp)
	}
}

func (a *App) onJobChange(job models.Job) {
	a.mu.Lock()
	if job.Status != models.JobStatusProcessing {
		a.lastProgress = 0
		a.mu.Unlock()
		return
	}
	if job.Progress == a.lastProgress {
		a.mu.Unlock()
		return
	}
	a.lastProgress = job.Progress
	a.mu.Unlock()

	a.println(a.msgs.Text(messages.Uploading, job.Progress))
}

// Close releases subscriptions and the database.
func (a *App) Close() error {
	for _, unsub := range a.unsubscribe {
		unsub()
	}
	a.unsubscribe = nil
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if !changed {
		return
	}
	if mode == ModeOffline {
		a.log.Warn(ctx, "switched to offline mode", "server", a.config.ServerURL)
		return
	}
	a.log.Info(ctx, "switched to online mode", "server", a.config.ServerURL)
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

// Run starts the REPL and the connectivity watcher and blocks until the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.StartOnlineStatusWatcher(gctx, a.config.OnlineCheckInterval)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return a.Root(gctx)
	})
	return g.Wait()
}

func (a *App) checkOnline(ctx context.Context) {
	if err := a.api.Ping(ctx); err != nil {
		a.log.Debug(ctx, "ping failed", "error", err)
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartOnlineStatusWatcher probes the service every interval until ctx is
// done. A non-positive interval disables the watcher.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}
