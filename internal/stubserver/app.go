// Package stubserver runs an in-memory reference implementation of the OCR
// service the ocrdesk client talks to. It keeps users and files in memory
// and "processes" a document by copying it.
package stubserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/ocrdesk/internal/common"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/config"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/files"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/httpapi"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/users"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	secret := c.SecretKey
	if secret == "" {
		s, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		secret = s
		logger.Warn(context.Background(), "no secret key configured, tokens will not survive a restart")
	}

	us := users.NewService(users.NewMemoryRepository(), users.LogMailer{Log: logger.With("module", "mailer")},
		logger, []byte(secret), c.AccessTokenValidityDuration, c.ResetCodeValidityDuration)
	fs := files.NewService(files.NewMemoryRepository(), files.NewMemoryArtifacts(), logger)

	h := httpapi.NewHandler(us, fs, logger, c.MaxUploadSize)
	return &App{config: c, logger: logger, handler: httpapi.NewRouter(h)}, nil
}

// Handler exposes the routes, e.g. for httptest.
func (app *App) Handler() http.Handler {
	return app.handler
}

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully.
func (app *App) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info(ctx, "Starting HTTP server", "address", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// Run listens on the configured address and serves until SIGINT, SIGTERM
// or SIGQUIT.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	l, err := net.Listen("tcp", app.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.Addr, err)
	}
	return app.Serve(ctx, l)
}
