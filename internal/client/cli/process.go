package cli

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/client/services"
)

// Select picks the document to process. An empty path is asked for.
func (a *App) Select(ctx context.Context, path string) error {
	if path == "" {
		var err error
		if path, err = a.askText("Enter file path"); err != nil {
			return err
		}
		if path == "" {
			return errors.New(a.msgs.Text(messages.NoFileSelected))
		}
	}

	file, err := services.OpenSourceFile(ctx, a.log, path)
	if err != nil {
		return err
	}
	if err := a.processing.SelectFile(file); err != nil {
		return err
	}

	a.render(func(w io.Writer) { renderFile(w, file) })
	return nil
}

// Submit uploads the selected document and waits for the result.
func (a *App) Submit(ctx context.Context) error {
	err := a.processing.Submit(ctx)
	if errors.Is(err, services.ErrSuperseded) {
		return nil
	}
	if err != nil && a.processing.Snapshot().Status != models.JobStatusFailed {
		return err
	}
	return a.Status(ctx)
}

// Download saves the artifact of the completed job.
func (a *App) Download(ctx context.Context) error {
	path, err := a.processing.Download(ctx)
	if err != nil {
		return err
	}
	a.println(a.msgs.Text(messages.SavedTo, path))
	return nil
}

// Reset starts over with no file selected.
func (a *App) Reset(ctx context.Context) error {
	a.processing.Reset()
	a.println(a.msgs.Text(messages.ReadyForNewFile))
	return nil
}

func (a *App) Status(ctx context.Context) error {
	job := a.processing.Snapshot()
	a.render(func(w io.Writer) { renderJob(w, job) })
	return nil
}
