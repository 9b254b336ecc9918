package cli

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/client/services"
)

// History fetches and prints the processed files of the signed-in user.
func (a *App) History(ctx context.Context) error {
	if err := a.history.Fetch(ctx); err != nil {
		return err
	}
	snap := a.history.Snapshot()
	a.render(func(w io.Writer) { renderHistory(w, snap) })
	return nil
}

// entryAt resolves a list position, loading the list first when it was
// never fetched.
func (a *App) entryAt(ctx context.Context, pos string) (models.HistoryEntry, error) {
	if a.history.Snapshot().State != services.HistoryLoaded {
		if err := a.history.Fetch(ctx); err != nil {
			return models.HistoryEntry{}, err
		}
	}
	e, ok := a.history.EntryAt(pos)
	if !ok {
		return models.HistoryEntry{}, errors.New(a.msgs.Text(messages.EntryNotFound))
	}
	return e, nil
}

// HistoryDownload saves the processed file at position pos.
func (a *App) HistoryDownload(ctx context.Context, pos string) error {
	e, err := a.entryAt(ctx, pos)
	if err != nil {
		return err
	}

	path, err := a.history.Download(ctx, e.ProcessedFilename)
	if err != nil {
		return err
	}
	a.println(a.msgs.Text(messages.SavedTo, path))
	return nil
}

// Delete removes the entry at position pos after the user confirms.
func (a *App) Delete(ctx context.Context, pos string) error {
	e, err := a.entryAt(ctx, pos)
	if err != nil {
		return err
	}

	pending, err := a.history.RequestDelete(e.ID)
	if err != nil {
		return err
	}

	ok, err := GetConfirmation(a.in, a.msgs.Text(messages.ConfirmDelete, pending.OriginalFilename), a.out)
	if err != nil || !ok {
		a.history.CancelDelete()
		if err != nil {
			return err
		}
		a.println(a.msgs.Text(messages.DeleteCancelled))
		return nil
	}

	if err := a.history.ConfirmDelete(ctx); err != nil {
		return err
	}
	a.println(a.msgs.Text(messages.FileDeleted, pending.OriginalFilename))
	snap := a.history.Snapshot()
	a.render(func(w io.Writer) { renderHistory(w, snap) })
	return nil
}
