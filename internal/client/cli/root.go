package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
)

func (a *App) getStatus() string {
	s := ""
	if u := a.session.User(); u != nil {
		s = u.Username + " "
	}
	if m := a.Mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root restores a saved session, probes the service once and runs the REPL
// until the user leaves or ctx is cancelled.
func (a *App) Root(ctx context.Context) error {
	a.println(a.msgs.Text(messages.AppWelcome))

	restored, err := a.session.Restore(ctx)
	if err != nil {
		a.log.Warn(ctx, "restore session failed", "error", err)
	}
	if restored {
		a.println(a.msgs.Text(messages.LoggedInAs, a.session.User().Username))
	}

	a.checkOnline(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.getStatus, a.in)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}
