package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/client/services"
	"github.com/dmitrijs2005/ocrdesk/internal/formatting"
)

// render runs fn with exclusive access to the output.
func (a *App) render(fn func(w io.Writer)) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fn(a.out)
}

func renderFile(w io.Writer, f *models.SourceFile) {
	if f == nil {
		fmt.Fprintln(w, "File:   -")
		return
	}
	line := fmt.Sprintf("File:   %s (%s", f.Name, formatting.FormatMegabytes(f.Size))
	if f.PageCount != nil {
		line += fmt.Sprintf(", %d pages", *f.PageCount)
	}
	fmt.Fprintln(w, line+")")
}

func renderJob(w io.Writer, job models.Job) {
	renderFile(w, job.File)

	switch job.Status {
	case models.JobStatusProcessing:
		fmt.Fprintf(w, "Status: processing %d%%\n", job.Progress)
	case models.JobStatusCompleted:
		fmt.Fprintln(w, "Status: completed")
		if job.Result != nil {
			if job.Result.Message != "" {
				fmt.Fprintln(w, job.Result.Message)
			}
			fmt.Fprintf(w, "Result: %s (type 'download' to save it)\n", services.ArtifactName(job.Result))
		}
	case models.JobStatusFailed:
		fmt.Fprintln(w, "Status: failed")
		fmt.Fprintf(w, "Error:  %s\n", job.ErrorMessage)
	default:
		fmt.Fprintln(w, "Status: idle")
	}
}

func renderHistory(w io.Writer, snap services.HistorySnapshot) {
	switch snap.State {
	case services.HistoryFailed:
		fmt.Fprintln(w, snap.Error)
		return
	case services.HistoryLoading:
		fmt.Fprintln(w, "Loading...")
		return
	}
	if len(snap.Entries) == 0 {
		fmt.Fprintln(w, "No processed files yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFILE\tSIZE\tTYPE\tSTATUS\tTIME\tCREATED\tDOWNLOADS")
	for i, e := range snap.Entries {
		created := "-"
		if !e.CreatedAt.IsZero() {
			created = humanize.Time(e.CreatedAt.Time)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			i+1,
			e.OriginalFilename,
			formatting.FormatMegabytes(e.FileSize),
			e.FileType,
			e.ProcessingStatus,
			formatting.FormatSeconds(e.ProcessingTime),
			created,
			e.DownloadCount,
		)
	}
	_ = tw.Flush()

	if snap.ActionError != "" {
		fmt.Fprintln(w, snap.ActionError)
	}
}

// errorLines splits err into what the user should read. Validation errors
// give one line per broken rule.
func errorLines(err error) []string {
	if err == nil {
		return nil
	}

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return verr.Messages
	}
	if errors.Is(err, services.ErrInFlight) {
		return []string{"Please wait, the previous request is still running"}
	}
	return []string{strings.TrimSpace(err.Error())}
}
