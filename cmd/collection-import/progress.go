package main

import (
	"fmt"
	"io"

	"github.com/ramonehamilton/MTG-Collection/internal/events"
)

// progressPrinter redraws one progress line per import.
type progressPrinter struct {
	out io.Writer
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) OnEvent(event events.Event) error {
	switch event.Type {
	case events.TypeImportProgress:
		progress, ok := events.GetTypedData[events.ImportProgressEvent](event)
		if !ok || progress.Total == 0 {
			return nil
		}
		_, err := fmt.Fprintf(p.out, "\r  %d/%d rows (%d%%)", progress.Processed, progress.Total,
			progress.Processed*100/progress.Total)
		return err
	case events.TypeImportComplete:
		_, err := fmt.Fprintln(p.out)
		return err
	}
	return nil
}

func (p *progressPrinter) GetName() string {
	return "ProgressPrinter"
}

func (p *progressPrinter) ShouldHandle(eventType string) bool {
	return eventType == events.TypeImportProgress || eventType == events.TypeImportComplete
}
