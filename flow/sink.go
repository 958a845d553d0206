package flow

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Sink persists a finalized document. The engine's contract ends at handing
// the document over - what the sink does with it is its own concern.
type Sink interface {
	Persist(doc *Document) error
}

// FileSink writes documents to a file in the flow XML form.
type FileSink struct {
	Path      string
	Overwrite bool
	Log       *zap.Logger
}

func (s *FileSink) Persist(doc *Document) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !s.Overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	f, err := os.OpenFile(s.Path, flags, 0644)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer f.Close()

	if _, err := doc.WriteTo(f); err != nil {
		return fmt.Errorf("unable to write output file %q: %w", s.Path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("unable to sync output file %q: %w", s.Path, err)
	}
	if s.Log != nil {
		s.Log.Info("Document persisted", zap.String("path", s.Path), zap.Int("blocks", doc.Len()))
	}
	return nil
}
