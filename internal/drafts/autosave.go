package drafts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval is how often the Autosaver checks for changes.
const DefaultInterval = 5 * time.Second

// Source is the document being autosaved.
type Source interface {
	ID() string
	Revision() uint64
	Export() ([]byte, error)
}

// Target accepts a restored document.
type Target interface {
	Import(data []byte) bool
}

// Autosaver writes a draft whenever the source's revision moves.
type Autosaver struct {
	src      Source
	store    Store
	interval time.Duration
	logger   *slog.Logger

	saved   uint64
	hasSave bool
}

// NewAutosaver creates an autosaver. A non-positive interval uses
// DefaultInterval.
func NewAutosaver(src Source, store Store, interval time.Duration, logger *slog.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{src: src, store: store, interval: interval, logger: logger.With("component", "autosave")}
}

// SaveNow writes a draft if the source changed since the last save and
// reports whether it wrote one. It is not safe for concurrent use.
func (a *Autosaver) SaveNow(ctx context.Context) (bool, error) {
	rev := a.src.Revision()
	if a.hasSave && rev == a.saved {
		return false, nil
	}
	data, err := a.src.Export()
	if err != nil {
		return false, fmt.Errorf("failed to export draft: %w", err)
	}
	id := a.src.ID()
	if err := a.store.Save(ctx, id, data); err != nil {
		return false, err
	}
	a.saved, a.hasSave = rev, true
	a.logger.Debug("Draft saved.", "workflow_id", id, "revision", rev)
	return true, nil
}

// Run saves on every tick until ctx is done, then makes a final save.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if _, err := a.SaveNow(final); err != nil {
				a.logger.Error("Final draft save failed.", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if _, err := a.SaveNow(ctx); err != nil {
				a.logger.Warn("Draft save failed.", "error", err)
			}
		}
	}
}

// Restore loads the draft of workflowID into dst. It reports false when no
// draft exists.
func Restore(ctx context.Context, store Store, workflowID string, dst Target) (bool, error) {
	data, err := store.Load(ctx, workflowID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !dst.Import(data) {
		return false, fmt.Errorf("draft %s is not a valid workflow document", workflowID)
	}
	return true, nil
}
