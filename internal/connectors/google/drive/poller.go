package drive

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/logger"
)

// Ensure Poller implements the interface.
var _ driven.FileWatcher = (*Poller)(nil)

// Poller reports new Drive files by listing the folder on an interval.
// Drive uploads are atomic, so a listed file is already complete.
type Poller struct {
	source   *Source
	interval time.Duration
}

// NewPoller creates a Poller. A non-positive interval means one minute.
func NewPoller(source *Source, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{source: source, interval: interval}
}

// Watch lists the folder every interval until ctx is done and calls
// notify for each pending file id. Callers dedupe ids that are already
// in flight. Credential failures stop the poller; others are logged.
func (p *Poller) Watch(ctx context.Context, notify func(sourceID string)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		files, err := p.source.pendingFiles(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrServiceAuth) || errors.Is(err, domain.ErrInvalidConfig) {
				return err
			}
			logger.Warn("drive poll failed: %v", err)
			continue
		}
		for _, f := range files {
			notify(f.Id)
		}
	}
}
