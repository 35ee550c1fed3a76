package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Flusher periodically writes a Recorder to a textfile. It runs as a
// background goroutine and writes one last time when stopped.
//
// An empty path disables it.
type Flusher struct {
	rec      *Recorder
	path     string
	interval time.Duration
	logger   zerolog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewFlusher creates a flusher but does not start it.
func NewFlusher(rec *Recorder, path string, interval time.Duration, logger zerolog.Logger) *Flusher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Flusher{
		rec:      rec,
		path:     path,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the loop. It exits when ctx is cancelled or Stop is called.
func (f *Flusher) Start(ctx context.Context) {
	if f.path == "" {
		f.logger.Debug().Msg("metrics textfile disabled")
		close(f.done)
		return
	}

	ctx, f.cancel = context.WithCancel(ctx)
	go f.loop(ctx)

	f.logger.Debug().Str("path", f.path).Dur("interval", f.interval).Msg("metrics flusher started")
}

// Stop signals the loop to exit and waits for the final write. Safe to call
// more than once, but only after Start.
func (f *Flusher) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	<-f.done
}

func (f *Flusher) loop(ctx context.Context) {
	defer close(f.done)
	defer f.flush()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.flush()
		}
	}
}

func (f *Flusher) flush() {
	if err := f.rec.WriteTextfile(f.path); err != nil {
		f.logger.Warn().Err(err).Str("path", f.path).Msg("metrics textfile write failed")
	}
}
