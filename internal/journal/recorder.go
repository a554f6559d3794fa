package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

const writeTimeout = 2 * time.Second

// Recorder writes entries to a Store from its own goroutine so the
// controller never waits on storage.
type Recorder struct {
	store Store
	in    chan []Entry
	log   *zap.Logger
	done  chan struct{}
}

func NewRecorder(store Store, buffer int, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	r := &Recorder{
		store: store,
		in:    make(chan []Entry, buffer),
		log:   log,
		done:  make(chan struct{}),
	}
	go r.loop()
	return r
}

// Record implements controller.Recorder. It drops the batch when the buffer
// is full.
func (r *Recorder) Record(version uint64, events []engine.Event) {
	select {
	case r.in <- NewEntries(version, events):
	default:
		r.log.Warn("journal buffer full, dropping events",
			zap.Uint64("version", version), zap.Int("events", len(events)))
	}
}

// Close flushes what is buffered and stops the writer. Record must not be
// called after Close.
func (r *Recorder) Close() {
	close(r.in)
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)
	for batch := range r.in {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.store.Append(ctx, batch); err != nil {
			r.log.Error("journal append failed", zap.Error(err), zap.Int("entries", len(batch)))
		}
		cancel()
	}
}
