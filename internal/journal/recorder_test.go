package journal

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

func TestRecorder_WritesThroughToStore(t *testing.T) {
	mem := NewMemory(16)
	r := NewRecorder(mem, 4, zaptest.NewLogger(t))

	r.Record(1, []engine.Event{{Type: engine.EvtModeChanged}, {Type: engine.EvtColorChanged}})
	r.Record(2, []engine.Event{{Type: engine.EvtPhaseAdvanced}})
	r.Close()

	got, err := mem.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1, 1}, versions(got))
}

type blockingStore struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingStore) Append(context.Context, []Entry) error {
	b.calls.Add(1)
	<-b.release
	return nil
}

func (b *blockingStore) Recent(context.Context, int) ([]Entry, error) { return nil, nil }

func TestRecorder_NeverBlocksCaller(t *testing.T) {
	bs := &blockingStore{release: make(chan struct{})}
	r := NewRecorder(bs, 1, zaptest.NewLogger(t))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			r.Record(uint64(i), []engine.Event{{Type: engine.EvtPhaseAdvanced}})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Record blocked on a stuck store")
	}

	close(bs.release)
	r.Close()
	assert.LessOrEqual(t, bs.calls.Load(), int32(2))
}

type failingStore struct{ calls atomic.Int32 }

func (f *failingStore) Append(context.Context, []Entry) error {
	f.calls.Add(1)
	return errors.New("db down")
}

func (f *failingStore) Recent(context.Context, int) ([]Entry, error) { return nil, nil }

func TestRecorder_SurvivesStoreErrors(t *testing.T) {
	fs := &failingStore{}
	r := NewRecorder(fs, 4, zaptest.NewLogger(t))
	r.Record(1, []engine.Event{{Type: engine.EvtModeChanged}})
	r.Record(2, []engine.Event{{Type: engine.EvtModeChanged}})
	r.Close()
	assert.Equal(t, int32(2), fs.calls.Load())
}
