package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
	"github.com/DoyleJ11/traffic-light-server/internal/sequencer"
	"github.com/DoyleJ11/traffic-light-server/internal/store"
)

var ErrClosed = errors.New("controller closed")

//go:generate mockgen -destination=mock_deps_test.go -package=controller . Broadcaster,Recorder

// Broadcaster receives every snapshot the controller publishes.
type Broadcaster interface {
	Publish(snap store.Snapshot)
}

// Recorder receives the events behind every published snapshot.
type Recorder interface {
	Record(version uint64, events []engine.Event)
}

type message interface{ isControllerMsg() }

type execute struct {
	cmd   engine.Command
	reply chan result
}

func (execute) isControllerMsg() {}

type shutdown struct{}

func (shutdown) isControllerMsg() {}

type result struct {
	snap store.Snapshot
	err  error
}

type Stats struct {
	StartedAt        time.Time
	ModeChanges      int64
	AutoCycles       int64
	RejectedCommands int64
}

// Controller is the only writer of the traffic-light state. Commands and
// sequencer firings are handled one at a time by a single goroutine.
type Controller struct {
	inbox       chan message
	fired       chan sequencer.Fired
	store       *store.Store
	seq         *sequencer.Sequencer
	broadcaster Broadcaster
	recorder    Recorder
	log         *zap.Logger
	now         func() time.Time
	startedAt   time.Time

	modeChanges atomic.Int64
	autoCycles  atomic.Int64
	rejected    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(c *Controller) { c.broadcaster = b }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New starts a controller holding initial. The controller stops when parent
// is cancelled or Close is called.
func New(parent context.Context, initial engine.State, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(parent)

	c := &Controller{
		inbox:  make(chan message, 64),
		fired:  make(chan sequencer.Fired, 1),
		store:  store.New(initial),
		log:    zap.NewNop(),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startedAt = c.now()
	c.seq = sequencer.New(c.fired, c.done)

	if c.broadcaster != nil {
		c.broadcaster.Publish(c.store.Get())
	}

	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.done)
	defer c.cancel()
	for {
		select {
		case <-c.ctx.Done():
			c.seq.Cancel()
			return

		case f := <-c.fired:
			c.handleFired(f)

		case m := <-c.inbox:
			switch msg := m.(type) {
			case execute:
				snap, err := c.handleCommand(msg.cmd)
				msg.reply <- result{snap: snap, err: err}

			case shutdown:
				c.seq.Cancel()
				return
			}
		}
	}
}

func (c *Controller) handleCommand(cmd engine.Command) (store.Snapshot, error) {
	now := c.now()
	snap, events, err := c.store.Apply(func(cur engine.State) ([]engine.Event, engine.State, error) {
		return engine.Apply(cur, cmd, now)
	})
	if err != nil {
		c.rejected.Add(1)
		c.log.Warn("command rejected",
			zap.String("command", string(cmd.Type)),
			zap.String("color", string(cmd.Color)),
			zap.Error(err))
		return snap, err
	}

	switch cmd.Type {
	case engine.CmdAuto:
		// Start replaces whatever timer was pending.
		c.seq.Start(snap.State.Settings)
	case engine.CmdManual, engine.CmdOff, engine.CmdEmergency:
		c.seq.Cancel()
	}

	c.log.Info("command applied",
		zap.String("command", string(cmd.Type)),
		zap.String("mode", string(snap.State.Mode)),
		zap.String("color", string(snap.State.Color)),
		zap.Uint64("version", snap.Version))
	c.publish(snap, events)
	return snap, nil
}

func (c *Controller) handleFired(f sequencer.Fired) {
	now := c.now()
	snap, events, err := c.store.Apply(func(cur engine.State) ([]engine.Event, engine.State, error) {
		return c.seq.Fire(cur, f, now)
	})
	if err != nil {
		if errors.Is(err, sequencer.ErrStaleFiring) {
			c.log.Debug("dropping stale firing", zap.Uint64("gen", f.Gen))
		}
		return
	}

	c.log.Debug("phase advanced",
		zap.String("color", string(snap.State.Color)),
		zap.Int("auto_step", snap.State.AutoStep),
		zap.Duration("hold", snap.State.Settings.DurationFor(snap.State.AutoStep)))
	c.publish(snap, events)
}

func (c *Controller) publish(snap store.Snapshot, events []engine.Event) {
	for _, e := range events {
		switch e.Type {
		case engine.EvtModeChanged:
			c.modeChanges.Add(1)
		case engine.EvtCycleCompleted:
			c.autoCycles.Add(1)
		}
	}
	if c.broadcaster != nil {
		c.broadcaster.Publish(snap)
	}
	if c.recorder != nil && len(events) > 0 {
		c.recorder.Record(snap.Version, events)
	}
}

// Execute applies cmd and returns the resulting snapshot. Validation failures
// wrap engine.ErrValidation and leave the state untouched.
func (c *Controller) Execute(ctx context.Context, cmd engine.Command) (store.Snapshot, error) {
	reply := make(chan result, 1)
	select {
	case c.inbox <- execute{cmd: cmd, reply: reply}:
	case <-c.done:
		return store.Snapshot{}, ErrClosed
	case <-ctx.Done():
		return store.Snapshot{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.snap, r.err
	case <-c.done:
		return store.Snapshot{}, ErrClosed
	case <-ctx.Done():
		return store.Snapshot{}, ctx.Err()
	}
}

func (c *Controller) SetManual(ctx context.Context, color engine.Color) (store.Snapshot, error) {
	return c.Execute(ctx, engine.Command{Type: engine.CmdManual, Color: color})
}

func (c *Controller) SetAuto(ctx context.Context) (store.Snapshot, error) {
	return c.Execute(ctx, engine.Command{Type: engine.CmdAuto})
}

func (c *Controller) SetOff(ctx context.Context) (store.Snapshot, error) {
	return c.Execute(ctx, engine.Command{Type: engine.CmdOff})
}

func (c *Controller) Emergency(ctx context.Context) (store.Snapshot, error) {
	return c.Execute(ctx, engine.Command{Type: engine.CmdEmergency})
}

func (c *Controller) UpdateSettings(ctx context.Context, patch engine.SettingsPatch) (store.Snapshot, error) {
	return c.Execute(ctx, engine.Command{Type: engine.CmdUpdateSettings, Settings: patch})
}

// Reject counts a command that failed validation before it reached the
// controller, such as an unknown mode or color decoded at the HTTP or stream
// edge. It shows up in Stats alongside rejections made here.
func (c *Controller) Reject(reason error) {
	c.rejected.Add(1)
	c.log.Warn("command rejected", zap.Error(reason))
}

// Snapshot never blocks on the controller loop.
func (c *Controller) Snapshot() store.Snapshot {
	return c.store.Get()
}

func (c *Controller) Stats() Stats {
	return Stats{
		StartedAt:        c.startedAt,
		ModeChanges:      c.modeChanges.Load(),
		AutoCycles:       c.autoCycles.Load(),
		RejectedCommands: c.rejected.Load(),
	}
}

// Close stops the loop and cancels any pending firing. It waits for the loop
// to exit.
func (c *Controller) Close() {
	select {
	case c.inbox <- shutdown{}:
	case <-c.done:
	}
	<-c.done
}

func (c *Controller) Done() <-chan struct{} { return c.done }
