package epg

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tvcore/internal/config"
	"tvcore/internal/logging"
	"tvcore/internal/middleware"
	"tvcore/internal/services"
	"tvcore/internal/store"
)

// ChannelSource lists the channels a full sweep covers. Programs are keyed by
// channel id, so they are stored under WithGeneration and dropped when the
// list was replaced while they were read.
type ChannelSource interface {
	BroadcastChannels() []store.Channel
	Generation() uint64
	WithGeneration(gen uint64, fn func() error) (bool, error)
}

// ProgramStore persists acquired programs.
type ProgramStore interface {
	InsertPrograms(ctx context.Context, programs []store.Program) (store.ProgramBatch, error)
	PruneProgramsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Playback reports what is on screen.
type Playback interface {
	CurrentTransponder(ctx context.Context) (int, bool)
	Channel() (store.Channel, bool)
}

// Mode is the kind of acquisition a Run performed.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeNowNext Mode = "now_next"
	ModePrepare Mode = "prepare"
)

// Run summarizes one task executed by the worker.
type Run struct {
	Mode      Mode          `json:"mode"`
	Frequency int           `json:"frequency,omitempty"`
	Channels  int           `json:"channels"`
	Fetched   int           `json:"fetched"`
	Inserted  int           `json:"inserted"`
	Skipped   bool          `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// Window is the prepared acquisition window in stream time plus the whole
// day offset applied to event times.
type Window struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	SkewDays int       `json:"skew_days"`
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithObserver registers a callback invoked after every task.
func WithObserver(observer func(Run)) WorkerOption {
	return func(w *Worker) {
		w.observer = observer
	}
}

type task struct {
	mode      Mode
	frequency int
}

// Worker executes acquisitions on one goroutine.
type Worker struct {
	epg      middleware.EpgControl
	sched    *Scheduler
	channels ChannelSource
	programs ProgramStore
	playback Playback
	logger   *slog.Logger
	observer func(Run)

	windowDays   int
	initialDelay time.Duration
	tasks        chan task

	mu       sync.Mutex
	window   Window
	prepared bool
	lastRun  Run

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker builds a worker. Start launches its goroutine.
func NewWorker(epgCtl middleware.EpgControl, sched *Scheduler, channels ChannelSource, programs ProgramStore, playback Playback, cfg config.EPG, logger *slog.Logger, opts ...WorkerOption) *Worker {
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 1
	}
	days := cfg.WindowDays
	if days <= 0 {
		days = 7
	}
	w := &Worker{
		epg:          epgCtl,
		sched:        sched,
		channels:     channels,
		programs:     programs,
		playback:     playback,
		logger:       logging.NewComponentLogger(logger, "epg"),
		windowDays:   days,
		initialDelay: time.Duration(cfg.InitialDelaySeconds) * time.Second,
		tasks:        make(chan task, queue),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Scheduler exposes the acquisition scheduler.
func (w *Worker) Scheduler() *Scheduler {
	return w.sched
}

// Listen subscribes the worker to middleware EPG notifications.
func (w *Worker) Listen() (unsubscribe func()) {
	return w.epg.SubscribeEPG(w.HandleNotification)
}

// Start launches the worker goroutine. The window is prepared after the
// configured initial delay.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Close stops the worker and waits for the running task to finish.
func (w *Worker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	delay := time.NewTimer(w.initialDelay)
	defer delay.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-delay.C:
			w.execute(ctx, task{mode: ModePrepare})
		case t := <-w.tasks:
			w.execute(ctx, t)
		}
	}
}

func (w *Worker) execute(ctx context.Context, t task) {
	var run Run
	switch t.mode {
	case ModePrepare:
		start := time.Now()
		_, err := w.Prepare(ctx)
		run = Run{Mode: ModePrepare, Duration: time.Since(start), Err: err}
	case ModeFull:
		run, _ = w.AcquireFull(ctx, t.frequency)
	case ModeNowNext:
		run, _ = w.AcquireNowNext(ctx)
	}
	w.mu.Lock()
	w.lastRun = run
	w.mu.Unlock()
	if w.observer != nil {
		w.observer(run)
	}
}

// HandleNotification queues the task a middleware notification calls for.
// It never blocks; when the queue is full the notification is dropped.
func (w *Worker) HandleNotification(n middleware.EpgNotification) {
	var t task
	switch n.Kind {
	case middleware.EpgScheduleAcquired:
		t = task{mode: ModeFull, frequency: n.Frequency}
	case middleware.EpgPresentFollowingAcquired:
		t = task{mode: ModeNowNext, frequency: n.Frequency}
	case middleware.EpgTimeDateChanged:
		t = task{mode: ModePrepare}
	default:
		return
	}
	if !w.Enqueue(t.mode, t.frequency) {
		logging.WarnWithContext(w.logger, "epg queue full; notification dropped", "epg_queue_full",
			logging.String("notification", n.Kind.String()),
			logging.Frequency(n.Frequency),
			logging.String(logging.FieldErrorHint, "raise epg.queue_size if this repeats"),
			logging.String(logging.FieldImpact, "guide data may be stale until the next notification"),
		)
	}
}

// Enqueue schedules a task without blocking. A zero frequency means the
// transponder of the active channel.
func (w *Worker) Enqueue(mode Mode, frequency int) bool {
	select {
	case w.tasks <- task{mode: mode, frequency: frequency}:
		return true
	default:
		return false
	}
}

// LastRun returns the most recent task summary.
func (w *Worker) LastRun() Run {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}

// CurrentWindow returns the prepared window, if any.
func (w *Worker) CurrentWindow() (Window, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.window, w.prepared
}

// Prepare computes the acquisition window from the stream clock: it starts
// at 00:00 of the current stream day and spans the configured number of
// days. The whole-day difference between the device clock and the stream
// clock is kept as the offset applied to event times.
func (w *Worker) Prepare(ctx context.Context) (Window, error) {
	streamNow, err := w.epg.StreamTime(ctx)
	if err != nil {
		err = services.Wrap(services.ErrMiddlewareComm, "epg", "prepare", "stream time unavailable", err)
		logging.WarnWithContext(w.logger, "epg window not prepared", "epg_prepare_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "tune a broadcast channel so the stream clock is received"),
			logging.String(logging.FieldImpact, "guide acquisition waits for the next time notification"),
		)
		return Window{}, err
	}
	deviceNow := w.sched.now()
	skew := int(deviceNow.Sub(streamNow).Round(24*time.Hour) / (24 * time.Hour))
	y, m, d := streamNow.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, streamNow.Location())
	win := Window{
		Start:    start,
		End:      start.Add(time.Duration(w.windowDays) * 24 * time.Hour),
		SkewDays: skew,
	}
	w.mu.Lock()
	w.window = win
	w.prepared = true
	w.mu.Unlock()
	w.logger.Info("epg window prepared",
		logging.Time("start", win.Start),
		logging.Time("end", win.End),
		logging.Int("skew_days", win.SkewDays),
	)
	return win, nil
}

func (w *Worker) ensureWindow(ctx context.Context) (Window, error) {
	if win, ok := w.CurrentWindow(); ok {
		return win, nil
	}
	return w.Prepare(ctx)
}

func (w *Worker) resolveFrequency(ctx context.Context, frequency int) (int, bool) {
	if frequency > 0 {
		return frequency, true
	}
	if w.playback == nil {
		return 0, false
	}
	return w.playback.CurrentTransponder(ctx)
}
