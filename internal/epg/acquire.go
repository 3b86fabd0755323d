package epg

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"tvcore/internal/logging"
	"tvcore/internal/middleware"
	"tvcore/internal/services"
	"tvcore/internal/store"
)

// AcquireFull sweeps the prepared window for every broadcast channel when
// the scheduler says frequency is due. A zero frequency means the active
// transponder.
func (w *Worker) AcquireFull(ctx context.Context, frequency int) (Run, error) {
	started := w.sched.now()
	run := Run{Mode: ModeFull}
	freq, ok := w.resolveFrequency(ctx, frequency)
	if !ok {
		run.Skipped = true
		w.logger.Debug("full acquisition skipped: no broadcast transponder tuned")
		return run, nil
	}
	run.Frequency = freq
	ctx = services.EnsureRequestID(ctx)
	logger := logging.WithContext(ctx, w.logger).With(logging.Frequency(freq))

	if !w.sched.TryBegin(freq) {
		run.Skipped = true
		logger.Debug("full acquisition not due")
		return run, nil
	}

	err := w.sweep(ctx, logger, &run)
	if err != nil {
		w.sched.Abandon(freq)
		run.Err = err
		run.Duration = w.sched.now().Sub(started)
		logging.WarnWithContext(logger, "full epg acquisition failed", "epg_full_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next schedule notification retries"),
			logging.String(logging.FieldImpact, "guide keeps previously stored programs"),
		)
		return run, err
	}
	if err := w.sched.OnAcquisitionFinished(ctx, freq); err != nil {
		logging.WarnWithContext(logger, "epg timestamp not persisted", "epg_timestamp_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "acquisition may repeat after restart"),
		)
	}
	run.Duration = w.sched.now().Sub(started)
	logger.Info("full epg acquisition finished",
		logging.Int("channels", run.Channels),
		logging.Int("fetched", run.Fetched),
		logging.Int("inserted", run.Inserted),
		logging.Duration("duration", run.Duration),
	)
	return run, nil
}

func (w *Worker) sweep(ctx context.Context, logger *slog.Logger, run *Run) error {
	win, err := w.ensureWindow(ctx)
	if err != nil {
		return err
	}
	handle, err := w.epg.CreateEventList(ctx)
	if err != nil {
		return services.Wrap(services.ErrMiddlewareComm, "epg", "create event list", "", err)
	}
	defer func() {
		if err := w.epg.ReleaseEventList(context.WithoutCancel(ctx), handle); err != nil {
			logger.Debug("release event list failed", logging.Error(err))
		}
	}()

	gen := w.channels.Generation()
	var programs []store.Program
	for _, ch := range w.channels.BroadcastChannels() {
		if ch.ServiceIndex < 0 {
			continue
		}
		run.Channels++
		fetched := w.fetchChannel(ctx, logger, handle, ch, win)
		run.Fetched += len(fetched)
		programs = append(programs, fetched...)
	}

	inserted, err := w.persist(ctx, logger, gen, programs)
	if err != nil {
		return err
	}
	run.Inserted = inserted

	cutoff := win.Start.AddDate(0, 0, win.SkewDays)
	if pruned, err := w.programs.PruneProgramsBefore(ctx, cutoff); err != nil {
		logger.Debug("prune old programs failed", logging.Error(err))
	} else if pruned > 0 {
		logger.Debug("pruned old programs", logging.Int64("count", pruned))
	}
	return nil
}

// fetchChannel applies the filters for one channel and reads every event.
// Failures are logged and yield whatever was read so far.
func (w *Worker) fetchChannel(ctx context.Context, logger *slog.Logger, handle int, ch store.Channel, win Window) []store.Program {
	chLogger := logger.With(logging.ChannelID(ch.ID))
	warn := func(step string, err error) {
		logging.WarnWithContext(chLogger, "epg channel skipped", "epg_channel_failed",
			logging.String("step", step),
			logging.Error(err),
			logging.String(logging.FieldImpact, "guide for this channel is not updated"),
		)
	}

	if err := w.epg.SetTimeFilter(ctx, handle, win.Start, win.End); err != nil {
		warn("time filter", err)
		return nil
	}
	if err := w.epg.SetServiceFilter(ctx, handle, ch.ServiceIndex); err != nil {
		warn("service filter", err)
		return nil
	}
	if err := w.epg.StartAcquisition(ctx, handle); err != nil {
		warn("start acquisition", err)
		return nil
	}
	defer func() {
		if err := w.epg.StopAcquisition(context.WithoutCancel(ctx), handle); err != nil {
			chLogger.Debug("stop acquisition failed", logging.Error(err))
		}
	}()

	count, err := w.epg.EventCount(ctx, handle)
	if err != nil {
		warn("event count", err)
		return nil
	}
	programs := make([]store.Program, 0, count)
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		ev, err := w.epg.Event(ctx, handle, i)
		if err != nil {
			chLogger.Debug("event unreadable", logging.Int("index", i), logging.Error(err))
			continue
		}
		if extended, err := w.epg.ExtendedDescription(ctx, handle, i); err == nil && strings.TrimSpace(extended) != "" {
			ev.Description = extended
		}
		if p, ok := toProgram(ch.ID, ev, win.SkewDays); ok {
			programs = append(programs, p)
		}
	}
	return programs
}

// AcquireNowNext stores the present and following events of the active
// channel. It is refused only while a full acquisition of the same frequency
// runs and never touches the acquisition timestamps.
func (w *Worker) AcquireNowNext(ctx context.Context) (Run, error) {
	started := w.sched.now()
	run := Run{Mode: ModeNowNext}
	if w.playback == nil {
		run.Skipped = true
		return run, nil
	}
	ch, ok := w.playback.Channel()
	if !ok || ch.IsIP() || ch.ServiceIndex < 0 {
		run.Skipped = true
		return run, nil
	}
	gen := w.channels.Generation()
	if !listed(w.channels.BroadcastChannels(), ch) {
		run.Skipped = true
		w.logger.Debug("now/next skipped: playing channel no longer listed", logging.ChannelID(ch.ID))
		return run, nil
	}
	logger := w.logger.With(logging.ChannelID(ch.ID))
	freq, _ := w.resolveFrequency(ctx, 0)
	run.Frequency = freq
	if freq > 0 && w.sched.InProgress(freq) {
		run.Skipped = true
		w.logger.Debug("now/next refused while full acquisition runs", logging.Frequency(freq))
		return run, nil
	}

	present, following, err := w.epg.PresentFollowing(ctx, ch.ServiceIndex)
	if err != nil {
		run.Err = services.Wrap(services.ErrMiddlewareComm, "epg", "present following", ch.Name, err)
		logging.WarnWithContext(logger, "now/next unavailable", "epg_now_next_failed",
			logging.Error(run.Err),
			logging.String(logging.FieldImpact, "now/next banner may be stale"),
		)
		return run, run.Err
	}
	skew := 0
	if win, ok := w.CurrentWindow(); ok {
		skew = win.SkewDays
	}
	run.Channels = 1
	var programs []store.Program
	for _, ev := range []*middleware.EpgEvent{present, following} {
		if ev == nil {
			continue
		}
		run.Fetched++
		if p, ok := toProgram(ch.ID, *ev, skew); ok {
			programs = append(programs, p)
		}
	}
	inserted, err := w.persist(ctx, logger, gen, programs)
	if err != nil {
		run.Err = err
		return run, run.Err
	}
	run.Inserted = inserted
	run.Duration = w.sched.now().Sub(started)
	return run, nil
}

// persist stores programs read while the channel list was at gen. Programs
// the database rejects are logged and skipped.
func (w *Worker) persist(ctx context.Context, logger *slog.Logger, gen uint64, programs []store.Program) (int, error) {
	if len(programs) == 0 {
		return 0, nil
	}
	var batch store.ProgramBatch
	current, err := w.channels.WithGeneration(gen, func() error {
		var insertErr error
		batch, insertErr = w.programs.InsertPrograms(ctx, programs)
		return insertErr
	})
	if err != nil {
		return 0, services.Wrap(services.ErrInvalidOperation, "epg", "store programs", "", err)
	}
	if !current {
		return 0, services.Wrap(services.ErrInvalidOperation, "epg", "store programs", "channel list replaced during acquisition", nil)
	}
	if batch.Rejected > 0 {
		logging.WarnWithContext(logger, "epg programs rejected", "epg_programs_rejected",
			logging.Int("rejected", batch.Rejected),
			logging.Error(batch.FirstRejection),
			logging.String(logging.FieldImpact, "rejected programs are missing from the guide"),
		)
	}
	return batch.Inserted, nil
}

// listed reports whether ch is still in channels under the same id and
// service.
func listed(channels []store.Channel, ch store.Channel) bool {
	for _, c := range channels {
		if c.ID == ch.ID {
			return c.ServiceIndex == ch.ServiceIndex && c.Name == ch.Name
		}
	}
	return false
}

// toProgram converts a middleware event, shifting it by skewDays. Events
// whose end is not after their start are rejected.
func toProgram(channelID int64, ev middleware.EpgEvent, skewDays int) (store.Program, bool) {
	start := ev.Start.AddDate(0, 0, skewDays)
	end := ev.End.AddDate(0, 0, skewDays)
	if !end.After(start) {
		return store.Program{}, false
	}
	return store.Program{
		ChannelID:   channelID,
		Title:       strings.TrimSpace(ev.Name),
		Description: strings.TrimSpace(ev.Description),
		Start:       start.Truncate(time.Second),
		End:         end.Truncate(time.Second),
		Rating:      Rating(ev.ParentalRating),
		Genre:       Genre(ev.Genre),
	}, true
}
