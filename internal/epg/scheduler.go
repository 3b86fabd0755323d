package epg

import (
	"context"
	"sort"
	"sync"
	"time"

	"tvcore/internal/services"
)

// TimestampStore persists the last finished acquisition per frequency.
type TimestampStore interface {
	AcquisitionTimes(ctx context.Context) (map[int]time.Time, error)
	RecordAcquisition(ctx context.Context, frequency int, at time.Time) error
}

// Acquisition is the scheduler's view of one frequency.
type Acquisition struct {
	Frequency    int       `json:"frequency" csv:"frequency"`
	LastAcquired time.Time `json:"last_acquired" csv:"last_acquired"`
	InProgress   bool      `json:"in_progress" csv:"in_progress"`
	Fresh        bool      `json:"fresh" csv:"fresh"`
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock used for freshness decisions.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler gates acquisitions per frequency.
type Scheduler struct {
	store  TimestampStore
	window time.Duration
	now    func() time.Time

	mu         sync.Mutex
	last       map[int]time.Time
	inProgress map[int]bool
}

// NewScheduler loads persisted timestamps and returns a ready scheduler.
func NewScheduler(ctx context.Context, st TimestampStore, window time.Duration, opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		store:      st,
		window:     window,
		now:        time.Now,
		inProgress: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	last, err := st.AcquisitionTimes(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidOperation, "epg", "load timestamps", "", err)
	}
	if last == nil {
		last = make(map[int]time.Time)
	}
	s.last = last
	return s, nil
}

// Window is the freshness window.
func (s *Scheduler) Window() time.Duration {
	return s.window
}

// ShouldAcquire reports whether an acquisition for frequency is due.
func (s *Scheduler) ShouldAcquire(frequency int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dueLocked(frequency)
}

func (s *Scheduler) dueLocked(frequency int) bool {
	if s.inProgress[frequency] {
		return false
	}
	last, ok := s.last[frequency]
	if !ok {
		return true
	}
	return s.now().Sub(last) >= s.window
}

// OnAcquisitionStarted marks frequency as being acquired.
func (s *Scheduler) OnAcquisitionStarted(frequency int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inProgress[frequency] = true
}

// TryBegin checks and marks in one step. It reports false when the
// acquisition is not due.
func (s *Scheduler) TryBegin(frequency int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dueLocked(frequency) {
		return false
	}
	s.inProgress[frequency] = true
	return true
}

// OnAcquisitionFinished records now as the last acquisition of frequency and
// persists it. The in-memory record is updated even when persisting fails.
func (s *Scheduler) OnAcquisitionFinished(ctx context.Context, frequency int) error {
	s.mu.Lock()
	at := s.now()
	s.last[frequency] = at
	delete(s.inProgress, frequency)
	s.mu.Unlock()

	if err := s.store.RecordAcquisition(ctx, frequency, at); err != nil {
		return services.Wrap(services.ErrInvalidOperation, "epg", "record timestamp", "", err)
	}
	return nil
}

// Abandon clears the in-progress mark without recording a timestamp.
func (s *Scheduler) Abandon(frequency int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inProgress, frequency)
}

// InProgress reports whether an acquisition for frequency is running.
func (s *Scheduler) InProgress(frequency int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress[frequency]
}

// Snapshot lists every known frequency in ascending order.
func (s *Scheduler) Snapshot() []Acquisition {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	seen := make(map[int]bool, len(s.last)+len(s.inProgress))
	out := make([]Acquisition, 0, len(s.last)+len(s.inProgress))
	add := func(freq int) {
		if seen[freq] {
			return
		}
		seen[freq] = true
		last := s.last[freq]
		out = append(out, Acquisition{
			Frequency:    freq,
			LastAcquired: last,
			InProgress:   s.inProgress[freq],
			Fresh:        !last.IsZero() && now.Sub(last) < s.window,
		})
	}
	for freq := range s.last {
		add(freq)
	}
	for freq := range s.inProgress {
		add(freq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Frequency < out[j].Frequency })
	return out
}
