package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// ProgressSimulator produces a time-based completion percentage while a
// remote operation runs without a real progress channel.
//
// The percentage grows by Step every Interval and stops at Ceiling. Once
// Finish has been called and at least MinDuration has passed, it reports 100,
// waits Hold, and closes Done.
type ProgressSimulator struct {
	cfg    domain.ProgressSettings
	onTick func(percent int)

	startOnce  sync.Once
	finishOnce sync.Once
	finish     chan struct{}
	done       chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	percent int
	err     error
}

// NewProgressSimulator creates a simulator. onTick may be nil.
func NewProgressSimulator(cfg domain.ProgressSettings, onTick func(percent int)) *ProgressSimulator {
	defaults := domain.DefaultProgressSettings()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Step <= 0 {
		cfg.Step = defaults.Step
	}
	if cfg.Ceiling <= 0 || cfg.Ceiling >= 100 {
		cfg.Ceiling = defaults.Ceiling
	}

	return &ProgressSimulator{
		cfg:    cfg,
		onTick: onTick,
		finish: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins ticking. Calling Start more than once has no effect.
// Cancelling ctx behaves like Stop.
func (s *ProgressSimulator) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()
		go s.run(ctx)
	})
}

// Finish signals that the real operation completed.
func (s *ProgressSimulator) Finish() {
	s.finishOnce.Do(func() { close(s.finish) })
}

// Stop tears down the timers and waits for the ticking goroutine to exit.
// No callback runs after Stop returns. Stop must not be called from onTick.
func (s *ProgressSimulator) Stop() {
	// Do blocks while a concurrent Start runs, so cancel is set afterwards
	// unless the simulator was never started.
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.err = context.Canceled
		s.mu.Unlock()
		close(s.done)
	})

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.done
}

// Done is closed when the simulation completes or is stopped.
func (s *ProgressSimulator) Done() <-chan struct{} {
	return s.done
}

// Err returns context.Canceled if the simulation was stopped before
// completing, nil otherwise. Only meaningful after Done is closed.
func (s *ProgressSimulator) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Percent returns the last reported percentage.
func (s *ProgressSimulator) Percent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percent
}

func (s *ProgressSimulator) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	minElapsed := s.cfg.MinDuration <= 0
	var minTimer <-chan time.Time
	if !minElapsed {
		t := time.NewTimer(s.cfg.MinDuration)
		defer t.Stop()
		minTimer = t.C
	}

	finish := s.finish
	finished := false

	for !finished || !minElapsed {
		select {
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		case <-ticker.C:
			s.advance(ctx)
		case <-minTimer:
			minElapsed = true
		case <-finish:
			finished = true
			finish = nil
		}
	}

	ticker.Stop()
	s.report(ctx, 100)

	if s.cfg.Hold > 0 {
		hold := time.NewTimer(s.cfg.Hold)
		defer hold.Stop()
		select {
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		case <-hold.C:
		}
	}
}

// advance moves the percentage one step towards the ceiling.
func (s *ProgressSimulator) advance(ctx context.Context) {
	s.mu.Lock()
	next := s.percent + s.cfg.Step
	if next > s.cfg.Ceiling {
		next = s.cfg.Ceiling
	}
	s.mu.Unlock()

	s.report(ctx, next)
}

// report records percent and invokes the callback if it changed.
func (s *ProgressSimulator) report(ctx context.Context, percent int) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if percent <= s.percent {
		s.mu.Unlock()
		return
	}
	s.percent = percent
	s.mu.Unlock()

	if s.onTick != nil {
		s.onTick(percent)
	}
}

func (s *ProgressSimulator) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
