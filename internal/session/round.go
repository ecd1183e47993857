package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/sirupsen/logrus"
)

// Broadcaster delivers a message to every member of a session.
type Broadcaster interface {
	Broadcast(code string, msg Message) int
}

// RoundState is the live view of a running round.
type RoundState struct {
	Target        models.RoundTarget
	TimeRemaining int
	Active        bool
}

// RoundResult describes a round after its terminal transition.
type RoundResult struct {
	Code      string
	Target    models.RoundTarget
	Duration  int
	Cancelled bool
	EndedAt   time.Time
}

type round struct {
	code     string
	duration int
	state    RoundState // guarded by RoundScheduler.mu

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// RoundScheduler owns one countdown per session code.
//
// A round goes Idle -> Running -> Ended. While running it broadcasts timerTick
// once per interval; reaching zero or being cancelled broadcasts roundEnded
// exactly once and releases the entry for that code.
type RoundScheduler struct {
	mu     sync.Mutex
	rounds map[string]*round

	out      Broadcaster
	interval time.Duration
	onEnd    func(RoundResult)
	logger   *logrus.Logger
}

// SchedulerOption customizes a RoundScheduler.
type SchedulerOption func(*RoundScheduler)

// WithTickInterval overrides the one second tick, mostly for tests.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *RoundScheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRoundObserver registers fn to run after every round reaches Ended.
func WithRoundObserver(fn func(RoundResult)) SchedulerOption {
	return func(s *RoundScheduler) { s.onEnd = fn }
}

// NewRoundScheduler returns a scheduler that broadcasts through out.
func NewRoundScheduler(out Broadcaster, logger *logrus.Logger, opts ...SchedulerOption) *RoundScheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &RoundScheduler{
		rounds:   make(map[string]*round),
		out:      out,
		interval: time.Second,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start moves code from Idle to Running and broadcasts roundStarted. It returns
// ErrRoundInProgress, without side effects, if a round for code is already running.
func (s *RoundScheduler) Start(code string, seconds int, target models.RoundTarget) error {
	if seconds <= 0 {
		return fmt.Errorf("round duration must be positive, got %d", seconds)
	}

	s.mu.Lock()
	if _, running := s.rounds[code]; running {
		s.mu.Unlock()
		return ErrRoundInProgress
	}
	r := &round{
		code:     code,
		duration: seconds,
		state:    RoundState{Target: target, TimeRemaining: seconds, Active: true},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.rounds[code] = r
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"code": code, "target": target.Name, "seconds": seconds}).Info("round started")
	s.out.Broadcast(code, roundStarted(target, seconds))
	go s.run(r)
	return nil
}

// Cancel forces a running round to end now. Only the terminal roundEnded is
// broadcast. It blocks until the round has been released and reports whether
// a round was running.
func (s *RoundScheduler) Cancel(code string) bool {
	s.mu.Lock()
	r, ok := s.rounds[code]
	s.mu.Unlock()
	if !ok {
		return false
	}
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
	return true
}

// State returns a snapshot of the running round for code.
func (s *RoundScheduler) State(code string) (RoundState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[code]
	if !ok {
		return RoundState{}, false
	}
	return r.state, true
}

// Running reports whether a round for code is in progress.
func (s *RoundScheduler) Running(code string) bool {
	_, ok := s.State(code)
	return ok
}

// Shutdown cancels every running round.
func (s *RoundScheduler) Shutdown() {
	s.mu.Lock()
	codes := make([]string, 0, len(s.rounds))
	for code := range s.rounds {
		codes = append(codes, code)
	}
	s.mu.Unlock()

	for _, code := range codes {
		s.Cancel(code)
	}
}

func (s *RoundScheduler) run(r *round) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			s.finish(r, true)
			return
		case <-ticker.C:
			// a cancel that raced with this tick wins
			select {
			case <-r.stop:
				s.finish(r, true)
				return
			default:
			}

			s.mu.Lock()
			r.state.TimeRemaining--
			remaining := r.state.TimeRemaining
			s.mu.Unlock()

			s.out.Broadcast(r.code, timerTick(remaining))
			if remaining <= 0 {
				s.finish(r, false)
				return
			}
		}
	}
}

// finish broadcasts roundEnded before releasing the code, so a new Start for the
// same code cannot announce itself ahead of this round's terminal event. The
// state goes inactive first so no one is caught up on a round that is ending.
func (s *RoundScheduler) finish(r *round, cancelled bool) {
	s.mu.Lock()
	r.state.Active = false
	s.mu.Unlock()

	s.out.Broadcast(r.code, roundEnded())

	s.mu.Lock()
	if s.rounds[r.code] == r {
		delete(s.rounds, r.code)
	}
	target := r.state.Target
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"code": r.code, "cancelled": cancelled}).Info("round ended")
	close(r.done)

	if s.onEnd != nil {
		s.onEnd(RoundResult{
			Code:      r.code,
			Target:    target,
			Duration:  r.duration,
			Cancelled: cancelled,
			EndedAt:   time.Now(),
		})
	}
}
