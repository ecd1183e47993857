package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultRoundSeconds is the length of a round.
const DefaultRoundSeconds = 60

// Coordinator handles inbound lobby events and decides what gets broadcast.
// Operations on the same session code run one at a time; different codes run
// concurrently.
type Coordinator struct {
	registry *Registry
	router   *PresenceRouter
	rounds   *RoundScheduler
	locks    *keyedMutex

	palette      []models.RoundTarget
	pickTarget   func([]models.RoundTarget) models.RoundTarget
	roundSeconds int

	logger *logrus.Logger
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRoundSeconds sets the countdown length of every round.
func WithRoundSeconds(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.roundSeconds = n
		}
	}
}

// WithPalette replaces the list round targets are drawn from.
func WithPalette(p []models.RoundTarget) CoordinatorOption {
	return func(c *Coordinator) {
		if len(p) > 0 {
			c.palette = p
		}
	}
}

// WithTargetPicker replaces the random choice of round target.
func WithTargetPicker(fn func([]models.RoundTarget) models.RoundTarget) CoordinatorOption {
	return func(c *Coordinator) { c.pickTarget = fn }
}

// NewCoordinator wires the registry, router and scheduler together.
func NewCoordinator(registry *Registry, router *PresenceRouter, rounds *RoundScheduler, logger *logrus.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Coordinator{
		registry:     registry,
		router:       router,
		rounds:       rounds,
		locks:        newKeyedMutex(),
		palette:      DefaultPalette,
		pickTarget:   RandomTarget,
		roundSeconds: DefaultRoundSeconds,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession creates an empty session. Nothing is broadcast.
func (c *Coordinator) CreateSession(ctx context.Context) (*models.Session, error) {
	s, err := c.registry.Create(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("code", s.Code).Info("session created")
	return s, nil
}

// GetSession returns the current session state or ErrNotFound.
func (c *Coordinator) GetSession(ctx context.Context, code string) (*models.Session, error) {
	return c.registry.Get(ctx, code)
}

// Join adds username to the session if absent, subscribes conn and broadcasts
// the member list. Joining again under the same username changes nothing.
func (c *Coordinator) Join(ctx context.Context, conn Conn, username, code string) error {
	unlock := c.locks.Lock(code)
	defer unlock()

	s, err := c.registry.Mutate(ctx, code, func(s *models.Session) bool {
		if s.MemberIndex(username) >= 0 {
			return false
		}
		s.Members = append(s.Members, models.Player{Username: username, Color: models.NeutralGray})
		return true
	})
	if err != nil {
		return c.fail(conn, code, "Failed to join lobby", err)
	}

	c.router.Subscribe(code, conn)
	c.router.Broadcast(code, lobbyUpdated(s))
	c.logger.WithFields(logrus.Fields{
		"code":     code,
		"conn":     conn.ID(),
		"username": username,
		"host":     s.Host(),
	}).Info("player joined")

	// bring a late joiner up to date with a round already in progress
	if st, running := c.rounds.State(code); running && st.Active && st.TimeRemaining > 0 {
		_ = c.router.SendTo(conn, roundStarted(st.Target, st.TimeRemaining))
	}
	return nil
}

// UpdateColor sets the color of username. Unknown usernames are ignored, but the
// member list is broadcast either way.
func (c *Coordinator) UpdateColor(ctx context.Context, conn Conn, username, code string, color models.Color) error {
	unlock := c.locks.Lock(code)
	defer unlock()

	s, err := c.registry.Mutate(ctx, code, func(s *models.Session) bool {
		i := s.MemberIndex(username)
		if i < 0 {
			return false
		}
		s.Members[i].Color = color
		return true
	})
	if err != nil {
		return c.fail(conn, code, "Failed to update color", err)
	}

	c.router.Broadcast(code, lobbyUpdated(s))
	return nil
}

// StartRound picks a target, records it as the session's target color and starts
// the countdown. A start while a round is running is a no-op. The caller is not
// checked against the host.
func (c *Coordinator) StartRound(ctx context.Context, conn Conn, code string) error {
	unlock := c.locks.Lock(code)
	defer unlock()

	if c.rounds.Running(code) {
		c.logger.WithField("code", code).Debug("ignoring start, round already running")
		return nil
	}

	target := c.pickTarget(c.palette)
	rgb, err := target.Color()
	if err != nil {
		return fmt.Errorf("round target %q: %w", target.Name, err)
	}

	_, err = c.registry.Mutate(ctx, code, func(s *models.Session) bool {
		if s.TargetColor == rgb {
			return false
		}
		s.TargetColor = rgb
		return true
	})
	if err != nil {
		return c.fail(conn, code, "Failed to start round", err)
	}

	if err := c.rounds.Start(code, c.roundSeconds, target); err != nil {
		if errors.Is(err, ErrRoundInProgress) {
			return nil
		}
		return err
	}
	return nil
}

// Disconnect removes conn from every broadcast group. The player stays a member
// of the session, and a running round is left to expire on its own.
func (c *Coordinator) Disconnect(conn Conn) {
	codes := c.router.Unsubscribe(conn.ID())
	c.logger.WithFields(logrus.Fields{
		"conn":  conn.ID(),
		"codes": codes,
	}).Info("connection left")
}

// Shutdown ends every running round.
func (c *Coordinator) Shutdown() {
	c.rounds.Shutdown()
}

// fail reports err to the requesting connection only. A missing session is an
// expected outcome and is not returned as an error.
func (c *Coordinator) fail(conn Conn, code, msg string, err error) error {
	if errors.Is(err, ErrNotFound) {
		_ = c.router.SendTo(conn, LobbyError("Lobby not found"))
		return nil
	}
	_ = c.router.SendTo(conn, LobbyError(msg))
	return fmt.Errorf("session %s: %w", code, err)
}
