package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PresenceRouter maps session codes to the connections subscribed to them.
type PresenceRouter struct {
	mu          sync.RWMutex
	groups      map[string]map[uuid.UUID]Conn
	memberships map[uuid.UUID]map[string]struct{}
	logger      *logrus.Logger
}

// NewPresenceRouter returns an empty router.
func NewPresenceRouter(logger *logrus.Logger) *PresenceRouter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PresenceRouter{
		groups:      make(map[string]map[uuid.UUID]Conn),
		memberships: make(map[uuid.UUID]map[string]struct{}),
		logger:      logger,
	}
}

// Subscribe adds conn to the broadcast group of code. Subscribing twice is a no-op.
func (p *PresenceRouter) Subscribe(code string, conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	group, ok := p.groups[code]
	if !ok {
		group = make(map[uuid.UUID]Conn)
		p.groups[code] = group
	}
	group[conn.ID()] = conn

	codes, ok := p.memberships[conn.ID()]
	if !ok {
		codes = make(map[string]struct{})
		p.memberships[conn.ID()] = codes
	}
	codes[code] = struct{}{}
}

// Unsubscribe removes the connection from every group it belongs to and returns
// the codes it was removed from.
func (p *PresenceRouter) Unsubscribe(id uuid.UUID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	codes := p.memberships[id]
	left := make([]string, 0, len(codes))
	for code := range codes {
		p.removeLocked(code, id)
		left = append(left, code)
	}
	delete(p.memberships, id)
	return left
}

// Broadcast delivers msg to every connection subscribed to code and returns how
// many accepted it. Connections that fail are dropped from the group.
func (p *PresenceRouter) Broadcast(code string, msg Message) int {
	p.mu.RLock()
	targets := make([]Conn, 0, len(p.groups[code]))
	for _, conn := range p.groups[code] {
		targets = append(targets, conn)
	}
	p.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(msg); err != nil {
			p.logger.WithFields(logrus.Fields{
				"code": code,
				"conn": conn.ID(),
				"type": msg.Type(),
			}).Debugf("dropping connection from broadcast group: %v", err)
			p.drop(code, conn.ID())
			continue
		}
		delivered++
	}
	return delivered
}

// SendTo delivers msg to a single connection.
func (p *PresenceRouter) SendTo(conn Conn, msg Message) error {
	return conn.Send(msg)
}

// Count returns how many connections are subscribed to code.
func (p *PresenceRouter) Count(code string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.groups[code])
}

func (p *PresenceRouter) drop(code string, id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(code, id)
	if codes, ok := p.memberships[id]; ok {
		delete(codes, code)
		if len(codes) == 0 {
			delete(p.memberships, id)
		}
	}
}

// removeLocked assumes p.mu is held for writing.
func (p *PresenceRouter) removeLocked(code string, id uuid.UUID) {
	group, ok := p.groups[code]
	if !ok {
		return
	}
	delete(group, id)
	if len(group) == 0 {
		delete(p.groups, code)
	}
}
