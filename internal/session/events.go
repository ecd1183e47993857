package session

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/chroma/internal/models"
)

// Outbound event names.
const (
	EventLobbyError   = "lobbyError"
	EventLobbyUpdated = "lobbyUpdated"
	EventRoundStarted = "roundStarted"
	EventTimerTick    = "timerTick"
	EventRoundEnded   = "roundEnded"
)

// Message is one outbound JSON object. The "type" key holds the event name.
type Message map[string]interface{}

// Type returns the event name of the message.
func (m Message) Type() string {
	t, _ := m["type"].(string)
	return t
}

// Conn is a single transport connection as seen by the core.
type Conn interface {
	ID() uuid.UUID
	// Send queues msg for delivery. It returns ErrConnClosed once the connection is gone.
	Send(msg Message) error
}

// LobbyError builds the unicast error event sent to a single requester.
func LobbyError(msg string) Message {
	return Message{"type": EventLobbyError, "message": msg}
}

func lobbyUpdated(s *models.Session) Message {
	return Message{"type": EventLobbyUpdated, "members": s.Members}
}

func roundStarted(target models.RoundTarget, remaining int) Message {
	return Message{
		"type":          EventRoundStarted,
		"targetName":    target.Name,
		"targetHex":     target.Hex,
		"timeRemaining": remaining,
	}
}

func timerTick(remaining int) Message {
	return Message{"type": EventTimerTick, "timeRemaining": remaining}
}

func roundEnded() Message {
	return Message{"type": EventRoundEnded}
}
