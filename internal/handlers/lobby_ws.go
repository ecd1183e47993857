// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/chroma/internal/middleware"
	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/jason-s-yu/chroma/internal/session"
	"github.com/sirupsen/logrus"
)

const (
	outQueueSize    = 32
	writeTimeout    = 5 * time.Second
	pingInterval    = 30 * time.Second
	pingTimeout     = 15 * time.Second
	operationBudget = 5 * time.Second
)

// lobbyPacket is an inbound client event. lobbyCode is accepted as an alias of code.
type lobbyPacket struct {
	Type      string        `json:"type"`
	Username  string        `json:"username"`
	Code      string        `json:"code"`
	LobbyCode string        `json:"lobbyCode"`
	Color     *models.Color `json:"color"`
}

func (p lobbyPacket) code() string {
	if p.Code != "" {
		return normalizeCode(p.Code)
	}
	return normalizeCode(p.LobbyCode)
}

// lobbyConn is one WebSocket client as seen by the session core.
type lobbyConn struct {
	id      uuid.UUID
	outChan chan session.Message
	// slow is closed when outChan overflows.
	slow chan struct{}

	mu     sync.Mutex
	closed bool
}

func newLobbyConn() *lobbyConn {
	return &lobbyConn{
		id:      uuid.New(),
		outChan: make(chan session.Message, outQueueSize),
		slow:    make(chan struct{}),
	}
}

func (c *lobbyConn) ID() uuid.UUID { return c.id }

// Send queues msg without blocking. A full queue marks the client as too slow
// and the write pump closes the socket.
func (c *lobbyConn) Send(msg session.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrConnClosed
	}
	select {
	case c.outChan <- msg:
		return nil
	default:
		c.closed = true
		close(c.slow)
		return session.ErrConnClosed
	}
}

func (c *lobbyConn) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// originHosts turns ALLOWED_ORIGINS entries into the host patterns websocket.Accept matches on.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" || !strings.Contains(o, "://") {
			hosts = append(hosts, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

// LobbyWSHandler upgrades to a WebSocket and feeds client events to the coordinator
// until the client goes away.
func LobbyWSHandler(logger *logrus.Logger, coord *session.Coordinator, allowedOrigins []string) http.HandlerFunc {
	patterns := originHosts(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: patterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.CloseNow()

		conn := newLobbyConn()
		middleware.LogWebSocketConnect(logger, conn.id, r.RemoteAddr)
		err = serveLobbyConn(r.Context(), c, conn, coord, logger)
		middleware.LogWebSocketDisconnect(logger, conn.id, r.RemoteAddr, err)
	}
}

// serveLobbyConn runs the pumps for one accepted socket until it closes. ctx ends
// with the server; the socket is then closed with StatusGoingAway.
func serveLobbyConn(ctx context.Context, c *websocket.Conn, conn *lobbyConn, coord *session.Coordinator, logger *logrus.Logger) error {
	readDone := make(chan struct{})
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		writePump(ctx, c, conn, readDone, logger)
	}()

	// Read gets a context of its own: cancelling a Read context drops the TCP
	// connection without a close frame. Close from the write pump ends it instead.
	readErr := readPump(ctx, c, conn, coord, logger)
	close(readDone)
	<-writeDone

	conn.markClosed()
	coord.Disconnect(conn)
	return readErr
}

// readPump decodes client events and dispatches them one at a time. It returns
// the error that ended the connection; a normal close yields nil.
func readPump(ctx context.Context, c *websocket.Conn, conn *lobbyConn, coord *session.Coordinator, logger *logrus.Logger) error {
	for {
		typ, msg, err := c.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("Lobby: non-text message type %d from conn %v ignored", typ, conn.id)
			continue
		}

		var packet lobbyPacket
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("Lobby: invalid json from conn %v: %v", conn.id, err)
			_ = conn.Send(session.LobbyError("Invalid JSON format"))
			continue
		}

		opCtx, cancel := context.WithTimeout(ctx, operationBudget)
		err = handleLobbyMessage(opCtx, packet, conn, coord)
		cancel()
		if err != nil {
			logger.WithFields(logrus.Fields{
				"conn": conn.id,
				"type": packet.Type,
				"code": packet.code(),
			}).Errorf("lobby event failed: %v", err)
		}
	}
}

// handleLobbyMessage routes a packet by its "type" field.
func handleLobbyMessage(ctx context.Context, p lobbyPacket, conn *lobbyConn, coord *session.Coordinator) error {
	code := p.code()
	switch p.Type {
	case "joinLobby":
		if p.Username == "" || code == "" {
			return conn.Send(session.LobbyError("username and code are required"))
		}
		return coord.Join(ctx, conn, p.Username, code)
	case "updateColor":
		if p.Color == nil || code == "" {
			return conn.Send(session.LobbyError("code and color are required"))
		}
		return coord.UpdateColor(ctx, conn, p.Username, code, *p.Color)
	case "startRound", "startGame":
		if code == "" {
			return conn.Send(session.LobbyError("code is required"))
		}
		return coord.StartRound(ctx, conn, code)
	default:
		return conn.Send(session.LobbyError(fmt.Sprintf("Unknown event type: %s", p.Type)))
	}
}

// writePump drains the connection's queue onto the socket and keeps it alive with
// pings. It owns closing the socket for server shutdown and slow consumers, and
// returns once the read pump has finished.
func writePump(ctx context.Context, c *websocket.Conn, conn *lobbyConn, readDone <-chan struct{}, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			c.Close(websocket.StatusGoingAway, "server shutting down")
			<-readDone
			return
		case <-conn.slow:
			logger.Warnf("Lobby: conn %v outbound queue full, closing", conn.id)
			c.Close(SlowConsumerError, "client too slow")
			<-readDone
			return
		case msg := <-conn.outChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Lobby: failed to marshal outgoing %q for conn %v: %v", msg.Type(), conn.id, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Lobby: failed to write to conn %v: %v", conn.id, err)
				c.CloseNow()
				<-readDone
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Lobby: ping to conn %v failed: %v", conn.id, err)
				c.CloseNow()
				<-readDone
				return
			}
		}
	}
}
