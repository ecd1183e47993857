package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/chroma/internal/models"
)

// recordingConn collects every message instead of writing to a socket.
type recordingConn struct {
	id uuid.UUID

	mu     sync.Mutex
	msgs   []Message
	closed bool
}

func newRecordingConn() *recordingConn {
	return &recordingConn{id: uuid.New()}
}

func (c *recordingConn) ID() uuid.UUID { return c.id }

func (c *recordingConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

func (c *recordingConn) all() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *recordingConn) ofType(typ string) []Message {
	var out []Message
	for _, m := range c.all() {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

func (c *recordingConn) last(typ string) Message {
	msgs := c.ofType(typ)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// sequence returns a generator yielding codes in order, repeating the last one.
func sequence(codes ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c
	}
}

// flakyStore wraps a Store and counts or fails replaces on demand.
type flakyStore struct {
	Store

	mu          sync.Mutex
	replaces    int
	failReplace bool
	failFind    bool
}

var errStoreDown = errors.New("store unavailable")

func (f *flakyStore) FindByCode(ctx context.Context, code string) (*models.Session, error) {
	f.mu.Lock()
	fail := f.failFind
	f.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return f.Store.FindByCode(ctx, code)
}

func (f *flakyStore) Replace(ctx context.Context, code string, s *models.Session) error {
	f.mu.Lock()
	f.replaces++
	fail := f.failReplace
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.Store.Replace(ctx, code, s)
}

func (f *flakyStore) setFailReplace(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReplace = v
}

func (f *flakyStore) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaces
}
