// Package gateway implements the platform capability interfaces over the
// chat platform's real-time WebSocket gateway. Commands are correlated with
// their results by nonce; pushed events are fanned out to response waiters
// and the member-join channel.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

const (
	dialTimeout       = 10 * time.Second
	heartbeatInterval = 30 * time.Second
	joinBuffer        = 64
)

var ErrClosed = errors.New("gateway connection closed")

// CommandError is a command the gateway rejected, with its error code.
type CommandError struct {
	Op      string
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("gateway %s rejected (%s): %s", e.Op, e.Code, e.Message)
}

// MemberJoin announces a member joining the community.
type MemberJoin struct {
	Member *Member
}

// Client is a connected gateway session. It is safe for concurrent use; each
// verification session holds its own response waiter.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]chan frame
	waiters map[*waiter]struct{}

	joins  chan MemberJoin
	closed chan struct{}
	once   sync.Once
}

// waiter collects the first pushed message passing its filter.
type waiter struct {
	filter platform.MessageFilter
	ch     chan platform.Message
}

// Dial connects to the gateway, identifies with the bot token, and starts the
// read loop.
func Dial(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[string]chan frame),
		waiters: make(map[*waiter]struct{}),
		joins:   make(chan MemberJoin, joinBuffer),
		closed:  make(chan struct{}),
	}

	go c.readLoop()
	go c.heartbeat()

	if _, err := c.request(ctx, opIdentify, identifyPayload{Token: token}); err != nil {
		c.Close()
		return nil, fmt.Errorf("identify: %w", err)
	}

	logger.Info("gateway connected", "url", url)
	return c, nil
}

// Joins returns the stream of member-join events. The channel is closed when
// the connection is.
func (c *Client) Joins() <-chan MemberJoin {
	return c.joins
}

// Close terminates the gateway connection. In-flight requests and response
// waits fail with ErrClosed. The joins channel is closed by the read loop
// once it drains.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.conn.Close(websocket.StatusNormalClosure, "shutting down")
	})
	return err
}

// Member returns a handle for a community member.
func (c *Client) Member(userID, username string) *Member {
	return &Member{c: c, userID: userID, username: username}
}

// TextChannel returns a handle for a persistent text channel. Text channel
// messages can be edited and deleted.
func (c *Client) TextChannel(channelID string) *TextChannel {
	return &TextChannel{destination{c: c, channelID: channelID}}
}

func (c *Client) request(ctx context.Context, op string, payload interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", op, err)
	}

	nonce := uuid.NewString()
	reply := make(chan frame, 1)

	c.mu.Lock()
	c.pending[nonce] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, nonce)
		c.mu.Unlock()
	}()

	out, err := json.Marshal(frame{Op: op, Nonce: nonce, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", op, err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, out); err != nil {
		return nil, fmt.Errorf("write %s: %w", op, err)
	}

	select {
	case f := <-reply:
		if !f.OK {
			return nil, &CommandError{Op: op, Code: f.Code, Message: f.Error}
		}
		return f.Data, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// awaitMessage blocks until one pushed message passes the filter, the timeout
// elapses (nil, nil), or the context or connection ends.
func (c *Client) awaitMessage(ctx context.Context, filter platform.MessageFilter, timeout time.Duration) (*platform.Message, error) {
	w := &waiter{filter: filter, ch: make(chan platform.Message, 1)}

	c.mu.Lock()
	c.waiters[w] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.waiters, w)
		c.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-w.ch:
		return &msg, nil
	case <-timer.C:
		return nil, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop() {
	// The read loop is the only sender on joins, so it owns the close.
	defer close(c.joins)

	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.logger.Error("gateway read failed", "error", err)
				c.Close()
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("dropping malformed gateway frame", "error", err)
			continue
		}

		switch f.Op {
		case opResult:
			c.dispatchResult(f)
		case opEvent:
			c.dispatchEvent(f)
		default:
			c.logger.Debug("ignoring unknown gateway op", "op", f.Op)
		}
	}
}

func (c *Client) dispatchResult(f frame) {
	c.mu.Lock()
	reply, ok := c.pending[f.Nonce]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("result for unknown nonce", "nonce", f.Nonce)
		return
	}
	reply <- f
}

func (c *Client) dispatchEvent(f frame) {
	switch f.Event {
	case eventMessageCreate:
		var msg platform.Message
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			c.logger.Warn("malformed message_create event", "error", err)
			return
		}
		c.deliver(msg)
	case eventMemberJoin:
		var join memberJoinEvent
		if err := json.Unmarshal(f.Data, &join); err != nil {
			c.logger.Warn("malformed member_join event", "error", err)
			return
		}
		select {
		case c.joins <- MemberJoin{Member: c.Member(join.UserID, join.Username)}:
		default:
			c.logger.Warn("join queue full, dropping member_join",
				"user_id", join.UserID)
		}
	default:
		c.logger.Debug("ignoring unknown gateway event", "event", f.Event)
	}
}

// deliver hands the message to every waiter whose filter accepts it. Waiter
// channels are buffered for a single message; extras for an already-satisfied
// waiter are dropped.
func (c *Client) deliver(msg platform.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for w := range c.waiters {
		if !w.filter(msg) {
			continue
		}
		select {
		case w.ch <- msg:
		default:
		}
	}
}

func (c *Client) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				select {
				case <-c.closed:
				default:
					c.logger.Error("gateway heartbeat failed", "error", err)
					c.Close()
				}
				return
			}
		}
	}
}
