package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type ConnInfo struct {
	ConnID      string
	UserID      uuid.UUID
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// frameWriter is the write side of a *websocket.Conn.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one websocket connection of a user. Writes are serialized so
// the hub and the read loop may both send frames.
type Client struct {
	conn frameWriter
	info ConnInfo

	writeMu sync.Mutex
	// guarded by Hub.mu
	channels map[string]struct{}
}

func NewClient(conn frameWriter, info ConnInfo) *Client {
	if info.ConnID == "" {
		info.ConnID = newConnID()
	}
	return &Client{conn: conn, info: info, channels: make(map[string]struct{})}
}

func (c *Client) Info() ConnInfo { return c.info }

func (c *Client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Close()
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
