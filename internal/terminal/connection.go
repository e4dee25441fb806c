// SPDX-License-Identifier: MPL-2.0

package terminal

import (
	"io"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jamesyoung-15/SudoOpsCode/internal/container"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
)

// connection is one streaming WebSocket<->PTY relay. writeMu serializes
// writes to the socket: the gorilla/websocket connection forbids
// concurrent writers, and both the relay goroutine and a caller-triggered
// close can attempt to write a close frame.
type connection struct {
	sessionID session.ID
	socket    *websocket.Conn
	stream    *container.HijackedStream

	writeMu sync.Mutex

	cleanupMu sync.Mutex
	cleanedUp bool
}

func (c *connection) writeBinary(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.WriteMessage(websocket.BinaryMessage, p)
}

func (c *connection) writeClose(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.socket.WriteMessage(websocket.CloseMessage, msg)
}

// cleanup is the single-shot teardown: the first caller to observe
// cleanedUp == false owns closing the stream and socket; every other
// caller (the two relay directions both detect failure independently)
// absorbs the call and returns.
func (c *connection) cleanup() {
	c.cleanupMu.Lock()
	alreadyCleanedUp := c.cleanedUp
	c.cleanedUp = true
	c.cleanupMu.Unlock()

	if alreadyCleanedUp {
		return
	}

	if c.stream != nil {
		_ = c.stream.Close()
	}
	_ = c.socket.Close()
}

// relaySocketToPTY copies bytes from the socket verbatim to the PTY,
// calling onActivity for every message received.
func (c *connection) relaySocketToPTY(onActivity func()) error {
	for {
		msgType, data, err := c.socket.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		onActivity()
		if _, err := c.stream.Conn.Write(data); err != nil {
			return err
		}
	}
}

// relayPTYToSocket copies bytes from the PTY verbatim to the socket.
// A failed socket write ends the relay and returns the write error; the
// gateway discards that error and tears the connection down.
func (c *connection) relayPTYToSocket() error {
	buf := make([]byte, 32*1024)
	for {
		n, err := c.stream.Reader.Read(buf)
		if n > 0 {
			if writeErr := c.writeBinary(buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
