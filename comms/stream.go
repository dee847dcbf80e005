package comms

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

// ServeCommands reads Cmd frames from conn and answers each with a Reply
// until the peer goes away.
func (c *Conductor) ServeCommands(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return closeErr(err)
		}

		reply := c.ProcessMessage(ctx, msg)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			return err
		}
	}
}

// ServeState pushes every state update to conn until ctx is done or the peer
// closes.
func (c *Conductor) ServeState(ctx context.Context, conn *websocket.Conn) error {
	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	// the peer never sends anything, reading only notices it leaving
	gone := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				gone <- closeErr(err)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-gone:
			return err
		case state := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(state); err != nil {
				return err
			}
		}
	}
}

func closeErr(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}
