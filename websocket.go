package main

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// CommandSocketHandler takes a stream of Cmd frames, one Reply per frame.
func CommandSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ENV.Log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ENV.Log.Infow("command stream opened", "remote", conn.RemoteAddr().String())
	if err := ENV.Conductor.ServeCommands(r.Context(), conn); err != nil {
		ENV.Log.Infow("command stream closed", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

// StateSocketHandler streams vehicle state until the client leaves.
func StateSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ENV.Log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if err := ENV.Conductor.ServeState(r.Context(), conn); err != nil {
		ENV.Log.Infow("state stream closed", "remote", conn.RemoteAddr().String(), "error", err)
	}
}
