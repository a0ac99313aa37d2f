// Package devserver is the thin external collaborator spec.md §1/§6
// allows for "HTTP dev server": it does not serve any files or run an
// HTTP static-file handler (still out of scope — that's §1's explicit
// Non-goal), it only upgrades WebSocket connections and broadcasts the
// changed-module notifications a live-reload client needs after an
// internal/watch-triggered incremental build.
//
// Grounded on bennypowers-cem's serve/websocket.go: the same
// connection-map-plus-mutex broadcaster shape and origin-check upgrader,
// trimmed to the two message kinds this core emits (a "reload" message
// per changed output carrying its path and hash, and an "error" message
// for a failed build) instead of that file's full per-page-URL targeting and
// graceful-shutdown protocol, since this package has no HTTP routing
// layer of its own to coordinate shutdown with.
package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tpack-go/tpack/internal/build"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ReloadMessage is broadcast to every connected client after a build
// completes; Path identifies the bundle and Hash lets the client skip a
// reload it's already seen.
type ReloadMessage struct {
	Type  string `json:"type"`
	Path  string `json:"path"`
	Hash  string `json:"hash"`
	MD5   string `json:"md5"`
	Error string `json:"error,omitempty"`
}

// Notifier broadcasts GeneratedModule changes to connected live-reload
// clients over WebSocket. It has no knowledge of how or when a build
// runs; a caller (internal/watch's OnReset callback, or a CLI dev
// command) calls Notify after each rebuild.
type Notifier struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates an empty Notifier.
func New() *Notifier {
	return &Notifier{conns: make(map[*websocket.Conn]struct{})}
}

// HandleConnection upgrades r to a WebSocket and registers it to receive
// future Notify broadcasts until the client disconnects.
func (n *Notifier) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.conns[conn] = struct{}{}
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.conns, conn)
		n.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Notify broadcasts one ReloadMessage per GeneratedModule in outs.
func (n *Notifier) Notify(outs []build.GeneratedModule) {
	for _, out := range outs {
		n.broadcast(ReloadMessage{
			Type: "reload",
			Path: out.Path,
			Hash: formatHash(out.Hash),
			MD5:  out.MD5,
		})
	}
}

// NotifyError broadcasts a build failure so a connected client can
// surface it instead of silently missing a reload.
func (n *Notifier) NotifyError(err error) {
	n.broadcast(ReloadMessage{Type: "error", Error: err.Error()})
}

func (n *Notifier) broadcast(msg ReloadMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		return
	}

	n.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(n.conns))
	for c := range n.conns {
		conns = append(conns, c)
	}
	n.mu.RUnlock()

	var dead []*websocket.Conn
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, body); err != nil {
			dead = append(dead, c)
		}
	}
	if len(dead) == 0 {
		return
	}
	n.mu.Lock()
	for _, c := range dead {
		delete(n.conns, c)
	}
	n.mu.Unlock()
}

func formatHash(h uint64) string {
	return strconv.FormatUint(h, 16)
}
