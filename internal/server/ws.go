package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chaz8081/stt-demo/internal/pipeline"
)

// Commands accepted on the WebSocket.
const (
	CmdStart    = "start"
	CmdStop     = "stop"
	CmdPause    = "pause"
	CmdResume   = "resume"
	CmdClear    = "clear"
	CmdBackend  = "backend"
	CmdLanguage = "language"
)

// Command is an inbound control message.
type Command struct {
	Command string `json:"command"`
	Value   string `json:"value,omitempty"`
}

// Reply acknowledges a Command.
type Reply struct {
	Type    string `json:"type"` // always "reply"
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// conn serialises writes to one WebSocket connection.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &conn{ws: ws}
	events, cancel := s.ctrl.Subscribe(subscriberBuffer)
	s.logger.Info("feed client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go s.writeLoop(c, events, done)

	s.readLoop(c)

	cancel()
	<-done
	ws.Close()
	s.logger.Info("feed client disconnected", "remote", r.RemoteAddr)
}

// writeLoop forwards events and keeps the connection alive until the
// subscription is cancelled.
func (s *Server) writeLoop(c *conn, events <-chan pipeline.Event, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.writeJSON(ev); err != nil {
				s.logger.Debug("feed write failed", "error", err)
				c.ws.Close()
				drain(events)
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.ws.Close()
				drain(events)
				return
			}
		}
	}
}

// drain discards events until the subscription is closed.
func drain(events <-chan pipeline.Event) {
	for range events {
	}
}

func (s *Server) readLoop(c *conn) {
	c.ws.SetReadLimit(4096)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := c.ws.ReadJSON(&cmd); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("feed read ended", "error", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		reply := Reply{Type: "reply", Command: cmd.Command, OK: true}
		if err := s.execute(s.baseCtx, cmd); err != nil {
			reply.OK = false
			reply.Error = err.Error()
			s.logger.Warn("feed command failed", "command", cmd.Command, "error", err)
		}
		if err := c.writeJSON(reply); err != nil {
			return
		}
	}
}

// execute runs one client command against the controller.
func (s *Server) execute(ctx context.Context, cmd Command) error {
	value := strings.TrimSpace(cmd.Value)
	switch cmd.Command {
	case CmdStart:
		// The pipeline outlives the server context so Stop can drain it.
		return s.ctrl.Start(context.WithoutCancel(ctx))
	case CmdStop:
		return s.ctrl.Stop()
	case CmdPause:
		return s.ctrl.Pause()
	case CmdResume:
		return s.ctrl.Resume()
	case CmdClear:
		s.ctrl.ClearHistory()
		return nil
	case CmdBackend:
		if value == "" {
			return errors.New("backend name required")
		}
		return s.ctrl.SetBackend(value)
	case CmdLanguage:
		if value == "" {
			return errors.New("language required")
		}
		return s.ctrl.SetLanguage(value)
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}
}
