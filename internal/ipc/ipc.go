// Package ipc is the daemon's unix control socket: one JSON request and one
// JSON reply per connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const DefaultSocketPath = "/tmp/vocaleye.sock"

const (
	CmdTrigger = "trigger" // record and handle one utterance
	CmdCancel  = "cancel"  // cancel the in-flight utterance
	CmdReload  = "reload"  // re-read settings
	CmdSay     = "say"     // handle Text as if it had been spoken
)

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Reply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Handler func(ctx context.Context, msg ControlMessage) Reply

// Server deadlines bound reading the request and writing the reply. The
// handler itself is not bounded here; it may run a whole utterance.
type Server struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	path string
	ln   net.Listener
}

const defaultIOTimeout = 10 * time.Second

// Listen replaces any stale socket at path.
func Listen(path string) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, err
	}
	return &Server{ReadTimeout: defaultIOTimeout, WriteTimeout: defaultIOTimeout, path: path, ln: ln}, nil
}

func (s *Server) Path() string { return s.path }

// Serve accepts connections until ctx is cancelled, then closes the socket.
func (s *Server) Serve(ctx context.Context, h Handler) error {
	var wg sync.WaitGroup
	stop := context.AfterFunc(ctx, func() { s.ln.Close() })
	defer stop()
	defer os.Remove(s.path)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				wg.Wait()
				return err
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn, h)
		}()
	}
}

func (s *Server) Close() error { return s.ln.Close() }

func (s *Server) handleConn(ctx context.Context, conn net.Conn, h Handler) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Debug("Bad control message", "err", err)
		_ = conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
		_ = json.NewEncoder(conn).Encode(Reply{Message: "bad request"})
		return
	}
	log.Debug("Control message", "cmd", msg.Cmd)

	reply := h(ctx, msg)
	_ = conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Debug("Reply failed", "err", err)
	}
}

// Send delivers msg to the daemon listening at path and waits for its reply.
func Send(ctx context.Context, path string, msg ControlMessage) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, err
	}
	var r Reply
	if err := json.NewDecoder(conn).Decode(&r); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return r, nil
}
