package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestServeAndSend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ve.sock")
	srv, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, func(_ context.Context, msg ControlMessage) Reply {
			switch msg.Cmd {
			case CmdSay:
				return Reply{OK: true, Message: "heard " + msg.Text}
			default:
				return Reply{Message: "unknown command " + msg.Cmd}
			}
		})
	}()

	sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer scancel()

	r, err := Send(sctx, path, ControlMessage{Cmd: CmdSay, Text: "open chrome"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !r.OK || r.Message != "heard open chrome" {
		t.Fatalf("reply = %+v", r)
	}

	r, err = Send(sctx, path, ControlMessage{Cmd: "dance"})
	if err != nil || r.OK {
		t.Fatalf("reply = %+v, %v", r, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not stop")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("socket not removed: %v", err)
	}
}

func TestSlowHandlerStillReplies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ve.sock")
	srv, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	srv.ReadTimeout = 50 * time.Millisecond
	srv.WriteTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, func(_ context.Context, msg ControlMessage) Reply {
		// Longer than both socket timeouts, like an utterance waiting on
		// the model and a confirmation.
		time.Sleep(300 * time.Millisecond)
		return Reply{OK: true, Message: "sent " + msg.Text}
	})

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	r, err := Send(sctx, path, ControlMessage{Cmd: CmdSay, Text: "email jane"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !r.OK || r.Message != "sent email jane" {
		t.Fatalf("reply = %+v", r)
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ve.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	srv, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	srv.Close()
}

func TestSendWithoutDaemon(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "none.sock"), ControlMessage{Cmd: CmdTrigger})
	if err == nil {
		t.Fatalf("expected error")
	}
}
