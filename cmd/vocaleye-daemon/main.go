package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	log "log/slog"

	"vocaleye/internal/app"
	"vocaleye/internal/ipc"
	"vocaleye/internal/listen"
	"vocaleye/internal/listen/mic"
	"vocaleye/internal/listen/whisper"
	"vocaleye/internal/notify"
	"vocaleye/pkg/intent"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configFile := cli.StringP("config", "c", "", "Config file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks Proxy Address")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Parse()

	app.SetupLogger(*logLevel)
	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := &listen.Listener{}
	a, err := app.New(ctx, app.Options{
		EnvFile:    *envFile,
		ConfigFile: *configFile,
		Proxy:      *proxyAddr,
		Listener:   listener,
		Speak:      true,
	})
	if err != nil {
		log.Error("Failed to boot", "err", err)
		os.Exit(1)
	}
	defer a.Close()
	s := a.Config.Settings()

	ep := listen.DefaultEndpointConfig()
	if s.Speech.SilenceRMS > 0 {
		ep.SilenceRMS = s.Speech.SilenceRMS
	}
	if s.Speech.MaxLength > 0 {
		ep.MaxLength = s.Speech.MaxLength
	}
	rec := mic.NewRecorder(ep)
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()
	log.Debug("Loaded recorder")

	tr, err := whisper.NewTranscriber(s.Speech.WhisperModel, whisper.Options{Language: s.Speech.Language})
	if err != nil {
		log.Error("Failed to init whisper", "model", s.Speech.WhisperModel, "err", err)
		os.Exit(1)
	}
	defer tr.Close()
	log.Debug("Loaded whisper")

	listener.Recorder = rec
	listener.Transcriber = tr
	listener.Cue = notify.NewChime(s.Speech.Chime)
	if s.Speech.Duck {
		listener.Ducker = listen.NewPulseDucker([]string{"vocaleye"})
	}

	srv, err := ipc.Listen(*socket)
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	log.Info("Boot up - successful", "socket", srv.Path())

	d := &daemon{app: a, listener: listener}
	if err := srv.Serve(ctx, d.handle); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	log.Info("Shutting down")
}

type daemon struct {
	app      *app.App
	listener *listen.Listener

	listening atomic.Bool
}

func (d *daemon) handle(ctx context.Context, msg ipc.ControlMessage) ipc.Reply {
	switch msg.Cmd {
	case ipc.CmdTrigger:
		// A fresh trigger answers a pending spoken question with "no".
		d.app.Gate.Preempt()
		if !d.listening.CompareAndSwap(false, true) {
			return ipc.Reply{Message: "already listening"}
		}
		go d.trigger(ctx)
		return ipc.Reply{OK: true, Message: "listening"}
	case ipc.CmdCancel:
		if d.app.Session.Cancel() {
			return ipc.Reply{OK: true, Message: "cancelled"}
		}
		return ipc.Reply{OK: true, Message: "nothing to cancel"}
	case ipc.CmdReload:
		if err := d.app.Reload(); err != nil {
			return ipc.Reply{Message: err.Error()}
		}
		return ipc.Reply{OK: true, Message: "reloaded"}
	case ipc.CmdSay:
		o, err := d.app.Session.HandleFrom(ctx, "socket", intent.NewTranscript(msg.Text))
		if err != nil {
			return ipc.Reply{Message: err.Error()}
		}
		return ipc.Reply{OK: o.Status == intent.StatusExecuted, Message: o.String()}
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Reply{Message: "unknown command " + msg.Cmd}
	}
}

func (d *daemon) trigger(ctx context.Context) {
	defer d.listening.Store(false)

	lctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	t, err := d.listener.Listen(lctx)
	cancel()
	if errors.Is(err, listen.ErrNoSpeech) {
		log.Info("No speech")
		return
	}
	if err != nil {
		log.Error("Failed to listen", "err", err)
		return
	}
	log.Info("Transcribed", "text", t.Text, "confidence", t.Confidence)

	if _, err := d.app.Session.HandleFrom(ctx, "voice", t); err != nil {
		log.Info("Utterance produced no action", "err", err)
	}
}
