package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/spf13/pflag"

	log "log/slog"

	"vocaleye/internal/app"
	"vocaleye/internal/credentials"
	"vocaleye/internal/listen/voicenote"
	"vocaleye/internal/listen/whisper"
	"vocaleye/pkg/intent"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configFile := cli.StringP("config", "c", "", "Config file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks Proxy Address")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	file := cli.StringP("file", "f", "", "Voice note to transcribe instead of text arguments")
	speak := cli.Bool("speak", false, "Read the outcome aloud")
	set := cli.String("set", "", "Store a credential read from stdin in the env file, e.g. --set SMTP_PASSWORD")
	cli.Parse()

	app.SetupLogger(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *set != "" {
		if err := storeCredential(ctx, credentials.NewEnvStore(*envFile), *set); err != nil {
			log.Error("Failed to store credential", "name", *set, "err", err)
			os.Exit(1)
		}
		return
	}

	a, err := app.New(ctx, app.Options{
		EnvFile:    *envFile,
		ConfigFile: *configFile,
		Proxy:      *proxyAddr,
		Confirm:    "console",
		Speak:      *speak,
	})
	if err != nil {
		log.Error("Failed to boot", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	t, err := transcript(ctx, a, *file, cli.Args())
	if err != nil {
		log.Error("No input", "err", err)
		os.Exit(2)
	}

	o, err := a.Session.Handle(ctx, t)
	if err != nil {
		if errors.Is(err, intent.ErrEmptyInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
	if o.Status != intent.StatusExecuted {
		os.Exit(1)
	}
}

func transcript(ctx context.Context, a *app.App, file string, args []string) (intent.Transcript, error) {
	if file == "" {
		if len(args) == 0 {
			return intent.Transcript{}, errors.New("say something: vocaleye open firefox")
		}
		return intent.NewTranscript(strings.Join(args, " ")), nil
	}

	pcm, err := voicenote.Decode(file)
	if err != nil {
		return intent.Transcript{}, err
	}
	s := a.Config.Settings().Speech
	tr, err := whisper.NewTranscriber(s.WhisperModel, whisper.Options{Language: s.Language})
	if err != nil {
		return intent.Transcript{}, err
	}
	defer tr.Close()
	return tr.Transcribe(ctx, pcm)
}

func storeCredential(ctx context.Context, store credentials.Writable, name string) error {
	fmt.Fprintf(os.Stderr, "%s: ", name)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return err
	}
	value := credentials.Secret(strings.TrimSpace(line))
	if value == "" {
		return errors.New("empty value")
	}
	if err := store.Set(ctx, name, value); err != nil {
		return err
	}
	log.Info("Stored credential", "name", name, "value", value)
	return nil
}
