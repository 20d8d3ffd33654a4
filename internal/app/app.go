// Package app assembles the assistant from configuration. The binaries
// under cmd/ differ only in how utterances reach it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"vocaleye/internal/actions"
	"vocaleye/internal/assistant"
	"vocaleye/internal/config"
	"vocaleye/internal/credentials"
	"vocaleye/internal/desktop"
	"vocaleye/internal/dispatch"
	"vocaleye/internal/document"
	"vocaleye/internal/feedback"
	"vocaleye/internal/journal"
	"vocaleye/internal/mail"
	"vocaleye/internal/metrics"
	"vocaleye/internal/nlu"
	"vocaleye/internal/normalize"
	"vocaleye/internal/notify"
	"vocaleye/internal/policy"
	"vocaleye/internal/proxy"
	"vocaleye/internal/tts"
	"vocaleye/pkg/intent"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// SetupLogger installs the colored default logger.
func SetupLogger(level string) {
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[strings.ToLower(level)],
	})))
}

type Options struct {
	EnvFile    string
	ConfigFile string
	Proxy      string

	// Confirm overrides confirm.mode from the settings.
	Confirm string
	// Listener hears spoken confirmations. Without it voice mode falls
	// back to the console.
	Listener feedback.Listener
	// Speak disables text to speech when false.
	Speak bool

	Stdin  io.Reader
	Stdout io.Writer
}

// App is a running assistant and everything it owns.
type App struct {
	Config   *config.Config
	Policies *policy.Store
	Session  *assistant.Session
	Gate     *assistant.Gate
	Feedback *feedback.Feedback
	Metrics  *metrics.Recorder
	Journal  *journal.SQLite

	closers []func() error
}

// New loads settings and credentials and builds the pipeline.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to load env file", "file", opts.EnvFile, "err", err)
		}
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	s := cfg.Settings()
	log.Debug("Loaded config", "file", cfg.File())

	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	creds := credentialStore(ctx, opts.EnvFile, s.Vault)

	apiKey := credentials.Lookup(ctx, creds, "OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	log.Debug("Loaded API Key", "key", apiKey)

	httpClient, err := proxy.NewHTTPClient(opts.Proxy, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to dial socks proxy %s: %w", opts.Proxy, err)
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey.Reveal()),
		option.WithHTTPClient(httpClient),
	}
	if s.Resolver.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(s.Resolver.BaseURL))
	}
	provider := nlu.NewOpenAIProvider(openai.NewClient(clientOpts...), s.Resolver.Model)

	a.Metrics = metrics.New(s.Metrics)
	resolver := nlu.NewResolver(provider, nlu.Config{
		Timeout:         s.Resolver.Timeout,
		BreakerFailures: s.Resolver.BreakerFailures,
		BreakerCooldown: s.Resolver.BreakerCooldown,
		Applications:    desktop.Applications(),
		OnBreakerChange: a.Metrics.BreakerOpen,
	})
	drafter := nlu.NewDrafter(provider, s.Resolver.DraftTimeout)

	pol, err := s.Policy()
	if err != nil {
		return nil, err
	}
	a.Policies = policy.NewStore(pol)
	log.Info("Capability policy", "policy", pol.String())

	a.Feedback = newFeedback(a, s, opts)

	runner := desktop.NewRunner(s.CommandTTL)
	docs := &actions.Document{Drafter: drafter, Writer: document.NewWriter(s.Documents.Dir)}
	if s.Documents.Open {
		docs.Opener = runner
	}
	set := actions.Set{
		Launcher: runner,
		Runner:   runner,
		Email:    newEmail(ctx, creds, s.Mail, drafter),
		Document: docs,
	}

	gate := assistant.NewGate(confirmer(s, opts, a.Feedback))
	a.Gate = gate
	d := dispatch.New(a.Policies, gate, set.Executors(), dispatch.Options{
		ConfirmTimeout: s.Confirm.Timeout,
		Observer:       a.observe,
	})

	deps := assistant.Deps{
		Normalizer:  normalizer(s),
		Resolver:    resolver,
		Dispatcher:  d,
		Feedback:    a.Feedback,
		Metrics:     a.Metrics,
		Gate:        gate,
		HistorySize: s.Resolver.HistorySize,
	}
	if s.Journal != "" {
		j, err := journal.Open(s.Journal)
		if err != nil {
			return nil, err
		}
		a.Journal = j
		a.closers = append(a.closers, j.Close)
		deps.Journal = j
	}
	a.Session = assistant.New(deps)

	cfg.Watch(func(s config.Settings) {
		if err := a.applyPolicy(s); err != nil {
			log.Error("Policy not updated", "err", err)
		}
	})

	ok = true
	return a, nil
}

// Reload re-reads settings and swaps in the new capability policy.
func (a *App) Reload() error {
	s, err := a.Config.Reload()
	if err != nil {
		return err
	}
	return a.applyPolicy(s)
}

func (a *App) applyPolicy(s config.Settings) error {
	p, err := s.Policy()
	if err != nil {
		return err
	}
	a.Policies.Swap(p)
	log.Info("Capability policy updated", "policy", p.String())
	return nil
}

func (a *App) observe(act intent.Action, from, to dispatch.State) {
	log.Debug("Dispatch", "action", act.ID, "from", from, "to", to)
	if a.Feedback != nil {
		a.Feedback.Publish(context.Background(), feedback.StateEvent(act, string(to)))
	}
}

// Close releases everything New opened. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("Close failed", "err", err)
		}
	}
	a.closers = nil
}

func credentialStore(ctx context.Context, envFile string, v config.Vault) credentials.Store {
	env := credentials.NewEnvStore(envFile)
	if v.Address == "" {
		return env
	}
	token := credentials.Lookup(ctx, env, "VAULT_TOKEN")
	vs, err := credentials.NewVaultStore(v.Address, token, v.Mount, v.Path)
	if err != nil {
		log.Warn("Vault disabled", "addr", v.Address, "err", err)
		return env
	}
	return credentials.Chain{env, vs}
}

func normalizer(s config.Settings) *normalize.Normalizer {
	wake, fillers := s.WakeWords, s.Fillers
	if len(wake) == 0 {
		wake = normalize.DefaultWakeWords
	}
	if len(fillers) == 0 {
		fillers = normalize.DefaultFillers
	}
	return normalize.New(wake, fillers)
}

func newFeedback(a *App, s config.Settings, opts Options) *feedback.Feedback {
	var sp feedback.Speaker
	if opts.Speak {
		e, err := tts.New(s.Speech.Voice, s.Speech.Rate)
		if err != nil {
			log.Warn("Text to speech disabled", "err", err)
		} else {
			sp = e
			a.closers = append(a.closers, e.Close)
		}
	}

	var pub feedback.Publisher
	if s.Bus != "" {
		bus, err := feedback.NewStatusBus(s.Bus, 0)
		if err != nil {
			log.Warn("Status bus disabled", "url", s.Bus, "err", err)
		} else {
			pub = bus
			a.closers = append(a.closers, bus.Close)
		}
	}

	return feedback.New(sp, pub, feedback.NewConsole(opts.Stdout), notify.NewDesktop())
}

func confirmer(s config.Settings, opts Options, fb *feedback.Feedback) dispatch.Confirmer {
	mode := s.Confirm.Mode
	if opts.Confirm != "" {
		mode = opts.Confirm
	}
	if mode == "voice" && opts.Listener != nil {
		return &feedback.VoiceConfirmer{Feedback: fb, Listener: opts.Listener}
	}
	return feedback.NewConsoleConfirmer(opts.Stdin, opts.Stdout)
}

func newEmail(ctx context.Context, creds credentials.Store, m config.Mail, drafter actions.Drafter) *actions.Email {
	e := &actions.Email{
		Drafter:    drafter,
		Recipients: mail.NewContacts(m.Contacts),
		From:       m.From,
		FromName:   m.FromName,
	}
	if e.From == "" {
		e.From = credentials.Lookup(ctx, creds, "SENDER_EMAIL").Reveal()
	}

	switch m.Provider {
	case "sendgrid":
		key := credentials.Lookup(ctx, creds, "SENDGRID_API_KEY")
		if key == "" {
			log.Warn("SENDGRID_API_KEY not set, email disabled")
			return e
		}
		e.Sender = mail.NewSendGridSender(key)
	default:
		password := credentials.Lookup(ctx, creds, "SMTP_PASSWORD")
		if password == "" {
			password = credentials.Lookup(ctx, creds, "SENDER_PASSWORD")
		}
		if password == "" {
			log.Warn("SMTP password not set, email disabled")
			return e
		}
		user := m.Username
		if user == "" {
			user = e.From
		}
		e.Sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:        m.Host,
			Port:        m.Port,
			Username:    user,
			Password:    password,
			ImplicitTLS: m.ImplicitTLS,
		})
	}
	return e
}
