// Package actions binds each Kind to the collaborator that carries it out.
package actions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"vocaleye/internal/desktop"
	"vocaleye/internal/dispatch"
	"vocaleye/internal/document"
	"vocaleye/internal/mail"
	"vocaleye/pkg/intent"
)

type Launcher interface {
	LaunchApplication(ctx context.Context, name, target string) error
}

type CommandRunner interface {
	RunCommand(ctx context.Context, argv []string) (desktop.Result, error)
}

type Opener interface {
	Open(ctx context.Context, path string) error
}

type Drafter interface {
	Email(ctx context.Context, to, subject, topic, sender string) (string, error)
	Document(ctx context.Context, topic string) (string, error)
}

type Recipients interface {
	Resolve(spoken string) (string, error)
}

type DocumentWriter interface {
	Write(content string, format document.Format, path, title string) (string, error)
}

const maxSpokenOutput = 120

// LaunchApp opens the named application.
func LaunchApp(l Launcher) dispatch.ExecutorFunc {
	return func(ctx context.Context, a intent.Action) (string, error) {
		app := a.Params.Get(intent.ParamApp)
		if err := l.LaunchApplication(ctx, app, a.Params.Get(intent.ParamTarget)); err != nil {
			return "", err
		}
		return "Opened " + app, nil
	}
}

// RunCommand runs the action's argv and reports the first line of output.
func RunCommand(r CommandRunner) dispatch.ExecutorFunc {
	return func(ctx context.Context, a intent.Action) (string, error) {
		argv, err := a.Argv()
		if err != nil {
			return "", err
		}
		res, err := r.RunCommand(ctx, argv)
		if err != nil {
			return "", err
		}
		if line := desktop.FirstLine(res.Output, maxSpokenOutput); line != "" {
			return line, nil
		}
		return "Command finished", nil
	}
}

// Email drafts a body for the action's topic and sends it to a resolved
// recipient.
type Email struct {
	Drafter    Drafter
	Sender     mail.Sender
	Recipients Recipients
	From       string
	FromName   string
}

func (e *Email) Execute(ctx context.Context, a intent.Action) (string, error) {
	if e.Sender == nil || e.From == "" {
		return "", errors.New("email is not configured")
	}

	spoken := a.Params.Get(intent.ParamTo)
	var (
		to  string
		err error
	)
	if e.Recipients != nil {
		to, err = e.Recipients.Resolve(spoken)
	} else {
		to, err = mail.Contacts(nil).Resolve(spoken)
	}
	if err != nil {
		return "", err
	}

	subject := a.Params.Get(intent.ParamSubject)
	sender := e.FromName
	if sender == "" {
		sender = e.From
	}
	body, err := e.Drafter.Email(ctx, to, subject, a.Params.Get(intent.ParamTopic), sender)
	if err != nil {
		return "", err
	}

	msg := mail.Message{From: e.From, FromName: e.FromName, To: to, Subject: subject, Body: body}
	if err := e.Sender.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return "Email sent to " + to, nil
}

// Document drafts content for the action's topic and writes it to disk,
// optionally opening the result.
type Document struct {
	Drafter Drafter
	Writer  DocumentWriter
	Opener  Opener
}

func (d *Document) Execute(ctx context.Context, a intent.Action) (string, error) {
	format, err := document.ParseFormat(a.Params.Get(intent.ParamFormat))
	if err != nil {
		return "", err
	}
	topic := a.Params.Get(intent.ParamTopic)

	content, err := d.Drafter.Document(ctx, topic)
	if err != nil {
		return "", err
	}
	path, err := d.Writer.Write(content, format, a.Params.Get(intent.ParamPath), topic)
	if err != nil {
		return "", err
	}

	summary := "Saved " + filepath.Base(path)
	if d.Opener != nil {
		if err := d.Opener.Open(ctx, path); err != nil {
			// The file exists; failing to show it does not undo that.
			return summary + ", but could not open it", nil
		}
	}
	return summary, nil
}

// Set holds the collaborators behind every executable kind.
type Set struct {
	Launcher Launcher
	Runner   CommandRunner
	Email    *Email
	Document *Document
}

// Executors returns the dispatcher's executor table. Kinds without a
// configured collaborator are left out and fail at dispatch.
func (s Set) Executors() map[intent.Kind]dispatch.Executor {
	m := make(map[intent.Kind]dispatch.Executor)
	if s.Launcher != nil {
		m[intent.KindLaunchApp] = LaunchApp(s.Launcher)
	}
	if s.Runner != nil {
		m[intent.KindRunCommand] = RunCommand(s.Runner)
	}
	if s.Email != nil {
		m[intent.KindComposeEmail] = s.Email
	}
	if s.Document != nil {
		m[intent.KindGenerateDocument] = s.Document
	}
	return m
}
