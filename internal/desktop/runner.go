// Package desktop launches applications and runs commands on the host.
package desktop

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

var (
	ErrNotInstalled = errors.New("application is not installed")
	ErrBadTarget    = errors.New("target must be a web address or an existing file")
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxOutput = 4096
)

// Result is the captured result of one command.
type Result struct {
	Argv     []string
	Output   string
	ExitCode int
	Duration time.Duration
}

// Runner starts processes. Parameters are expected to be validated already.
type Runner struct {
	Timeout   time.Duration
	MaxOutput int

	goos    string
	apps    func() []Application
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Runner{
		Timeout:   timeout,
		MaxOutput: defaultMaxOutput,
		goos:      runtime.GOOS,
		apps:      Installed,
		command:   exec.CommandContext,
	}
}

// LaunchApplication starts an installed application (optionally opening
// target with it) and returns without waiting for it to exit. Only entries
// of the installed-application inventory can be launched; target must be
// an http(s) or mailto address or an existing file.
func (r *Runner) LaunchApplication(ctx context.Context, name, target string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("empty application name")
	}
	app, ok := FindApplication(r.apps(), name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}
	target, err := checkTarget(strings.TrimSpace(target))
	if err != nil {
		return err
	}
	argv, err := r.launchArgv(app, target)
	if err != nil {
		return err
	}
	return r.detach(app.Name, argv)
}

// Open hands path to the desktop's default handler.
func (r *Runner) Open(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return r.detach(abs, r.openArgv(abs))
}

// checkTarget returns target in a form no launcher can read as an option.
func checkTarget(target string) (string, error) {
	if target == "" {
		return "", nil
	}
	if strings.HasPrefix(target, "-") {
		return "", fmt.Errorf("%w: %q", ErrBadTarget, target)
	}
	if u, err := url.Parse(target); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			if u.Host != "" {
				return target, nil
			}
		case "mailto":
			if u.Opaque != "" {
				return target, nil
			}
		}
	}
	path := target
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadTarget, target)
	}
	return filepath.Abs(path)
}

func (r *Runner) detach(name string, argv []string) error {
	// The launched app outlives this call, so it is not bound to ctx.
	cmd := r.command(context.Background(), argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	log.Info("Launched", "app", name, "argv", argv, "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("Launched process exited", "app", name, "err", err)
		}
	}()
	return nil
}

func (r *Runner) openArgv(path string) []string {
	switch r.goos {
	case "darwin":
		return []string{"open", path}
	case "windows":
		return []string{"rundll32.exe", "url.dll,FileProtocolHandler", path}
	default:
		return []string{"xdg-open", path}
	}
}

func (r *Runner) launchArgv(app Application, target string) ([]string, error) {
	var argv []string
	switch r.goos {
	case "darwin":
		argv = []string{"open", "-a", app.Path}
		if target != "" {
			argv = append(argv, target)
		}
	case "windows":
		// Shortcuts open through the shell handler, which takes no
		// extra arguments.
		if target != "" {
			return nil, fmt.Errorf("opening %s with %s is not supported on windows", target, app.Name)
		}
		argv = []string{"rundll32.exe", "url.dll,FileProtocolHandler", app.Path}
	default:
		argv = []string{"gtk-launch", app.Name}
		if target != "" {
			argv = append(argv, target)
		}
	}
	return argv, nil
}

// RunCommand runs argv directly, never through a shell, and waits for it.
func (r *Runner) RunCommand(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return Result{}, errors.New("empty command")
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := r.command(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()

	res := Result{
		Argv:     append([]string(nil), argv...),
		Output:   truncate(strings.TrimSpace(string(out)), r.MaxOutput),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("command timeout after %s", timeout)
	}
	if err != nil {
		if res.Output != "" {
			return res, fmt.Errorf("%s: %w: %s", argv[0], err, lastLine(res.Output))
		}
		return res, fmt.Errorf("%s: %w", argv[0], err)
	}
	return res, nil
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// FirstLine returns the first non-empty line of s, cut to max runes.
func FirstLine(s string, max int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); max > 0 && len(r) > max {
			return string(r[:max]) + "…"
		}
		return line
	}
	return ""
}
