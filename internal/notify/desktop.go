package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

var errNoNotifier = errors.New("no desktop notifier for this platform")

// Desktop posts notifications through the platform's notifier.
type Desktop struct {
	Expire time.Duration

	goos    string
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewDesktop() *Desktop {
	return &Desktop{Expire: 4 * time.Second, goos: runtime.GOOS, command: exec.CommandContext}
}

func (d *Desktop) argv(title, text string) ([]string, error) {
	switch d.goos {
	case "linux", "freebsd", "openbsd":
		return []string{"notify-send", "-a", title, "-t", strconv.Itoa(int(d.Expire / time.Millisecond)), title, text}, nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(text), strconv.Quote(title))
		return []string{"osascript", "-e", script}, nil
	default:
		return nil, errNoNotifier
	}
}

func (d *Desktop) Show(ctx context.Context, title, text string) error {
	argv, err := d.argv(title, text)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if out, err := d.command(ctx, argv[0], argv[1:]...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, out)
	}
	return nil
}
