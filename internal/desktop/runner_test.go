package desktop

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestLaunchArgv(t *testing.T) {
	cases := []struct {
		goos   string
		app    Application
		target string
		want   string
	}{
		{"linux", Application{"firefox", "/usr/share/applications/firefox.desktop"}, "https://google.com", "gtk-launch firefox https://google.com"},
		{"linux", Application{"code", "/usr/share/applications/code.desktop"}, "", "gtk-launch code"},
		{"darwin", Application{"Google Chrome", "/Applications/Google Chrome.app"}, "", "open -a /Applications/Google Chrome.app"},
		{"windows", Application{"Chrome", `C:\ProgramData\Chrome.lnk`}, "", `rundll32.exe url.dll,FileProtocolHandler C:\ProgramData\Chrome.lnk`},
	}
	for _, tc := range cases {
		r := NewRunner(time.Second)
		r.goos = tc.goos
		argv, err := r.launchArgv(tc.app, tc.target)
		if err != nil {
			t.Fatalf("%s %q: %v", tc.goos, tc.app.Name, err)
		}
		if got := strings.Join(argv, " "); got != tc.want {
			t.Errorf("%s %q: got %q want %q", tc.goos, tc.app.Name, got, tc.want)
		}
	}

	r := NewRunner(time.Second)
	r.goos = "windows"
	if _, err := r.launchArgv(Application{"Chrome", "Chrome.lnk"}, "https://a.example & calc"); err == nil {
		t.Fatal("windows launch with a target should be refused")
	}
}

// launchRunner records what would be started instead of starting it.
func launchRunner(apps ...Application) (*Runner, *[][]string) {
	var started [][]string
	r := NewRunner(time.Second)
	r.goos = "linux"
	r.apps = func() []Application { return apps }
	r.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		started = append(started, append([]string{name}, args...))
		return exec.CommandContext(ctx, "true")
	}
	return r, &started
}

func TestLaunchOnlyInstalledApplications(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip on windows")
	}
	victim := filepath.Join(t.TempDir(), "important.txt")
	if err := os.WriteFile(victim, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, started := launchRunner(Application{"firefox", "/usr/share/applications/firefox.desktop"})

	for _, name := range []string{"rm", "sh", "/usr/bin/rm", "firefox; rm"} {
		err := r.LaunchApplication(context.Background(), name, victim)
		if !errors.Is(err, ErrNotInstalled) {
			t.Errorf("%q: err = %v", name, err)
		}
	}
	if len(*started) != 0 {
		t.Fatalf("started %v", *started)
	}
	if _, err := os.Stat(victim); err != nil {
		t.Fatalf("file touched: %v", err)
	}

	if err := r.LaunchApplication(context.Background(), "Firefox", victim); err != nil {
		t.Fatalf("LaunchApplication: %v", err)
	}
	if got := strings.Join((*started)[0], " "); got != "gtk-launch firefox "+victim {
		t.Fatalf("argv = %q", got)
	}
}

func TestLaunchRejectsBadTargets(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip on windows")
	}
	r, started := launchRunner(Application{"firefox", "/usr/share/applications/firefox.desktop"})
	for _, target := range []string{"-rf", "--new-instance", "javascript:alert(1)", "file-that-does-not-exist.txt", "http://"} {
		err := r.LaunchApplication(context.Background(), "firefox", target)
		if !errors.Is(err, ErrBadTarget) {
			t.Errorf("%q: err = %v", target, err)
		}
	}
	if len(*started) != 0 {
		t.Fatalf("started %v", *started)
	}
	if err := r.LaunchApplication(context.Background(), "firefox", "https://example.com/a?b=c"); err != nil {
		t.Fatalf("url target: %v", err)
	}
}

func TestFindApplication(t *testing.T) {
	apps := []Application{
		{Name: "Google Chrome"},
		{Name: "org.gnome.Nautilus"},
		{Name: "visual-studio-code"},
	}
	cases := map[string]string{
		"google chrome":      "Google Chrome",
		"Visual Studio Code": "visual-studio-code",
		"nautilus":           "org.gnome.Nautilus",
		"rm":                 "",
		"":                   "",
	}
	for in, want := range cases {
		a, ok := FindApplication(apps, in)
		if ok != (want != "") || a.Name != want {
			t.Errorf("%q: got %q, %v", in, a.Name, ok)
		}
	}
}

func TestRunCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip on windows: echo is a shell builtin")
	}
	r := NewRunner(5 * time.Second)
	res, err := r.RunCommand(context.Background(), []string{"echo", "hello", "world"})
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if res.Output != "hello world" || res.ExitCode != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunCommandDoesNotUseShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip on windows")
	}
	r := NewRunner(5 * time.Second)
	res, err := r.RunCommand(context.Background(), []string{"echo", "$HOME", ";", "ls"})
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if res.Output != "$HOME ; ls" {
		t.Fatalf("output = %q", res.Output)
	}
}

func TestRunCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip on windows")
	}
	r := NewRunner(5 * time.Second)
	_, err := r.RunCommand(context.Background(), []string{"ls", filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if _, err := r.RunCommand(context.Background(), nil); err == nil {
		t.Fatalf("expected empty command error")
	}
}

func TestRunCommandTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip on windows")
	}
	r := NewRunner(50 * time.Millisecond)
	_, err := r.RunCommand(context.Background(), []string{"sleep", "5"})
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("err = %v", err)
	}
}

func TestListApplications(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	for _, f := range []string{"firefox.desktop", "gimp.desktop", "README"} {
		if err := os.WriteFile(filepath.Join(a, f), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(b, "firefox.desktop"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got := ListApplications([]string{a, b, filepath.Join(a, "nope")}, ".desktop", false)
	if strings.Join(got, ",") != "firefox,gimp" {
		t.Fatalf("got %v", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("\n\n  total 4\nfoo", 0); got != "total 4" {
		t.Fatalf("got %q", got)
	}
	if got := FirstLine("abcdef", 3); got != "abc…" {
		t.Fatalf("got %q", got)
	}
}
