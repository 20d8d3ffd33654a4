package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vocaleye/pkg/intent"
)

func TestFlushWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocaleye.prom")
	r := New(path)

	a, _ := intent.NewAction(intent.KindLaunchApp, intent.Params{intent.ParamApp: "Chrome"}, intent.NewTranscript("open chrome"), 0.9)
	r.Utterance("voice")
	r.Utterance("voice")
	r.Resolved(300*time.Millisecond, "ok")
	r.Outcome(intent.Executed(a, "Opened Chrome"), time.Second)
	r.Outcome(intent.Failed(a, errors.New("boom")), time.Second)
	r.BreakerOpen(true)

	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`vocaleye_utterances_total{source="voice"} 2`,
		`vocaleye_outcomes_total{kind="LaunchApp",reason="none",status="executed"} 1`,
		`vocaleye_outcomes_total{kind="LaunchApp",reason="none",status="failed"} 1`,
		`vocaleye_resolve_seconds_count{result="ok"} 1`,
		`vocaleye_provider_breaker_open 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

func TestFlushDisabled(t *testing.T) {
	if err := New("").Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
