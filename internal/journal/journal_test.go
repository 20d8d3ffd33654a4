package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"vocaleye/pkg/intent"
)

func TestRecordAndRecent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "sub", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()
	ctx := context.Background()

	a, _ := intent.NewAction(intent.KindLaunchApp, intent.Params{intent.ParamApp: "Chrome"}, intent.NewTranscript("open chrome"), 0.9)
	b, _ := intent.NewAction(intent.KindRunCommand, intent.Params{intent.ParamCommand: "false"}, intent.NewTranscript("run false"), 0.9)

	if err := j.Record(ctx, "open chrome", intent.Executed(a, "Opened Chrome")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Record(ctx, "run false", intent.Failed(b, errors.New("exit status 1"))); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Record(ctx, "rm everything", intent.Rejected(b, intent.ReasonPolicyDenied, "")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Status != intent.StatusRejected || got[0].Reason != intent.ReasonPolicyDenied || got[0].Transcript != "rm everything" {
		t.Fatalf("newest = %+v", got[0])
	}
	if got[1].Status != intent.StatusFailed || got[1].Error == "" || got[1].Kind != intent.KindRunCommand {
		t.Fatalf("second = %+v", got[1])
	}
	if got[0].At.IsZero() {
		t.Fatalf("timestamp lost")
	}

	if _, err := j.Recent(ctx, 0); err == nil {
		t.Fatalf("expected error for n=0")
	}
}
