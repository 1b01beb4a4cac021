package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/sitestore"
)

func testConfig() config.Config {
	return config.Config{
		WorkerCount:  2,
		MaxQueueSize: 4,
		JobTTL:       time.Hour,
		StatsWindow:  time.Hour,
	}
}

func waitTerminal(t *testing.T, o *Orchestrator, id string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job := o.GetJob(id); job != nil {
			if snap := job.Snapshot(); snap.Status.Terminal() {
				return snap
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return JobSnapshot{}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	store, err := sitestore.Open(":memory:", discardLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	o := NewOrchestrator(testConfig(), store, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("site.md", []byte(sampleMarkdown), false)
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap := waitTerminal(t, o, job.ID)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}

	site, err := store.Get(context.Background(), snap.SiteID)
	if err != nil {
		t.Fatalf("get stored site: %v", err)
	}
	if len(site.Model.Sections) != 1 || site.ContentHash != snap.ContentHash {
		t.Errorf("unexpected stored site %+v", site)
	}
	if got := o.Stats().Snapshot(); got.Completed != 1 || got.Formats["markdown"] != 1 {
		t.Errorf("expected one completed markdown conversion, got %+v", got)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, newFakeStore(), discardLogger())

	if err := o.Submit(NewJob("a.md", nil, false)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	overflow := NewJob("b.md", nil, false)
	if err := o.Submit(overflow); err == nil {
		t.Fatal("expected queue full error")
	}
	if got := overflow.Snapshot().Status; got != StatusFailed {
		t.Errorf("expected overflow job failed, got %q", got)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := NewOrchestrator(testConfig(), newFakeStore(), discardLogger())
	o.Start(context.Background())
	o.Stop()
	o.Stop()
	if err := o.Submit(NewJob("a.md", nil, false)); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}
