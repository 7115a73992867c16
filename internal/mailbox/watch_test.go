package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestDiff(t *testing.T) {
	prev := sampleMailbox()
	next := sampleMailbox()
	next.AddMessage("p", t0, "new text")
	next.AddFile("p", t0, "/srv/raven/data/b.bin")

	d := diff(prev, next)
	if len(d.Messages) != 1 || d.Messages[0].Text != "new text" {
		t.Errorf("Messages = %+v", d.Messages)
	}
	if len(d.Files) != 1 || d.Files[0].Path != "/srv/raven/data/b.bin" {
		t.Errorf("Files = %+v", d.Files)
	}

	if !diff(next, prev).Empty() {
		t.Error("shrinking mailbox should produce an empty delta")
	}
	if !diff(prev, prev).Empty() {
		t.Error("unchanged mailbox should produce an empty delta")
	}
}

func TestWatch_ReportsAppends(t *testing.T) {
	home := t.TempDir()
	fs := afero.NewOsFs()

	existing := &Mailbox{}
	existing.AddMessage("p", t0, "already here")
	if err := existing.Save(fs, home); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deltas := make(chan Delta, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, fs, home, func(d Delta) { deltas <- d })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(150 * time.Millisecond)

	existing.AddMessage("10.0.0.9:5000", t0, "fresh")
	if err := existing.Save(fs, home); err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-deltas:
		if len(d.Messages) != 1 || d.Messages[0].Text != "fresh" {
			t.Errorf("delta messages = %+v, want only the new one", d.Messages)
		}
		if len(d.Files) != 0 {
			t.Errorf("delta files = %+v, want none", d.Files)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no delta reported")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
