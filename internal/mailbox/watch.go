package mailbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// watchDebounce coalesces the write-then-rename burst of a single save.
const watchDebounce = 50 * time.Millisecond

// Delta holds entries that appeared since the previous snapshot.
type Delta struct {
	Messages []Message
	Files    []File
}

// Empty reports whether the delta carries nothing.
func (d Delta) Empty() bool {
	return len(d.Messages) == 0 && len(d.Files) == 0
}

// Watch calls fn with every batch of entries appended to the mailbox under
// home until ctx is done. Entries present when Watch starts are not
// reported. After a deletion the snapshot is reset to the shorter sequence,
// so an append following a delete is reported once.
//
// The document is re-read through fs; change notification uses the host
// filesystem, so fs must be backed by it.
func Watch(ctx context.Context, fs afero.Fs, home string, fn func(Delta)) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("create home directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// The document is replaced by rename on every save, so the directory is
	// watched rather than the file.
	if err := watcher.Add(home); err != nil {
		return fmt.Errorf("watch %s: %w", home, err)
	}

	prev, err := Open(fs, home)
	if err != nil {
		return err
	}

	target := filepath.Clean(DocumentPath(home))
	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			next, err := Open(fs, home)
			if err != nil {
				// A concurrent save may still be mid-rename; the next event
				// brings another attempt.
				continue
			}
			if d := diff(prev, next); !d.Empty() {
				fn(d)
			}
			prev = next

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", home, err)
		}
	}
}

// diff returns the tail of next past prev's length in each sequence.
func diff(prev, next *Mailbox) Delta {
	var d Delta
	if n := len(prev.Messages); len(next.Messages) > n {
		d.Messages = next.Messages[n:]
	}
	if n := len(prev.Files); len(next.Files) > n {
		d.Files = next.Files[n:]
	}
	return d
}
