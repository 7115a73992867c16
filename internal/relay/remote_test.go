package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/mailbox"
	"github.com/Iron-Ham/raven/internal/wire"
)

func startKeeper(t *testing.T, fs afero.Fs, home string) *mailbox.Keeper {
	t.Helper()
	k := mailbox.NewKeeper(fs, home)
	k.Start()
	t.Cleanup(k.Stop)
	return k
}

func TestRemoteListenerStoresEnvelopeAfterCancel(t *testing.T) {
	cfg := testConfig(t)
	fs := afero.NewOsFs()
	l := NewRemoteListener(cfg, startKeeper(t, fs, cfg.Home), nil)

	frame, err := wire.EncodeTransfer(wire.Text{Text: "last words"})
	if err != nil {
		t.Fatal(err)
	}

	client, server := net.Pipe()
	go func() {
		_, _ = client.Write(frame)
		_ = client.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.handle(ctx, server)
	_ = server.Close()

	m, err := mailbox.Open(fs, cfg.Home)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(m.Messages) != 1 || m.Messages[0].Text != "last words" {
		t.Errorf("messages = %+v, want the one read before cancel", m.Messages)
	}
}

// renameFailFs fails every rename, so the mailbox document can never be
// replaced.
type renameFailFs struct {
	afero.Fs
}

func (renameFailFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
}

func TestStoreFileRemovesAttachmentWhenSaveFails(t *testing.T) {
	cfg := testConfig(t)
	fs := renameFailFs{Fs: afero.NewMemMapFs()}
	l := NewRemoteListener(cfg, startKeeper(t, fs, cfg.Home), nil)

	err := l.deliver(context.Background(), "10.0.0.2:5000", wire.File{Name: "a.txt", Content: []byte("body")})
	var pe *errors.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("deliver() error = %v, want PersistenceError", err)
	}

	path := filepath.Join(mailbox.DataPath(cfg.Home), "a.txt")
	if ok, _ := afero.Exists(fs, path); ok {
		t.Errorf("%s left on disk without a mailbox record", path)
	}
}

func TestLogFailureUsesSeverity(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"critical", errors.NewBindError("127.0.0.1:12345", nil), "ERROR"},
		{"warning", errors.NewAcceptError("remote", nil), "WARN"},
		{"not found", errors.NewNotFoundError("file", "3"), "WARN"},
		{"untyped", errors.New("boom"), "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logFailure(logging.NewWriterLogger(&buf, logging.LevelDebug), "failed", tt.err, "peer_count", 1)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["peer_count"] != float64(1) {
				t.Errorf("peer_count = %v, want 1", entry["peer_count"])
			}
		})
	}
}

func TestRemoteListenerLogsDecodeFailure(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	log := logging.NewWriterLogger(&buf, logging.LevelDebug)
	l := NewRemoteListener(cfg, startKeeper(t, afero.NewMemMapFs(), cfg.Home), log)

	client, server := net.Pipe()
	go func() {
		_, _ = client.Write([]byte("not an envelope"))
		_ = client.Close()
	}()
	l.handle(context.Background(), server)
	_ = server.Close()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "decode failed" || entry["level"] != "WARN" {
		t.Errorf("entry = %v, want a WARN decode failure", entry)
	}
	if entry["bytes"] != float64(len("not an envelope")) {
		t.Errorf("bytes = %v, want %d", entry["bytes"], len("not an envelope"))
	}
	if entry["component"] != "remote" {
		t.Errorf("component = %v, want remote", entry["component"])
	}
}
