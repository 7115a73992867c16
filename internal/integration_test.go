// Package internal contains integration tests that verify the relay daemon,
// the mailbox and the front-end client work together across two machines'
// worth of state.
package internal

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/mailbox"
	"github.com/Iron-Ham/raven/internal/relay"
)

type peer struct {
	cfg    config.Config
	daemon *relay.Daemon
	client *relay.Client
}

// startPeer runs a daemon with its own home on ephemeral loopback ports.
func startPeer(t *testing.T) *peer {
	t.Helper()
	cfg := *config.Default()
	cfg.Home = t.TempDir()
	cfg.Remote = config.ListenerConfig{Address: "127.0.0.1", Port: 0}
	cfg.Local = config.ListenerConfig{Address: "127.0.0.1", Port: 0}
	cfg.Relay.ReadTimeoutMs = 5000

	d := relay.NewDaemon(cfg, afero.NewOsFs(), logging.NopLogger())
	if err := d.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	return &peer{
		cfg:    cfg,
		daemon: d,
		client: relay.NewClient(d.LocalAddr().String(), 2*time.Second),
	}
}

func (p *peer) remotePort() uint16 {
	return uint16(p.daemon.RemoteAddr().(*net.TCPAddr).Port)
}

// TestRelayBetweenPeers sends from one daemon to another and follows the
// envelopes into the receiver's mailbox, its watcher and its mbox export.
func TestRelayBetweenPeers(t *testing.T) {
	alice := startPeer(t)
	bob := startPeer(t)

	var (
		mu      sync.Mutex
		arrived mailbox.Delta
	)
	watchCtx, stopWatch := context.WithCancel(context.Background())
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- mailbox.Watch(watchCtx, afero.NewOsFs(), bob.cfg.Home, func(d mailbox.Delta) {
			mu.Lock()
			defer mu.Unlock()
			arrived.Messages = append(arrived.Messages, d.Messages...)
			arrived.Files = append(arrived.Files, d.Files...)
		})
	}()
	defer func() {
		stopWatch()
		<-watchDone
	}()
	// Give the watcher time to register before anything is written.
	time.Sleep(100 * time.Millisecond)

	ctx := context.Background()
	if err := alice.client.Send(ctx, "127.0.0.1", bob.remotePort(), "are you there?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := alice.client.SendFile(ctx, "127.0.0.1", bob.remotePort(), "plan.txt", []byte("step one")); err != nil {
		t.Fatalf("SendFile() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n, f := len(arrived.Messages), len(arrived.Files)
		mu.Unlock()
		if n == 1 && f == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("watcher saw %d messages, %d files", n, f)
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	if arrived.Messages[0].Text != "are you there?" {
		t.Errorf("watched message = %q", arrived.Messages[0].Text)
	}
	mu.Unlock()

	// Alice's own mailbox stays empty: sending never records anything locally.
	aliceBox, err := mailbox.Open(afero.NewOsFs(), alice.cfg.Home)
	if err != nil {
		t.Fatal(err)
	}
	if n, f := aliceBox.Len(); n != 0 || f != 0 {
		t.Errorf("sender mailbox = %d messages, %d files", n, f)
	}

	keeper := mailbox.NewKeeper(afero.NewOsFs(), bob.cfg.Home)
	keeper.Start()
	defer keeper.Stop()

	var export bytes.Buffer
	err = keeper.View(ctx, func(m *mailbox.Mailbox) error {
		return mailbox.ExportMbox(&export, m)
	})
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !bytes.Contains(export.Bytes(), []byte("are you there?")) || !bytes.Contains(export.Bytes(), []byte("plan.txt")) {
		t.Errorf("export =\n%s", export.String())
	}

	// The front-end deletes under the same lock the daemon writes under.
	err = keeper.Update(ctx, func(m *mailbox.Mailbox) error {
		return m.RemoveFile(afero.NewOsFs(), 0, nil)
	})
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if err := alice.client.Send(ctx, "127.0.0.1", bob.remotePort(), "second"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	deadline = time.Now().Add(5 * time.Second)
	for {
		var n, f int
		_ = keeper.View(ctx, func(m *mailbox.Mailbox) error {
			n, f = m.Len()
			return nil
		})
		if n == 2 && f == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("mailbox = %d messages, %d files; want 2, 0", n, f)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
