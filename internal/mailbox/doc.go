// Package mailbox stores what the daemon receives from peers.
//
// A mailbox is two independent, insertion-ordered sequences: text
// [Message] records and [File] records pointing at attachments written under
// the data directory. Both live in one TOML document, rewritten whole on
// every mutation:
//
//	<home>/mailbox.toml   -- [[messages]] and [[files]] arrays of tables
//	<home>/mailbox.lock   -- flock(2) target shared with the rv front-end
//	<home>/data/          -- received attachments
//
// # Main Types
//
//   - [Mailbox]: the in-memory document with list, show and remove operations
//   - [Keeper]: single-owner goroutine serializing load-modify-save cycles
//   - [Delta]: entries reported by [Watch]
//
// Indices passed to show and remove are positions at the time of the call.
// Removing index 0 shifts every later entry down by one.
//
// # Basic Usage
//
//	k := mailbox.NewKeeper(afero.NewOsFs(), home, mailbox.WithLogger(log))
//	k.Start()
//	defer k.Stop()
//
//	err := k.AddMessage(ctx, "10.0.0.7:51234", time.Now(), "hello")
//
//	err = k.View(ctx, func(m *mailbox.Mailbox) error {
//	    for _, s := range m.List(false, false) {
//	        ...
//	    }
//	    return nil
//	})
//
// # Thread Safety
//
// A [Mailbox] value is not safe for concurrent use. [Keeper] methods are, and
// the lock file extends that to other processes using the same home.
package mailbox
