// Package logging provides structured logging for the raven daemon.
//
// It wraps log/slog to write JSON lines to <home>/rvd.log through a
// size-rotating writer, and reads those lines back for the rv logs command.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(home, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	remote := logger.WithComponent("remote")
//	remote.WithPeer("10.0.0.7:51234").Info("message stored", "bytes", 5)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"message stored","component":"remote","peer":"10.0.0.7:51234","bytes":5}
//
// # Log Rotation
//
// When the file would grow past MaxSizeMB it is renamed to rvd.log.1, older
// backups shift up to MaxBackups, and a fresh file is opened. With Compress
// set, backups are gzipped in the background.
//
// # Reading Logs
//
//	entries, err := logging.ReadLogs(f)
//	warnings := logging.FilterLogs(entries, logging.LogFilter{Level: "WARN", Component: "remote"})
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] over a
// bytes.Buffer to assert on it.
package logging
