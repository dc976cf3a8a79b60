// Package logging provides structured logging for crewpm runs.
//
// This package wraps Go's log/slog to write JSON lines to debug.log in the
// run's session directory. Every generator call, phase attempt and verdict is
// logged with the attributes needed to reconstruct a run after the fact.
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// created via the With* methods share the parent's writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLoggerWithRotation(sess.Dir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	phaseLog := logger.WithSession(sess.ID).WithPhase("Copy Draft").WithAttempt(2)
//	phaseLog.Info("verdict rendered", "accepted", false)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"verdict rendered","session_id":"...","phase":"Copy Draft","attempt":2,"accepted":false}
//
// # Reading Logs
//
// [ReadLogs] parses a session's debug.log back into [LogEntry] values and
// filters them by level, phase, call purpose or message text. It backs the
// "crewpm logs" command.
package logging
