// Package logging provides structured logging for negotiator agents.
//
// The package wraps log/slog with a JSON handler so that every negotiation
// leaves a machine-readable trail: session start, dice exchange, each role
// entry, every dropped message, and the terminal outcome.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("negotiation completed", "outcome", "winner", "rounds", 4)
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	slog := logger.WithSession(sess.ID()).WithPeer(peerID).WithRole("receiver")
//	slog.Debug("offer received", "offer", o)
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"offer received","session_id":"...","peer_id":"...","role":"receiver","offer":"..."}
//
// # Rotation
//
// [NewLoggerWithRotation] swaps the plain file for a [RotatingWriter] that
// renames negotiator.log to negotiator.log.1 (optionally gzipped) once it
// crosses the configured size.
//
// All types in this package are safe for concurrent use.
package logging
