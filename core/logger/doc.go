// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance for the sync command (console output
// on a terminal) and the ingestion server (JSON for log shippers). All output
// goes to stderr so the sync command never interleaves logs with data.
//
// # Context Awareness
//
// The WithRayID helper extracts the RayID from a Fiber context and attaches it
// to the log entry, so every log line of a single ingestion request can be
// correlated.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log.Info("Sync started", zap.String("run_id", runID))
package logger
